package msg

import (
	"bytes"
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// Ping probes a peer that has gone quiet for PEER_EVASIVE.
type Ping struct {
	address  []byte
	sequence uint16
}

// NewPing creates an empty Ping ready for marshaling.
func NewPing() *Ping {
	return &Ping{}
}

func (p *Ping) String() string {
	return fmt.Sprintf("PING seq=%d", p.sequence)
}

// Marshal serializes the message.
func (p *Ping) Marshal() ([]byte, error) {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, Signature)
	binary.Write(buffer, binary.BigEndian, PingID)
	binary.Write(buffer, binary.BigEndian, Version)
	binary.Write(buffer, binary.BigEndian, p.sequence)
	return buffer.Bytes(), nil
}

// Unmarshal decodes the message.
func (p *Ping) Unmarshal(frames ...[]byte) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrMalformed)
	}
	buffer := bytes.NewReader(frames[0])

	sequence, err := checkHeader(buffer, PingID)
	if err != nil {
		return err
	}
	p.sequence = sequence

	return nil
}

// Send writes the marshaled frame to socket.
func (p *Ping) Send(socket *zmq.Socket) error {
	frame, err := p.Marshal()
	if err != nil {
		return err
	}
	return sendFrames(socket, p.address, frame)
}

// SetAddress sets the ROUTER routing address.
func (p *Ping) SetAddress(address []byte) { p.address = address }

// Address returns the ROUTER routing address.
func (p *Ping) Address() []byte { return p.address }

// SetSequence sets the outgoing sequence number.
func (p *Ping) SetSequence(sequence uint16) { p.sequence = sequence }

// Sequence returns the message's sequence number.
func (p *Ping) Sequence() uint16 { return p.sequence }
