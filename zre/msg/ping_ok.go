package msg

import (
	"bytes"
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// PingOk replies to a peer's Ping.
type PingOk struct {
	address  []byte
	sequence uint16
}

// NewPingOk creates an empty PingOk ready for marshaling.
func NewPingOk() *PingOk {
	return &PingOk{}
}

func (p *PingOk) String() string {
	return fmt.Sprintf("PING_OK seq=%d", p.sequence)
}

// Marshal serializes the message.
func (p *PingOk) Marshal() ([]byte, error) {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, Signature)
	binary.Write(buffer, binary.BigEndian, PingOkID)
	binary.Write(buffer, binary.BigEndian, Version)
	binary.Write(buffer, binary.BigEndian, p.sequence)
	return buffer.Bytes(), nil
}

// Unmarshal decodes the message.
func (p *PingOk) Unmarshal(frames ...[]byte) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrMalformed)
	}
	buffer := bytes.NewReader(frames[0])

	sequence, err := checkHeader(buffer, PingOkID)
	if err != nil {
		return err
	}
	p.sequence = sequence

	return nil
}

// Send writes the marshaled frame to socket.
func (p *PingOk) Send(socket *zmq.Socket) error {
	frame, err := p.Marshal()
	if err != nil {
		return err
	}
	return sendFrames(socket, p.address, frame)
}

// SetAddress sets the ROUTER routing address.
func (p *PingOk) SetAddress(address []byte) { p.address = address }

// Address returns the ROUTER routing address.
func (p *PingOk) Address() []byte { return p.address }

// SetSequence sets the outgoing sequence number.
func (p *PingOk) SetSequence(sequence uint16) { p.sequence = sequence }

// Sequence returns the message's sequence number.
func (p *PingOk) Sequence() uint16 { return p.sequence }
