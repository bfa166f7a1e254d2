package msg

import (
	"bytes"
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// Leave announces that the sender has left a named group.
type Leave struct {
	address  []byte
	sequence uint16
	Group    string
	Status   byte
}

// NewLeave creates an empty Leave ready for marshaling.
func NewLeave() *Leave {
	return &Leave{}
}

func (l *Leave) String() string {
	return fmt.Sprintf("LEAVE seq=%d group=%q status=%d", l.sequence, l.Group, l.Status)
}

// Marshal serializes the message.
func (l *Leave) Marshal() ([]byte, error) {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, Signature)
	binary.Write(buffer, binary.BigEndian, LeaveID)
	binary.Write(buffer, binary.BigEndian, Version)
	binary.Write(buffer, binary.BigEndian, l.sequence)
	putString(buffer, l.Group)
	binary.Write(buffer, binary.BigEndian, l.Status)
	return buffer.Bytes(), nil
}

// Unmarshal decodes the message.
func (l *Leave) Unmarshal(frames ...[]byte) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrMalformed)
	}
	buffer := bytes.NewReader(frames[0])

	sequence, err := checkHeader(buffer, LeaveID)
	if err != nil {
		return err
	}
	l.sequence = sequence

	if l.Group, err = getString(buffer); err != nil {
		return err
	}
	if err := binary.Read(buffer, binary.BigEndian, &l.Status); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return nil
}

// Send writes the marshaled frame to socket.
func (l *Leave) Send(socket *zmq.Socket) error {
	frame, err := l.Marshal()
	if err != nil {
		return err
	}
	return sendFrames(socket, l.address, frame)
}

// SetAddress sets the ROUTER routing address.
func (l *Leave) SetAddress(address []byte) { l.address = address }

// Address returns the ROUTER routing address.
func (l *Leave) Address() []byte { return l.address }

// SetSequence sets the outgoing sequence number.
func (l *Leave) SetSequence(sequence uint16) { l.sequence = sequence }

// Sequence returns the message's sequence number.
func (l *Leave) Sequence() uint16 { return l.sequence }
