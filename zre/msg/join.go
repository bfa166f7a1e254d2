package msg

import (
	"bytes"
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// Join announces that the sender has joined a named group.
type Join struct {
	address  []byte
	sequence uint16
	Group    string
	Status   byte
}

// NewJoin creates an empty Join ready for marshaling.
func NewJoin() *Join {
	return &Join{}
}

func (j *Join) String() string {
	return fmt.Sprintf("JOIN seq=%d group=%q status=%d", j.sequence, j.Group, j.Status)
}

// Marshal serializes the message.
func (j *Join) Marshal() ([]byte, error) {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, Signature)
	binary.Write(buffer, binary.BigEndian, JoinID)
	binary.Write(buffer, binary.BigEndian, Version)
	binary.Write(buffer, binary.BigEndian, j.sequence)
	putString(buffer, j.Group)
	binary.Write(buffer, binary.BigEndian, j.Status)
	return buffer.Bytes(), nil
}

// Unmarshal decodes the message.
func (j *Join) Unmarshal(frames ...[]byte) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrMalformed)
	}
	buffer := bytes.NewReader(frames[0])

	sequence, err := checkHeader(buffer, JoinID)
	if err != nil {
		return err
	}
	j.sequence = sequence

	if j.Group, err = getString(buffer); err != nil {
		return err
	}
	if err := binary.Read(buffer, binary.BigEndian, &j.Status); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return nil
}

// Send writes the marshaled frame to socket.
func (j *Join) Send(socket *zmq.Socket) error {
	frame, err := j.Marshal()
	if err != nil {
		return err
	}
	return sendFrames(socket, j.address, frame)
}

// SetAddress sets the ROUTER routing address.
func (j *Join) SetAddress(address []byte) { j.address = address }

// Address returns the ROUTER routing address.
func (j *Join) Address() []byte { return j.address }

// SetSequence sets the outgoing sequence number.
func (j *Join) SetSequence(sequence uint16) { j.sequence = sequence }

// Sequence returns the message's sequence number.
func (j *Join) Sequence() uint16 { return j.sequence }
