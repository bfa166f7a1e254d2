package msg

import (
	"bytes"
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// Shout carries a group-multicast application payload. Like Whisper, the
// payload rides as separate opaque frames after the header.
type Shout struct {
	address  []byte
	sequence uint16
	Group    string
	Content  [][]byte
}

// NewShout creates an empty Shout ready for marshaling.
func NewShout() *Shout {
	return &Shout{}
}

func (s *Shout) String() string {
	return fmt.Sprintf("SHOUT seq=%d group=%q frames=%d", s.sequence, s.Group, len(s.Content))
}

// Marshal serializes the header frame only.
func (s *Shout) Marshal() ([]byte, error) {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, Signature)
	binary.Write(buffer, binary.BigEndian, ShoutID)
	binary.Write(buffer, binary.BigEndian, Version)
	binary.Write(buffer, binary.BigEndian, s.sequence)
	putString(buffer, s.Group)
	return buffer.Bytes(), nil
}

// Unmarshal decodes the header frame and keeps every following frame as an
// opaque content part.
func (s *Shout) Unmarshal(frames ...[]byte) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrMalformed)
	}
	buffer := bytes.NewReader(frames[0])

	sequence, err := checkHeader(buffer, ShoutID)
	if err != nil {
		return err
	}
	s.sequence = sequence

	if s.Group, err = getString(buffer); err != nil {
		return err
	}
	s.Content = frames[1:]

	return nil
}

// Send writes the header frame followed by every content frame.
func (s *Shout) Send(socket *zmq.Socket) error {
	frame, err := s.Marshal()
	if err != nil {
		return err
	}
	return sendFrames(socket, s.address, frame, s.Content...)
}

// SetAddress sets the ROUTER routing address.
func (s *Shout) SetAddress(address []byte) { s.address = address }

// Address returns the ROUTER routing address.
func (s *Shout) Address() []byte { return s.address }

// SetSequence sets the outgoing sequence number.
func (s *Shout) SetSequence(sequence uint16) { s.sequence = sequence }

// Sequence returns the message's sequence number.
func (s *Shout) Sequence() uint16 { return s.sequence }
