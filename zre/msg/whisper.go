package msg

import (
	"bytes"
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// Whisper carries a unicast application payload to one peer. The payload
// is not part of the length-prefixed header frame: it rides as one or more
// additional opaque ZeroMQ frames, so a multi-part send from the caller
// reaches the receiver with its frame boundaries intact.
type Whisper struct {
	address  []byte
	sequence uint16
	Content  [][]byte
}

// NewWhisper creates an empty Whisper ready for marshaling.
func NewWhisper() *Whisper {
	return &Whisper{}
}

func (w *Whisper) String() string {
	return fmt.Sprintf("WHISPER seq=%d frames=%d", w.sequence, len(w.Content))
}

// Marshal serializes the header frame only; Content is sent as separate
// frames by Send.
func (w *Whisper) Marshal() ([]byte, error) {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, Signature)
	binary.Write(buffer, binary.BigEndian, WhisperID)
	binary.Write(buffer, binary.BigEndian, Version)
	binary.Write(buffer, binary.BigEndian, w.sequence)
	return buffer.Bytes(), nil
}

// Unmarshal decodes the header frame and keeps every following frame as an
// opaque content part.
func (w *Whisper) Unmarshal(frames ...[]byte) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrMalformed)
	}
	buffer := bytes.NewReader(frames[0])

	sequence, err := checkHeader(buffer, WhisperID)
	if err != nil {
		return err
	}
	w.sequence = sequence
	w.Content = frames[1:]

	return nil
}

// Send writes the header frame followed by every content frame.
func (w *Whisper) Send(socket *zmq.Socket) error {
	frame, err := w.Marshal()
	if err != nil {
		return err
	}
	return sendFrames(socket, w.address, frame, w.Content...)
}

// SetAddress sets the ROUTER routing address.
func (w *Whisper) SetAddress(address []byte) { w.address = address }

// Address returns the ROUTER routing address.
func (w *Whisper) Address() []byte { return w.address }

// SetSequence sets the outgoing sequence number.
func (w *Whisper) SetSequence(sequence uint16) { w.sequence = sequence }

// Sequence returns the message's sequence number.
func (w *Whisper) Sequence() uint16 { return w.sequence }
