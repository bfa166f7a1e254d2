package msg

import (
	"bytes"
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// Hello greets a newly discovered peer so it can connect back to us. It is
// always the first frame sent on a mailbox and carries everything the
// receiver needs to treat us as ready: our endpoint, our group memberships,
// our status counter, our name and our headers.
type Hello struct {
	address  []byte
	sequence uint16
	Endpoint string
	Groups   []string
	Status   byte
	Name     string
	Headers  map[string]string
}

// NewHello creates an empty Hello ready for marshaling.
func NewHello() *Hello {
	return &Hello{Headers: make(map[string]string)}
}

func (h *Hello) String() string {
	return fmt.Sprintf("HELLO seq=%d endpoint=%s groups=%v status=%d name=%q headers=%v",
		h.sequence, h.Endpoint, h.Groups, h.Status, h.Name, h.Headers)
}

// Marshal serializes the message per the wire layout in §4.1.
func (h *Hello) Marshal() ([]byte, error) {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, Signature)
	binary.Write(buffer, binary.BigEndian, HelloID)
	binary.Write(buffer, binary.BigEndian, Version)
	binary.Write(buffer, binary.BigEndian, h.sequence)

	putString(buffer, h.Endpoint)

	binary.Write(buffer, binary.BigEndian, uint32(len(h.Groups)))
	for _, g := range h.Groups {
		putLongString(buffer, g)
	}

	binary.Write(buffer, binary.BigEndian, h.Status)
	putString(buffer, h.Name)

	binary.Write(buffer, binary.BigEndian, uint32(len(h.Headers)))
	for k, v := range h.Headers {
		putString(buffer, k)
		putLongString(buffer, v)
	}

	return buffer.Bytes(), nil
}

// Unmarshal decodes the message from its header frame.
func (h *Hello) Unmarshal(frames ...[]byte) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrMalformed)
	}
	buffer := bytes.NewReader(frames[0])

	sequence, err := checkHeader(buffer, HelloID)
	if err != nil {
		return err
	}
	h.sequence = sequence

	if h.Endpoint, err = getString(buffer); err != nil {
		return err
	}

	var groupCount uint32
	if err := binary.Read(buffer, binary.BigEndian, &groupCount); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	h.Groups = nil
	for ; groupCount > 0; groupCount-- {
		g, err := getLongString(buffer)
		if err != nil {
			return err
		}
		h.Groups = append(h.Groups, g)
	}

	if err := binary.Read(buffer, binary.BigEndian, &h.Status); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Name, err = getString(buffer); err != nil {
		return err
	}

	var headerCount uint32
	if err := binary.Read(buffer, binary.BigEndian, &headerCount); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Headers == nil {
		h.Headers = make(map[string]string, headerCount)
	}
	for ; headerCount > 0; headerCount-- {
		key, err := getString(buffer)
		if err != nil {
			return err
		}
		val, err := getLongString(buffer)
		if err != nil {
			return err
		}
		h.Headers[key] = val
	}

	return nil
}

// Send writes the marshaled frame to socket, prefixed with the routing
// address when socket is a ROUTER.
func (h *Hello) Send(socket *zmq.Socket) error {
	frame, err := h.Marshal()
	if err != nil {
		return err
	}
	return sendFrames(socket, h.address, frame)
}

// SetAddress sets the ROUTER routing address this message arrived on (or
// will be sent to).
func (h *Hello) SetAddress(address []byte) { h.address = address }

// Address returns the ROUTER routing address.
func (h *Hello) Address() []byte { return h.address }

// SetSequence sets the outgoing sequence number.
func (h *Hello) SetSequence(sequence uint16) { h.sequence = sequence }

// Sequence returns the message's sequence number.
func (h *Hello) Sequence() uint16 { return h.sequence }
