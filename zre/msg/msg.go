// Package msg implements the ZRE peer wire protocol: the seven framed
// commands exchanged between nodes over their ROUTER/DEALER mailboxes.
package msg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	zmq "github.com/pebbe/zmq4"
)

const (
	// Signature is the two-byte protocol marker every frame starts with.
	Signature uint16 = 0xAAA0 | 1
	// Version is the only protocol version this codec understands.
	Version uint8 = 2
	// StringMax is the largest length a short string field may carry.
	StringMax = 255
)

// Command ids, one per ZRE peer frame kind.
const (
	HelloID   uint8 = 1
	WhisperID uint8 = 2
	ShoutID   uint8 = 3
	JoinID    uint8 = 4
	LeaveID   uint8 = 5
	PingID    uint8 = 6
	PingOkID  uint8 = 7
)

// ErrMalformed is returned for any frame that fails to decode: unknown
// signature, unknown id, version mismatch, or a truncated payload.
var ErrMalformed = errors.New("msg: malformed frame")

// Transit is the common shape of all seven peer commands.
type Transit interface {
	Marshal() ([]byte, error)
	Unmarshal(frames ...[]byte) error
	String() string
	Send(*zmq.Socket) error
	SetAddress([]byte)
	Address() []byte
	SetSequence(uint16)
	Sequence() uint16
}

// Recv reads one ZRE frame from socket, skipping over anything that fails
// to decode so a single misbehaving peer can't wedge the read loop.
func Recv(socket *zmq.Socket) (Transit, error) {
	for {
		frames, err := socket.RecvMessageBytes(0)
		if err != nil {
			return nil, err
		}

		socType, err := socket.GetType()
		if err != nil {
			return nil, err
		}

		t, err := Unmarshal(socType, frames...)
		if err != nil {
			continue
		}
		return t, nil
	}
}

// Unmarshal decodes one frame set into a Transit. When sType is zmq.ROUTER
// the first frame is the sender's routing address and is stripped before
// decoding the header frame.
func Unmarshal(sType zmq.Type, frames ...[]byte) (Transit, error) {
	var address []byte

	if sType == zmq.ROUTER {
		if len(frames) <= 1 {
			return nil, fmt.Errorf("%w: no address frame", ErrMalformed)
		}
		address = frames[0]
		frames = frames[1:]
	}

	if len(frames) == 0 || len(frames[0]) < 3 {
		return nil, fmt.Errorf("%w: short header frame", ErrMalformed)
	}

	buffer := bytes.NewReader(frames[0])

	var signature uint16
	binary.Read(buffer, binary.BigEndian, &signature)
	if signature != Signature {
		return nil, fmt.Errorf("%w: invalid signature %x", ErrMalformed, signature)
	}

	var id uint8
	binary.Read(buffer, binary.BigEndian, &id)

	var t Transit
	switch id {
	case HelloID:
		t = NewHello()
	case WhisperID:
		t = NewWhisper()
	case ShoutID:
		t = NewShout()
	case JoinID:
		t = NewJoin()
	case LeaveID:
		t = NewLeave()
	case PingID:
		t = NewPing()
	case PingOkID:
		t = NewPingOk()
	default:
		return nil, fmt.Errorf("%w: unknown id %d", ErrMalformed, id)
	}

	if err := t.Unmarshal(frames...); err != nil {
		return nil, err
	}
	t.SetAddress(address)

	return t, nil
}

// Clone makes a deep-enough copy of t so that each recipient of a fan-out
// send (see Group.send) gets its own sequence number without racing the
// original message's fields.
func Clone(t Transit) Transit {
	switch m := t.(type) {
	case *Hello:
		c := NewHello()
		c.Endpoint = m.Endpoint
		c.Groups = append(c.Groups, m.Groups...)
		c.Status = m.Status
		c.Name = m.Name
		for k, v := range m.Headers {
			c.Headers[k] = v
		}
		return c

	case *Whisper:
		c := NewWhisper()
		c.Content = append(c.Content, m.Content...)
		return c

	case *Shout:
		c := NewShout()
		c.Group = m.Group
		c.Content = append(c.Content, m.Content...)
		return c

	case *Join:
		c := NewJoin()
		c.Group = m.Group
		c.Status = m.Status
		return c

	case *Leave:
		c := NewLeave()
		c.Group = m.Group
		c.Status = m.Status
		return c

	case *Ping:
		return NewPing()

	case *PingOk:
		return NewPingOk()
	}

	return nil
}

func checkHeader(buffer *bytes.Reader, wantID uint8) (sequence uint16, err error) {
	var signature uint16
	if err := binary.Read(buffer, binary.BigEndian, &signature); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if signature != Signature {
		return 0, fmt.Errorf("%w: invalid signature", ErrMalformed)
	}

	var id uint8
	if err := binary.Read(buffer, binary.BigEndian, &id); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if id != wantID {
		return 0, fmt.Errorf("%w: id %d does not match expected %d", ErrMalformed, id, wantID)
	}

	var version uint8
	if err := binary.Read(buffer, binary.BigEndian, &version); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if version != Version {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrMalformed, version)
	}

	if err := binary.Read(buffer, binary.BigEndian, &sequence); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return sequence, nil
}

// putString marshals a short (<=255 byte) string into buffer.
func putString(buffer *bytes.Buffer, str string) {
	size := len(str)
	if size > StringMax {
		size = StringMax
	}
	buffer.WriteByte(byte(size))
	buffer.WriteString(str[:size])
}

// getString unmarshals a short string from buffer.
func getString(buffer *bytes.Reader) (string, error) {
	size, err := buffer.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(buffer, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(data), nil
}

// putLongString marshals an arbitrary-length string into buffer.
func putLongString(buffer *bytes.Buffer, str string) {
	binary.Write(buffer, binary.BigEndian, uint32(len(str)))
	buffer.WriteString(str)
}

// getLongString unmarshals an arbitrary-length string from buffer.
func getLongString(buffer *bytes.Reader) (string, error) {
	var size uint32
	if err := binary.Read(buffer, binary.BigEndian, &size); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(buffer, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(data), nil
}

func sendFrames(socket *zmq.Socket, address []byte, frame []byte, extra ...[]byte) error {
	socType, err := socket.GetType()
	if err != nil {
		return err
	}

	if socType == zmq.ROUTER {
		if _, err := socket.SendBytes(address, zmq.SNDMORE); err != nil {
			return err
		}
	}

	flag := zmq.Flag(0)
	if len(extra) > 0 {
		flag = zmq.SNDMORE
	}
	if _, err := socket.SendBytes(frame, flag); err != nil {
		return err
	}

	for i, e := range extra {
		f := zmq.Flag(0)
		if i < len(extra)-1 {
			f = zmq.SNDMORE
		}
		if _, err := socket.SendBytes(e, f); err != nil {
			return err
		}
	}

	return nil
}
