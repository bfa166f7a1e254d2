package msg

import (
	"bytes"
	"testing"

	zmq "github.com/pebbe/zmq4"
)

// Yay! Test function.
func TestWhisper(t *testing.T) {

	// Create pair of sockets we can send through

	// Output socket
	output, err := zmq.NewSocket(zmq.DEALER)
	if err != nil {
		t.Fatal(err)
	}
	defer output.Close()

	routingID := "Shout"
	output.SetIdentity(routingID)
	err = output.Bind("inproc://selftest-whisper")
	if err != nil {
		t.Fatal(err)
	}
	defer output.Unbind("inproc://selftest-whisper")

	// Input socket
	input, err := zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		t.Fatal(err)
	}
	defer input.Close()

	err = input.Connect("inproc://selftest-whisper")
	if err != nil {
		t.Fatal(err)
	}
	defer input.Disconnect("inproc://selftest-whisper")

	// Create a Whisper message and send it through the wire
	whisper := NewWhisper()

	whisper.sequence = 123

	whisper.Content = [][]byte{[]byte("Captcha Diem")}

	err = whisper.Send(output)
	if err != nil {
		t.Fatal(err)
	}
	transit, err := Recv(input)
	if err != nil {
		t.Fatal(err)
	}

	tr := transit.(*Whisper)

	if tr.sequence != 123 {
		t.Fatalf("expected %d, got %d", 123, tr.sequence)
	}

	if len(tr.Content) != 1 || !bytes.Equal(tr.Content[0], []byte("Captcha Diem")) {
		t.Fatalf("expected %s, got %v", "Captcha Diem", tr.Content)
	}

	err = tr.Send(input)
	if err != nil {
		t.Fatal(err)
	}

	transit, err = Recv(output)
	if err != nil {
		t.Fatal(err)
	}

	if routingID != string(tr.Address()) {
		t.Fatalf("expected %s, got %s", routingID, string(tr.Address()))
	}
}
