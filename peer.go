package zre

import (
	"fmt"
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/meshdrift/zre/zre/msg"
)

var (
	optMx        sync.Mutex
	peerEvasive  = 10 * time.Second // PEER_EVASIVE: 10 seconds' silence triggers a PING
	peerExpired  = 30 * time.Second // PEER_EXPIRED: 30 seconds' silence triggers removal
	reapInterval = 1 * time.Second  // REAP_INTERVAL: once per second
)

// peer is this node's view of one remote node: its mailbox, its liveness
// timers, and the sequence counters used to detect gaps in its frames.
type peer struct {
	mailbox      *zmq.Socket // Socket through to peer
	identity     string
	endpoint     string            // Endpoint connected to
	name         string            // Peer's public name
	evasiveAt    time.Time         // Peer is being evasive
	expiredAt    time.Time         // Peer has expired by now
	connected    bool              // Peer will send messages
	ready        bool              // Peer has said Hello to us
	pingPending  bool              // A PING has been sent for the current evasive window
	status       byte              // Peer's last-known status counter
	sentSequence uint16            // Outgoing message sequence
	wantSequence uint16            // Incoming message sequence
	headers      map[string]string // Peer headers
}

// newPeer creates a new peer
func newPeer(identity string) (p *peer) {
	p = &peer{
		identity: identity,
		name:     fmt.Sprintf("%.6s", identity),
		headers:  make(map[string]string),
	}
	p.refresh()
	return
}

// destroy disconnects peer mailbox. No more messages will be sent to peer until connected again
func (p *peer) destroy() {
	p.disconnect()
	for k := range p.headers {
		delete(p.headers, k)
	}
}

// connect configures mailbox and connects to peer's router endpoint. It is
// idempotent: calling it while already connected is a no-op.
func (p *peer) connect(from []byte, endpoint string) (err error) {
	if p.connected {
		return nil
	}

	p.mailbox, err = zmq.NewSocket(zmq.DEALER)
	if err != nil {
		return err
	}
	if err = p.mailbox.SetIpv6(true); err != nil {
		return err
	}

	// Use the node's identifier prefixed with 0x01 as the routing identity,
	// since a raw UUID may start with a zero byte that libzmq rejects.
	routingId := append([]byte{1}, from...)
	p.mailbox.SetIdentity(string(routingId))

	optMx.Lock()
	p.mailbox.SetSndhwm(100 * int(peerExpired/time.Second))
	optMx.Unlock()

	// Send messages immediately or return EAGAIN; never block the engine.
	p.mailbox.SetLinger(0)
	p.mailbox.SetSndtimeo(0)

	if err = p.mailbox.Connect(endpoint); err != nil {
		return err
	}
	p.endpoint = endpoint
	p.connected = true
	p.ready = false

	return nil
}

// disconnect closes the mailbox. No more messages are sent to peer until
// connected again.
func (p *peer) disconnect() {
	if p.connected {
		if p.mailbox != nil {
			p.mailbox.Disconnect(p.endpoint)
			p.mailbox.Close()
			p.mailbox = nil
		}
		p.endpoint = ""
		p.connected = false
		p.ready = false
	}
}

// send stamps the next sent_sequence and transmits. It never blocks; an
// immediate send failure disconnects the peer and surfaces the error.
func (p *peer) send(t msg.Transit) (err error) {
	if p.connected {
		p.sentSequence++
		t.SetSequence(p.sentSequence)
		err = t.Send(p.mailbox)
		if err != nil {
			p.disconnect()
		}
	}

	return
}

// refresh pushes the evasive/expired deadlines out from now and clears the
// pending-ping flag, so the next evasive window produces at most one PING.
func (p *peer) refresh() {
	optMx.Lock()
	defer optMx.Unlock()

	p.evasiveAt = time.Now().Add(peerEvasive)
	p.expiredAt = time.Now().Add(peerExpired)
	p.pingPending = false
}

// messagesLost reports gaps in the peer's incoming sequence numbers. A
// HELLO always resets want_sequence to 1; any other command must carry
// exactly want_sequence+1, or the peer is considered to have lost messages.
func (p *peer) messagesLost(t msg.Transit, isHello bool) bool {
	if isHello {
		p.wantSequence = 1
		return false
	}

	p.wantSequence++
	valid := p.wantSequence == t.Sequence()
	if !valid {
		p.wantSequence--
	}

	return !valid
}

// setName sets name.
func (p *peer) setName(name string) {
	p.name = name
}

// Header returns a header in headers map
func (p *peer) Header(key string) (value string, ok bool) {
	value, ok = p.headers[key]
	return
}

func (p *peer) Headers() map[string]string {
	return p.headers
}

// Identity returns identity (uuid) of the peer
func (p *peer) Identity() string {
	return p.identity
}

// SetExpired sets PEER_EXPIRED.
func SetExpired(expired time.Duration) {
	optMx.Lock()
	defer optMx.Unlock()

	peerExpired = expired
}

// SetEvasive sets PEER_EVASIVE.
func SetEvasive(evasive time.Duration) {
	optMx.Lock()
	defer optMx.Unlock()

	peerEvasive = evasive
}

// SetPingInterval sets the reap interval used to ping evasive peers.
func SetPingInterval(interval time.Duration) {
	optMx.Lock()
	defer optMx.Unlock()

	reapInterval = interval
}
