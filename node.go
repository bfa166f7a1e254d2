package zre

import (
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	zmq "github.com/pebbe/zmq4"
	"github.com/sirupsen/logrus"

	"github.com/meshdrift/zre/beacon"
	"github.com/meshdrift/zre/zre/msg"
)

const (
	beaconVersion    = 1
	defaultZrePort   = 5670
	beaconSize       = 22
	defaultInterval  = 1000 * time.Millisecond
	inboxChanBuffer  = 10000
)

// node is the single long-running task that owns every mutable piece of
// state for a Gyre participant: its peers, its groups, its inbox, and its
// beacon. Everything else talks to it only through cmds/events.
type node struct {
	events chan *Event
	cmds   chan *cmd

	identity uuid.UUID
	name     string
	endpoint string
	port     int
	bound    bool
	status   byte

	beaconPort int
	interval   time.Duration
	iface      string
	verbose    bool

	beacon *beacon.Beacon
	inbox  *zmq.Socket

	peers      map[string]*peer
	peerGroups map[string]*group
	ownGroups  map[string]*group

	headers map[string]string // Headers advertised in our own HELLO

	inboxChan chan msg.Transit
	log       *logrus.Logger

	terminated bool
}

// newNode allocates a node and spawns its actor goroutine.
func newNode(events chan *Event, cmds chan *cmd) (*node, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	n := &node{
		events:     events,
		cmds:       cmds,
		identity:   id,
		name:       fmt.Sprintf("%.6s", id.String()),
		beaconPort: defaultZrePort,
		interval:   defaultInterval,
		peers:      make(map[string]*peer),
		peerGroups: make(map[string]*group),
		ownGroups:  make(map[string]*group),
		headers:    make(map[string]string),
		log:        logrus.StandardLogger(),
	}

	return n, nil
}

// identityString is the hex UUID string used to key the peer table; it is
// how this node's own identity looks when seen as a peer by someone else.
func (n *node) identityString() string {
	return n.identity.String()
}

// actor is the engine's single cooperatively-scheduled loop: it multiplexes
// the command channel, the peer inbox and the beacon, and runs a reap pass
// once per REAP_INTERVAL.
func (n *node) actor() {
	reapAt := time.After(reapInterval)

	for !n.terminated {
		var inboxChan chan msg.Transit
		var beaconSignals chan *beacon.Signal
		if n.inboxChan != nil {
			inboxChan = n.inboxChan
		}
		if n.beacon != nil {
			beaconSignals = n.beacon.Signals()
		}

		select {
		case c := <-n.cmds:
			n.recvAPI(c)

		case t, ok := <-inboxChan:
			if ok {
				n.recvPeer(t)
			}

		case sig, ok := <-beaconSignals:
			if ok {
				n.recvBeacon(sig)
			}

		case <-reapAt:
			n.reap()
			reapAt = time.After(reapInterval)
		}
	}
}

// recvAPI dispatches one command from the application, per the §4.5 table.
func (n *node) recvAPI(c *cmd) {
	switch c.cmd {
	case cmdUuid:
		c.payload = n.identity.String()
		n.cmds <- c

	case cmdName:
		c.payload = n.name
		n.cmds <- c

	case cmdSetName:
		n.name = c.payload.(string)

	case cmdHeader:
		value, ok := n.headers[c.key]
		if !ok {
			c.err = fmt.Errorf("zre: header %q not set", c.key)
		}
		c.payload = value
		n.cmds <- c

	case cmdHeaders:
		out := make(map[string]string, len(n.headers))
		for k, v := range n.headers {
			out[k] = v
		}
		c.payload = out
		n.cmds <- c

	case cmdSetHeader:
		n.headers[c.key] = c.payload.(string)

	case cmdSetVerbose:
		n.verbose = true
		if n.verbose {
			n.log.SetLevel(logrus.DebugLevel)
		}

	case cmdSetPort:
		n.beaconPort = int(c.payload.(uint16))

	case cmdSetInterval:
		n.interval = c.payload.(time.Duration)

	case cmdSetInterface:
		n.iface = c.payload.(string)

	case cmdEndpoint:
		c.payload = n.endpoint
		n.cmds <- c

	case cmdStart:
		c.err = n.start()
		n.cmds <- c

	case cmdStop:
		n.stop()
		n.cmds <- c

	case cmdJoin:
		n.join(c.key)

	case cmdLeave:
		n.leave(c.key)

	case cmdWhisper:
		n.whisper(c.key, c.payload.([][]byte))

	case cmdShout:
		n.shout(c.key, c.payload.([][]byte))

	case cmdPeers:
		ids := make([]string, 0, len(n.peers))
		for id := range n.peers {
			ids = append(ids, id)
		}
		c.payload = ids
		n.cmds <- c

	case cmdPeersByGroup:
		grp := n.requirePeerGroup(c.key)
		ids := make([]string, 0, len(grp.peers))
		for id := range grp.peers {
			ids = append(ids, id)
		}
		c.payload = ids
		n.cmds <- c

	case cmdPeerEndpoint:
		if p, ok := n.peers[c.key]; ok {
			c.payload = p.endpoint
		} else {
			c.payload = ""
		}
		n.cmds <- c

	case cmdPeerName:
		if p, ok := n.peers[c.key]; ok {
			c.payload = p.name
		} else {
			c.payload = ""
		}
		n.cmds <- c

	case cmdPeerHeader:
		key := c.payload.(string)
		value := ""
		if p, ok := n.peers[c.key]; ok {
			value, _ = p.Header(key)
		}
		c.payload = value
		n.cmds <- c

	case cmdPeerHeaders:
		var out map[string]string
		if p, ok := n.peers[c.key]; ok {
			out = p.Headers()
		}
		c.payload = out
		n.cmds <- c

	case cmdOwnGroups:
		names := make([]string, 0, len(n.ownGroups))
		for name := range n.ownGroups {
			names = append(names, name)
		}
		c.payload = names
		n.cmds <- c

	case cmdPeerGroups:
		names := make([]string, 0, len(n.peerGroups))
		for name := range n.peerGroups {
			names = append(names, name)
		}
		c.payload = names
		n.cmds <- c

	case cmdTerm:
		n.terminated = true

	default:
		n.log.Warnf("zre: unknown command %q", c.cmd)
	}
}

// start binds the inbox to an ephemeral port, starts the beacon advertising
// our identifier and mailbox port, and begins polling inbox traffic.
func (n *node) start() error {
	var err error
	n.inbox, err = zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		return err
	}
	if err = n.inbox.SetRouterHandover(true); err != nil {
		n.log.WithError(err).Debug("zre: ROUTER_HANDOVER unsupported on this libzmq")
	}

	port, err := n.inbox.BindToRandomPort("tcp://*", 49152, 65535)
	if err != nil {
		n.inbox.Close()
		n.inbox = nil
		return err
	}
	n.port = port
	n.bound = true

	hostname := resolveHostname()
	n.endpoint = fmt.Sprintf("tcp://%s:%d", hostname, n.port)

	n.beacon = beacon.New()
	n.beacon.SetPort(n.beaconPort)
	if n.interval > 0 {
		n.beacon.SetInterval(n.interval)
	}
	if n.iface != "" {
		n.beacon.SetInterface(n.iface)
	}

	transmit := encodeBeacon(n.identity, uint16(n.port))
	if err := n.beacon.Publish(transmit); err != nil {
		return err
	}
	n.beacon.Subscribe([]byte("ZRE"))

	n.inboxChan = make(chan msg.Transit, inboxChanBuffer)
	go n.readInbox()

	return nil
}

// readInbox decodes frames off the inbox socket and forwards them to the
// engine loop; it exits once the socket is closed by stop().
func (n *node) readInbox() {
	for {
		t, err := msg.Recv(n.inbox)
		if err != nil {
			close(n.inboxChan)
			return
		}
		n.inboxChan <- t
	}
}

// stop publishes a departure beacon, gives it a moment to egress, and tears
// down the beacon and inbox. It emits STOP to the application and ends the
// engine loop.
func (n *node) stop() {
	if n.beacon != nil {
		departure := encodeBeacon(n.identity, 0)
		n.beacon.Publish(departure)
		time.Sleep(1 * time.Millisecond)
		n.beacon.Close()
		n.beacon = nil
	}

	if n.bound && n.inbox != nil {
		n.inbox.Close()
		n.inbox = nil
		n.bound = false
	}

	n.events <- &Event{eventType: EventStop, sender: n.identity.String(), name: n.name}
	n.terminated = true
}

func (n *node) join(groupName string) {
	if _, ok := n.ownGroups[groupName]; ok {
		return
	}
	n.ownGroups[groupName] = newGroup(groupName)
	n.status++

	m := msg.NewJoin()
	m.Group = groupName
	m.Status = n.status
	for _, p := range n.peers {
		p.send(msg.Clone(m))
	}
}

func (n *node) leave(groupName string) {
	if _, ok := n.ownGroups[groupName]; !ok {
		return
	}
	n.status++

	m := msg.NewLeave()
	m.Group = groupName
	m.Status = n.status
	for _, p := range n.peers {
		p.send(msg.Clone(m))
	}

	delete(n.ownGroups, groupName)
}

func (n *node) whisper(peerID string, content [][]byte) {
	p, ok := n.peers[peerID]
	if !ok {
		n.log.Warnf("zre: WHISPER to unknown peer %s", peerID)
		return
	}
	m := msg.NewWhisper()
	m.Content = content
	p.send(m)
}

func (n *node) shout(groupName string, content [][]byte) {
	grp, ok := n.peerGroups[groupName]
	if !ok {
		n.log.Warnf("zre: SHOUT to unknown group %q", groupName)
		return
	}
	m := msg.NewShout()
	m.Group = groupName
	m.Content = content
	grp.send(m)
}

// recvPeer handles one decoded frame from the inbox, per the §4.5
// peer-frame dispatch table.
func (n *node) recvPeer(t msg.Transit) {
	id := peerIdentity(t.Address())
	p, known := n.peers[id]

	isHello := false
	if h, ok := t.(*msg.Hello); ok {
		isHello = true
		if known {
			if p.ready {
				// Stale reincarnation: the peer restarted with the same id.
				n.removePeer(p)
				known = false
			} else if p.endpoint == n.endpoint {
				return
			}
		}
		if h.Endpoint == n.endpoint {
			// Self-loop: our own beacon reached our own mailbox.
			return
		}
		p = n.requirePeer(id, h.Endpoint)
		p.ready = true
		known = true
	}

	if !known || !p.ready {
		n.log.Debugf("zre: dropping frame from unready peer %s", id)
		return
	}

	if p.messagesLost(t, isHello) {
		n.log.Warnf("zre: messages lost from %s, dropping peer", id)
		n.removePeer(p)
		return
	}

	switch m := t.(type) {
	case *msg.Hello:
		p.setName(m.Name)
		p.headers = m.Headers

		headers := make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			headers[k] = v
		}
		n.events <- &Event{
			eventType: EventEnter,
			sender:    p.identity,
			name:      p.name,
			headers:   headers,
			address:   p.endpoint,
		}

		for _, g := range m.Groups {
			n.joinPeerGroup(p, g)
		}
		p.status = m.Status

	case *msg.Whisper:
		n.events <- &Event{
			eventType: EventWhisper,
			sender:    p.identity,
			name:      p.name,
			msg:       m.Content,
		}

	case *msg.Shout:
		n.events <- &Event{
			eventType: EventShout,
			sender:    p.identity,
			name:      p.name,
			group:     m.Group,
			msg:       m.Content,
		}

	case *msg.Ping:
		p.send(msg.NewPingOk())

	case *msg.PingOk:
		// nothing to do; refresh below already covers liveness

	case *msg.Join:
		n.joinPeerGroup(p, m.Group)
		if m.Status != p.status {
			n.log.Debugf("zre: status mismatch from %s on JOIN %s", id, m.Group)
		}

	case *msg.Leave:
		n.leavePeerGroup(p, m.Group)
		if m.Status != p.status {
			n.log.Debugf("zre: status mismatch from %s on LEAVE %s", id, m.Group)
		}
	}

	p.refresh()
}

// recvBeacon decodes one beacon datagram and requires or removes the
// corresponding peer.
func (n *node) recvBeacon(sig *beacon.Signal) {
	id, port, err := decodeBeacon(sig.Transmit)
	if err != nil {
		n.log.WithError(err).Debug("zre: invalid beacon")
		return
	}

	if id == n.identity.String() {
		return
	}

	if port > 0 {
		endpoint := fmt.Sprintf("tcp://%s:%d", sig.Addr, port)
		p := n.requirePeer(id, endpoint)
		p.refresh()
		return
	}

	if p, ok := n.peers[id]; ok {
		n.removePeer(p)
	}
}

// reap runs the once-per-REAP_INTERVAL sweep: ping evasive peers, expire
// silent ones.
func (n *node) reap() {
	now := time.Now()
	for _, p := range n.peers {
		if now.After(p.expiredAt) {
			n.removePeer(p)
		} else if now.After(p.evasiveAt) && !p.pingPending {
			p.pingPending = true
			p.send(msg.NewPing())
		}
	}
}

// requirePeer is the choke point for peer creation: on a fresh identifier
// it purges any existing peer with the same endpoint (a node that restarted
// on that endpoint under a new identity), creates the peer, and shakes
// hands with a HELLO.
func (n *node) requirePeer(identity, endpoint string) *peer {
	if p, ok := n.peers[identity]; ok {
		return p
	}

	for _, other := range n.peers {
		if other.endpoint == endpoint {
			n.removePeer(other)
		}
	}

	p := newPeer(identity)
	n.peers[identity] = p
	if err := p.connect(n.identity[:], endpoint); err != nil {
		n.log.WithError(err).Warnf("zre: connect to %s failed", endpoint)
	}

	hello := msg.NewHello()
	hello.Endpoint = n.endpoint
	for name := range n.ownGroups {
		hello.Groups = append(hello.Groups, name)
	}
	hello.Status = n.status
	hello.Name = n.name
	for k, v := range n.headers {
		hello.Headers[k] = v
	}
	p.send(hello)

	return p
}

// removePeer emits EXIT, drops the peer from every group, and deletes it
// from the peer table.
func (n *node) removePeer(p *peer) {
	n.events <- &Event{eventType: EventExit, sender: p.identity, name: p.name}

	for _, grp := range n.peerGroups {
		if !grp.leave(p) {
			n.log.Debugf("zre: peer %s not in group %s, nothing to leave", p.identity, grp.name)
		}
	}
	delete(n.peers, p.identity)
	p.destroy()
}

func (n *node) requirePeerGroup(name string) *group {
	grp, ok := n.peerGroups[name]
	if !ok {
		grp = newGroup(name)
		n.peerGroups[name] = grp
	}
	return grp
}

func (n *node) joinPeerGroup(p *peer, name string) *group {
	grp := n.requirePeerGroup(name)
	grp.join(p)
	n.events <- &Event{eventType: EventJoin, sender: p.identity, name: p.name, group: name}
	return grp
}

func (n *node) leavePeerGroup(p *peer, name string) {
	grp := n.requirePeerGroup(name)
	if !grp.leave(p) {
		n.log.Debugf("zre: LEAVE %s from peer %s not a member, nothing to leave", name, p.identity)
		return
	}
	n.events <- &Event{eventType: EventLeave, sender: p.identity, name: p.name, group: name}
}

// peerIdentity strips the 0x01 routing prefix a peer's mailbox identity
// carries and renders the remaining 16 bytes as a UUID string, the key
// used throughout the peer and group tables.
func peerIdentity(address []byte) string {
	raw := address
	if len(raw) > 0 && raw[0] == 1 {
		raw = raw[1:]
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		return string(raw)
	}
	return u.String()
}

func encodeBeacon(id uuid.UUID, port uint16) []byte {
	buf := make([]byte, beaconSize)
	buf[0], buf[1], buf[2] = 'Z', 'R', 'E'
	buf[3] = beaconVersion
	copy(buf[4:20], id[:])
	buf[20] = byte(port >> 8)
	buf[21] = byte(port)
	return buf
}

func decodeBeacon(buf []byte) (id string, port uint16, err error) {
	if len(buf) != beaconSize {
		return "", 0, fmt.Errorf("zre: short beacon (%d bytes)", len(buf))
	}
	if buf[0] != 'Z' || buf[1] != 'R' || buf[2] != 'E' {
		return "", 0, fmt.Errorf("zre: missing ZRE prefix")
	}
	if buf[3] != beaconVersion {
		return "", 0, fmt.Errorf("zre: unsupported beacon version %d", buf[3])
	}
	u, err := uuid.FromBytes(buf[4:20])
	if err != nil {
		return "", 0, err
	}
	port = uint16(buf[20])<<8 | uint16(buf[21])
	return u.String(), port, nil
}

// resolveHostname picks an outward-facing address to advertise in our
// endpoint, falling back to localhost if nothing better is available.
func resolveHostname() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP.String()
		}
	}

	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
				continue
			}
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}
			for _, a := range addrs {
				if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
					return ipnet.IP.String()
				}
			}
		}
	}

	return "127.0.0.1"
}
