// Package zre implements the node engine of a decentralized, zero-
// configuration LAN group-messaging fabric: discovery, peer lifecycle,
// group membership, the framed peer protocol and the single-actor
// concurrency model that exposes all of it as an asynchronous event
// stream.
package zre

import (
	"fmt"
	"time"
)

// Node is the application-facing handle to a running node engine. Every
// call crosses into the engine's actor goroutine over an unbuffered
// command channel; until Start is called the node is silent and invisible
// to other nodes on the network.
type Node struct {
	cmds   chan *cmd
	events chan *Event // Receives incoming cluster events/traffic
	uuid   string      // Copy of our uuid
	name   string      // Copy of our name
}

type cmd struct {
	cmd     string
	key     string
	payload interface{}
	err     error // Only on the return
}

const (
	cmdName         = "NAME"
	cmdUuid         = "UUID"
	cmdHeader       = "HEADER"
	cmdHeaders      = "HEADERS"
	cmdSetName      = "SET NAME"
	cmdSetHeader    = "SET HEADER"
	cmdSetVerbose   = "SET VERBOSE"
	cmdSetPort      = "SET PORT"
	cmdSetInterval  = "SET INTERVAL"
	cmdSetInterface = "SET INTERFACE"
	cmdEndpoint     = "ENDPOINT"
	cmdStart        = "START"
	cmdStop         = "STOP"
	cmdJoin         = "JOIN"
	cmdLeave        = "LEAVE"
	cmdWhisper      = "WHISPER"
	cmdShout        = "SHOUT"
	cmdPeers        = "PEERS"
	cmdPeersByGroup = "PEERS BY GROUP"
	cmdPeerEndpoint = "PEER ENDPOINT"
	cmdPeerName     = "PEER NAME"
	cmdPeerHeader   = "PEER HEADER"
	cmdPeerHeaders  = "PEER HEADERS"
	cmdOwnGroups    = "OWN GROUPS"
	cmdPeerGroups   = "PEER GROUPS"
	cmdTerm         = "$TERM"
)

// New creates a new node. Note that until you start the node it is
// silent and invisible to other nodes on the network.
func New() (n *Node, err error) {
	n, _, err = newGyre()
	return
}

// newGyre creates a Node and its backing engine task together; the engine
// is returned as well, for tests that need to poke at internal state.
func newGyre() (*Node, *node, error) {
	g := &Node{
		// Events must never block the engine loop on a slow consumer;
		// cmds must stay unbuffered so the engine's select acts as a lock.
		events: make(chan *Event, 10000),
		cmds:   make(chan *cmd),
	}

	eng, err := newNode(g.events, g.cmds)
	if err != nil {
		return nil, nil, err
	}

	go eng.actor()

	return g, eng, nil
}

// Uuid returns our node UUID, after successful initialization.
func (g *Node) Uuid() (uuid string) {
	if g.uuid != "" {
		return g.uuid
	}

	g.cmds <- &cmd{cmd: cmdUuid}
	out := <-g.cmds
	g.uuid = out.payload.(string)

	return g.uuid
}

// Name returns our node name, after successful initialization. By
// default it is taken from the UUID and shortened.
func (g *Node) Name() (name string) {
	if g.name != "" {
		return g.name
	}

	g.cmds <- &cmd{cmd: cmdName}
	out := <-g.cmds
	g.name = out.payload.(string)

	return g.name
}

// Header returns the value of a header previously set with SetHeader.
func (g *Node) Header(key string) (header string, ok bool) {
	g.cmds <- &cmd{cmd: cmdHeader, key: key}
	out := <-g.cmds

	if out.err != nil {
		return
	}

	return out.payload.(string), true
}

// Headers returns every header we will advertise in HELLO.
func (g *Node) Headers() map[string]string {
	g.cmds <- &cmd{cmd: cmdHeaders}
	out := <-g.cmds

	return out.payload.(map[string]string)
}

// SetName sets the node name; this is provided to other nodes during
// discovery. If you do not set this, the UUID is used as a basis.
func (g *Node) SetName(name string) *Node {
	g.cmds <- &cmd{
		cmd:     cmdSetName,
		payload: name,
	}

	return g
}

// SetHeader sets a node header; headers are provided to other nodes
// during discovery and come in each ENTER event.
func (g *Node) SetHeader(name string, format string, args ...interface{}) *Node {
	payload := fmt.Sprintf(format, args...)
	g.cmds <- &cmd{
		cmd:     cmdSetHeader,
		key:     name,
		payload: payload,
	}

	return g
}

// SetVerbose tells the node to log all traffic as well as major events.
func (g *Node) SetVerbose() *Node {
	g.cmds <- &cmd{
		cmd:     cmdSetVerbose,
		payload: true,
	}

	return g
}

// SetPort sets the ZRE discovery port; defaults to 5670. This lets you
// create independent clusters on the same network.
func (g *Node) SetPort(port uint16) *Node {
	g.cmds <- &cmd{
		cmd:     cmdSetPort,
		payload: port,
	}

	return g
}

// SetInterval sets the ZRE discovery interval. Default is 1000 ms.
func (g *Node) SetInterval(interval time.Duration) *Node {
	g.cmds <- &cmd{
		cmd:     cmdSetInterval,
		payload: interval,
	}

	return g
}

// SetInterface sets the network interface to use for beacons and
// interconnects. If you do not set this, the node chooses one for you; on
// machines with multiple interfaces you should specify which one you want.
func (g *Node) SetInterface(iface string) *Node {
	g.cmds <- &cmd{
		cmd:     cmdSetInterface,
		payload: iface,
	}

	return g
}

// Start starts the node: binds the inbox, begins beaconing, and begins
// discovery and connection. Returns an error if the engine could not
// bind its inbox.
func (g *Node) Start() (err error) {
	g.cmds <- &cmd{
		cmd: cmdStart,
	}
	out := <-g.cmds

	return out.err
}

// Stop signals to other peers that this node is going away. This is
// polite; you can also just drop the node without stopping it.
func (g *Node) Stop() {
	g.cmds <- &cmd{
		cmd: cmdStop,
	}
	<-g.cmds
}

// Endpoint returns our bound inbox endpoint, once started.
func (g *Node) Endpoint() string {
	g.cmds <- &cmd{cmd: cmdEndpoint}
	out := <-g.cmds

	return out.payload.(string)
}

// Join a named group; after joining a group you can send messages to
// the group and all nodes in that group will receive them.
func (g *Node) Join(group string) *Node {
	g.cmds <- &cmd{
		cmd: cmdJoin,
		key: group,
	}
	return g
}

// Leave a group.
func (g *Node) Leave(group string) *Node {
	g.cmds <- &cmd{
		cmd: cmdLeave,
		key: group,
	}
	return g
}

// Events returns the channel of events. An event may be a control event
// (ENTER, EXIT, JOIN, LEAVE, STOP) or data (WHISPER, SHOUT).
func (g *Node) Events() chan *Event {
	return g.events
}

// Whisper sends one or more payload frames to a single peer, identified
// by its UUID string.
func (g *Node) Whisper(peer string, frames ...[]byte) *Node {
	g.cmds <- &cmd{
		cmd:     cmdWhisper,
		key:     peer,
		payload: frames,
	}
	return g
}

// Shout sends one or more payload frames to a named group.
func (g *Node) Shout(group string, frames ...[]byte) *Node {
	g.cmds <- &cmd{
		cmd:     cmdShout,
		key:     group,
		payload: frames,
	}
	return g
}

// Peers returns the UUID strings of every currently known peer.
func (g *Node) Peers() []string {
	g.cmds <- &cmd{cmd: cmdPeers}
	out := <-g.cmds

	return out.payload.([]string)
}

// PeersByGroup returns the UUID strings of peers known to be in group.
func (g *Node) PeersByGroup(group string) []string {
	g.cmds <- &cmd{cmd: cmdPeersByGroup, key: group}
	out := <-g.cmds

	return out.payload.([]string)
}

// PeerEndpoint returns a peer's advertised mailbox endpoint.
func (g *Node) PeerEndpoint(peer string) string {
	g.cmds <- &cmd{cmd: cmdPeerEndpoint, key: peer}
	out := <-g.cmds

	return out.payload.(string)
}

// PeerName returns a peer's public name.
func (g *Node) PeerName(peer string) string {
	g.cmds <- &cmd{cmd: cmdPeerName, key: peer}
	out := <-g.cmds

	return out.payload.(string)
}

// PeerHeader returns a single header value advertised by peer.
func (g *Node) PeerHeader(peer, key string) string {
	g.cmds <- &cmd{cmd: cmdPeerHeader, key: peer, payload: key}
	out := <-g.cmds

	return out.payload.(string)
}

// PeerHeaders returns every header advertised by peer.
func (g *Node) PeerHeaders(peer string) map[string]string {
	g.cmds <- &cmd{cmd: cmdPeerHeaders, key: peer}
	out := <-g.cmds

	if out.payload == nil {
		return nil
	}
	return out.payload.(map[string]string)
}

// OwnGroups returns the groups we have explicitly joined.
func (g *Node) OwnGroups() []string {
	g.cmds <- &cmd{cmd: cmdOwnGroups}
	out := <-g.cmds

	return out.payload.([]string)
}

// PeerGroups returns the union of groups any known peer has joined.
func (g *Node) PeerGroups() []string {
	g.cmds <- &cmd{cmd: cmdPeerGroups}
	out := <-g.cmds

	return out.payload.([]string)
}
