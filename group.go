package zre

import (
	"github.com/meshdrift/zre/zre/msg"
)

// group is a named set of peers. Two flavors share this shape: the node's
// own groups (joined by the application) and peer groups (the union of
// groups any known peer advertises).
type group struct {
	name  string           // Group name
	peers map[string]*peer // Peers in group
}

// newGroup creates a new group
func newGroup(name string) *group {
	return &group{
		name:  name,
		peers: make(map[string]*peer),
	}
}

// join adds peer to group and bumps its status, so the application can
// detect re-joins.
func (g *group) join(peer *peer) {
	g.peers[peer.identity] = peer
	peer.status++
}

// leave removes peer from group if present. Absent is not an error; it is
// reported to the caller so it can be logged at debug.
func (g *group) leave(peer *peer) bool {
	if _, ok := g.peers[peer.identity]; !ok {
		return false
	}
	delete(g.peers, peer.identity)
	peer.status++
	return true
}

// send fans a message out to every member, each getting its own cloned
// sequence number. No ordering is guaranteed across members.
func (g *group) send(m msg.Transit) {
	for _, peer := range g.peers {
		cloned := msg.Clone(m)
		peer.send(cloned)
	}
}
