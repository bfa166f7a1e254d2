package zre

import (
	"bytes"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/pebbe/zmq4.(*Socket).Recv"),
	)
}

const numOfNodes = 3

var (
	nds     = make([]*Node, numOfNodes)
	engines = make([]*node, numOfNodes)
	headers = make([]map[string]string, numOfNodes)
)

func launchNodes(n, port int, wait time.Duration) {
	rand.Seed(time.Now().UnixNano())

	for i := 0; i < n; i++ {
		nd, eng, err := newGyre()
		if err != nil {
			panic(err)
		}
		nds[i] = nd
		engines[i] = eng

		nd.SetPort(uint16(port))
		nd.SetInterface("lo")
		nd.SetName("node" + strconv.Itoa(i))
		nd.SetHeader("X-HELLO-"+strconv.Itoa(i), "World-"+strconv.Itoa(i))

		headers[i] = map[string]string{
			"X-HELLO-" + strconv.Itoa(i): "World-" + strconv.Itoa(i),
		}

		if err := nd.Start(); err != nil {
			panic(err)
		}
		nd.Join("GLOBAL")
	}

	time.Sleep(wait)
}

func stopNodes(n int) {
	for i := 0; i < n; i++ {
		nds[i].Stop()
		time.Sleep(500 * time.Millisecond)
		nds[i] = nil
		engines[i] = nil
	}
}

func TestTwoNodesDiscoverAndShout(t *testing.T) {
	launchNodes(2, 15660, 1*time.Second)
	defer stopNodes(2)

	nds[0].Shout("GLOBAL", []byte("Hello, World!"))
	time.Sleep(1 * time.Second)

	if addr := nds[1].Endpoint(); addr == "" {
		t.Error("Endpoint() shouldn't return empty string")
	}

	select {
	case event := <-nds[1].Events():
		if event.Type() != EventEnter {
			t.Errorf("expected EventEnter but got %v", event.Type())
		}
		if event.Name() != "node0" {
			t.Errorf("expected node0 but got %s", event.Name())
		}
	case <-time.After(1 * time.Second):
		t.Error("no event received from node1")
	}

	select {
	case event := <-nds[1].Events():
		if event.Type() != EventJoin {
			t.Errorf("expected EventJoin but got %v", event.Type())
		}
	case <-time.After(1 * time.Second):
		t.Error("no event received from node1")
	}

	select {
	case event := <-nds[1].Events():
		if event.Type() != EventShout {
			t.Errorf("expected EventShout but got %v", event.Type())
		}
		if len(event.Msg()) != 1 || !bytes.Equal(event.Msg()[0], []byte("Hello, World!")) {
			t.Errorf("expected 'Hello, World!', got %v", event.Msg())
		}
	case <-time.After(1 * time.Second):
		t.Error("no event received from node1")
	}
}

func TestJoinLeave(t *testing.T) {
	launchNodes(2, 15661, 1*time.Second)
	defer stopNodes(2)

	go func() {
		<-nds[1].Events()
	}()

	<-nds[0].Events()
	nds[0].Leave("GLOBAL")
}

func TestSyncedHeaders(t *testing.T) {
	launchNodes(numOfNodes, 15662, 1*time.Second)
	defer stopNodes(numOfNodes)

	for i := 0; i < numOfNodes; i++ {
		require.Equal(t, headers[i], nds[i].Headers())
	}

	for i := 0; i < numOfNodes; i++ {
		for j := 0; j < numOfNodes; j++ {
			if j == i {
				continue
			}
			id := engines[i].identityString()

			peer, ok := engines[j].peers[id]
			if !ok {
				t.Errorf("node%d and node%d are not synced: node%d has no entry for node%d", i, j, j, i)
				continue
			}
			require.Equal(t, headers[i], peer.headers, "headers of node%d as seen by node%d", i, j)
			require.Equal(t, engines[i].name, peer.name, "name of node%d as stored by node%d", i, j)
		}
	}
}

func TestWhisper(t *testing.T) {
	launchNodes(2, 15663, 1*time.Second)
	defer stopNodes(2)

	<-nds[1].Events() // ENTER
	<-nds[0].Events() // ENTER
	<-nds[0].Events() // JOIN

	id := engines[0].identityString()
	nds[1].Whisper(id, []byte("hi"))

	select {
	case event := <-nds[0].Events():
		if event.Type() != EventWhisper {
			t.Errorf("expected EventWhisper but got %v", event.Type())
		}
		if len(event.Msg()) != 1 || !bytes.Equal(event.Msg()[0], []byte("hi")) {
			t.Errorf("expected 'hi', got %v", event.Msg())
		}
	case <-time.After(1 * time.Second):
		t.Error("no whisper received")
	}
}
