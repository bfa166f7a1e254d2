// Command ping is a minimal external collaborator exercising the node
// engine end to end: it joins a group, whispers back on ENTER, and
// shouts back on WHISPER.
package main

import (
	"log"

	"github.com/meshdrift/zre"
)

func main() {
	node, err := zre.New()
	if err != nil {
		log.Fatal(err)
	}

	if err := node.Start(); err != nil {
		log.Fatal(err)
	}
	defer node.Stop()

	node.Join("GLOBAL")
	log.Printf("I: [%s] started\n", node.Uuid())

	for e := range node.Events() {
		switch e.Type() {
		case zre.EventEnter:
			log.Printf("I: [%s] peer entered\n", e.Sender())
			node.Whisper(e.Sender(), []byte("Hello"))

		case zre.EventExit:
			log.Printf("I: [%s] peer exited\n", e.Sender())

		case zre.EventWhisper:
			log.Printf("I: [%s] received ping (WHISPER)\n", e.Sender())
			node.Shout("GLOBAL", []byte("Hello"))

		case zre.EventShout:
			log.Printf("I: [%s] (%s) received ping (SHOUT)\n", e.Sender(), e.Group())
		}
	}
}
