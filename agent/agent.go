package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"collabtext/document"
	"collabtext/edit"
)

// agent owns the notepad. Every mutation happens on the goroutine running
// loop, so local commands and received frames are applied one at a time.
type agent struct {
	id            uuid.UUID
	doc           *document.Document
	hub           *Hub
	store         *Store
	topic         string
	relay         string
	peers         map[string]string // peer id -> ws base URL
	out           io.Writer
	exportTimeout time.Duration

	// dials started for the current topic; cancelled on swi.
	dialCtx     context.Context
	cancelDials context.CancelFunc
}

func (a *agent) loop(ctx context.Context, lines <-chan string, found <-chan peerInfo) error {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				// stdin is gone; keep serving peers until ctx ends.
				lines = nil
				continue
			}
			a.handleLine(ctx, line)
		case f := <-a.hub.Frames():
			a.receive(f)
		case p := <-found:
			a.discovered(ctx, p)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *agent) handleLine(ctx context.Context, line string) {
	cmd, err := parseCommand(line)
	if err != nil {
		fmt.Fprintln(a.out, err)
		return
	}
	if cmd.isEdit() {
		a.applyLocal(edit.Batch{cmd.op})
		return
	}
	switch cmd.name {
	case "see":
		fmt.Fprintf(a.out, "current notepad: %s\n", a.doc)
	case "peers":
		links := a.hub.Links()
		sort.Slice(links, func(i, j int) bool { return links[i].Remote < links[j].Remote })
		fmt.Fprintf(a.out, "%d link(s), %d known peer(s)\n", len(links), len(a.peers))
		for _, l := range links {
			fmt.Fprintf(a.out, "  %s peer=%q topic=%q outbound=%t\n", l.Remote, l.Peer, l.Topic, l.Outbound)
		}
	case "swi":
		a.switchTopic(ctx, cmd.arg)
		fmt.Fprintf(a.out, "Switching to room: %q\n", cmd.arg)
	case "history":
		a.history()
	case "save":
		if err := exportText(cmd.arg, a.doc.Text(), a.exportTimeout); err != nil {
			fmt.Fprintf(a.out, "save failed: %v\n", err)
			return
		}
		fmt.Fprintf(a.out, "saved notepad to %s\n", cmd.arg)
	}
}

// applyLocal applies a locally built batch and publishes it when it applied cleanly.
func (a *agent) applyLocal(b edit.Batch) {
	if _, err := a.doc.ApplyBatch(b); err != nil {
		fmt.Fprintf(a.out, "edit rejected: %v\n", err)
		return
	}
	data := edit.Encode(b)
	a.persist(data)
	if _, err := a.hub.Publish(a.topic, data); err != nil && !errors.Is(err, ErrInsufficientPeers) {
		log.Printf("Publish error: %v", err)
	}
}

// receive decodes and applies a frame from a peer. Failures are logged and
// the frame is dropped; operations applied before a failure stay applied.
func (a *agent) receive(f frame) {
	if f.topic != a.topic {
		log.Printf("Dropping frame from link %s on topic %q, subscribed to %q", f.from, f.topic, a.topic)
		return
	}
	b, err := edit.Decode(f.data)
	if err != nil {
		log.Printf("Rejected frame from link %s: %v", f.from, err)
		return
	}
	fmt.Fprintf(a.out, "Current notepad: %s\n", a.doc)
	n, err := a.doc.ApplyBatch(b)
	if err != nil {
		log.Printf("Frame from link %s applied %d of %d ops: %v", f.from, n, len(b), err)
	}
	if n > 0 {
		a.persist(edit.Encode(b[:n]))
	}
	fmt.Fprintf(a.out, "Updated notepad: %s\n", a.doc)
}

// history prints the journaled frames of the current topic.
func (a *agent) history() {
	if a.store == nil {
		fmt.Fprintln(a.out, "history unavailable: no state file")
		return
	}
	frames, err := a.store.Journal(a.topic)
	if err != nil {
		fmt.Fprintf(a.out, "history failed: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "%d frame(s) on %q\n", len(frames), a.topic)
	for i, f := range frames {
		b, err := edit.Decode(f)
		if err != nil {
			fmt.Fprintf(a.out, "  %d: %v\n", i+1, err)
			continue
		}
		fmt.Fprintf(a.out, "  %d: %v\n", i+1, b)
	}
}

func (a *agent) persist(data []byte) {
	if a.store == nil {
		return
	}
	if err := a.store.Save(a.doc.Text()); err != nil {
		log.Printf("Error saving state: %v", err)
	}
	if _, err := a.store.Append(a.topic, data); err != nil {
		log.Printf("Error journaling frame: %v", err)
	}
}

// discovered records a peer and dials it when this agent is the one
// responsible for the link, so each pair of peers shares one connection.
// With a relay every frame already reaches each peer through it, so direct
// peers are ignored.
func (a *agent) discovered(ctx context.Context, p peerInfo) {
	if p.ID == a.id.String() || a.relay != "" {
		return
	}
	if base, ok := a.peers[p.ID]; ok && base == p.Base {
		return
	}
	a.peers[p.ID] = p.Base
	if a.dials(p.ID) {
		a.dial(ctx, p.Base, p.ID)
	}
}

func (a *agent) dials(peer string) bool {
	return a.id.String() < peer
}

func (a *agent) dial(ctx context.Context, base, peer string) {
	if a.dialCtx == nil {
		a.dialCtx, a.cancelDials = context.WithCancel(ctx)
	}
	dctx, topic := a.dialCtx, a.topic
	go func() {
		if err := connect(dctx, a.hub, base, topic, peer); err != nil {
			log.Printf("Giving up on %s: %v", base, err)
		}
	}()
}

func (a *agent) switchTopic(ctx context.Context, topic string) {
	if a.cancelDials != nil {
		a.cancelDials()
		a.dialCtx, a.cancelDials = nil, nil
	}
	a.topic = topic
	a.hub.DropOutbound()
	a.redial(ctx)
}

func (a *agent) redial(ctx context.Context) {
	if a.relay != "" {
		a.dial(ctx, a.relay, "relay")
	}
	for id, base := range a.peers {
		if a.dials(id) {
			a.dial(ctx, base, id)
		}
	}
}
