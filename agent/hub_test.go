package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(uuid.New())
	go h.Run()
	t.Cleanup(h.Close)
	return h
}

func serveHub(t *testing.T, h *Hub) string {
	t.Helper()
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func waitLinks(t *testing.T, h *Hub, n int) []LinkInfo {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		links := h.Links()
		if len(links) == n {
			return links
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d links, have %d", n, len(links))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func nextFrame(t *testing.T, h *Hub) frame {
	t.Helper()
	select {
	case f := <-h.Frames():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

// linkedHubs returns a hub that dialed another hub on topic.
func linkedHubs(t *testing.T, topic string) (dialer, listener *Hub) {
	t.Helper()
	dialer, listener = startHub(t), startHub(t)
	base := serveHub(t, listener)
	if err := dialer.Dial(context.Background(), base, topic, "listener"); err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitLinks(t, dialer, 1)
	waitLinks(t, listener, 1)
	return dialer, listener
}

func TestHubPublishBothWays(t *testing.T) {
	a, b := linkedHubs(t, "room")

	n, err := a.Publish("room", []byte{1, 'x', 0})
	if err != nil || n != 1 {
		t.Fatalf("publish: n=%d err=%v", n, err)
	}
	f := nextFrame(t, b)
	if f.topic != "room" || !bytes.Equal(f.data, []byte{1, 'x', 0}) {
		t.Fatalf("unexpected frame %+v", f)
	}

	if _, err := b.Publish("room", []byte{0, 0, 2}); err != nil {
		t.Fatalf("publish back: %v", err)
	}
	f = nextFrame(t, a)
	if !bytes.Equal(f.data, []byte{0, 0, 2}) {
		t.Fatalf("unexpected frame %+v", f)
	}
}

func TestHubPublishNoPeers(t *testing.T) {
	h := startHub(t)
	if _, err := h.Publish("room", []byte{0, 0, 0}); !errors.Is(err, ErrInsufficientPeers) {
		t.Fatalf("got %v, want ErrInsufficientPeers", err)
	}

	a, _ := linkedHubs(t, "room")
	if _, err := a.Publish("elsewhere", []byte{0, 0, 0}); !errors.Is(err, ErrInsufficientPeers) {
		t.Fatalf("got %v, want ErrInsufficientPeers for unsubscribed topic", err)
	}
}

func TestHubLinkInfo(t *testing.T) {
	a, b := linkedHubs(t, "room")

	out := a.Links()[0]
	if !out.Outbound || out.Peer != "listener" || out.Topic != "room" {
		t.Fatalf("unexpected outbound link %+v", out)
	}
	in := b.Links()[0]
	if in.Outbound || in.Peer != a.self.String() || in.Topic != "room" {
		t.Fatalf("unexpected inbound link %+v", in)
	}
}

func TestHubDropOutbound(t *testing.T) {
	a, b := linkedHubs(t, "room")
	a.DropOutbound()
	waitLinks(t, a, 0)
	waitLinks(t, b, 0)
}

func TestHubClosed(t *testing.T) {
	h := NewHub(uuid.New())
	go h.Run()
	h.Close()
	if _, err := h.Publish("room", nil); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("got %v, want ErrHubClosed", err)
	}
	if links := h.Links(); links != nil {
		t.Fatalf("got %v, want nil", links)
	}
}

func TestConnectGivesUp(t *testing.T) {
	h := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := connect(ctx, h, "ws://127.0.0.1:1", "room", "nobody"); err == nil {
		t.Fatal("expected dial to fail")
	}
}

func TestHubDialCancelled(t *testing.T) {
	a, b := startHub(t), startHub(t)
	base := serveHub(t, b)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Dial(ctx, base, "room", "b"); err == nil {
		t.Fatal("dial succeeded with a cancelled context")
	}
	if links := a.Links(); len(links) != 0 {
		t.Fatalf("got %d links", len(links))
	}
}
