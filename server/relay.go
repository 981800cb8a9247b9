package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"collabtext/document"
	"collabtext/edit"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// room is this relay's view of one shared document.
type room struct {
	mu      sync.Mutex
	doc     *document.Document
	batches int
	loaded  bool
}

// Relay forwards frames between every connection of a room, across relay
// instances through the broker. It keeps its own copy of each room's text;
// that copy is informational and never gates forwarding.
type Relay struct {
	broker Broker
	oplog  OpLog // nil disables persistence
	seed   string

	mu    sync.Mutex
	rooms map[string]*room
}

// Snapshot is the JSON body of GET /rooms/{room}.
type Snapshot struct {
	Room    string `json:"room"`
	Text    string `json:"text"`
	Batches int    `json:"batches"`
}

func NewRelay(broker Broker, oplog OpLog, seed string) *Relay {
	return &Relay{
		broker: broker,
		oplog:  oplog,
		seed:   seed,
		rooms:  make(map[string]*room),
	}
}

// Router serves the websocket and snapshot endpoints.
func (rl *Relay) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws/{room}", rl.handleConnections).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{room}", rl.handleSnapshot).Methods(http.MethodGet)
	return r
}

// withRoom runs fn holding the room lock, rebuilding the room from the op log
// the first time it is used.
func (rl *Relay) withRoom(ctx context.Context, name string, fn func(*room) error) error {
	rl.mu.Lock()
	rm, ok := rl.rooms[name]
	if !ok {
		rm = &room{doc: document.New(rl.seed)}
		rl.rooms[name] = rm
	}
	rl.mu.Unlock()

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !rm.loaded {
		if err := rl.replay(ctx, name, rm); err != nil {
			return err
		}
		rm.loaded = true
	}
	return fn(rm)
}

func (rl *Relay) replay(ctx context.Context, name string, rm *room) error {
	if rl.oplog == nil {
		return nil
	}
	frames, err := rl.oplog.Frames(ctx, name)
	if err != nil {
		return err
	}
	for i, f := range frames {
		b, err := edit.Decode(f)
		if err != nil {
			log.Printf("Skipping stored frame %d of room %q: %v", i, name, err)
			continue
		}
		if _, err := rm.doc.ApplyBatch(b); err != nil {
			log.Printf("Stored frame %d of room %q: %v", i, name, err)
		}
		rm.batches++
	}
	log.Printf("Rebuilt room %q from %d stored frames", name, len(frames))
	return nil
}

// accept validates a frame from origin, applies it to the room, stores it and
// hands it to the broker. Frames that do not decode are returned as errors
// and go nowhere.
func (rl *Relay) accept(ctx context.Context, name string, origin uuid.UUID, data []byte) error {
	b, err := edit.Decode(data)
	if err != nil {
		return err
	}
	return rl.withRoom(ctx, name, func(rm *room) error {
		if n, err := rm.doc.ApplyBatch(b); err != nil {
			log.Printf("Room %q applied %d of %d ops from %s: %v", name, n, len(b), origin, err)
		}
		rm.batches++
		if rl.oplog != nil {
			if err := rl.oplog.Append(ctx, name, origin, data); err != nil {
				log.Printf("Error storing frame: %v", err)
			}
		}
		return rl.broker.Publish(ctx, name, envelope{Origin: origin, Frame: data})
	})
}

func (rl *Relay) snapshot(ctx context.Context, name string) (Snapshot, error) {
	var s Snapshot
	err := rl.withRoom(ctx, name, func(rm *room) error {
		s = Snapshot{Room: name, Text: rm.doc.Text(), Batches: rm.batches}
		return nil
	})
	return s, err
}

func (rl *Relay) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s, err := rl.snapshot(r.Context(), mux.Vars(r)["room"])
	if err != nil {
		log.Printf("Snapshot error: %v", err)
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

func (rl *Relay) handleConnections(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["room"]
	log.Printf("New connection for room: %s (peer=%q)", name, r.URL.Query().Get("peer"))

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	origin := uuid.New()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 1. Subscribe to the room on the broker.
	msgs, unsubscribe := rl.broker.Subscribe(ctx, name)
	defer unsubscribe()

	// 2. Forward frames from other connections to this client.
	go func() {
		for e := range msgs {
			if e.Origin == origin {
				continue
			}
			if err := ws.WriteMessage(websocket.BinaryMessage, e.Frame); err != nil {
				log.Printf("Error writing frame to client: %v", err)
				return
			}
		}
	}()

	// 3. Read frames from the client and publish them.
	for {
		kind, msg, err := ws.ReadMessage()
		if err != nil {
			log.Printf("Client disconnected: %v", err)
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		err = rl.accept(ctx, name, origin, msg)
		if errors.Is(err, edit.ErrMalformedLength) || errors.Is(err, edit.ErrUnknownOpcode) {
			log.Printf("Rejecting client %s: %v", origin, err)
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInvalidFramePayloadData, err.Error()),
				time.Now().Add(time.Second))
			return
		}
		if err != nil {
			log.Printf("Error publishing frame: %v", err)
		}
	}
}
