package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var (
	// ErrInsufficientPeers is returned by Publish when no link is subscribed to the topic.
	ErrInsufficientPeers = errors.New("no peers subscribed to topic")
	// ErrHubClosed is returned once the hub has been shut down.
	ErrHubClosed = errors.New("hub closed")
)

const sendBuffer = 256

// frame is a message received from a peer.
type frame struct {
	topic string
	from  uuid.UUID
	data  []byte
}

// link is one websocket connection to another peer or to a relay.
type link struct {
	id       uuid.UUID
	peer     string
	topic    string
	outbound bool
	conn     *websocket.Conn
	send     chan []byte
}

// LinkInfo describes a live link for the `peers` command.
type LinkInfo struct {
	ID       uuid.UUID
	Peer     string
	Topic    string
	Outbound bool
	Remote   string
}

type publication struct {
	topic string
	data  []byte
	done  chan int
}

// Hub maintains the set of active links and broadcasts frames to them.
// All link bookkeeping happens on the run goroutine.
type Hub struct {
	self       uuid.UUID
	links      map[*link]bool
	register   chan *link
	unregister chan *link
	broadcast  chan publication
	drop       chan struct{}
	query      chan chan []LinkInfo
	frames     chan frame
	quit       chan struct{}
	closeOnce  sync.Once
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewHub creates a hub for the peer self. Call Run before use.
func NewHub(self uuid.UUID) *Hub {
	return &Hub{
		self:       self,
		links:      make(map[*link]bool),
		register:   make(chan *link),
		unregister: make(chan *link),
		broadcast:  make(chan publication),
		drop:       make(chan struct{}),
		query:      make(chan chan []LinkInfo),
		frames:     make(chan frame, sendBuffer),
		quit:       make(chan struct{}),
	}
}

// Run processes hub events until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case l := <-h.register:
			h.links[l] = true
			log.Printf("Link %s registered (peer=%q topic=%q outbound=%t). Total links: %d", l.id, l.peer, l.topic, l.outbound, len(h.links))
		case l := <-h.unregister:
			h.remove(l)
		case p := <-h.broadcast:
			n := 0
			for l := range h.links {
				if l.topic != p.topic {
					continue
				}
				select {
				case l.send <- p.data:
					n++
				default:
					log.Printf("Link %s is not keeping up, dropping it", l.id)
					h.remove(l)
				}
			}
			p.done <- n
		case <-h.drop:
			for l := range h.links {
				if l.outbound {
					h.remove(l)
				}
			}
		case reply := <-h.query:
			infos := make([]LinkInfo, 0, len(h.links))
			for l := range h.links {
				infos = append(infos, LinkInfo{
					ID:       l.id,
					Peer:     l.peer,
					Topic:    l.topic,
					Outbound: l.outbound,
					Remote:   l.conn.RemoteAddr().String(),
				})
			}
			reply <- infos
		case <-h.quit:
			for l := range h.links {
				h.remove(l)
			}
			return
		}
	}
}

func (h *Hub) remove(l *link) {
	if _, ok := h.links[l]; ok {
		delete(h.links, l)
		close(l.send)
		log.Printf("Link %s unregistered. Total links: %d", l.id, len(h.links))
	}
}

// Close stops the hub and closes every link.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

func (h *Hub) closed() bool {
	select {
	case <-h.quit:
		return true
	default:
		return false
	}
}

// Frames delivers frames received from any link, in arrival order.
func (h *Hub) Frames() <-chan frame {
	return h.frames
}

// Publish queues data on every link subscribed to topic and returns how many
// links accepted it.
func (h *Hub) Publish(topic string, data []byte) (int, error) {
	if h.closed() {
		return 0, ErrHubClosed
	}
	p := publication{topic: topic, data: data, done: make(chan int, 1)}
	select {
	case h.broadcast <- p:
	case <-h.quit:
		return 0, ErrHubClosed
	}
	n := <-p.done
	if n == 0 {
		return 0, ErrInsufficientPeers
	}
	return n, nil
}

// DropOutbound closes every link this peer dialed. Inbound links stay open.
func (h *Hub) DropOutbound() {
	select {
	case h.drop <- struct{}{}:
	case <-h.quit:
	}
}

// Links returns a snapshot of the live links.
func (h *Hub) Links() []LinkInfo {
	if h.closed() {
		return nil
	}
	reply := make(chan []LinkInfo, 1)
	select {
	case h.query <- reply:
		return <-reply
	case <-h.quit:
		return nil
	}
}

// Handler serves inbound peer links at /ws/{topic}.
func (h *Hub) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws/{topic}", h.serveWs).Methods(http.MethodGet)
	return r
}

func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	h.attach(conn, topic, r.URL.Query().Get("peer"), false)
}

// Dial opens an outbound link to base (ws://host:port) on topic.
func (h *Hub) Dial(ctx context.Context, base, topic, peer string) error {
	u := fmt.Sprintf("%s/ws/%s?peer=%s", base, url.PathEscape(topic), url.QueryEscape(h.self.String()))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	if err := ctx.Err(); err != nil {
		conn.Close()
		return err
	}
	if !h.attach(conn, topic, peer, true) {
		return ErrHubClosed
	}
	return nil
}

func (h *Hub) attach(conn *websocket.Conn, topic, peer string, outbound bool) bool {
	l := &link{
		id:       uuid.New(),
		peer:     peer,
		topic:    topic,
		outbound: outbound,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- l:
	case <-h.quit:
		conn.Close()
		return false
	}
	go l.writePump()
	go l.readPump(h)
	return true
}

func (l *link) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- l:
		case <-h.quit:
		}
		l.conn.Close()
	}()
	for {
		kind, data, err := l.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			log.Printf("Link %s sent a non-binary message, ignoring it", l.id)
			continue
		}
		select {
		case h.frames <- frame{topic: l.topic, from: l.id, data: data}:
		case <-h.quit:
			return
		}
	}
}

func (l *link) writePump() {
	defer l.conn.Close()
	for {
		message, ok := <-l.send
		if !ok {
			l.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		if err := l.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
			log.Printf("Error writing to link %s: %v", l.id, err)
			return
		}
	}
}
