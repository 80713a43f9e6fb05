package events

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/harshpreetweb3/insurance-dao/pkg/logger"
)

// Hub streams events to websocket subscribers. It implements Sink, so the
// services publish to it like any other sink.
type Hub struct {
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	upgrader websocket.Upgrader
	log      *logger.Logger
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// NewHub returns a hub with an upgrader that accepts any origin. Origin
// checks belong to the CORS middleware in front of it.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("events.hub")
	}
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Emit fans the event out to every subscriber. Subscribers that cannot
// keep up are dropped.
func (h *Hub) Emit(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.send <- e:
		default:
			delete(h.subs, s)
			close(s.send)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	s := &subscriber{conn: conn, send: make(chan Event, 64)}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(s)
	h.readLoop(s)
}

func (h *Hub) writeLoop(s *subscriber) {
	for e := range s.send {
		if err := s.conn.WriteJSON(e); err != nil {
			break
		}
	}
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.conn.Close()
}

// readLoop drains client frames so pings are answered, and unregisters the
// subscriber when the connection drops.
func (h *Hub) readLoop(s *subscriber) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.send)
	}
	h.mu.Unlock()
}
