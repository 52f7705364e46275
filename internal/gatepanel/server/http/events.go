package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
	"github.com/autopeer-io/gatepanel/internal/gatepanel/session"
	"github.com/autopeer-io/gatepanel/pkg/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Browsers only send control frames; anything larger is a misbehaving peer.
	maxMessageSize = 4 * 1024

	sendQueueSize = 32
)

// Event types pushed on the event stream.
const (
	EventState     = "state"
	EventStatus    = "status"
	EventError     = "error"
	EventHeartbeat = "heartbeat"
	EventNotice    = "notice"
)

// Event is one message on the event stream. Every event but "notice" carries
// the session state after the change.
type Event struct {
	Type     string             `json:"type"`
	State    *session.State     `json:"state,omitempty"`
	Message  string             `json:"message,omitempty"`
	Liveness model.GateLiveness `json:"liveness,omitempty"`
	Notice   *session.Notice    `json:"notice,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// eventHub fans session notifications out to WebSocket clients. It keeps the
// last broadcast state so it can derive operator notices from each change.
type eventHub struct {
	ctrl Controller

	mu      sync.Mutex
	last    session.State
	clients map[*wsClient]struct{}
}

func newEventHub(ctrl Controller) *eventHub {
	return &eventHub{
		ctrl:    ctrl,
		last:    ctrl.Snapshot(),
		clients: make(map[*wsClient]struct{}),
	}
}

// start subscribes to the session. The returned function undoes it.
func (h *eventHub) start() (stop func()) {
	unsubscribers := []func(){
		h.ctrl.OnStatusChange(func(model.ConnectionStatus) {
			h.publish(Event{Type: EventStatus})
		}),
		h.ctrl.OnError(func(msg string) {
			h.publish(Event{Type: EventError, Message: msg})
		}),
		h.ctrl.OnHeartbeat(func(_ *time.Time, liveness model.GateLiveness) {
			h.publish(Event{Type: EventHeartbeat, Liveness: liveness})
		}),
	}
	return func() {
		for _, u := range unsubscribers {
			u()
		}
	}
}

// refresh broadcasts the current state when it changed outside of a
// session notification, for example after a command was sent.
func (h *eventHub) refresh() {
	h.publish(Event{Type: EventState})
}

func (h *eventHub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.ctrl.Snapshot()
	ev.State = &next
	events := []Event{ev}

	notices := session.Diff(h.last, next)
	if ev.Type == EventError {
		notices = append(notices, session.Notice{Title: "Error", Description: ev.Message, Destructive: true})
	}
	for i := range notices {
		events = append(events, Event{Type: EventNotice, Notice: &notices[i]})
	}
	h.last = next

	for _, e := range events {
		h.broadcastLocked(e)
	}
}

func (h *eventHub) broadcastLocked(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error(err, "Failed to encode event", "type", ev.Type)
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Warn("Event client is not keeping up, dropping it", "remote", c.conn.RemoteAddr().String())
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *eventHub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	st := h.ctrl.Snapshot()
	if data, err := json.Marshal(Event{Type: EventState, State: &st}); err == nil {
		c.send <- data
	}
}

func (h *eventHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

// serveWS upgrades the request and streams events until either side goes away.
func (h *eventHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendQueueSize)}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only watches for the peer going away and answers pings.
func (h *eventHub) readPump(c *wsClient) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *eventHub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
