package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"swapdesk/conversion"
	"swapdesk/internal/metrics"
	"swapdesk/internal/quotes"
	"swapdesk/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// event is the message pushed to websocket subscribers.
type event struct {
	Type   string               `json:"type"`
	Swap   *conversion.Snapshot `json:"swap,omitempty"`
	Prices *quotes.Status       `json:"prices,omitempty"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected websocket clients. Slow clients miss
// messages instead of blocking the broadcaster.
type Hub struct {
	log      *logger.Log
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
	closed  bool
}

func NewHub(log *logger.Log) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
}

// ServeWS upgrades the request and queues initial as the first message.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial ...event) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &wsClient{id: uuid.New().String(), conn: conn, send: make(chan []byte, sendBuffer)}
	for _, ev := range initial {
		if data, err := json.Marshal(ev); err == nil {
			client.send <- data
		}
	}

	if !h.register(client) {
		conn.Close()
		return nil
	}

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

func (h *Hub) Broadcast(ev event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithComponent("ws_hub").WithError(err).Error("failed to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.send <- data:
			logger.RecordChannelMessage("ws_broadcast", len(data))
		default:
			h.log.WithComponent("ws_hub").WithFields(logger.Fields{"client_id": client.id}).Warn("client buffer full, skipping message")
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
	h.mu.Unlock()
	metrics.SetWebsocketClients(0)
}

func (h *Hub) register(client *wsClient) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[client.id] = client
	n := len(h.clients)
	h.mu.Unlock()

	metrics.SetWebsocketClients(n)
	h.log.WithComponent("ws_hub").WithFields(logger.Fields{"client_id": client.id, "clients": n}).Debug("client connected")
	return true
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	n := len(h.clients)
	h.mu.Unlock()

	metrics.SetWebsocketClients(n)
	h.log.WithComponent("ws_hub").WithFields(logger.Fields{"client_id": client.id, "clients": n}).Debug("client disconnected")
}

// readPump only services control frames; clients have nothing to say.
func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithComponent("ws_hub").WithError(err).Warn("websocket read failed")
			}
			return
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
