// Package viewer streams processed frames and the frame rate to browsers over
// WebSocket.
//
// Protocol (JSON text messages):
//
//	server -> client  {"type":"connection","message":"...","timestamp":"RFC3339"}
//	server -> client  {"type":"frame","url":"data:image/png;base64,...","width":640,"height":480}
//	server -> client  {"type":"fps","value":29.8}
//	client -> server  any JSON object; echoed back with "serverTime" added
package viewer

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

//go:embed index.html
var indexHTML []byte

// WelcomeMessage is sent to every client on connect.
const WelcomeMessage = "Connected to Edge Detection Server"

const (
	sendQueue    = 8
	writeTimeout = 5 * time.Second
)

type connectionMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type frameMessage struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type fpsMessage struct {
	Type  string  `json:"type"`
	Value float32 `json:"value"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks connected viewers and fans messages out to them.
type Hub struct {
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

// NewHub returns an empty Hub. A nil logger selects the logrus standard logger.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Handler serves the viewer page on / and the WebSocket on /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexHTML)
	})
	return mux
}

// ServeWS upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"function": "ServeWS",
			"remote":   r.RemoteAddr,
			"error":    err.Error(),
		}).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendQueue)}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.log.WithFields(logrus.Fields{
		"function": "ServeWS",
		"client":   c.id,
		"remote":   r.RemoteAddr,
	}).Info("New client connected")

	go h.writeLoop(c)

	h.enqueue(c, mustJSON(connectionMessage{
		Type:      "connection",
		Message:   WelcomeMessage,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}))
	h.readLoop(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.log.WithFields(logrus.Fields{
			"function": "readLoop",
			"client":   c.id,
		}).Info("Client disconnected")
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.WithFields(logrus.Fields{
				"function": "readLoop",
				"client":   c.id,
				"error":    err.Error(),
			}).Warn("Error processing message")
			continue
		}
		if msg == nil {
			// A JSON null decodes to a nil map.
			msg = map[string]any{}
		}
		h.log.WithFields(logrus.Fields{
			"function": "readLoop",
			"client":   c.id,
			"type":     msg["type"],
		}).Debug("Received client message")
		msg["serverTime"] = h.now().UTC().Format(time.RFC3339)
		h.enqueue(c, mustJSON(msg))
	}
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.WithFields(logrus.Fields{
				"function": "writeLoop",
				"client":   c.id,
				"error":    err.Error(),
			}).Warn("Write failed, dropping client")
			h.unregister(c)
			c.conn.Close()
			// Drain so enqueue never blocks on a dead client.
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// enqueue queues msg for c, dropping it when the client is behind.
func (h *Hub) enqueue(c *client, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.log.WithFields(logrus.Fields{
			"function": "enqueue",
			"client":   c.id,
		}).Debug("Client queue full, message dropped")
	}
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// PublishFrame sends a PNG-encoded frame to every client.
func (h *Hub) PublishFrame(png []byte, width, height int) {
	h.broadcast(mustJSON(frameMessage{
		Type:   "frame",
		URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Width:  width,
		Height: height,
	}))
}

// PublishFPS sends the current frame rate to every client.
func (h *Hub) PublishFPS(v float32) {
	h.broadcast(mustJSON(fpsMessage{Type: "fps", Value: v}))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for id, c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Only fixed message structs and decoded JSON reach here.
		panic(err)
	}
	return data
}
