package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"swarmnode/core"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSClient struct {
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]bool
	mu            sync.Mutex
}

// WSHub fans out DownloadJob progress to subscribed clients. Unlike a
// generic pub/sub bus it knows the job registry's shape: a client that
// subscribes to a job already in flight is caught up with one immediate
// snapshot instead of waiting for the next broadcast tick.
type WSHub struct {
	clients    map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan *WSMessage
	mu         sync.RWMutex

	jobs *core.JobRegistry
}

// WSMessage is the only message shape this hub ever emits: a job's progress
// snapshot, keyed by job ID.
type WSMessage struct {
	JobID string                `json:"job_id"`
	Type  string                `json:"type"`
	Data  core.ProgressSnapshot `json:"data"`
}

func NewWSHub(jobs *core.JobRegistry) *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan *WSMessage, 256),
		jobs:       jobs,
	}
}

func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.mu.Lock()
				if message.JobID == "" || client.subscriptions[message.JobID] {
					select {
					case client.send <- encodeMessage(message):
					default:
						close(client.send)
						delete(h.clients, client)
					}
				}
				client.mu.Unlock()
			}
			h.mu.RUnlock()
		}
	}
}

func (h *WSHub) BroadcastJobUpdate(jobID string, snap core.ProgressSnapshot) {
	h.broadcast <- &WSMessage{
		JobID: jobID,
		Type:  "job_update",
		Data:  snap,
	}
}

// sendSnapshot pushes job's current progress directly to one client,
// bypassing the broadcast channel. Used when a client subscribes to a job
// that is already in flight, so it isn't left waiting for the next tick.
func (h *WSHub) sendSnapshot(c *WSClient, jobID string) {
	if h.jobs == nil {
		return
	}
	job, ok := h.jobs.Get(jobID)
	if !ok {
		return
	}
	msg := &WSMessage{JobID: jobID, Type: "job_update", Data: job.Progress.Snapshot()}
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case c.send <- encodeMessage(msg):
	default:
	}
}

func encodeMessage(msg *WSMessage) []byte {
	data, _ := json.Marshal(msg)
	return data
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &WSClient{
		conn:          conn,
		send:          make(chan []byte, 256),
		subscriptions: make(map[string]bool),
	}

	s.Hub.register <- client

	go client.writePump()
	go client.readPump(s.Hub)
}

func (c *WSClient) readPump(hub *WSHub) {
	defer func() {
		hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg struct {
			Action string `json:"action"`
			JobID  string `json:"job_id"`
		}

		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.mu.Lock()
		switch msg.Action {
		case "subscribe":
			c.subscriptions[msg.JobID] = true
		case "unsubscribe":
			delete(c.subscriptions, msg.JobID)
		}
		c.mu.Unlock()

		if msg.Action == "subscribe" {
			hub.sendSnapshot(c, msg.JobID)
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) registerWebSocketRoutes(api *gin.RouterGroup) {
	api.GET("/ws/downloads", s.handleWebSocket)
}
