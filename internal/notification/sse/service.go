// Package sse provides Server-Sent Events support for pushing lead changes
// to connected admin dashboards.
package sse

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"solar_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// EventType discriminates the frames the dashboard reacts to.
type EventType string

const (
	EventLeadUpdate     EventType = "LEAD_UPDATE"
	EventLeadDelete     EventType = "LEAD_DELETE"
	EventImportComplete EventType = "LEAD_IMPORT_COMPLETE"
)

// Event is the broadcast payload, serialized as one SSE data frame.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type client struct {
	id     uint64
	events chan Event
	done   chan struct{}
}

// Service is a process-scoped broadcast registry. Every connected client
// receives every event; there is no per-user routing, no replay and no
// durability.
type Service struct {
	mu      sync.RWMutex
	clients map[uint64]*client
	nextID  uint64

	heartbeat time.Duration
	log       *logger.Logger
}

func New(log *logger.Logger) *Service {
	return &Service{
		clients:   make(map[uint64]*client),
		heartbeat: 30 * time.Second,
		log:       log,
	}
}

func (s *Service) addClient() *client {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	c := &client{id: s.nextID, events: make(chan Event, 32), done: make(chan struct{})}
	s.clients[c.id] = c
	return c
}

// removeClient signals the reader loop via the done channel. The events
// channel is never closed: Broadcast may hold a registry snapshot and send
// after removal, and a send on a closed channel would panic the publisher.
func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c.id]; ok {
		delete(s.clients, c.id)
		close(c.done)
	}
}

// Broadcast delivers the event to every connected client. Sends are
// non-blocking: a client whose buffer is full loses the frame rather than
// stalling the publisher.
func (s *Service) Broadcast(event Event) {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case <-c.done:
			continue
		default:
		}
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full, dropping frame", "client", c.id, "type", event.Type)
		}
	}
}

// ClientCount reports the number of open connections.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Handler streams events to one connection until the request context is
// done. Periodic comment frames flush out connections whose peer is gone.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := s.addClient()
		defer s.removeClient(cl)

		c.Writer.Flush()

		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case <-cl.done:
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(c.Writer, ": heartbeat\n\n"); err != nil {
					return
				}
				c.Writer.Flush()
			case event := <-cl.events:
				payload, err := json.Marshal(event)
				if err != nil {
					s.log.Error("sse marshal failed", "error", err)
					continue
				}
				if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
					return
				}
				c.Writer.Flush()
			}
		}
	}
}

// Close drops every connection.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		close(c.done)
	}
	s.clients = make(map[uint64]*client)
}
