// Package sse pushes notifications to connected dashboards over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"labor_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type EventType string

const EventNotification EventType = "notification"

// Event is one pushed message.
type Event struct {
	Type    EventType   `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type client struct {
	inboxes []string
	events  chan Event
}

// Service tracks connections by inbox key ("user:<id>", "role:<name>").
type Service struct {
	mu      sync.RWMutex
	clients map[string][]*client
	log     *logger.Logger
}

func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{clients: make(map[string][]*client), log: log}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inbox := range c.inboxes {
		s.clients[inbox] = append(s.clients[inbox], c)
	}
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inbox := range c.inboxes {
		list := s.clients[inbox]
		for i, cl := range list {
			if cl == c {
				s.clients[inbox] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(s.clients[inbox]) == 0 {
			delete(s.clients, inbox)
		}
	}
}

// Publish sends an event to every connection reading inbox. A full buffer
// drops the event for that connection; the notification is still persisted.
func (s *Service) Publish(inbox string, event Event) {
	s.mu.RLock()
	clients := append([]*client(nil), s.clients[inbox]...)
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full, event dropped", "inbox", inbox, "type", event.Type)
		}
	}
}

// Connections reports how many connections read inbox.
func (s *Service) Connections(inbox string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[inbox])
}

// Handler streams events for the inboxes returned by resolve.
func (s *Service) Handler(resolve func(*gin.Context) ([]string, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		inboxes, ok := resolve(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{inboxes: inboxes, events: make(chan Event, 32)}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"inboxes": inboxes})
		c.Writer.Flush()

		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case event := <-cl.events:
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}
