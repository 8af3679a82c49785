package ws

import (
	"encoding/json"
	"sync"

	"formpulse/internal/logger"
	"formpulse/internal/metrics"
	"formpulse/internal/model"
)

// Hub manages live-update connections grouped by survey
type Hub struct {
	// Survey -> connections
	surveys map[string]map[*Connection]bool

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	disconnect chan string
	quit       chan struct{}
	stopOnce   sync.Once
}

// Connection represents a WebSocket connection
type Connection struct {
	SurveyID string
	UserID   string
	Send     chan []byte
	Hub      *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	SurveyID string
	Event    *model.LiveEvent
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		surveys:    make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		disconnect: make(chan string, 16),
		quit:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for id := range h.surveys {
				h.dropSurveyLocked(id)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.surveys[conn.SurveyID] == nil {
				h.surveys[conn.SurveyID] = make(map[*Connection]bool)
			}
			h.surveys[conn.SurveyID][conn] = true
			h.mu.Unlock()
			metrics.AddLiveConnections(1)
			logger.Infof("Subscriber %s connected to survey %s", conn.UserID, conn.SurveyID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.surveys[conn.SurveyID]; ok && conns[conn] {
				delete(conns, conn)
				close(conn.Send)
				if len(conns) == 0 {
					delete(h.surveys, conn.SurveyID)
				}
				metrics.AddLiveConnections(-1)
				logger.Infof("Subscriber %s disconnected from survey %s", conn.UserID, conn.SurveyID)
			}
			h.mu.Unlock()

		case surveyID := <-h.disconnect:
			h.mu.Lock()
			h.dropSurveyLocked(surveyID)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Event)
			if err != nil {
				logger.Errorf("encode live event: %v", err)
				continue
			}
			h.mu.RLock()
			for conn := range h.surveys[msg.SurveyID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) dropSurveyLocked(surveyID string) {
	conns := h.surveys[surveyID]
	for conn := range conns {
		close(conn.Send)
		metrics.AddLiveConnections(-1)
	}
	delete(h.surveys, surveyID)
	if len(conns) > 0 {
		logger.Infof("Closed %d subscriber(s) of survey %s", len(conns), surveyID)
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.quit:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.quit:
	}
}

// Subscribers counts the open connections of a survey.
func (h *Hub) Subscribers(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.surveys[surveyID])
}

// BroadcastToSurvey sends an event to every subscriber of a survey (implements service.Broadcaster)
func (h *Hub) BroadcastToSurvey(surveyID string, eventType model.EventType, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Errorf("encode %s payload: %v", eventType, err)
		} else {
			raw = data
		}
	}
	msg := &BroadcastMessage{
		SurveyID: surveyID,
		Event:    &model.LiveEvent{Type: eventType, SurveyID: surveyID, Payload: raw},
	}
	select {
	case h.broadcast <- msg:
	case <-h.quit:
	}
}

// DisconnectSurvey closes every connection of a survey (implements service.Broadcaster)
func (h *Hub) DisconnectSurvey(surveyID string) {
	select {
	case h.disconnect <- surveyID:
	case <-h.quit:
	}
}

// Stop closes all connections and ends the hub goroutine.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}
