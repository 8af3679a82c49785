package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"formpulse/internal/apperr"
	"formpulse/internal/logger"
	"formpulse/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Owners authenticate with a token, browsers on other origins included.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades owner connections to a survey's live channel
type Handler struct {
	hub       *Hub
	authSvc   *service.AuthService
	surveySvc *service.SurveyService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService, surveySvc *service.SurveyService) *Handler {
	return &Handler{
		hub:       hub,
		authSvc:   authSvc,
		surveySvc: surveySvc,
	}
}

// SurveyWS handles GET /v1/ws/surveys/{surveyId}. Only the survey owner
// may subscribe; the token comes from the query string or a bearer header.
func (h *Handler) SurveyWS(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	userID, err := h.authorize(r, surveyID)
	if err != nil {
		status := apperr.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			logger.WithField("survey", surveyID).WithError(err).Error("authorize live channel")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(apperr.ToBody(err))
		return
	}

	socket, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithField("survey", surveyID).WithError(err).Warn("upgrade live channel")
		return
	}

	conn := &Connection{
		SurveyID: surveyID,
		UserID:   userID,
		Send:     make(chan []byte, sendBuffer),
		Hub:      h.hub,
	}
	h.hub.Register(conn)

	go conn.pushEvents(socket)
	go conn.awaitClose(socket)
}

func (h *Handler) authorize(r *http.Request, surveyID string) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			token = strings.TrimSpace(auth[7:])
		}
	}
	if token == "" {
		return "", apperr.ErrAuthRequired
	}

	claims, err := h.authSvc.ValidateToken(r.Context(), token)
	if err != nil {
		return "", err
	}
	if _, err := h.surveySvc.Get(r.Context(), claims.UserID, surveyID); err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// awaitClose consumes control frames until the peer goes away. Subscribers
// never send data.
func (c *Connection) awaitClose(socket *websocket.Conn) {
	defer func() {
		c.Hub.Unregister(c)
		socket.Close()
	}()

	socket.SetReadLimit(maxMessageSize)
	socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := socket.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf("live channel of survey %s dropped: %v", c.SurveyID, err)
			}
			return
		}
	}
}

// pushEvents writes queued events as separate text frames and pings the
// peer while idle. A closed Send channel ends the session with a close frame.
func (c *Connection) pushEvents(socket *websocket.Conn) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		socket.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				socket.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "survey closed"))
				return
			}
			if err := socket.WriteMessage(websocket.TextMessage, event); err != nil {
				return
			}

		case <-ping.C:
			if err := socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
