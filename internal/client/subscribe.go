package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"formpulse/internal/apperr"
	"formpulse/internal/model"
)

// Subscribe opens the live channel of a survey. Each received event yields
// one notification; notifications that arrive while the previous one is
// still unread are coalesced. The channel closes when ctx is done or the
// connection drops.
func (c *Client) Subscribe(ctx context.Context, surveyID string) (<-chan struct{}, error) {
	events, err := c.SubscribeEvents(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range events {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out, nil
}

// SubscribeEvents is Subscribe with the decoded event envelopes.
func (c *Client) SubscribeEvents(ctx context.Context, surveyID string) (<-chan model.LiveEvent, error) {
	const op = "subscribe"
	u, err := c.wsURL("/v1/ws/surveys/" + url.PathEscape(surveyID))
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	conn, resp, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, apperr.FromStatus(op, resp.StatusCode, nil)
		}
		return nil, apperr.Wrap(op, err)
	}

	out := make(chan model.LiveEvent, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(out)
		defer close(done)
		defer conn.Close()
		for {
			var ev model.LiveEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) wsURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if token := c.Token(); token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
