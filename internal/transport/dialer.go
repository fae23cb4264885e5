package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn a Channel needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a connection to a room.
type Dialer interface {
	Dial(ctx context.Context, room string) (Conn, error)
}

// WSDialer dials rooms at {Base}/ws/chat/{room}/ with a bearer token.
type WSDialer struct {
	Base   string
	Token  string
	Dialer *websocket.Dialer
}

// NewWSDialer accepts an http(s) or ws(s) base URL.
func NewWSDialer(base, token string) *WSDialer {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return &WSDialer{Base: base, Token: token, Dialer: websocket.DefaultDialer}
}

func (d *WSDialer) Dial(ctx context.Context, room string) (Conn, error) {
	u := d.Base + "/ws/chat/" + url.PathEscape(room) + "/"
	h := http.Header{}
	if d.Token != "" {
		h.Set("Authorization", "Bearer "+d.Token)
	}
	conn, resp, err := d.Dialer.DialContext(ctx, u, h)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", u, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return conn, nil
}

var _ Dialer = (*WSDialer)(nil)
