package stream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// WebsocketDialer dials the message source over WebSocket.
type WebsocketDialer struct {
	// ReadLimit caps the size of a single frame. Zero keeps the library default.
	ReadLimit int64
	// HTTPHeader is sent with the opening handshake.
	HTTPHeader http.Header
}

// Dial implements Dialer.
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: d.HTTPHeader,
	})
	if err != nil {
		// The library error names the URL; callers log it masked.
		return nil, fmt.Errorf("WebSocket dial: %w", err)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return nil, fmt.Errorf("%w: %v", ErrConnClosed, err)
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
