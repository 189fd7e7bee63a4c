package upstream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/solace/internal/protocol"
)

// WebSocketDialer connects to an upstream that speaks the session frame protocol over WebSocket.
type WebSocketDialer struct {
	url          string
	apiKey       string
	writeTimeout time.Duration
	dialer       *websocket.Dialer
}

var _ Dialer = (*WebSocketDialer)(nil)

func NewWebSocketDialer(url, apiKey string, writeTimeout time.Duration) *WebSocketDialer {
	return &WebSocketDialer{
		url:          url,
		apiKey:       apiKey,
		writeTimeout: writeTimeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// Open dials the upstream and sends the setup frame.
func (d *WebSocketDialer) Open(ctx context.Context, req OpenRequest) (Conn, error) {
	header := http.Header{}
	if d.apiKey != "" {
		header.Set("Authorization", "Bearer "+d.apiKey)
	}

	ws, _, err := d.dialer.DialContext(ctx, d.url, header)
	if err != nil {
		return nil, fmt.Errorf("dial upstream: %w", err)
	}

	c := &wsConn{conn: ws, writeTimeout: d.writeTimeout}
	tc := req.Context
	setup := protocol.Frame{
		Type:         protocol.TypeSetup,
		SessionID:    req.SessionID,
		Context:      &tc,
		Instructions: req.Instructions,
	}
	if err := c.Send(ctx, setup); err != nil {
		ws.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}
	return c, nil
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *wsConn) Send(ctx context.Context, f protocol.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Receive(ctx context.Context) (protocol.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return protocol.Frame{}, err
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return protocol.Frame{}, err
		}
		f, err := protocol.Decode(data)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed upstream frame")
			continue
		}
		return f, nil
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}
