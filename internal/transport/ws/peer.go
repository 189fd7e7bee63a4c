package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/solace/internal/config"
	"github.com/xiaot623/solace/internal/protocol"
)

// peer adapts a client WebSocket connection to the relay's frame interface.
type peer struct {
	conn      *websocket.Conn
	sessionID string
	cfg       config.WebSocket

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newPeer(conn *websocket.Conn, sessionID string, cfg config.WebSocket) *peer {
	p := &peer{
		conn:      conn,
		sessionID: sessionID,
		cfg:       cfg,
		done:      make(chan struct{}),
	}

	conn.SetReadLimit(cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout()))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout()))
		return nil
	})
	return p
}

// keepAlive pings the client until the peer is closed.
func (p *peer) keepAlive() {
	ticker := time.NewTicker(p.cfg.PingInterval())
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(p.cfg.WriteTimeout())
			if err := p.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug().Err(err).Str("session_id", p.sessionID).Msg("ping failed")
				_ = p.Close()
				return
			}
		}
	}
}

func (p *peer) Send(ctx context.Context, f protocol.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	deadline := time.Now().Add(p.cfg.WriteTimeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	p.conn.SetWriteDeadline(deadline)
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive returns the next well-formed frame. Malformed input is answered with an error
// frame and skipped.
func (p *peer) Receive(ctx context.Context) (protocol.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return protocol.Frame{}, err
		}
		msgType, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("session_id", p.sessionID).Msg("websocket read error")
			}
			return protocol.Frame{}, err
		}
		p.conn.SetReadDeadline(time.Now().Add(p.cfg.ReadTimeout()))

		if msgType != websocket.TextMessage {
			p.reject(ctx, "frames must be JSON text messages")
			continue
		}
		f, err := protocol.Decode(data)
		if err != nil {
			p.reject(ctx, "invalid frame: "+err.Error())
			continue
		}
		return f, nil
	}
}

func (p *peer) reject(ctx context.Context, msg string) {
	if err := p.Send(ctx, protocol.Error(protocol.ErrorCodeInvalidFrame, msg)); err != nil {
		log.Debug().Err(err).Str("session_id", p.sessionID).Msg("failed to send error frame")
	}
}

func (p *peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = p.conn.Close()
	})
	return err
}
