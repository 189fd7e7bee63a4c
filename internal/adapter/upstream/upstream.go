// Package upstream connects sessions to the conversational AI service.
package upstream

import (
	"context"
	"errors"

	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/protocol"
)

// ErrClosed is returned by Send and Receive after Close.
var ErrClosed = errors.New("upstream connection closed")

// OpenRequest describes the conversation to open.
type OpenRequest struct {
	SessionID    string
	Context      domain.TherapeuticContext
	Instructions string
}

// Conn is one live upstream conversation. Send and Receive may be called from different
// goroutines; Close unblocks a pending Receive.
type Conn interface {
	Send(ctx context.Context, f protocol.Frame) error
	Receive(ctx context.Context) (protocol.Frame, error)
	Close() error
}

// Dialer opens upstream conversations.
type Dialer interface {
	Open(ctx context.Context, req OpenRequest) (Conn, error)
}
