package testutil

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/xiaot623/solace/internal/protocol"
)

// PipePeer is an in-memory frame connection. Tests push frames on In and read what the code
// under test sent from Out.
type PipePeer struct {
	In  chan protocol.Frame
	Out chan protocol.Frame

	once   sync.Once
	closed chan struct{}
}

func NewPipePeer() *PipePeer {
	return &PipePeer{
		In:     make(chan protocol.Frame, 16),
		Out:    make(chan protocol.Frame, 64),
		closed: make(chan struct{}),
	}
}

func (p *PipePeer) Send(ctx context.Context, f protocol.Frame) error {
	select {
	case <-p.closed:
		return io.ErrClosedPipe
	default:
	}
	select {
	case p.Out <- f:
		return nil
	case <-p.closed:
		return io.ErrClosedPipe
	}
}

func (p *PipePeer) Receive(ctx context.Context) (protocol.Frame, error) {
	select {
	case f := <-p.In:
		return f, nil
	case <-p.closed:
		return protocol.Frame{}, io.EOF
	}
}

func (p *PipePeer) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// Closed reports whether Close has been called.
func (p *PipePeer) Closed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// Expect reads frames from Out until one of type typ arrives.
func (p *PipePeer) Expect(t *testing.T, typ string) protocol.Frame {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-p.Out:
			if f.Type == typ {
				return f
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s frame", typ)
			return protocol.Frame{}
		}
	}
}
