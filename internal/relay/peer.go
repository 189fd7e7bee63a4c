package relay

import (
	"context"
	"sync"

	"github.com/xiaot623/solace/internal/protocol"
)

// Peer is one side of the relay: the client stream or the upstream conversation.
type Peer interface {
	Send(ctx context.Context, f protocol.Frame) error
	Receive(ctx context.Context) (protocol.Frame, error)
	Close() error
}

// serialPeer serializes sends so that both relay loops and the finalizer can write to the
// same connection.
type serialPeer struct {
	Peer
	mu sync.Mutex
}

func serialize(p Peer) *serialPeer {
	return &serialPeer{Peer: p}
}

func (p *serialPeer) Send(ctx context.Context, f protocol.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Peer.Send(ctx, f)
}
