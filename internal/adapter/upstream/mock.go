package upstream

import (
	"context"
	"strings"
	"sync"

	"github.com/xiaot623/solace/internal/protocol"
)

// MockDialer opens in-process conversations with canned supportive replies.
type MockDialer struct {
	mu    sync.Mutex
	conns []*MockConn
}

var _ Dialer = (*MockDialer)(nil)

func NewMockDialer() *MockDialer {
	return &MockDialer{}
}

// Open returns a new mock conversation.
func (d *MockDialer) Open(ctx context.Context, req OpenRequest) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &MockConn{
		sessionID: req.SessionID,
		out:       make(chan protocol.Frame, 64),
		done:      make(chan struct{}),
		failed:    make(chan struct{}),
	}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

// Conns returns every conversation opened so far.
func (d *MockDialer) Conns() []*MockConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*MockConn(nil), d.conns...)
}

// MockConn replies to every text or audio frame with a two-part response.
type MockConn struct {
	sessionID string
	out       chan protocol.Frame

	mu       sync.Mutex
	received []protocol.Frame

	closeOnce sync.Once
	done      chan struct{}
	failOnce  sync.Once
	failed    chan struct{}
	failErr   error
}

// Send records f and queues the reply.
func (c *MockConn) Send(ctx context.Context, f protocol.Frame) error {
	select {
	case <-c.done:
		return ErrClosed
	case <-c.failed:
		return c.failErr
	default:
	}

	c.mu.Lock()
	c.received = append(c.received, f)
	c.mu.Unlock()

	var reply string
	switch f.Type {
	case protocol.TypeText:
		reply = cannedReply(f.Text)
	case protocol.TypeAudio:
		reply = "I hear you. Take your time."
	default:
		return nil
	}

	head, tail := splitReply(reply)
	for _, frame := range []protocol.Frame{protocol.Response(head, false), protocol.Response(tail, true)} {
		select {
		case c.out <- frame:
		case <-c.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Receive returns the next queued reply.
func (c *MockConn) Receive(ctx context.Context) (protocol.Frame, error) {
	select {
	case f := <-c.out:
		return f, nil
	case <-c.failed:
		return protocol.Frame{}, c.failErr
	case <-c.done:
		return protocol.Frame{}, ErrClosed
	case <-ctx.Done():
		return protocol.Frame{}, ctx.Err()
	}
}

// Close ends the conversation.
func (c *MockConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// Sever simulates the upstream dropping the connection with err.
func (c *MockConn) Sever(err error) {
	c.failOnce.Do(func() {
		c.failErr = err
		close(c.failed)
	})
}

// Received returns the frames sent to the conversation.
func (c *MockConn) Received() []protocol.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Frame(nil), c.received...)
}

func cannedReply(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "overwhelm"), strings.Contains(lower, "anxious"), strings.Contains(lower, "panic"):
		return "Let's try a breathing exercise"
	case strings.Contains(lower, "sleep"):
		return "Sleep can be hard when your mind is busy. What does your evening usually look like?"
	case strings.Contains(lower, "sad"), strings.Contains(lower, "down"):
		return "That sounds really heavy. I'm glad you're talking about it."
	}
	return "I'm here with you. Tell me more about that."
}

func splitReply(reply string) (string, string) {
	i := strings.Index(reply, " ")
	if i < 0 {
		return reply, ""
	}
	return reply[:i+1], reply[i+1:]
}
