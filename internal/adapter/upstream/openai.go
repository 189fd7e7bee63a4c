package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/xiaot623/solace/internal/protocol"
)

// OpenAIDialer runs each session as a streamed chat completion conversation.
type OpenAIDialer struct {
	client *openai.Client
	model  string
}

var _ Dialer = (*OpenAIDialer)(nil)

// NewOpenAIDialer creates a dialer. baseURL may be empty to use the default endpoint.
func NewOpenAIDialer(apiKey, baseURL, model string) *OpenAIDialer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIDialer{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Open starts a conversation seeded with the session instructions. No request is made until
// the first text frame.
func (d *OpenAIDialer) Open(ctx context.Context, req OpenRequest) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	connCtx, cancel := context.WithCancel(context.Background())
	return &openAIConn{
		client: d.client,
		model:  d.model,
		history: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Instructions},
		},
		ctx:    connCtx,
		cancel: cancel,
		out:    make(chan protocol.Frame, 256),
		errc:   make(chan error, 1),
	}, nil
}

type openAIConn struct {
	client *openai.Client
	model  string

	// turnMu serializes completions so each one sees the previous reply.
	turnMu  sync.Mutex
	mu      sync.Mutex
	history []openai.ChatCompletionMessage

	ctx    context.Context
	cancel context.CancelFunc
	out    chan protocol.Frame
	errc   chan error
}

func (c *openAIConn) Send(ctx context.Context, f protocol.Frame) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	switch f.Type {
	case protocol.TypeText:
		c.mu.Lock()
		c.history = append(c.history, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: f.Text})
		c.mu.Unlock()
		go c.complete()
		return nil
	case protocol.TypeAudio:
		return c.emit(ctx, protocol.Error(protocol.ErrorCodeUnsupported, "audio is not supported by this upstream"))
	}
	return nil
}

func (c *openAIConn) complete() {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	c.mu.Lock()
	messages := append([]openai.ChatCompletionMessage(nil), c.history...)
	c.mu.Unlock()

	stream, err := c.client.CreateChatCompletionStream(c.ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Stream:   true,
		Messages: messages,
	})
	if err != nil {
		c.fail(fmt.Errorf("create completion stream: %w", err))
		return
	}
	defer stream.Close()

	var buf strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.fail(fmt.Errorf("completion stream: %w", err))
			return
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		buf.WriteString(delta)
		if err := c.emit(c.ctx, protocol.Response(delta, false)); err != nil {
			return
		}
	}

	c.mu.Lock()
	c.history = append(c.history, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: buf.String()})
	c.mu.Unlock()

	_ = c.emit(c.ctx, protocol.Response("", true))
}

func (c *openAIConn) emit(ctx context.Context, f protocol.Frame) error {
	select {
	case c.out <- f:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *openAIConn) fail(err error) {
	if c.ctx.Err() != nil {
		return
	}
	log.Error().Err(err).Msg("upstream completion failed")
	select {
	case c.errc <- err:
	default:
	}
}

func (c *openAIConn) Receive(ctx context.Context) (protocol.Frame, error) {
	select {
	case f := <-c.out:
		return f, nil
	case err := <-c.errc:
		return protocol.Frame{}, err
	case <-c.ctx.Done():
		return protocol.Frame{}, ErrClosed
	case <-ctx.Done():
		return protocol.Frame{}, ctx.Err()
	}
}

func (c *openAIConn) Close() error {
	c.cancel()
	return nil
}
