// Package relay pumps frames between a client stream and the upstream conversation of a session.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/xiaot623/solace/internal/adapter/upstream"
	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/protocol"
	"github.com/xiaot623/solace/internal/session"
	"github.com/xiaot623/solace/internal/therapy"
)

// TerminateFunc is called once when the relay stops on its own, with the event that stopped
// it. It is expected to finalize the session.
type TerminateFunc func(ev session.Event)

// noticeTimeout bounds frames written outside the relay context.
const noticeTimeout = 5 * time.Second

var errNotActive = errors.New("relay is not active")

type submitResult struct {
	text string
	err  error
}

// Relay is the duplex pipe of one session.
type Relay struct {
	sess        *session.Session
	client      *serialPeer
	dialer      upstream.Dialer
	onTerminate TerminateFunc
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce  sync.Once
	closeOnce sync.Once
	event     session.Event

	// forwardMu orders upstream sends with their reply slots.
	forwardMu sync.Mutex

	// mu guards the fields below. Turns are only appended while holding it so that nothing is
	// logged after Stop returns.
	mu       sync.Mutex
	upstream *serialPeer
	stopped  bool
	pending  strings.Builder
	audioIn  bool
	// waiters holds one slot per forwarded message, oldest first. Stream messages and
	// abandoned submits hold nil.
	waiters []chan submitResult
}

var _ session.Link = (*Relay)(nil)

// New creates a relay for sess. It does nothing until Run.
func New(sess *session.Session, client Peer, dialer upstream.Dialer, onTerminate TerminateFunc) *Relay {
	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		sess:        sess,
		client:      serialize(client),
		dialer:      dialer,
		onTerminate: onTerminate,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run opens the upstream conversation and relays frames until the session terminates.
// Cancelling ctx is treated as the client going away.
func (r *Relay) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { r.terminate(session.EventClientClosed) })
	defer stop()

	logger := log.With().Str("session_id", r.sess.ID).Str("owner_id", r.sess.OwnerID).Logger()

	var wg conc.WaitGroup
	defer wg.Wait()

	if r.connect() {
		logger.Info().Msg("relay active")
		wg.Go(r.clientLoop)
		wg.Go(r.upstreamLoop)
	}

	<-r.ctx.Done()
	logger.Info().Str("event", string(r.event)).Msg("relay stopped")
	if r.onTerminate != nil {
		r.onTerminate(r.event)
	}
}

func (r *Relay) connect() bool {
	up, err := r.dialer.Open(r.ctx, upstream.OpenRequest{
		SessionID:    r.sess.ID,
		Context:      r.sess.Context,
		Instructions: therapy.Instructions(r.sess.Context),
	})
	if err != nil {
		if r.ctx.Err() != nil {
			return false
		}
		log.Error().Err(err).Str("session_id", r.sess.ID).Msg("upstream connect failed")
		r.notify(protocol.Error(protocol.ErrorCodeUpstreamError, "upstream service unavailable"))
		r.terminate(session.EventUpstreamConnectFailed)
		return false
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		up.Close()
		return false
	}
	r.upstream = serialize(up)
	r.mu.Unlock()

	if _, ok := r.sess.Fire(session.EventUpstreamConnected); !ok {
		// Ended while dialing.
		r.terminate(session.EventEndCommand)
		return false
	}
	r.sess.Touch(r.now())

	if err := r.client.Send(r.ctx, protocol.Connected(r.sess.ID, r.sess.Context)); err != nil {
		r.terminate(session.EventClientClosed)
		return false
	}
	return true
}

func (r *Relay) clientLoop() {
	for {
		f, err := r.client.Receive(r.ctx)
		if err != nil {
			r.terminate(session.EventClientClosed)
			return
		}
		if r.ctx.Err() != nil {
			return
		}
		r.sess.Touch(r.now())

		switch f.Type {
		case protocol.TypeText, protocol.TypeAudio:
			if msg := validateInput(f); msg != "" {
				r.reply(protocol.Error(protocol.ErrorCodeInvalidFrame, msg))
				continue
			}
			if err := r.forward(r.ctx, f, nil); err != nil {
				if errors.Is(err, errNotActive) {
					return
				}
				log.Warn().Err(err).Str("session_id", r.sess.ID).Msg("upstream send failed")
				r.terminate(session.EventUpstreamClosed)
				return
			}
		case protocol.TypePing:
			r.reply(protocol.Pong())
		case protocol.TypePong:
		case protocol.TypeEnd:
			r.terminate(session.EventEndCommand)
			return
		case protocol.TypeError:
			log.Warn().Str("session_id", r.sess.ID).Str("code", f.Code).Str("message", f.Message).Msg("client reported error")
		default:
			r.reply(protocol.Error(protocol.ErrorCodeUnknownType, "unknown frame type: "+f.Type))
		}
	}
}

func (r *Relay) upstreamLoop() {
	for {
		f, err := r.upstream.Receive(r.ctx)
		if err != nil {
			if r.ctx.Err() == nil {
				log.Warn().Err(err).Str("session_id", r.sess.ID).Msg("upstream closed")
			}
			r.terminate(session.EventUpstreamClosed)
			return
		}
		if r.ctx.Err() != nil {
			return
		}
		r.sess.Touch(r.now())

		switch f.Type {
		case protocol.TypeResponse:
			if err := r.client.Send(r.ctx, f); err != nil {
				r.terminate(session.EventClientClosed)
				return
			}
			r.accumulate(f)
		case protocol.TypeError:
			r.failWaiter(f)
			if err := r.client.Send(r.ctx, f); err != nil {
				r.terminate(session.EventClientClosed)
				return
			}
		case protocol.TypePing:
			if err := r.upstream.Send(r.ctx, protocol.Pong()); err != nil {
				r.terminate(session.EventUpstreamClosed)
				return
			}
		case protocol.TypePong:
		default:
			if err := r.upstream.Send(r.ctx, protocol.Error(protocol.ErrorCodeUnknownType, "unknown frame type: "+f.Type)); err != nil {
				r.terminate(session.EventUpstreamClosed)
				return
			}
		}
	}
}

// reply sends a frame back to the client; a failed send ends the session.
func (r *Relay) reply(f protocol.Frame) {
	if err := r.client.Send(r.ctx, f); err != nil {
		r.terminate(session.EventClientClosed)
	}
}

// notify sends a frame to the client outside the relay context.
func (r *Relay) notify(f protocol.Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), noticeTimeout)
	defer cancel()
	if err := r.client.Send(ctx, f); err != nil {
		log.Debug().Err(err).Str("session_id", r.sess.ID).Str("type", f.Type).Msg("client notice not delivered")
	}
}

func validateInput(f protocol.Frame) string {
	switch f.Type {
	case protocol.TypeText:
		if strings.TrimSpace(f.Text) == "" {
			return "text frame requires text"
		}
	case protocol.TypeAudio:
		if f.AudioData == "" {
			return "audio frame requires audioData"
		}
	}
	return ""
}

// forward logs f as a user turn, reserves its reply slot for w and sends it upstream.
// w is nil when nobody waits for the reply.
func (r *Relay) forward(ctx context.Context, f protocol.Frame, w chan submitResult) error {
	r.forwardMu.Lock()
	defer r.forwardMu.Unlock()

	turn := domain.Turn{Role: domain.RoleUser, Content: f.Text}
	if f.Type == protocol.TypeAudio {
		turn.AudioRef = audioRef(f.MimeType, f.AudioData)
	}

	r.mu.Lock()
	if r.stopped || r.upstream == nil {
		r.mu.Unlock()
		return errNotActive
	}
	r.waiters = append(r.waiters, w)
	r.appendLocked(turn)
	up := r.upstream
	r.mu.Unlock()

	return up.Send(ctx, f)
}

// nextWaiterLocked pops the oldest reply slot. It returns nil for slots nobody waits on.
func (r *Relay) nextWaiterLocked() chan submitResult {
	if len(r.waiters) == 0 {
		return nil
	}
	w := r.waiters[0]
	r.waiters = r.waiters[1:]
	return w
}

func (r *Relay) accumulate(f protocol.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	r.pending.WriteString(f.Text)
	if f.AudioData != "" {
		r.audioIn = true
	}
	if !f.TurnComplete {
		return
	}

	text := r.flushLocked()
	if w := r.nextWaiterLocked(); w != nil {
		w <- submitResult{text: text}
	}
}

// flushLocked appends the pending assistant response as one turn.
func (r *Relay) flushLocked() string {
	text := r.pending.String()
	turn := domain.Turn{Role: domain.RoleAssistant, Content: text}
	if r.audioIn {
		turn.AudioRef = "audio response"
	}
	if text != "" || r.audioIn {
		r.appendLocked(turn)
	}
	r.pending.Reset()
	r.audioIn = false
	return text
}

func (r *Relay) appendLocked(turn domain.Turn) {
	if r.stopped {
		return
	}
	if _, err := r.sess.Log.Append(turn); err != nil {
		log.Warn().Err(err).Str("session_id", r.sess.ID).Str("role", string(turn.Role)).Msg("failed to log turn")
	}
}

func audioRef(mimeType, data string) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return fmt.Sprintf("%s;%d bytes", mimeType, len(data)*3/4)
}

// terminate stops the relay, recording ev if it is the first reason.
func (r *Relay) terminate(ev session.Event) {
	r.stopOnce.Do(func() {
		r.event = ev

		r.mu.Lock()
		r.flushLocked()
		r.stopped = true
		waiters := r.waiters
		r.waiters = nil
		up := r.upstream
		r.mu.Unlock()

		for _, w := range waiters {
			if w == nil {
				continue
			}
			w <- submitResult{err: fmt.Errorf("%w: session %s is no longer active", domain.ErrConflict, r.sess.ID)}
		}
		r.cancel()
		if up != nil {
			if err := up.Close(); err != nil {
				log.Debug().Err(err).Str("session_id", r.sess.ID).Msg("upstream close")
			}
		}
	})
}

// Stop halts forwarding and closes the upstream conversation.
func (r *Relay) Stop() {
	r.terminate(session.EventShutdown)
}

// Close sends notice to the client and closes the client stream.
func (r *Relay) Close(notice protocol.Frame) error {
	r.Stop()
	var err error
	r.closeOnce.Do(func() {
		if notice.Type != "" {
			r.notify(notice)
		}
		err = r.client.Close()
	})
	return err
}

// Submit forwards a message outside the client stream and waits for the completed reply.
func (r *Relay) Submit(ctx context.Context, f protocol.Frame) (string, error) {
	if msg := validateInput(f); msg != "" {
		return "", fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}

	r.sess.Touch(r.now())
	w := make(chan submitResult, 1)
	if err := r.forward(ctx, f, w); err != nil {
		if errors.Is(err, errNotActive) {
			return "", fmt.Errorf("%w: session %s is not active", domain.ErrConflict, r.sess.ID)
		}
		r.terminate(session.EventUpstreamClosed)
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	select {
	case res := <-w:
		return res.text, res.err
	case <-ctx.Done():
		r.abandonWaiter(w)
		return "", fmt.Errorf("%w: no response from upstream: %v", domain.ErrUpstreamUnavailable, ctx.Err())
	}
}

// failWaiter resolves the oldest submit with an upstream error frame.
func (r *Relay) failWaiter(f protocol.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.nextWaiterLocked()
	if w == nil {
		return
	}
	w <- submitResult{err: fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, f.Message)}
}

// abandonWaiter keeps the slot of a submit that gave up so later replies stay matched.
func (r *Relay) abandonWaiter(w chan submitResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.waiters {
		if c == w {
			r.waiters[i] = nil
			return
		}
	}
}
