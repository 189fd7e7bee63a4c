package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/solace/internal/domain"
)

// RetryDialer retries Open on another dialer, bounding each attempt with a timeout.
type RetryDialer struct {
	next     Dialer
	attempts uint
	delay    time.Duration
	timeout  time.Duration
}

var _ Dialer = (*RetryDialer)(nil)

func WithRetry(next Dialer, attempts uint, delay, timeout time.Duration) *RetryDialer {
	if attempts == 0 {
		attempts = 1
	}
	return &RetryDialer{next: next, attempts: attempts, delay: delay, timeout: timeout}
}

// Open returns the first successful connection. The final error wraps ErrUpstreamUnavailable.
func (d *RetryDialer) Open(ctx context.Context, req OpenRequest) (Conn, error) {
	conn, err := retry.DoWithData(func() (Conn, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		return d.next.Open(attemptCtx, req)
	},
		retry.Attempts(d.attempts),
		retry.Delay(d.delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Str("session_id", req.SessionID).Uint("attempt", n+1).Msg("upstream connect failed, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return conn, nil
}
