package upstream

import (
	"fmt"
	"time"

	"github.com/xiaot623/solace/internal/config"
)

const retryDelay = 500 * time.Millisecond

// NewDialer builds the dialer for the configured provider. It returns nil when no provider
// is configured.
func NewDialer(cfg config.Upstream, ws config.WebSocket) (Dialer, error) {
	var base Dialer
	switch cfg.Provider {
	case "":
		return nil, nil
	case "mock":
		base = NewMockDialer()
	case "websocket":
		if cfg.URL == "" {
			return nil, fmt.Errorf("websocket upstream requires a URL")
		}
		base = NewWebSocketDialer(cfg.URL, cfg.APIKey, ws.WriteTimeout())
	case "openai":
		base = NewOpenAIDialer(cfg.APIKey, cfg.URL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown upstream provider %q", cfg.Provider)
	}
	return WithRetry(base, cfg.ConnectAttempts, retryDelay, cfg.ConnectTimeout()), nil
}
