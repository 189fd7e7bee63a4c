package session

import "github.com/xiaot623/solace/internal/domain"

// Event is an input to the session state machine.
type Event string

const (
	EventUpstreamConnected     Event = "upstream_connected"
	EventUpstreamConnectFailed Event = "upstream_connect_failed"
	EventClientClosed          Event = "client_closed"
	EventUpstreamClosed        Event = "upstream_closed"
	EventEndCommand            Event = "end_command"
	EventIdleTimeout           Event = "idle_timeout"
	EventShutdown              Event = "shutdown"
)

// transitions is the complete table; terminal statuses have no outgoing edges.
var transitions = map[domain.SessionStatus]map[Event]domain.SessionStatus{
	domain.SessionStatusInitializing: {
		EventUpstreamConnected:     domain.SessionStatusActive,
		EventUpstreamConnectFailed: domain.SessionStatusInterrupted,
		EventClientClosed:          domain.SessionStatusInterrupted,
		EventEndCommand:            domain.SessionStatusEnded,
		EventIdleTimeout:           domain.SessionStatusInterrupted,
		EventShutdown:              domain.SessionStatusInterrupted,
	},
	domain.SessionStatusActive: {
		EventClientClosed:   domain.SessionStatusInterrupted,
		EventUpstreamClosed: domain.SessionStatusInterrupted,
		EventEndCommand:     domain.SessionStatusEnded,
		EventIdleTimeout:    domain.SessionStatusInterrupted,
		EventShutdown:       domain.SessionStatusInterrupted,
	},
}
