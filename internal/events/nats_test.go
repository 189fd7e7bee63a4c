package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoSigs: true,
		NoLog:  true,
	})
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestNATSPublisher(t *testing.T) {
	ns := runServer(t)

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe("therapy.session.>", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := NewNATSPublisher(ns.ClientURL())
	require.NoError(t, err)
	defer pub.Close()

	err = pub.Publish(context.Background(), SubjectSessionEnded, SessionEvent{
		SessionID: "sess_1",
		OwnerID:   "u1",
		Status:    "ended",
		RecordID:  "rec_1",
		Saved:     true,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, SubjectSessionEnded, msg.Subject)
		var ev SessionEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, "sess_1", ev.SessionID)
		assert.Equal(t, "rec_1", ev.RecordID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestNewNATSPublisherUnreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1")
	assert.Error(t, err)
}
