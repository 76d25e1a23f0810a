package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestNATSPublisher_Publish(t *testing.T) {
	server := startTestNATSServer(t)

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	msgs, err := sub.SubscribeSync("timing.>")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := Connect(server.ClientURL(), "timing", nil)
	require.NoError(t, err)
	defer pub.Close()

	reward := 1
	require.NoError(t, pub.Publish(context.Background(), Event{
		Type:          TypeConfirmed,
		ItemID:        "med-1",
		Date:          "2026-10-19",
		Offset:        40,
		SuggestedTime: "08:40 AM",
		Reward:        &reward,
	}))

	msg, err := msgs.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "timing.confirmed", msg.Subject)

	var got Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Time.IsZero())
	assert.Equal(t, "med-1", got.ItemID)
	require.NotNil(t, got.Reward)
	assert.Equal(t, 1, *got.Reward)
}

func TestNATSPublisher_KeepsExplicitID(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	msgs, err := nc.SubscribeSync("custom.reset")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	pub := NewNATSPublisher(nc, "custom", nil)
	defer pub.Close()

	require.NoError(t, pub.Publish(context.Background(), Event{ID: "fixed", Type: TypeReset, ItemID: "x"}))

	msg, err := msgs.NextMsg(2 * time.Second)
	require.NoError(t, err)
	var got Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "fixed", got.ID)
	assert.Nil(t, got.Reward)
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	server := startTestNATSServer(t)
	pub, err := Connect(server.ClientURL(), "timing", nil)
	require.NoError(t, err)
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Publish(ctx, Event{Type: TypeDecided}), context.Canceled)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "timing", nil)
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{Type: TypeDecided}))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "timing.decided", Subject("timing", TypeDecided))
}
