//go:build integration

package natsadapter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarEhab007/notification-hub/internal/message"
	"github.com/OmarEhab007/notification-hub/internal/topic"
)

func natsURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://localhost:4222"
	}
	return url
}

func setupAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := Connect(natsURL(t), nil)
	require.NoError(t, err, "failed to connect to NATS")
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAdapter_SendAndStart_RoundTrip(t *testing.T) {
	a := setupAdapter(t)

	ingress := make(chan message.Message, 10)
	require.NoError(t, a.Start(context.Background(), ingress))
	time.Sleep(200 * time.Millisecond)

	m, err := message.NewFromStrings("odometry", "1.0,2.0")
	require.NoError(t, err)
	require.NoError(t, a.Send(context.Background(), m))

	select {
	case got := <-ingress:
		assert.True(t, m.Equal(got))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message over NATS")
	}
}

func TestAdapter_ListChannels_ReflectsObservedSubjects(t *testing.T) {
	a := setupAdapter(t)

	ingress := make(chan message.Message, 10)
	require.NoError(t, a.Start(context.Background(), ingress))
	time.Sleep(200 * time.Millisecond)

	m, err := message.NewFromStrings("alpha", "x")
	require.NoError(t, err)
	require.NoError(t, a.Send(context.Background(), m))

	select {
	case <-ingress:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	channels, err := a.ListChannels(context.Background())
	require.NoError(t, err)

	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.String()
	}
	assert.Contains(t, names, "alpha")
}

func TestAdapter_ConnectFailure(t *testing.T) {
	_, err := Connect("nats://invalid-host:4222", nil)
	assert.Error(t, err)
}

func TestAdapter_SubscribeUnsubscribeAreNoOps(t *testing.T) {
	a := setupAdapter(t)
	assert.NoError(t, a.Subscribe(context.Background(), topic.MustNew("x")))
	assert.NoError(t, a.Unsubscribe(context.Background(), topic.MustNew("x")))
}
