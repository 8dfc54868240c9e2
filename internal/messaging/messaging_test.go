package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/salesboard/internal/config"
)

func TestMemoryClientRoundTrip(t *testing.T) {
	client := NewMemoryClient("dataset.events", 4)
	require.NoError(t, client.Publish(t.Context(), []byte("v1"), []byte(`{"type":"dataset.reloaded"}`)))

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	got := make(chan Message, 1)
	go func() {
		_ = client.Consume(ctx, func(_ context.Context, msg Message) error {
			got <- msg
			return nil
		})
	}()

	select {
	case msg := <-got:
		assert.Equal(t, "dataset.events", msg.Topic)
		assert.Equal(t, "v1", string(msg.Key))
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestMemoryClientPublishRespectsContext(t *testing.T) {
	client := NewMemoryClient("t", 1)
	require.NoError(t, client.Publish(t.Context(), nil, []byte("a")))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(t, client.Publish(ctx, nil, []byte("b")), context.Canceled)
}

func TestMemoryClientDropsWhenFull(t *testing.T) {
	client := NewMemoryClient("t", 2)
	require.NoError(t, client.Publish(t.Context(), nil, []byte("a")))
	require.NoError(t, client.Publish(t.Context(), nil, []byte("b")))

	done := make(chan error, 1)
	go func() { done <- client.Publish(t.Context(), nil, []byte("c")) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrBufferFull)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full buffer")
	}
}

func TestMemoryClientLogsHandlerErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	client := NewMemoryClient("dataset.events", 2).WithLogger(zap.New(core))
	require.NoError(t, client.Publish(t.Context(), []byte("v2"), []byte(`{}`)))
	require.NoError(t, client.Publish(t.Context(), []byte("v3"), []byte(`{}`)))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	handled := make(chan string, 2)
	go func() {
		_ = client.Consume(ctx, func(_ context.Context, msg Message) error {
			handled <- string(msg.Key)
			if string(msg.Key) == "v2" {
				return errors.New("warm failed")
			}
			return nil
		})
	}()

	for range 2 {
		select {
		case <-handled:
		case <-time.After(time.Second):
			t.Fatal("message not consumed")
		}
	}
	cancel()

	entries := logs.FilterMessage("dropping message after handler error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "v2", entries[0].ContextMap()["key"])
}

func TestNewClientDrivers(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Messaging: config.Messaging{Enabled: false, Kafka: config.Kafka{Topic: "dataset.events"}}}

	client, err := NewClient(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "dataset.events", client.Topic())
	assert.NoError(t, client.Publish(t.Context(), nil, nil))

	cfg.Messaging.Enabled = true
	cfg.Messaging.Driver = "memory"
	client, err = NewClient(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryClient{}, client)

	cfg.Messaging.Driver = "carrier-pigeon"
	_, err = NewClient(lc, cfg, zap.NewNop())
	assert.Error(t, err)
}
