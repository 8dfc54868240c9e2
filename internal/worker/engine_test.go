package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/config"
	"github.com/Additional-Code/salesboard/internal/messaging"
)

func enabledConfig() config.Config {
	cfg := config.Config{}
	cfg.Messaging.Enabled = true
	cfg.Messaging.Workers.Enabled = true
	cfg.Messaging.Workers.Concurrency = 2
	return cfg
}

func TestEngineDeliversToRegisteredHandler(t *testing.T) {
	client := messaging.NewMemoryClient("dataset.events", 4)
	received := make(chan messaging.Message, 1)
	engine := NewEngine(Params{
		Client: client,
		Logger: zap.NewNop(),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{
			{Topic: "dataset.events", Handler: func(_ context.Context, msg messaging.Message) error {
				received <- msg
				return nil
			}},
			{Topic: "", Handler: nil},
		},
	})
	assert.Equal(t, []string{"dataset.events"}, engine.Topics())

	require.NoError(t, engine.start(context.Background()))
	require.NoError(t, client.Publish(context.Background(), []byte("v1"), []byte(`{}`)))

	select {
	case msg := <-received:
		assert.Equal(t, []byte("v1"), msg.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, engine.stop(ctx))
}

func TestEngineDisabledDoesNotConsume(t *testing.T) {
	engine := NewEngine(Params{
		Client: messaging.NewMemoryClient("dataset.events", 1),
		Logger: zap.NewNop(),
		Config: config.Config{},
	})
	require.NoError(t, engine.start(context.Background()))
	assert.Nil(t, engine.cancel)
	assert.NoError(t, engine.stop(context.Background()))
}

func TestDispatch(t *testing.T) {
	boom := errors.New("boom")
	engine := NewEngine(Params{
		Logger: zap.NewNop(),
		Registrations: []HandlerRegistration{
			{Topic: "fails", Handler: func(context.Context, messaging.Message) error { return boom }},
		},
	})

	assert.NoError(t, engine.dispatch(context.Background(), 0, messaging.Message{Topic: "unknown"}))
	assert.ErrorIs(t, engine.dispatch(context.Background(), 0, messaging.Message{Topic: "fails"}), boom)
}
