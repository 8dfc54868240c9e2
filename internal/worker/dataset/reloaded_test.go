package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/config"
	datasetpkg "github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/messaging"
)

type fakeWarmer struct {
	calls int
	err   error
}

func (w *fakeWarmer) Warm(context.Context) error {
	w.calls++
	return w.err
}

func testConfig() config.Config {
	return config.Config{Messaging: config.Messaging{Kafka: config.Kafka{Topic: "salesboard.dataset"}}}
}

func reloadedMessage(t *testing.T) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(datasetpkg.ReloadedEvent{
		Type:     datasetpkg.EventReloaded,
		Source:   "file",
		Version:  "v2",
		Rows:     40,
		LoadedAt: time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return messaging.Message{Topic: "salesboard.dataset", Value: payload}
}

func TestReloadedHandlerWarms(t *testing.T) {
	warmer := &fakeWarmer{}
	reg := NewReloadedHandler(warmer, zap.NewNop(), testConfig())
	assert.Equal(t, "salesboard.dataset", reg.Topic)

	require.NoError(t, reg.Handler(context.Background(), reloadedMessage(t)))
	assert.Equal(t, 1, warmer.calls)
}

func TestReloadedHandlerRejectsOtherEvents(t *testing.T) {
	warmer := &fakeWarmer{}
	reg := NewReloadedHandler(warmer, zap.NewNop(), testConfig())

	err := reg.Handler(context.Background(), messaging.Message{Value: []byte(`{"type":"order.created"}`)})
	assert.Error(t, err)
	assert.Zero(t, warmer.calls)
}

func TestReloadedHandlerSurfacesWarmupFailure(t *testing.T) {
	warmer := &fakeWarmer{err: errors.New("cache down")}
	reg := NewReloadedHandler(warmer, zap.NewNop(), testConfig())

	assert.EqualError(t, reg.Handler(context.Background(), reloadedMessage(t)), "cache down")
}
