package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/messaging"
)

// EventReloaded is the type of the message published after a reload.
const EventReloaded = "dataset.reloaded"

const publishTimeout = 5 * time.Second

// ReloadedEvent announces a new dataset snapshot.
type ReloadedEvent struct {
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Version         string    `json:"version"`
	PreviousVersion string    `json:"previous_version,omitempty"`
	Rows            int       `json:"rows"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// NewReloadedEvent describes the transition from previous to current.
func NewReloadedEvent(previous, current *Table) ReloadedEvent {
	evt := ReloadedEvent{
		Type:     EventReloaded,
		Source:   current.Source(),
		Version:  current.Version(),
		Rows:     current.Len(),
		LoadedAt: current.LoadedAt().UTC(),
	}
	if previous != nil {
		evt.PreviousVersion = previous.Version()
	}
	return evt
}

// DecodeReloadedEvent parses a message payload, rejecting other event types.
func DecodeReloadedEvent(payload []byte) (ReloadedEvent, error) {
	var evt ReloadedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return evt, fmt.Errorf("decode dataset event: %w", err)
	}
	if evt.Type != EventReloaded {
		return evt, fmt.Errorf("unexpected event type %q", evt.Type)
	}
	return evt, nil
}

// PublishReloads returns a hook that announces every reload on the bus.
// Publish failures are logged and never fail the load. The publish outlives
// a cancelled request but is bounded by publishTimeout.
func PublishReloads(client messaging.Client, logger *zap.Logger) ReloadHook {
	return func(ctx context.Context, previous, current *Table) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		evt := NewReloadedEvent(previous, current)
		payload, err := json.Marshal(evt)
		if err != nil {
			logger.Error("encode dataset event", zap.Error(err))
			return
		}
		if err := client.Publish(ctx, []byte(evt.Version), payload); err != nil {
			logger.Warn("publish dataset event failed",
				zap.String("topic", client.Topic()),
				zap.String("version", evt.Version),
				zap.Error(err),
			)
		}
	}
}
