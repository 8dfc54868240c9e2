package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/config"
)

const memoryBuffer = 64

// Message represents a message consumed from the bus.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes an inbound message.
type Handler func(context.Context, Message) error

// Client is the pluggable messaging abstraction. Dataset reload events are
// published by the API process and consumed by the worker process.
type Client interface {
	Publish(ctx context.Context, key []byte, value []byte) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Module wires the messaging client.
var Module = fx.Provide(NewClient)

// noopClient is used when messaging is disabled.
type noopClient struct {
	topic string
}

func (n noopClient) Publish(context.Context, []byte, []byte) error { return nil }
func (n noopClient) Consume(ctx context.Context, handler Handler) error {
	<-ctx.Done()
	return ctx.Err()
}
func (n noopClient) Topic() string { return n.topic }

// MemoryClient delivers messages in-process over a buffered channel. Each
// message is handed to exactly one consumer.
type MemoryClient struct {
	topic  string
	ch     chan Message
	logger *zap.Logger
}

// NewMemoryClient builds an in-process bus holding up to buffer undelivered messages.
func NewMemoryClient(topic string, buffer int) *MemoryClient {
	if buffer <= 0 {
		buffer = 1
	}
	return &MemoryClient{topic: topic, ch: make(chan Message, buffer), logger: zap.NewNop()}
}

// WithLogger sets the logger used to report handler failures.
func (m *MemoryClient) WithLogger(logger *zap.Logger) *MemoryClient {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// ErrBufferFull is returned by MemoryClient.Publish when no consumer drained
// the bus. The message is dropped.
var ErrBufferFull = errors.New("memory bus buffer full")

// Publish never blocks: a full buffer drops the message with ErrBufferFull.
func (m *MemoryClient) Publish(ctx context.Context, key []byte, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{
		Topic: m.topic,
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
		Time:  time.Now().UTC(),
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Consume hands messages to handler until ctx is done. Failed messages are
// logged and dropped.
func (m *MemoryClient) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-m.ch:
			if err := handler(ctx, msg); err != nil {
				m.logger.Warn("dropping message after handler error",
					zap.String("topic", msg.Topic),
					zap.ByteString("key", msg.Key),
					zap.Error(err),
				)
			}
		}
	}
}

func (m *MemoryClient) Topic() string { return m.topic }

// NewClient builds a messaging client based on configuration.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	if !cfg.Messaging.Enabled || cfg.Messaging.Driver == "noop" {
		logger.Info("messaging disabled; using noop client")

		return noopClient{topic: cfg.Messaging.Kafka.Topic}, nil
	}

	switch cfg.Messaging.Driver {
	case "memory":
		logger.Info("messaging uses in-process memory bus", zap.String("topic", cfg.Messaging.Kafka.Topic))

		return NewMemoryClient(cfg.Messaging.Kafka.Topic, memoryBuffer).WithLogger(logger), nil
	case "kafka":
		return newKafkaClient(lc, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
}
