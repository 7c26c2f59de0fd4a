package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/metric"
	"github.com/c360/widgetflow/natsclient"
)

// DefaultSubjectPrefix is used when NATSBus is given no prefix
const DefaultSubjectPrefix = "widgetflow.events"

var _ Bus = (*NATSBus)(nil)

// NATSBus publishes events as JSON on "<prefix>.pipeline.saved" and
// "<prefix>.pipeline.deleted". Delivery is at-most-once core NATS.
type NATSBus struct {
	client  *natsclient.Client
	prefix  string
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewNATSBus creates a bus over a connected client
func NewNATSBus(client *natsclient.Client, prefix string, logger *slog.Logger, metrics *metric.Metrics) (*NATSBus, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrNoConnection, "NATSBus", "NewNATSBus", "nats client cannot be nil")
	}
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSBus{
		client:  client,
		prefix:  prefix,
		logger:  logger.With("component", "eventbus", "prefix", prefix),
		metrics: metrics,
	}, nil
}

// Subject returns the subject an event type is published on
func (b *NATSBus) Subject(eventType string) string {
	name := strings.TrimPrefix(eventType, "pipeline:")
	return b.prefix + ".pipeline." + name
}

// Publish implements Bus
func (b *NATSBus) Publish(ctx context.Context, ev Event) error {
	err := b.publish(ctx, ev)
	b.metrics.RecordEventPublished(ev.Type, err)
	return err
}

func (b *NATSBus) publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.WrapFatal(err, "NATSBus", "Publish", "marshal event")
	}
	if err := b.client.Publish(ctx, b.Subject(ev.Type), data); err != nil {
		return errors.WrapTransient(err, "NATSBus", "Publish", "publish event")
	}
	return nil
}

// Subscribe implements Bus. Messages that do not decode into a valid event
// are logged and dropped.
func (b *NATSBus) Subscribe(handler Handler) (func(), error) {
	if handler == nil {
		return nil, errors.WrapInvalid(errors.New("handler cannot be nil"), "NATSBus", "Subscribe", "check handler")
	}

	unsubscribe, err := b.client.Subscribe(context.Background(), b.prefix+".pipeline.*", func(ctx context.Context, data []byte) {
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			b.logger.Warn("Dropping undecodable event", "error", err)
			return
		}
		if err := ev.Validate(); err != nil {
			b.logger.Warn("Dropping invalid event", "type", ev.Type, "error", err)
			return
		}
		handler(ctx, ev)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "NATSBus", "Subscribe", "subscribe to events")
	}
	b.metrics.AddEventSubscribers(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := unsubscribe(); err != nil {
				b.logger.Debug("Unsubscribe failed", "error", err)
			}
			b.metrics.AddEventSubscribers(-1)
		})
	}, nil
}
