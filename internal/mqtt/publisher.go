package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/observability/metrics"
)

// Publisher turns verdicts into JSON messages under <topic>/<kind>
type Publisher struct {
	client   Client
	topic    string
	instance string
	metrics  *metrics.MQTTMetrics
	now      func() time.Time
}

// NewPublisher creates a Publisher writing below baseTopic. m may be nil.
func NewPublisher(client Client, baseTopic, instance string, m *metrics.MQTTMetrics) *Publisher {
	return &Publisher{
		client:   client,
		topic:    baseTopic,
		instance: instance,
		metrics:  m,
		now:      time.Now,
	}
}

// Topic returns the topic verdicts of kind are published to
func (p *Publisher) Topic(kind string) string {
	return p.topic + "/" + kind
}

// PublishVerdict publishes one analysis result
func (p *Publisher) PublishVerdict(ctx context.Context, kind string, timestamp *int64, flags []string, analysis any) error {
	if flags == nil {
		flags = []string{}
	}

	payload, err := json.Marshal(VerdictDTO{
		Kind:       kind,
		Instance:   p.instance,
		Timestamp:  timestamp,
		AnalyzedAt: p.now().UTC(),
		Flags:      flags,
		Analysis:   analysis,
	})
	if err != nil {
		return errors.New(fmt.Errorf("encoding %s verdict: %w", kind, err)).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}

	if err := p.client.Publish(ctx, p.Topic(kind), payload); err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.IncrementMessagesDelivered(kind)
	}
	return nil
}

// Close disconnects the underlying client
func (p *Publisher) Close() {
	p.client.Disconnect()
}
