// Package events publishes domain events when a campaign, task or
// presentation reaches a terminal state.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

type Type string

const (
	CampaignFinalized     Type = "campaign.finalized"
	TaskFinalized         Type = "task.finalized"
	PresentationCompleted Type = "presentation.completed"
	PresentationFailed    Type = "presentation.failed"
)

type Event struct {
	Type     Type      `json:"type"`
	UserID   string    `json:"user_id"`
	EntityID string    `json:"entity_id"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// KafkaPublisher writes events as JSON keyed by entity id, so all events
// for one entity land on the same partition.
type KafkaPublisher struct {
	writer  *kgo.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokersCSV, topic string) *KafkaPublisher {
	w := &kgo.Writer{
		Addr:         kgo.TCP(splitCSV(brokersCSV)...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: kgo.RequireOne,
	}

	return &KafkaPublisher{
		writer:  w,
		timeout: 3 * time.Second,
	}
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	msg, err := encode(ev)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(cctx, msg)
}

func encode(ev Event) (kgo.Message, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return kgo.Message{}, err
	}
	return kgo.Message{
		Key:   []byte(ev.EntityID),
		Value: b,
		Time:  ev.At,
	}, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
