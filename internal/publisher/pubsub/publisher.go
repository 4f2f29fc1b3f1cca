// Package pubsub publishes save notifications to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// EventAttribute names the attribute carrying the event type.
const EventAttribute = "event"

type sender interface {
	Send(ctx context.Context, msg *pubsub.Message) (string, error)
	Stop()
}

// Publisher sends JSON payloads to a single topic.
type Publisher struct {
	sender sender
	event  string
}

// New creates a Publisher for topicID on the given client.
func New(client *pubsub.Client, topicID string, event string) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicID == "" {
		return nil, fmt.Errorf("pubsub topic is required")
	}
	return &Publisher{sender: &topicSender{topic: client.Topic(topicID)}, event: event}, nil
}

// Publish marshals the payload to JSON and publishes it. The topic argument is
// ignored; the publisher is bound to one topic at construction.
func (p *Publisher) Publish(ctx context.Context, _ string, payload any) (string, error) {
	if p == nil || p.sender == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := &pubsub.Message{Data: data}
	if p.event != "" {
		msg.Attributes = map[string]string{EventAttribute: p.event}
	}
	id, err := p.sender.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and stops the topic's background goroutines.
func (p *Publisher) Close() {
	if p == nil || p.sender == nil {
		return
	}
	p.sender.Stop()
}

type topicSender struct {
	topic *pubsub.Topic
}

func (s *topicSender) Send(ctx context.Context, msg *pubsub.Message) (string, error) {
	id, err := s.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("get publish result: %w", err)
	}
	return id, nil
}

func (s *topicSender) Stop() {
	s.topic.Stop()
}
