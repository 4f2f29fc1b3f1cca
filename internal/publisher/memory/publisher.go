// Package memory keeps save notifications in process. It backs the dashboard when
// no Pub/Sub topic is configured and doubles as a test recorder.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Message captures one publish call.
type Message struct {
	ID      string
	Topic   string
	Payload any
}

// Publisher records published payloads, keeping at most limit of the newest ones.
type Publisher struct {
	mu       sync.RWMutex
	limit    int
	seq      int
	messages []Message
}

// New returns an unbounded Publisher.
func New() *Publisher {
	return &Publisher{}
}

// NewBounded returns a Publisher that retains only the newest limit messages.
func NewBounded(limit int) *Publisher {
	return &Publisher{limit: limit}
}

// Publish records the payload and returns a sequential id.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("memory-%d", p.seq)
	p.messages = append(p.messages, Message{ID: id, Topic: topic, Payload: payload})
	if p.limit > 0 && len(p.messages) > p.limit {
		p.messages = append([]Message(nil), p.messages[len(p.messages)-p.limit:]...)
	}
	return id, nil
}

// Messages returns a copy of the retained messages, oldest first.
func (p *Publisher) Messages() []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}
