package pubsub

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	msgs    []*pubsub.Message
	err     error
	stopped bool
}

func (f *fakeSender) Send(_ context.Context, msg *pubsub.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.msgs = append(f.msgs, msg)
	return "msg-1", nil
}

func (f *fakeSender) Stop() { f.stopped = true }

func TestPublishMarshalsPayload(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	pub := &Publisher{sender: sender, event: "result_saved"}

	id, err := pub.Publish(context.Background(), "ignored", map[string]any{"url": "https://example.com/"})
	require.NoError(t, err)
	require.Equal(t, "msg-1", id)
	require.Len(t, sender.msgs, 1)
	require.JSONEq(t, `{"url":"https://example.com/"}`, string(sender.msgs[0].Data))
	require.Equal(t, "result_saved", sender.msgs[0].Attributes[EventAttribute])

	pub.Close()
	require.True(t, sender.stopped)
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	var unconfigured *Publisher
	_, err := unconfigured.Publish(context.Background(), "", nil)
	require.Error(t, err)

	pub := &Publisher{sender: &fakeSender{}}
	_, err = pub.Publish(context.Background(), "", make(chan int))
	require.ErrorContains(t, err, "marshal payload")

	boom := errors.New("unavailable")
	pub = &Publisher{sender: &fakeSender{err: boom}}
	_, err = pub.Publish(context.Background(), "", "x")
	require.ErrorIs(t, err, boom)
}

func TestNewValidatesArguments(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "topic", "")
	require.Error(t, err)
}
