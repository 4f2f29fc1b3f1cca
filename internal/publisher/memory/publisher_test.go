package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "results-saved", map[string]string{"url": "https://a.example/"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "results-saved", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "memory-1", msgs[0].ID)

	msgs[0].Topic = "modified"
	require.Equal(t, "results-saved", pub.Messages()[0].Topic, "Messages must return a copy")
}

func TestBoundedPublisherKeepsNewest(t *testing.T) {
	t.Parallel()

	pub := NewBounded(2)
	for i := 0; i < 3; i++ {
		_, err := pub.Publish(context.Background(), "t", i)
		require.NoError(t, err)
	}
	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, 1, msgs[0].Payload)
	require.Equal(t, "memory-3", msgs[1].ID)
}

func TestPublishHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Publish(ctx, "t", nil)
	require.ErrorIs(t, err, context.Canceled)
}
