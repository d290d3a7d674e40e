package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veriseal/pkg/domain"
	audit "veriseal/pkg/platform/audit"
	"veriseal/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	publisherID := id.PublisherID(uuid.New())
	event := audit.Event{
		Publisher: publisherID,
		Action:    string(audit.EventCertificateIssued),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), publisherID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCertificateIssued), events[0].Action)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	publisherID := id.PublisherID(uuid.New())
	event := audit.Event{
		Publisher: publisherID,
		Action:    string(audit.EventBatchCompleted),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.List(context.Background(), publisherID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventBatchCompleted), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	publisherID := id.PublisherID(uuid.New())

	for range 10 {
		event := audit.Event{
			Publisher: publisherID,
			Action:    string(audit.EventCertificateIssued),
		}
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.ListByPublisher(context.Background(), publisherID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	publisherID := id.PublisherID(uuid.New())

	// Flood a tiny buffer with concurrent writes; Emit must never block or
	// error even when events are dropped.
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := audit.Event{
				Publisher: publisherID,
				Action:    string(audit.EventCertificateIssued),
			}
			assert.NoError(t, pub.Emit(context.Background(), event))
		}()
	}
	wg.Wait()
}
