package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collector struct {
	mu   sync.Mutex
	seen []string
}

func (c *collector) handle(_ context.Context, event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, event.ResourceID)
	if event.ResourceID == "fail" {
		return errors.New("delivery failed")
	}
	return nil
}

func TestWorkerDrainsQueueOnStop(t *testing.T) {
	c := &collector{}
	w := NewNotificationWorker(c.handle, 8, zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()
	w.Attach(dispatcher)
	w.Start(context.Background())

	for _, id := range []string{"a", "fail", "b"} {
		_ = dispatcher.Publish(context.Background(), events.New(events.EventChatCreated, id, events.Actor{}, nil))
	}
	w.Stop()

	assert.Equal(t, []string{"a", "fail", "b"}, c.seen)
}

func TestWorkerDropsWhenFull(t *testing.T) {
	c := &collector{}
	w := NewNotificationWorker(c.handle, 1, zap.NewNop())

	_ = w.Enqueue(context.Background(), events.New(events.EventContactCreated, "kept", events.Actor{}, nil))
	_ = w.Enqueue(context.Background(), events.New(events.EventContactCreated, "dropped", events.Actor{}, nil))

	w.Start(context.Background())
	w.Stop()
	assert.Equal(t, []string{"kept"}, c.seen)
}

func TestWorkerIgnoresEventsAfterStop(t *testing.T) {
	c := &collector{}
	w := NewNotificationWorker(c.handle, 4, zap.NewNop())
	w.Start(context.Background())
	w.Stop()
	w.Stop()

	assert.NoError(t, w.Enqueue(context.Background(), events.New(events.EventChatCreated, "late", events.Actor{}, nil)))
	assert.Empty(t, c.seen)
}
