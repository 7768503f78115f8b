package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsAllHandlers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	var seen []string
	dispatcher.Subscribe(EventChatCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.ResourceID)
		return errors.New("boom")
	})
	dispatcher.Subscribe(EventChatCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.ResourceID)
		return nil
	})
	dispatcher.Subscribe(EventContactCreated, func(context.Context, Event) error {
		t.Fatal("unexpected handler")
		return nil
	})

	err := dispatcher.Publish(context.Background(), New(EventChatCreated, "c1", Actor{}, nil))
	require.Error(t, err)
	assert.Equal(t, []string{"first:c1", "second:c1"}, seen)
}

func TestNewStampsEvent(t *testing.T) {
	event := New(EventContactReplied, "x", Actor{ID: "s1"}, ContactRepliedPayload{Email: "a@b.c"})
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "s1", event.Actor.ID)
}

func TestPreviewTruncates(t *testing.T) {
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'a'
	}
	assert.Equal(t, "short", Preview("short"))
	assert.Len(t, []rune(Preview(string(long))), 121)
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	_ = rec.Publish(context.Background(), New(EventChatCreated, "1", Actor{}, nil))
	_ = rec.Publish(context.Background(), New(EventChatStatusChanged, "1", Actor{}, nil))
	assert.Equal(t, []EventType{EventChatCreated, EventChatStatusChanged}, rec.Types())
	assert.Len(t, rec.Events(), 2)
}
