package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// busyChatRepo appends a message to one chat whenever a later page is read,
// the way live traffic bumps updated_at while a listing is being scanned.
type busyChatRepo struct {
	repository.ChatRepository
	bumpID  string
	filters []repository.ChatFilter
}

func (r *busyChatRepo) List(ctx context.Context, filter repository.ChatFilter) ([]domain.ChatSession, error) {
	r.filters = append(r.filters, filter)
	if filter.Offset > 0 {
		if err := r.AppendMessage(ctx, r.bumpID, domain.ChatMessage{Sender: domain.SenderUser, Body: "still there?"}); err != nil {
			return nil, err
		}
	}
	return r.ChatRepository.List(ctx, filter)
}

func TestStaffListingSurvivesConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.store.AddUser("Ada", "ada@example.com")
	tax := h.store.AddStaff("Tax", "tax@example.com", true, domain.RoleTaxation)

	const total = 2*scanPageSize + 50
	var oldest string
	for i := 0; i < total; i++ {
		chat := h.seedChat(t, user, tax, "GST filing")
		if i == 0 {
			oldest = chat.ID
		}
	}

	busy := &busyChatRepo{ChatRepository: h.store.Chats(), bumpID: oldest}
	chats := NewChatService(ChatDependencies{ChatRepo: busy, HistoryRepo: h.store.ChatHistory(), UserRepo: h.store.Users()})

	listed, err := chats.ListChatsForStaff(ctx, tax, ChatListFilter{Limit: total + 10})
	require.NoError(t, err)
	require.Len(t, listed, total)

	seen := map[string]bool{}
	for _, chat := range listed {
		assert.False(t, seen[chat.ID], "chat %s listed twice", chat.ID)
		seen[chat.ID] = true
	}
	assert.Equal(t, oldest, listed[0].ID, "most recently active chat comes first")

	require.NotEmpty(t, busy.filters)
	for _, filter := range busy.filters {
		assert.True(t, filter.ByCreation)
	}
}
