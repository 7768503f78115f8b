package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
)

func newNotifier(h *harness) (*NotificationService, *fakeWebhook) {
	webhook := &fakeWebhook{}
	return NewNotificationService(NotificationDependencies{
		Mailer:    h.mailer,
		Webhook:   webhook,
		UserRepo:  h.store.Users(),
		StaffRepo: h.store.Staff(),
		Metrics:   h.metrics,
	}), webhook
}

func TestNotificationRecipients(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	notifier, webhook := newNotifier(h)
	staff := h.store.AddStaff("Tax", "tax@example.com", true, domain.RoleTaxation)
	user := h.store.AddUser("Priya", "priya@example.com")

	userActor := events.Actor{Type: domain.SubjectTypeUser, ID: user.ID}
	supportActor := events.Actor{Type: domain.SubjectTypeSupport, ID: staff.ID}
	evts := []events.Event{
		events.New(events.EventChatCreated, "c1", userActor, events.ChatCreatedPayload{UserID: user.ID, AssignedTo: staff.ID, Subject: "GST", Role: domain.RoleTaxation}),
		events.New(events.EventChatCreated, "c2", supportActor, events.ChatCreatedPayload{UserID: user.ID, AssignedTo: staff.ID, Subject: "Notice"}),
		events.New(events.EventChatMessageAdded, "c1", supportActor, events.ChatMessageAddedPayload{UserID: user.ID, AssignedTo: staff.ID, Sender: domain.SenderSupport, BodyPreview: "hi"}),
		events.New(events.EventChatMessageAdded, "c1", userActor, events.ChatMessageAddedPayload{UserID: user.ID, AssignedTo: staff.ID, Sender: domain.SenderUser, BodyPreview: "hello"}),
		events.New(events.EventChatStatusChanged, "c1", supportActor, events.ChatStatusChangedPayload{UserID: user.ID, OldStatus: domain.ChatStatusOpen, NewStatus: domain.ChatStatusResolved}),
		events.New(events.EventContactCreated, "k1", events.Actor{}, events.ContactCreatedPayload{Service: "GST", Role: domain.RoleTaxation}),
	}
	for _, evt := range evts {
		require.NoError(t, notifier.Handle(ctx, evt))
	}

	var recipients []string
	for _, email := range h.mailer.Sent() {
		recipients = append(recipients, email.To)
	}
	want := []string{"tax@example.com", "priya@example.com", "priya@example.com", "tax@example.com", "priya@example.com"}
	if diff := cmp.Diff(want, recipients); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, webhook.payloads, len(evts))
}

func TestNotificationIgnoresDisabledMailer(t *testing.T) {
	h := newHarness(t)
	h.mailer.err = notify.ErrMailerDisabled
	notifier, _ := newNotifier(h)
	user := h.store.AddUser("Priya", "priya@example.com")

	err := notifier.Handle(context.Background(), events.New(events.EventChatStatusChanged, "c1", events.Actor{},
		events.ChatStatusChangedPayload{UserID: user.ID, OldStatus: domain.ChatStatusOpen, NewStatus: domain.ChatStatusClosed}))
	assert.NoError(t, err)
}

func TestNotificationReportsFailures(t *testing.T) {
	h := newHarness(t)
	h.mailer.err = errors.New("smtp down")
	notifier, webhook := newNotifier(h)
	user := h.store.AddUser("Priya", "priya@example.com")

	err := notifier.Handle(context.Background(), events.New(events.EventChatStatusChanged, "c1", events.Actor{},
		events.ChatStatusChangedPayload{UserID: user.ID, OldStatus: domain.ChatStatusOpen, NewStatus: domain.ChatStatusClosed}))
	assert.ErrorContains(t, err, "smtp down")
	assert.Len(t, webhook.payloads, 1, "webhook still fires")

	err = notifier.Handle(context.Background(), events.New(events.EventChatMessageAdded, "c1", events.Actor{},
		events.ChatMessageAddedPayload{UserID: "missing", Sender: domain.SenderSupport}))
	assert.Error(t, err)
}
