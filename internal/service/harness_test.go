package service

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/testutil"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, email notify.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *fakeMailer) Sent() []notify.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Email(nil), m.sent...)
}

type fakeWebhook struct {
	mu       sync.Mutex
	payloads []any
}

func (w *fakeWebhook) Post(_ context.Context, payload any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.payloads = append(w.payloads, payload)
	return nil
}

type harness struct {
	store    *testutil.Store
	mailer   *fakeMailer
	events   *events.Recorder
	metrics  *observability.Metrics
	cfg      config.Config
	chats    *ChatService
	contacts *ContactService
	staff    *StaffService
	auth     *AuthService
	reports  *ReportService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := testutil.NewStore()
	mailer := &fakeMailer{}
	recorder := &events.Recorder{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	logger := zap.NewNop()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   15,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
		SMTP: config.SMTPConfig{BaseURL: "https://desk.example.com"},
	}

	assignment := NewAssignmentService(AssignmentDependencies{StaffRepo: store.Staff(), Logger: logger})
	return &harness{
		store:   store,
		mailer:  mailer,
		events:  recorder,
		metrics: metrics,
		cfg:     cfg,
		chats: NewChatService(ChatDependencies{
			ChatRepo:    store.Chats(),
			HistoryRepo: store.ChatHistory(),
			UserRepo:    store.Users(),
			Assignment:  assignment,
			Dispatcher:  recorder,
			Metrics:     metrics,
			Logger:      logger,
		}),
		contacts: NewContactService(ContactDependencies{
			ContactRepo: store.Contacts(),
			Mailer:      mailer,
			Dispatcher:  recorder,
			Metrics:     metrics,
			Logger:      logger,
		}),
		staff: NewStaffService(cfg, StaffDependencies{StaffRepo: store.Staff()}),
		auth: NewAuthService(cfg, AuthDependencies{
			UserRepo:          store.Users(),
			StaffRepo:         store.Staff(),
			AdminRepo:         store.Admins(),
			PasswordResetRepo: store.PasswordResets(),
			Mailer:            mailer,
			Metrics:           metrics,
			Logger:            logger,
		}),
		reports: NewReportService(ReportDependencies{ContactRepo: store.Contacts(), ChatRepo: store.Chats()}),
	}
}

// seedChat stores a chat directly, bypassing assignment.
func (h *harness) seedChat(t *testing.T, user *domain.User, assignee *domain.StaffMember, subject string) *domain.ChatSession {
	t.Helper()
	chat := &domain.ChatSession{
		UserID:     user.ID,
		AssignedTo: assignee.ID,
		Subject:    subject,
		Status:     domain.ChatStatusOpen,
		Messages: []domain.ChatMessage{
			{Sender: domain.SenderUser, SenderID: user.ID, Body: "hello"},
		},
	}
	require.NoError(t, h.store.Chats().Create(context.Background(), chat))
	return chat
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}
