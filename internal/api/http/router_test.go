package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/ratelimit"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/testutil"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

type stubMailer struct {
	mu   sync.Mutex
	sent []notify.Email
	err  error
}

func (m *stubMailer) Send(_ context.Context, email notify.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

type okPinger struct{ err error }

func (p okPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app      *fiber.App
	store    *testutil.Store
	mailer   *stubMailer
	tokens   *auth.TokenManager
	contacts *service.ContactService
	registry *prometheus.Registry
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	store := testutil.NewStore()
	mailer := &stubMailer{}
	logger := zap.NewNop()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	recorder := &events.Recorder{}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{
		App:       config.AppConfig{Name: "support-desk", Version: "test"},
		Auth:      config.AuthConfig{JWTSecret: "router-secret", AccessTokenTTLMinutes: 15, PasswordResetTTLMinutes: 30, BcryptCost: 4},
		RateLimit: config.RateLimitConfig{ContactPerHour: 2, LoginPerMinute: 50},
	}

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          store.Users(),
		StaffRepo:         store.Staff(),
		AdminRepo:         store.Admins(),
		PasswordResetRepo: store.PasswordResets(),
		Mailer:            mailer,
		Metrics:           metrics,
		Logger:            logger,
	})
	assignment := service.NewAssignmentService(service.AssignmentDependencies{StaffRepo: store.Staff(), Logger: logger})
	chatService := service.NewChatService(service.ChatDependencies{
		ChatRepo:    store.Chats(),
		HistoryRepo: store.ChatHistory(),
		UserRepo:    store.Users(),
		Assignment:  assignment,
		Dispatcher:  recorder,
		Metrics:     metrics,
		Logger:      logger,
	})
	contactService := service.NewContactService(service.ContactDependencies{
		ContactRepo: store.Contacts(),
		Mailer:      mailer,
		Dispatcher:  recorder,
		Metrics:     metrics,
		Logger:      logger,
	})
	staffService := service.NewStaffService(cfg, service.StaffDependencies{StaffRepo: store.Staff()})
	reportService := service.NewReportService(service.ReportDependencies{ContactRepo: store.Contacts(), ChatRepo: store.Chats()})

	app := fiber.New()
	apihttp.RegisterMiddlewares(app, logger, metrics, 0)
	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Health:         handlers.NewHealthHandler("support-desk", "test", okPinger{}, okPinger{}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(chatService),
		Staff:          handlers.NewStaffHandler(chatService, contactService, staffService),
		Admin:          handlers.NewAdminHandler(staffService, chatService, contactService, reportService),
		Contact:        handlers.NewContactHandler(contactService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users(), store.Staff(), store.Admins()),
		Limiter:        ratelimit.NewRedisLimiter(client),
		RateLimit:      cfg.RateLimit,
		Gatherer:       registry,
		Metrics:        metrics,
		Logger:         logger,
	})

	return &testServer{app: app, store: store, mailer: mailer, tokens: authService.TokenManager(), contacts: contactService, registry: registry}
}

func (s *testServer) token(t *testing.T, id string, subject domain.SubjectType) string {
	t.Helper()
	_, signed, err := s.tokens.GenerateToken(id, subject)
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	payload := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp, payload
}

func errorCode(payload map[string]any) string {
	envelope, _ := payload["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func (s *testServer) seedChat(t *testing.T, user *domain.User, assignee *domain.StaffMember, subject string) *domain.ChatSession {
	t.Helper()
	chat := &domain.ChatSession{
		UserID:     user.ID,
		AssignedTo: assignee.ID,
		Subject:    subject,
		Status:     domain.ChatStatusOpen,
		Messages:   []domain.ChatMessage{{Sender: domain.SenderUser, SenderID: user.ID, Body: "hello"}},
	}
	require.NoError(t, s.store.Chats().Create(context.Background(), chat))
	return chat
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	resp, payload := s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", payload["status"])

	resp, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newServer(t)
	resp, payload := s.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(payload))
}

func TestStaffOutsideRoleGetsDepartmentMismatch(t *testing.T) {
	s := newServer(t)
	user := s.store.AddUser("Priya", "priya@example.com")
	roc := s.store.AddStaff("Roc", "roc@example.com", true, domain.RoleROCReturns)
	adv := s.store.AddStaff("Adv", "adv@example.com", true, domain.RoleAdvisory)
	chat := s.seedChat(t, user, adv, "Advisory Consultation")
	token := s.token(t, roc.ID, domain.SubjectTypeSupport)

	resp, payload := s.do(t, http.MethodGet, "/support-team/chats/"+chat.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperrors.CodeDepartmentMismatch, errorCode(payload))

	resp, payload = s.do(t, http.MethodPut, "/support-team/chats/"+chat.ID+"/status", token, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperrors.CodeDepartmentMismatch, errorCode(payload))

	resp, payload = s.do(t, http.MethodGet, "/support-team/chats", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, payload["data"])
}

// requestCount sums support_desk_http_requests_total samples for method and status.
func (s *testServer) requestCount(t *testing.T, method, status string) float64 {
	t.Helper()
	families, err := s.registry.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, family := range families {
		if family.GetName() != "support_desk_http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["method"] == method && labels["status"] == status {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}

func TestRequestMetricsCarryErrorStatus(t *testing.T) {
	s := newServer(t)
	user := s.store.AddUser("Priya", "priya@example.com")
	roc := s.store.AddStaff("Roc", "roc@example.com", true, domain.RoleROCReturns)
	adv := s.store.AddStaff("Adv", "adv@example.com", true, domain.RoleAdvisory)
	chat := s.seedChat(t, user, adv, "Advisory Consultation")

	resp, _ := s.do(t, http.MethodGet, "/support-team/chats/"+chat.ID, s.token(t, roc.ID, domain.SubjectTypeSupport), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/support-team/chats/"+chat.ID, s.token(t, adv.ID, domain.SubjectTypeSupport), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1.0, s.requestCount(t, http.MethodGet, "403"))
	assert.Equal(t, 1.0, s.requestCount(t, http.MethodGet, "200"))
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	s := newServer(t)
	user := s.store.AddUser("Priya", "priya@example.com")
	tax := s.store.AddStaff("Tax", "tax@example.com", true, domain.RoleTaxation)
	staffToken := s.token(t, tax.ID, domain.SubjectTypeSupport)
	userToken := s.token(t, user.ID, domain.SubjectTypeUser)
	adminRecord := &domain.Admin{Name: "Root", Email: "root@example.com"}
	require.NoError(t, s.store.Admins().Create(context.Background(), adminRecord))
	adminToken := s.token(t, adminRecord.ID, domain.SubjectTypeAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
	}{
		{"staff chat detail", http.MethodGet, "/support-team/chats/not-a-uuid", staffToken, nil},
		{"staff chat message", http.MethodPost, "/support-team/chats/not-a-uuid/messages", staffToken, map[string]string{"message": "hi"}},
		{"staff chat status", http.MethodPut, "/support-team/chats/not-a-uuid/status", staffToken, map[string]string{"status": "closed"}},
		{"staff chat read", http.MethodPut, "/support-team/chats/not-a-uuid/read", staffToken, nil},
		{"staff chat history", http.MethodGet, "/support-team/chats/not-a-uuid/history", staffToken, nil},
		{"user chat detail", http.MethodGet, "/users/chats/not-a-uuid", userToken, nil},
		{"user chat message", http.MethodPost, "/users/chats/not-a-uuid/messages", userToken, map[string]string{"message": "hi"}},
		{"contact reply", http.MethodPost, "/support-team/send-email", staffToken, map[string]string{"contactId": "not-a-uuid", "subject": "Re", "message": "hi"}},
		{"staff started chat", http.MethodPost, "/support-team/chats", staffToken, map[string]string{"userId": "not-a-uuid", "subject": "GST", "message": "hi"}},
		{"admin staff detail", http.MethodGet, "/admin/staff/not-a-uuid", adminToken, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, payload := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, apperrors.CodeNotFound, errorCode(payload))
		})
	}
}

func TestInvalidStatusIsBadRequest(t *testing.T) {
	s := newServer(t)
	user := s.store.AddUser("Priya", "priya@example.com")
	adv := s.store.AddStaff("Adv", "adv@example.com", true, domain.RoleAdvisory)
	chat := s.seedChat(t, user, adv, "Advisory Consultation")
	token := s.token(t, adv.ID, domain.SubjectTypeSupport)

	resp, payload := s.do(t, http.MethodPut, "/support-team/chats/"+chat.ID+"/status", token, map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperrors.CodeValidation, errorCode(payload))

	resp, payload = s.do(t, http.MethodPut, "/support-team/chats/"+chat.ID+"/status", token, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "resolved", data["status"])
	assert.Equal(t, string(domain.RoleAdvisory), data["role"])
}

func TestUserChatRoutesToRoleHolder(t *testing.T) {
	s := newServer(t)
	user := s.store.AddUser("Priya", "priya@example.com")
	s.store.AddStaff("Live", "live@example.com", true, domain.RoleLiveSupport)
	roc := s.store.AddStaff("Roc", "roc@example.com", true, domain.RoleROCReturns)
	userToken := s.token(t, user.ID, domain.SubjectTypeUser)

	resp, payload := s.do(t, http.MethodPost, "/support-team/user-chat", userToken, map[string]string{
		"subject": "ROC Annual Return",
		"message": "Need help filing",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := payload["data"].(map[string]any)
	assert.Equal(t, roc.ID, data["assigned_to"])
	assert.Equal(t, string(domain.RoleROCReturns), data["role"])
	chatID := data["id"].(string)

	resp, payload = s.do(t, http.MethodGet, "/support-team/chats", s.token(t, roc.ID, domain.SubjectTypeSupport), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chats := payload["data"].([]any)
	require.Len(t, chats, 1)
	summary := chats[0].(map[string]any)
	assert.Equal(t, "Priya", summary["user_name"])
	assert.Equal(t, float64(1), summary["unread"])

	resp, _ = s.do(t, http.MethodGet, "/users/chats/"+chatID, userToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	other := s.store.AddUser("Other", "other@example.com")
	resp, payload = s.do(t, http.MethodGet, "/users/chats/"+chatID, s.token(t, other.ID, domain.SubjectTypeUser), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(payload))
}

func TestPrincipalTypeIsEnforced(t *testing.T) {
	s := newServer(t)
	user := s.store.AddUser("Priya", "priya@example.com")
	staff := s.store.AddStaff("Tax", "tax@example.com", true, domain.RoleTaxation)

	resp, payload := s.do(t, http.MethodGet, "/support-team/chats", s.token(t, user.ID, domain.SubjectTypeUser), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperrors.CodeForbidden, errorCode(payload))

	resp, _ = s.do(t, http.MethodPost, "/support-team/user-chat", s.token(t, staff.ID, domain.SubjectTypeSupport), map[string]string{"subject": "x", "message": "y"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/admin/staff", s.token(t, staff.ID, domain.SubjectTypeSupport), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, payload = s.do(t, http.MethodGet, "/support-team/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(payload))
}

func TestSendEmailReportsDelivery(t *testing.T) {
	s := newServer(t)
	tax := s.store.AddStaff("Tax", "tax@example.com", true, domain.RoleTaxation)
	token := s.token(t, tax.ID, domain.SubjectTypeSupport)

	resp, payload := s.do(t, http.MethodPost, "/contact", "", map[string]string{
		"name": "Visitor", "email": "visitor@example.com", "service": "GST Registration", "message": "call me",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	contactID := payload["data"].(map[string]any)["id"].(string)

	resp, payload = s.do(t, http.MethodGet, "/support-team/contacts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := payload["data"].([]any)
	require.Len(t, listed, 1)
	assert.Equal(t, string(domain.RoleTaxation), listed[0].(map[string]any)["role"])

	s.mailer.err = errors.New("smtp down")
	resp, payload = s.do(t, http.MethodPost, "/support-team/send-email", token, map[string]string{
		"contactId": contactID, "subject": "Re: GST", "message": "We can help",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]any)
	assert.Equal(t, false, data["email_delivered"])
	assert.Equal(t, true, data["contact"].(map[string]any)["replied"])

	resp, payload = s.do(t, http.MethodPost, "/support-team/send-email", token, map[string]string{
		"contactId": contactID, "subject": "Re: GST", "message": "again",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperrors.CodeConflict, errorCode(payload))
}

func TestValidationUsesJSONFieldNames(t *testing.T) {
	s := newServer(t)
	resp, payload := s.do(t, http.MethodPost, "/contact", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	details := payload["error"].(map[string]any)["details"].(map[string]any)
	fields := details["fields"].(map[string]any)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "message")
}

func TestContactFormIsRateLimited(t *testing.T) {
	s := newServer(t)
	body := map[string]string{"name": "V", "email": "v@example.com", "message": "hi"}
	for i := 0; i < 2; i++ {
		resp, _ := s.do(t, http.MethodPost, "/contact", "", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp, payload := s.do(t, http.MethodPost, "/contact", "", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, apperrors.CodeTooManyRequests, errorCode(payload))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestAdminStaffLifecycleAndExport(t *testing.T) {
	s := newServer(t)
	admin := &domain.Admin{Name: "Root", Email: "root@example.com"}
	require.NoError(t, s.store.Admins().Create(context.Background(), admin))
	token := s.token(t, admin.ID, domain.SubjectTypeAdmin)

	resp, payload := s.do(t, http.MethodPost, "/admin/staff", token, map[string]any{
		"name": "Sam", "email": "sam@example.com", "password": "password1", "roles": []string{"sales"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperrors.CodeValidation, errorCode(payload))

	resp, payload = s.do(t, http.MethodPost, "/admin/staff", token, map[string]any{
		"name": "Sam", "email": "sam@example.com", "password": "password1", "roles": []string{"reports_support", "live_support"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := payload["data"].(map[string]any)
	assert.Equal(t, []any{"reports_support", "live_support"}, created["roles"])
	staffID := created["id"].(string)

	resp, payload = s.do(t, http.MethodDelete, "/admin/staff/"+staffID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, payload["data"].(map[string]any)["active"])

	resp, _ = s.do(t, http.MethodPost, "/support-team/login", "", map[string]string{"email": "sam@example.com", "password": "password1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/admin/reports/routing/export", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
}
