package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
)

func TestSMTPMailerDisabledWithoutHost(t *testing.T) {
	mailer := NewSMTPMailer(config.SMTPConfig{})
	assert.False(t, mailer.Enabled())

	err := mailer.Send(context.Background(), Email{To: "a@example.com"})
	assert.True(t, errors.Is(err, ErrMailerDisabled))
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	mailer := NewSMTPMailer(config.SMTPConfig{
		Host:        "smtp.example.com",
		Port:        587,
		FromAddress: "desk@example.com",
		FromName:    "Support Desk",
		BaseURL:     "https://desk.example.com/",
	})
	require.True(t, mailer.Enabled())

	msg := mailer.buildMessage(Email{
		To:      "client@example.com",
		ReplyTo: "agent@example.com",
		Subject: "Re: GST filing",
		Body:    "line one\nline <two>",
	})
	assert.Equal(t, []string{"client@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"agent@example.com"}, msg.GetHeader("Reply-To"))
	assert.Equal(t, []string{"Re: GST filing"}, msg.GetHeader("Subject"))
	assert.Equal(t, "https://desk.example.com/auth/reset-password?token=abc", mailer.ResetLink("abc"))
}

func TestRenderHTMLEscapes(t *testing.T) {
	out := renderHTML("a <b>\nc")
	assert.Contains(t, out, "a &lt;b&gt;<br>")
	assert.Contains(t, out, "c</p>")
}

func TestWebhookPostsJSON(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := NewWebhookClient(srv.URL, time.Second, 0, zap.NewNop())
	require.NoError(t, hook.Post(context.Background(), map[string]any{"type": "chat_created"}))
	assert.Equal(t, "chat_created", received["type"])
}

func TestWebhookReportsServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	hook := NewWebhookClient(srv.URL, time.Second, 0, zap.NewNop())
	err := hook.Post(context.Background(), map[string]string{"k": "v"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookDisabledIsNoop(t *testing.T) {
	hook := NewWebhookClient("  ", 0, 0, zap.NewNop())
	assert.False(t, hook.Enabled())
	assert.NoError(t, hook.Post(context.Background(), "ignored"))
}
