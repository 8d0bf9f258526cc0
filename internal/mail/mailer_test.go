package mail

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/log"
)

func TestResetMessage(t *testing.T) {
	msg := resetMessage("noreply@example.com", "ana@example.com", "http://x/p/abc")

	assert.Equal(t, []string{"noreply@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"ana@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{resetSubject}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Click the link to reset your password: http://x/p/abc")
}

func TestNew_SelectsImplementation(t *testing.T) {
	logger := log.Discard()

	_, isLog := New(SMTPConfig{}, logger).(*LogMailer)
	assert.True(t, isLog)

	_, isSMTP := New(SMTPConfig{Host: "smtp.example.com", Port: 587}, logger).(*SMTPMailer)
	assert.True(t, isSMTP)
}

func TestLogMailer_KeepsLinkOutOfInfoLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "text", Output: &buf})

	err := NewLogMailer(logger).SendPasswordReset(context.Background(), "ana@example.com", "http://x/password-reset/tok")
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.Contains(out, "component=mail"), out)
	assert.Contains(t, out, "ana@example.com")
	assert.NotContains(t, out, "password-reset/tok")
}

func TestLogMailer_LogsLinkAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: "debug", Format: "text", Output: &buf})

	err := NewLogMailer(logger).SendPasswordReset(context.Background(), "ana@example.com", "http://x/password-reset/tok")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "http://x/password-reset/tok")
}

func TestSMTPMailer_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1}).SendPasswordReset(ctx, "a@b.c", "link")
	assert.ErrorIs(t, err, context.Canceled)
}
