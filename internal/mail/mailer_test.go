package mail

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"studio/api/internal/config"
)

func TestNewFallsBackToLog(t *testing.T) {
	m := New(config.MailConfig{Host: "smtp.example.com"}, zerolog.Nop())
	assert.IsType(t, LogMailer{}, m)
	assert.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "hi"}))
}

func TestSMTPCompose(t *testing.T) {
	m := New(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "studio@example.com",
		Password: "pw",
	}, zerolog.Nop())

	smtpMailer, ok := m.(*SMTPMailer)
	if !assert.True(t, ok) {
		return
	}
	assert.Equal(t, "smtp.example.com:587", smtpMailer.addr)

	raw := string(smtpMailer.compose(Message{To: "ann@example.com", Subject: "Reset", Body: "link"}))
	assert.Contains(t, raw, "From: studio@example.com\r\n")
	assert.Contains(t, raw, "To: ann@example.com\r\n")
	assert.Contains(t, raw, "Subject: Reset\r\n")
	assert.Contains(t, raw, "\r\n\r\nlink")
}

func TestSendHonoursCancelledContext(t *testing.T) {
	m := &SMTPMailer{addr: "127.0.0.1:1", from: "x@example.com"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@example.com"}), context.Canceled)
}
