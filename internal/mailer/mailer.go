// Package mailer is the notification sink for password reset links. The
// concrete delivery mechanism is injected; the service only depends on the
// Mailer interface.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, email string, resetURL string) error
}

// LogMailer writes the reset link to the log instead of delivering mail.
// Used in development and tests; a real sender implements the same interface.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email string, resetURL string) error {
	slog.Info("password reset requested",
		"to", email,
		"subject", "Password Reset Request",
		"body", fmt.Sprintf("Click to reset your password: %s", resetURL),
	)
	return nil
}
