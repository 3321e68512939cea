// Package mailer dispatches transactional email. The log dispatcher is
// the only implementation for now; real delivery plugs in behind the
// service.EmailDispatcher interface.
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher writes outgoing mail to the service log instead of
// sending it. Useful until an SMTP or provider integration lands.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// SendResetEmail logs the password reset link addressed to the user
func (d *LogDispatcher) SendResetEmail(ctx context.Context, email, link string) error {
	d.logger.Info("password reset email",
		zap.String("to", email),
		zap.String("subject", "Password Reset Request"),
		zap.String("reset_link", link),
	)
	return nil
}
