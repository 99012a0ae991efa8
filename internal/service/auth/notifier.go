// internal/service/auth/notifier.go
package auth

import (
	"context"
	"fmt"
	"html"

	"storefront/internal/domain/auth"
	"storefront/internal/service/email"

	"go.uber.org/zap"
)

// Notifier delivers one-time codes to users.
type Notifier interface {
	SendOTP(ctx context.Context, to, name, code string, purpose auth.Purpose) error
}

// EmailNotifier sends codes through SMTP. Delivery runs in the background.
type EmailNotifier struct {
	sender *email.Sender
	logger *zap.Logger
}

func NewEmailNotifier(sender *email.Sender, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, logger: logger}
}

// OTPEmail builds the subject and body for a code.
func OTPEmail(name, code string, purpose auth.Purpose) (string, string) {
	var subject, intro string
	switch purpose {
	case auth.PurposePasswordReset:
		subject = "Reset your password"
		intro = "Use this code to reset your password."
	case auth.PurposeMobileVerification:
		subject = "Verify your mobile number"
		intro = "Use this code to confirm your mobile number."
	default:
		subject = "Verify your email"
		intro = "Use this code to finish creating your account."
	}

	body := fmt.Sprintf(`
		<h2>%s</h2>
		<p>Hello %s,</p>
		<p>%s</p>
		<p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">%s</p>
		<p>If you did not request this code you can ignore this email.</p>
	`, subject, html.EscapeString(name), intro, code)
	return subject, body
}

// SendOTP returns once delivery is queued. The send outlives the request context.
func (n *EmailNotifier) SendOTP(ctx context.Context, to, name, code string, purpose auth.Purpose) error {
	subject, body := OTPEmail(name, code, purpose)
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := n.sender.Send(ctx, email.Message{To: to, Subject: subject, HTML: body}); err != nil {
			n.logger.Error("failed to send otp email",
				zap.String("email", to),
				zap.String("purpose", string(purpose)),
				zap.Error(err),
			)
			return
		}
		n.logger.Info("otp email sent", zap.String("email", to), zap.String("purpose", string(purpose)))
	}()
	return nil
}

// LogNotifier writes codes to the log. Used when SMTP is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOTP(_ context.Context, to, _, code string, purpose auth.Purpose) error {
	n.logger.Info("otp issued",
		zap.String("to", to),
		zap.String("purpose", string(purpose)),
		zap.String("code", code),
	)
	return nil
}
