package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Mailer delivers magic-link emails. The login handler never blocks on
// delivery details beyond this call.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

// ResendMailer sends magic-link emails through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer constructs a mailer backed by Resend.
func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// SendMagicLink emails the login link.
func (m *ResendMailer) SendMagicLink(ctx context.Context, email, link string) error {
	html := fmt.Sprintf(`<h2>Login to CoffeeRun</h2>
<p>Click the link below to log in. The link is single use and expires shortly.</p>
<p><a href="%s">Log in to CoffeeRun</a></p>
<p><small>If you didn't request this, you can safely ignore this email.</small></p>`, link)

	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Your CoffeeRun login link",
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("auth: send magic link email: %w", err)
	}
	return nil
}

// LogMailer writes the magic link to the log instead of sending email. Used
// in development when no Resend API key is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs the dev-mode mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// SendMagicLink logs the link for local pickup.
func (m *LogMailer) SendMagicLink(_ context.Context, email, link string) error {
	m.logger.Info("magic link (dev mode, not emailed)",
		zap.String("email", email),
		zap.String("link", link))
	return nil
}

// MagicLinkURL builds the frontend verification URL for a raw token.
func MagicLinkURL(frontendURL, rawToken string) string {
	return strings.TrimRight(frontendURL, "/") + "/auth/verify?token=" + rawToken
}
