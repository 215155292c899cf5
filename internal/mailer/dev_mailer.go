package mailer

import "github.com/minegate/minegate-api/pkg/logger"

// DevMailer logs emails instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendPasswordResetEmail(toEmail, toName, resetURL string) error {
	logger.Info("[DEV MAIL] Password reset email",
		"to", toEmail,
		"name", toName,
		"reset_url", resetURL,
	)
	return nil
}

func (d *DevMailer) SendWelcomeEmail(toEmail, toName string) error {
	logger.Info("[DEV MAIL] Welcome email",
		"to", toEmail,
		"name", toName,
	)
	return nil
}
