package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendPasswordResetEmail(toEmail, toName, resetURL string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Password recovery - MineGate"
	html := fmt.Sprintf(`
		<h2>Password recovery</h2>
		<p>Hello %s,</p>
		<p>You requested a password reset. Click the button below to set a new one:</p>
		<p><a href="%s" style="background-color: #2d6a4f; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Reset password</a></p>
		<p>If you did not request this change you can ignore this email.</p>
		<p>This link will expire in 24 hours.</p>
	`, toName, resetURL)

	text := fmt.Sprintf("Hello %s,\n\nTo set a new password open this link: %s\n\nIf you did not request this change you can ignore this email.", toName, resetURL)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendWelcomeEmail(toEmail, toName string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Your MineGate account was created"
	html := fmt.Sprintf(`
		<h2>Welcome to MineGate</h2>
		<p>Hello %s,</p>
		<p>Your account was created and is waiting for administrator approval.</p>
		<p>You will be able to sign in once an administrator approves your access.</p>
	`, toName)

	text := fmt.Sprintf("Hello %s,\n\nYour account was created and is waiting for administrator approval.", toName)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
