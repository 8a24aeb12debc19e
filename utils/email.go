package utils

import (
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// EmailConfig holds email configuration
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends transactional emails through an SMTP relay
type SMTPMailer struct {
	config EmailConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a mailer for the given SMTP settings
func NewSMTPMailer(config EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

func (m *SMTPMailer) send(msg *gomail.Message) error {
	if m.config.Host == "" {
		LogInfo("SMTP not configured, skipping email to %v", msg.GetHeader("To"))
		return nil
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// SendPasswordReset emails a password reset link
func (m *SMTPMailer) SendPasswordReset(to, name, resetLink string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your MANSATASK password")

	body := fmt.Sprintf(`
		<h2>Password Reset Request</h2>
		<p>Hello %s,</p>
		<p>You have requested to reset your password. Click the link below to proceed:</p>
		<p><a href="%s">Reset Password</a></p>
		<p>This link will expire in 1 hour.</p>
		<p>If you didn't request this reset, please ignore this email.</p>
	`, name, resetLink)
	msg.SetBody("text/html", body)

	return m.send(msg)
}

// SendPaymentReceipt emails a receipt PDF to a customer
func (m *SMTPMailer) SendPaymentReceipt(to, name, merchant, receiptNumber string, pdf []byte) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Your receipt %s from %s", receiptNumber, merchant))

	body := fmt.Sprintf(`
		<h2>Payment received</h2>
		<p>Hello %s,</p>
		<p>Thank you for your payment to %s. Your receipt <strong>%s</strong> is attached.</p>
	`, name, merchant, receiptNumber)
	msg.SetBody("text/html", body)
	msg.Attach(receiptNumber+".pdf", gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(pdf)
		return err
	}))

	return m.send(msg)
}
