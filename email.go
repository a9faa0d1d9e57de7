package main

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

var errEmailNotConfigured = errors.New("EMAIL_NOT_CONFIGURED")

// Mailer sends the verification and password-reset mails over SMTP. When the
// sender credentials are missing it reports itself unconfigured instead of
// failing requests.
type Mailer struct {
	Host    string
	Port    int
	Address string
	Pass    string
	BaseURL string
}

func newMailer(s Settings) *Mailer {
	return &Mailer{
		Host:    s.SMTPHost,
		Port:    s.SMTPPort,
		Address: s.EmailAddress,
		Pass:    s.EmailPass,
		BaseURL: strings.TrimRight(s.BaseURL, "/"),
	}
}

func (m *Mailer) configured() bool {
	return m.Host != "" && m.Address != "" && m.Pass != ""
}

func (m *Mailer) sendVerificationEmail(to string, username string, token string) error {
	subject := "Jumpy Bird - Verify Your Email"
	link := fmt.Sprintf("%s/#/verify?token=%s", m.BaseURL, token)
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Jumpy Bird! Please click the link below to verify your email address:\n\n%s\n\nThanks for joining!\nThe Jumpy Bird Team",
		username, link,
	)
	return m.send(to, subject, body)
}

func (m *Mailer) sendPasswordResetEmail(to string, token string) error {
	subject := "Jumpy Bird - Password Reset"
	link := fmt.Sprintf("%s/#/reset?token=%s", m.BaseURL, token)
	body := fmt.Sprintf(
		"Hi,\n\nYou requested a password reset for your Jumpy Bird account.\n\n%s\n\nIf you didn't request this, please ignore this email.\n\nThe Jumpy Bird Team",
		link,
	)
	return m.send(to, subject, body)
}

func (m *Mailer) send(to string, subject string, body string) error {
	if !m.configured() {
		log.Println("email not configured; skipping send to", to)
		return errEmailNotConfigured
	}

	msg := strings.Join([]string{
		"From: " + m.Address,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.Address, m.Pass, m.Host)
	return smtp.SendMail(addr, auth, m.Address, []string{to}, []byte(msg))
}
