package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers digest emails over plain SMTP with AUTH. Any
// non-nil error from the transport is a failed send; the caller decides
// what that means for ledger bookkeeping.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPSender(host, port, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers a multipart/alternative message with text and HTML parts.
func (s *SMTPSender) Send(subject, bodyText, bodyHTML string, recipients []string) error {
	if s.host == "" || s.from == "" {
		return fmt.Errorf("smtp sender misconfigured")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg := buildMessage(s.from, recipients, subject, bodyText, bodyHTML)

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	addr := s.host + ":" + s.port

	if err := smtp.SendMail(addr, auth, s.from, recipients, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

const mimeBoundary = "=_aidigest_boundary"

// sanitizeHeader strips CR/LF so user-derived values (profile name in the
// subject, recipient addresses) cannot smuggle extra headers in.
func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", "")
	return strings.ReplaceAll(value, "\n", "")
}

func buildMessage(from string, recipients []string, subject, bodyText, bodyHTML string) []byte {
	var sb strings.Builder

	to := make([]string, 0, len(recipients))
	for _, r := range recipients {
		to = append(to, sanitizeHeader(r))
	}

	sb.WriteString("From: " + sanitizeHeader(from) + "\r\n")
	sb.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	sb.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: multipart/alternative; boundary=\"" + mimeBoundary + "\"\r\n")
	sb.WriteString("\r\n")

	sb.WriteString("--" + mimeBoundary + "\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	sb.WriteString(bodyText)
	sb.WriteString("\r\n")

	if bodyHTML != "" {
		sb.WriteString("--" + mimeBoundary + "\r\n")
		sb.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
		sb.WriteString(bodyHTML)
		sb.WriteString("\r\n")
	}

	sb.WriteString("--" + mimeBoundary + "--\r\n")

	return []byte(sb.String())
}
