// Package mailer delivers verification and password-reset email over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/JacquesDelfrate/auth-system/internal/auth/domain"
)

type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
	// Skip TLS certificate verification, for local dev servers like MailHog.
	InsecureSkipVerify bool
}

func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}
}

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, user *domain.User, link string) error {
	body := fmt.Sprintf(`<h2>Verify your email address</h2>
<p>Hi <b>%s</b>!</p>
<p>Please click the link below to verify your email address and complete your account setup.</p>
<p><a href="%s">Verify Email Address</a></p>
<p>The link is valid for 24 hours. If you did not create an account, you can ignore this email.</p>`,
		user.Name, link)

	return m.send(ctx, user.Email, "Verify Your Email Address", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, user *domain.User, link string) error {
	body := fmt.Sprintf(`<h2>Reset your password</h2>
<p>Hi <b>%s</b>!</p>
<p>Click the link below to choose a new password.</p>
<p><a href="%s">Reset Password</a></p>
<p>The link is valid for 24 hours. If you did not request a reset, you can ignore this email.</p>`,
		user.Name, link)

	return m.send(ctx, user.Email, "Reset Your Password", body)
}

// send delivers one HTML message. Works with MailHog (no auth) and regular
// servers (STARTTLS + PlainAuth when credentials are set).
func (m *SMTPMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	var sb strings.Builder
	sb.WriteString("From: " + m.from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(htmlBody)

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if err := c.Hello("localhost"); err != nil {
		return err
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := &tls.Config{
			ServerName:         m.host,
			InsecureSkipVerify: m.InsecureSkipVerify,
		}
		if err := c.StartTLS(cfg); err != nil {
			return err
		}
	}

	if m.user != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.user, m.pass, m.host)
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(sb.String())); err != nil {
		return err
	}

	return w.Close()
}
