package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"
)

// Mailer delivers verification links. The credential core only depends on
// this interface; the SMTP implementation below is the default collaborator.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}

// SMTPMailer sends mail over implicit-TLS SMTP (port 465 style).
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// SendVerification delivers the verification link to the recipient. The
// connection deadline is taken from ctx, so a stalled SMTP server surfaces
// as an error instead of hanging the request.
func (m *SMTPMailer) SendVerification(ctx context.Context, to, link string) error {
	body := fmt.Sprintf("Click here to verify your account: %s", link)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Verify your email\r\n\r\n%s\r\n",
		m.from, to, body)
	return m.send(ctx, to, []byte(msg))
}

func (m *SMTPMailer) send(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(10 * time.Second))
	}

	tlsConn := tls.Client(conn, &tls.Config{ServerName: m.host})
	client, err := smtp.NewClient(tlsConn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("smtp mail failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}

	return client.Quit()
}
