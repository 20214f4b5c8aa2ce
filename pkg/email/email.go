// Package email relays messages over an SMTP endpoint configured by URL.
// The transport handle (resolved endpoint plus optional credentials) is built
// lazily on first send and reused; a failed construction is retried on the
// next send rather than cached.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"net/url"

	"contact-form-backend/pkg/lazy"
	"contact-form-backend/pkg/secrets"
)

// Message is one outbound mail. From and To are fixed by configuration;
// ReplyTo points back at the submitter.
type Message struct {
	From    mail.Address
	To      mail.Address
	ReplyTo mail.Address
	Subject string
	Body    string
}

// Credentials is the SMTP username/password pair stored as a JSON secret.
type Credentials struct {
	Username string `json:"SMTP_USERNAME"`
	Password string `json:"SMTP_PASSWORD"`
}

// Mailer sends messages through a single lazily constructed transport.
// Safe for concurrent use.
type Mailer struct {
	secrets    secrets.Repository
	url        string
	secretName string
	transport  lazy.Cell[transport]
}

type transport struct {
	host   string
	addr   string
	useTLS bool
	auth   smtp.Auth
}

func NewMailer(repo secrets.Repository, smtpURL, secretName string) *Mailer {
	return &Mailer{
		secrets:    repo,
		url:        smtpURL,
		secretName: secretName,
	}
}

func (m *Mailer) buildTransport(ctx context.Context) (transport, error) {
	endpoint, err := url.Parse(m.url)
	if err != nil {
		return transport{}, fmt.Errorf("parsing SMTP URL: %w", err)
	}

	var t transport
	switch endpoint.Scheme {
	case "smtp":
	case "smtps":
		t.useTLS = true
	default:
		return transport{}, fmt.Errorf("unsupported SMTP URL scheme %q", endpoint.Scheme)
	}

	t.host = endpoint.Hostname()
	port := endpoint.Port()
	if port == "" {
		if t.useTLS {
			port = "465"
		} else {
			port = "25"
		}
	}
	t.addr = net.JoinHostPort(t.host, port)

	// Credentials ride on the wire during AUTH, so they are only fetched and
	// attached for encrypted endpoints. If the environment is misconfigured
	// to expect authentication over plain smtp://, the server rejecting the
	// unauthenticated connection is better than leaking the credentials.
	if t.useTLS {
		var creds Credentials
		if err := m.secrets.GetSecret(ctx, m.secretName, &creds); err != nil {
			return transport{}, fmt.Errorf("retrieving SMTP credentials: %w", err)
		}
		t.auth = smtp.PlainAuth("", creds.Username, creds.Password, t.host)
	}

	return t, nil
}

// Send relays one message. Failures during credential fetch, connect, or the
// SMTP dialogue are returned to the caller; nothing is retried here.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	t, err := m.transport.Get(ctx, m.buildTransport)
	if err != nil {
		return fmt.Errorf("unable to connect to SMTP server: %w", err)
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", t.addr, err)
	}
	// The dialer only bounds the connect; the deadline covers the dialogue.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if t.useTLS {
		conn = tls.Client(conn, &tls.Config{ServerName: t.host})
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("starting SMTP session with %s: %w", t.addr, err)
	}
	defer client.Close()

	if t.auth != nil {
		if err := client.Auth(t.auth); err != nil {
			return fmt.Errorf("authenticating with %s: %w", t.addr, err)
		}
	}
	if err := client.Mail(msg.From.Address); err != nil {
		return fmt.Errorf("sending MAIL FROM: %w", err)
	}
	if err := client.Rcpt(msg.To.Address); err != nil {
		return fmt.Errorf("sending RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("sending DATA: %w", err)
	}
	if _, err := w.Write(msg.bytes()); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message body: %w", err)
	}
	return client.Quit()
}

// bytes renders the message. The subject is Q-encoded when it contains
// non-ASCII or control characters, so it always stays on its own header line.
func (m Message) bytes() []byte {
	return fmt.Appendf(nil,
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Reply-To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		m.From.String(),
		m.To.String(),
		m.ReplyTo.String(),
		mime.QEncoding.Encode("utf-8", m.Subject),
		m.Body,
	)
}
