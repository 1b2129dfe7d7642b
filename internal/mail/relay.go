package mail

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("mail relay not configured")

type Envelope struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Relay hands a message to a transport. Send returns only after the transport accepted it.
type Relay interface {
	Send(ctx context.Context, env Envelope) error
}

type SMTPRelay struct {
	Host     string
	Port     string
	Username string
	Password string
}

func NewSMTPRelay(host, port, username, password string) *SMTPRelay {
	return &SMTPRelay{Host: host, Port: port, Username: username, Password: password}
}

func (r *SMTPRelay) Send(ctx context.Context, env Envelope) error {
	if r == nil || r.Host == "" {
		return ErrNotConfigured
	}
	msg, err := buildMessage(env, time.Now())
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if r.Username != "" {
		auth = smtp.PlainAuth("", r.Username, r.Password, r.Host)
	}
	addr := net.JoinHostPort(r.Host, r.Port)

	done := make(chan error, 1)
	go func() { done <- smtp.SendMail(addr, auth, env.From, env.To, msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildMessage renders a multipart/alternative message with CRLF line endings.
func buildMessage(env Envelope, now time.Time) ([]byte, error) {
	if env.From == "" || len(env.To) == 0 {
		return nil, errors.New("envelope needs from and to")
	}
	for _, h := range append([]string{env.From, env.ReplyTo, env.Subject}, env.To...) {
		if strings.ContainsAny(h, "\r\n") {
			return nil, errors.New("header contains a line break")
		}
	}
	boundary, err := newBoundary()
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", env.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(env.To, ", "))
	if env.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", env.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", env.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	writePart(&b, boundary, "text/plain", env.Text)
	if env.HTML != "" {
		writePart(&b, boundary, "text/html", env.HTML)
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes(), nil
}

// writePart emits one quoted-printable body part; encoded lines stay within 76 octets.
func writePart(b *bytes.Buffer, boundary, ctype, body string) {
	fmt.Fprintf(b, "--%s\r\n", boundary)
	fmt.Fprintf(b, "Content-Type: %s; charset=utf-8\r\n", ctype)
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	qp := quotedprintable.NewWriter(b)
	_, _ = qp.Write([]byte(body))
	_ = qp.Close()
	b.WriteString("\r\n")
}

func newBoundary() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "b_" + hex.EncodeToString(buf), nil
}
