package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	stdmail "net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leul120/portfolio/internal/domain"
)

type fakeRelay struct {
	sent []Envelope
	err  error
}

func (f *fakeRelay) Send(_ context.Context, env Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, env)
	return nil
}

var msg = domain.ContactMessage{
	FirstName:   "Ada",
	LastName:    "Lovelace",
	Email:       "ada@example.com",
	PhoneNumber: "+44 1",
	Description: "<script>alert(1)</script> hello",
}

func TestNotifier_SendContact(t *testing.T) {
	r := &fakeRelay{}
	n := NewNotifier(r, "noreply@example.com", "owner@example.com", "http://app")

	require.NoError(t, n.SendContact(context.Background(), msg))
	require.Len(t, r.sent, 1)
	env := r.sent[0]
	assert.Equal(t, []string{"owner@example.com"}, env.To)
	assert.Equal(t, "ada@example.com", env.ReplyTo)
	assert.Equal(t, "Contact from Ada Lovelace", env.Subject)
	assert.Contains(t, env.Text, "<script>alert(1)</script> hello")
	assert.NotContains(t, env.HTML, "<script>")
	assert.Contains(t, env.HTML, "&lt;script&gt;")
}

func TestNotifier_RelayFailure(t *testing.T) {
	boom := errors.New("relay down")
	n := NewNotifier(&fakeRelay{err: boom}, "noreply@example.com", "", "")

	err := n.SendContact(context.Background(), msg)
	assert.ErrorIs(t, err, boom)
}

func TestNotifier_NotConfigured(t *testing.T) {
	n := NewNotifier(nil, "noreply@example.com", "", "")
	assert.ErrorIs(t, n.SendContact(context.Background(), msg), ErrNotConfigured)
	assert.ErrorIs(t, n.SendPasswordReset(context.Background(), "a@b.c", "A", "t"), ErrNotConfigured)
}

func TestNotifier_SendPasswordReset(t *testing.T) {
	r := &fakeRelay{}
	n := NewNotifier(r, "noreply@example.com", "", "https://app.example.com")

	require.NoError(t, n.SendPasswordReset(context.Background(), "ada@example.com", "Ada", "tok123"))
	require.Len(t, r.sent, 1)
	assert.Equal(t, []string{"ada@example.com"}, r.sent[0].To)
	assert.Contains(t, r.sent[0].Text, "https://app.example.com/reset-password?token=tok123")
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	raw, err := buildMessage(Envelope{
		From: "a@example.com", To: []string{"b@example.com"}, ReplyTo: "c@example.com",
		Subject: "Hi", Text: "line1\nline2", HTML: "<p>x</p>",
	}, now)
	require.NoError(t, err)
	s := string(raw)

	assert.True(t, strings.HasPrefix(s, "From: a@example.com\r\n"))
	assert.Contains(t, s, "Reply-To: c@example.com\r\n")
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "line1\r\nline2")
	assert.Contains(t, s, "text/html")
	assert.Contains(t, s, "Content-Transfer-Encoding: quoted-printable")
}

func TestBuildMessage_WrapsLongLines(t *testing.T) {
	long := strings.Repeat("a", 2000)
	raw, err := buildMessage(Envelope{
		From: "a@example.com", To: []string{"b@example.com"},
		Subject: "Hi", Text: long, HTML: "<p>" + long + "</p>",
	}, time.Now())
	require.NoError(t, err)

	for _, line := range strings.Split(string(raw), "\r\n") {
		assert.LessOrEqual(t, len(line), 998)
	}

	msg, err := stdmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	_, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	part, err := multipart.NewReader(msg.Body, params["boundary"]).NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, long, string(body))
}

func TestBuildMessage_RejectsHeaderInjection(t *testing.T) {
	_, err := buildMessage(Envelope{
		From: "a@example.com", To: []string{"b@example.com"}, ReplyTo: "x@example.com\r\nBcc: evil@example.com",
	}, time.Now())
	assert.Error(t, err)

	_, err = buildMessage(Envelope{From: "a@example.com"}, time.Now())
	assert.Error(t, err)
}

func TestSMTPRelay_NotConfigured(t *testing.T) {
	var r *SMTPRelay
	assert.ErrorIs(t, r.Send(context.Background(), Envelope{}), ErrNotConfigured)
}

func TestNotifier_SendSignupNotice(t *testing.T) {
	r := &fakeRelay{}
	n := NewNotifier(r, "noreply@example.com", "owner@example.com", "")
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, n.SendSignupNotice(context.Background(), "ada@example.com", "Ada <b>", at))
	require.Len(t, r.sent, 1)
	env := r.sent[0]
	assert.Equal(t, []string{"owner@example.com"}, env.To)
	assert.Equal(t, "New portfolio account: ada@example.com", env.Subject)
	assert.Contains(t, env.Text, "Wed, 01 May 2024 10:00:00 UTC")
	assert.Contains(t, env.HTML, "Ada &lt;b&gt;")
}
