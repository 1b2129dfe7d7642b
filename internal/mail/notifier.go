package mail

import (
	"bytes"
	"context"
	"fmt"
	htmltpl "html/template"
	texttpl "text/template"
	"time"

	"github.com/Leul120/portfolio/internal/domain"
)

type Notifier struct {
	relay     Relay
	from      string
	recipient string
	appURL    string
}

// NewNotifier returns a notifier that answers ErrNotConfigured when relay is nil.
func NewNotifier(relay Relay, from, recipient, appURL string) *Notifier {
	if recipient == "" {
		recipient = from
	}
	return &Notifier{relay: relay, from: from, recipient: recipient, appURL: appURL}
}

func (n *Notifier) Configured() bool { return n != nil && n.relay != nil && n.from != "" }

// SendContact forwards a contact form submission to the site owner.
func (n *Notifier) SendContact(ctx context.Context, m domain.ContactMessage) error {
	if !n.Configured() {
		return ErrNotConfigured
	}
	env := Envelope{
		From:    n.from,
		To:      []string{n.recipient},
		ReplyTo: m.Email,
		Subject: fmt.Sprintf("Contact from %s %s", m.FirstName, m.LastName),
	}
	if err := render(&env, contactText, contactHTML, m); err != nil {
		return err
	}
	if err := n.relay.Send(ctx, env); err != nil {
		return fmt.Errorf("send contact mail: %w", err)
	}
	return nil
}

// SendPasswordReset mails a link carrying the one-time reset token.
func (n *Notifier) SendPasswordReset(ctx context.Context, to, name, token string) error {
	if !n.Configured() {
		return ErrNotConfigured
	}
	env := Envelope{From: n.from, To: []string{to}, Subject: "Reset your password"}
	data := struct{ Name, Link string }{name, n.appURL + "/reset-password?token=" + token}
	if err := render(&env, resetText, resetHTML, data); err != nil {
		return err
	}
	if err := n.relay.Send(ctx, env); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// SendSignupNotice tells the site owner that someone registered.
func (n *Notifier) SendSignupNotice(ctx context.Context, email, name string, at time.Time) error {
	if !n.Configured() {
		return ErrNotConfigured
	}
	env := Envelope{From: n.from, To: []string{n.recipient}, Subject: "New portfolio account: " + email}
	data := struct {
		Email, Name, At string
	}{email, name, at.UTC().Format(time.RFC1123)}
	if err := render(&env, signupText, signupHTML, data); err != nil {
		return err
	}
	if err := n.relay.Send(ctx, env); err != nil {
		return fmt.Errorf("send signup notice: %w", err)
	}
	return nil
}

func render(env *Envelope, t *texttpl.Template, h *htmltpl.Template, data any) error {
	var tb, hb bytes.Buffer
	if err := t.Execute(&tb, data); err != nil {
		return err
	}
	if err := h.Execute(&hb, data); err != nil {
		return err
	}
	env.Text, env.HTML = tb.String(), hb.String()
	return nil
}
