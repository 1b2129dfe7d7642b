package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	ggoogle "golang.org/x/oauth2/google"
)

const stateTTL = 10 * time.Minute

var ErrBadState = errors.New("bad oauth state")

type GoogleOAuth struct {
	cfg      *oauth2.Config
	stateKey []byte
	now      func() time.Time
}

func NewGoogle(clientID, clientSecret, redirectURI, stateSecret string) *GoogleOAuth {
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     ggoogle.Endpoint,
		},
		stateKey: []byte(stateSecret),
		now:      time.Now,
	}
}

// MakeState signs nonce together with the issue time: "<nonce>.<unix>.<sig>".
func (g *GoogleOAuth) MakeState(nonce string) string {
	payload := nonce + "." + strconv.FormatInt(g.now().Unix(), 10)
	return payload + "." + g.sign(payload)
}

// VerifyState checks the signature and that the state is younger than stateTTL.
func (g *GoogleOAuth) VerifyState(state string) error {
	i := strings.LastIndexByte(state, '.')
	if i < 0 {
		return ErrBadState
	}
	payload, sig := state[:i], state[i+1:]
	if !hmac.Equal([]byte(g.sign(payload)), []byte(sig)) {
		return ErrBadState
	}
	_, ts, ok := strings.Cut(payload, ".")
	if !ok {
		return ErrBadState
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadState
	}
	if g.now().Sub(time.Unix(unix, 0)) > stateTTL {
		return fmt.Errorf("%w: expired", ErrBadState)
	}
	return nil
}

func (g *GoogleOAuth) sign(payload string) string {
	mac := hmac.New(sha256.New, g.stateKey)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (g *GoogleOAuth) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type GoogleUser struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Exchange trades the code for tokens and reads the identity from the id_token. The token
// comes straight from Google's token endpoint over TLS, so only its claims are checked.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, errors.New("no id_token")
	}
	return parseIDToken(raw, g.cfg.ClientID)
}

func parseIDToken(raw, clientID string) (*GoogleUser, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	iss, _ := claims["iss"].(string)
	aud, _ := claims["aud"].(string)
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	verified, _ := claims["email_verified"].(bool)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, errors.New("bad iss")
	}
	if aud != clientID {
		return nil, errors.New("bad aud")
	}
	if email == "" || sub == "" {
		return nil, errors.New("missing email/sub")
	}
	return &GoogleUser{Sub: sub, Email: email, EmailVerified: verified, Name: name, Picture: picture}, nil
}
