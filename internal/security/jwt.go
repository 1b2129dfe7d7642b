package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies bearer tokens. Verify has no side effects.
type TokenService interface {
	Issue(subject, role string) (string, error)
	Verify(token string) (*Claims, error)
}

func newClaims(subject, role string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

type HMACTokens struct {
	secret []byte
	ttl    time.Duration
}

func NewHMACTokens(secret string, ttl time.Duration) *HMACTokens {
	return &HMACTokens{secret: []byte(secret), ttl: ttl}
}

func (h *HMACTokens) Issue(subject, role string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims(subject, role, h.ttl))
	return t.SignedString(h.secret)
}

func (h *HMACTokens) Verify(token string) (*Claims, error) {
	return parse(token, []string{jwt.SigningMethodHS256.Name}, func(*jwt.Token) (interface{}, error) {
		return h.secret, nil
	})
}

type RSATokens struct {
	km  *KeyManager
	ttl time.Duration
}

func NewRSATokens(km *KeyManager, ttl time.Duration) *RSATokens {
	return &RSATokens{km: km, ttl: ttl}
}

func (r *RSATokens) Issue(subject, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, newClaims(subject, role, r.ttl))
	token.Header["kid"] = r.km.Active.Kid
	return token.SignedString(r.km.Active.Private)
}

func (r *RSATokens) Verify(token string) (*Claims, error) {
	return parse(token, []string{jwt.SigningMethodRS256.Name}, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if pk, ok := r.km.PublicByKid(kid); ok {
			return pk, nil
		}
		return nil, fmt.Errorf("unknown kid %q", kid)
	})
}

func (r *RSATokens) Keys() *KeyManager { return r.km }

func parse(token string, methods []string, keyFunc jwt.Keyfunc) (*Claims, error) {
	c := &Claims{}
	t, err := jwt.ParseWithClaims(token, c, keyFunc,
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
