package security_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Leul120/portfolio/internal/security"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempRSA(t *testing.T) string {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rsa.pem")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, pem.Encode(f, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)}))
	return path
}

func TestHMAC_IssueVerify(t *testing.T) {
	tokens := security.NewHMACTokens("s3cret", time.Hour)

	tok, err := tokens.Issue("64b7f0c2a1e4f3b2c1d0e9f8", "admin")
	require.NoError(t, err)

	c, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1e4f3b2c1d0e9f8", c.Subject)
	assert.Equal(t, "admin", c.Role)
	assert.NotNil(t, c.ExpiresAt)
}

func TestHMAC_VerifyIsRepeatable(t *testing.T) {
	tokens := security.NewHMACTokens("s3cret", time.Hour)
	tok, err := tokens.Issue("abc", "user")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		c, err := tokens.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, "abc", c.Subject)
	}
}

func TestHMAC_Rejects(t *testing.T) {
	good := security.NewHMACTokens("s3cret", time.Hour)
	tok, err := good.Issue("abc", "user")
	require.NoError(t, err)

	expired, err := security.NewHMACTokens("s3cret", -time.Minute).Issue("abc", "user")
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "abc"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := map[string]struct {
		svc   security.TokenService
		token string
	}{
		"wrong secret": {security.NewHMACTokens("other", time.Hour), tok},
		"tampered":     {good, tok[:len(tok)-2] + "xx"},
		"malformed":    {good, "not-a-jwt"},
		"empty":        {good, ""},
		"expired":      {good, expired},
		"missing exp":  {good, noExp},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.svc.Verify(tc.token)
			assert.ErrorIs(t, err, security.ErrInvalidToken)
		})
	}
}

func TestRS256_RoundTripAndJWKS(t *testing.T) {
	km, err := security.NewKeyManager("kidA", writeTempRSA(t), "kidN", writeTempRSA(t))
	require.NoError(t, err)
	tokens := security.NewRSATokens(km, time.Minute)

	tok, err := tokens.Issue("u1", "admin")
	require.NoError(t, err)

	c, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Subject)

	set := km.JWKS()
	require.Len(t, set.Keys, 2)
	assert.Equal(t, "kidA", set.Keys[0].Kid)
	assert.Equal(t, "RS256", set.Keys[0].Alg)
}

func TestRS256_RejectsForeignKey(t *testing.T) {
	k1, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	k2, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tok, err := security.NewRSATokens(security.NewKeyManagerFromKey("k", k1), time.Minute).Issue("u1", "user")
	require.NoError(t, err)

	_, err = security.NewRSATokens(security.NewKeyManagerFromKey("k", k2), time.Minute).Verify(tok)
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	_, err = security.NewRSATokens(security.NewKeyManagerFromKey("other", k1), time.Minute).Verify(tok)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestHMAC_DoesNotAcceptRS256(t *testing.T) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tok, err := security.NewRSATokens(security.NewKeyManagerFromKey("k", k), time.Minute).Issue("u1", "user")
	require.NoError(t, err)

	_, err = security.NewHMACTokens("s3cret", time.Minute).Verify(tok)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}
