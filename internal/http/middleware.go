package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/log"
	"github.com/Leul120/portfolio/internal/security"
)

const (
	requestIDKey = "X-Request-ID"
	principalKey = "principal"
)

// RequestID keeps an incoming X-Request-ID or mints one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDKey, id)
		c.Next()
	}
}

func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithDD(c.Request.Context(), l).Info("http",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

// Protect resolves the bearer token to a stored principal and attaches it to the context.
// Any failure along the way answers 401.
func Protect(tokens security.TokenService, store ProfileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer"})
			return
		}
		claims, err := tokens.Verify(strings.TrimSpace(h[7:]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		id, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		p, err := store.FindPrincipalByID(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "principal no longer exists"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// Policy is an allow-list of roles, built once per route group.
type Policy struct {
	roles map[domain.Role]struct{}
}

func AllowRoles(roles ...domain.Role) Policy {
	p := Policy{roles: make(map[domain.Role]struct{}, len(roles))}
	for _, r := range roles {
		p.roles[r] = struct{}{}
	}
	return p
}

func (p Policy) Allows(r domain.Role) bool {
	_, ok := p.roles[r]
	return ok
}

// RestrictTo must run after Protect.
func RestrictTo(p Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		me := currentPrincipal(c)
		if me == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if !p.Allows(me.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have permission to perform this action"})
			return
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) *domain.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}
