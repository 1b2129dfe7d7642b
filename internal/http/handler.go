package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Leul120/portfolio/internal/config"
	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/log"
	"github.com/Leul120/portfolio/internal/mail"
	"github.com/Leul120/portfolio/internal/media"
	"github.com/Leul120/portfolio/internal/oauth"
	"github.com/Leul120/portfolio/internal/queue"
	"github.com/Leul120/portfolio/internal/repo"
	"github.com/Leul120/portfolio/internal/security"
)

const resetTTL = time.Hour

// ProfileStore is the principal document with its embedded collections. *repo.Store implements it.
type ProfileStore interface {
	CreatePrincipal(ctx context.Context, p *domain.Principal) error
	FindPrincipalByEmail(ctx context.Context, email string) (*domain.Principal, error)
	FindPrincipalByID(ctx context.Context, id primitive.ObjectID) (*domain.Principal, error)
	GetShowcase(ctx context.Context, email string) (*domain.Principal, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, u domain.ProfileUpdate) (*domain.Principal, error)
	SetProfilePicture(ctx context.Context, id primitive.ObjectID, img domain.Image) (*domain.Image, error)
	AppendItem(ctx context.Context, id primitive.ObjectID, coll domain.Collection, item domain.Item) (*domain.Principal, error)
	UpdateItem(ctx context.Context, id primitive.ObjectID, coll domain.Collection, itemID primitive.ObjectID, item domain.Item) (*domain.Principal, error)
	RemoveItem(ctx context.Context, id primitive.ObjectID, coll domain.Collection, itemID primitive.ObjectID) (*domain.Principal, error)
	Ping(ctx context.Context) error
}

// SessionStore keeps refresh and password reset tokens.
type SessionStore interface {
	SaveRefresh(ctx context.Context, userID primitive.ObjectID, plain string, ttl time.Duration) error
	ConsumeRefresh(ctx context.Context, plain string) (*repo.RefreshToken, error)
	RevokeRefresh(ctx context.Context, plain string) error
	RevokeAllRefresh(ctx context.Context, userID primitive.ObjectID) error
	CreateEmailToken(ctx context.Context, userID primitive.ObjectID, plain, purpose string, ttl time.Duration) error
	UseEmailToken(ctx context.Context, plain, purpose string) (*repo.EmailToken, error)
}

type Notifier interface {
	SendContact(ctx context.Context, m domain.ContactMessage) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

type GoogleProvider interface {
	MakeState(nonce string) string
	VerifyState(state string) error
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.GoogleUser, error)
}

// App is built once at start and shared by every request.
type App struct {
	Config   config.Config
	Store    ProfileStore
	Sessions SessionStore
	Tokens   security.TokenService
	Mail     Notifier
	Images   media.Store
	Events   queue.Publisher
	Google   GoogleProvider         // nil disables Google sign-in
	JWKS     func() security.JWKSet // nil when tokens are HMAC signed
	Log      *zap.Logger
}

type Handler struct {
	*App
}

func NewHandler(app *App) *Handler {
	if app.Mail == nil {
		app.Mail = mail.NewNotifier(nil, "", "", "")
	}
	if app.Images == nil {
		app.Images = media.Unavailable{}
	}
	if app.Events == nil {
		app.Events = queue.NewNoop()
	}
	if app.Log == nil {
		app.Log = log.L()
	}
	return &Handler{App: app}
}

func (h *Handler) logger(c *gin.Context, fields ...zap.Field) *zap.Logger {
	fields = append(fields, zap.String("request_id", c.GetString(requestIDKey)))
	return log.WithDD(c.Request.Context(), h.Log, fields...)
}

// emit publishes in the background; a broker hiccup never fails the request.
func (h *Handler) emit(c *gin.Context, key string, event any) {
	ctx := context.WithoutCancel(c.Request.Context())
	reqID := c.GetString(requestIDKey)
	l := h.logger(c)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := h.Events.Publish(ctx, key, event, reqID); err != nil {
			l.Warn("publish failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

// present resolves a fresh picture URL before the principal is serialized.
func (h *Handler) present(ctx context.Context, p *domain.Principal) *domain.Principal {
	if p == nil || p.ProfilePicture == nil || p.ProfilePicture.ID == "" {
		return p
	}
	if u, err := h.Images.URL(ctx, p.ProfilePicture.ID); err == nil {
		p.ProfilePicture.URL = u
	}
	return p
}

// Healthz godoc
// @Summary Liveness and database reachability
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
