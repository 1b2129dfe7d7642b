package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/helper"
	"github.com/Leul120/portfolio/internal/metrics"
	"github.com/Leul120/portfolio/internal/queue"
	"github.com/Leul120/portfolio/internal/repo"
	"github.com/Leul120/portfolio/internal/security"
)

type credentialsReq struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginReq struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

type authResp struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken,omitempty"`
	User         *domain.Principal `json:"user"`
}

// Signup godoc
// @Summary Register a principal
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body credentialsReq true "email and password"
// @Success 200 {object} authResp
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var in credentialsReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	email := domain.NormalizeEmail(in.Email)
	if !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	p := &domain.Principal{Email: email, PasswordHash: hash, Role: domain.RoleUser, Name: strings.TrimSpace(in.Name)}
	if err := h.Store.CreatePrincipal(c.Request.Context(), p); err != nil {
		h.storeError(c, "signup", err)
		return
	}
	tok, err := h.Tokens.Issue(p.ID.Hex(), string(p.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	h.logger(c, helper.EmailField(email)).Info("principal registered")
	h.emit(c, queue.KeyUserRegistered, queue.UserRegistered{
		UserID: p.ID.Hex(), Email: p.Email, Name: p.Name, At: time.Now().UTC(),
	})
	c.JSON(http.StatusOK, authResp{Token: tok, User: p})
}

// Login godoc
// @Summary Sign in with email and password
// @Description With remember=true a refresh token is issued as well.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "credentials"
// @Success 200 {object} authResp
// @Failure 400 {object} map[string]string
// @Router /login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Store.FindPrincipalByEmail(c.Request.Context(), in.Email)
	if err != nil {
		h.storeError(c, "login", err)
		return
	}
	if p == nil || !security.CheckPassword(p.PasswordHash, in.Password) {
		metrics.AuthAttempts.WithLabelValues("password", "rejected").Inc()
		h.logger(c, helper.EmailField(in.Email)).Info("login rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "incorrect email or password"})
		return
	}
	metrics.AuthAttempts.WithLabelValues("password", "ok").Inc()
	h.issueSession(c, p, in.Remember, "password")
}

// issueSession answers with an access token, plus a stored refresh token when asked.
func (h *Handler) issueSession(c *gin.Context, p *domain.Principal, withRefresh bool, method string) {
	tok, err := h.Tokens.Issue(p.ID.Hex(), string(p.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	resp := authResp{Token: tok, User: h.present(c.Request.Context(), p)}
	if withRefresh {
		ref, err := security.NewRefreshToken()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh gen"})
			return
		}
		if err := h.Sessions.SaveRefresh(c.Request.Context(), p.ID, ref, h.refreshTTL()); err != nil {
			h.storeError(c, "refresh save", err)
			return
		}
		resp.RefreshToken = ref
	}
	h.emit(c, queue.KeyUserLoggedIn, queue.UserLoggedIn{
		UserID: p.ID.Hex(), Email: p.Email, Method: method, At: time.Now().UTC(),
	})
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) refreshTTL() time.Duration {
	days := h.Config.RefreshTTLDays
	if days <= 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Description The presented token is spent; a new access and refresh pair is returned.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body refreshReq true "refresh token"
// @Success 200 {object} authResp
// @Failure 401 {object} map[string]string
// @Router /refresh-token [post]
func (h *Handler) Refresh(c *gin.Context) {
	var in refreshReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	rt, err := h.Sessions.ConsumeRefresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		h.storeError(c, "refresh", err)
		return
	}
	if rt == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh"})
		return
	}
	p, err := h.Store.FindPrincipalByID(c.Request.Context(), rt.UserID)
	if err != nil {
		h.storeError(c, "refresh", err)
		return
	}
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "principal no longer exists"})
		return
	}
	h.issueSession(c, p, true, "refresh")
}

// Logout godoc
// @Summary Revoke a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body refreshReq true "refresh token"
// @Success 200 {object} map[string]string
// @Router /logout [post]
func (h *Handler) Logout(c *gin.Context) {
	var in refreshReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Sessions.RevokeRefresh(c.Request.Context(), in.RefreshToken); err != nil {
		h.storeError(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

type forgotReq struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword godoc
// @Summary Mail a password reset link
// @Description Always answers 200 so addresses cannot be probed.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body forgotReq true "email"
// @Success 200 {object} map[string]string
// @Router /forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var in forgotReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ok := gin.H{"status": "if the address is registered, a reset link is on its way"}
	l := h.logger(c, helper.EmailField(in.Email))

	p, err := h.Store.FindPrincipalByEmail(c.Request.Context(), in.Email)
	if err != nil || p == nil {
		if err != nil {
			l.Error("forgot password lookup", zap.Error(err))
		}
		c.JSON(http.StatusOK, ok)
		return
	}
	tok, err := security.NewRefreshToken()
	if err == nil {
		err = h.Sessions.CreateEmailToken(c.Request.Context(), p.ID, tok, repo.PurposeReset, resetTTL)
	}
	if err == nil {
		err = h.Mail.SendPasswordReset(c.Request.Context(), p.Email, p.Name, tok)
	}
	if err != nil {
		l.Error("forgot password", zap.Error(err))
	}
	c.JSON(http.StatusOK, ok)
}

type resetReq struct {
	Token    string `json:"token"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ResetPassword godoc
// @Summary Set a new password with a mailed token
// @Description Every open session of the principal is revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body resetReq true "token and new password"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /reset-password [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	et, err := h.Sessions.UseEmailToken(c.Request.Context(), in.Token, repo.PurposeReset)
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
		return
	}
	if err != nil {
		h.storeError(c, "reset password", err)
		return
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	if err := h.Store.SetPassword(c.Request.Context(), et.UserID, hash); err != nil {
		h.storeError(c, "reset password", err)
		return
	}
	if err := h.Sessions.RevokeAllRefresh(c.Request.Context(), et.UserID); err != nil {
		h.logger(c).Warn("revoke sessions after reset", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

// Keys godoc
// @Summary Public signing keys
// @Tags auth
// @Produce json
// @Success 200 {object} security.JWKSet
// @Router /.well-known/jwks.json [get]
func (h *Handler) Keys(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.App.JWKS())
}
