package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leul120/portfolio/internal/helper"
	"github.com/Leul120/portfolio/internal/metrics"
	"github.com/Leul120/portfolio/internal/security"
)

// GoogleStart godoc
// @Summary Redirect to Google sign-in
// @Tags auth
// @Success 302
// @Router /auth/google [get]
func (h *Handler) GoogleStart(c *gin.Context) {
	nonce, err := security.NewID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state gen"})
		return
	}
	c.Redirect(http.StatusFound, h.Google.AuthURL(h.Google.MakeState(nonce)))
}

// GoogleCallback godoc
// @Summary Finish Google sign-in
// @Description Only principals that already exist can sign in this way.
// @Tags auth
// @Produce json
// @Param state query string true "signed state"
// @Param code query string true "authorization code"
// @Success 200 {object} authResp
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/google/callback [get]
func (h *Handler) GoogleCallback(c *gin.Context) {
	if err := h.Google.VerifyState(c.Query("state")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	gu, err := h.Google.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger(c).Warn("google exchange", zap.Error(err))
		metrics.AuthAttempts.WithLabelValues("google", "rejected").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google sign-in failed"})
		return
	}
	if !gu.EmailVerified {
		metrics.AuthAttempts.WithLabelValues("google", "rejected").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google email not verified"})
		return
	}
	p, err := h.Store.FindPrincipalByEmail(c.Request.Context(), gu.Email)
	if err != nil {
		h.storeError(c, "google sign-in", err)
		return
	}
	if p == nil {
		h.logger(c, helper.EmailField(gu.Email)).Info("google sign-in for unknown principal")
		metrics.AuthAttempts.WithLabelValues("google", "rejected").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no account for this address"})
		return
	}
	metrics.AuthAttempts.WithLabelValues("google", "ok").Inc()
	h.issueSession(c, p, false, "google")
}
