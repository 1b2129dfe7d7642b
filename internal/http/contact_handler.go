package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/helper"
	"github.com/Leul120/portfolio/internal/mail"
	"github.com/Leul120/portfolio/internal/metrics"
)

// ContactUs godoc
// @Summary Forward a contact form to the site owner
// @Description Answers only after the mail relay accepted the message. Nothing is stored.
// @Tags contact
// @Accept json
// @Produce json
// @Param payload body domain.ContactMessage true "message"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /contact-us [post]
func (h *Handler) ContactUs(c *gin.Context) {
	var in domain.ContactMessage
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	err := withSpan(c.Request.Context(), "mail.contact", func(ctx context.Context) error {
		return h.Mail.SendContact(ctx, in)
	})
	if err != nil {
		result := "failed"
		if errors.Is(err, mail.ErrNotConfigured) {
			result = "unconfigured"
		}
		metrics.ContactMails.WithLabelValues(result).Inc()
		h.logger(c, helper.EmailField(in.Email)).Error("contact mail", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "email not sent"})
		return
	}
	metrics.ContactMails.WithLabelValues("sent").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "email sent"})
}
