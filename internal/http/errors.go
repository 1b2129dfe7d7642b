package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/repo"
)

// storeError maps a store failure to a status; unexpected errors are logged and answered with 500.
func (h *Handler) storeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repo.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, domain.ErrBadDate), errors.Is(err, domain.ErrEndBeforeStart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger(c).Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
