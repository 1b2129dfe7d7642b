package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/media"
	"github.com/Leul120/portfolio/internal/queue"
	"github.com/Leul120/portfolio/internal/security"
)

// GetUser godoc
// @Summary Full profile of the signed-in principal
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]domain.Principal
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /get-user [get]
func (h *Handler) GetUser(c *gin.Context) {
	me := currentPrincipal(c)
	p, err := h.Store.FindPrincipalByID(c.Request.Context(), me.ID)
	if err != nil {
		h.storeError(c, "get user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.present(c.Request.Context(), p)})
}

// GetAll godoc
// @Summary The showcased public profile
// @Description user is null when no profile is published yet.
// @Tags profile
// @Produce json
// @Success 200 {object} map[string]domain.Principal
// @Router /get-all [get]
func (h *Handler) GetAll(c *gin.Context) {
	p, err := h.Store.GetShowcase(c.Request.Context(), h.Config.ShowcaseEmail)
	if err != nil {
		h.storeError(c, "get profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.present(c.Request.Context(), p)})
}

// UpdateUser godoc
// @Summary Update top-level profile fields
// @Description Only supplied fields change. A supplied password is re-hashed.
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body domain.ProfileUpdate true "fields to change"
// @Success 200 {object} map[string]domain.Principal
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /update-user [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	var in domain.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if in.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	if in.Password != nil && *in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must not be empty"})
		return
	}
	if in.Email != nil && domain.NormalizeEmail(*in.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email must not be empty"})
		return
	}
	me := currentPrincipal(c)
	p, err := h.Store.UpdateProfile(c.Request.Context(), me.ID, in)
	if err != nil {
		h.storeError(c, "update user", err)
		return
	}
	if in.Password != nil {
		if err := h.Sessions.RevokeAllRefresh(c.Request.Context(), p.ID); err != nil {
			h.logger(c).Warn("revoke sessions after password change", zap.Error(err))
		}
	}
	h.emit(c, queue.KeyProfileUpdated, queue.ProfileUpdated{UserID: p.ID.Hex(), Op: "update", At: time.Now().UTC()})
	c.JSON(http.StatusOK, gin.H{"user": h.present(c.Request.Context(), p)})
}

type createPrincipalReq struct {
	Email    string         `json:"email"    binding:"required"`
	Password string         `json:"password" binding:"required"`
	Role     domain.Role    `json:"role"`
	Name     string         `json:"name"`
	Title    string         `json:"title"`
	Summary  string         `json:"summary"`
	Contact  domain.Contact `json:"contact"`
}

// PostUser godoc
// @Summary Create a principal with profile fields
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body createPrincipalReq true "principal"
// @Success 200 {object} map[string]domain.Principal
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /post-user [post]
func (h *Handler) PostUser(c *gin.Context) {
	var in createPrincipalReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if !in.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	p := &domain.Principal{
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Name:         in.Name,
		Title:        in.Title,
		Summary:      in.Summary,
		Contact:      in.Contact,
	}
	if err := h.Store.CreatePrincipal(c.Request.Context(), p); err != nil {
		h.storeError(c, "create user", err)
		return
	}
	h.emit(c, queue.KeyUserRegistered, queue.UserRegistered{
		UserID: p.ID.Hex(), Email: p.Email, Name: p.Name, At: time.Now().UTC(),
	})
	c.JSON(http.StatusOK, gin.H{"user": p})
}

// UpdateProfilePicture godoc
// @Summary Replace the profile picture
// @Tags profile
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "image up to 5 MiB"
// @Success 200 {object} map[string]domain.Principal
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /update-profile-picture [put]
func (h *Handler) UpdateProfilePicture(c *gin.Context) {
	if _, ok := h.Images.(media.Unavailable); ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are disabled"})
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	ctype := fh.Header.Get("Content-Type")
	if err := media.CheckUpload(ctype, fh.Size); err != nil {
		badRequest(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	me := currentPrincipal(c)
	ctx := c.Request.Context()
	var img *domain.Image
	err = withSpan(ctx, "media.upload", func(ctx context.Context) error {
		var uerr error
		img, uerr = h.Images.Upload(ctx, me.ID.Hex(), fh.Filename, ctype, f, fh.Size)
		return uerr
	})
	switch {
	case errors.Is(err, media.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are disabled"})
		return
	case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrTooLarge):
		badRequest(c, err)
		return
	case err != nil:
		h.logger(c).Error("image upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	prev, err := h.Store.SetProfilePicture(ctx, me.ID, *img)
	if err != nil {
		_ = h.Images.Remove(context.WithoutCancel(ctx), img.ID)
		h.storeError(c, "update profile picture", err)
		return
	}
	if prev != nil && prev.ID != "" && prev.ID != img.ID {
		if err := h.Images.Remove(ctx, prev.ID); err != nil {
			h.logger(c).Warn("remove previous picture", zap.String("key", prev.ID), zap.Error(err))
		}
	}
	p, err := h.Store.FindPrincipalByID(ctx, me.ID)
	if err != nil {
		h.storeError(c, "update profile picture", err)
		return
	}
	h.emit(c, queue.KeyProfileUpdated, queue.ProfileUpdated{UserID: me.ID.Hex(), Op: "picture", At: time.Now().UTC()})
	c.JSON(http.StatusOK, gin.H{"user": h.present(ctx, p)})
}
