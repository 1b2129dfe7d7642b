package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/metrics"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(cors.New(corsConfig(h.Config.CORSOrigins)))
	r.Use(metrics.Middleware())
	if h.Config.DDEnabled {
		r.Use(Trace(h.Config.DDService))
	}
	r.Use(AccessLog(h.Log))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", metrics.Handler())
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if h.App.JWKS != nil {
		r.GET("/.well-known/jwks.json", h.Keys)
	}

	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/refresh-token", h.Refresh)
	r.POST("/logout", h.Logout)
	r.POST("/forgot-password", h.ForgotPassword)
	r.POST("/reset-password", h.ResetPassword)
	if h.Google != nil {
		r.GET("/auth/google", h.GoogleStart)
		r.GET("/auth/google/callback", h.GoogleCallback)
	}

	r.POST("/contact-us", h.ContactUs)
	r.GET("/get-all", h.GetAll)

	admin := r.Group("", Protect(h.Tokens, h.Store), RestrictTo(AllowRoles(domain.RoleAdmin)))
	{
		admin.GET("/get-user", h.GetUser)
		admin.POST("/post-user", h.PostUser)
		admin.PUT("/update-user", h.UpdateUser)
		admin.PUT("/update-profile-picture", h.UpdateProfilePicture)

		collectionRoutes[domain.Experience](admin, h, "experience", domain.Experiences)
		collectionRoutes[domain.Skill](admin, h, "skill", domain.Skills)
		collectionRoutes[domain.Education](admin, h, "education", domain.Educations)
		collectionRoutes[domain.Language](admin, h, "language", domain.Languages)
		collectionRoutes[domain.Certificate](admin, h, "certificate", domain.Certificates)
		collectionRoutes[domain.Award](admin, h, "award", domain.Awards)
		collectionRoutes[domain.Publication](admin, h, "publication", domain.Publications)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", requestIDKey)
	cfg.ExposeHeaders = []string{requestIDKey}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
