package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/Leul120/portfolio/docs"
	"github.com/Leul120/portfolio/internal/config"
	api "github.com/Leul120/portfolio/internal/http"
	"github.com/Leul120/portfolio/internal/log"
	"github.com/Leul120/portfolio/internal/mail"
	"github.com/Leul120/portfolio/internal/media"
	"github.com/Leul120/portfolio/internal/metrics"
	"github.com/Leul120/portfolio/internal/oauth"
	"github.com/Leul120/portfolio/internal/queue"
	"github.com/Leul120/portfolio/internal/repo"
	"github.com/Leul120/portfolio/internal/security"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	logger, err := log.Init(cfg.LogProd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.DDEnabled {
		tracer.Start(tracer.WithService(cfg.DDService), tracer.WithServiceVersion(Version))
		defer tracer.Stop()
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(startCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())
	if err := store.EnsureIndexes(startCtx); err != nil {
		return err
	}

	app := &api.App{
		Config:   cfg,
		Store:    store,
		Sessions: store,
		Log:      logger,
	}

	if cfg.JWTKeyPath != "" {
		km, err := security.NewKeyManager(cfg.JWTKeyID, cfg.JWTKeyPath, cfg.JWTNextKeyID, cfg.JWTNextKeyPath)
		if err != nil {
			return err
		}
		app.Tokens = security.NewRSATokens(km, cfg.JWTTTL)
		app.JWKS = km.JWKS
	} else {
		if cfg.JWTSecret == "default_secret_key" {
			logger.Warn("JWT secret is the built-in default; set JWT")
		}
		app.Tokens = security.NewHMACTokens(cfg.JWTSecret, cfg.JWTTTL)
	}

	rds := repo.NewRedis(cfg.RedisAddr)
	if err := rds.Ping(startCtx); err != nil {
		logger.Warn("redis unreachable, presigned urls will not be cached", zap.Error(err))
		rds = nil
	}
	defer rds.Close()

	app.Images = media.Unavailable{}
	if cfg.MinIO.Enabled() {
		var cache media.Cache
		if rds != nil {
			cache = rds
		}
		ms, err := media.NewMinio(startCtx, cfg.MinIO, cache)
		if err != nil {
			logger.Warn("object store unavailable, uploads disabled", zap.Error(err))
		} else {
			app.Images = ms
		}
	} else {
		logger.Warn("object store credentials missing, uploads disabled")
	}

	var relay mail.Relay
	if cfg.Mail.Enabled() {
		relay = mail.NewSMTPRelay(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password)
	} else {
		logger.Warn("mail relay not configured, contact form will fail")
	}
	app.Mail = mail.NewNotifier(relay, cfg.Mail.From, cfg.Mail.ContactRecipient, cfg.AppURL)

	app.Events = queue.NewNoop()
	if cfg.RabbitURL != "" {
		pub, err := queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			logger.Warn("rabbit unavailable, events dropped", zap.Error(err))
		} else {
			app.Events = pub
		}
	}
	defer app.Events.Close()

	if cfg.Google.Enabled() {
		app.Google = oauth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL, cfg.Google.StateSecret)
	}

	metrics.MustRegister()
	docs.SwaggerInfo.BasePath = "/"
	docs.SwaggerInfo.Version = Version

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(api.NewHandler(app)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()
	logger.Info("portfolio listening", zap.String("addr", srv.Addr))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvErr:
		return err
	}

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	return srv.Shutdown(shutCtx)
}
