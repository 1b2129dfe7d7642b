package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Leul120/portfolio/internal/config"
	"github.com/Leul120/portfolio/internal/log"
	"github.com/Leul120/portfolio/internal/mail"
	"github.com/Leul120/portfolio/internal/queue"
)

func notifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Mail the site owner about new registrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return notify(cmd.Context())
		},
	}
}

func notify(parent context.Context) error {
	cfg := config.Load()
	logger, err := log.Init(cfg.LogProd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.RabbitURL == "" {
		return errors.New("RABBIT_URL is required")
	}
	if !cfg.Mail.Enabled() {
		return errors.New("SMTP_HOST and MAIL_FROM are required")
	}

	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.NotifyQueue, queue.KeyUserRegistered)
	if err != nil {
		return err
	}
	defer cons.Close()

	relay := mail.NewSMTPRelay(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password)
	notifier := mail.NewNotifier(relay, cfg.Mail.From, cfg.Mail.ContactRecipient, cfg.AppURL)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier up",
		zap.String("exchange", cfg.RabbitExchange),
		zap.String("queue", cfg.NotifyQueue),
		zap.Int("workers", cfg.NotifyWorkers))

	return cons.Consume(ctx, cfg.NotifyWorkers, signupHandler(notifier, logger))
}

type signupNotifier interface {
	SendSignupNotice(ctx context.Context, email, name string, at time.Time) error
}

func signupHandler(n signupNotifier, logger *zap.Logger) queue.Handler {
	return func(ctx context.Context, body []byte) error {
		var ev queue.UserRegistered
		if err := json.Unmarshal(body, &ev); err != nil || ev.Email == "" {
			logger.Warn("dropping malformed user.registered event", zap.ByteString("body", body))
			return queue.ErrDrop
		}
		sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := n.SendSignupNotice(sendCtx, ev.Email, ev.Name, ev.At); err != nil {
			logger.Error("signup notice failed", zap.String("user_id", ev.UserID), zap.Error(err))
			return fmt.Errorf("signup notice for %s: %w", ev.UserID, err)
		}
		logger.Info("signup notice sent", zap.String("user_id", ev.UserID))
		return nil
	}
}
