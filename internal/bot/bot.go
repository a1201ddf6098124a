// Package bot runs the BaristaBot front ends and background jobs under a
// single lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"
)

// HTTPServer serves until ctx is cancelled. *httpapi.Server satisfies it.
type HTTPServer interface {
	Run(ctx context.Context) error
}

// Bot owns the running components. The HTTP server and the Telegram bot are
// each optional, but at least one must be set.
type Bot struct {
	logger    *slog.Logger
	http      HTTPServer
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates the orchestrator. httpServer and tgBot may be nil.
func NewBot(logger *slog.Logger, httpServer HTTPServer, tgBot *tgbot.Bot, scheduler *Scheduler) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		http:      httpServer,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails, in which case the others are stopped too.
func (b *Bot) Run(ctx context.Context) error {
	if b.http == nil && b.tgBot == nil {
		return fmt.Errorf("no front end configured: enable the HTTP API or set a Telegram token")
	}

	b.logger.Info("Starting bot orchestrator...")
	g, gCtx := errgroup.WithContext(ctx)

	if b.http != nil {
		g.Go(func() error {
			if err := b.http.Run(gCtx); err != nil {
				return err
			}
			if gCtx.Err() == nil {
				return fmt.Errorf("http server stopped unexpectedly")
			}
			return nil
		})
	}

	if b.tgBot != nil {
		g.Go(func() error {
			b.logger.Info("Starting Telegram bot listener...")
			b.tgBot.Start(gCtx)
			b.logger.Info("Telegram bot listener stopped.")

			if gCtx.Err() == nil {
				b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	if b.scheduler != nil {
		g.Go(func() error {
			b.logger.Info("Starting scheduler...")
			if err := b.scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
