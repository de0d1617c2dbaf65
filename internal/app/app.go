// Package app orchestrates the application components and their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/hoteldesk/conciergebot/internal/scheduler"
	"github.com/hoteldesk/conciergebot/internal/server"
)

// App runs the HTTP server, the optional Telegram listener, and the
// scheduler until the context is cancelled or a component fails.
type App struct {
	logger     *slog.Logger
	httpServer *server.Server
	tgBot      *tgbot.Bot
	scheduler  *scheduler.Scheduler
}

// NewApp wires the components together. tgBot may be nil when the
// Telegram channel is not configured.
func NewApp(logger *slog.Logger, httpServer *server.Server, tgBot *tgbot.Bot, sched *scheduler.Scheduler) *App {
	return &App{
		logger:     logger.With("component", "app_orchestrator"),
		httpServer: httpServer,
		tgBot:      tgBot,
		scheduler:  sched,
	}
}

// Run starts all components and blocks until shutdown. It returns an
// error if any component fails during startup or execution.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting application orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting HTTP server...")
		if err := a.httpServer.Run(gCtx); err != nil {
			a.logger.Error("HTTP server stopped with error", "error", err)
			return fmt.Errorf("http server: %w", err)
		}
		a.logger.Info("HTTP server stopped.")
		return nil
	})

	if a.tgBot != nil {
		g.Go(func() error {
			a.logger.Info("Starting Telegram bot listener...")
			a.tgBot.Start(gCtx)
			a.logger.Info("Telegram bot listener stopped.")

			if gCtx.Err() == nil {
				a.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	g.Go(func() error {
		a.logger.Info("Starting scheduler...")
		if err := a.scheduler.Start(); err != nil {
			a.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	a.logger.Info("Application orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Application stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Application stopped gracefully.")
	return nil
}
