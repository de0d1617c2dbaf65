// Package main contains the entrypoint for the hotel concierge service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/hoteldesk/conciergebot/internal/app"
	"github.com/hoteldesk/conciergebot/internal/config"
	"github.com/hoteldesk/conciergebot/internal/database"
	"github.com/hoteldesk/conciergebot/internal/gemini"
	"github.com/hoteldesk/conciergebot/internal/logger"
	"github.com/hoteldesk/conciergebot/internal/scheduler"
	"github.com/hoteldesk/conciergebot/internal/server"
	"github.com/hoteldesk/conciergebot/internal/session"
	"github.com/hoteldesk/conciergebot/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components, starts the orchestrator,
// and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	registry := session.NewRegistry(gemClient)
	router := session.NewRouter(log, store, registry, session.Options{
		HistoryPrimerLimit: cfg.Session.HistoryPrimerLimit,
		ManualModeReply:    cfg.Messages.ManualModeReply,
		HotelListHeader:    cfg.Messages.HotelListHeader,
	})

	httpServer := server.NewServer(server.Deps{
		Logger: log,
		Store:  store,
		Router: router,
		Config: cfg,
	})

	var tg *tgbot.Bot
	if cfg.Telegram.Token != "" {
		tg, err = telegram.NewTelegramBot(cfg.Telegram.Token, log, router)
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return 1
		}
	} else {
		log.Info("Telegram token not configured, channel disabled")
	}

	taskMap := scheduler.RegisterAllTasks(scheduler.TaskDeps{
		Logger:   log,
		Store:    store,
		Registry: registry,
		Config:   cfg,
	})
	sched, err := scheduler.NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	application := app.NewApp(log, httpServer, tg, sched)

	log.Info("Starting concierge service...", "addr", cfg.Server.Addr)
	runErr := application.Run(ctx)
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Service stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
