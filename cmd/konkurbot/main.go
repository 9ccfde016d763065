package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parsarad/konkurbot/internal/api"
	"github.com/parsarad/konkurbot/internal/clockutil"
	"github.com/parsarad/konkurbot/internal/config"
	"github.com/parsarad/konkurbot/internal/events"
	"github.com/parsarad/konkurbot/internal/handlers"
	"github.com/parsarad/konkurbot/internal/metrics"
	"github.com/parsarad/konkurbot/internal/repository/postgres"
	"github.com/parsarad/konkurbot/internal/service"
	"github.com/parsarad/konkurbot/internal/telegram"
	"github.com/parsarad/konkurbot/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting konkurbot...")

	clk, err := clockutil.New(cfg.Timezone)
	if err != nil {
		l.Fatalf("Failed to load timezone: %v", err)
	}

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate("migrations"); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db.DB)
	reminderRepo := postgres.NewReminderRepository(db.DB)
	logRepo := postgres.NewDeliveryLogRepository(db.DB)
	optOutRepo := postgres.NewOptOutRepository(db.DB)
	eventRepo := postgres.NewEventRepository(db.DB)

	// Service layer
	m := metrics.New(prometheus.DefaultRegisterer)
	registry := events.NewRegistry(eventRepo)
	svc := service.New(l, clk, m, userRepo, reminderRepo, logRepo, optOutRepo, registry)

	// Telegram bot
	bot, err := telegram.NewBot(cfg.TelegramToken, l)
	if err != nil {
		l.Fatalf("Failed to create Telegram bot: %v", err)
	}

	bot.RegisterCommand("start", handlers.NewStartHandler(svc, l))
	bot.RegisterCommand("help", handlers.NewHelpHandler(l))

	// Countdown handlers
	bot.RegisterCommand("countdown", handlers.NewCountdownHandler(svc, l))
	bot.RegisterCommand("exams", handlers.NewExamsListHandler(svc, l))
	bot.RegisterCommand("examremind", handlers.NewExamRemindHandler(svc, l))

	// Personal reminder handlers
	bot.RegisterCommand("remind", handlers.NewRemindHandler(svc, l))
	bot.RegisterCommand("reminders", handlers.NewRemindersListHandler(svc, l))
	bot.RegisterCommand("delremind", handlers.NewRemindDeleteHandler(svc, l))
	bot.RegisterCommand("togglereminder", handlers.NewRemindToggleHandler(svc, l))

	// Broadcast opt-in handlers
	bot.RegisterCommand("optout", handlers.NewOptOutHandler(svc, false, l))
	bot.RegisterCommand("optin", handlers.NewOptOutHandler(svc, true, l))

	// Admin handlers
	bot.RegisterCommand("broadcast_add", handlers.NewBroadcastAddHandler(svc, cfg.IsAdmin, l))
	bot.RegisterCommand("broadcast_list", handlers.NewBroadcastListHandler(svc, cfg.IsAdmin, l))
	bot.RegisterCommand("broadcast_del", handlers.NewBroadcastDeleteHandler(svc, cfg.IsAdmin, l))
	bot.RegisterCommand("broadcast_toggle", handlers.NewBroadcastToggleHandler(svc, cfg.IsAdmin, l))
	bot.RegisterCommand("stats", handlers.NewStatsHandler(svc, cfg.IsAdmin, l))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Scheduler loops, one per reminder kind
	svc.StartSchedulers(ctx, bot)

	// Ops HTTP server
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}
	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	// Prometheus metrics
	metricsServer := &http.Server{
		Addr:    ":" + cfg.PrometheusPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		l.Infof("Metrics listening on :%s", cfg.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("Metrics server error: %v", err)
		}
	}()

	// Telegram long polling
	go func() {
		if err := bot.Start(ctx); err != nil {
			l.Errorf("Bot error: %v", err)
		}
	}()

	l.Info("konkurbot started")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	httpServer.Close()
	metricsServer.Close()

	l.Info("konkurbot stopped")
}
