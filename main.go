package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hnwatch/internal/config"
	"hnwatch/internal/hn"
	"hnwatch/internal/notifier"
	"hnwatch/internal/scheduler"
	"hnwatch/internal/storage"
	"hnwatch/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		log.WarnContext(ctx, ".env file is not loaded",
			"error", err)
	}

	cfg := config.LoadConfig()

	db, err := storage.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize storage",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close storage",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "Storage is initialized",
		"dbPath", cfg.DBPath)

	client := hn.NewClient(cfg.APIBaseURL, cfg.FetchTimeout, log)

	st := store.New(db, client, cfg.DefaultQuery, log)
	st.Initialize(ctx)

	sender := initSender(ctx, cfg, log)
	n := notifier.New(db, client, sender, cfg.DefaultQuery, log)
	n.AnnounceOnce(ctx)

	sched := scheduler.New(ctx, st, n, cfg.CheckCronSpec, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", cfg.CheckCronSpec,
			"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", cfg.CheckCronSpec,
		"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())
}

func initSender(ctx context.Context, cfg config.Config, log *slog.Logger) notifier.Sender {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		log.WarnContext(ctx, "Telegram delivery is not configured so log fallback will be used",
			"envVars", "TELEGRAM_TOKEN, TELEGRAM_CHAT_ID")

		return notifier.NewLogSender(log)
	}

	sender, err := notifier.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create Telegram sender so log fallback will be used",
			"error", err)

		return notifier.NewLogSender(log)
	}

	log.InfoContext(ctx, "Telegram sender is initialized",
		"chatID", cfg.TelegramChatID)

	return sender
}
