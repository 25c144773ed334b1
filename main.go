package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"youshu-bot/backend"
	"youshu-bot/bot"
	"youshu-bot/config"
	"youshu-bot/format"
	"youshu-bot/lookup"
	"youshu-bot/push"
	"youshu-bot/scheduler"
	"youshu-bot/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "modernc.org/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logFatal("config load failed", err)
	}

	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("config_loaded")

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		logFatal("open database", err)
	}
	db.SetMaxOpenConns(1)

	store := storage.New(db)
	if err := store.Init(context.Background()); err != nil {
		logFatal("init database", err)
	}

	settings := bot.NewSettings(cfg.ChatID, cfg.DailyRandomTime)
	loadSettings(context.Background(), store, settings, logger)

	be := backend.Select(cfg.SiteBaseURL, cfg.SessionCookie, cfg.FetchTimeout())
	logger.Info("backend_selected", slog.String("backend", be.Name()), slog.String("site", cfg.SiteBaseURL))

	engine := &lookup.Engine{Backend: be, Logger: logger}
	formatter := format.New(cfg.CoverTimeout())

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logFatal("create telegram bot", err)
	}
	sender := bot.NewTelegramSender(api)

	runner := &push.Runner{
		Engine:   engine,
		Renderer: formatter,
		Sender:   sender,
		ChatID:   settings.ChatID,
		Logger:   logger,
	}

	var sched *scheduler.Scheduler
	if settings.PushTime() != "" {
		sched, err = scheduler.New(settings.PushTime(), cfg.Timezone, func() {
			if err := runner.Run(context.Background()); err != nil {
				logger.Warn("daily_push_failed", slog.String("error", err.Error()))
			}
		})
		if err != nil {
			logFatal("init scheduler", err)
		}
		sched.Start()
		logger.Info("scheduler_started", slog.String("push_time", settings.PushTime()))
	}

	botHandler := &bot.Bot{
		Sender:   sender,
		Engine:   engine,
		Renderer: formatter,
		Storage:  store,
		Settings: settings,
		Logger:   logger,
	}
	if sched != nil {
		botHandler.Scheduler = sched
	}

	poller := &bot.Poller{
		API:     api,
		Logger:  logger,
		Handler: func(ctx context.Context, update bot.Update) { botHandler.ProcessUpdate(ctx, update) },
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go poller.Run(ctx)

	<-ctx.Done()
	logger.Info("shutdown")

	if sched != nil {
		sched.Stop()
	}
	if err := db.Close(); err != nil {
		logger.Warn("db_close_failed", slog.String("error", err.Error()))
	}
}

func loadSettings(ctx context.Context, store *storage.Storage, settings *bot.Settings, logger *slog.Logger) {
	if val, ok, err := store.GetSetting(ctx, "chat_id"); err == nil && ok {
		if id, err := strconv.ParseInt(val, 10, 64); err == nil {
			settings.SetChatID(id)
		}
	}
	if val, ok, err := store.GetSetting(ctx, "push_time"); err == nil && ok {
		settings.SetPushTime(val)
	}
	logger.Info("settings_loaded", slog.Int64("chat_id", settings.ChatID()), slog.String("push_time", settings.PushTime()))
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

func logFatal(msg string, err error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}
