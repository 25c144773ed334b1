package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"youshu-bot/format"
	"youshu-bot/lookup"
	"youshu-bot/model"
	"youshu-bot/query"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const genericFailure = "❌ 查询失败，请稍后再试。"

// Engine performs novel lookups.
type Engine interface {
	Search(ctx context.Context, req query.Request) (lookup.View, error)
	ByID(ctx context.Context, id int64) (lookup.View, error)
	Random(ctx context.Context) (lookup.View, error)
}

// Renderer turns a lookup view into a chat message.
type Renderer interface {
	Render(ctx context.Context, v lookup.View) format.Message
}

// Storage defines persistence used by bot handlers.
type Storage interface {
	SetSetting(ctx context.Context, key, value string) error
	AddLookup(ctx context.Context, kind, keyword string, novelID int64) error
	CountLookups(ctx context.Context) (int, error)
	TopKeywords(ctx context.Context, limit int) ([]model.KeywordCount, error)
}

// SchedulerUpdater updates the daily push schedule.
type SchedulerUpdater interface {
	UpdateTime(pushTime string) error
}

// Bot handles Telegram updates.
type Bot struct {
	Sender    Sender
	Engine    Engine
	Renderer  Renderer
	Storage   Storage
	Scheduler SchedulerUpdater
	Settings  *Settings
	Logger    *slog.Logger
}

// ProcessUpdate dispatches a Telegram update. A panic in a handler is caught
// here, logged with context, and answered with one generic failure message.
func (b *Bot) ProcessUpdate(ctx context.Context, update Update) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler_panic",
				slog.Any("panic", r),
				slog.Int("update_id", update.UpdateID),
				slog.String("text", msg.Text))
			_, _ = b.Sender.SendText(ctx, msg.Chat.ID, genericFailure)
		}
	}()

	b.handleMessage(ctx, logger, msg)
}

func (b *Bot) handleMessage(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message) {
	if b.Settings.ChatID() != 0 && msg.Chat.ID != b.Settings.ChatID() {
		return
	}

	if !msg.IsCommand() {
		// The random-novel trigger is a bare phrase, not a slash command.
		if strings.TrimSpace(msg.Text) == "随机小说" {
			b.handleRandom(ctx, logger, msg.Chat.ID)
		}
		return
	}
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	if b.Settings.ChatID() == 0 && command != "start" {
		_, _ = b.Sender.SendText(ctx, msg.Chat.ID, "请先发送 /start 注册当前会话。")
		return
	}

	switch command {
	case "start":
		b.handleStart(ctx, msg.Chat.ID)
	case "ys":
		b.handleSearch(ctx, logger, msg.Chat.ID, args)
	case "testys":
		b.handleByID(ctx, logger, msg.Chat.ID, args)
	case "random":
		b.handleRandom(ctx, logger, msg.Chat.ID)
	case "settings":
		b.handleSettings(ctx, logger, msg.Chat.ID, args)
	case "stats":
		b.handleStats(ctx, logger, msg.Chat.ID)
	default:
		_, _ = b.Sender.SendText(ctx, msg.Chat.ID, "未知指令。可用: /ys /testys /random /settings /stats")
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.Settings.SetChatID(chatID)
	_ = b.Storage.SetSetting(ctx, "chat_id", strconv.FormatInt(chatID, 10))
	message := "欢迎使用优书搜索。\n指令: /ys 书名 [序号|-页码], /testys [id], /random 或「随机小说」, /settings, /stats"
	_, _ = b.Sender.SendText(ctx, chatID, message)
}

func (b *Bot) handleSearch(ctx context.Context, logger *slog.Logger, chatID int64, args string) {
	req, err := query.Parse(args)
	if err != nil {
		_, _ = b.Sender.SendText(ctx, chatID, "❌ 请提供书名进行搜索。")
		return
	}

	view, err := b.Engine.Search(ctx, req)
	if b.reportError(ctx, logger, chatID, "search_failed", err) {
		return
	}
	b.recordLookup(ctx, logger, "search", req.Keyword, view)
	b.deliver(ctx, logger, chatID, view)
}

func (b *Bot) handleByID(ctx context.Context, logger *slog.Logger, chatID int64, args string) {
	id := int64(1)
	if args != "" {
		parsed, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			_, _ = b.Sender.SendText(ctx, chatID, "❌ 用法: /testys [书籍ID]")
			return
		}
		id = parsed
	}

	view, err := b.Engine.ByID(ctx, id)
	if b.reportError(ctx, logger, chatID, "byid_failed", err) {
		return
	}
	b.recordLookup(ctx, logger, "byid", "", view)
	b.deliver(ctx, logger, chatID, view)
}

func (b *Bot) handleRandom(ctx context.Context, logger *slog.Logger, chatID int64) {
	view, err := b.Engine.Random(ctx)
	if b.reportError(ctx, logger, chatID, "random_failed", err) {
		return
	}
	b.recordLookup(ctx, logger, "random", "", view)
	b.deliver(ctx, logger, chatID, view)
}

func (b *Bot) handleSettings(ctx context.Context, logger *slog.Logger, chatID int64, args string) {
	if args == "" {
		pushTime := b.Settings.PushTime()
		if pushTime == "" {
			pushTime = "未启用"
		}
		_, _ = b.Sender.SendText(ctx, chatID, fmt.Sprintf("每日推送时间: %s", pushTime))
		return
	}
	parts := strings.Fields(args)
	if len(parts) != 2 || parts[0] != "time" {
		_, _ = b.Sender.SendText(ctx, chatID, "用法: /settings time HH:MM")
		return
	}
	if b.Scheduler == nil {
		_, _ = b.Sender.SendText(ctx, chatID, "每日推送未启用，请在配置文件中设置 daily_random_time。")
		return
	}
	if err := b.Scheduler.UpdateTime(parts[1]); err != nil {
		logger.Warn("schedule_update_failed", slog.String("error", err.Error()))
		_, _ = b.Sender.SendText(ctx, chatID, "用法: /settings time HH:MM")
		return
	}
	b.Settings.SetPushTime(parts[1])
	_ = b.Storage.SetSetting(ctx, "push_time", parts[1])
	_, _ = b.Sender.SendText(ctx, chatID, fmt.Sprintf("每日推送时间已更新为 %s", parts[1]))
}

func (b *Bot) handleStats(ctx context.Context, logger *slog.Logger, chatID int64) {
	total, err := b.Storage.CountLookups(ctx)
	if err != nil {
		logger.Warn("stats_count_failed", slog.String("error", err.Error()))
		return
	}
	if total == 0 {
		_, _ = b.Sender.SendText(ctx, chatID, "还没有查询记录。")
		return
	}
	keywords, err := b.Storage.TopKeywords(ctx, 5)
	if err != nil {
		logger.Warn("stats_keywords_failed", slog.String("error", err.Error()))
		return
	}
	var bld strings.Builder
	fmt.Fprintf(&bld, "共处理 %d 次查询。\n热门关键词:\n", total)
	for _, kc := range keywords {
		fmt.Fprintf(&bld, "- %s: %d\n", kc.Keyword, kc.Count)
	}
	_, _ = b.Sender.SendText(ctx, chatID, strings.TrimSpace(bld.String()))
}

// reportError sends a UserError verbatim and collapses everything else into
// one generic failure message. It reports whether delivery should stop.
func (b *Bot) reportError(ctx context.Context, logger *slog.Logger, chatID int64, event string, err error) bool {
	if err == nil {
		return false
	}
	var uerr lookup.UserError
	if errors.As(err, &uerr) {
		_, _ = b.Sender.SendText(ctx, chatID, string(uerr))
		return true
	}
	logger.Warn(event, slog.String("error", err.Error()))
	_, _ = b.Sender.SendText(ctx, chatID, genericFailure)
	return true
}

func (b *Bot) recordLookup(ctx context.Context, logger *slog.Logger, kind, keyword string, view lookup.View) {
	var novelID int64
	if view.Detail != nil {
		novelID = view.Detail.Record.ID
	}
	if err := b.Storage.AddLookup(ctx, kind, keyword, novelID); err != nil {
		logger.Warn("lookup_log_failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) deliver(ctx context.Context, logger *slog.Logger, chatID int64, view lookup.View) {
	msg := b.Renderer.Render(ctx, view)
	var err error
	if msg.CoverBase64 != "" {
		_, err = b.Sender.SendPhoto(ctx, chatID, msg.CoverBase64, msg.Text)
	} else {
		_, err = b.Sender.SendText(ctx, chatID, msg.Text)
	}
	if err != nil {
		logger.Warn("send_failed", slog.String("error", err.Error()))
	}
}
