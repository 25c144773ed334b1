// Package push delivers one random novel to the registered chat on the
// daily schedule.
package push

import (
	"context"
	"errors"
	"log/slog"

	"youshu-bot/format"
	"youshu-bot/lookup"
)

// Engine draws the random novel.
type Engine interface {
	Random(ctx context.Context) (lookup.View, error)
}

// Renderer turns the view into a chat message.
type Renderer interface {
	Render(ctx context.Context, v lookup.View) format.Message
}

// Sender delivers chat messages.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photoBase64, caption string) (int, error)
}

// Runner orchestrates one scheduled push.
type Runner struct {
	Engine   Engine
	Renderer Renderer
	Sender   Sender
	ChatID   func() int64
	Logger   *slog.Logger
}

// Run draws and delivers one random novel. An exhausted sampling budget is
// delivered as its user-visible message, not treated as a failure.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chatID := r.ChatID()
	if chatID == 0 {
		return errors.New("chat not registered")
	}

	view, err := r.Engine.Random(ctx)
	if err != nil {
		var uerr lookup.UserError
		if errors.As(err, &uerr) {
			_, sendErr := r.Sender.SendText(ctx, chatID, string(uerr))
			return sendErr
		}
		return err
	}

	msg := r.Renderer.Render(ctx, view)
	if msg.CoverBase64 != "" {
		_, err = r.Sender.SendPhoto(ctx, chatID, msg.CoverBase64, msg.Text)
	} else {
		_, err = r.Sender.SendText(ctx, chatID, msg.Text)
	}
	if err != nil {
		return err
	}
	logger.Info("daily_push_sent", slog.Int64("chat_id", chatID))
	return nil
}
