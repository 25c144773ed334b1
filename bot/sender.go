package bot

import (
	"context"
	"encoding/base64"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender sends messages to Telegram.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	// SendPhoto sends an inline image (base64-encoded bytes) with a caption.
	SendPhoto(ctx context.Context, chatID int64, photoBase64, caption string) (int, error)
}

// TelegramSender implements Sender using tgbotapi.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

// NewTelegramSender creates a new sender.
func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// SendText sends a plain text message.
func (s *TelegramSender) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = ""
	resp, err := s.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

// SendPhoto sends an inline image with a caption. A photo that cannot be
// decoded degrades to a plain text message.
func (s *TelegramSender) SendPhoto(ctx context.Context, chatID int64, photoBase64, caption string) (int, error) {
	data, err := base64.StdEncoding.DecodeString(photoBase64)
	if err != nil || len(data) == 0 {
		return s.SendText(ctx, chatID, caption)
	}
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "cover.jpg", Bytes: data})
	msg.Caption = caption
	resp, err := s.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}
