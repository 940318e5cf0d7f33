package uploaders

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramCaptionLimit = 1024

// TelegramUploader posts the finished video to a channel or chat.
type TelegramUploader struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramUploader connects with botToken. endpoint overrides the Bot API
// URL format (tgbotapi.APIEndpoint when empty).
func NewTelegramUploader(botToken string, chatID int64, endpoint string) (*TelegramUploader, error) {
	if botToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN not set")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	api.Debug = false
	return &TelegramUploader{api: api, chatID: chatID}, nil
}

// SetChatID updates the chat the videos are posted to
func (t *TelegramUploader) SetChatID(chatID int64) {
	t.chatID = chatID
}

// Platform returns the platform name
func (t *TelegramUploader) Platform() string {
	return "telegram"
}

// Upload uploads a video to Telegram channel
func (t *TelegramUploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if t.chatID == 0 {
		err := errors.New("POSTS_CHAT_ID not set")
		return failed(t.Platform(), "Missing chat ID", err), err
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return failed(t.Platform(), "Failed to open video", err), err
	}
	if err := ctx.Err(); err != nil {
		return failed(t.Platform(), "Cancelled", err), err
	}

	caption := req.Caption
	if caption == "" {
		caption = req.Title
	}

	msg := tgbotapi.NewVideo(t.chatID, tgbotapi.FilePath(req.VideoPath))
	msg.Caption = truncateRunes(caption, telegramCaptionLimit)
	msg.SupportsStreaming = true
	if req.ThumbnailPath != "" {
		msg.Thumb = tgbotapi.FilePath(req.ThumbnailPath)
	}

	sent, err := t.api.Send(msg)
	if err != nil {
		return failed(t.Platform(), "Send failed", err), fmt.Errorf("telegram post failed: %w", err)
	}

	return &UploadResult{
		Success:  true,
		Platform: t.Platform(),
		Details: map[string]string{
			"status":     "video sent to channel",
			"message_id": strconv.Itoa(sent.MessageID),
			"file":       filepath.Base(req.VideoPath),
		},
	}, nil
}
