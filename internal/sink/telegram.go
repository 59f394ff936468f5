package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chatlytics/logmonitor/pkg/types"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSink notifies an admin chat about each emitted report via the Bot
// API sendMessage call. Best-effort like every remote sink.
type TelegramSink struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// TelegramConfig holds Telegram notifier configuration
type TelegramConfig struct {
	Token  string
	ChatID string
	// BaseURL overrides the Bot API host, for tests.
	BaseURL string
	Timeout time.Duration
}

// NewTelegramSink creates a new Telegram notifier
func NewTelegramSink(cfg TelegramConfig) *TelegramSink {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramAPIBase
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &TelegramSink{
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Deliver sends a short plain-text summary of the report to the admin chat.
func (s *TelegramSink) Deliver(ctx context.Context, report *types.ErrorReport) error {
	text := fmt.Sprintf("[%s/%s] %s\nsource: %s at %s",
		report.Category,
		report.Priority,
		report.PrimaryMessage,
		report.SourceFile,
		report.Timestamp.Format("2006-01-02 15:04:05"),
	)

	body, err := json.Marshal(sendMessageRequest{ChatID: s.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal sendMessage request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Bot API: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Bot API returned status %d", resp.StatusCode)
	}

	return nil
}

// Name returns the sink name
func (s *TelegramSink) Name() string {
	return "telegram"
}
