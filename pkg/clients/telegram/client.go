package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dimasfr/gudangbot/internal/config"
)

// Client exposes the Bot API operations used by the application.
type Client interface {
	SendText(ctx context.Context, chatID int64, text string, markup ReplyMarkup) error
	EditText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	AnswerCallback(ctx context.Context, callbackID string) error
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	fileClient *resty.Client
}

// NewClient builds a Telegram Bot API client using the provided
// configuration values.
func NewClient(cfg config.TelegramConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	apiClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", base, cfg.BotToken)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	fileClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/file/bot%s", base, cfg.BotToken)).
		SetTimeout(30 * time.Second)

	return &APIClient{httpClient: apiClient, fileClient: fileClient}
}

// apiResponse is the Bot API envelope.
type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

// SendText delivers a text message with an optional keyboard.
func (c *APIClient) SendText(ctx context.Context, chatID int64, text string, markup ReplyMarkup) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", payload)
}

// EditText rewrites a previously sent message in place.
func (c *APIClient) EditText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", payload)
}

// DeleteMessage removes a sent message.
func (c *APIClient) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	})
}

// AnswerCallback acknowledges an inline button press so the client stops
// showing its progress spinner.
func (c *APIClient) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
	})
}

// DownloadPhoto resolves a file id to its storage path and fetches the
// bytes.
func (c *APIClient) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	result := new(apiResponse[File])
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"file_id": fileID}).
		SetResult(result).
		Post("/getFile")
	if err != nil {
		return nil, fmt.Errorf("getFile request: %w", err)
	}
	if resp.IsError() || !result.OK {
		return nil, fmt.Errorf("getFile failed: %s (code %d)", result.Description, result.ErrorCode)
	}
	if result.Result.FilePath == "" {
		return nil, fmt.Errorf("getFile returned no file path for %s", fileID)
	}

	fileResp, err := c.fileClient.R().SetContext(ctx).Get("/" + result.Result.FilePath)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", result.Result.FilePath, err)
	}
	if fileResp.IsError() {
		return nil, fmt.Errorf("download %s: status %d", result.Result.FilePath, fileResp.StatusCode())
	}
	return fileResp.Body(), nil
}

func (c *APIClient) call(ctx context.Context, method string, payload map[string]any) error {
	result := new(apiResponse[any])
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(result).
		Post("/" + method)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	if resp.IsError() || !result.OK {
		return fmt.Errorf("%s failed: %s (code %d)", method, result.Description, result.ErrorCode)
	}
	return nil
}
