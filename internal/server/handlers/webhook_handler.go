package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/pkg/clients/telegram"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// BotService processes one inbound chat event.
type BotService interface {
	HandleEvent(ctx context.Context, ev models.Event) error
}

// WebhookHandler ingests Telegram webhook callbacks and hands them to the
// bot engine.
type WebhookHandler struct {
	svc    BotService
	bot    telegram.Client
	secret string
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc BotService, bot telegram.Client, secret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, bot: bot, secret: secret, logger: logger}
}

// Receive ingests webhook POST updates from the Bot API. Processing errors
// are logged but still answered with 200: a non-2xx response makes Telegram
// redeliver the same update, and the wizards are not safe to replay.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.secret != "" && c.GetHeader(secretTokenHeader) != h.secret {
		h.logger.Warn("webhook secret mismatch", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ev, ok := eventFromUpdate(update)
	if !ok {
		c.Status(http.StatusOK)
		return
	}

	if update.CallbackQuery != nil {
		if err := h.bot.AnswerCallback(c.Request.Context(), update.CallbackQuery.ID); err != nil {
			h.logger.Warn("failed to answer callback", zap.Error(err))
		}
	}

	if err := h.svc.HandleEvent(c.Request.Context(), ev); err != nil {
		h.logger.Error("failed processing update",
			zap.Int64("update_id", update.UpdateID),
			zap.Int64("user_id", ev.UserID),
			zap.Error(err))
	}

	c.Status(http.StatusOK)
}

// eventFromUpdate lifts a raw update into the transport-neutral event shape.
// Updates without a usable message or button press are dropped.
func eventFromUpdate(update telegram.Update) (models.Event, bool) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.From == nil || cb.Message == nil {
			return models.Event{}, false
		}
		return models.Event{
			ChatID:    cb.Message.Chat.ID,
			UserID:    cb.From.ID,
			Username:  cb.From.Username,
			Button:    cb.Data,
			MessageID: cb.Message.MessageID,
		}, true
	}

	m := update.Message
	if m == nil || m.From == nil {
		return models.Event{}, false
	}
	return models.Event{
		ChatID:      m.Chat.ID,
		UserID:      m.From.ID,
		Username:    m.From.Username,
		Text:        m.Text,
		PhotoFileID: m.BestPhoto(),
		HasMedia:    m.BestPhoto() != "" || m.HasNonPhotoMedia(),
		MessageID:   m.MessageID,
	}, true
}
