package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/pkg/clients/telegram"
)

type fakeService struct {
	events []models.Event
	err    error
}

func (s *fakeService) HandleEvent(_ context.Context, ev models.Event) error {
	s.events = append(s.events, ev)
	return s.err
}

type fakeClient struct {
	answered []string
}

func (c *fakeClient) SendText(context.Context, int64, string, telegram.ReplyMarkup) error { return nil }
func (c *fakeClient) EditText(context.Context, int64, int64, string, *telegram.InlineKeyboardMarkup) error {
	return nil
}
func (c *fakeClient) DeleteMessage(context.Context, int64, int64) error { return nil }
func (c *fakeClient) AnswerCallback(_ context.Context, id string) error {
	c.answered = append(c.answered, id)
	return nil
}
func (c *fakeClient) DownloadPhoto(context.Context, string) ([]byte, error) { return nil, nil }

func post(t *testing.T, h *WebhookHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.Receive)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReceiveTextMessage(t *testing.T) {
	svc := &fakeService{}
	h := NewWebhookHandler(svc, &fakeClient{}, "", zap.NewNop())

	body := `{"update_id":1,"message":{"message_id":10,"from":{"id":7,"username":"dimas"},"chat":{"id":100},"text":"Add Stock"}}`
	w := post(t, h, body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.events, 1)
	ev := svc.events[0]
	assert.Equal(t, int64(100), ev.ChatID)
	assert.Equal(t, int64(7), ev.UserID)
	assert.Equal(t, "dimas", ev.Username)
	assert.Equal(t, "Add Stock", ev.Text)
	assert.False(t, ev.HasMedia)
}

func TestReceivePhotoMessagePicksLargestSize(t *testing.T) {
	svc := &fakeService{}
	h := NewWebhookHandler(svc, &fakeClient{}, "", zap.NewNop())

	body := `{"update_id":2,"message":{"message_id":11,"from":{"id":7},"chat":{"id":100},
		"photo":[{"file_id":"small","width":90,"height":90},{"file_id":"big","width":800,"height":800}]}}`
	w := post(t, h, body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.events, 1)
	assert.Equal(t, "big", svc.events[0].PhotoFileID)
	assert.True(t, svc.events[0].HasMedia)
}

func TestReceiveCallbackAnswersAndDispatches(t *testing.T) {
	svc := &fakeService{}
	client := &fakeClient{}
	h := NewWebhookHandler(svc, client, "", zap.NewNop())

	body := `{"update_id":3,"callback_query":{"id":"cb-1","from":{"id":7,"username":"dimas"},
		"message":{"message_id":42,"chat":{"id":100}},"data":"recap|SFP"}}`
	w := post(t, h, body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"cb-1"}, client.answered)
	require.Len(t, svc.events, 1)
	assert.Equal(t, "recap|SFP", svc.events[0].Button)
	assert.Equal(t, int64(42), svc.events[0].MessageID)
}

func TestReceiveRejectsWrongSecret(t *testing.T) {
	svc := &fakeService{}
	h := NewWebhookHandler(svc, &fakeClient{}, "top-secret", zap.NewNop())

	body := `{"update_id":1,"message":{"from":{"id":7},"chat":{"id":100},"text":"hi"}}`

	w := post(t, h, body, map[string]string{secretTokenHeader: "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, svc.events)

	w = post(t, h, body, map[string]string{secretTokenHeader: "top-secret"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, svc.events, 1)
}

func TestReceiveDropsUpdatesWithoutContent(t *testing.T) {
	svc := &fakeService{}
	h := NewWebhookHandler(svc, &fakeClient{}, "", zap.NewNop())

	w := post(t, h, `{"update_id":9}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.events)
}

func TestReceiveStillAcksProcessingErrors(t *testing.T) {
	svc := &fakeService{err: assert.AnError}
	h := NewWebhookHandler(svc, &fakeClient{}, "", zap.NewNop())

	body := `{"update_id":1,"message":{"from":{"id":7},"chat":{"id":100},"text":"hi"}}`
	w := post(t, h, body, nil)

	// Telegram redelivers on non-2xx, so engine failures are acknowledged.
	assert.Equal(t, http.StatusOK, w.Code)
}
