package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/relay"
)

type fakePipeline struct {
	calls []relay.IncomingMessage
	ctxs  []context.Context
}

func (p *fakePipeline) Handle(ctx context.Context, msg relay.IncomingMessage) relay.Outcome {
	p.calls = append(p.calls, msg)
	p.ctxs = append(p.ctxs, ctx)
	return relay.OutcomeDelivered
}

func serve(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, config.DefaultWebhookPath, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.Handle(c))
	return rec
}

func TestHandleRunsPipeline(t *testing.T) {
	t.Parallel()

	pipeline := &fakePipeline{}
	h := NewHandler(nil, config.Default().Telegram, pipeline)

	rec := serve(t, h, `{"update_id":3,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"https://terabox.com/s/1"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
	require.Len(t, pipeline.calls, 1)
	assert.Equal(t, relay.IncomingMessage{
		UpdateID: 3,
		ChatID:   42,
		Text:     "https://terabox.com/s/1",
		Source:   relay.SourceWebhook,
	}, pipeline.calls[0])
}

func TestHandleAnswersOKWithoutTrigger(t *testing.T) {
	t.Parallel()

	pipeline := &fakePipeline{}
	h := NewHandler(nil, config.Default().Telegram, pipeline)

	rec := serve(t, h, `{"message":{"chat":{"id":42},"text":"hello"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, pipeline.calls, 1)
}

func TestHandleRejectsInvalidData(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"no message": `{"update_id":1}`,
		"no chat":    `{"message":{"text":"terabox"}}`,
		"zero chat":  `{"message":{"chat":{"id":0},"text":"terabox"}}`,
		"no text":    `{"message":{"chat":{"id":42}}}`,
		"empty text": `{"message":{"chat":{"id":42},"text":""}}`,
		"malformed":  `{"message":`,
	}
	for name, body := range bodies {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			pipeline := &fakePipeline{}
			h := NewHandler(nil, config.Default().Telegram, pipeline)

			rec := serve(t, h, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"status":"Invalid data"}`, rec.Body.String())
			assert.Empty(t, pipeline.calls)
		})
	}
}

func TestHandlePipelineContextSurvivesCancel(t *testing.T) {
	t.Parallel()

	pipeline := &fakePipeline{}
	h := NewHandler(nil, config.Default().Telegram, pipeline)

	e := echo.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"message":{"chat":{"id":1},"text":"terabox"}}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Handle(e.NewContext(req, rec)))

	require.Len(t, pipeline.ctxs, 1)
	assert.NoError(t, pipeline.ctxs[0].Err())
}

func TestHandleWithoutPipeline(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, config.Default().Telegram, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	err := h.Handle(e.NewContext(req, httptest.NewRecorder()))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
}

func TestHandleRejectsOversizePayload(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, config.Default().Telegram, &fakePipeline{})
	e := echo.New()
	body := `{"message":{"chat":{"id":1},"text":"` + strings.Repeat("a", int(webhookMaxBodyBytes)) + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	err := h.Handle(e.NewContext(req, httptest.NewRecorder()))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, httpErr.Code)
}

func TestRegisterUsesConfiguredPath(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Telegram
	cfg.WebhookPath = "/hooks/telegram"
	pipeline := &fakePipeline{}
	e := echo.New()
	NewHandler(nil, cfg, pipeline).Register(e)

	req := httptest.NewRequest(http.MethodPost, "/hooks/telegram", strings.NewReader(`{"message":{"chat":{"id":1},"text":"x"}}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, pipeline.calls, 1)
}
