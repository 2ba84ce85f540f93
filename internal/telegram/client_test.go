package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/media"
)

const testToken = "123:abc"

const sentMessageResult = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`

type recordedRequest struct {
	method      string
	path        string
	query       map[string][]string
	form        map[string][]string
	fileField   string
	filename    string
	partType    string
	fileContent []byte
}

type fakeBotAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.Query()}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			rec.form = r.MultipartForm.Value
			for field, files := range r.MultipartForm.File {
				rec.fileField = field
				rec.filename = files[0].Filename
				rec.partType = files[0].Header.Get("Content-Type")
				if fh, err := files[0].Open(); err == nil {
					rec.fileContent, _ = io.ReadAll(fh)
					_ = fh.Close()
				}
			}
		}
	} else if err := r.ParseForm(); err == nil {
		rec.form = r.PostForm
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	if f.respond != nil {
		f.respond(w, r)
		return
	}
	_, _ = io.WriteString(w, sentMessageResult)
}

func (f *fakeBotAPI) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newFakeClient(t *testing.T, fake *fakeBotAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg := config.Default().Telegram
	cfg.APIBaseURL = srv.URL
	cfg.BotToken = testToken
	return NewClient(nil, cfg, srv.Client())
}

func TestSendText(t *testing.T) {
	t.Parallel()

	fake := &fakeBotAPI{}
	c := newFakeClient(t, fake)

	require.NoError(t, c.SendText(context.Background(), 42, "hello"))
	req := fake.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/bot"+testToken+"/sendMessage", req.path)
	assert.Equal(t, "42", req.form["chat_id"][0])
	assert.Equal(t, "hello", req.form["text"][0])
}

func TestUploadPhotoAndVideo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		kind        media.Kind
		path        string
		field       string
		filename    string
	}{
		{contentType: "image/png", kind: media.KindPhoto, path: "/sendPhoto", field: "photo", filename: "photo.jpg"},
		{contentType: "video/mp4", kind: media.KindVideo, path: "/sendVideo", field: "video", filename: "video.mp4"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			fake := &fakeBotAPI{}
			c := newFakeClient(t, fake)

			kind, err := c.Upload(context.Background(), 42, media.Resource{Data: []byte("BYTES"), ContentType: tt.contentType})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)

			req := fake.last(t)
			assert.Equal(t, "/bot"+testToken+tt.path, req.path)
			assert.Equal(t, "42", req.form["chat_id"][0])
			assert.Equal(t, tt.field, req.fileField)
			assert.Equal(t, tt.filename, req.filename)
			assert.Equal(t, []byte("BYTES"), req.fileContent)
		})
	}
}

func TestUploadDocumentCarriesContentType(t *testing.T) {
	t.Parallel()

	fake := &fakeBotAPI{}
	c := newFakeClient(t, fake)

	kind, err := c.Upload(context.Background(), 42, media.Resource{Data: []byte("%PDF"), ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, media.KindDocument, kind)

	req := fake.last(t)
	assert.Equal(t, "/bot"+testToken+"/sendDocument", req.path)
	assert.Equal(t, "42", req.form["chat_id"][0])
	assert.Equal(t, "document", req.fileField)
	assert.Equal(t, "file.bin", req.filename)
	assert.Equal(t, "application/pdf", req.partType)
	assert.Equal(t, []byte("%PDF"), req.fileContent)
}

func TestUploadDocumentDefaultsContentType(t *testing.T) {
	t.Parallel()

	fake := &fakeBotAPI{}
	c := newFakeClient(t, fake)

	_, err := c.Upload(context.Background(), 42, media.Resource{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, media.DefaultContentType, fake.last(t).partType)
}

func TestSendDocumentAPIError(t *testing.T) {
	t.Parallel()

	fake := &fakeBotAPI{respond: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":413,"description":"Request Entity Too Large"}`)
	}}
	c := newFakeClient(t, fake)

	err := c.SendDocument(context.Background(), 42, []byte("x"), "application/zip")
	require.Error(t, err)
	var apiErr *tgbotapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 413, apiErr.Code)
	assert.Contains(t, err.Error(), "Request Entity Too Large")
}

func TestGetUpdates(t *testing.T) {
	t.Parallel()

	fake := &fakeBotAPI{respond: func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true,"result":[
			{"update_id":5,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"a"}},
			{"update_id":6}
		]}`)
	}}
	c := newFakeClient(t, fake)

	updates, err := c.GetUpdates(context.Background(), 5, 30)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, 5, updates[0].UpdateID)
	assert.Equal(t, "a", updates[0].Message.Text)
	assert.Nil(t, updates[1].Message)

	req := fake.last(t)
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/bot"+testToken+"/getUpdates", req.path)
	assert.Equal(t, "5", req.query["offset"][0])
	assert.Equal(t, "30", req.query["timeout"][0])
}

func TestGetUpdatesRejectsNonJSON(t *testing.T) {
	t.Parallel()

	fake := &fakeBotAPI{respond: func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}}
	c := newFakeClient(t, fake)

	_, err := c.GetUpdates(context.Background(), 1, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGetUpdatesHonorsContext(t *testing.T) {
	t.Parallel()

	c := newFakeClient(t, &fakeBotAPI{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetUpdates(ctx, 1, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMissingTokenStillBuildsURLs(t *testing.T) {
	t.Parallel()

	c := NewClient(nil, config.TelegramConfig{APIBaseURL: "https://api.example/"}, nil)
	assert.Equal(t, "https://api.example/bot/getUpdates", c.methodURL(methodGetUpdates))
}
