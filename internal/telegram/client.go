// Package telegram talks to the Telegram Bot API on behalf of the relay.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/media"
)

const (
	methodGetUpdates   = "getUpdates"
	methodSendDocument = "sendDocument"
)

var setLoggerOnce sync.Once

// Client wraps a tgbotapi.BotAPI. Text, photo and video requests go through
// the library; getUpdates and sendDocument are issued directly so they can
// carry a context and a declared part content type.
type Client struct {
	logger   *slog.Logger
	bot      *tgbotapi.BotAPI
	http     *http.Client
	token    string
	endpoint string
}

// NewClient builds a client without calling getMe, so an unset or invalid
// token surfaces on the first request instead of at startup.
func NewClient(log *slog.Logger, cfg config.TelegramConfig, httpClient *http.Client) *Client {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if base == "" {
		base = config.DefaultTelegramAPIBaseURL
	}
	c := &Client{
		logger:   log.With(slog.String("adapter", "telegram")),
		http:     httpClient,
		token:    cfg.BotToken,
		endpoint: base + "/bot%s/%s",
	}
	c.bot = &tgbotapi.BotAPI{
		Token:  cfg.BotToken,
		Client: httpClient,
		Buffer: 100,
	}
	c.bot.SetAPIEndpoint(c.endpoint)
	setLoggerOnce.Do(func() {
		_ = tgbotapi.SetLogger(&slogBotLogger{log: c.logger})
	})
	return c
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf(c.endpoint, c.token, method)
}

// SendText sends a plain text message to chatID.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, prepareText(text))); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

// SendPhoto uploads data as a photo named photo.jpg.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: media.PhotoFilename, Bytes: data})
	if _, err := c.bot.Send(photo); err != nil {
		return fmt.Errorf("sendPhoto: %w", err)
	}
	return nil
}

// SendVideo uploads data as a video named video.mp4.
func (c *Client) SendVideo(ctx context.Context, chatID int64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileBytes{Name: media.VideoFilename, Bytes: data})
	if _, err := c.bot.Send(video); err != nil {
		return fmt.Errorf("sendVideo: %w", err)
	}
	return nil
}

// SendDocument uploads data as file.bin with contentType on the file part.
func (c *Client) SendDocument(ctx context.Context, chatID int64, data []byte, contentType string) error {
	if strings.TrimSpace(contentType) == "" {
		contentType = media.DefaultContentType
	}
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename="%s"`, media.DocumentFilename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(methodSendDocument), &body)
	if err != nil {
		return fmt.Errorf("build sendDocument request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if _, err := c.do(req, methodSendDocument); err != nil {
		return err
	}
	return nil
}

// Upload delivers res to chatID with the Bot API method matching its kind
// and reports the kind used.
func (c *Client) Upload(ctx context.Context, chatID int64, res media.Resource) (media.Kind, error) {
	kind := res.Kind()
	var err error
	switch kind {
	case media.KindPhoto:
		err = c.SendPhoto(ctx, chatID, res.Data)
	case media.KindVideo:
		err = c.SendVideo(ctx, chatID, res.Data)
	default:
		err = c.SendDocument(ctx, chatID, res.Data, res.EffectiveContentType())
	}
	return kind, err
}

// GetUpdates long-polls for updates with update_id >= offset. timeout is the
// server-side wait in seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]tgbotapi.Update, error) {
	query := url.Values{}
	query.Set("offset", strconv.FormatInt(offset, 10))
	query.Set("timeout", strconv.Itoa(timeout))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL(methodGetUpdates)+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build getUpdates request: %w", err)
	}
	resp, err := c.do(req, methodGetUpdates)
	if err != nil {
		return nil, err
	}
	var updates []tgbotapi.Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode getUpdates result: %w", err)
	}
	return updates, nil
}

func (c *Client) do(req *http.Request, method string) (*tgbotapi.APIResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var apiResp tgbotapi.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%s: decode response (status %d): %w", method, resp.StatusCode, err)
	}
	if !apiResp.Ok {
		var params tgbotapi.ResponseParameters
		if apiResp.Parameters != nil {
			params = *apiResp.Parameters
		}
		return &apiResp, fmt.Errorf("%s: %w", method, &tgbotapi.Error{
			Code:               apiResp.ErrorCode,
			Message:            apiResp.Description,
			ResponseParameters: params,
		})
	}
	return &apiResp, nil
}

type slogBotLogger struct {
	log *slog.Logger
}

func (l *slogBotLogger) Println(v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l *slogBotLogger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
