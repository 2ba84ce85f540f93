// Package resolver fetches files from the TeraBox link-resolution service.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/media"
)

// StatusError is returned when the resolver answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("resolver returned status %d", e.Code)
}

// Client resolves share links into file bytes.
type Client struct {
	logger   *slog.Logger
	http     *http.Client
	baseURL  string
	maxBytes int64
	timeout  time.Duration
}

// NewClient creates a resolver client. A nil httpClient uses http.DefaultClient.
func NewClient(log *slog.Logger, cfg config.ResolverConfig, httpClient *http.Client) *Client {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxBytes := cfg.MaxResourceBytes
	if maxBytes <= 0 {
		maxBytes = media.MaxAssetBytes
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = config.DefaultResolverBaseURL
	}
	return &Client{
		logger:   log.With(slog.String("component", "resolver")),
		http:     httpClient,
		baseURL:  baseURL,
		maxBytes: maxBytes,
		timeout:  cfg.Timeout,
	}
}

// RequestURL builds the resolver URL for text. The text is escaped as a
// single query component, with spaces as %20.
func (c *Client) RequestURL(text string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + "url=" + escaped
}

// Resolve fetches the file behind text. The whole body is read into memory,
// bounded by the configured maximum size.
func (c *Client) Resolve(ctx context.Context, text string) (media.Resource, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(text), nil)
	if err != nil {
		return media.Resource{}, fmt.Errorf("build resolver request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return media.Resource{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("resolver rejected request", slog.Int("status", resp.StatusCode))
		return media.Resource{}, &StatusError{Code: resp.StatusCode}
	}
	if resp.ContentLength > c.maxBytes {
		return media.Resource{}, fmt.Errorf("%w: declared %d bytes, max %d bytes", media.ErrAssetTooLarge, resp.ContentLength, c.maxBytes)
	}
	data, err := media.ReadAllWithLimit(resp.Body, c.maxBytes)
	if err != nil {
		if errors.Is(err, media.ErrAssetTooLarge) {
			return media.Resource{}, err
		}
		return media.Resource{}, fmt.Errorf("read resolver body: %w", err)
	}
	res := media.Resource{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}
	c.logger.Debug("resolved",
		slog.String("content_type", res.ContentType),
		slog.Int("bytes", len(data)),
	)
	return res, nil
}

// MaxBytes reports the size cap applied to resolved resources.
func (c *Client) MaxBytes() int64 {
	return c.maxBytes
}
