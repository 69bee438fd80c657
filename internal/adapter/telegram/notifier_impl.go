package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/user/sitewatch-service/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxTextRunes    = 4096
	maxCaptionRunes = 1024
	parseMode       = "HTML"
)

var ErrMissingCredentials = errors.New("telegram bot token and chat id are required")

// APIError is a non-OK reply from the Bot API.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s failed with status %d: %s", e.Method, e.StatusCode, e.Description)
}

// retryable reports whether the failure says something about the API's health
// rather than about the request itself.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Options configures the Bot API client.
type Options struct {
	APIURL          string
	BotToken        string
	ChatID          string
	RatePerSec      float64
	MessageTimeout  time.Duration
	DocumentTimeout time.Duration
}

// NotifierImpl sends alerts through the Telegram Bot API.
type NotifierImpl struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger
}

var _ repository.Notifier = (*NotifierImpl)(nil)

// NewNotifier validates the credentials and builds the client.
func NewNotifier(opts Options, logger *zap.Logger) (*NotifierImpl, error) {
	if strings.TrimSpace(opts.BotToken) == "" || strings.TrimSpace(opts.ChatID) == "" {
		return nil, ErrMissingCredentials
	}
	if opts.APIURL == "" {
		opts.APIURL = "https://api.telegram.org"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 1
	}
	if opts.MessageTimeout <= 0 {
		opts.MessageTimeout = 60 * time.Second
	}
	if opts.DocumentTimeout <= 0 {
		opts.DocumentTimeout = 300 * time.Second
	}

	log := logger.With(zap.String("component", "telegram_notifier"))
	n := &NotifierImpl{
		client:  &http.Client{},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		logger:  log,
	}
	n.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.retryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return n, nil
}

func (n *NotifierImpl) SendText(ctx context.Context, message string) error {
	fields := map[string]string{
		"chat_id":                  n.opts.ChatID,
		"text":                     truncateHTML(message, maxTextRunes),
		"parse_mode":               parseMode,
		"disable_web_page_preview": "true",
	}
	return n.send(ctx, "sendMessage", fields, "", "", n.opts.MessageTimeout)
}

func (n *NotifierImpl) SendPhoto(ctx context.Context, path, caption string) error {
	return n.sendFile(ctx, "sendPhoto", "photo", path, caption, n.opts.MessageTimeout)
}

func (n *NotifierImpl) SendDocument(ctx context.Context, path, caption string) error {
	return n.sendFile(ctx, "sendDocument", "document", path, caption, n.opts.DocumentTimeout)
}

func (n *NotifierImpl) sendFile(ctx context.Context, method, field, path, caption string, timeout time.Duration) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", repository.ErrFileMissing, path)
	}
	fields := map[string]string{
		"chat_id":    n.opts.ChatID,
		"caption":    truncateHTML(caption, maxCaptionRunes),
		"parse_mode": parseMode,
	}
	return n.send(ctx, method, fields, field, path, timeout)
}

func (n *NotifierImpl) send(ctx context.Context, method string, fields map[string]string, fileField, filePath string, timeout time.Duration) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.post(ctx, method, fields, fileField, filePath, timeout)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", repository.ErrNotifierOpen, err)
	}
	if err != nil {
		return err
	}
	n.logger.Debug("telegram message sent", zap.String("method", method))
	return nil
}

func (n *NotifierImpl) post(ctx context.Context, method string, fields map[string]string, fileField, filePath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, contentType, err := encodeBody(fields, fileField, filePath)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(n.opts.APIURL, "/"), n.opts.BotToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := n.client.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs and alerts.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var reply struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &reply)
	if resp.StatusCode != http.StatusOK || !reply.OK {
		desc := reply.Description
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
		}
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: desc}
	}
	return nil
}

func encodeBody(fields map[string]string, fileField, filePath string) (io.Reader, string, error) {
	if fileField == "" {
		form := url.Values{}
		for k, v := range fields {
			form.Set(k, v)
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", repository.ErrFileMissing, filePath)
	}
	defer f.Close()

	part, err := w.CreateFormFile(fileField, filepath.Base(filePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// truncateHTML cuts s to at most n runes without splitting an entity or a
// tag, then closes the tags the cut left open.
func truncateHTML(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	limit := n
	for limit > 0 {
		prefix := backOffMarkup(string(r[:limit]))
		closing := closingTags(prefix)
		if utf8.RuneCountInString(prefix)+utf8.RuneCountInString(closing) <= n {
			return prefix + closing
		}
		limit = min(utf8.RuneCountInString(prefix), n-utf8.RuneCountInString(closing))
	}
	return ""
}

// backOffMarkup drops a trailing tag or entity that has no terminator.
func backOffMarkup(s string) string {
	if i := strings.LastIndexByte(s, '<'); i >= 0 && strings.IndexByte(s[i:], '>') < 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '&'); i >= 0 && strings.IndexByte(s[i:], ';') < 0 {
		s = s[:i]
	}
	return s
}

// closingTags returns the end tags for every element still open in s,
// innermost first.
func closingTags(s string) string {
	var open []string
	for {
		start := strings.IndexByte(s, '<')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start:], '>')
		if end < 0 {
			break
		}
		tag := s[start+1 : start+end]
		s = s[start+end+1:]

		if name, ok := strings.CutPrefix(tag, "/"); ok {
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] == name {
					open = open[:i]
					break
				}
			}
			continue
		}
		if name, _, _ := strings.Cut(tag, " "); name != "" {
			open = append(open, name)
		}
	}

	var sb strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		sb.WriteString("</" + open[i] + ">")
	}
	return sb.String()
}
