package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrRejected is returned when the Bot API answers with ok=false.
var ErrRejected = errors.New("telegram: request rejected")

// InlineButton is one button of an inline keyboard.
type InlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// ReplyMarkup attaches an inline keyboard to a message.
type ReplyMarkup struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

// MessageOptions are the optional sendMessage parameters the service uses.
type MessageOptions struct {
	ReplyMarkup *ReplyMarkup
}

// Sender is the outbound side of the Bot API.
type Sender interface {
	SendPhoto(ctx context.Context, photo string) error
	SendMessage(ctx context.Context, text string, opts MessageOptions) error
}

// HTTPClient implements Sender over the Telegram Bot HTTP API.
type HTTPClient struct {
	baseURL *url.URL
	token   string
	chatID  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient constructs a Bot API client posting to chatID.
func NewHTTPClient(baseURL, token, chatID string, timeout time.Duration, logger *zap.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("telegram: token and chat id are required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse telegram url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		token:   token,
		chatID:  chatID,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

type sendPhotoRequest struct {
	ChatID string `json:"chat_id"`
	Photo  string `json:"photo"`
}

type sendMessageRequest struct {
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode"`
	ReplyMarkup *ReplyMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendPhoto posts a photo by URL to the configured chat.
func (c *HTTPClient) SendPhoto(ctx context.Context, photo string) error {
	return c.call(ctx, "sendPhoto", sendPhotoRequest{ChatID: c.chatID, Photo: photo})
}

// SendMessage posts an HTML-formatted message to the configured chat.
func (c *HTTPClient) SendMessage(ctx context.Context, text string, opts MessageOptions) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      c.chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: opts.ReplyMarkup,
	})
}

func (c *HTTPClient) call(ctx context.Context, method string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	endpoint := c.baseURL.JoinPath("bot"+c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, redact(err, c.token))
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !result.OK {
		c.logger.Warn("telegram: request rejected",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.Int("error_code", result.ErrorCode),
			zap.String("description", result.Description),
		)
		return fmt.Errorf("%w: %s: %s", ErrRejected, method, result.Description)
	}
	return nil
}

// redact keeps the bot token out of transport errors, which embed the URL.
func redact(err error, token string) error {
	msg := err.Error()
	if token == "" || !strings.Contains(msg, token) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, token, "<token>"))
}
