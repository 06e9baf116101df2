package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quailyquaily/modguard/internal/retryutil"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.telegram.org"

type Options struct {
	HTTPClient *http.Client
	BaseURL    string
	// RatePerSecond throttles every call except getUpdates. Zero disables it.
	RatePerSecond float64
	RateBurst     int
	// MaxRetryAfter retries a call once after a flood-control rejection whose
	// retry_after is at most this long. Zero disables the retry.
	MaxRetryAfter time.Duration
}

type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter

	maxRetryAfter time.Duration
}

func New(token string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		limiter: limiter,

		maxRetryAfter: opts.MaxRetryAfter,
	}
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	if c.maxRetryAfter <= 0 {
		return c.do(ctx, method, body, out)
	}
	return retryutil.Do(ctx, 2, c.floodWait, func(ctx context.Context) error {
		return c.do(ctx, method, body, out)
	})
}

func (c *Client) floodWait(err error) (time.Duration, bool) {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.RetryAfter <= 0 || reqErr.RetryAfter > c.maxRetryAfter {
		return 0, false
	}
	return reqErr.RetryAfter, true
}

// do POSTs body as JSON to method and decodes the result into out when out
// is non-nil.
func (c *Client) do(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("telegram %s: encode request: %w", method, err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = fmt.Sprintf("%s/bot<redacted>/%s", c.baseURL, method)
		}
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || decodeErr != nil || !env.OK {
		reqErr := &RequestError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			ErrorCode:   env.ErrorCode,
			Description: env.Description,
			Body:        strings.TrimSpace(string(raw)),
		}
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			reqErr.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}
		return reqErr
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// GetUpdates long-polls for updates starting at offset. The returned offset is
// one past the highest update id seen, or the input offset when nothing
// arrived.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	var updates []Update
	err := c.call(reqCtx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        secs,
		AllowedUpdates: AllowedUpdates,
	}, &updates)
	if err != nil {
		return nil, offset, err
	}
	next := offset
	for _, u := range updates {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return updates, next, nil
}

type SendOptions struct {
	ParseMode      string
	ReplyMarkup    ReplyMarkup
	DisablePreview bool
}

type sendMessageRequest struct {
	ChatID                int64       `json:"chat_id"`
	Text                  string      `json:"text"`
	ParseMode             string      `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool        `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           ReplyMarkup `json:"reply_markup,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (*Message, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	var out Message
	err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             strings.TrimSpace(opts.ParseMode),
		DisableWebPagePreview: opts.DisablePreview,
		ReplyMarkup:           opts.ReplyMarkup,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type editMessageTextRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Text        string                `json:"text"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	if messageID == 0 {
		return fmt.Errorf("missing message_id")
	}
	if err := c.throttle(ctx); err != nil {
		return err
	}
	return c.call(ctx, "editMessageText", editMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup,
	}, nil)
}

type messageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	if messageID == 0 {
		return fmt.Errorf("missing message_id")
	}
	if err := c.throttle(ctx); err != nil {
		return err
	}
	return c.call(ctx, "deleteMessage", messageRef{ChatID: chatID, MessageID: messageID}, nil)
}

type chatMemberRef struct {
	ChatID int64 `json:"chat_id"`
	UserID int64 `json:"user_id"`
}

func (c *Client) BanChatMember(ctx context.Context, chatID, userID int64) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	return c.call(ctx, "banChatMember", chatMemberRef{ChatID: chatID, UserID: userID}, nil)
}

type chatRef struct {
	ChatID int64 `json:"chat_id"`
}

func (c *Client) GetChatAdministrators(ctx context.Context, chatID int64) ([]ChatMember, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	var out []ChatMember
	if err := c.call(ctx, "getChatAdministrators", chatRef{ChatID: chatID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	var out Chat
	if err := c.call(ctx, "getChat", chatRef{ChatID: chatID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type answerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	if strings.TrimSpace(callbackQueryID) == "" {
		return fmt.Errorf("missing callback_query_id")
	}
	if err := c.throttle(ctx); err != nil {
		return err
	}
	return c.call(ctx, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	}, nil)
}
