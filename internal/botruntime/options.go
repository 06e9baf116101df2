package botruntime

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/quailyquaily/modguard/internal/telegram"
)

type Options struct {
	BotToken       string
	BaseURL        string
	PollTimeout    time.Duration
	RequestTimeout time.Duration
	RatePerSecond  float64
	RateBurst      int
	MaxRetryAfter  time.Duration

	AdminChatIDs []int64
	AdminUserIDs []int64

	WarningLimit     int
	MaxMessageLength int
	FloodWindow      time.Duration
	FloodMaxMessages int
	NoticeTTL        time.Duration

	Workers         int
	QueueSize       int
	PollRetryDelay  time.Duration
	HandlerTimeout  time.Duration
	ShutdownTimeout time.Duration

	StatePath string
	StateLock bool
	// AuditPath is the moderation audit log. Empty disables it.
	AuditPath string

	MetricsListen   string
	FlushOnShutdown bool

	Logger *slog.Logger
}

func normalizeOptions(opts Options) Options {
	opts.BotToken = strings.TrimSpace(opts.BotToken)
	opts.BaseURL = strings.TrimSpace(opts.BaseURL)
	opts.StatePath = strings.TrimSpace(opts.StatePath)
	opts.AuditPath = strings.TrimSpace(opts.AuditPath)
	opts.MetricsListen = strings.TrimSpace(opts.MetricsListen)
	opts.AdminChatIDs = normalizeIDs(opts.AdminChatIDs)
	opts.AdminUserIDs = normalizeIDs(opts.AdminUserIDs)

	if opts.BaseURL == "" {
		opts.BaseURL = telegram.DefaultBaseURL
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 25 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	// RequestTimeout must cover a full long poll.
	if floor := opts.PollTimeout + 10*time.Second; opts.RequestTimeout < floor {
		opts.RequestTimeout = floor
	}
	if opts.RatePerSecond < 0 {
		opts.RatePerSecond = 0
	}
	if opts.MaxRetryAfter < 0 {
		opts.MaxRetryAfter = 0
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 5
	}
	if opts.WarningLimit <= 0 {
		opts.WarningLimit = 3
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 100
	}
	if opts.FloodWindow <= 0 {
		opts.FloodWindow = 60 * time.Second
	}
	if opts.FloodMaxMessages <= 0 {
		opts.FloodMaxMessages = 10
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = 20 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 6
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.PollRetryDelay <= 0 {
		opts.PollRetryDelay = 5 * time.Second
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

func validateOptions(opts Options) error {
	var errs []error
	if opts.BotToken == "" {
		errs = append(errs, errors.New("missing telegram.bot_token (set via --telegram-bot-token or MODGUARD_TELEGRAM_BOT_TOKEN)"))
	}
	if len(opts.AdminChatIDs) == 0 && len(opts.AdminUserIDs) == 0 {
		errs = append(errs, errors.New("no admins configured: set admin.chat_ids or admin.user_ids"))
	}
	if opts.StatePath == "" {
		errs = append(errs, errors.New("missing state path"))
	}
	return errors.Join(errs...)
}

// normalizeIDs drops zero and duplicate ids, keeping order.
func normalizeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
