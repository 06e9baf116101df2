// Package outbound wraps message sending with the bot's delivery policy:
// failures are logged and never propagate as fatal, ephemeral notices are
// deleted after a fixed interval, and admin notifications fan out to every
// configured admin destination.
package outbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/quailyquaily/modguard/internal/delayed"
	"github.com/quailyquaily/modguard/internal/telegram"
)

const DefaultNoticeTTL = 20 * time.Second

type API interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

type Scheduler interface {
	Schedule(delay time.Duration, fn delayed.Task) delayed.ID
}

type Options struct {
	AdminChatIDs []int64
	// AdminUserIDs receive notifications in private when no admin chat is set.
	AdminUserIDs []int64
	NoticeTTL    time.Duration
	Logger       *slog.Logger
}

type Outbound struct {
	api       API
	scheduler Scheduler
	adminDest []int64
	noticeTTL time.Duration
	logger    *slog.Logger
}

func New(api API, scheduler Scheduler, opts Options) *Outbound {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.NoticeTTL
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	dest := append([]int64(nil), opts.AdminChatIDs...)
	if len(dest) == 0 {
		dest = append(dest, opts.AdminUserIDs...)
	}
	return &Outbound{
		api:       api,
		scheduler: scheduler,
		adminDest: dest,
		noticeTTL: ttl,
		logger:    logger,
	}
}

// Send delivers text to chat. The error is logged here; callers only inspect
// it when they need the sent message.
func (o *Outbound) Send(ctx context.Context, chat int64, text string, opts telegram.SendOptions) (*telegram.Message, error) {
	msg, err := o.api.SendMessage(ctx, chat, text, opts)
	if err != nil {
		o.logger.Warn("outbound_send_failed", "chat_id", chat, "error", err.Error())
		return nil, err
	}
	return msg, nil
}

// SendEphemeral sends text and schedules its deletion after the notice TTL.
// Nothing is scheduled when the send fails.
func (o *Outbound) SendEphemeral(ctx context.Context, chat int64, text string, opts telegram.SendOptions) {
	msg, err := o.Send(ctx, chat, text, opts)
	if err != nil || msg == nil || msg.MessageID == 0 || o.scheduler == nil {
		return
	}
	messageID := msg.MessageID
	o.scheduler.Schedule(o.noticeTTL, func(ctx context.Context) error {
		return o.api.DeleteMessage(ctx, chat, messageID)
	})
}

// NotifyAdmins sends text to every admin destination.
func (o *Outbound) NotifyAdmins(ctx context.Context, text string) {
	if len(o.adminDest) == 0 {
		o.logger.Warn("outbound_no_admin_destination")
		return
	}
	for _, chat := range o.adminDest {
		if _, err := o.api.SendMessage(ctx, chat, text, telegram.SendOptions{}); err != nil {
			o.logger.Warn("outbound_notify_admin_failed", "chat_id", chat, "error", err.Error())
		}
	}
}

// AdminDestinations returns the chats NotifyAdmins writes to: the admin chats,
// or the admin users' private chats when no admin chat is configured.
func (o *Outbound) AdminDestinations() []int64 {
	return append([]int64(nil), o.adminDest...)
}
