// Package moderation decides what happens to one group message: flood
// trimming, length trimming, or keyword escalation up to a ban.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/quailyquaily/modguard/internal/event"
	"github.com/quailyquaily/modguard/internal/keywords"
	"github.com/quailyquaily/modguard/internal/logutil"
	"github.com/quailyquaily/modguard/internal/metrics"
	"github.com/quailyquaily/modguard/internal/modstore"
	"github.com/quailyquaily/modguard/internal/outputfmt"
	"github.com/quailyquaily/modguard/internal/telegram"
)

const (
	DefaultWarningLimit     = 3
	DefaultMaxMessageLength = 100
)

type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeClean
	OutcomeFloodDeleted
	OutcomeLengthDeleted
	OutcomeWarned
	OutcomeBanned
	OutcomeBanSkipped
	OutcomeBanFailed
	// OutcomeAborted covers a failed deletion or warning update; nothing
	// further was done for the message.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeClean:
		return "clean"
	case OutcomeFloodDeleted:
		return "flood_deleted"
	case OutcomeLengthDeleted:
		return "length_deleted"
	case OutcomeWarned:
		return "warned"
	case OutcomeBanned:
		return "banned"
	case OutcomeBanSkipped:
		return "ban_skipped"
	case OutcomeBanFailed:
		return "ban_failed"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

type API interface {
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	GetChatAdministrators(ctx context.Context, chatID int64) ([]telegram.ChatMember, error)
	BanChatMember(ctx context.Context, chatID, userID int64) error
}

type Store interface {
	IsModerated(chat int64) bool
	ListKeywords() []string
	IncrementWarning(chat, user int64) (int, error)
	ResetWarning(chat, user int64) (bool, error)
}

type Limiter interface {
	CheckAndRecord(chat, user int64, now time.Time) bool
}

type Notifier interface {
	SendEphemeral(ctx context.Context, chat int64, text string, opts telegram.SendOptions)
	NotifyAdmins(ctx context.Context, text string)
}

type Deps struct {
	API      API
	Store    Store
	Limiter  Limiter
	Notifier Notifier
	// Optional.
	Auditor Auditor
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

type Config struct {
	WarningLimit     int
	MaxMessageLength int
	// AdminChatIDs are never moderated.
	AdminChatIDs []int64
}

type Pipeline struct {
	api      API
	store    Store
	limiter  Limiter
	notifier Notifier
	auditor  Auditor
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	limit      int
	maxLength  int
	adminChats map[int64]struct{}
}

func New(deps Deps, cfg Config) *Pipeline {
	if cfg.WarningLimit <= 0 {
		cfg.WarningLimit = DefaultWarningLimit
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	adminChats := make(map[int64]struct{}, len(cfg.AdminChatIDs))
	for _, id := range cfg.AdminChatIDs {
		adminChats[id] = struct{}{}
	}
	return &Pipeline{
		api:        deps.API,
		store:      deps.Store,
		limiter:    deps.Limiter,
		notifier:   deps.Notifier,
		auditor:    deps.Auditor,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        now,
		limit:      cfg.WarningLimit,
		maxLength:  cfg.MaxMessageLength,
		adminChats: adminChats,
	}
}

// Handle runs the checks for ev in order, stopping at the first that acts.
func (p *Pipeline) Handle(ctx context.Context, ev event.Event) Outcome {
	if !p.applies(ev) {
		return OutcomeIgnored
	}
	logger := logutil.FromContext(ctx, p.logger).With("chat_id", ev.Chat.ID, "user_id", ev.From.ID)

	if p.limiter.CheckAndRecord(ev.Chat.ID, ev.From.ID, p.now()) {
		return p.handleFlood(ctx, logger, ev)
	}

	text := ev.Content()
	if text == "" {
		return OutcomeClean
	}
	if utf8.RuneCountInString(text) > p.maxLength {
		return p.handleTooLong(ctx, logger, ev)
	}

	matched := keywords.Match(text, p.store.ListKeywords())
	if len(matched) == 0 {
		return OutcomeClean
	}
	return p.escalate(ctx, logger, ev, matched[0])
}

func (p *Pipeline) applies(ev event.Event) bool {
	if ev.Kind == event.KindCallbackQuery {
		return false
	}
	if _, isAdmin := p.adminChats[ev.Chat.ID]; isAdmin {
		return false
	}
	if !ev.Chat.Type.GroupLike() {
		return false
	}
	if ev.From == nil || ev.MessageID == 0 {
		return false
	}
	return p.store.IsModerated(ev.Chat.ID)
}

func (p *Pipeline) handleFlood(ctx context.Context, logger *slog.Logger, ev event.Event) Outcome {
	if err := p.api.DeleteMessage(ctx, ev.Chat.ID, ev.MessageID); err != nil {
		logger.Warn("moderation_flood_delete_failed", "message_id", ev.MessageID, "error", err.Error())
		return OutcomeAborted
	}
	p.metrics.IncAction(metrics.ActionFloodDelete)
	p.audit(logger, ev, AuditRecord{Action: metrics.ActionFloodDelete})
	logger.Info("moderation_flood_deleted", "message_id", ev.MessageID)
	p.notifier.SendEphemeral(ctx, ev.Chat.ID,
		fmt.Sprintf("%s, please don't flood the chat.", mentionHTML(ev.From)),
		telegram.SendOptions{ParseMode: telegram.ParseModeHTML})
	return OutcomeFloodDeleted
}

func (p *Pipeline) handleTooLong(ctx context.Context, logger *slog.Logger, ev event.Event) Outcome {
	if err := p.api.DeleteMessage(ctx, ev.Chat.ID, ev.MessageID); err != nil {
		logger.Warn("moderation_length_delete_failed", "message_id", ev.MessageID, "error", err.Error())
		return OutcomeAborted
	}
	p.metrics.IncAction(metrics.ActionLengthDelete)
	p.audit(logger, ev, AuditRecord{Action: metrics.ActionLengthDelete})
	logger.Info("moderation_length_deleted", "message_id", ev.MessageID)
	p.notifier.SendEphemeral(ctx, ev.Chat.ID,
		fmt.Sprintf("%s, your message is too long. Please shorten it.", mentionHTML(ev.From)),
		telegram.SendOptions{ParseMode: telegram.ParseModeHTML})
	return OutcomeLengthDeleted
}

func (p *Pipeline) escalate(ctx context.Context, logger *slog.Logger, ev event.Event, keyword string) Outcome {
	chat, user := ev.Chat.ID, ev.From.ID
	if err := p.api.DeleteMessage(ctx, chat, ev.MessageID); err != nil {
		logger.Warn("moderation_keyword_delete_failed", "message_id", ev.MessageID, "error", err.Error())
		return OutcomeAborted
	}
	p.metrics.IncAction(metrics.ActionKeywordDelete)

	count, err := p.store.IncrementWarning(chat, user)
	if err != nil {
		if errors.Is(err, modstore.ErrChatNotModerated) {
			logger.Info("moderation_chat_removed_concurrently")
		} else {
			logger.Error("moderation_warning_persist_failed", "error", err.Error())
		}
		return OutcomeAborted
	}
	p.metrics.IncAction(metrics.ActionWarn)
	p.audit(logger, ev, AuditRecord{Action: metrics.ActionWarn, Keyword: keyword, Warnings: count, Limit: p.limit})
	logger.Info("moderation_warned", "keyword", keyword, "warnings", count, "limit", p.limit)

	p.notifier.SendEphemeral(ctx, chat,
		fmt.Sprintf("%s, you have been warned for a rule violation: «%s». Please follow the chat rules. Warning %d of %d.",
			mentionHTML(ev.From), escapeHTML(keyword), count, p.limit),
		telegram.SendOptions{ParseMode: telegram.ParseModeHTML})

	if count < p.limit {
		return OutcomeWarned
	}
	return p.ban(ctx, logger, ev, count)
}

func (p *Pipeline) ban(ctx context.Context, logger *slog.Logger, ev event.Event, count int) Outcome {
	chat, user := ev.Chat.ID, ev.From.ID
	who := displayUser(ev.From)

	if reason, ok := p.canBan(ctx, chat, user); !ok {
		p.metrics.IncAction(metrics.ActionBanSkipped)
		p.audit(logger, ev, AuditRecord{Action: metrics.ActionBanSkipped, Warnings: count, Error: reason})
		logger.Warn("moderation_ban_skipped", "reason", reason)
		p.notifier.NotifyAdmins(ctx, fmt.Sprintf("Ban skipped for %s (id=%d) in chat %d: %s.", who, user, chat, reason))
		p.notifier.SendEphemeral(ctx, chat, fmt.Sprintf("Can't ban %s: insufficient rights.", who), telegram.SendOptions{})
		return OutcomeBanSkipped
	}

	if err := p.api.BanChatMember(ctx, chat, user); err != nil {
		p.metrics.IncAction(metrics.ActionBanFailed)
		p.audit(logger, ev, AuditRecord{Action: metrics.ActionBanFailed, Warnings: count, Error: err.Error()})
		logger.Warn("moderation_ban_failed", "error", err.Error())
		p.notifier.NotifyAdmins(ctx, fmt.Sprintf("Failed to ban %s (id=%d) in chat %d: %s", who, user, chat, outputfmt.FormatErrorForDisplay(err)))
		return OutcomeBanFailed
	}

	if _, err := p.store.ResetWarning(chat, user); err != nil {
		logger.Error("moderation_warning_reset_failed", "error", err.Error())
	}
	p.metrics.IncAction(metrics.ActionBan)
	p.audit(logger, ev, AuditRecord{Action: metrics.ActionBan, Warnings: count})
	logger.Info("moderation_banned", "warnings", count)
	p.notifier.SendEphemeral(ctx, chat, fmt.Sprintf("%s was banned after %d warnings.", who, count), telegram.SendOptions{})
	p.notifier.NotifyAdmins(ctx, fmt.Sprintf("User %s (id=%d) was banned in chat %d.", who, user, chat))
	return OutcomeBanned
}

// canBan only approves a ban when the administrator list was fetched and the
// user is not on it.
func (p *Pipeline) canBan(ctx context.Context, chat, user int64) (string, bool) {
	admins, err := p.api.GetChatAdministrators(ctx, chat)
	if err != nil {
		return fmt.Sprintf("could not confirm admin status (%s)", outputfmt.FormatErrorForDisplay(err)), false
	}
	for _, m := range admins {
		if m.User != nil && m.User.ID == user {
			return "user is a chat administrator", false
		}
	}
	return "", true
}

func (p *Pipeline) audit(logger *slog.Logger, ev event.Event, rec AuditRecord) {
	if p.auditor == nil {
		return
	}
	rec.Time = p.now().UTC()
	rec.UpdateID = ev.UpdateID
	rec.ChatID = ev.Chat.ID
	rec.UserID = ev.SenderID()
	rec.MessageID = ev.MessageID
	if err := p.auditor.AppendJSON(rec); err != nil {
		logger.Warn("moderation_audit_write_failed", "error", err.Error())
	}
}
