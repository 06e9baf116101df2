// Package admin serves the conversational administration surface: reply and
// inline keyboards, slash commands, and single-step prompts backed by the
// session machine.
package admin

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/quailyquaily/modguard/internal/event"
	"github.com/quailyquaily/modguard/internal/logutil"
	"github.com/quailyquaily/modguard/internal/modstore"
	"github.com/quailyquaily/modguard/internal/session"
	"github.com/quailyquaily/modguard/internal/telegram"
)

type API interface {
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	GetChat(ctx context.Context, chatID int64) (*telegram.Chat, error)
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
}

type Sender interface {
	Send(ctx context.Context, chat int64, text string, opts telegram.SendOptions) (*telegram.Message, error)
}

type Store interface {
	AddChat(id int64, title string) (bool, error)
	RemoveChat(id int64) (bool, error)
	UpdateTitle(id int64, title string) error
	ListChats() map[int64]modstore.Chat
	AddKeywords(words []string) (int, error)
	RemoveKeywords(words []string) (int, error)
	ListKeywords() []string
	Warning(chat, user int64) int
	AllWarnings(chat int64) map[int64]int
	ResetWarning(chat, user int64) (bool, error)
}

type Deps struct {
	API      API
	Sender   Sender
	Store    Store
	Sessions *session.Machine
	Logger   *slog.Logger
	// RequestID issues correlation ids for dynamic chat pickers.
	RequestID func() int
}

type Config struct {
	AdminChatIDs []int64
	AdminUserIDs []int64
}

type Router struct {
	api       API
	sender    Sender
	store     Store
	sessions  *session.Machine
	logger    *slog.Logger
	requestID func() int

	adminChats map[int64]struct{}
	adminUsers map[int64]struct{}

	menuMu sync.Mutex
	menus  map[int64]int64
}

func New(deps Deps, cfg Config) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewMachine()
	}
	requestID := deps.RequestID
	if requestID == nil {
		requestID = func() int { return 1000 + rand.IntN(1<<30) }
	}
	return &Router{
		api:        deps.API,
		sender:     deps.Sender,
		store:      deps.Store,
		sessions:   sessions,
		logger:     logger,
		requestID:  requestID,
		adminChats: idSet(cfg.AdminChatIDs),
		adminUsers: idSet(cfg.AdminUserIDs),
		menus:      make(map[int64]int64),
	}
}

// IsAdminContext reports whether ev comes from an admin chat, or from an
// admin user in a private chat.
func (r *Router) IsAdminContext(ev event.Event) bool {
	if _, ok := r.adminChats[ev.Chat.ID]; ok {
		return true
	}
	if ev.From == nil || ev.Chat.Type != event.ChatPrivate {
		return false
	}
	_, ok := r.adminUsers[ev.From.ID]
	return ok
}

// HandleMessage routes one admin-context message. Shared chats are handled
// first, then keyboard buttons and navigation commands, then a pending
// prompt, and finally slash commands.
func (r *Router) HandleMessage(ctx context.Context, ev event.Event) {
	chat := ev.Chat.ID
	logger := logutil.FromContext(ctx, r.logger).With("admin_chat_id", chat)

	if ev.Shared != nil {
		r.handleShared(ctx, logger, chat, *ev.Shared)
		return
	}

	text := strings.TrimSpace(ev.Content())
	cmd, args := splitCommand(text)
	if r.handleButton(ctx, logger, chat, text, cmd) {
		r.deleteEcho(ctx, logger, chat, ev.MessageID, text)
		return
	}

	if sess, ok := r.sessions.Take(chat); ok {
		logger.Debug("admin_session_step", "state", sess.State.String())
		reply, mode, err := r.runStep(ctx, sess, text)
		r.respond(ctx, logger, chat, reply, mode, err)
		return
	}

	if !strings.HasPrefix(cmd, "/") {
		r.showRootMenu(ctx, chat, "Main menu:")
		return
	}
	r.runCommand(ctx, logger, chat, cmd, args)
}

func (r *Router) handleShared(ctx context.Context, logger *slog.Logger, chat int64, shared event.ChatShared) {
	switch shared.RequestID {
	case RequestAddChat:
		r.sessions.Clear(chat)
		reply, mode, err := r.addSharedChat(ctx, logger, shared.ChatID)
		r.respond(ctx, logger, chat, reply, mode, err)
		return
	case RequestRemoveChat:
		r.sessions.Clear(chat)
		reply, mode, err := r.removeChat(shared.ChatID)
		r.respond(ctx, logger, chat, reply, mode, err)
		return
	}

	sess, ok := r.sessions.TakeIf(chat, func(s session.Session) bool {
		return s.State.Choosing() && s.RequestID == shared.RequestID
	})
	if !ok {
		logger.Debug("admin_chat_shared_ignored", "request_id", shared.RequestID, "shared_chat_id", shared.ChatID)
		return
	}
	var (
		reply string
		mode  keyboardMode
		err   error
	)
	if sess.State == session.AwaitAddChatChoose {
		reply, mode, err = r.addSharedChat(ctx, logger, shared.ChatID)
	} else {
		reply, mode, err = r.removeChat(shared.ChatID)
	}
	r.respond(ctx, logger, chat, reply, mode, err)
}

// handleButton runs the self-contained keyboard buttons and navigation
// commands. It reports false when text is none of them.
func (r *Router) handleButton(ctx context.Context, logger *slog.Logger, chat int64, text, cmd string) bool {
	switch {
	case text == BtnMenu || text == BtnBack:
		r.sessions.Clear(chat)
		r.showRootMenu(ctx, chat, "Main menu:")
	case text == BtnHelp || cmd == "/start" || cmd == "/help":
		r.sessions.Clear(chat)
		r.showRootMenu(ctx, chat, helpText)
	case cmd == "/menu":
		r.sessions.Clear(chat)
		r.upsertMenu(ctx, logger, chat, "Main menu:", inlineKeyboard(keyboardRoot))
	case text == BtnChats:
		r.reply(ctx, chat, "Chat management:", keyboardChats)
	case text == BtnWords:
		r.reply(ctx, chat, "Word management:", keyboardWords)
	case text == BtnListChats:
		r.respond(ctx, logger, chat, r.listChats(ctx, logger), keyboardChats, nil)
	case text == BtnListWords:
		r.respond(ctx, logger, chat, r.listKeywords(), keyboardWords, nil)
	case text == BtnAddChat:
		r.prompt(ctx, chat, session.AwaitAddChat)
	case text == BtnRemoveChat:
		r.prompt(ctx, chat, session.AwaitRemoveChat)
	case text == BtnAddWords:
		r.prompt(ctx, chat, session.AwaitAddKeyword)
	case text == BtnRemoveWords:
		r.prompt(ctx, chat, session.AwaitRemoveKeyword)
	case text == BtnWarnings:
		r.prompt(ctx, chat, session.AwaitWarningsQuery)
	case text == BtnResetWarning:
		r.prompt(ctx, chat, session.AwaitResetWarning)
	default:
		return false
	}
	return true
}

// HandleCallback answers the callback query and runs its action when it comes
// from an admin context.
func (r *Router) HandleCallback(ctx context.Context, ev event.Event) {
	cb := ev.Callback
	if cb == nil {
		return
	}
	logger := logutil.FromContext(ctx, r.logger).With("admin_chat_id", ev.Chat.ID)
	if err := r.api.AnswerCallbackQuery(ctx, cb.ID, ""); err != nil {
		logger.Debug("admin_answer_callback_failed", "error", err.Error())
	}
	if ev.Chat.ID == 0 || !r.IsAdminContext(ev) {
		logger.Debug("admin_callback_ignored", "user_id", ev.SenderID())
		return
	}

	chat := ev.Chat.ID
	switch ParseAction(cb.Data) {
	case ActionMenuRoot:
		r.sessions.Clear(chat)
		r.upsertMenu(ctx, logger, chat, "Main menu:", inlineKeyboard(keyboardRoot))
	case ActionMenuChats:
		r.sessions.Clear(chat)
		r.upsertMenu(ctx, logger, chat, "Chat management:", inlineKeyboard(keyboardChats))
	case ActionMenuWords:
		r.sessions.Clear(chat)
		r.upsertMenu(ctx, logger, chat, "Word management:", inlineKeyboard(keyboardWords))
	case ActionMenuWarnings:
		r.sessions.Start(chat, session.AwaitWarningsQuery, 0)
		r.upsertMenu(ctx, logger, chat, prompts[session.AwaitWarningsQuery].text, inlineKeyboard(keyboardRoot))
	case ActionMenuReset:
		r.sessions.Start(chat, session.AwaitResetWarning, 0)
		r.upsertMenu(ctx, logger, chat, prompts[session.AwaitResetWarning].text, inlineKeyboard(keyboardRoot))
	case ActionMenuHelp:
		r.sessions.Clear(chat)
		r.showRootMenu(ctx, chat, helpText)
	case ActionChatsList:
		r.upsertMenu(ctx, logger, chat, r.listChats(ctx, logger), inlineKeyboard(keyboardChats))
	case ActionChatsAdd:
		r.startChoose(ctx, chat, session.AwaitAddChatChoose, "Pick the chat to add:", BtnAddChat)
	case ActionChatsRemove:
		r.startChoose(ctx, chat, session.AwaitRemoveChatChoose, "Pick the chat to remove:", BtnRemoveChat)
	case ActionWordsAdd:
		r.prompt(ctx, chat, session.AwaitAddKeyword)
	case ActionWordsRemove:
		r.prompt(ctx, chat, session.AwaitRemoveKeyword)
	case ActionWordsList:
		r.reply(ctx, chat, r.listKeywords(), keyboardWords)
	default:
		logger.Debug("admin_callback_unknown", "data", cb.Data)
	}
}

// ReportInternalError tells the admin chat that its last request failed.
func (r *Router) ReportInternalError(ctx context.Context, chat int64) {
	r.reply(ctx, chat, "Internal error.", keyboardRoot)
}

func (r *Router) startChoose(ctx context.Context, chat int64, state session.State, text, label string) {
	id := r.requestID()
	r.sessions.Start(chat, state, id)
	_, _ = r.sender.Send(ctx, chat, text, telegram.SendOptions{ReplyMarkup: pickChatKeyboard(label, id)})
}

type promptSpec struct {
	text string
	mode keyboardMode
}

var prompts = map[session.State]promptSpec{
	session.AwaitAddChat:       {"Send the chat id and an optional title: <chat_id> [title]", keyboardChats},
	session.AwaitRemoveChat:    {"Send the chat id to remove: <chat_id>", keyboardChats},
	session.AwaitAddKeyword:    {"Send words separated by commas.", keyboardWords},
	session.AwaitRemoveKeyword: {"Send words to remove, separated by commas.", keyboardWords},
	session.AwaitWarningsQuery: {"Warnings: send <chat_id> [user_id]", keyboardRoot},
	session.AwaitResetWarning:  {"Reset warnings: send <chat_id> <user_id>", keyboardRoot},
}

func (r *Router) prompt(ctx context.Context, chat int64, state session.State) {
	p := prompts[state]
	r.sessions.Start(chat, state, 0)
	r.reply(ctx, chat, p.text, p.mode)
}

func (r *Router) showRootMenu(ctx context.Context, chat int64, text string) {
	r.reply(ctx, chat, text, keyboardRoot)
}

func (r *Router) reply(ctx context.Context, chat int64, text string, mode keyboardMode) {
	_, _ = r.sender.Send(ctx, chat, text, telegram.SendOptions{ReplyMarkup: replyKeyboard(mode)})
}

// respond sends reply, or the rendering of err when it is non-nil.
func (r *Router) respond(ctx context.Context, logger *slog.Logger, chat int64, reply string, mode keyboardMode, err error) {
	if err == nil {
		r.reply(ctx, chat, reply, mode)
		return
	}
	if isValidation(err) {
		r.reply(ctx, chat, "Error: "+err.Error(), keyboardRoot)
		return
	}
	logger.Error("admin_request_failed", "error", err.Error())
	r.ReportInternalError(ctx, chat)
}

// upsertMenu edits the tracked inline menu of chat in place, falling back to
// a fresh message that becomes the tracked one.
func (r *Router) upsertMenu(ctx context.Context, logger *slog.Logger, chat int64, text string, markup *telegram.InlineKeyboardMarkup) {
	r.menuMu.Lock()
	messageID, ok := r.menus[chat]
	r.menuMu.Unlock()
	if ok {
		err := r.api.EditMessageText(ctx, chat, messageID, text, markup)
		if err == nil || telegram.IsMessageNotModified(err) {
			return
		}
		logger.Debug("admin_menu_edit_failed", "message_id", messageID, "error", err.Error())
	}
	msg, err := r.sender.Send(ctx, chat, text, telegram.SendOptions{ReplyMarkup: markup})
	if err != nil || msg == nil {
		return
	}
	r.menuMu.Lock()
	r.menus[chat] = msg.MessageID
	r.menuMu.Unlock()
}

func (r *Router) deleteEcho(ctx context.Context, logger *slog.Logger, chat, messageID int64, text string) {
	if messageID == 0 {
		return
	}
	if _, ok := echoLabels[text]; !ok {
		return
	}
	if err := r.api.DeleteMessage(ctx, chat, messageID); err != nil {
		logger.Debug("admin_echo_delete_failed", "message_id", messageID, "error", err.Error())
	}
}

func idSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
