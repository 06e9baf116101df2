package telegram

import (
	"strconv"
	"strings"
)

const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"

	ParseModeHTML = "HTML"
)

// AllowedUpdates is the update filter sent with every getUpdates call.
var AllowedUpdates = []string{
	"message",
	"edited_message",
	"channel_post",
	"edited_channel_post",
	"callback_query",
}

type Update struct {
	UpdateID          int64          `json:"update_id"`
	Message           *Message       `json:"message,omitempty"`
	EditedMessage     *Message       `json:"edited_message,omitempty"`
	ChannelPost       *Message       `json:"channel_post,omitempty"`
	EditedChannelPost *Message       `json:"edited_channel_post,omitempty"`
	CallbackQuery     *CallbackQuery `json:"callback_query,omitempty"`
}

type Message struct {
	MessageID  int64       `json:"message_id"`
	Date       int64       `json:"date,omitempty"`
	Chat       *Chat       `json:"chat,omitempty"`
	From       *User       `json:"from,omitempty"`
	Text       string      `json:"text,omitempty"`
	Caption    string      `json:"caption,omitempty"`
	ChatShared *ChatShared `json:"chat_shared,omitempty"`
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type,omitempty"` // private|group|supergroup|channel
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ChatShared is produced by a request_chat keyboard button.
type ChatShared struct {
	RequestID int   `json:"request_id"`
	ChatID    int64 `json:"chat_id"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type ChatMember struct {
	Status string `json:"status"`
	User   *User  `json:"user,omitempty"`
}

// ReplyMarkup is implemented by the keyboard kinds accepted by sendMessage.
type ReplyMarkup interface {
	replyMarkup()
}

type ReplyKeyboardMarkup struct {
	Keyboard        [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool               `json:"one_time_keyboard,omitempty"`
}

func (*ReplyKeyboardMarkup) replyMarkup() {}

type KeyboardButton struct {
	Text        string                     `json:"text"`
	RequestChat *KeyboardButtonRequestChat `json:"request_chat,omitempty"`
}

type KeyboardButtonRequestChat struct {
	RequestID     int  `json:"request_id"`
	ChatIsChannel bool `json:"chat_is_channel"`
	BotIsMember   bool `json:"bot_is_member,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

func (*InlineKeyboardMarkup) replyMarkup() {}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

// DisplayName renders a user as "First Last", falling back to the first
// name, the last name, and finally the numeric id.
func DisplayName(u *User) string {
	if u == nil {
		return ""
	}
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return strconv.FormatInt(u.ID, 10)
	}
}
