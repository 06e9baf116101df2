// Package event normalizes Bot API updates into the one record the
// dispatcher, the admin router and the moderation pipeline consume.
package event

import "github.com/quailyquaily/modguard/internal/telegram"

type Kind int

const (
	KindMessage Kind = iota + 1
	KindEditedMessage
	KindChannelPost
	KindEditedChannelPost
	KindCallbackQuery
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindEditedMessage:
		return "edited_message"
	case KindChannelPost:
		return "channel_post"
	case KindEditedChannelPost:
		return "edited_channel_post"
	case KindCallbackQuery:
		return "callback_query"
	default:
		return "unknown"
	}
}

type ChatType string

const (
	ChatPrivate    ChatType = telegram.ChatTypePrivate
	ChatGroup      ChatType = telegram.ChatTypeGroup
	ChatSupergroup ChatType = telegram.ChatTypeSupergroup
	ChatChannel    ChatType = telegram.ChatTypeChannel
)

// GroupLike reports whether moderation applies to the chat type.
func (t ChatType) GroupLike() bool {
	return t == ChatGroup || t == ChatSupergroup
}

type Chat struct {
	ID   int64
	Type ChatType
}

type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

type ChatShared struct {
	RequestID int
	ChatID    int64
}

// Callback carries the callback-query specific fields. The chat is the one
// holding the message the inline button was attached to.
type Callback struct {
	ID        string
	Data      string
	MessageID int64
}

type Event struct {
	UpdateID  int64
	Kind      Kind
	Chat      Chat
	From      *User
	MessageID int64
	Text      string
	Caption   string
	Shared    *ChatShared
	Callback  *Callback
}

// Content returns the text, or the caption when there is no text.
func (e Event) Content() string {
	if e.Text != "" {
		return e.Text
	}
	return e.Caption
}

func (e Event) SenderID() int64 {
	if e.From == nil {
		return 0
	}
	return e.From.ID
}

// FromUpdate decodes u once. The callback query wins over the message kinds,
// and among those the first present in message, edited_message, channel_post,
// edited_channel_post order is used. ok is false when u carries none of them.
func FromUpdate(u telegram.Update) (Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		ev := Event{
			UpdateID: u.UpdateID,
			Kind:     KindCallbackQuery,
			From:     fromUser(cq.From),
			Callback: &Callback{ID: cq.ID, Data: cq.Data},
		}
		if cq.Message != nil {
			ev.Callback.MessageID = cq.Message.MessageID
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.Chat = Chat{ID: cq.Message.Chat.ID, Type: ChatType(cq.Message.Chat.Type)}
			}
		}
		return ev, true
	}

	var (
		msg  *telegram.Message
		kind Kind
	)
	switch {
	case u.Message != nil:
		msg, kind = u.Message, KindMessage
	case u.EditedMessage != nil:
		msg, kind = u.EditedMessage, KindEditedMessage
	case u.ChannelPost != nil:
		msg, kind = u.ChannelPost, KindChannelPost
	case u.EditedChannelPost != nil:
		msg, kind = u.EditedChannelPost, KindEditedChannelPost
	default:
		return Event{}, false
	}

	ev := Event{
		UpdateID:  u.UpdateID,
		Kind:      kind,
		From:      fromUser(msg.From),
		MessageID: msg.MessageID,
		Text:      msg.Text,
		Caption:   msg.Caption,
	}
	if msg.Chat != nil {
		ev.Chat = Chat{ID: msg.Chat.ID, Type: ChatType(msg.Chat.Type)}
	}
	if msg.ChatShared != nil {
		ev.Shared = &ChatShared{RequestID: msg.ChatShared.RequestID, ChatID: msg.ChatShared.ChatID}
	}
	return ev, true
}

func fromUser(u *telegram.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
