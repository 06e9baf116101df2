package admin

import "github.com/quailyquaily/modguard/internal/telegram"

// Reply keyboard labels.
const (
	BtnMenu         = "Menu"
	BtnChats        = "Chats"
	BtnWords        = "Words"
	BtnBack         = "⬅ Back"
	BtnListChats    = "Moderated chats"
	BtnAddChat      = "Add chat"
	BtnRemoveChat   = "Remove chat"
	BtnAddWords     = "Add words"
	BtnRemoveWords  = "Remove words"
	BtnListWords    = "Word list"
	BtnWarnings     = "Warnings"
	BtnResetWarning = "Reset warnings"
	BtnHelp         = "Help"
)

// Fixed request ids of the request_chat buttons on the chats keyboard.
const (
	RequestAddChat    = 101
	RequestRemoveChat = 102
)

type keyboardMode int

const (
	keyboardRoot keyboardMode = iota
	keyboardChats
	keyboardWords
)

func replyKeyboard(mode keyboardMode) *telegram.ReplyKeyboardMarkup {
	var rows [][]telegram.KeyboardButton
	switch mode {
	case keyboardChats:
		rows = [][]telegram.KeyboardButton{
			{{Text: BtnListChats}},
			{
				{Text: BtnAddChat, RequestChat: requestChat(RequestAddChat)},
				{Text: BtnRemoveChat, RequestChat: requestChat(RequestRemoveChat)},
			},
			{{Text: BtnBack}},
		}
	case keyboardWords:
		rows = [][]telegram.KeyboardButton{
			{{Text: BtnAddWords}, {Text: BtnRemoveWords}, {Text: BtnListWords}},
			{{Text: BtnBack}},
		}
	default:
		rows = [][]telegram.KeyboardButton{
			{{Text: BtnChats}, {Text: BtnWords}},
			{{Text: BtnWarnings}, {Text: BtnResetWarning}},
			{{Text: BtnHelp}},
		}
	}
	return &telegram.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}

// pickChatKeyboard carries a single request_chat button bound to requestID.
func pickChatKeyboard(label string, requestID int) *telegram.ReplyKeyboardMarkup {
	return &telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: label, RequestChat: requestChat(requestID)}},
			{{Text: BtnBack}},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

func requestChat(id int) *telegram.KeyboardButtonRequestChat {
	return &telegram.KeyboardButtonRequestChat{RequestID: id, ChatIsChannel: false, BotIsMember: true}
}

func inlineButton(label string, a Action) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: label, CallbackData: a.Data()}
}

func inlineKeyboard(mode keyboardMode) *telegram.InlineKeyboardMarkup {
	switch mode {
	case keyboardChats:
		return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{inlineButton(BtnListChats, ActionChatsList)},
			{inlineButton(BtnAddChat, ActionChatsAdd), inlineButton(BtnRemoveChat, ActionChatsRemove)},
			{inlineButton(BtnBack, ActionMenuRoot)},
		}}
	case keyboardWords:
		return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{inlineButton(BtnAddWords, ActionWordsAdd), inlineButton(BtnRemoveWords, ActionWordsRemove)},
			{inlineButton(BtnListWords, ActionWordsList)},
			{inlineButton(BtnBack, ActionMenuRoot)},
		}}
	default:
		return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{inlineButton(BtnChats, ActionMenuChats), inlineButton(BtnWords, ActionMenuWords)},
			{inlineButton(BtnWarnings, ActionMenuWarnings), inlineButton(BtnResetWarning, ActionMenuReset)},
			{inlineButton(BtnHelp, ActionMenuHelp)},
		}}
	}
}

// echoLabels are deleted from the admin chat after their button is handled.
var echoLabels = map[string]struct{}{
	BtnMenu:         {},
	BtnChats:        {},
	BtnWords:        {},
	BtnBack:         {},
	BtnListChats:    {},
	BtnAddChat:      {},
	BtnRemoveChat:   {},
	BtnAddWords:     {},
	BtnRemoveWords:  {},
	BtnListWords:    {},
	BtnWarnings:     {},
	BtnResetWarning: {},
	BtnHelp:         {},
}
