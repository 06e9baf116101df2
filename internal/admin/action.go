package admin

import "strings"

// Action is an inline-keyboard action decoded from callback data.
type Action int

const (
	ActionUnknown Action = iota
	ActionMenuRoot
	ActionMenuChats
	ActionMenuWords
	ActionMenuWarnings
	ActionMenuReset
	ActionMenuHelp
	ActionChatsList
	ActionChatsAdd
	ActionChatsRemove
	ActionWordsAdd
	ActionWordsRemove
	ActionWordsList
)

var actionsByData = map[string]Action{
	"menu:root":     ActionMenuRoot,
	"menu:start":    ActionMenuRoot,
	"menu:chats":    ActionMenuChats,
	"menu:words":    ActionMenuWords,
	"menu:warnings": ActionMenuWarnings,
	"menu:reset":    ActionMenuReset,
	"menu:help":     ActionMenuHelp,
	"chats:list":    ActionChatsList,
	"chats:add":     ActionChatsAdd,
	"chats:remove":  ActionChatsRemove,
	"words:add":     ActionWordsAdd,
	"words:remove":  ActionWordsRemove,
	"words:list":    ActionWordsList,
}

// ParseAction decodes callback data. Unrecognized values map to ActionUnknown.
func ParseAction(data string) Action {
	if a, ok := actionsByData[strings.TrimSpace(data)]; ok {
		return a
	}
	return ActionUnknown
}

// Data returns the canonical callback data for a.
func (a Action) Data() string {
	switch a {
	case ActionMenuRoot:
		return "menu:root"
	case ActionMenuChats:
		return "menu:chats"
	case ActionMenuWords:
		return "menu:words"
	case ActionMenuWarnings:
		return "menu:warnings"
	case ActionMenuReset:
		return "menu:reset"
	case ActionMenuHelp:
		return "menu:help"
	case ActionChatsList:
		return "chats:list"
	case ActionChatsAdd:
		return "chats:add"
	case ActionChatsRemove:
		return "chats:remove"
	case ActionWordsAdd:
		return "words:add"
	case ActionWordsRemove:
		return "words:remove"
	case ActionWordsList:
		return "words:list"
	default:
		return ""
	}
}
