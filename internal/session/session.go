// Package session tracks the single pending question per admin chat.
package session

import (
	"sync"
	"time"
)

type State int

const (
	None State = iota
	AwaitAddChat
	AwaitRemoveChat
	AwaitAddKeyword
	AwaitRemoveKeyword
	AwaitWarningsQuery
	AwaitResetWarning
	// Waiting for a chat picked through a dynamically issued request_chat button.
	AwaitAddChatChoose
	AwaitRemoveChatChoose
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case AwaitAddChat:
		return "await_add_chat"
	case AwaitRemoveChat:
		return "await_remove_chat"
	case AwaitAddKeyword:
		return "await_add_keyword"
	case AwaitRemoveKeyword:
		return "await_remove_keyword"
	case AwaitWarningsQuery:
		return "await_warnings_query"
	case AwaitResetWarning:
		return "await_reset_warning"
	case AwaitAddChatChoose:
		return "await_add_chat_choose"
	case AwaitRemoveChatChoose:
		return "await_remove_chat_choose"
	default:
		return "unknown"
	}
}

// Choosing reports whether s waits for a shared chat instead of text.
func (s State) Choosing() bool {
	return s == AwaitAddChatChoose || s == AwaitRemoveChatChoose
}

type Session struct {
	State     State
	RequestID int
	StartedAt time.Time
}

type Machine struct {
	mu       sync.Mutex
	sessions map[int64]Session
	now      func() time.Time
}

func NewMachine() *Machine {
	return &Machine{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Start replaces any session of chat with a new one in state.
func (m *Machine) Start(chat int64, state State, requestID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == None {
		delete(m.sessions, chat)
		return
	}
	m.sessions[chat] = Session{State: state, RequestID: requestID, StartedAt: m.now()}
}

func (m *Machine) Get(chat int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chat]
	return s, ok
}

// Take returns and clears the session of chat in one step.
func (m *Machine) Take(chat int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chat]
	if ok {
		delete(m.sessions, chat)
	}
	return s, ok
}

// TakeIf clears and returns the session of chat only when match accepts it.
func (m *Machine) TakeIf(chat int64, match func(Session) bool) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chat]
	if !ok || !match(s) {
		return Session{}, false
	}
	delete(m.sessions, chat)
	return s, true
}

func (m *Machine) Clear(chat int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chat)
}

func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
