package admin

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/quailyquaily/modguard/internal/event"
	"github.com/quailyquaily/modguard/internal/logutil"
	"github.com/quailyquaily/modguard/internal/modstore"
	"github.com/quailyquaily/modguard/internal/session"
	"github.com/quailyquaily/modguard/internal/telegram"
)

const (
	adminChat = int64(-500)
	adminUser = int64(42)
	groupChat = int64(-100123)
)

type sent struct {
	chat   int64
	text   string
	markup telegram.ReplyMarkup
}

type fakeSender struct {
	mu     sync.Mutex
	msgs   []sent
	nextID int64
}

func (f *fakeSender) Send(ctx context.Context, chat int64, text string, opts telegram.SendOptions) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{chat: chat, text: text, markup: opts.ReplyMarkup})
	f.nextID++
	return &telegram.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) last(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		t.Fatalf("no messages sent")
	}
	return f.msgs[len(f.msgs)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type fakeAPI struct {
	mu       sync.Mutex
	chats    map[int64]*telegram.Chat
	edits    []string
	editErr  error
	deleted  []int64
	answered []string
}

func (f *fakeAPI) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeAPI) GetChat(ctx context.Context, chatID int64) (*telegram.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chats[chatID]; ok {
		return c, nil
	}
	return nil, errors.New("chat not found")
}

func (f *fakeAPI) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackQueryID)
	return nil
}

type fixture struct {
	router *Router
	api    *fakeAPI
	sender *fakeSender
	store  *modstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := modstore.Open(filepath.Join(t.TempDir(), "state.json"), modstore.Options{Logger: logutil.Discard()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	api := &fakeAPI{chats: map[int64]*telegram.Chat{}}
	sender := &fakeSender{}
	r := New(Deps{
		API:       api,
		Sender:    sender,
		Store:     store,
		Logger:    logutil.Discard(),
		RequestID: func() int { return 7777 },
	}, Config{AdminChatIDs: []int64{adminChat}, AdminUserIDs: []int64{adminUser}})
	return &fixture{router: r, api: api, sender: sender, store: store}
}

func (f *fixture) say(text string) {
	f.router.HandleMessage(context.Background(), event.Event{
		Kind:      event.KindMessage,
		Chat:      event.Chat{ID: adminChat, Type: event.ChatGroup},
		From:      &event.User{ID: adminUser},
		MessageID: 900,
		Text:      text,
	})
}

func (f *fixture) share(requestID int, chat int64) {
	f.router.HandleMessage(context.Background(), event.Event{
		Kind:   event.KindMessage,
		Chat:   event.Chat{ID: adminChat, Type: event.ChatGroup},
		From:   &event.User{ID: adminUser},
		Shared: &event.ChatShared{RequestID: requestID, ChatID: chat},
	})
}

func (f *fixture) click(data string, from int64, chat event.Chat) {
	f.router.HandleCallback(context.Background(), event.Event{
		Kind:     event.KindCallbackQuery,
		Chat:     chat,
		From:     &event.User{ID: from},
		Callback: &event.Callback{ID: "cb-" + data, Data: data},
	})
}

func TestIsAdminContext(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		ev   event.Event
		want bool
	}{
		{"admin chat", event.Event{Chat: event.Chat{ID: adminChat, Type: event.ChatGroup}}, true},
		{"admin user private", event.Event{Chat: event.Chat{ID: adminUser, Type: event.ChatPrivate}, From: &event.User{ID: adminUser}}, true},
		{"admin user in group", event.Event{Chat: event.Chat{ID: groupChat, Type: event.ChatSupergroup}, From: &event.User{ID: adminUser}}, false},
		{"stranger private", event.Event{Chat: event.Chat{ID: 5, Type: event.ChatPrivate}, From: &event.User{ID: 5}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.router.IsAdminContext(tc.ev); got != tc.want {
				t.Fatalf("IsAdminContext() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAddAndRemoveChatCommands(t *testing.T) {
	f := newFixture(t)

	f.say(`/add_chat@modguard_bot -100123 "Night Owls"`)
	if got := f.sender.last(t).text; got != "Chat -100123 added." {
		t.Fatalf("reply = %q", got)
	}
	if got := f.store.ListChats()[groupChat].Title; got != "Night Owls" {
		t.Fatalf("title = %q, want Night Owls", got)
	}

	f.say("/add_chat -100123")
	if got := f.sender.last(t).text; !strings.Contains(got, "already listed") {
		t.Fatalf("reply = %q", got)
	}

	f.say("/remove_chat -100123")
	if got := f.sender.last(t).text; got != "Chat -100123 removed." {
		t.Fatalf("reply = %q", got)
	}
	f.say("/remove_chat -100123")
	if got := f.sender.last(t).text; got != "Chat -100123 not found." {
		t.Fatalf("reply = %q", got)
	}
}

func TestInvalidNumberIsReported(t *testing.T) {
	f := newFixture(t)
	f.say("/add_chat abc")
	if got := f.sender.last(t).text; got != "Error: invalid number for chat_id: abc" {
		t.Fatalf("reply = %q", got)
	}
	if f.store.ChatCount() != 0 {
		t.Fatalf("store changed on invalid input")
	}
}

func TestPromptThenStep(t *testing.T) {
	f := newFixture(t)

	f.say(BtnAddWords)
	if got := f.sender.last(t).text; got != prompts[session.AwaitAddKeyword].text {
		t.Fatalf("prompt = %q", got)
	}
	if len(f.api.deleted) != 1 || f.api.deleted[0] != 900 {
		t.Fatalf("echo not deleted: %v", f.api.deleted)
	}

	f.say("Spam, CASINO, spam")
	if got := f.sender.last(t).text; got != "Words added: 2." {
		t.Fatalf("reply = %q", got)
	}
	if _, ok := f.router.sessions.Get(adminChat); ok {
		t.Fatalf("session still pending after step")
	}

	f.say("/add_keyword spam")
	if got := f.sender.last(t).text; got != "No new words found." {
		t.Fatalf("reply = %q", got)
	}

	f.say("/list_keywords")
	if got := f.sender.last(t).text; got != "Keywords:\nSpam\nCASINO" {
		t.Fatalf("list = %q", got)
	}

	f.say("/remove_keyword")
	f.say("casino")
	if got := f.sender.last(t).text; got != "Words removed: 1." {
		t.Fatalf("reply = %q", got)
	}
}

func TestCommandWithoutArgsStartsPrompt(t *testing.T) {
	f := newFixture(t)
	f.say("/reset_warning")
	sess, ok := f.router.sessions.Get(adminChat)
	if !ok || sess.State != session.AwaitResetWarning {
		t.Fatalf("session = %+v, %v", sess, ok)
	}
	f.say("-100123")
	if got := f.sender.last(t).text; !strings.HasPrefix(got, "Error: chat_id and user_id are required") {
		t.Fatalf("reply = %q", got)
	}
	if _, ok := f.router.sessions.Get(adminChat); ok {
		t.Fatalf("session must be consumed by a failed step")
	}
}

func TestWarningsAndReset(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.AddChat(groupChat, "Crew"); err != nil {
		t.Fatalf("AddChat() error = %v", err)
	}
	for _, uid := range []int64{9, 3, 9} {
		if _, err := f.store.IncrementWarning(groupChat, uid); err != nil {
			t.Fatalf("IncrementWarning() error = %v", err)
		}
	}

	f.say("/warnings -100123")
	if got := f.sender.last(t).text; got != "Warnings in chat -100123:\n3: 1\n9: 2" {
		t.Fatalf("warnings = %q", got)
	}
	f.say("/warnings -100123 9")
	if got := f.sender.last(t).text; got != "User 9 has 2 warnings in chat -100123." {
		t.Fatalf("warnings = %q", got)
	}
	f.say("/reset_warning -100123 9")
	if got := f.sender.last(t).text; got != "Warning counter of user 9 reset." {
		t.Fatalf("reset = %q", got)
	}
	if f.store.Warning(groupChat, 9) != 0 {
		t.Fatalf("warning not reset")
	}
	f.say("/reset_warning -100123 9")
	if got := f.sender.last(t).text; !strings.HasPrefix(got, "No warnings found") {
		t.Fatalf("reset = %q", got)
	}
}

func TestListChatsRefreshesTitles(t *testing.T) {
	f := newFixture(t)
	for _, id := range []int64{-3, -1, -2} {
		if _, err := f.store.AddChat(id, ""); err != nil {
			t.Fatalf("AddChat() error = %v", err)
		}
	}
	f.api.chats[-1] = &telegram.Chat{ID: -1, Title: "Fresh"}
	f.api.chats[-2] = &telegram.Chat{ID: -2, Username: "public_chan"}

	f.say(BtnListChats)
	want := "Moderated chats:\nUntitled (-3), warned users: 0\n@public_chan (-2), warned users: 0\nFresh (-1), warned users: 0"
	if got := f.sender.last(t).text; got != want {
		t.Fatalf("list =\n%s\nwant\n%s", got, want)
	}
	if got := f.store.ListChats()[-1].Title; got != "Fresh" {
		t.Fatalf("stored title = %q", got)
	}
}

func TestSharedChatFixedRequestIDs(t *testing.T) {
	f := newFixture(t)
	f.api.chats[groupChat] = &telegram.Chat{ID: groupChat, Title: "Picked"}
	f.router.sessions.Start(adminChat, session.AwaitAddKeyword, 0)

	f.share(RequestAddChat, groupChat)
	if got := f.sender.last(t).text; got != "Chat -100123 added." {
		t.Fatalf("reply = %q", got)
	}
	if got := f.store.ListChats()[groupChat].Title; got != "Picked" {
		t.Fatalf("title = %q", got)
	}
	if _, ok := f.router.sessions.Get(adminChat); ok {
		t.Fatalf("fixed request id must clear the session")
	}

	f.share(RequestRemoveChat, groupChat)
	if f.store.IsModerated(groupChat) {
		t.Fatalf("chat still moderated")
	}
}

func TestSharedChatDynamicRequestID(t *testing.T) {
	f := newFixture(t)
	f.click(ActionChatsAdd.Data(), adminUser, event.Chat{ID: adminChat, Type: event.ChatGroup})
	sess, ok := f.router.sessions.Get(adminChat)
	if !ok || sess.State != session.AwaitAddChatChoose || sess.RequestID != 7777 {
		t.Fatalf("session = %+v, %v", sess, ok)
	}

	before := f.sender.count()
	f.share(1234, groupChat)
	if f.sender.count() != before || f.store.IsModerated(groupChat) {
		t.Fatalf("mismatched request id must be ignored")
	}
	if _, ok := f.router.sessions.Get(adminChat); !ok {
		t.Fatalf("mismatched request id must keep the session")
	}

	f.share(7777, groupChat)
	if !f.store.IsModerated(groupChat) {
		t.Fatalf("chat not added")
	}
	if _, ok := f.router.sessions.Get(adminChat); ok {
		t.Fatalf("session not consumed")
	}
}

func TestTextInChooseStateIsRejected(t *testing.T) {
	f := newFixture(t)
	f.router.sessions.Start(adminChat, session.AwaitRemoveChatChoose, 55)
	f.say("-100123")
	if got := f.sender.last(t).text; !strings.HasPrefix(got, "Error: pick a chat") {
		t.Fatalf("reply = %q", got)
	}
}

func TestButtonsClearSession(t *testing.T) {
	f := newFixture(t)
	f.say(BtnWarnings)
	f.say(BtnBack)
	if _, ok := f.router.sessions.Get(adminChat); ok {
		t.Fatalf("Back must clear the session")
	}
	if got := f.sender.last(t).text; got != "Main menu:" {
		t.Fatalf("reply = %q", got)
	}
	if _, ok := f.sender.last(t).markup.(*telegram.ReplyKeyboardMarkup); !ok {
		t.Fatalf("markup = %T, want reply keyboard", f.sender.last(t).markup)
	}
}

func TestUnknownCommandAndPlainText(t *testing.T) {
	f := newFixture(t)
	f.say("/frobnicate")
	if got := f.sender.last(t).text; got != "Unknown command. Press Help or Menu." {
		t.Fatalf("reply = %q", got)
	}
	f.say("hello there")
	if got := f.sender.last(t).text; got != "Main menu:" {
		t.Fatalf("reply = %q", got)
	}
	f.say("/start")
	if got := f.sender.last(t).text; got != helpText {
		t.Fatalf("reply = %q", got)
	}
}

func TestCallbackAnsweredAndGated(t *testing.T) {
	f := newFixture(t)
	stranger := event.Chat{ID: 77, Type: event.ChatPrivate}
	f.click(ActionMenuChats.Data(), 77, stranger)
	if len(f.api.answered) != 1 {
		t.Fatalf("callback not answered")
	}
	if f.sender.count() != 0 {
		t.Fatalf("non-admin callback produced output")
	}

	f.click("bogus", adminUser, event.Chat{ID: adminChat, Type: event.ChatGroup})
	if len(f.api.answered) != 2 || f.sender.count() != 0 {
		t.Fatalf("unknown callback: answered=%d sent=%d", len(f.api.answered), f.sender.count())
	}
}

func TestMenuUpsertEditsTrackedMessage(t *testing.T) {
	f := newFixture(t)
	chat := event.Chat{ID: adminChat, Type: event.ChatGroup}
	f.say("/menu")
	if f.sender.count() != 1 {
		t.Fatalf("menu not sent")
	}
	f.click(ActionMenuWords.Data(), adminUser, chat)
	if f.sender.count() != 1 || len(f.api.edits) != 1 || f.api.edits[0] != "Word management:" {
		t.Fatalf("sent=%d edits=%v", f.sender.count(), f.api.edits)
	}

	f.api.editErr = &telegram.RequestError{Method: "editMessageText", StatusCode: 400, Description: "Bad Request: message is not modified"}
	f.click(ActionMenuWords.Data(), adminUser, chat)
	if f.sender.count() != 1 {
		t.Fatalf("not-modified must not resend the menu")
	}

	f.api.editErr = &telegram.RequestError{Method: "editMessageText", StatusCode: 400, Description: "Bad Request: message to edit not found"}
	f.click(ActionMenuRoot.Data(), adminUser, chat)
	if f.sender.count() != 2 {
		t.Fatalf("failed edit must fall back to a new message")
	}
}

func TestSplitCommand(t *testing.T) {
	cmd, args := splitCommand("  /Add_Chat@Bot   -1  Title  ")
	if cmd != "/add_chat" || len(args) != 2 || args[0] != "-1" || args[1] != "Title" {
		t.Fatalf("splitCommand() = %q, %q", cmd, args)
	}
	if cmd, _ := splitCommand(""); cmd != "" {
		t.Fatalf("empty cmd = %q", cmd)
	}
}

func TestParseAction(t *testing.T) {
	if ParseAction("menu:start") != ActionMenuRoot {
		t.Fatalf("menu:start must map to the root menu")
	}
	for a := ActionMenuRoot; a <= ActionWordsList; a++ {
		if ParseAction(a.Data()) != a {
			t.Fatalf("ParseAction(%q) != %v", a.Data(), a)
		}
	}
	if ParseAction("nope") != ActionUnknown {
		t.Fatalf("unknown data must map to ActionUnknown")
	}
}
