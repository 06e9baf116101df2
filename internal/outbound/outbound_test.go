package outbound

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/quailyquaily/modguard/internal/delayed"
	"github.com/quailyquaily/modguard/internal/logutil"
	"github.com/quailyquaily/modguard/internal/telegram"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []int64
	deleted [][2]int64
	failFor map[int64]bool
	nextID  int64
}

func (f *fakeAPI) SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[chatID] {
		return nil, &telegram.RequestError{Method: "sendMessage", Description: "Forbidden"}
	}
	f.sent = append(f.sent, chatID)
	f.nextID++
	return &telegram.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, [2]int64{chatID, messageID})
	return nil
}

type fakeScheduler struct {
	delays []time.Duration
	tasks  []delayed.Task
}

func (f *fakeScheduler) Schedule(delay time.Duration, fn delayed.Task) delayed.ID {
	f.delays = append(f.delays, delay)
	f.tasks = append(f.tasks, fn)
	return delayed.ID("id")
}

func TestSendEphemeralSchedulesDeletion(t *testing.T) {
	api := &fakeAPI{}
	sched := &fakeScheduler{}
	o := New(api, sched, Options{NoticeTTL: 15 * time.Second, Logger: logutil.Discard()})

	o.SendEphemeral(context.Background(), -100, "hello", telegram.SendOptions{})
	if len(sched.tasks) != 1 || sched.delays[0] != 15*time.Second {
		t.Fatalf("scheduled = %v, want one task at 15s", sched.delays)
	}
	if err := sched.tasks[0](context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}
	if !reflect.DeepEqual(api.deleted, [][2]int64{{-100, 1}}) {
		t.Fatalf("deleted = %v", api.deleted)
	}
}

func TestSendEphemeralSkipsScheduleOnFailure(t *testing.T) {
	api := &fakeAPI{failFor: map[int64]bool{-100: true}}
	sched := &fakeScheduler{}
	o := New(api, sched, Options{Logger: logutil.Discard()})

	o.SendEphemeral(context.Background(), -100, "hello", telegram.SendOptions{})
	if len(sched.tasks) != 0 {
		t.Fatalf("task scheduled after failed send")
	}
}

func TestNotifyAdminsFallsBackToUsers(t *testing.T) {
	api := &fakeAPI{}
	o := New(api, nil, Options{AdminUserIDs: []int64{11, 12}, Logger: logutil.Discard()})
	o.NotifyAdmins(context.Background(), "note")
	if !reflect.DeepEqual(api.sent, []int64{11, 12}) {
		t.Fatalf("sent = %v, want admin users", api.sent)
	}

	api = &fakeAPI{failFor: map[int64]bool{-1: true}}
	o = New(api, nil, Options{AdminChatIDs: []int64{-1, -2}, AdminUserIDs: []int64{11}, Logger: logutil.Discard()})
	o.NotifyAdmins(context.Background(), "note")
	if !reflect.DeepEqual(api.sent, []int64{-2}) {
		t.Fatalf("sent = %v, want only the healthy admin chat", api.sent)
	}
	if got := o.AdminDestinations(); !reflect.DeepEqual(got, []int64{-1, -2}) {
		t.Fatalf("AdminDestinations() = %v, want admin chats", got)
	}
	got := o.AdminDestinations()
	got[0] = 99
	if o.AdminDestinations()[0] != -1 {
		t.Fatalf("AdminDestinations() exposed internal slice")
	}
}

func TestSendReturnsError(t *testing.T) {
	api := &fakeAPI{failFor: map[int64]bool{5: true}}
	o := New(api, nil, Options{Logger: logutil.Discard()})
	_, err := o.Send(context.Background(), 5, "x", telegram.SendOptions{})
	var reqErr *telegram.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Send() error = %v, want *RequestError", err)
	}
}
