package botruntime

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeOptionsDefaults(t *testing.T) {
	got := normalizeOptions(Options{})
	if got.BaseURL != "https://api.telegram.org" {
		t.Fatalf("base url = %q", got.BaseURL)
	}
	if got.PollTimeout != 25*time.Second || got.RequestTimeout != 60*time.Second {
		t.Fatalf("poll/request timeout = %v/%v, want 25s/60s", got.PollTimeout, got.RequestTimeout)
	}
	if got.WarningLimit != 3 || got.MaxMessageLength != 100 {
		t.Fatalf("warning limit/max length = %d/%d, want 3/100", got.WarningLimit, got.MaxMessageLength)
	}
	if got.FloodWindow != time.Minute || got.FloodMaxMessages != 10 {
		t.Fatalf("flood = %v/%d, want 1m/10", got.FloodWindow, got.FloodMaxMessages)
	}
	if got.NoticeTTL != 20*time.Second || got.Workers != 6 || got.QueueSize != 256 {
		t.Fatalf("notice ttl/workers/queue = %v/%d/%d", got.NoticeTTL, got.Workers, got.QueueSize)
	}
	if got.Logger == nil {
		t.Fatalf("logger should default")
	}
}

func TestNormalizeOptionsRaisesRequestTimeout(t *testing.T) {
	got := normalizeOptions(Options{PollTimeout: 50 * time.Second, RequestTimeout: 30 * time.Second})
	if got.RequestTimeout != time.Minute {
		t.Fatalf("request timeout = %v, want 1m", got.RequestTimeout)
	}
}

func TestNormalizeOptionsTrimsAndDedups(t *testing.T) {
	got := normalizeOptions(Options{
		BotToken:     " token ",
		AdminChatIDs: []int64{-1, 0, -1, -2},
		AdminUserIDs: []int64{7, 7},
		StatePath:    " /tmp/state.json ",
	})
	if got.BotToken != "token" || got.StatePath != "/tmp/state.json" {
		t.Fatalf("trim mismatch: %#v", got)
	}
	if len(got.AdminChatIDs) != 2 || got.AdminChatIDs[0] != -1 || got.AdminChatIDs[1] != -2 {
		t.Fatalf("admin chats = %v, want [-1 -2]", got.AdminChatIDs)
	}
	if len(got.AdminUserIDs) != 1 {
		t.Fatalf("admin users = %v, want [7]", got.AdminUserIDs)
	}
}

func TestValidateOptions(t *testing.T) {
	err := validateOptions(normalizeOptions(Options{}))
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"telegram.bot_token", "no admins configured", "state path"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
	ok := normalizeOptions(Options{BotToken: "t", AdminUserIDs: []int64{1}, StatePath: "s.json"})
	if err := validateOptions(ok); err != nil {
		t.Fatalf("validateOptions() error = %v", err)
	}
}
