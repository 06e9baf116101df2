package outputfmt

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeErrorTextDropsHostAndToken(t *testing.T) {
	in := `Post "https://api.telegram.org/bot123456:AAE-secret_part/banChatMember": dial tcp: i/o timeout`
	out := SanitizeErrorText(in)
	if strings.Contains(out, "api.telegram.org") {
		t.Fatalf("host should be removed, got %q", out)
	}
	if strings.Contains(out, "AAE-secret_part") {
		t.Fatalf("token should be redacted, got %q", out)
	}
	if !strings.Contains(out, `Post "/bot<redacted>/banChatMember": dial tcp: i/o timeout`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSanitizeErrorTextRedactsQuery(t *testing.T) {
	out := SanitizeErrorText("fetch https://proxy.example.com/hook?token=abc&chat=1 failed")
	if strings.Contains(out, "abc") || strings.Contains(out, "proxy.example.com") {
		t.Fatalf("secret or host leaked: %q", out)
	}
	if !strings.Contains(out, "chat=1") || !strings.Contains(out, "token=%5Bredacted%5D") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	if got := FormatErrorForDisplay(nil); got != "" {
		t.Fatalf("nil error = %q", got)
	}
	desc := "telegram banChatMember: http 400: Bad Request: not enough rights"
	if got := FormatErrorForDisplay(errors.New(desc)); got != desc {
		t.Fatalf("plain error changed: %q", got)
	}
}
