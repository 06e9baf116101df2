package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHomePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := ExpandHomePath("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Fatalf("ExpandHomePath() = %q", got)
	}
	if got := ExpandHomePath("~"); got != home {
		t.Fatalf("ExpandHomePath(~) = %q", got)
	}
	if got := ExpandHomePath("/abs/path"); got != "/abs/path" {
		t.Fatalf("ExpandHomePath(abs) = %q", got)
	}
}

func TestResolveStateFile(t *testing.T) {
	dir := t.TempDir()
	if got := ResolveStateFile(dir, "state.json"); got != filepath.Join(dir, "state.json") {
		t.Fatalf("ResolveStateFile(relative) = %q", got)
	}
	abs := filepath.Join(t.TempDir(), "other.json")
	if got := ResolveStateFile(dir, abs); got != abs {
		t.Fatalf("ResolveStateFile(abs) = %q", got)
	}
	if got := ResolveStateFile(dir, " "); got != "" {
		t.Fatalf("ResolveStateFile(empty) = %q", got)
	}
}
