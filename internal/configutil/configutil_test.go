package configutil

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestParseInt64List(t *testing.T) {
	cases := []struct {
		name   string
		values []string
		want   []int64
	}{
		{"empty", nil, nil},
		{"repeated", []string{"1", "2"}, []int64{1, 2}},
		{"comma separated", []string{" -100, 200 ,,"}, []int64{-100, 200}},
		{"comment", []string{"100, 200 # ops team", "#300"}, []int64{100, 200}},
		{"dedup", []string{"5,5", "5"}, []int64{5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseInt64List("admin.chat_ids", tc.values)
			if err != nil {
				t.Fatalf("ParseInt64List() error = %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseInt64List() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseInt64ListRejectsGarbage(t *testing.T) {
	_, err := ParseInt64List("admin.user_ids", []string{"12, abc"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), `admin.user_ids entry "abc"`) {
		t.Fatalf("error = %v", err)
	}
}

func TestFlagOrViperPrecedence(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Duration("poll-timeout", 25*time.Second, "")
	cmd.Flags().Int("workers", 6, "")
	cmd.Flags().String("listen", "", "")

	if got := FlagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout"); got != 25*time.Second {
		t.Fatalf("default = %v, want 25s", got)
	}

	viper.Set("telegram.poll_timeout", "40s")
	viper.Set("dispatch.workers", 9)
	if got := FlagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout"); got != 40*time.Second {
		t.Fatalf("viper = %v, want 40s", got)
	}
	if got := FlagOrViperInt(cmd, "workers", "dispatch.workers"); got != 9 {
		t.Fatalf("viper workers = %d, want 9", got)
	}

	if err := cmd.Flags().Set("workers", "2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := FlagOrViperInt(cmd, "workers", "dispatch.workers"); got != 2 {
		t.Fatalf("flag workers = %d, want 2", got)
	}
	if got := FlagOrViperString(cmd, "listen", ""); got != "" {
		t.Fatalf("listen = %q, want empty", got)
	}
}

func TestFlagOrViperListKeepsScalarWhole(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().StringArray("admin-chat-id", nil, "")

	viper.Set("admin.chat_ids", "100, 200 # ops team")
	got, err := ParseInt64List("admin.chat_ids", FlagOrViperList(cmd, "admin-chat-id", "admin.chat_ids"))
	if err != nil {
		t.Fatalf("ParseInt64List() error = %v", err)
	}
	if !reflect.DeepEqual(got, []int64{100, 200}) {
		t.Fatalf("ids = %v, want [100 200]", got)
	}

	viper.Set("admin.chat_ids", []any{300, "400"})
	got, err = ParseInt64List("admin.chat_ids", FlagOrViperList(cmd, "admin-chat-id", "admin.chat_ids"))
	if err != nil {
		t.Fatalf("ParseInt64List() error = %v", err)
	}
	if !reflect.DeepEqual(got, []int64{300, 400}) {
		t.Fatalf("ids = %v, want [300 400]", got)
	}
}
