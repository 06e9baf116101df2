package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quailyquaily/modguard/internal/configutil"
	"github.com/quailyquaily/modguard/internal/fsstore"
	"github.com/quailyquaily/modguard/internal/pathutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

type initConfigFile struct {
	FileStateDir string            `yaml:"file_state_dir"`
	Telegram     initTelegramBlock `yaml:"telegram"`
	Admin        initAdminBlock    `yaml:"admin"`
	Moderation   initModBlock      `yaml:"moderation"`
	Dispatch     initDispatchBlock `yaml:"dispatch"`
	Metrics      initMetricsBlock  `yaml:"metrics"`
	Logging      initLoggingBlock  `yaml:"logging"`
}

type initTelegramBlock struct {
	BotToken    string `yaml:"bot_token"`
	PollTimeout string `yaml:"poll_timeout"`
}

type initAdminBlock struct {
	ChatIDs []int64 `yaml:"chat_ids"`
	UserIDs []int64 `yaml:"user_ids"`
}

type initModBlock struct {
	WarningLimit     int    `yaml:"warning_limit"`
	MaxMessageLength int    `yaml:"max_message_length"`
	FloodWindow      string `yaml:"flood_window"`
	FloodMaxMessages int    `yaml:"flood_max_messages"`
	NoticeTTL        string `yaml:"notice_ttl"`
}

type initDispatchBlock struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type initMetricsBlock struct {
	Listen string `yaml:"listen"`
}

type initLoggingBlock struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter config.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "~/.modguard/"
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = args[0]
			}
			dir = pathutil.ExpandHomePath(dir)
			if strings.TrimSpace(dir) == "" {
				return fmt.Errorf("invalid dir")
			}
			dir = filepath.Clean(dir)

			cfgPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}

			adminChats, err := configutil.ParseInt64List("admin.chat_ids", configutil.FlagOrViperStringArray(cmd, "admin-chat-id", ""))
			if err != nil {
				return err
			}
			adminUsers, err := configutil.ParseInt64List("admin.user_ids", configutil.FlagOrViperStringArray(cmd, "admin-user-id", ""))
			if err != nil {
				return err
			}
			token := strings.TrimSpace(configutil.FlagOrViperString(cmd, "telegram-bot-token", ""))
			if token == "" {
				token, err = promptToken(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}

			body, err := renderInitConfig(dir, token, adminChats, adminUsers)
			if err != nil {
				return err
			}
			if err := fsstore.EnsureDir(dir, 0o700); err != nil {
				return err
			}
			if err := fsstore.WriteFileAtomic(cfgPath, body, fsstore.FileOptions{FilePerm: 0o600}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", cfgPath)
			return nil
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Bot token to store (prompted when stdin is a terminal).")
	cmd.Flags().StringArray("admin-chat-id", nil, "Admin chat id (repeatable).")
	cmd.Flags().StringArray("admin-user-id", nil, "Admin user id (repeatable).")
	return cmd
}

func renderInitConfig(dir, token string, adminChats, adminUsers []int64) ([]byte, error) {
	if adminChats == nil {
		adminChats = []int64{}
	}
	if adminUsers == nil {
		adminUsers = []int64{}
	}
	cfg := initConfigFile{
		FileStateDir: filepath.ToSlash(dir),
		Telegram:     initTelegramBlock{BotToken: token, PollTimeout: "25s"},
		Admin:        initAdminBlock{ChatIDs: adminChats, UserIDs: adminUsers},
		Moderation: initModBlock{
			WarningLimit:     3,
			MaxMessageLength: 100,
			FloodWindow:      "60s",
			FloodMaxMessages: 10,
			NoticeTTL:        "20s",
		},
		Dispatch: initDispatchBlock{Workers: 6, QueueSize: 256},
		Logging:  initLoggingBlock{Level: "info", Format: "text"},
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return out, nil
}

// promptToken reads the token without echo when stdin is a terminal. In any
// other case it returns "" and the token is left for the environment.
func promptToken(in io.Reader, prompt io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	_, _ = fmt.Fprint(prompt, "Telegram bot token (leave empty to set MODGUARD_TELEGRAM_BOT_TOKEN later): ")
	raw, err := term.ReadPassword(int(f.Fd()))
	_, _ = fmt.Fprintln(prompt)
	if err != nil {
		return readLine(in)
	}
	return strings.TrimSpace(string(raw)), nil
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
