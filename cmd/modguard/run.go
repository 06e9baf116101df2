package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quailyquaily/modguard/internal/botruntime"
	"github.com/quailyquaily/modguard/internal/configutil"
	"github.com/quailyquaily/modguard/internal/logutil"
	"github.com/quailyquaily/modguard/internal/pathutil"
	"github.com/quailyquaily/modguard/internal/statepaths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the moderation bot (long polling)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := runOptionsFromFlags(cmd)
			if err != nil {
				return err
			}
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			opts.Logger = logger

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return botruntime.Run(ctx, opts)
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().String("telegram-base-url", "https://api.telegram.org", "Bot API base URL.")
	cmd.Flags().Duration("poll-timeout", 25*time.Second, "Long-poll wait per getUpdates call.")
	cmd.Flags().StringArray("admin-chat-id", nil, "Admin chat id (repeatable, comma-separated allowed).")
	cmd.Flags().StringArray("admin-user-id", nil, "Admin user id (repeatable, comma-separated allowed).")
	cmd.Flags().Int("warning-limit", 3, "Warnings before a ban.")
	cmd.Flags().Int("max-message-length", 100, "Longer messages are deleted.")
	cmd.Flags().Duration("flood-window", 60*time.Second, "Anti-flood sliding window.")
	cmd.Flags().Int("flood-max-messages", 10, "Messages allowed per user inside the flood window.")
	cmd.Flags().Duration("notice-ttl", 20*time.Second, "Lifetime of ephemeral notices.")
	cmd.Flags().Int("workers", 6, "Concurrent update handlers.")
	cmd.Flags().Int("queue-size", 256, "Updates buffered between intake and workers.")
	cmd.Flags().String("state-path", "", "State snapshot path (defaults to <file_state_dir>/moderation_state.json).")
	cmd.Flags().String("metrics-listen", "", "Serve /metrics and /healthz on this address.")
	cmd.Flags().Bool("flush-on-shutdown", false, "Delete pending ephemeral notices on shutdown instead of leaving them.")

	return cmd
}

func runOptionsFromFlags(cmd *cobra.Command) (botruntime.Options, error) {
	adminChats, err := configutil.ParseInt64List("admin.chat_ids", configutil.FlagOrViperList(cmd, "admin-chat-id", "admin.chat_ids"))
	if err != nil {
		return botruntime.Options{}, err
	}
	adminUsers, err := configutil.ParseInt64List("admin.user_ids", configutil.FlagOrViperList(cmd, "admin-user-id", "admin.user_ids"))
	if err != nil {
		return botruntime.Options{}, err
	}

	statePath := statepaths.StatePath()
	if p := strings.TrimSpace(configutil.FlagOrViperString(cmd, "state-path", "")); p != "" {
		statePath = pathutil.ExpandHomePath(p)
	}

	return botruntime.Options{
		BotToken:         configutil.FlagOrViperString(cmd, "telegram-bot-token", "telegram.bot_token"),
		BaseURL:          configutil.FlagOrViperString(cmd, "telegram-base-url", "telegram.base_url"),
		PollTimeout:      configutil.FlagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout"),
		RequestTimeout:   viper.GetDuration("telegram.request_timeout"),
		RatePerSecond:    viper.GetFloat64("telegram.rate_per_second"),
		RateBurst:        viper.GetInt("telegram.rate_burst"),
		MaxRetryAfter:    viper.GetDuration("telegram.max_retry_after"),
		AdminChatIDs:     adminChats,
		AdminUserIDs:     adminUsers,
		WarningLimit:     configutil.FlagOrViperInt(cmd, "warning-limit", "moderation.warning_limit"),
		MaxMessageLength: configutil.FlagOrViperInt(cmd, "max-message-length", "moderation.max_message_length"),
		FloodWindow:      configutil.FlagOrViperDuration(cmd, "flood-window", "moderation.flood_window"),
		FloodMaxMessages: configutil.FlagOrViperInt(cmd, "flood-max-messages", "moderation.flood_max_messages"),
		NoticeTTL:        configutil.FlagOrViperDuration(cmd, "notice-ttl", "moderation.notice_ttl"),
		Workers:          configutil.FlagOrViperInt(cmd, "workers", "dispatch.workers"),
		QueueSize:        configutil.FlagOrViperInt(cmd, "queue-size", "dispatch.queue_size"),
		PollRetryDelay:   viper.GetDuration("dispatch.poll_retry_delay"),
		HandlerTimeout:   viper.GetDuration("dispatch.handler_timeout"),
		ShutdownTimeout:  viper.GetDuration("dispatch.shutdown_timeout"),
		StatePath:        statePath,
		StateLock:        viper.GetBool("storage.lock"),
		AuditPath:        statepaths.AuditPath(),
		MetricsListen:    configutil.FlagOrViperString(cmd, "metrics-listen", "metrics.listen"),
		FlushOnShutdown:  configutil.FlagOrViperBool(cmd, "flush-on-shutdown", "ephemeral.flush_on_shutdown"),
	}, nil
}

