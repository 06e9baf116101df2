package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.poll_timeout", 25*time.Second)
	viper.SetDefault("telegram.request_timeout", 60*time.Second)
	viper.SetDefault("telegram.rate_per_second", 25.0)
	viper.SetDefault("telegram.rate_burst", 5)
	viper.SetDefault("telegram.max_retry_after", 5*time.Second)

	// Admins
	viper.SetDefault("admin.chat_ids", []string{})
	viper.SetDefault("admin.user_ids", []string{})

	// Moderation policy
	viper.SetDefault("moderation.warning_limit", 3)
	viper.SetDefault("moderation.max_message_length", 100)
	viper.SetDefault("moderation.flood_window", 60*time.Second)
	viper.SetDefault("moderation.flood_max_messages", 10)
	viper.SetDefault("moderation.notice_ttl", 20*time.Second)

	// Dispatch
	viper.SetDefault("dispatch.workers", 6)
	viper.SetDefault("dispatch.queue_size", 256)
	viper.SetDefault("dispatch.poll_retry_delay", 5*time.Second)
	viper.SetDefault("dispatch.handler_timeout", 60*time.Second)
	viper.SetDefault("dispatch.shutdown_timeout", 5*time.Second)

	// State
	viper.SetDefault("file_state_dir", "~/.modguard")
	viper.SetDefault("storage.path", "")
	viper.SetDefault("storage.lock", true)
	viper.SetDefault("audit.enabled", true)
	viper.SetDefault("audit.path", "moderation_audit.jsonl")

	viper.SetDefault("metrics.listen", "")
	viper.SetDefault("ephemeral.flush_on_shutdown", false)

	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("trace", false)
}
