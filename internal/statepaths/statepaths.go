package statepaths

import (
	"strings"

	"github.com/quailyquaily/modguard/internal/pathutil"
	"github.com/spf13/viper"
)

const (
	StateFilename = "moderation_state.json"
	AuditFilename = "moderation_audit.jsonl"
)

// StatePath is storage.path when set, else the snapshot inside the state dir.
func StatePath() string {
	if p := strings.TrimSpace(viper.GetString("storage.path")); p != "" {
		return pathutil.ResolveStateFile(viper.GetString("file_state_dir"), p)
	}
	return pathutil.ResolveStateFile(viper.GetString("file_state_dir"), StateFilename)
}

// AuditPath returns "" when the moderation audit log is disabled.
func AuditPath() string {
	if !viper.GetBool("audit.enabled") {
		return ""
	}
	name := strings.TrimSpace(viper.GetString("audit.path"))
	if name == "" {
		name = AuditFilename
	}
	return pathutil.ResolveStateFile(viper.GetString("file_state_dir"), name)
}
