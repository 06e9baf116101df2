package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/quailyquaily/modguard/internal/pathutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "MODGUARD"

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "modguard",
		Short:        "Telegram group moderation bot",
		SilenceUsage: true,
	}
	cobra.OnInitialize(initConfig)

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Config file path (defaults to <file_state_dir>/config.yaml when present).")
	pf.String("env-file", ".env", "Dotenv file loaded before reading the environment (skipped when missing).")
	pf.String("log-level", "", "Logging level: debug|info|warn|error (defaults to info; debug if --trace).")
	pf.String("log-format", "text", "Logging format: text|json.")
	pf.Bool("log-add-source", false, "Include source file:line in logs.")
	pf.Bool("trace", false, "Shorthand for debug logging when --log-level is unset.")
	bindFlags(pf, map[string]string{
		"config":             "config",
		"env_file":           "env-file",
		"logging.level":      "log-level",
		"logging.format":     "log-format",
		"logging.add_source": "log-add-source",
		"trace":              "trace",
	})

	cmd.AddCommand(newRunCmd(), newInitCmd(), newStateCmd(), newVersionCmd())
	return cmd
}

func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = viper.BindPFlag(key, fs.Lookup(name))
	}
}

// initConfig layers defaults, the dotenv file, MODGUARD_* variables and the
// config file. Variables already in the process env beat the dotenv file.
func initConfig() {
	initViperDefaults()
	if err := loadEnvFile(viper.GetString("env_file")); err != nil {
		warnf(os.Stderr, "Failed to load env file: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	cfgFile := resolveConfigFile(viper.GetString("config"), viper.GetString("file_state_dir"))
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		warnf(os.Stderr, "Failed to read config: %v", err)
	}
}

func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// resolveConfigFile returns the explicit path, else config.yaml in the state
// dir when it exists, else "".
func resolveConfigFile(explicit, stateDir string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return pathutil.ExpandHomePath(p)
	}
	candidate := filepath.Join(pathutil.ResolveStateDir(stateDir), "config.yaml")
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}

func warnf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
