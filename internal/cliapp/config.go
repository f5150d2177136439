package cliapp

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RegisterConfigFlag adds the shared --config flag every subcommand's
// PersistentPreRunE resolves through InitConfig, grounded on
// matjam-smoothpaper/internal/cli/root.go's --config/viper wiring.
func RegisterConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/swww/swww-daemon.toml)")
}

// InitConfig loads the daemon's TOML config file, if any, and lays down
// the defaults version.DefaultConfig also documents. Client subcommands
// only use it for --namespace's config-file fallback; the daemon uses the
// rest (format, no_cache, layer, debug, debug_http).
func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("swww-daemon")
		viper.SetConfigType("toml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath("/etc/xdg/swww")
	}

	viper.SetDefault("namespace", "")
	viper.SetDefault("format", "")
	viper.SetDefault("no_cache", false)
	viper.SetDefault("layer", "background")
	viper.SetDefault("debug", false)
	viper.SetDefault("debug_http", false)

	// swww-daemon.toml is optional: a missing file just means every
	// setting falls back to its flag default, unlike smoothpaper.toml
	// which the teacher's ReadInConfig call treats as required.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			cobra.CheckErr(err)
		}
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "swww")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "swww")
}

// InstallDefaultConfig writes version.DefaultConfig to the daemon's config
// path unless a file is already there, per --installconfig.
func InstallDefaultConfig(defaultConfig string) error {
	path := filepath.Join(configDir(), "swww-daemon.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfig), 0o644)
}
