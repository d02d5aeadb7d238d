package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hazyhaar/lexcheck/pkg/importer"
	"github.com/hazyhaar/lexcheck/pkg/match"
	"github.com/hazyhaar/lexcheck/pkg/mcpquic"
)

type config struct {
	Addr          string            `mapstructure:"addr"`
	CatalogsDir   string            `mapstructure:"catalogs_dir"`
	SourcesDB     string            `mapstructure:"sources_db"`
	Threshold     float64           `mapstructure:"threshold"`
	CheckInterval time.Duration     `mapstructure:"check_interval"`
	LogLevel      string            `mapstructure:"log_level"`
	Chassis       chassisConfig     `mapstructure:"chassis"`
	MCP           mcpConfig         `mapstructure:"mcp"`
	Sources       []importer.Source `mapstructure:"sources"`
}

type chassisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// mcpConfig bounds MCP sessions over QUIC (chassis and mcp --quic).
type mcpConfig struct {
	MaxMessage int `mapstructure:"max_message"`
	MaxCalls   int `mapstructure:"max_calls"`
}

func (c config) mcpLimits() mcpquic.Limits {
	return mcpquic.Limits{MaxMessage: c.MCP.MaxMessage, MaxCalls: c.MCP.MaxCalls}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8420")
	v.SetDefault("catalogs_dir", "catalogs")
	v.SetDefault("sources_db", "")
	v.SetDefault("threshold", match.DefaultThreshold)
	v.SetDefault("check_interval", "24h")
	v.SetDefault("log_level", "info")
	v.SetDefault("chassis.enabled", false)
	v.SetDefault("chassis.addr", ":8443")
	v.SetDefault("chassis.cert_file", "")
	v.SetDefault("chassis.key_file", "")
	v.SetDefault("mcp.max_message", mcpquic.DefaultLimits().MaxMessage)
	v.SetDefault("mcp.max_calls", mcpquic.DefaultLimits().MaxCalls)
}

// loadConfig reads defaults, then the config file, then LEXCHECK_* env vars.
// An explicit cfgFile must exist; the default lookup tolerates its absence.
// A non-empty catalogsDir overrides catalogs_dir.
func loadConfig(cfgFile, catalogsDir string) (config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("lexcheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "lexcheck"))
		}
	}

	v.SetEnvPrefix("LEXCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c config
	if err := v.Unmarshal(&c); err != nil {
		return config{}, fmt.Errorf("parse config: %w", err)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return config{}, fmt.Errorf("config: threshold %v outside [0, 1]", c.Threshold)
	}
	if c.MCP.MaxMessage < 1024 {
		return config{}, fmt.Errorf("config: mcp.max_message %d below 1024", c.MCP.MaxMessage)
	}
	if c.CheckInterval < 0 {
		return config{}, fmt.Errorf("config: negative check_interval %s", c.CheckInterval)
	}
	if catalogsDir != "" {
		c.CatalogsDir = catalogsDir
	}
	if c.SourcesDB == "" {
		c.SourcesDB = filepath.Join(c.CatalogsDir, "sources.db")
	}
	return c, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
