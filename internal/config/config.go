package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "intentlayer.yaml"

// Config holds application configuration.
type Config struct {
	Port        int           `mapstructure:"port"`
	TokenFile   string        `mapstructure:"token_file"`
	SyncLatency time.Duration `mapstructure:"sync_latency"`
	Timezone    string        `mapstructure:"timezone"`
	LogLevel    string        `mapstructure:"log_level"`
}

// Load reads configuration from path (or ./intentlayer.yaml when empty) and
// the environment. Env var overrides use prefix IL_. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("token_file", ".intentlayer-token")
	v.SetDefault("sync_latency", workflow.DefaultSyncLatency)
	v.SetDefault("timezone", "Local")
	v.SetDefault("log_level", "info")

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
	}

	v.SetEnvPrefix("IL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SyncLatency < 0 {
		return Config{}, fmt.Errorf("sync_latency must not be negative, got %s", c.SyncLatency)
	}
	if _, err := c.Location(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Location resolves Timezone. "" and "Local" mean the machine's zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
