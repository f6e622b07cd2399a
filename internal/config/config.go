package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for a server handle.
const (
	DefaultHost    = "localhost"
	DefaultPort    = 27713
	DefaultTimeout = 30 // seconds
	DefaultWorkers = 2
	DefaultBackend = "alda-server"
)

// Keys shared by viper, env vars (ALDA_<KEY>, dashes become underscores) and flags.
const (
	KeyHost    = "host"
	KeyPort    = "port"
	KeyTimeout = "timeout"
	KeyWorkers = "workers"
	KeyVerbose = "verbose"
	KeyQuiet   = "quiet"
	KeyNoColor = "no-color"
	KeyBackend = "backend"
)

// Config holds everything needed to build a server handle.
type Config struct {
	Host    string
	Port    int
	Timeout int // seconds to wait for a server to start up or shut down
	Workers int
	Verbose bool
	Quiet   bool
	NoColor bool
	// Backend is the executable launched in the background by `alda up`.
	Backend string
}

// Load resolves configuration.
// Priority: flag (if changed) > ALDA_* env var > config file > default
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyWorkers, DefaultWorkers)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyQuiet, false)
	v.SetDefault(KeyNoColor, false)
	v.SetDefault(KeyBackend, DefaultBackend)

	v.SetEnvPrefix("ALDA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	cfg := &Config{
		Host:    v.GetString(KeyHost),
		Port:    v.GetInt(KeyPort),
		Timeout: v.GetInt(KeyTimeout),
		Workers: v.GetInt(KeyWorkers),
		Verbose: v.GetBool(KeyVerbose),
		Quiet:   v.GetBool(KeyQuiet),
		NoColor: v.GetBool(KeyNoColor),
		Backend: v.GetString(KeyBackend),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no server handle can use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %d", c.Timeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid number of workers %d", c.Workers)
	}
	return nil
}

// readConfigFile loads ALDA_CONFIG_PATH, or config.{yaml,json,toml} from Dir().
// A missing file is not an error.
func readConfigFile(v *viper.Viper) error {
	if path := ConfigPath(); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(Dir())
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("read config file: %w", err)
}

// ConfigPath returns the explicit config file path, if any.
func ConfigPath() string {
	return os.Getenv("ALDA_CONFIG_PATH")
}

// Dir returns the base directory for alda client files
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/.alda"
	}
	return filepath.Join(home, ".alda")
}

// LogPath returns the log file path
// Priority: ALDA_LOG_PATH env var > default
func LogPath() string {
	if envPath := os.Getenv("ALDA_LOG_PATH"); envPath != "" {
		return envPath
	}
	return filepath.Join(Dir(), "client.log")
}

// Log levels
const (
	LogError = iota
	LogWarn
	LogInfo
	LogDebug
	LogTrace
)

// DebugLevel returns the debug level from the ALDA_DEBUG env var
func DebugLevel() int {
	switch os.Getenv("ALDA_DEBUG") {
	case "trace":
		return LogTrace
	case "debug":
		return LogDebug
	case "info":
		return LogInfo
	case "warn":
		return LogWarn
	case "1", "true":
		return LogDebug
	default:
		return LogError
	}
}
