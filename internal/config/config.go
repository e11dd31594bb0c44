package config

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP
// requests and used by the browser session.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultCDNHostPattern matches the CDN that serves the track payloads.
const DefaultCDNHostPattern = "cloudfront.net"

// DefaultSongHostPattern is the host a song URL must point at.
const DefaultSongHostPattern = "songsterr.com"

type Config struct {
	SongHostPattern string `mapstructure:"song_host_pattern"`
	CDNHostPattern  string `mapstructure:"cdn_host_pattern"`
	UserAgent       string `mapstructure:"user_agent"`
	ClientTimeout   string `mapstructure:"client_timeout"` // Go duration string like "30s"
	LogLevel        string `mapstructure:"log_level"`
	Browser         struct {
		Headless    bool   `mapstructure:"headless"`
		SettleDelay string `mapstructure:"settle_delay"` // extra wait after load for late requests
		LoadTimeout string `mapstructure:"load_timeout"`
	} `mapstructure:"browser"`
	Fetch struct {
		Concurrency int    `mapstructure:"concurrency"`
		MaxAttempts int    `mapstructure:"max_attempts"`
		RetryDelay  string `mapstructure:"retry_delay"`
		CacheSize   int    `mapstructure:"cache_size"` // Maximum number of entries in the payload LRU cache
		CacheTTL    string `mapstructure:"cache_ttl"`  // Go duration string like "1h"
	} `mapstructure:"fetch"`
	Output struct {
		Dir   string `mapstructure:"dir"`   // empty means derive from artist/title
		Force bool   `mapstructure:"force"` // overwrite a non-empty output directory
	} `mapstructure:"output"`
	GeneratePDF bool `mapstructure:"generate_pdf"`
}

var logger zerolog.Logger

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	}).With().Timestamp().Logger()
}

// LoadConfig reads config.yaml, environment variables and, when non-nil,
// a parsed flag set, in increasing order of precedence.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("TABGRAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Add specific environment variable for log level
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	// Set defaults
	viper.SetDefault("song_host_pattern", DefaultSongHostPattern)
	viper.SetDefault("cdn_host_pattern", DefaultCDNHostPattern)
	viper.SetDefault("client_timeout", "30s")
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.settle_delay", "5s")
	viper.SetDefault("browser.load_timeout", "60s")
	viper.SetDefault("fetch.concurrency", 4)
	viper.SetDefault("fetch.max_attempts", 3)
	viper.SetDefault("fetch.retry_delay", "500ms")
	viper.SetDefault("fetch.cache_size", 64)
	viper.SetDefault("fetch.cache_ttl", "1h")

	if flags != nil {
		if err := bindFlags(flags); err != nil {
			return nil, err
		}
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	configureLogging(&config)

	return &config, nil
}

// bindFlags maps CLI flag names onto their configuration keys. Flags the
// caller did not register are skipped.
func bindFlags(flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"output":      "output.dir",
		"force":       "output.force",
		"pdf":         "generate_pdf",
		"headless":    "browser.headless",
		"concurrency": "fetch.concurrency",
		"user-agent":  "user_agent",
	}
	for name, key := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}

	if verbose := flags.Lookup("verbose"); verbose != nil && verbose.Changed {
		viper.Set("log_level", "debug")
	}
	return nil
}

func configureLogging(config *Config) {
	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)
}

// Duration parses a duration field, falling back to the given default when
// the field is empty or malformed.
func (c *Config) Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn().Err(err).Str("duration", value).Dur("fallback", fallback).Msg("Invalid duration, using fallback")
		return fallback
	}
	return d
}

func GetLogger() zerolog.Logger {
	return logger
}
