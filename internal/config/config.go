package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSource          = SourceMPRIS
	DefaultMprisService    = "org.mpris.MediaPlayer2.spotify"
	DefaultMPDAddr         = "localhost:6600"
	DefaultLrclibGetURL    = "https://lrclib.net/api/get"
	DefaultRefreshInterval = 250 * time.Millisecond
	DefaultLogLevel        = "info"
	HTTPTimeoutSeconds     = 10
	PollInterval           = 100 * time.Millisecond
)

const (
	SourceMPRIS = "mpris"
	SourceMPD   = "mpd"
)

type Config struct {
	Source          string        `yaml:"source"`
	MprisService    string        `yaml:"mpris_service"`
	MPDAddr         string        `yaml:"mpd_addr"`
	MPDPassword     string        `yaml:"mpd_password"`
	LrclibURL       string        `yaml:"lrclib_url"`
	DBPath          string        `yaml:"db_path"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	HideHeader      bool          `yaml:"hide_header"`
	LogLevel        string        `yaml:"log_level"`
	LogFile         string        `yaml:"log_file"`
}

func defaults() *Config {
	return &Config{
		Source:          DefaultSource,
		MprisService:    DefaultMprisService,
		MPDAddr:         DefaultMPDAddr,
		LrclibURL:       DefaultLrclibGetURL,
		DBPath:          filepath.Join(dataHome(), "lyricsync", "lyrics.db"),
		RefreshInterval: DefaultRefreshInterval,
		LogLevel:        DefaultLogLevel,
		LogFile:         filepath.Join(stateHome(), "lyricsync", "lyricsync.log"),
	}
}

// Load builds the config from defaults, then the yaml file at path (if it
// exists), then environment variables. an empty path means DefaultPath().
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		err = yaml.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Source = getEnvOrDefault("LYRICSYNC_SOURCE", c.Source)
	c.MprisService = getEnvOrDefault("MPRIS_SERVICE", c.MprisService)
	c.MPDAddr = getEnvOrDefault("MPD_ADDR", c.MPDAddr)
	c.MPDPassword = getEnvOrDefault("MPD_PASSWORD", c.MPDPassword)
	c.LrclibURL = getEnvOrDefault("LRCLIB_GET_URL", c.LrclibURL)
	c.DBPath = getEnvOrDefault("LYRICSYNC_DB", c.DBPath)
	c.LogLevel = getEnvOrDefault("LYRICSYNC_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvOrDefault("LYRICSYNC_LOG_FILE", c.LogFile)

	if raw := os.Getenv("LYRICSYNC_REFRESH_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err == nil {
			c.RefreshInterval = time.Duration(ms) * time.Millisecond
		}
	}

	if raw := os.Getenv("HIDE_HEADER"); raw != "" {
		c.HideHeader = raw == "1" || raw == "true" || raw == "yes"
	}
}

func (c *Config) Validate() error {
	switch c.Source {
	case SourceMPRIS, SourceMPD:
	default:
		return fmt.Errorf("unknown playback source %q (want %s or %s)", c.Source, SourceMPRIS, SourceMPD)
	}
	if c.DBPath == "" {
		return errors.New("db path is empty")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative, got %s", c.RefreshInterval)
	}
	return nil
}

// DefaultPath is $XDG_CONFIG_HOME/lyricsync/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(homeDir(), ".config")
	}
	return filepath.Join(dir, "lyricsync", "config.yaml")
}

func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".local", "share")
}

func stateHome() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".local", "state")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func getEnvOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
