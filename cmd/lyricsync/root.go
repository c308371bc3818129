package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/logging"
)

var (
	// global flags
	configPath   string
	sourceName   string
	mprisService string
	mpdAddr      string
	dbPath       string
	logLevel     string
	hideHeader   bool
	lrclibURL    string
	noCache      bool
)

var rootCmd = &cobra.Command{
	Use:   "lyricsync",
	Short: "offline synchronized lyrics for your music player",
	Long: `lyricsync keeps lyrics for your tracks in a local database and highlights
the current line in time with the player (mpris or mpd).

when run without a subcommand, it starts the interactive TUI viewer.`,
	Version: "1.0.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/lyricsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&sourceName, "source", "", "playback source: mpris or mpd")
	rootCmd.PersistentFlags().StringVarP(&mprisService, "mpris-service", "m", "", "mpris service name (e.g., org.mpris.MediaPlayer2.spotify)")
	rootCmd.PersistentFlags().StringVar(&mpdAddr, "mpd-addr", "", "mpd address (host:port)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "lyrics database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
	rootCmd.PersistentFlags().StringVar(&lrclibURL, "lrclib-url", "", "custom lrclib api url")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable lrclib cache reads (always fetch fresh)")
}

// loadConfig reads the config file and environment, then applies any flags
// the user set. subcommands log to stderr; the viewer moves logging to a file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = sourceName
	}
	if flags.Changed("mpris-service") {
		cfg.MprisService = mprisService
	}
	if flags.Changed("mpd-addr") {
		cfg.MPDAddr = mpdAddr
	}
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("hide-header") {
		cfg.HideHeader = hideHeader
	}
	if flags.Changed("lrclib-url") {
		cfg.LrclibURL = lrclibURL
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	logging.Setup(os.Stderr, cfg.LogLevel)
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
