package main

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/colors"
	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/track"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "music player utilities",
	Long:  `discover mpris players and inspect what the configured source is playing.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible music players currently running on the session bus.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		services, err := player.ListPlayers(bus)
		if err != nil {
			return err
		}

		if len(services) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println("\ncheck if your music player is running and supports mpris")
			return nil
		}

		fmt.Printf("found %d mpris player(s):\n\n", len(services))
		for _, service := range services {
			identity := player.PlayerIdentity(bus, service)
			if identity != "" {
				fmt.Printf("  %s (%s)\n", service, identity)
			} else {
				fmt.Printf("  %s\n", service)
			}
		}

		fmt.Println("\nuse --mpris-service flag to specify which player to use")
		return nil
	},
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show currently playing track",
	Long:  `display the track the configured source is playing and the id its lyrics are stored under.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		snap, err := currentSnapshot(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		info := snap.Track
		if !info.IsValid() {
			fmt.Println("no track currently playing")
			return nil
		}

		fmt.Printf("title:    %s\n", info.Title)
		fmt.Printf("artist:   %s\n", info.Artist)
		if info.Album != "" {
			fmt.Printf("album:    %s\n", info.Album)
		}
		if info.DurationMillis > 0 {
			fmt.Printf("duration: %s\n", colors.FormatMillis(info.DurationMillis))
		}
		if info.ArtworkURL != "" {
			fmt.Printf("artwork:  %s\n", info.ArtworkURL)
		}
		fmt.Printf("state:    %s\n", snap.Status)
		if snap.Status != player.StatusStopped {
			fmt.Printf("position: %s\n", colors.FormatMillis(snap.PositionMillis))
		}
		fmt.Printf("track id: %s\n", info.ID())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerCurrentCmd)
}

// openSource connects to the playback source named in cfg.
func openSource(cfg *config.Config) (player.Source, error) {
	if cfg.Source == config.SourceMPD {
		src, err := player.DialMPD(cfg.MPDAddr, cfg.MPDPassword)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	src, err := player.DialMPRIS(cfg.MprisService)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func currentSnapshot(ctx context.Context, cfg *config.Config) (*player.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := openSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to player: %w", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read player state: %w", err)
	}
	return snap, nil
}

// currentTrack is the playing track, or an error when nothing plays.
func currentTrack(ctx context.Context, cfg *config.Config) (*track.Info, error) {
	snap, err := currentSnapshot(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !snap.Track.IsValid() {
		return nil, fmt.Errorf("no track currently playing")
	}
	return snap.Track, nil
}
