package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/session"
	"karolbroda.com/lyricsync/internal/store"
	"karolbroda.com/lyricsync/internal/track"
)

var (
	// flags for lyrics fetch and preview
	fetchCurrent bool
	fetchForce   bool
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "offline lyrics management",
	Long: `search lrclib, save lyrics into the local database, edit them and adjust
their sync offset. a running viewer picks changes up immediately.

track ids are "artist - title" in lower case, as printed by 'lyricsync player current'.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "search for lyrics on lrclib",
	Long:  `search for lyrics on lrclib.net and display availability information.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("searching for: %s - %s\n\n", args[0], args[1])

		resp, err := newLrclibClient(cfg).Fetch(cmd.Context(), &lyrics.TrackParams{Artist: args[0], Title: args[1]})
		if err != nil {
			return fmt.Errorf("lyrics not found: %w", err)
		}

		fmt.Printf("found lyrics:\n")
		fmt.Printf("  track:        %s\n", resp.TrackName)
		fmt.Printf("  artist:       %s\n", resp.ArtistName)
		if resp.AlbumName != "" {
			fmt.Printf("  album:        %s\n", resp.AlbumName)
		}
		if resp.Duration > 0 {
			fmt.Printf("  duration:     %.0fs\n", resp.Duration)
		}
		fmt.Printf("  instrumental: %v\n", resp.Instrumental)
		fmt.Printf("  synced lines: %s\n", countLines(resp.SyncedLyrics))
		fmt.Printf("  plain lines:  %s\n", countLines(resp.PlainLyrics))

		fmt.Println("\nuse 'lyricsync lyrics fetch' to save them for offline use")
		return nil
	},
}

var lyricsFetchCmd = &cobra.Command{
	Use:   "fetch [<artist> <title>]",
	Short: "download lyrics into the local database",
	Long: `fetch lyrics from lrclib.net and store them under the track's id. with
--current the track is taken from the player.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		info, err := trackFromArgs(ctx, cfg, args, fetchCurrent)
		if err != nil {
			return err
		}

		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		id := info.ID()
		if !fetchForce {
			_, err = db.Lyrics(ctx, id)
			if err == nil {
				fmt.Printf("%q already has lyrics, use --force to replace them\n", id)
				return nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		fmt.Printf("fetching: %s - %s\n", info.Artist, info.Title)

		resp, err := newLrclibClient(cfg).Fetch(ctx, &lyrics.TrackParams{
			Artist:       info.Artist,
			Title:        info.Title,
			Album:        info.Album,
			DurationSecs: info.DurationMillis / 1000,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch lyrics: %w", err)
		}

		text := resp.Text()
		if text == "" {
			return fmt.Errorf("no lyrics available for this song")
		}

		err = db.PersistLyrics(ctx, id, text)
		if err != nil {
			return err
		}

		fmt.Printf("saved %s lyrics for %q\n", lyrics.Parse(text).Kind, id)
		return nil
	},
}

var lyricsPreviewCmd = &cobra.Command{
	Use:   "preview [<artist> <title>]",
	Short: "preview lyrics in terminal",
	Long:  `print the cues lyricsync would display, from the local database or else lrclib.`,
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		info, err := trackFromArgs(ctx, cfg, args, fetchCurrent)
		if err != nil {
			return err
		}

		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		text, err := db.LoadLyrics(ctx, info.ID())
		if err != nil {
			return err
		}

		if text != "" {
			fmt.Println("(from local database)")
		} else {
			resp, err := newLrclibClient(cfg).Fetch(ctx, &lyrics.TrackParams{Artist: info.Artist, Title: info.Title})
			if err != nil {
				return fmt.Errorf("lyrics not found: %w", err)
			}
			if resp.Instrumental {
				fmt.Println("[instrumental]")
				return nil
			}
			text = resp.Text()
		}

		offset, err := db.GetSyncAdjustment(ctx, info.ID())
		if err != nil {
			return err
		}

		fmt.Printf("\n%s - %s\n", info.Artist, info.Title)
		fmt.Println(strings.Repeat("─", 60))
		printCueSet(os.Stdout, lyrics.Parse(text))

		if offset != 0 {
			fmt.Printf("\nsync offset: %+dms\n", offset)
		}
		return nil
	},
}

var lyricsListCmd = &cobra.Command{
	Use:   "list",
	Short: "list tracks with stored lyrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.DB) error {
			entries, err := db.ListLyrics(ctx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no lyrics stored")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TRACK ID\tKIND\tLINES\tOFFSET\tUPDATED")

			for _, entry := range entries {
				set := lyrics.Parse(entry.Lyrics)
				lines := len(set.Cues)
				if !set.IsSynced() {
					lines = len(strings.Split(set.Text, "\n"))
				}

				offsetStr := "-"
				offset, err := db.GetSyncAdjustment(ctx, entry.TrackID)
				if err == nil && offset != 0 {
					offsetStr = fmt.Sprintf("%+dms", offset)
				}

				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", entry.TrackID, set.Kind, lines, offsetStr, entry.UpdatedAt.Local().Format("2006-01-02"))
			}
			w.Flush()

			fmt.Printf("\ntotal: %d tracks\n", len(entries))
			return nil
		})
	},
}

var lyricsShowCmd = &cobra.Command{
	Use:   "show <track-id>",
	Short: "print the stored lyrics of a track",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.DB) error {
			id := trackIDFromArgs(args)

			entry, err := db.Lyrics(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no lyrics stored for %q", id)
			}
			if err != nil {
				return err
			}

			fmt.Print(entry.Lyrics)
			if !strings.HasSuffix(entry.Lyrics, "\n") {
				fmt.Println()
			}
			return nil
		})
	},
}

var lyricsSetCmd = &cobra.Command{
	Use:   "set <track-id> <file|->",
	Short: "replace the lyrics of a track",
	Long:  `store the contents of file (or stdin for -) as the lyrics of a track. lrc timestamps are kept.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		var (
			data []byte
			err  error
		)
		if args[1] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[1])
		}
		if err != nil {
			return fmt.Errorf("failed to read lyrics: %w", err)
		}
		text := string(data)

		return withSession(cmd, id, func(ctx context.Context, db *store.DB, ctrl *session.Controller) error {
			ctrl.UpdateLyrics(text)
			ctrl.Wait()

			stored, err := db.LoadLyrics(ctx, id)
			if err != nil {
				return err
			}
			if stored != text {
				return fmt.Errorf("failed to save lyrics for %q, see the log", id)
			}

			set := lyrics.Parse(text)
			fmt.Printf("saved %s lyrics for %q (%d cues)\n", set.Kind, id, len(set.Cues))
			return nil
		})
	},
}

var lyricsDeleteCmd = &cobra.Command{
	Use:   "delete <track-id>",
	Short: "remove the stored lyrics of a track",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.DB) error {
			id := trackIDFromArgs(args)

			err := db.DeleteLyrics(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no lyrics stored for %q", id)
			}
			if err != nil {
				return err
			}

			fmt.Printf("deleted lyrics for %q\n", id)
			return nil
		})
	},
}

var lyricsOffsetCmd = &cobra.Command{
	Use:   "offset <track-id> [millis]",
	Short: "show or set the sync offset of a track",
	Long: `without millis, print the stored offset. with millis, store it. the offset
is added to the playback position, so positive values highlight lines earlier
and negative values highlight them later. put -- before negative values.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		return withSession(cmd, id, func(ctx context.Context, db *store.DB, ctrl *session.Controller) error {
			if len(args) == 2 {
				millis, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid offset %q: %w", args[1], err)
				}
				ctrl.UpdateSyncAdjustment(millis)
				ctrl.Wait()
			}

			offset, err := ctrl.SyncAdjustment(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %sms\n", id, offset)
			return nil
		})
	},
}

var lyricsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show local database statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.DB) error {
			stats, err := db.Stats(ctx)
			if err != nil {
				return err
			}

			fmt.Println("lyrics database:")
			fmt.Printf("  location: %s\n", db.Path())
			fmt.Printf("  schema:   v%s\n", stats.SchemaVersion)
			fmt.Printf("  lyrics:   %d\n", stats.Lyrics)
			fmt.Printf("  offsets:  %d\n", stats.SyncAdjustments)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsFetchCmd)
	lyricsCmd.AddCommand(lyricsPreviewCmd)
	lyricsCmd.AddCommand(lyricsListCmd)
	lyricsCmd.AddCommand(lyricsShowCmd)
	lyricsCmd.AddCommand(lyricsSetCmd)
	lyricsCmd.AddCommand(lyricsDeleteCmd)
	lyricsCmd.AddCommand(lyricsOffsetCmd)
	lyricsCmd.AddCommand(lyricsStatsCmd)

	lyricsFetchCmd.Flags().BoolVar(&fetchCurrent, "current", false, "use the track the player is playing")
	lyricsFetchCmd.Flags().BoolVar(&fetchForce, "force", false, "replace lyrics that are already stored")
	lyricsPreviewCmd.Flags().BoolVar(&fetchCurrent, "current", false, "use the track the player is playing")
}

// helper functions

func newLrclibClient(cfg *config.Config) *lyrics.Client {
	if noCache {
		return lyrics.NewClient(cfg.LrclibURL, cache.Memory())
	}

	dir, err := cache.DefaultDir()
	if err != nil {
		return lyrics.NewClient(cfg.LrclibURL, cache.Memory())
	}
	diskCache, err := cache.Open(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("lrclib cache unavailable")
		diskCache = cache.Memory()
	}
	return lyrics.NewClient(cfg.LrclibURL, diskCache)
}

// withStore opens the database named by the config for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, db *store.DB) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return fn(ctx, db)
}

// withSession runs fn against a session pointed at trackID, so edits made
// here go through the same path as the ones made in the viewer.
func withSession(cmd *cobra.Command, trackID string, fn func(ctx context.Context, db *store.DB, ctrl *session.Controller) error) error {
	return withStore(cmd, func(ctx context.Context, db *store.DB) error {
		ctrl := session.New(session.Options{Lyrics: db, Sync: db})
		ctrl.SetCurrentTrack(trackID)
		return fn(ctx, db, ctrl)
	})
}

// trackFromArgs resolves <artist> <title>, or the playing track when current
// is set.
func trackFromArgs(ctx context.Context, cfg *config.Config, args []string, current bool) (*track.Info, error) {
	if current {
		if len(args) != 0 {
			return nil, errors.New("--current takes no arguments")
		}
		return currentTrack(ctx, cfg)
	}
	if len(args) != 2 {
		return nil, errors.New("expected <artist> <title> or --current")
	}
	return &track.Info{Artist: args[0], Title: args[1]}, nil
}

// trackIDFromArgs accepts either a track id or an artist and title.
func trackIDFromArgs(args []string) string {
	if len(args) == 2 {
		return (&track.Info{Artist: args[0], Title: args[1]}).ID()
	}
	return args[0]
}

func printCueSet(w io.Writer, set lyrics.CueSet) {
	if !set.IsSynced() {
		if strings.TrimSpace(set.Text) == "" {
			fmt.Fprintln(w, "\nno lyrics available")
			return
		}
		fmt.Fprintln(w, "\nplain lyrics (no timestamps):")
		fmt.Fprintln(w)
		fmt.Fprintln(w, set.Text)
		return
	}

	fmt.Fprintf(w, "\nsynced lyrics (%d lines):\n\n", len(set.Cues))
	for _, cue := range set.Cues {
		fmt.Fprintf(w, "[%s] %s\n", lyrics.FormatTimestamp(cue.TimestampMillis), cue.Text)
	}
}

func countLines(text string) string {
	if text == "" {
		return "none"
	}
	return strconv.Itoa(len(strings.Split(text, "\n")))
}
