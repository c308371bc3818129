package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/store"
	"karolbroda.com/lyricsync/internal/track"
)

var (
	// flags for cache list
	cacheSortBy  string
	cacheConfirm bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lrclib response cache",
	Long: `lrclib answers are cached on disk for a week so repeated searches stay
offline. the cache is separate from the lyrics database the viewer reads.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openCache()
		if err != nil {
			return err
		}

		count, sizeBytes, err := diskCache.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		fmt.Println("cache statistics:")
		fmt.Printf("  location: %s\n", diskCache.Dir())
		fmt.Printf("  entries:  %d\n", count)
		fmt.Printf("  size:     %s\n", formatBytes(sizeBytes))
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all cached songs",
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openCache()
		if err != nil {
			return err
		}

		entries, err := diskCache.ListAll()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		sortCacheEntries(entries, cacheSortBy)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ARTIST\tTITLE\tLYRICS\tCACHED")

		for _, entry := range entries {
			kind := "-"
			switch {
			case entry.SyncedLyrics != "":
				kind = "synced"
			case entry.PlainLyrics != "":
				kind = "plain"
			case entry.Instrumental:
				kind = "instrumental"
			}
			cacheDate := time.Unix(entry.CreatedAt, 0).Format("2006-01-02")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.ArtistName, entry.TrackName, kind, cacheDate)
		}
		w.Flush()

		fmt.Printf("\ntotal: %d songs\n", len(entries))
		return nil
	},
}

var cacheImportCmd = &cobra.Command{
	Use:   "import",
	Short: "copy cached lyrics into the lyrics database",
	Long:  `store every cached lrclib answer that has lyrics in the local database. tracks that already have lyrics are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openCache()
		if err != nil {
			return err
		}
		entries, err := diskCache.ListAll()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}

		return withStore(cmd, func(ctx context.Context, db *store.DB) error {
			imported, skipped := 0, 0
			for _, entry := range entries {
				text := entry.SyncedLyrics
				if text == "" {
					text = entry.PlainLyrics
				}
				if text == "" {
					continue
				}

				id := (&track.Info{Artist: entry.ArtistName, Title: entry.TrackName}).ID()
				_, err := db.Lyrics(ctx, id)
				if err == nil {
					skipped++
					continue
				}
				if !errors.Is(err, store.ErrNotFound) {
					return err
				}

				err = db.PersistLyrics(ctx, id, text)
				if err != nil {
					return err
				}
				imported++
			}

			fmt.Printf("imported %d tracks, %d already had lyrics\n", imported, skipped)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached lrclib answers. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openCache()
		if err != nil {
			return err
		}

		if !cacheConfirm {
			fmt.Print("are you sure you want to clear all cache? (y/n): ")
			var response string
			fmt.Scanln(&response)
			response = strings.ToLower(response)
			if response != "y" && response != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}

		err = diskCache.Clear()
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("cache cleared successfully")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openCache()
		if err != nil {
			return err
		}

		pruned, err := diskCache.Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}

		fmt.Printf("removed %d expired entries\n", pruned)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <artist> <title>",
	Short: "remove specific song from cache",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist := args[0]
		title := args[1]

		diskCache, err := openCache()
		if err != nil {
			return err
		}

		_, err = diskCache.Get(artist, title)
		if err != nil {
			suggestions := similarEntries(diskCache, artist, title)
			if len(suggestions) > 0 {
				fmt.Fprintf(os.Stderr, "song not found in cache\n\n")
				fmt.Fprintf(os.Stderr, "did you mean one of these?\n")
				for _, s := range suggestions {
					fmt.Fprintf(os.Stderr, "  %s - %s\n", s.ArtistName, s.TrackName)
				}
			}
			return fmt.Errorf("song not found in cache")
		}

		err = diskCache.Delete(artist, title)
		if err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}

		fmt.Printf("deleted '%s - %s' from cache\n", artist, title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheImportCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)

	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, artist, title")
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

// helper functions

func openCache() (*cache.DiskCache, error) {
	dir, err := cache.DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return cache.Open(dir)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func sortCacheEntries(entries []*cache.LyricEntry, sortBy string) {
	switch sortBy {
	case "artist":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].ArtistName) < strings.ToLower(entries[j].ArtistName)
		})
	case "title":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].TrackName) < strings.ToLower(entries[j].TrackName)
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
	}
}

// similarEntries suggests up to five cached songs whose artist and title
// overlap with the ones asked for, preferring an exact artist match.
func similarEntries(diskCache *cache.DiskCache, artist string, title string) []*cache.LyricEntry {
	all, err := diskCache.ListAll()
	if err != nil || len(all) == 0 {
		return nil
	}

	artist = strings.ToLower(artist)
	title = strings.ToLower(title)
	overlaps := func(a, b string) bool {
		return strings.Contains(a, b) || strings.Contains(b, a)
	}

	var exact, fuzzy []*cache.LyricEntry
	for _, entry := range all {
		entryArtist := strings.ToLower(entry.ArtistName)
		if !overlaps(strings.ToLower(entry.TrackName), title) {
			continue
		}
		switch {
		case entryArtist == artist:
			exact = append(exact, entry)
		case overlaps(entryArtist, artist):
			fuzzy = append(fuzzy, entry)
		}
	}

	matches := exact
	if len(matches) == 0 {
		matches = fuzzy
	}
	if len(matches) > 5 {
		matches = matches[:5]
	}
	return matches
}
