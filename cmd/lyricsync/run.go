package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/session"
	"karolbroda.com/lyricsync/internal/store"
	"karolbroda.com/lyricsync/internal/terminal"
	"karolbroda.com/lyricsync/internal/track"
	"karolbroda.com/lyricsync/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the interactive lyrics viewer",
	Long: `starts the terminal lyrics viewer. lyrics come from the local database,
the highlighted line follows the player's position.`,
	RunE: runViewer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runViewer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !terminal.Interactive(os.Stdout) {
		return errors.New("the viewer needs a terminal; use 'lyricsync lyrics' subcommands from scripts")
	}

	logFile, err := logging.SetupFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	// pick up lyrics written by other lyricsync processes
	go db.Watch(ctx, config.PollInterval)

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	ctrl := session.New(session.Options{
		Lyrics:          db,
		Sync:            db,
		RefreshInterval: cfg.RefreshInterval,
	})
	ctrl.Activate(ctx)

	model := ui.NewModel(ctx, ui.ModelConfig{
		Engine:     ctrl,
		Source:     src.Name(),
		HideHeader: cfg.HideHeader,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	feed := player.NewFeed(src, ctrl, config.PollInterval)
	feed.OnTrack(func(info *track.Info) {
		p.Send(ui.TrackMsg{Track: info})
	})
	feed.OnError(func(err error) {
		p.Send(ui.SourceErrMsg{Err: err})
	})
	go feed.Run(ctx)

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	log.Info().Str("source", src.Name()).Str("db", db.Path()).Msg("viewer started")

	_, err = p.Run()
	cancel()
	terminal.Reset(os.Stdout)

	ctrl.Deactivate()
	ctrl.Wait()

	if err != nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}
	return nil
}
