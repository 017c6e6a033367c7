// Package main is the entry point for the audio extraction service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/emanuelef/yt-mp3-api-go/internal/config"
	"github.com/emanuelef/yt-mp3-api-go/pkg/logger"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "yt-mp3-api",
		Short: "Extract the best audio track of a video URL as MP3",
		Long: `yt-mp3-api downloads the best available audio of a video URL with yt-dlp,
converts it to MP3 and hands the file to the requester.

Without a subcommand it runs the HTTP service.

Example:
  yt-mp3-api serve
  yt-mp3-api extract "https://www.youtube.com/watch?v=dQw4w9WgXcQ" --out ./music`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	root.AddCommand(newServeCmd(a), newExtractCmd(a))
	return root
}

func (a *app) load() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = logger.Setup(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	return nil
}
