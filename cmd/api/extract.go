package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
	"github.com/emanuelef/yt-mp3-api-go/internal/infra/fs"
)

func newExtractCmd(a *app) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract the audio of one URL into a local directory",
		Long: `Run a single download request from the command line.

The resulting file is named after the sanitized title and written to --out.
Temporary files in the download directory are removed afterwards, exactly as
for an HTTP request.

Example:
  yt-mp3-api extract "https://www.youtube.com/watch?v=dQw4w9WgXcQ" --out ./music`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.extract(cmd.Context(), args[0], outDir, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory the audio file is written to")
	return cmd
}

func (a *app) extract(ctx context.Context, url, outDir string, stdout io.Writer) error {
	if err := fs.PrepareDownloadDir(a.cfg.DownloadDir, false, a.logger); err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	d := &fileDeliverer{dir: outDir}
	if err := a.newPipeline(a.newExtractor(), nil).Process(ctx, domain.DownloadRequest{SourceURL: url}, d); err != nil {
		return err
	}

	fmt.Fprintln(stdout, d.path)
	return nil
}

// fileDeliverer copies the resolved file into a local directory.
type fileDeliverer struct {
	dir  string
	path string
}

func (d *fileDeliverer) Deliver(ctx context.Context, out *domain.ResolvedOutput) error {
	src, err := os.Open(out.AbsolutePath)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer src.Close()

	target := filepath.Join(d.dir, out.DisplayName)
	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	d.path = target
	return nil
}
