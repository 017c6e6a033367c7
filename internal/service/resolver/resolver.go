// Package resolver locates the output file an extraction produced.
package resolver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
	"github.com/emanuelef/yt-mp3-api-go/internal/service/sanitize"
)

// Resolver tiers, in search order.
const (
	TierTemplate = 1 // <token>.<ext>, renamed to the title name
	TierTitle    = 2 // <sanitized title>.<ext>
	TierScan     = 3 // first *.<ext> in lexical order, degraded
)

// Resolver finds the single output file of a request inside its working directory.
type Resolver struct {
	ext    string
	logger *slog.Logger
	rename func(src, dst string) error
}

// New creates a new Resolver for the target extension (without dot).
func New(ext string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		ext:    strings.TrimPrefix(ext, "."),
		logger: logger,
		rename: os.Rename,
	}
}

// Extension returns the target extension without the dot.
func (r *Resolver) Extension() string {
	return r.ext
}

// Resolve applies the search order to workDir for the request identified by
// baseName. It returns an error wrapping domain.ErrOutputNotFound when no tier matches.
func (r *Resolver) Resolve(workDir, baseName, title string) (*domain.ResolvedOutput, error) {
	log := r.logger.With("token", baseName)

	dir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve working directory: %v", domain.ErrUnexpected, err)
	}

	displayName := sanitize.Filename(title) + "." + r.ext
	templatePath := filepath.Join(dir, baseName+"."+r.ext)
	titlePath := filepath.Join(dir, displayName)

	if isFile(templatePath) {
		out := &domain.ResolvedOutput{
			AbsolutePath: titlePath,
			DisplayName:  displayName,
			Tier:         TierTemplate,
		}
		if err := r.rename(templatePath, titlePath); err != nil {
			log.Warn("Could not rename output, using original name",
				"from", templatePath,
				"to", titlePath,
				"error", err,
			)
			out.AbsolutePath = templatePath
		} else {
			log.Info("Renamed output file", "path", titlePath)
		}
		return out, nil
	}

	if isFile(titlePath) {
		log.Info("Found output file with title", "path", titlePath)
		return &domain.ResolvedOutput{
			AbsolutePath: titlePath,
			DisplayName:  displayName,
			Tier:         TierTitle,
		}, nil
	}

	if path, ok := r.scan(dir); ok {
		log.Warn("Could not find expected output, using first scan match (unreliable)", "path", path)
		return &domain.ResolvedOutput{
			AbsolutePath: path,
			DisplayName:  displayName,
			Tier:         TierScan,
			Degraded:     true,
		}, nil
	}

	log.Error("Output file not found",
		"template_path", templatePath,
		"title_path", titlePath,
		"scan_dir", dir,
	)
	return nil, fmt.Errorf("%w: tried %s, %s and *.%s",
		domain.ErrOutputNotFound, filepath.Base(templatePath), displayName, r.ext)
}

// scan returns the first regular file in dir with the target extension.
// os.ReadDir sorts by name, so the choice is stable.
func (r *Resolver) scan(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Warn("Could not scan working directory", "dir", dir, "error", err)
		return "", false
	}

	suffix := "." + r.ext
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), suffix) {
			return filepath.Join(dir, entry.Name()), true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
