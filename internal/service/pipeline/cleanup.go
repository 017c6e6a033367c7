package pipeline

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

// cleanup removes everything a request left on disk. Deletion failures are
// logged and never surfaced.
func (p *Pipeline) cleanup(log *slog.Logger, workDir, token string, resolved *domain.ResolvedOutput) {
	if resolved != nil {
		removeFile(log, resolved.AbsolutePath, "Cleaned up output file")
	}

	if workDir == "" {
		return
	}

	// Intermediates share the token and lack the target extension.
	entries, err := os.ReadDir(workDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error("Could not list working directory", "dir", workDir, "error", err)
	}
	suffix := "." + p.resolver.Extension()
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, token) && !strings.HasSuffix(name, suffix) {
			removeFile(log, filepath.Join(workDir, name), "Cleaned up intermediate file")
		}
	}

	// Whatever the tool left under other names goes with the directory,
	// which is only ever the one named after this request's token.
	if filepath.Base(workDir) != token {
		log.Warn("Working directory not owned by request, keeping it", "dir", workDir)
		return
	}
	if err := os.RemoveAll(workDir); err != nil {
		log.Error("Error removing working directory", "dir", workDir, "error", err)
	}
}

func removeFile(log *slog.Logger, path, msg string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Info(msg, "path", path)
	case errors.Is(err, fs.ErrNotExist):
	default:
		log.Error("Error removing temporary file", "path", path, "error", err)
	}
}
