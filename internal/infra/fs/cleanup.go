// Package fs provides filesystem preparation and periodic cleanup.
package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PrepareDownloadDir creates dir if needed. With purge set it also removes
// the request working directories a previous process left in it, which is
// only safe before any request is accepted. Entries not named after a
// request token are kept.
func PrepareDownloadDir(dir string, purge bool, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	if !purge {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list download directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !isRequestEntry(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("Failed to remove leftover file", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("Purged leftovers from download directory", "dir", dir, "removed", removed)
	}
	return nil
}

// isRequestEntry reports whether name is a request token, optionally
// followed by an extension.
func isRequestEntry(name string) bool {
	token, _, _ := strings.Cut(name, ".")
	_, err := uuid.Parse(token)
	return err == nil && len(token) == 36
}

// ObjectStore expires uploaded objects.
type ObjectStore interface {
	DeleteOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// History prunes old request records.
type History interface {
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Cleaner handles periodic expiry of uploaded objects and request history.
type Cleaner struct {
	objects         ObjectStore
	objectsMaxAge   time.Duration
	objectsInterval time.Duration

	history         History
	historyMaxAge   time.Duration
	historyInterval time.Duration

	logger *slog.Logger
	stopCh chan struct{}
}

// CleanerConfig holds configuration for the cleaner. A nil store or a zero
// interval disables that part.
type CleanerConfig struct {
	Objects         ObjectStore
	ObjectsMaxAge   time.Duration
	ObjectsInterval time.Duration

	History         History
	HistoryMaxAge   time.Duration
	HistoryInterval time.Duration
}

// NewCleaner creates a new Cleaner.
func NewCleaner(cfg *CleanerConfig, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		objects:         cfg.Objects,
		objectsMaxAge:   cfg.ObjectsMaxAge,
		objectsInterval: cfg.ObjectsInterval,
		history:         cfg.History,
		historyMaxAge:   cfg.HistoryMaxAge,
		historyInterval: cfg.HistoryInterval,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}
}

// Start starts the cleanup goroutines.
func (c *Cleaner) Start(ctx context.Context) {
	if c.objects != nil && c.objectsInterval > 0 {
		c.logger.Info("Starting R2 cleanup",
			"max_age", c.objectsMaxAge,
			"interval", c.objectsInterval,
		)
		go c.loop(ctx, c.objectsInterval, c.CleanupObjectsNow)
	}

	if c.history != nil && c.historyInterval > 0 && c.historyMaxAge > 0 {
		c.logger.Info("Starting history cleanup",
			"max_age", c.historyMaxAge,
			"interval", c.historyInterval,
		)
		go c.loop(ctx, c.historyInterval, c.CleanupHistoryNow)
	}
}

// Stop stops the cleanup goroutines.
func (c *Cleaner) Stop() {
	close(c.stopCh)
}

func (c *Cleaner) loop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	run(ctx)

	for {
		select {
		case <-ticker.C:
			run(ctx)
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		}
	}
}

// CleanupObjectsNow removes expired objects from R2.
func (c *Cleaner) CleanupObjectsNow(ctx context.Context) {
	deleted, err := c.objects.DeleteOlderThan(ctx, c.objectsMaxAge)
	if err != nil {
		c.logger.Error("R2 cleanup error", "error", err)
		return
	}

	if deleted > 0 {
		c.logger.Info("R2 cleanup completed",
			"deleted", deleted,
			"max_age", c.objectsMaxAge,
		)
	}
}

// CleanupHistoryNow removes expired request records.
func (c *Cleaner) CleanupHistoryNow(ctx context.Context) {
	deleted, err := c.history.DeleteOlderThan(ctx, c.historyMaxAge)
	if err != nil {
		c.logger.Error("History cleanup error", "error", err)
		return
	}

	if deleted > 0 {
		c.logger.Info("History cleanup completed",
			"deleted", deleted,
			"max_age", c.historyMaxAge,
		)
	}
}
