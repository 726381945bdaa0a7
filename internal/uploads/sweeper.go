package uploads

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sweeper deletes uploaded files that outlived every message that could
// reference them. Message bodies expire after 48h; files are kept a little
// longer so an in-flight history read never dangles.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(dir string, maxAge, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger.With(slog.String("component", "upload_sweeper")),
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read uploads directory", slog.Any("error", err))
		}
		return
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to stat upload", slog.String("name", entry.Name()), slog.Any("error", err))
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Warn("failed to remove stale upload", slog.String("name", entry.Name()), slog.Any("error", err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("removed stale uploads", slog.Int("count", removed))
	}
}
