package services

import (
	"os"
	"path/filepath"
	"time"

	"docchat-service/internal/logger"

	"github.com/go-co-op/gocron"
)

// Janitor removes leftovers of interrupted uploads and index builds from
// scratch directories.
type Janitor struct {
	dirs      []string
	maxAge    time.Duration
	scheduler *gocron.Scheduler
}

// NewJanitor creates a janitor for the given scratch directories. Entries
// older than maxAge are removed.
func NewJanitor(maxAge time.Duration, dirs ...string) *Janitor {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &Janitor{dirs: dirs, maxAge: maxAge, scheduler: s}
}

// ScratchDirs returns the directories written by storage and the index store.
func ScratchDirs(documentsDir, indexDir string) []string {
	return []string{
		filepath.Join(documentsDir, ".incoming"),
		filepath.Join(indexDir, ".staging"),
	}
}

// Start sweeps immediately and then every interval.
func (j *Janitor) Start(interval time.Duration) error {
	if _, err := j.scheduler.Every(interval).Tag("scratch-sweep").Do(j.Sweep); err != nil {
		return err
	}
	j.scheduler.StartAsync()
	return nil
}

func (j *Janitor) Stop() {
	j.scheduler.Stop()
}

// Sweep removes stale entries and returns how many were removed.
func (j *Janitor) Sweep() int {
	cutoff := time.Now().Add(-j.maxAge)
	removed := 0

	for _, dir := range j.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("Failed to read scratch directory", "dir", dir, "error", err)
			}
			continue
		}

		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				logger.Warn("Failed to remove stale scratch entry", "path", path, "error", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		logger.Info("Scratch directories swept", "removed", removed)
	}
	return removed
}
