// Package maintenance runs the daemon's background housekeeping: polling the
// amplifier's protection flags and keeping dated copies of the configuration.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/micro-nova/ampctl/internal/models"
)

const (
	backupPrefix = "ampctl-config-"
	backupSuffix = ".json"
	backupMaxAge = 90 * 24 * time.Hour

	// DefaultFaultInterval is how often the protection register is read.
	DefaultFaultInterval = 5 * time.Second
)

// FaultReader reads the current protection flags.
type FaultReader func(ctx context.Context) (models.Faults, error)

// Service manages background maintenance goroutines.
type Service struct {
	configPath    string // file to back up
	backupDir     string
	faults        FaultReader
	faultInterval time.Duration
	onFault       func(models.Faults) // called when the flags change
}

// New creates a new maintenance Service. configPath is the live config file;
// backups go to a "backups" directory next to it.
func New(configPath string, faults FaultReader, onFault func(models.Faults)) *Service {
	return &Service{
		configPath:    configPath,
		backupDir:     filepath.Join(filepath.Dir(configPath), "backups"),
		faults:        faults,
		faultInterval: DefaultFaultInterval,
		onFault:       onFault,
	}
}

// SetFaultInterval changes the polling period. Zero or negative disables
// fault polling.
func (s *Service) SetFaultInterval(d time.Duration) {
	s.faultInterval = d
}

// Start launches all background maintenance goroutines.
// Blocks until ctx is cancelled; all goroutines respect the context.
func (s *Service) Start(ctx context.Context) {
	if s.faults != nil && s.faultInterval > 0 {
		go s.runFaultPoll(ctx)
	}
	go s.runBackup(ctx)

	// Block until cancelled
	<-ctx.Done()
}

// RunBackupNow performs a backup immediately and returns the backup file path or error.
func (s *Service) RunBackupNow() (string, error) {
	return runBackup(s.configPath, s.backupDir, time.Now())
}

// ListBackups returns available backup files sorted by name (newest last).
func (s *Service) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && isBackup(e.Name()) {
			files = append(files, filepath.Join(s.backupDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// runFaultPoll reads the protection flags every faultInterval and reports
// transitions. Read errors are logged and do not count as a transition.
func (s *Service) runFaultPoll(ctx context.Context) {
	var last models.Faults
	first := true

	check := func() {
		f, err := s.faults(ctx)
		if err != nil {
			slog.Debug("maintenance: fault poll failed", "err", err)
			return
		}
		if !first && f == last {
			return
		}
		changed := !first || f != (models.Faults{})
		first = false
		last = f
		if !changed {
			return
		}
		if f.OverTemp || f.OverCurrent {
			slog.Warn("maintenance: amplifier protection tripped",
				"over_temp", f.OverTemp, "over_current", f.OverCurrent)
		} else {
			slog.Info("maintenance: amplifier protection cleared")
		}
		if s.onFault != nil {
			s.onFault(f)
		}
	}

	check() // immediate first check

	ticker := time.NewTicker(s.faultInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// runBackup performs daily backups at 2am.
func (s *Service) runBackup(ctx context.Context) {
	for {
		now := time.Now()
		// Next 2am
		next2am := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, now.Location())
		if !next2am.After(now) {
			next2am = next2am.Add(24 * time.Hour)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(next2am.Sub(now)):
			path, err := s.RunBackupNow()
			if err != nil {
				slog.Error("maintenance: backup failed", "err", err)
			} else {
				slog.Info("maintenance: backup created", "file", path)
			}
		}
	}
}

// runBackup copies the config file to a dated file in backupDir and prunes
// old copies. A missing config file is not an error; there is nothing to keep.
func runBackup(configPath, backupDir string, now time.Time) (string, error) {
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	dest := filepath.Join(backupDir, backupPrefix+now.Format("2006-01-02")+backupSuffix)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	pruneOldBackups(backupDir, backupMaxAge)
	return dest, nil
}

func isBackup(name string) bool {
	return strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupSuffix)
}

// pruneOldBackups deletes backup files older than maxAge from backupDir.
func pruneOldBackups(backupDir string, maxAge time.Duration) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() || !isBackup(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(backupDir, e.Name())
			if err := os.Remove(path); err != nil {
				slog.Warn("maintenance: failed to prune old backup", "file", path, "err", err)
			} else {
				slog.Info("maintenance: pruned old backup", "file", path)
			}
		}
	}
}
