package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dramirezdlp99/sistema-reservas/internal/config"
)

// Snapshot writes a consistent copy of the database to destPath using
// VACUUM INTO, which is safe against concurrent writers.
func (db *DB) Snapshot(ctx context.Context, destPath string) error {
	_, err := db.ExecContext(ctx, "VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("snapshot to %s: %w", destPath, err)
	}
	return nil
}

// BackupService periodically snapshots the reservation database and prunes
// snapshots older than the retention window.
type BackupService struct {
	db     *DB
	cfg    config.BackupConfig
	logger zerolog.Logger
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		db:     db,
		cfg:    cfg,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Run takes an immediate snapshot and then one per interval until ctx is
// cancelled.
func (s *BackupService) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info().Str("path", s.cfg.StoragePath).Dur("interval", interval).Msg("backup service started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Backup(ctx); err != nil {
			s.logger.Error().Err(err).Msg("backup failed")
		} else {
			s.prune()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Backup takes one timestamped snapshot.
func (s *BackupService) Backup(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("backup dir: %w", err)
	}

	name := fmt.Sprintf("reservas_%s.db", time.Now().UTC().Format("20060102_150405"))
	dest := filepath.Join(s.cfg.StoragePath, name)

	if err := s.db.Snapshot(ctx, dest); err != nil {
		return err
	}
	s.logger.Info().Str("snapshot", dest).Msg("database snapshot written")
	return nil
}

// prune removes snapshots older than the retention window.
func (s *BackupService) prune() {
	if s.cfg.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("backup dir unreadable, skipping prune")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "reservas_") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.StoragePath, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("snapshot", path).Msg("prune failed")
		} else {
			s.logger.Info().Str("snapshot", path).Msg("old snapshot removed")
		}
	}
}
