package backup

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const (
	keyPrefix      = "ledger/"
	backupTimeout  = 5 * time.Minute
	retainedCopies = 24
)

// Checkpointer flushes pending writes so the on-disk file is
// self-contained before it is copied.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// Service uploads compressed ledger snapshots and prunes old ones.
type Service struct {
	client     *S3Client
	db         Checkpointer
	ledgerPath string
	log        zerolog.Logger
}

// NewService creates the ledger backup service.
func NewService(client *S3Client, db Checkpointer, ledgerPath string, log zerolog.Logger) *Service {
	return &Service{
		client:     client,
		db:         db,
		ledgerPath: ledgerPath,
		log:        log.With().Str("service", "backup").Logger(),
	}
}

// Name implements the scheduler job interface.
func (s *Service) Name() string { return "ledger_backup" }

// Run creates and uploads one snapshot, then prunes old copies.
func (s *Service) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()
	return s.BackupNow(ctx)
}

// BackupNow checkpoints the ledger, compresses it to a staging file
// and uploads it under a timestamped key.
func (s *Service) BackupNow(ctx context.Context) error {
	start := time.Now()

	if err := s.db.Checkpoint(ctx); err != nil {
		return fmt.Errorf("pre-backup checkpoint: %w", err)
	}

	staging, checksum, err := s.compress(s.ledgerPath)
	if err != nil {
		return err
	}
	defer os.Remove(staging)

	file, err := os.Open(staging)
	if err != nil {
		return fmt.Errorf("failed to open staging file: %w", err)
	}
	defer file.Close()

	key := fmt.Sprintf("%smeridian-ledger-%s.db.gz", keyPrefix, start.UTC().Format("2006-01-02-150405"))
	if err := s.client.Upload(ctx, key, file); err != nil {
		return err
	}

	s.log.Info().
		Str("key", key).
		Str("sha256", checksum).
		Dur("elapsed", time.Since(start)).
		Msg("Ledger backup complete")

	if err := s.prune(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Backup pruning failed")
	}
	return nil
}

// compress gzips the ledger into the staging directory and returns the
// staging path plus the checksum of the original file.
func (s *Service) compress(path string) (string, string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to open ledger: %w", err)
	}
	defer src.Close()

	staging := filepath.Join(os.TempDir(), fmt.Sprintf("meridian-backup-%d.db.gz", time.Now().UnixNano()))
	dst, err := os.Create(staging)
	if err != nil {
		return "", "", fmt.Errorf("failed to create staging file: %w", err)
	}
	defer dst.Close()

	hash := sha256.New()
	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(io.MultiWriter(gz, hash), src); err != nil {
		os.Remove(staging)
		return "", "", fmt.Errorf("failed to compress ledger: %w", err)
	}
	if err := gz.Close(); err != nil {
		os.Remove(staging)
		return "", "", fmt.Errorf("failed to finalize archive: %w", err)
	}

	return staging, hex.EncodeToString(hash.Sum(nil)), nil
}

// prune keeps the newest retainedCopies snapshots.
func (s *Service) prune(ctx context.Context) error {
	objects, err := s.client.List(ctx, keyPrefix)
	if err != nil {
		return err
	}
	for _, obj := range objects[min(len(objects), retainedCopies):] {
		if err := s.client.Delete(ctx, obj.Key); err != nil {
			return err
		}
		s.log.Debug().Str("key", obj.Key).Msg("Pruned old backup")
	}
	return nil
}
