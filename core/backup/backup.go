package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/AvaProtocol/bot-migrator/pkg/logger"
	"github.com/AvaProtocol/bot-migrator/storage"
)

const (
	backupFileName  = "full-backup.db"
	timestampLayout = "06-01-02-15-04-05.000"
)

// Service snapshots the storage into timestamped folders under backupDir.
type Service struct {
	logger    logger.Logger
	db        storage.Storage
	backupDir string

	mu        sync.Mutex
	scheduler gocron.Scheduler

	// held while a backup file is written
	backupMu sync.Mutex
}

func NewService(log logger.Logger, db storage.Storage, backupDir string) *Service {
	return &Service{
		logger:    logger.EnsureLogger(log),
		db:        db,
		backupDir: backupDir,
	}
}

func (s *Service) Dir() string {
	return s.backupDir
}

// StartPeriodicBackup schedules a full backup every interval until
// StopPeriodicBackup is called.
func (s *Service) StartPeriodicBackup(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		return fmt.Errorf("backup service already running")
	}
	if interval <= 0 {
		return fmt.Errorf("invalid backup interval %v", interval)
	}
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if backupFile, err := s.PerformBackup(); err != nil {
				s.logger.Error("Periodic backup failed", "error", err)
			} else {
				s.logger.Info("Periodic backup completed", "file", backupFile)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule backup job: %w", err)
	}
	scheduler.Start()
	s.scheduler = scheduler

	s.logger.Info("Started periodic backup", "interval", interval.String(), "dir", s.backupDir)
	return nil
}

func (s *Service) StopPeriodicBackup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Warn("Backup scheduler did not shut down cleanly", "error", err)
	}
	s.scheduler = nil
	s.logger.Info("Stopped periodic backup")
}

func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler != nil
}

// PerformBackup writes a full backup and returns the path of the file.
func (s *Service) PerformBackup() (string, error) {
	s.backupMu.Lock()
	defer s.backupMu.Unlock()

	timestamp := time.Now().UTC().Format(timestampLayout)
	backupPath := filepath.Join(s.backupDir, timestamp)

	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup timestamp directory: %w", err)
	}

	backupFile := filepath.Join(backupPath, backupFileName)
	f, err := os.Create(backupFile)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	s.logger.Debug("Running backup", "file", backupFile)
	if _, err := s.db.Backup(context.Background(), f, 0); err != nil {
		return "", fmt.Errorf("backup operation failed: %w", err)
	}
	return backupFile, nil
}

// Restore loads a backup file produced by PerformBackup into the storage.
func (s *Service) Restore(ctx context.Context, backupFile string) error {
	f, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	if err := s.db.Load(ctx, f); err != nil {
		return fmt.Errorf("restore operation failed: %w", err)
	}
	s.logger.Info("Restore completed", "file", backupFile)
	return nil
}

// List returns the backup files under the backup directory, oldest first.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		file := filepath.Join(s.backupDir, e.Name(), backupFileName)
		if _, err := os.Stat(file); err == nil {
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Latest is the most recent backup file, or "" when there is none.
func (s *Service) Latest() (string, error) {
	files, err := s.List()
	if err != nil || len(files) == 0 {
		return "", err
	}
	return files[len(files)-1], nil
}
