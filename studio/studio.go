package studio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	sdkmetrics "github.com/Layr-Labs/eigensdk-go/metrics"
	"github.com/allegro/bigcache/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AvaProtocol/bot-migrator/core/backup"
	"github.com/AvaProtocol/bot-migrator/core/botconfig"
	"github.com/AvaProtocol/bot-migrator/core/bots"
	"github.com/AvaProtocol/bot-migrator/core/config"
	"github.com/AvaProtocol/bot-migrator/core/database"
	"github.com/AvaProtocol/bot-migrator/core/ghost"
	"github.com/AvaProtocol/bot-migrator/core/migrator"
	"github.com/AvaProtocol/bot-migrator/metrics"
	"github.com/AvaProtocol/bot-migrator/migrations"
	"github.com/AvaProtocol/bot-migrator/pkg/logger"
	"github.com/AvaProtocol/bot-migrator/storage"
	"github.com/AvaProtocol/bot-migrator/version"
)

const studioName = "bot-studio"

type Status string

const (
	initStatus     Status = "init"
	openStatus     Status = "open"
	runningStatus  Status = "running"
	shutdownStatus Status = "shutdown"
)

var ErrNotOpen = errors.New("studio is not open")

// RunWithConfig opens the studio described by the config file, upgrades core,
// mounts every bot and then waits for a termination signal.
func RunWithConfig(configPath string) error {
	c, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to parse config file %s, make sure it exists and is valid yaml: %w", configPath, err)
	}

	s := New(c)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return s.Run(ctx)
}

// Studio owns the storage and services bots live on, and keeps their files
// at the version of the running binary.
type Studio struct {
	logger logger.Logger
	config *config.Config

	mu     sync.Mutex
	status Status

	db       storage.Storage
	sql      *database.DB
	cache    *bigcache.BigCache
	ghost    *ghost.Ghost
	provider *botconfig.Provider
	bots     *bots.Service
	backup   *backup.Service
	migrator *migrator.Migrator

	metricsReg  *prometheus.Registry
	metrics     *metrics.MigratorMetrics
	metricsErrC <-chan error

	mounted map[string]bool
	repl    *repl
}

func New(c *config.Config) *Studio {
	return &Studio{
		logger:  logger.EnsureLogger(c.Logger),
		config:  c,
		status:  initStatus,
		mounted: make(map[string]bool),
	}
}

// Open sets up storage and every service the migrator needs without running
// any migration.
func (s *Studio) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != initStatus {
		return fmt.Errorf("studio already %s", s.status)
	}

	var err error
	s.logger.Info("Initialize storage", "path", s.config.DbPath)
	if s.db, err = storage.NewWithPath(s.config.DbPath); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err = s.db.Setup(); err != nil {
		s.closeStores()
		return fmt.Errorf("failed to setup storage: %w", err)
	}

	if s.config.DatabaseDriver != "" {
		s.logger.Info("Connecting to database", "driver", s.config.DatabaseDriver)
		if s.sql, err = database.Open(ctx, database.Dialect(s.config.DatabaseDriver), s.config.DatabaseDSN); err != nil {
			s.closeStores()
			return err
		}
	}

	if s.cache, err = botconfig.NewCache(ctx); err != nil {
		s.closeStores()
		return fmt.Errorf("cannot initialize cache storage: %w", err)
	}

	s.ghost = ghost.New(s.db)
	s.provider = botconfig.NewProvider(s.ghost, s.cache, s.logger)
	s.bots = bots.NewService(s.ghost, s.provider, s.logger)

	if s.config.BackupDir != "" {
		s.backup = backup.NewService(s.logger, s.db, s.config.BackupDir)
	}

	s.metricsReg = prometheus.NewRegistry()
	eigenMetrics := sdkmetrics.NewEigenMetrics(studioName, s.config.MetricsAddress, s.metricsReg, s.logger)
	s.metrics = metrics.NewMigratorMetrics(eigenMetrics, s.metricsReg)

	source := migrations.Source()
	if s.config.MigrationsDir != "" {
		source = migrator.NewDirSource(s.config.MigrationsDir)
	}

	services := migrator.Services{
		Storage: s.db,
		Config:  s.provider,
		Bots:    s.bots,
		Ghost:   s.ghost,
	}
	// a nil *database.DB must not become a non-nil interface
	if s.sql != nil {
		services.Database = s.sql
	}
	mc := migrator.Config{
		TargetVersion: version.Get(),
		Metrics:       s.metrics,
		Concurrency:   s.config.MigrationConcurrency,
	}
	if s.backup != nil && s.config.BackupBeforeMigrate {
		mc.Backup = s.backup
	}
	s.migrator = migrator.NewMigrator(s.logger, migrator.NewRegistry(source, migrations.Loader()), services, mc)

	s.status = openStatus
	return nil
}

// Start opens the studio if needed, brings core and every bot to the current
// version and starts the background services.
func (s *Studio) Start(ctx context.Context) error {
	s.logger.Info("Starting studio", "version", version.Get())

	if s.Status() == initStatus {
		if err := s.Open(ctx); err != nil {
			return err
		}
	}

	if s.config.MetricsEnabled {
		s.metricsErrC = s.metrics.Start(ctx, s.metricsReg)
	}

	if _, err := s.UpgradeCore(ctx); err != nil {
		return fmt.Errorf("core migration failed: %w", err)
	}

	// A bot that cannot be migrated stays unmounted, the others keep going.
	if _, err := s.MountAllBots(ctx); err != nil {
		s.logger.Error("Some bots could not be mounted", "error", err)
	}

	if s.backup != nil && s.config.BackupInterval > 0 {
		if err := s.backup.StartPeriodicBackup(s.config.BackupInterval); err != nil {
			return err
		}
	}

	if s.config.SocketPath != "" {
		r, err := startRepl(s, s.config.SocketPath)
		if err != nil {
			s.logger.Warn("Cannot start repl", "socket", s.config.SocketPath, "error", err)
		} else {
			s.repl = r
		}
	}

	s.setStatus(runningStatus)
	s.logger.Info("Studio started", "bots", len(s.MountedBots()))
	return nil
}

// Run starts the studio and blocks until ctx is done.
func (s *Studio) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		s.Stop()
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-s.metricsErrC:
		if err != nil && !strings.Contains(err.Error(), "Server closed") {
			s.logger.Error("Metrics server stopped", "error", err)
		}
		<-ctx.Done()
	}

	s.logger.Info("Shutting down...")
	s.Stop()
	return nil
}

func (s *Studio) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == shutdownStatus {
		return
	}
	s.status = shutdownStatus

	if s.repl != nil {
		s.repl.stop()
	}
	if s.backup != nil {
		s.backup.StopPeriodicBackup()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	s.closeStores()
}

func (s *Studio) closeStores() {
	if s.sql != nil {
		if err := s.sql.Close(); err != nil {
			s.logger.Warn("Cannot close database", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("Cannot close storage", "error", err)
		}
	}
}

// UpgradeCore runs the core migrations from the version recorded in the
// server config.
func (s *Studio) UpgradeCore(ctx context.Context, opts ...migrator.RunOption) (*migrator.Report, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	server, err := s.provider.GetServerConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s.migrator.MigrateCore(ctx, server.Version, opts...)
}

// MountBot migrates a bot to the current version and marks it mounted once
// it is there. Disabled bots are migrated but not mounted.
func (s *Studio) MountBot(ctx context.Context, botID string, opts ...migrator.RunOption) (*migrator.Report, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	bot, err := s.bots.FindBotByID(ctx, botID)
	if err != nil {
		return nil, err
	}

	report, err := s.migrator.MigrateBot(ctx, bot.ID, bot.Version, opts...)
	if err != nil {
		s.unmount(bot.ID)
		return report, err
	}
	if !bot.Disabled && !report.DryRun {
		s.mount(bot.ID)
	}
	return report, nil
}

// MountAllBots migrates every bot and mounts the enabled ones that made it.
func (s *Studio) MountAllBots(ctx context.Context, opts ...migrator.RunOption) ([]*migrator.Report, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	reports, err := s.migrator.MigrateAllBots(ctx, opts...)
	for _, r := range reports {
		if r.DryRun {
			continue
		}
		if !r.Success {
			s.unmount(r.BotID)
			continue
		}
		bot, findErr := s.bots.FindBotByID(ctx, r.BotID)
		if findErr != nil || bot.Disabled {
			continue
		}
		s.mount(r.BotID)
	}
	return reports, err
}

func (s *Studio) ready() error {
	if st := s.Status(); st != openStatus && st != runningStatus {
		return ErrNotOpen
	}
	return nil
}

func (s *Studio) mount(botID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted[botID] = true
}

func (s *Studio) unmount(botID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mounted, botID)
}

// MountedBots lists the ids of the bots currently mounted.
func (s *Studio) MountedBots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.mounted))
	for id := range s.mounted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Studio) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Studio) setStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

func (s *Studio) Migrator() *migrator.Migrator { return s.migrator }
func (s *Studio) Bots() *bots.Service { return s.bots }
func (s *Studio) BotConfig() *botconfig.Provider { return s.provider }
func (s *Studio) Ghost() *ghost.Ghost { return s.ghost }
func (s *Studio) Storage() storage.Storage { return s.db }
func (s *Studio) Backup() *backup.Service { return s.backup }
func (s *Studio) Metrics() *metrics.MigratorMetrics { return s.metrics }
