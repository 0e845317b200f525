package migrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/AvaProtocol/bot-migrator/core/ghost"
	"github.com/AvaProtocol/bot-migrator/metrics"
	"github.com/AvaProtocol/bot-migrator/model"
	"github.com/AvaProtocol/bot-migrator/pkg/logger"
	"github.com/AvaProtocol/bot-migrator/storage"
	"github.com/AvaProtocol/bot-migrator/version"
)

const defaultConcurrency = 4

// Backuper takes a full snapshot of the storage before a batch runs.
type Backuper interface {
	PerformBackup() (string, error)
}

// Services are the collaborators the engine hands to migrations through
// their Env. A nil service is simply not offered.
type Services struct {
	Storage  storage.Storage
	Database Database
	Config   ConfigProvider
	Bots     BotService
	Ghost    *ghost.Ghost
}

// configCache is implemented by config providers that keep bot configs in a
// read cache.
type configCache interface {
	Invalidate(botID string)
}

type Config struct {
	// TargetVersion defaults to the version of the running binary.
	TargetVersion string
	// Backup, when set, runs before every batch that is not a dry run.
	Backup      Backuper
	Metrics     metrics.MigrationRecorder
	Concurrency int
}

// Migrator brings bots and core from the version they were last migrated to
// up (or down) to the binary's version.
type Migrator struct {
	logger   logger.Logger
	registry *Registry
	services Services
	logs     *LogStore
	backup   Backuper
	metrics  metrics.MigrationRecorder

	target      string
	concurrency int
	locks       *keyLock
}

func NewMigrator(log logger.Logger, registry *Registry, services Services, config Config) *Migrator {
	m := &Migrator{
		logger:      logger.EnsureLogger(log),
		registry:    registry,
		services:    services,
		backup:      config.Backup,
		metrics:     config.Metrics,
		target:      config.TargetVersion,
		concurrency: config.Concurrency,
		locks:       newKeyLock(),
	}
	if m.target == "" {
		m.target = version.Get()
	}
	if m.metrics == nil {
		m.metrics = metrics.Noop{}
	}
	if m.concurrency <= 0 {
		m.concurrency = defaultConcurrency
	}
	if services.Ghost != nil {
		m.logs = NewLogStore(services.Ghost)
	}
	return m
}

// TargetVersion is the version every scope is migrated to.
func (m *Migrator) TargetVersion() string {
	return m.target
}

func (m *Migrator) Registry() *Registry {
	return m.registry
}

func (m *Migrator) Logs() *LogStore {
	return m.logs
}

type runOptions struct {
	down   bool
	dryRun bool
}

type RunOption func(*runOptions)

// WithDown runs the down functions of the migrations between the target and
// the current version.
func WithDown() RunOption {
	return func(o *runOptions) { o.down = true }
}

// WithDryRun runs migrations with Meta.DryRun set and persists nothing.
func WithDryRun() RunOption {
	return func(o *runOptions) { o.dryRun = true }
}

type scope struct {
	target Target
	botID  string
}

func (s scope) String() string {
	if s.target == TargetBot {
		return "bot " + s.botID
	}
	return "core"
}

func (s scope) lockKey() string {
	if s.target == TargetBot {
		return "bot:" + s.botID
	}
	return "core"
}

// LogScope is the ghost scope holding the migration log of a bot, or of core
// when botID is empty.
func LogScope(botID string) string {
	if botID == "" {
		return ghost.GlobalScope
	}
	return ghost.BotScope(botID)
}

func (s scope) logScope() string {
	return LogScope(s.botID)
}

// Outcome is what happened to one migration of a batch.
type Outcome struct {
	File   MigrationFile
	Type   Type
	Result Result
	Err    error
}

func (o Outcome) Failed() bool {
	return o.Err != nil || !o.Result.Success
}

// Report describes a batch. A report without outcomes means nothing had to
// run.
type Report struct {
	BotID     string
	Target    Target
	From      string
	To        string
	Direction model.Direction
	DryRun    bool
	Success   bool
	Outcomes  []Outcome
	// LogEntry is the entry appended to the scope's history, nil in dry run
	// or when nothing ran.
	LogEntry *model.MigrationLogEntry
}

func (r *Report) Failures() []Outcome {
	return lo.Filter(r.Outcomes, func(o Outcome, _ int) bool { return o.Failed() })
}

// Pending lists the migrations a move from current to the target version
// would run for the given target, loading their definitions on the way.
// Definitions that fail to load are logged and left out.
func (m *Migrator) Pending(ctx context.Context, target Target, current string, down bool) ([]MigrationFile, error) {
	catalog, err := m.registry.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	rng, err := VersionRange(current, m.target, down)
	if err != nil {
		return nil, err
	}
	for _, file := range InRange(catalog, rng) {
		if _, err := m.registry.Load(ctx, file); err != nil {
			m.logger.Warn("Skipping migration that cannot be loaded", "file", file.Filename, "error", err)
		}
	}

	files, err := m.registry.Filter(catalog, current, m.target, FilterOptions{Down: down, Target: target})
	if err != nil {
		return nil, err
	}
	return lo.Filter(files, func(f MigrationFile, _ int) bool {
		_, ok := m.registry.Get(f.Filename)
		return ok
	}), nil
}

// MigrateBot migrates one bot from current to the target version.
func (m *Migrator) MigrateBot(ctx context.Context, botID, current string, opts ...RunOption) (*Report, error) {
	if botID == "" {
		return nil, fmt.Errorf("bot id is required")
	}
	return m.run(ctx, scope{target: TargetBot, botID: botID}, current, opts)
}

// MigrateCore runs the core migrations from current to the target version.
func (m *Migrator) MigrateCore(ctx context.Context, current string, opts ...RunOption) (*Report, error) {
	return m.run(ctx, scope{target: TargetCore}, current, opts)
}

// MigrateAllBots migrates every bot known to the bot service, several at a
// time. Each bot gets its own report; errors of all bots are joined.
func (m *Migrator) MigrateAllBots(ctx context.Context, opts ...RunOption) ([]*Report, error) {
	if m.services.Bots == nil {
		return nil, fmt.Errorf("no bot service configured")
	}
	bots, err := m.services.Bots.GetBots(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*Report, len(bots))
	errs := make([]error, len(bots))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, bot := range bots {
		i, bot := i, bot
		g.Go(func() error {
			report, err := m.MigrateBot(ctx, bot.ID, bot.Version, opts...)
			reports[i] = report
			if err != nil {
				errs[i] = fmt.Errorf("bot %s: %w", bot.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return lo.Filter(reports, func(r *Report, _ int) bool { return r != nil }), errors.Join(errs...)
}

func (m *Migrator) run(ctx context.Context, sc scope, current string, options []RunOption) (*Report, error) {
	var opts runOptions
	for _, o := range options {
		o(&opts)
	}

	unlock := m.locks.Lock(sc.lockKey())
	defer unlock()

	direction := model.DirectionUp
	if opts.down {
		direction = model.DirectionDown
	}
	report := &Report{
		BotID:     sc.botID,
		Target:    sc.target,
		From:      current,
		To:        m.target,
		Direction: direction,
		DryRun:    opts.dryRun,
		Success:   true,
	}

	log := m.logger
	if sc.target == TargetBot {
		log = log.With("bot_id", sc.botID)
	}

	// Nothing recorded means the data was created by this version.
	if current == "" {
		if opts.dryRun || opts.down {
			return report, nil
		}
		log.Info("No version recorded, marking as up to date", "version", m.target)
		if err := m.setVersion(ctx, sc); err != nil {
			return report, &PersistenceError{Scope: sc.String(), Op: "set version", Err: err}
		}
		return report, nil
	}

	pending, err := m.Pending(ctx, sc.target, current, opts.down)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return report, nil
	}

	meta := Meta{
		BotID:     sc.botID,
		DryRun:    opts.dryRun,
		Target:    sc.target,
		Direction: direction,
	}
	if sc.target == TargetBot && m.services.Config != nil {
		cfg, err := m.services.Config.GetBotConfig(ctx, sc.botID)
		if err != nil {
			return nil, fmt.Errorf("cannot read config of %s: %w", sc, err)
		}
		meta.BotConfig = cfg
	}

	log.Info(summary(sc, pending, current, m.target, opts))
	for _, f := range pending {
		log.Debug("Pending migration", "file", f.Filename, "version", f.Version.String())
	}

	if m.backup != nil && !opts.dryRun {
		backupFile, err := m.backup.PerformBackup()
		if err != nil {
			return nil, fmt.Errorf("failed to create backup before migrations: %w", err)
		}
		log.Info("Storage backup created before migrating", "file", backupFile)
	}

	start := time.Now()
	lines, runErr := m.execute(ctx, log, sc, pending, meta, opts, report)
	failures := report.Failures()
	report.Success = runErr == nil && len(failures) == 0

	m.metrics.ObserveBatchDuration(string(sc.target), time.Since(start).Seconds())
	m.metrics.IncBatch(string(sc.target), statusLabel(report.Success))

	if !opts.dryRun {
		entry := model.NewMigrationLogEntry(current, m.target, direction)
		entry.Success = report.Success
		entry.Details = lines
		report.LogEntry = entry

		if m.logs == nil {
			return report, &PersistenceError{Scope: sc.String(), Op: "append log", Err: errors.New("no log store configured")}
		}
		if err := m.logs.Append(context.WithoutCancel(ctx), sc.logScope(), entry); err != nil {
			return report, &PersistenceError{Scope: sc.String(), Op: "append log", Err: err}
		}
	}

	if runErr != nil {
		log.Error("Migration batch interrupted", "error", runErr)
		return report, runErr
	}
	if !report.Success {
		log.Error(fmt.Sprintf("Could not complete migration of %s, %d of %d migrations failed. Version stays at %s", sc, len(failures), len(pending), current))
		return report, fmt.Errorf("%w: %d of %d migrations of %s", ErrMigrationFailed, len(failures), len(pending), sc)
	}
	if opts.dryRun {
		log.Info("Dry run completed", "would_change", len(lo.Filter(report.Outcomes, func(o Outcome, _ int) bool { return o.Result.HasChanges })))
		return report, nil
	}

	if err := m.setVersion(ctx, sc); err != nil {
		return report, &PersistenceError{Scope: sc.String(), Op: "set version", Err: err}
	}
	log.Info("Migration completed", "from", current, "to", m.target)
	return report, nil
}

// execute runs the batch with a capture logger attached. The capture is
// stopped on every path, including a panic outside the migrations.
func (m *Migrator) execute(ctx context.Context, log logger.Logger, sc scope, pending []MigrationFile, meta Meta, opts runOptions, report *Report) (lines []string, err error) {
	capture := newCaptureLogger(log)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("migration batch aborted: %v", r)
		}
		lines = capture.stop()
	}()

	for _, file := range pending {
		if err := ctx.Err(); err != nil {
			capture.Warn("Migration batch cancelled", "next", file.Filename)
			return nil, err
		}

		def, ok := m.registry.Get(file.Filename)
		if !ok {
			return nil, &LoadError{Filename: file.Filename, Err: errors.New("definition not loaded")}
		}

		env := m.newEnv(capture.With("migration", file.Title), def.Info.Type, sc, meta)
		outcome := invoke(ctx, file, def, env, opts.down)
		report.Outcomes = append(report.Outcomes, outcome)
		if def.Info.Type == TypeContent {
			m.invalidateConfig(sc)
		}
		m.metrics.IncMigration(string(def.Info.Type), statusLabel(!outcome.Failed()))

		switch {
		case outcome.Failed():
			capture.Error("Migration failed", "file", file.Filename, "error", outcome.Err)
		case opts.dryRun && outcome.Result.HasChanges:
			capture.Info("Migration would change data", "file", file.Filename)
		case opts.dryRun:
			capture.Info("Migration has nothing to change", "file", file.Filename)
		default:
			capture.Info("Migration succeeded", "file", file.Filename)
		}
	}
	return nil, nil
}

func (m *Migrator) newEnv(log logger.Logger, t Type, sc scope, meta Meta) *Env {
	env := &Env{Logger: log, Meta: meta}
	switch t {
	case TypeDatabase:
		env.Database = m.services.Database
		env.Storage = m.services.Storage
	case TypeConfig:
		env.Config = m.services.Config
		env.Bots = m.services.Bots
	case TypeContent:
		if m.services.Ghost != nil {
			env.FS = m.services.Ghost.Scope(sc.logScope())
		}
	}
	return env
}

// invoke runs one migration. Returned errors, unsuccessful results and
// panics all turn into a failed outcome.
func invoke(ctx context.Context, file MigrationFile, def *Definition, env *Env, down bool) (out Outcome) {
	out = Outcome{File: file, Type: def.Info.Type}
	defer func() {
		if r := recover(); r != nil {
			out.Result = Result{}
			out.Err = &MigrationError{Filename: file.Filename, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	fn := def.Up
	if down {
		fn = def.Down
	}
	res, err := fn(ctx, env)
	out.Result = res

	switch {
	case err != nil:
		out.Err = &MigrationError{Filename: file.Filename, Err: err}
	case !res.Success:
		msg := res.Message
		if msg == "" {
			msg = "migration reported failure"
		}
		out.Err = &MigrationError{Filename: file.Filename, Err: errors.New(msg)}
	}
	return out
}

// invalidateConfig drops the cached config of the bot, a content migration
// may have rewritten its config file through the scoped filesystem.
func (m *Migrator) invalidateConfig(sc scope) {
	if sc.target != TargetBot {
		return
	}
	if c, ok := m.services.Config.(configCache); ok {
		c.Invalidate(sc.botID)
	}
}

func (m *Migrator) setVersion(ctx context.Context, sc scope) error {
	if m.services.Config == nil {
		return errors.New("no config provider configured")
	}
	if sc.target == TargetBot {
		_, err := m.services.Config.MergeBotConfig(ctx, sc.botID, map[string]interface{}{"version": m.target})
		return err
	}

	cfg, err := m.services.Config.GetServerConfig(ctx)
	if err != nil {
		return err
	}
	cfg.Version = m.target
	return m.services.Config.SetServerConfig(ctx, cfg)
}

func summary(sc scope, pending []MigrationFile, from, to string, opts runOptions) string {
	verb := "Migrating"
	if opts.down {
		verb = "Reverting"
	}
	if opts.dryRun {
		verb = "Dry run of " + verb
	}
	return fmt.Sprintf("%s %s from %s to %s: %d migration(s) to run", verb, sc, from, to, len(pending))
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}
