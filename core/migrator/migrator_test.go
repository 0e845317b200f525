package migrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/bot-migrator/core/botconfig"
	"github.com/AvaProtocol/bot-migrator/core/bots"
	"github.com/AvaProtocol/bot-migrator/core/ghost"
	"github.com/AvaProtocol/bot-migrator/core/testutil"
	"github.com/AvaProtocol/bot-migrator/model"
)

type fixture struct {
	migrator *Migrator
	config   *botconfig.Provider
	bots     *bots.Service
	ghost    *ghost.Ghost
	logs     *LogStore

	mu    sync.Mutex
	calls []string
}

func newFixture(t *testing.T, target string, table TableLoader, opts ...func(*Config)) *fixture {
	t.Helper()

	db := testutil.TestMemDB(t)
	g := ghost.New(db)
	cache := testutil.GetDefaultCache()
	t.Cleanup(func() { cache.Close() })
	provider := botconfig.NewProvider(g, cache, nil)
	svc := bots.NewService(g, provider, nil)

	fsys := fstest.MapFS{}
	for name := range table {
		fsys["migrations/"+name] = &fstest.MapFile{Data: []byte("package migrations\n")}
	}
	registry := NewRegistry(NewFSSource(fsys, "migrations"), table)

	config := Config{TargetVersion: target}
	for _, o := range opts {
		o(&config)
	}
	m := NewMigrator(testutil.GetLogger(), registry, Services{
		Storage: db,
		Config:  provider,
		Bots:    svc,
		Ghost:   g,
	}, config)

	return &fixture{migrator: m, config: provider, bots: svc, ghost: g, logs: m.Logs()}
}

// record returns a migration that remembers it ran.
func (f *fixture) record(name string) Func {
	return func(ctx context.Context, env *Env) (Result, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, name)
		return Result{Success: true}, nil
	}
}

func (f *fixture) ran() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fixture) createBot(t *testing.T, id, version string) {
	t.Helper()
	require.NoError(t, f.bots.CreateBot(context.Background(), testutil.TestBot(id, version)))
}

func (f *fixture) botVersion(t *testing.T, id string) string {
	t.Helper()
	cfg, err := f.config.GetBotConfig(context.Background(), id)
	require.NoError(t, err)
	return cfg.Version
}

func TestMigrateBotEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "12.2.0", TableLoader{})
	f.createBot(t, "b1", "12.0.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Empty(t, report.Outcomes)
	assert.Nil(t, report.LogEntry)

	entries, err := f.logs.List(ctx, LogScope("b1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "12.0.0", f.botVersion(t, "b1"))
}

func TestMigrateBotSameVersionWritesNothing(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.2.0", table)
	table["v12_2_0-1-a.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("a")}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.2.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.2.0")
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, f.ran())

	exists, err := f.ghost.ForBot("b1").FileExists(ctx, "migrations", "log.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMigrateBotRunsInChronologicalOrder(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.1.0", table)
	table["v12_1_0-100-b.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("100")}
	table["v12_1_0-50-a.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("50")}
	table["v12_1_0-200-c.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("200")}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.0.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, []string{"50", "100", "200"}, f.ran())
}

func TestMigrateBotEndToEnd(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.2.0", table)

	table["v12_1_0-10-set-nlu-threshold.go"] = &Definition{
		Info: Info{Description: "set nlu threshold", Type: TypeContent, Target: TargetBot},
		Up: func(ctx context.Context, env *Env) (Result, error) {
			if env.FS == nil || env.Config != nil {
				return Result{}, errors.New("content migration got the wrong capabilities")
			}
			var cfg model.BotConfig
			if err := env.FS.ReadFileAsObject(ctx, "", model.BotConfigFile, &cfg); err != nil {
				return Result{}, err
			}
			cfg.NLU = &model.NLUConfig{ConfidenceThreshold: 0.5}
			if err := env.FS.UpsertObject(ctx, "", model.BotConfigFile, &cfg); err != nil {
				return Result{}, err
			}
			return Result{Success: true, HasChanges: true}, nil
		},
	}
	table["v12_2_0-20-add-french.go"] = &Definition{
		Info: Info{Description: "add french", Type: TypeConfig, Target: TargetBot},
		Up: func(ctx context.Context, env *Env) (Result, error) {
			if env.Config == nil || env.FS != nil {
				return Result{}, errors.New("config migration got the wrong capabilities")
			}
			cfg, err := env.Config.GetBotConfig(ctx, env.Meta.BotID)
			if err != nil {
				return Result{}, err
			}
			if cfg.NLU == nil {
				return Result{}, errors.New("nlu threshold written by the content migration is not visible")
			}
			_, err = env.Config.MergeBotConfig(ctx, env.Meta.BotID, map[string]interface{}{
				"languages": append(cfg.Languages, "fr"),
			})
			return Result{Success: err == nil, HasChanges: true}, err
		},
	}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.0.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.NoError(t, err)
	assert.True(t, report.Success)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "set-nlu-threshold", report.Outcomes[0].File.Title)
	assert.Equal(t, TypeContent, report.Outcomes[0].Type)
	assert.Equal(t, "add-french", report.Outcomes[1].File.Title)
	assert.Equal(t, TypeConfig, report.Outcomes[1].Type)

	cfg, err := f.config.GetBotConfig(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "12.2.0", cfg.Version)
	assert.Equal(t, []string{"en", "fr"}, cfg.Languages)
	require.NotNil(t, cfg.NLU)
	assert.Equal(t, 0.5, cfg.NLU.ConfidenceThreshold)

	entries, err := f.logs.List(ctx, LogScope("b1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, "12.0.0", entries[0].InitialVersion)
	assert.Equal(t, "12.2.0", entries[0].TargetVersion)
	assert.Equal(t, model.DirectionUp, entries[0].Direction)
	assert.Len(t, entries[0].Details, 2)
	assert.Equal(t, entries[0].ID, report.LogEntry.ID)

	// a second run is a no-op
	report, err = f.migrator.MigrateBot(ctx, "b1", cfg.Version)
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	entries, err = f.logs.List(ctx, LogScope("b1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMigrateBotKeepsContentConfigEdits(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{
		"v12_1_0-1-switch-to-french.go": {
			Info: Info{Type: TypeContent, Target: TargetBot},
			Up: func(ctx context.Context, env *Env) (Result, error) {
				cfg := *env.Meta.BotConfig
				cfg.DefaultLanguage = "fr"
				cfg.Languages = []string{"en", "fr"}
				return Result{Success: true}, env.FS.UpsertObject(ctx, "", model.BotConfigFile, &cfg)
			},
		},
	}
	f := newFixture(t, "12.1.0", table)
	f.createBot(t, "b1", "12.0.0")
	// warm the cache
	assert.Equal(t, "12.0.0", f.botVersion(t, "b1"))

	_, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.NoError(t, err)

	var stored model.BotConfig
	require.NoError(t, f.ghost.ForBot("b1").ReadFileAsObject(ctx, "", model.BotConfigFile, &stored))
	assert.Equal(t, "12.1.0", stored.Version)
	assert.Equal(t, "fr", stored.DefaultLanguage)
	assert.Equal(t, []string{"en", "fr"}, stored.Languages)

	cfg, err := f.config.GetBotConfig(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.DefaultLanguage)
}

func TestMigrateBotRangeBoundaries(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.5.0", table)
	for i, v := range []string{"12_0_0", "12_3_0", "12_5_0", "12_6_0"} {
		name := fmt.Sprintf("v%s-%d-m.go", v, i+1)
		table[name] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record(v)}
	}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.0.0")

	_, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"12_3_0", "12_5_0"}, f.ran())
}

func TestMigrateBotPartialFailure(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.1.0", table)
	table["v12_1_0-1-first.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("first")}
	table["v12_1_0-2-second.go"] = &Definition{
		Info: Info{Type: TypeConfig, Target: TargetBot},
		Up: func(ctx context.Context, env *Env) (Result, error) {
			env.Logger.Info("about to fail")
			return Result{}, errors.New("cannot rewrite flow")
		},
	}
	table["v12_1_0-3-third.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("third")}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.0.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.False(t, report.Success)

	assert.Equal(t, []string{"first", "third"}, f.ran())
	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "v12_1_0-2-second.go", failures[0].File.Filename)
	var me *MigrationError
	assert.ErrorAs(t, failures[0].Err, &me)

	assert.Equal(t, "12.0.0", f.botVersion(t, "b1"))

	latest, err := f.logs.Latest(ctx, LogScope("b1"))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.False(t, latest.Success)
	assert.Contains(t, latest.Details, "[info] about to fail migration=second")
	assert.Len(t, latest.Details, 4)
}

func TestMigrateBotRecoversPanics(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.1.0", table)
	table["v12_1_0-1-panics.go"] = &Definition{
		Info: Info{Type: TypeContent, Target: TargetBot},
		Up: func(ctx context.Context, env *Env) (Result, error) {
			var m map[string]int
			m["boom"]++
			return Result{Success: true}, nil
		},
	}
	table["v12_1_0-2-after.go"] = &Definition{Info: Info{Type: TypeContent, Target: TargetBot}, Up: f.record("after")}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.0.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.False(t, report.Success)
	assert.Equal(t, []string{"after"}, f.ran())

	latest, err := f.logs.Latest(ctx, LogScope("b1"))
	require.NoError(t, err)
	assert.False(t, latest.Success)
}

func TestMigrateBotUnsuccessfulResultFails(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{
		"v12_1_0-1-soft-fail.go": {
			Info: Info{Type: TypeConfig, Target: TargetBot},
			Up: func(ctx context.Context, env *Env) (Result, error) {
				return Result{Success: false, Message: "flow is locked"}, nil
			},
		},
	}
	f := newFixture(t, "12.1.0", table)
	f.createBot(t, "b1", "12.0.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	assert.ErrorIs(t, err, ErrMigrationFailed)
	require.Len(t, report.Failures(), 1)
	assert.ErrorContains(t, report.Failures()[0].Err, "flow is locked")
}

func TestMigrateBotFiltersByTarget(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.1.0", table)
	table["v12_1_0-1-bot.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("bot")}
	table["v12_1_0-2-core.go"] = &Definition{Info: Info{Type: TypeDatabase, Target: TargetCore}, Up: f.record("core")}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.0.0")

	_, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"bot"}, f.ran())

	_, err = f.migrator.MigrateCore(ctx, "12.0.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"bot", "core"}, f.ran())

	server, err := f.config.GetServerConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12.1.0", server.Version)

	entries, err := f.logs.List(ctx, LogScope(""))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMigrateBotEnvCapabilities(t *testing.T) {
	ctx := context.Background()
	envs := map[Type]*Env{}
	table := TableLoader{}
	for i, typ := range []Type{TypeDatabase, TypeConfig, TypeContent} {
		typ := typ
		table[fmt.Sprintf("v12_1_0-%d-%s.go", i+1, typ)] = &Definition{
			Info: Info{Type: typ, Target: TargetBot},
			Up: func(ctx context.Context, env *Env) (Result, error) {
				envs[typ] = env
				return Result{Success: true}, nil
			},
		}
	}
	f := newFixture(t, "12.1.0", table)
	f.createBot(t, "b1", "12.0.0")

	_, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.NoError(t, err)

	db := envs[TypeDatabase]
	assert.NotNil(t, db.Storage)
	assert.Nil(t, db.Config)
	assert.Nil(t, db.FS)

	cfg := envs[TypeConfig]
	assert.NotNil(t, cfg.Config)
	assert.NotNil(t, cfg.Bots)
	assert.Nil(t, cfg.Storage)
	assert.Nil(t, cfg.FS)

	content := envs[TypeContent]
	require.NotNil(t, content.FS)
	assert.Nil(t, content.Config)
	assert.Equal(t, "b1", content.Meta.BotID)
	assert.Equal(t, "b1", content.Meta.BotConfig.ID)
	assert.Equal(t, TargetBot, content.Meta.Target)
	assert.Equal(t, model.DirectionUp, content.Meta.Direction)

	// content migrations only see their own bot
	require.NoError(t, content.FS.UpsertFile(ctx, "flows", "x.json", []byte("{}")))
	exists, err := f.ghost.ForBot("b1").FileExists(ctx, "flows", "x.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMigrateBotDown(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.0.0", table)
	table["v12_1_0-1-reversible.go"] = &Definition{
		Info: Info{Type: TypeConfig, Target: TargetBot},
		Up:   f.record("up"),
		Down: f.record("down-reversible"),
	}
	table["v12_2_0-2-irreversible.go"] = &Definition{
		Info: Info{Type: TypeConfig, Target: TargetBot},
		Up:   f.record("up"),
	}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.2.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.2.0", WithDown())
	require.NoError(t, err)
	assert.Equal(t, model.DirectionDown, report.Direction)
	assert.Equal(t, []string{"down-reversible"}, f.ran())
	assert.Equal(t, "12.0.0", f.botVersion(t, "b1"))

	latest, err := f.logs.Latest(ctx, LogScope("b1"))
	require.NoError(t, err)
	assert.Equal(t, model.DirectionDown, latest.Direction)
}

func TestMigrateBotDryRun(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{
		"v12_1_0-1-would-change.go": {
			Info: Info{Type: TypeConfig, Target: TargetBot},
			Up: func(ctx context.Context, env *Env) (Result, error) {
				if env.Meta.DryRun {
					return Result{Success: true, HasChanges: true}, nil
				}
				return Result{}, errors.New("must not run for real")
			},
		},
	}
	f := newFixture(t, "12.1.0", table)
	f.createBot(t, "b1", "12.0.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0", WithDryRun())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Result.HasChanges)
	assert.Nil(t, report.LogEntry)

	assert.Equal(t, "12.0.0", f.botVersion(t, "b1"))
	entries, err := f.logs.List(ctx, LogScope("b1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMigrateBotWithoutVersion(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.1.0", table)
	table["v12_1_0-1-a.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("a")}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "fresh", "")

	report, err := f.migrator.MigrateBot(ctx, "fresh", "")
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Empty(t, f.ran())
	assert.Equal(t, "12.1.0", f.botVersion(t, "fresh"))
}

func TestMigrateBotStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table := TableLoader{}
	f := newFixture(t, "12.1.0", table)
	table["v12_1_0-1-cancels.go"] = &Definition{
		Info: Info{Type: TypeConfig, Target: TargetBot},
		Up: func(ctx context.Context, env *Env) (Result, error) {
			cancel()
			return Result{Success: true}, nil
		},
	}
	table["v12_1_0-2-never.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("never")}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.0.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, report.Success)
	assert.Empty(t, f.ran())
	assert.Equal(t, "12.0.0", f.botVersion(t, "b1"))

	latest, err := f.logs.Latest(context.Background(), LogScope("b1"))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.False(t, latest.Success)
}

func TestMigrateBotSkipsUnloadable(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.1.0", table)
	table["v12_1_0-1-ok.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("ok")}
	// listed in the catalog, absent from the table
	fsys := fstest.MapFS{
		"migrations/v12_1_0-1-ok.go":     {},
		"migrations/v12_1_0-2-orphan.go": {},
	}
	f.migrator.registry = NewRegistry(NewFSSource(fsys, "migrations"), table)
	f.createBot(t, "b1", "12.0.0")

	report, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, []string{"ok"}, f.ran())
}

type fakeBackup struct {
	calls int
	err   error
}

func (b *fakeBackup) PerformBackup() (string, error) {
	b.calls++
	return "/tmp/backup", b.err
}

func TestMigrateBotBacksUpFirst(t *testing.T) {
	ctx := context.Background()
	backup := &fakeBackup{}
	table := TableLoader{}
	f := newFixture(t, "12.1.0", table, func(c *Config) { c.Backup = backup })
	table["v12_1_0-1-a.go"] = &Definition{Info: Info{Type: TypeConfig, Target: TargetBot}, Up: f.record("a")}
	f.migrator.registry = tableRegistry(table)
	f.createBot(t, "b1", "12.0.0")
	f.createBot(t, "b2", "12.1.0")

	_, err := f.migrator.MigrateBot(ctx, "b1", "12.0.0", WithDryRun())
	require.NoError(t, err)
	assert.Equal(t, 0, backup.calls)

	_, err = f.migrator.MigrateBot(ctx, "b2", "12.1.0")
	require.NoError(t, err)
	assert.Equal(t, 0, backup.calls, "nothing to run")

	_, err = f.migrator.MigrateBot(ctx, "b1", "12.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, backup.calls)

	backup.err = errors.New("disk full")
	f.createBot(t, "b3", "12.0.0")
	_, err = f.migrator.MigrateBot(ctx, "b3", "12.0.0")
	assert.Error(t, err)
	assert.Equal(t, "12.0.0", f.botVersion(t, "b3"))
}

func TestMigrateAllBots(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{}
	f := newFixture(t, "12.1.0", table, func(c *Config) { c.Concurrency = 2 })
	table["v12_1_0-1-a.go"] = &Definition{
		Info: Info{Type: TypeConfig, Target: TargetBot},
		Up: func(ctx context.Context, env *Env) (Result, error) {
			if env.Meta.BotID == "broken" {
				return Result{}, errors.New("bad content")
			}
			return f.record(env.Meta.BotID)(ctx, env)
		},
	}
	f.migrator.registry = tableRegistry(table)

	for _, id := range []string{"a", "b", "c", "broken"} {
		f.createBot(t, id, "12.0.0")
	}
	f.createBot(t, "current", "12.1.0")

	reports, err := f.migrator.MigrateAllBots(ctx)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.ErrorContains(t, err, "bot broken")
	assert.Len(t, reports, 5)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, f.ran())

	for _, id := range []string{"a", "b", "c", "current"} {
		assert.Equal(t, "12.1.0", f.botVersion(t, id))
	}
	assert.Equal(t, "12.0.0", f.botVersion(t, "broken"))
}

func TestPending(t *testing.T) {
	ctx := context.Background()
	table := TableLoader{
		"v12_1_0-1-a.go": {Info: Info{Type: TypeConfig, Target: TargetBot}, Up: succeed},
		"v12_2_0-2-b.go": {Info: Info{Type: TypeDatabase, Target: TargetCore}, Up: succeed},
	}
	f := newFixture(t, "12.2.0", table)

	pending, err := f.migrator.Pending(ctx, TargetBot, "12.0.0", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"v12_1_0-1-a.go"}, filenames(pending))

	pending, err = f.migrator.Pending(ctx, TargetCore, "12.1.0", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"v12_2_0-2-b.go"}, filenames(pending))
}
