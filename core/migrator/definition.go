package migrator

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AvaProtocol/bot-migrator/model"
	"github.com/AvaProtocol/bot-migrator/pkg/logger"
	"github.com/AvaProtocol/bot-migrator/storage"
)

// Type is the kind of data a migration touches. It decides which
// capabilities the migration receives in its Env.
type Type string

const (
	TypeDatabase Type = "database"
	TypeConfig   Type = "config"
	TypeContent  Type = "content"
)

// Target is the scope a migration applies to. Every definition names one.
type Target string

const (
	TargetCore Target = "core"
	TargetBot  Target = "bot"
)

type Info struct {
	Description string
	Type        Type
	Target      Target
}

// Result is what a migration reports back. HasChanges is meaningful in dry
// run, where a migration only tells whether it would change something.
type Result struct {
	Success    bool
	HasChanges bool
	Message    string
}

// Func is the signature of a migration step.
type Func func(ctx context.Context, env *Env) (Result, error)

// Definition is the behavior behind a catalog entry.
type Definition struct {
	Info Info
	Up   Func
	// Down is optional, a migration without it is irreversible.
	Down Func
}

func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("definition is nil")
	}
	if d.Up == nil {
		return fmt.Errorf("definition has no up function")
	}
	switch d.Info.Type {
	case TypeDatabase, TypeConfig, TypeContent:
	default:
		return fmt.Errorf("unknown migration type %q", d.Info.Type)
	}
	switch d.Info.Target {
	case TargetCore, TargetBot:
	case "":
		return fmt.Errorf("definition has no target, use %q or %q", TargetCore, TargetBot)
	default:
		return fmt.Errorf("unknown migration target %q", d.Info.Target)
	}
	return nil
}

// Database is the SQL capability given to database migrations.
type Database interface {
	HasTable(ctx context.Context, table string) (bool, error)
	HasColumn(ctx context.Context, table, column string) (bool, error)
	AddColumn(ctx context.Context, table, column, definition string) error
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// ConfigProvider reads and writes bot and server configuration.
type ConfigProvider interface {
	GetBotConfig(ctx context.Context, botID string) (*model.BotConfig, error)
	SetBotConfig(ctx context.Context, botID string, cfg *model.BotConfig) error
	MergeBotConfig(ctx context.Context, botID string, partial map[string]interface{}) (*model.BotConfig, error)
	GetServerConfig(ctx context.Context) (*model.ServerConfig, error)
	SetServerConfig(ctx context.Context, cfg *model.ServerConfig) error
}

type BotService interface {
	FindBotByID(ctx context.Context, botID string) (*model.BotConfig, error)
	GetBots(ctx context.Context) ([]*model.BotConfig, error)
}

// ScopedFS is the content capability, a virtual filesystem already scoped to
// the bot being migrated (or to the global scope for core migrations).
type ScopedFS interface {
	DirectoryListing(ctx context.Context, dir, pattern string) ([]string, error)
	ReadFile(ctx context.Context, dir, file string) ([]byte, error)
	ReadFileAsObject(ctx context.Context, dir, file string, out any) error
	UpsertFile(ctx context.Context, dir, file string, content []byte) error
	UpsertObject(ctx context.Context, dir, file string, v any) error
	FileExists(ctx context.Context, dir, file string) (bool, error)
	DeleteFile(ctx context.Context, dir, file string) error
	MoveFile(ctx context.Context, fromDir, fromFile, toDir, toFile string) error
}

// Meta describes the invocation a migration runs in.
type Meta struct {
	// BotID is empty for core migrations.
	BotID     string
	BotConfig *model.BotConfig
	DryRun    bool
	Target    Target
	Direction model.Direction
}

// Env is built fresh for every migration invocation and holds only the
// capabilities its Type needs. Migrations must not keep it after returning.
type Env struct {
	Logger logger.Logger
	Meta   Meta

	// database
	Database Database
	Storage  storage.Storage

	// config
	Config ConfigProvider
	Bots   BotService

	// content
	FS ScopedFS
}
