package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/allegro/bigcache/v3"

	"github.com/AvaProtocol/bot-migrator/model"
	"github.com/AvaProtocol/bot-migrator/storage"
)

// TestMemDB opens an in-memory storage that is closed with the test.
func TestMemDB(t testing.TB) storage.Storage {
	db, err := storage.New(&storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("cannot open in-memory storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func GetLogger() sdklogging.Logger {
	logger, err := sdklogging.NewZapLogger("development")
	if err != nil {
		panic(err)
	}
	return logger
}

func GetDefaultCache() *bigcache.BigCache {
	config := bigcache.Config{
		// number of shards (must be a power of 2)
		Shards:             16,
		LifeWindow:         10 * time.Minute,
		CleanWindow:        5 * time.Minute,
		MaxEntriesInWindow: 1000,
		MaxEntrySize:       500,
		Verbose:            false,
		HardMaxCacheSize:   16,
	}
	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		panic(fmt.Errorf("error get default cache for test"))
	}
	return cache
}

// TestBot returns a minimal valid bot config at the given version.
func TestBot(id, version string) *model.BotConfig {
	return &model.BotConfig{
		ID:              id,
		Name:            "Bot " + id,
		Version:         version,
		DefaultLanguage: "en",
		Languages:       []string{"en"},
	}
}
