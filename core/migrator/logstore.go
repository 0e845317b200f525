package migrator

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/AvaProtocol/bot-migrator/core/ghost"
	"github.com/AvaProtocol/bot-migrator/model"
)

const (
	logDir  = "migrations"
	logFile = "log.json"
)

// LogStore keeps the append-only history of migration batches, one JSON
// array per scope at migrations/log.json.
type LogStore struct {
	ghost *ghost.Ghost
	mu    sync.Mutex
}

func NewLogStore(g *ghost.Ghost) *LogStore {
	return &LogStore{ghost: g}
}

func (s *LogStore) read(ctx context.Context, scope string) ([]*model.MigrationLogEntry, error) {
	var entries []*model.MigrationLogEntry
	err := s.ghost.Scope(scope).ReadFileAsObject(ctx, logDir, logFile, &entries)
	if errors.Is(err, ghost.ErrFileNotFound) {
		return nil, nil
	}
	return entries, err
}

// Append adds entry at the end of the scope's history.
func (s *LogStore) Append(ctx context.Context, scope string, entry *model.MigrationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx, scope)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	return s.ghost.Scope(scope).UpsertObject(ctx, logDir, logFile, entries)
}

// List returns the scope's history, most recent first.
func (s *LogStore) List(ctx context.Context, scope string) ([]*model.MigrationLogEntry, error) {
	s.mu.Lock()
	entries, err := s.read(ctx, scope)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Latest returns the most recent entry, or nil when the scope was never
// migrated.
func (s *LogStore) Latest(ctx context.Context, scope string) (*model.MigrationLogEntry, error) {
	entries, err := s.List(ctx, scope)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[0], nil
}
