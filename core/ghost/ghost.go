// Package ghost is a virtual filesystem kept in the key/value storage. Every
// file belongs to a scope, either the global scope or one bot, and is stored
// under the key ghost:<scope>:<path>.
package ghost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/AvaProtocol/bot-migrator/storage"
	"github.com/AvaProtocol/bot-migrator/storage/schema"
)

const GlobalScope = schema.GlobalScope

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidPath  = errors.New("invalid file path")
)

// BotScope is the scope holding the files of one bot.
func BotScope(botID string) string {
	return schema.BotScope(botID)
}

type Ghost struct {
	db storage.Storage
}

func New(db storage.Storage) *Ghost {
	return &Ghost{db: db}
}

func (g *Ghost) Scope(scope string) *ScopedFS {
	return &ScopedFS{db: g.db, scope: scope}
}

func (g *Ghost) ForBot(botID string) *ScopedFS {
	return g.Scope(BotScope(botID))
}

func (g *Ghost) Global() *ScopedFS {
	return g.Scope(GlobalScope)
}

// BotIDs lists the bots that own a file named marker at the root of their
// scope, sorted.
func (g *Ghost) BotIDs(ctx context.Context, marker string) ([]string, error) {
	keys, err := g.db.ListKeys(schema.GhostPrefix + schema.BotsScope)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, key := range keys {
		if id, ok := schema.BotIDFromKey(key, marker); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ScopedFS is the view of one scope.
type ScopedFS struct {
	db    storage.Storage
	scope string
}

func (s *ScopedFS) Scope() string {
	return s.scope
}

func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (s *ScopedFS) filePath(dir, file string) (string, error) {
	if strings.TrimSpace(file) == "" {
		return "", fmt.Errorf("%w: empty file name", ErrInvalidPath)
	}
	p := cleanPath(path.Join(dir, file))
	if p == "" {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidPath, dir, file)
	}
	return p, nil
}

func (s *ScopedFS) key(p string) []byte {
	return schema.GhostFileKey(s.scope, p)
}

// DirectoryListing returns the paths under dir, relative to it, matching
// pattern. A "*" never crosses a slash, "**" does, and a leading "**/" also
// matches files directly in dir. An empty pattern lists everything.
func (s *ScopedFS) DirectoryListing(ctx context.Context, dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "**"
	}
	matchers := []glob.Glob{}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	matchers = append(matchers, g)
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		if g, err := glob.Compile(rest, '/'); err == nil {
			matchers = append(matchers, g)
		}
	}

	prefix := schema.GhostScopePrefix(s.scope)
	if d := cleanPath(dir); d != "" {
		prefix += d + "/"
	}

	keys, err := s.db.ListKeys(prefix)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		for _, m := range matchers {
			if m.Match(rel) {
				out = append(out, rel)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *ScopedFS) ReadFile(ctx context.Context, dir, file string) ([]byte, error) {
	p, err := s.filePath(dir, file)
	if err != nil {
		return nil, err
	}

	data, err := s.db.GetKey(s.key(p))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s in %s", ErrFileNotFound, p, s.scope)
	}
	return data, err
}

// ReadFileAsObject decodes a JSON file into out.
func (s *ScopedFS) ReadFileAsObject(ctx context.Context, dir, file string, out any) error {
	data, err := s.ReadFile(ctx, dir, file)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("cannot decode %s/%s: %w", dir, file, err)
	}
	return nil
}

func (s *ScopedFS) UpsertFile(ctx context.Context, dir, file string, content []byte) error {
	p, err := s.filePath(dir, file)
	if err != nil {
		return err
	}
	return s.db.Set(s.key(p), content)
}

// UpsertObject writes v as indented JSON.
func (s *ScopedFS) UpsertObject(ctx context.Context, dir, file string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return s.UpsertFile(ctx, dir, file, data)
}

func (s *ScopedFS) FileExists(ctx context.Context, dir, file string) (bool, error) {
	p, err := s.filePath(dir, file)
	if err != nil {
		return false, err
	}
	return s.db.Exist(s.key(p))
}

func (s *ScopedFS) DeleteFile(ctx context.Context, dir, file string) error {
	p, err := s.filePath(dir, file)
	if err != nil {
		return err
	}
	return s.db.Delete(s.key(p))
}

// MoveFile renames a file inside the scope.
func (s *ScopedFS) MoveFile(ctx context.Context, fromDir, fromFile, toDir, toFile string) error {
	src, err := s.filePath(fromDir, fromFile)
	if err != nil {
		return err
	}
	dst, err := s.filePath(toDir, toFile)
	if err != nil {
		return err
	}

	err = s.db.Move(s.key(src), s.key(dst))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s in %s", ErrFileNotFound, src, s.scope)
	}
	return err
}
