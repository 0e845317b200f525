// Package botconfig reads and writes bot.config.json and server.config.json
// through the ghost filesystem, with a read cache in front.
package botconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/AvaProtocol/bot-migrator/core/ghost"
	"github.com/AvaProtocol/bot-migrator/model"
	"github.com/AvaProtocol/bot-migrator/pkg/logger"
)

var ErrBotNotFound = errors.New("bot not found")

type Provider struct {
	ghost    *ghost.Ghost
	cache    *bigcache.BigCache
	validate *validator.Validate
	logger   logger.Logger
}

// NewCache builds the read cache used for bot configs.
func NewCache(ctx context.Context) (*bigcache.BigCache, error) {
	config := bigcache.DefaultConfig(10 * time.Minute)
	config.Shards = 64
	config.MaxEntriesInWindow = 1000
	config.MaxEntrySize = 1024
	config.HardMaxCacheSize = 64
	config.Verbose = false
	return bigcache.New(ctx, config)
}

// NewProvider creates a provider. cache may be nil, then every read goes to
// storage.
func NewProvider(g *ghost.Ghost, cache *bigcache.BigCache, log logger.Logger) *Provider {
	return &Provider{
		ghost:    g,
		cache:    cache,
		validate: validator.New(),
		logger:   logger.EnsureLogger(log),
	}
}

func cacheKey(botID string) string {
	return "bot:" + botID
}

func (p *Provider) GetBotConfig(ctx context.Context, botID string) (*model.BotConfig, error) {
	if p.cache != nil {
		if data, err := p.cache.Get(cacheKey(botID)); err == nil {
			cfg := &model.BotConfig{}
			if err := cfg.FromStorageData(data); err == nil {
				return cfg, nil
			}
		}
	}

	return p.load(ctx, botID)
}

// load reads the config from storage and refreshes the cache.
func (p *Provider) load(ctx context.Context, botID string) (*model.BotConfig, error) {
	data, err := p.ghost.ForBot(botID).ReadFile(ctx, "", model.BotConfigFile)
	if errors.Is(err, ghost.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBotNotFound, botID)
	}
	if err != nil {
		return nil, err
	}

	cfg := &model.BotConfig{}
	if err := cfg.FromStorageData(data); err != nil {
		return nil, err
	}
	p.remember(botID, data)
	return cfg, nil
}

// SetBotConfig validates and stores the whole config of a bot.
func (p *Provider) SetBotConfig(ctx context.Context, botID string, cfg *model.BotConfig) error {
	if cfg.ID == "" {
		cfg.ID = botID
	}
	if cfg.ID != botID {
		return fmt.Errorf("bot config id %q does not match bot %q", cfg.ID, botID)
	}
	if err := p.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid bot config for %s: %w", botID, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := p.ghost.ForBot(botID).UpsertFile(ctx, "", model.BotConfigFile, data); err != nil {
		return err
	}
	p.remember(botID, data)
	return nil
}

// MergeBotConfig overlays the top level keys of partial on the stored config
// and saves it. Nested objects and lists given in partial replace the stored
// ones. Unknown keys are rejected. The stored config is always read from
// storage, the file may have been rewritten behind the cache.
func (p *Provider) MergeBotConfig(ctx context.Context, botID string, partial map[string]interface{}) (*model.BotConfig, error) {
	cfg, err := p.load(ctx, botID)
	if err != nil {
		return nil, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      cfg,
		ZeroFields:  true,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(partial); err != nil {
		return nil, fmt.Errorf("cannot merge config of bot %s: %w", botID, err)
	}

	if err := p.SetBotConfig(ctx, botID, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Invalidate drops the cached config of a bot, for writes made directly
// through the ghost filesystem.
func (p *Provider) Invalidate(botID string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(cacheKey(botID)); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		p.logger.Debug("cannot invalidate bot config cache", "bot_id", botID, "error", err)
	}
}

func (p *Provider) remember(botID string, data []byte) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(cacheKey(botID), data); err != nil {
		p.logger.Debug("cannot cache bot config", "bot_id", botID, "error", err)
	}
}

// GetServerConfig returns the server config, empty when none was saved yet.
func (p *Provider) GetServerConfig(ctx context.Context) (*model.ServerConfig, error) {
	cfg := &model.ServerConfig{}
	err := p.ghost.Global().ReadFileAsObject(ctx, "", model.ServerConfigFile, cfg)
	if errors.Is(err, ghost.ErrFileNotFound) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Provider) SetServerConfig(ctx context.Context, cfg *model.ServerConfig) error {
	if err := p.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	return p.ghost.Global().UpsertObject(ctx, "", model.ServerConfigFile, cfg)
}
