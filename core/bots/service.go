package bots

import (
	"context"
	"errors"
	"fmt"

	"github.com/AvaProtocol/bot-migrator/core/botconfig"
	"github.com/AvaProtocol/bot-migrator/core/ghost"
	"github.com/AvaProtocol/bot-migrator/model"
	"github.com/AvaProtocol/bot-migrator/pkg/logger"
)

var (
	ErrBotExists   = errors.New("bot already exists")
	ErrBotNotFound = botconfig.ErrBotNotFound
)

// Service discovers bots from the bot.config.json files in the ghost
// filesystem.
type Service struct {
	ghost  *ghost.Ghost
	config *botconfig.Provider
	logger logger.Logger
}

func NewService(g *ghost.Ghost, config *botconfig.Provider, log logger.Logger) *Service {
	return &Service{
		ghost:  g,
		config: config,
		logger: logger.EnsureLogger(log),
	}
}

func (s *Service) FindBotByID(ctx context.Context, botID string) (*model.BotConfig, error) {
	return s.config.GetBotConfig(ctx, botID)
}

// GetBots returns every bot sorted by id. A bot whose config cannot be read
// is logged and skipped.
func (s *Service) GetBots(ctx context.Context) ([]*model.BotConfig, error) {
	ids, err := s.ghost.BotIDs(ctx, model.BotConfigFile)
	if err != nil {
		return nil, err
	}

	bots := make([]*model.BotConfig, 0, len(ids))
	for _, id := range ids {
		cfg, err := s.config.GetBotConfig(ctx, id)
		if err != nil {
			s.logger.Warn("Skipping bot with unreadable config", "bot_id", id, "error", err)
			continue
		}
		bots = append(bots, cfg)
	}
	return bots, nil
}

// CreateBot stores the config of a new bot.
func (s *Service) CreateBot(ctx context.Context, cfg *model.BotConfig) error {
	exists, err := s.ghost.ForBot(cfg.ID).FileExists(ctx, "", model.BotConfigFile)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBotExists, cfg.ID)
	}
	return s.config.SetBotConfig(ctx, cfg.ID, cfg)
}
