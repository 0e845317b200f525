package model

import (
	"encoding/json"
	"fmt"
)

const (
	// BotConfigFile is the name of the bot configuration document at the
	// root of each bot's scope.
	BotConfigFile = "bot.config.json"

	// ServerConfigFile holds the server wide settings in the global scope.
	ServerConfigFile = "server.config.json"
)

type NLUConfig struct {
	ConfidenceThreshold float64 `json:"confidenceThreshold,omitempty" mapstructure:"confidenceThreshold" validate:"gte=0,lte=1"`
}

// BotConfig is the persisted configuration of a single bot. Version records
// the schema version the bot's files were last migrated to.
type BotConfig struct {
	ID              string                 `json:"id" mapstructure:"id" validate:"required"`
	Name            string                 `json:"name,omitempty" mapstructure:"name"`
	Version         string                 `json:"version,omitempty" mapstructure:"version" validate:"omitempty,semver"`
	DefaultLanguage string                 `json:"defaultLanguage,omitempty" mapstructure:"defaultLanguage"`
	Languages       []string               `json:"languages,omitempty" mapstructure:"languages"`
	Disabled        bool                   `json:"disabled,omitempty" mapstructure:"disabled"`
	NLU             *NLUConfig             `json:"nlu,omitempty" mapstructure:"nlu"`
	Attributes      map[string]interface{} `json:"attributes,omitempty" mapstructure:"attributes"`
}

// ServerConfig is the global configuration document. Version is the schema
// version core migrations were last applied for.
type ServerConfig struct {
	Version string `json:"version,omitempty" mapstructure:"version" validate:"omitempty,semver"`
}

// Return a compact json ready to persist to storage
func (c *BotConfig) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

func (c *BotConfig) FromStorageData(body []byte) error {
	if err := json.Unmarshal(body, c); err != nil {
		return fmt.Errorf("invalid bot config: %w", err)
	}
	return nil
}

// HasLanguage reports whether lang is one of the bot's configured languages.
func (c *BotConfig) HasLanguage(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
