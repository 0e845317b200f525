package migrations

import (
	"context"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

const defaultConfidenceThreshold = 0.5

// AddNLUConfidenceThreshold gives bots created before NLU settings existed
// the default confidence threshold.
var AddNLUConfidenceThreshold = &migrator.Definition{
	Info: migrator.Info{
		Description: "Add the NLU confidence threshold to bot configs",
		Type:        migrator.TypeConfig,
		Target:      migrator.TargetBot,
	},
	Up: func(ctx context.Context, env *migrator.Env) (migrator.Result, error) {
		cfg := env.Meta.BotConfig
		if cfg.NLU != nil && cfg.NLU.ConfidenceThreshold > 0 {
			return migrator.Result{Success: true, Message: "threshold already set"}, nil
		}
		if env.Meta.DryRun {
			return migrator.Result{Success: true, HasChanges: true}, nil
		}

		_, err := env.Config.MergeBotConfig(ctx, env.Meta.BotID, map[string]interface{}{
			"nlu": map[string]interface{}{"confidenceThreshold": defaultConfidenceThreshold},
		})
		if err != nil {
			return migrator.Result{}, err
		}
		env.Logger.Info("NLU confidence threshold set", "threshold", defaultConfidenceThreshold)
		return migrator.Result{Success: true, HasChanges: true}, nil
	},
	Down: func(ctx context.Context, env *migrator.Env) (migrator.Result, error) {
		if env.Meta.BotConfig.NLU == nil {
			return migrator.Result{Success: true}, nil
		}
		if env.Meta.DryRun {
			return migrator.Result{Success: true, HasChanges: true}, nil
		}

		cfg, err := env.Config.GetBotConfig(ctx, env.Meta.BotID)
		if err != nil {
			return migrator.Result{}, err
		}
		cfg.NLU = nil
		if err := env.Config.SetBotConfig(ctx, env.Meta.BotID, cfg); err != nil {
			return migrator.Result{}, err
		}
		return migrator.Result{Success: true, HasChanges: true}, nil
	},
}
