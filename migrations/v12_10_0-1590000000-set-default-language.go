package migrations

import (
	"context"

	"github.com/samber/lo"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

const fallbackLanguage = "en"

// SetDefaultLanguage makes sure every bot has a default language and that it
// is one of its languages.
var SetDefaultLanguage = &migrator.Definition{
	Info: migrator.Info{
		Description: "Set a default language on bots without one",
		Type:        migrator.TypeConfig,
		Target:      migrator.TargetBot,
	},
	Up: func(ctx context.Context, env *migrator.Env) (migrator.Result, error) {
		cfg, err := env.Config.GetBotConfig(ctx, env.Meta.BotID)
		if err != nil {
			return migrator.Result{}, err
		}

		lang := cfg.DefaultLanguage
		if lang == "" {
			lang = fallbackLanguage
			if len(cfg.Languages) > 0 {
				lang = cfg.Languages[0]
			}
		}
		languages := lo.Uniq(append([]string{lang}, cfg.Languages...))

		if lang == cfg.DefaultLanguage && len(languages) == len(cfg.Languages) {
			return migrator.Result{Success: true}, nil
		}
		if env.Meta.DryRun {
			return migrator.Result{Success: true, HasChanges: true}, nil
		}

		_, err = env.Config.MergeBotConfig(ctx, env.Meta.BotID, map[string]interface{}{
			"defaultLanguage": lang,
			"languages":       languages,
		})
		if err != nil {
			return migrator.Result{}, err
		}
		env.Logger.Info("Default language set", "language", lang)
		return migrator.Result{Success: true, HasChanges: true}, nil
	},
}
