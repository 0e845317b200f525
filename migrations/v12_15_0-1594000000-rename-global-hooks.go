package migrations

import (
	"context"
	"path"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

// hook folders renamed in 12.15
var renamedHooks = map[string]string{
	"hooks/before_incoming_middleware": "hooks/before_incoming",
	"hooks/after_incoming_middleware":  "hooks/after_incoming",
}

// RenameGlobalHooks moves the global hook scripts to their new folders.
var RenameGlobalHooks = &migrator.Definition{
	Info: migrator.Info{
		Description: "Rename global hook folders",
		Type:        migrator.TypeContent,
		Target:      migrator.TargetCore,
	},
	Up: func(ctx context.Context, env *migrator.Env) (migrator.Result, error) {
		return renameHooks(ctx, env, false)
	},
	Down: func(ctx context.Context, env *migrator.Env) (migrator.Result, error) {
		return renameHooks(ctx, env, true)
	},
}

func renameHooks(ctx context.Context, env *migrator.Env, reverse bool) (migrator.Result, error) {
	changed := false
	for oldDir, newDir := range renamedHooks {
		from, to := oldDir, newDir
		if reverse {
			from, to = newDir, oldDir
		}

		files, err := env.FS.DirectoryListing(ctx, from, "*.js")
		if err != nil {
			return migrator.Result{}, err
		}
		if len(files) == 0 {
			continue
		}
		changed = true
		if env.Meta.DryRun {
			continue
		}

		for _, file := range files {
			if err := env.FS.MoveFile(ctx, from, file, to, path.Base(file)); err != nil {
				return migrator.Result{}, err
			}
		}
		env.Logger.Info("Moved hooks", "count", len(files), "to", to)
	}
	return migrator.Result{Success: true, HasChanges: changed}, nil
}
