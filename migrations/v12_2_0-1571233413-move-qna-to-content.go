package migrations

import (
	"context"
	"path"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

const (
	legacyQnaDir = "qna"
	qnaDir       = "content/qna"
)

// MoveQnaToContent moves the Q&A items of a bot under the content folder,
// where every other content element lives since 12.2.
var MoveQnaToContent = &migrator.Definition{
	Info: migrator.Info{
		Description: "Move Q&A items from qna/ to content/qna/",
		Type:        migrator.TypeContent,
		Target:      migrator.TargetBot,
	},
	Up: func(ctx context.Context, env *migrator.Env) (migrator.Result, error) {
		return moveDir(ctx, env, legacyQnaDir, qnaDir)
	},
	Down: func(ctx context.Context, env *migrator.Env) (migrator.Result, error) {
		return moveDir(ctx, env, qnaDir, legacyQnaDir)
	},
}

func moveDir(ctx context.Context, env *migrator.Env, from, to string) (migrator.Result, error) {
	files, err := env.FS.DirectoryListing(ctx, from, "**/*.json")
	if err != nil {
		return migrator.Result{}, err
	}
	if len(files) == 0 || env.Meta.DryRun {
		return migrator.Result{Success: true, HasChanges: len(files) > 0}, nil
	}

	for _, file := range files {
		dir, name := path.Split(file)
		if err := env.FS.MoveFile(ctx, path.Join(from, dir), name, path.Join(to, dir), name); err != nil {
			return migrator.Result{}, err
		}
	}
	env.Logger.Info("Moved Q&A items", "count", len(files), "from", from, "to", to)
	return migrator.Result{Success: true, HasChanges: true}, nil
}
