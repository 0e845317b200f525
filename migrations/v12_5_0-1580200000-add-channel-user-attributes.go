package migrations

import (
	"context"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

const (
	channelUsersTable = "srv_channel_users"
	attributesColumn  = "attributes"
)

// AddChannelUserAttributes adds the attributes column to the channel users
// table. There is no down, dropping the column would lose user data.
var AddChannelUserAttributes = &migrator.Definition{
	Info: migrator.Info{
		Description: "Add the attributes column to srv_channel_users",
		Type:        migrator.TypeDatabase,
		Target:      migrator.TargetCore,
	},
	Up: func(ctx context.Context, env *migrator.Env) (migrator.Result, error) {
		if env.Database == nil {
			env.Logger.Warn("No SQL database configured, skipping")
			return migrator.Result{Success: true, Message: "no database"}, nil
		}

		hasTable, err := env.Database.HasTable(ctx, channelUsersTable)
		if err != nil {
			return migrator.Result{}, err
		}
		if !hasTable {
			return migrator.Result{Success: true, Message: "table does not exist yet"}, nil
		}

		hasColumn, err := env.Database.HasColumn(ctx, channelUsersTable, attributesColumn)
		if err != nil {
			return migrator.Result{}, err
		}
		if hasColumn {
			return migrator.Result{Success: true, Message: "column already exists"}, nil
		}
		if env.Meta.DryRun {
			return migrator.Result{Success: true, HasChanges: true}, nil
		}

		if err := env.Database.AddColumn(ctx, channelUsersTable, attributesColumn, "TEXT"); err != nil {
			return migrator.Result{}, err
		}
		return migrator.Result{Success: true, HasChanges: true}, nil
	},
}
