package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AvaProtocol/bot-migrator/migrations"
	"github.com/AvaProtocol/bot-migrator/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the binary version and its migration catalog",
	Long: `Show the version of the binary with its commit.

Bots and core are migrated to this version on start. The command also prints
how many migrations are embedded in the binary and the newest of them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", version.Get(), version.Commit())

		files, err := migrations.Source().List(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("cannot read embedded migrations: %w", err)
		}
		if len(files) == 0 {
			fmt.Fprintln(out, "No migrations embedded")
			return nil
		}
		latest := files[len(files)-1]
		fmt.Fprintf(out, "%d migrations, newest %s (version %s)\n", len(files), latest.Filename, latest.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
