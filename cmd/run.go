package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/bot-migrator/studio"
)

var (
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the studio",
		Long: `Open the studio storage, run the core migrations, migrate and mount every bot,
then keep running periodic backups, the metrics endpoint and the admin repl until interrupted.

Use --config=path-to-your-config-file. default is=./config/migrator.yaml `,
		RunE: func(cmd *cobra.Command, args []string) error {
			return studio.RunWithConfig(configPath)
		},
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
}
