package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AvaProtocol/bot-migrator/core/config"
	"github.com/AvaProtocol/bot-migrator/studio"
)

// rootCmd represents the base command when called without any subcommands
var (
	configPath = "./config/migrator.yaml"
	rootCmd    = &cobra.Command{
		Use:   "bot-migrator",
		Short: "Bot Studio migration tool",
		Long: `Keep bot and server data of a Bot Studio at the version of this binary.

Such as "bot-migrator run" to mount every bot, or "bot-migrator migrate --bot <id> --dry-run"
to see what a single bot would go through.
`,
		SilenceUsage: true,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/migrator.yaml", "Path to config file")
}

// openStudio loads the config file and opens the studio storage without
// migrating anything. Callers must Stop the studio.
func openStudio(cmd *cobra.Command) (*studio.Studio, error) {
	c, err := config.NewConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	s := studio.New(c)
	if err := s.Open(commandContext(cmd)); err != nil {
		return nil, err
	}
	return s, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
