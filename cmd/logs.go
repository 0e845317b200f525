package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

var (
	logsLimit  int
	logsOutput string

	logsCmd = &cobra.Command{
		Use:   "logs [bot-id]",
		Short: "Show migration history",
		Long: `Show the migration log of a bot, newest first. Without a bot id the core log is shown.

Each entry lists the captured output of the run it records.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			botID := ""
			if len(args) == 1 {
				botID = args[0]
			}

			s, err := openStudio(cmd)
			if err != nil {
				return err
			}
			defer s.Stop()

			entries, err := s.Migrator().Logs().List(commandContext(cmd), migrator.LogScope(botID))
			if err != nil {
				return err
			}
			if logsLimit > 0 && len(entries) > logsLimit {
				entries = entries[:logsLimit]
			}

			out := cmd.OutOrStdout()
			if logsOutput == "yaml" {
				data, err := yaml.Marshal(entries)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "No migration history")
				return nil
			}
			for _, e := range entries {
				result := color.GreenString("success")
				if !e.Success {
					result = color.RedString("failed")
				}
				fmt.Fprintf(out, "%s  %s -> %s (%s) %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.InitialVersion, e.TargetVersion, e.Direction, result)
				for _, line := range e.Details {
					fmt.Fprintf(out, "    %s\n", line)
				}
			}
			return nil
		},
	}
)

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 10, "Number of entries to show, 0 for all")
	logsCmd.Flags().StringVarP(&logsOutput, "output", "o", "text", "Output format: text or yaml")
	rootCmd.AddCommand(logsCmd)
}
