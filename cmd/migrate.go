package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

var (
	migrateBot    string
	migrateCore   bool
	migrateDown   bool
	migrateDryRun bool

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Migrate core and bots to the binary version",
		Long: `Run the pending migrations of core and every bot, or of a single bot.

Use --bot to migrate one bot, --core to only run core migrations.
Use --dry-run to see which migrations would change data without persisting anything.
Use --down to revert bots that were migrated by a newer binary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd)
		},
	}
)

func runMigrate(cmd *cobra.Command) error {
	if migrateBot != "" && migrateCore {
		return fmt.Errorf("--bot and --core cannot be used together")
	}

	s, err := openStudio(cmd)
	if err != nil {
		return err
	}
	defer s.Stop()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	var opts []migrator.RunOption
	if migrateDown {
		opts = append(opts, migrator.WithDown())
	}
	if migrateDryRun {
		opts = append(opts, migrator.WithDryRun())
	}

	if migrateBot != "" {
		report, err := s.MountBot(ctx, migrateBot, opts...)
		printReport(out, report)
		return err
	}

	var errs []error
	report, err := s.UpgradeCore(ctx, opts...)
	printReport(out, report)
	errs = append(errs, err)

	if !migrateCore {
		reports, err := s.MountAllBots(ctx, opts...)
		for _, r := range reports {
			printReport(out, r)
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func reportScope(r *migrator.Report) string {
	if r.BotID != "" {
		return "bot " + r.BotID
	}
	return "core"
}

func printReport(out io.Writer, r *migrator.Report) {
	if r == nil {
		return
	}
	if len(r.Outcomes) == 0 {
		fmt.Fprintf(out, "%s: %s\n", reportScope(r), color.GreenString("up to date"))
		return
	}

	mode := ""
	if r.DryRun {
		mode = color.YellowString(" [dry run]")
	}
	fmt.Fprintf(out, "%s: %s -> %s (%s)%s\n", reportScope(r), r.From, r.To, r.Direction, mode)

	for _, o := range r.Outcomes {
		var status string
		switch {
		case o.Failed():
			status = color.RedString("failed: %v", o.Err)
		case r.DryRun && o.Result.HasChanges:
			status = color.YellowString("would change")
		case r.DryRun:
			status = "nothing to change"
		default:
			status = color.GreenString("ok")
		}
		fmt.Fprintf(out, "  %-60s %s\n", o.File.Filename, status)
	}
}

func init() {
	migrateCmd.Flags().StringVar(&migrateBot, "bot", "", "Only migrate the bot with this id")
	migrateCmd.Flags().BoolVar(&migrateCore, "core", false, "Only run core migrations")
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Revert migrations down to the binary version")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Report what would change without persisting")
	rootCmd.AddCommand(migrateCmd)
}
