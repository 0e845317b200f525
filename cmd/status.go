package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
	"github.com/AvaProtocol/bot-migrator/model"
	"github.com/AvaProtocol/bot-migrator/studio"
)

var (
	statusOutput string

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Display migration status",
		Long: `Display the recorded version of core and every bot, the migrations still pending
for each of them and the outcome of their last migration run.

Use --output yaml for a machine readable report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if statusOutput != "text" && statusOutput != "yaml" {
				return fmt.Errorf("unknown output format %q, use text or yaml", statusOutput)
			}

			s, err := openStudio(cmd)
			if err != nil {
				return err
			}
			defer s.Stop()

			report, err := collectStatus(commandContext(cmd), s)
			if err != nil {
				return err
			}

			if statusOutput == "yaml" {
				data, err := yaml.Marshal(report)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			printStatus(cmd.OutOrStdout(), report)
			return nil
		},
	}
)

type scopeStatus struct {
	Scope   string                   `yaml:"scope"`
	Version string                   `yaml:"version"`
	Pending []string                 `yaml:"pending"`
	LastRun *model.MigrationLogEntry `yaml:"last_run,omitempty"`
}

type statusReport struct {
	Version string        `yaml:"version"`
	Core    scopeStatus   `yaml:"core"`
	Bots    []scopeStatus `yaml:"bots"`
}

func collectStatus(ctx context.Context, s *studio.Studio) (*statusReport, error) {
	m := s.Migrator()
	report := &statusReport{Version: m.TargetVersion(), Bots: []scopeStatus{}}

	server, err := s.BotConfig().GetServerConfig(ctx)
	if err != nil {
		return nil, err
	}
	if report.Core, err = scopeStatusOf(ctx, m, migrator.TargetCore, "", server.Version); err != nil {
		return nil, err
	}

	bots, err := s.Bots().GetBots(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range bots {
		st, err := scopeStatusOf(ctx, m, migrator.TargetBot, b.ID, b.Version)
		if err != nil {
			return nil, fmt.Errorf("bot %s: %w", b.ID, err)
		}
		report.Bots = append(report.Bots, st)
	}
	return report, nil
}

func scopeStatusOf(ctx context.Context, m *migrator.Migrator, target migrator.Target, botID, current string) (scopeStatus, error) {
	st := scopeStatus{Scope: "core", Version: current, Pending: []string{}}
	if botID != "" {
		st.Scope = botID
	}

	// nothing recorded yet, the next run only stamps the version
	if current != "" {
		files, err := m.Pending(ctx, target, current, false)
		if err != nil {
			return st, err
		}
		for _, f := range files {
			st.Pending = append(st.Pending, f.Filename)
		}
	}

	last, err := m.Logs().Latest(ctx, migrator.LogScope(botID))
	if err != nil {
		return st, err
	}
	st.LastRun = last
	return st, nil
}

func printStatus(out io.Writer, report *statusReport) {
	bold := color.New(color.Bold)
	bold.Fprintf(out, "Migration status (binary version %s)\n\n", report.Version)

	printScopeStatus(out, report.Core)
	for _, b := range report.Bots {
		printScopeStatus(out, b)
	}
	if len(report.Bots) == 0 {
		fmt.Fprintln(out, "No bots found")
	}
}

func printScopeStatus(out io.Writer, st scopeStatus) {
	version := st.Version
	if version == "" {
		version = "none"
	}

	state := color.GreenString("up to date")
	if len(st.Pending) > 0 {
		state = color.YellowString("%d pending", len(st.Pending))
	}
	fmt.Fprintf(out, "%-20s %-10s %s\n", st.Scope, version, state)

	for _, f := range st.Pending {
		fmt.Fprintf(out, "    %s\n", f)
	}
	if st.LastRun != nil {
		result := color.GreenString("success")
		if !st.LastRun.Success {
			result = color.RedString("failed")
		}
		fmt.Fprintf(out, "    last run %s: %s -> %s %s\n",
			st.LastRun.CreatedAt.Format("2006-01-02 15:04:05"), st.LastRun.InitialVersion, st.LastRun.TargetVersion, result)
	}
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "Output format: text or yaml")
	rootCmd.AddCommand(statusCmd)
}
