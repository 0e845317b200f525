package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
	"github.com/AvaProtocol/bot-migrator/version"
)

var (
	newMigrationDir     string
	newMigrationVersion string
	newMigrationType    string
	newMigrationTarget  string

	createMigrationCmd = &cobra.Command{
		Use:   "create-migration <title>",
		Short: "Create a new migration file",
		Long: `Create a correctly named migration file with an empty definition.

The file is named v<major>_<minor>_<patch>-<timestamp>-<title>.go, the version being
the one the migration upgrades to. Register the generated definition in
migrations/migrations.go afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := createMigration(newMigrationDir, args[0], newMigrationVersion,
				migrator.Type(newMigrationType), migrator.Target(newMigrationTarget), time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created migration file: %s\n", file)
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "1. Implement Up, and Down when the change can be reverted")
			fmt.Fprintln(out, "2. Add the definition to the Migrations table in migrations/migrations.go")
			fmt.Fprintln(out, "3. Test it with a dry run: bot-migrator migrate --dry-run")
			return nil
		},
	}
)

var migrationTemplate = template.Must(template.New("migration").Parse(`package migrations

import (
	"context"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

// {{.Name}} {{.Description}}.
var {{.Name}} = &migrator.Definition{
	Info: migrator.Info{
		Description: "{{.Description}}",
		Type:        migrator.{{.TypeConst}},
		Target:      migrator.{{.TargetConst}},
	},
	Up: func(ctx context.Context, env *migrator.Env) (migrator.Result, error) {
		return migrator.Result{Success: true}, nil
	},
}
`))

type migrationTemplateData struct {
	Name        string
	Description string
	TypeConst   string
	TargetConst string
}

// createMigration writes a new migration skeleton into dir and returns its
// path.
func createMigration(dir, title, ver string, typ migrator.Type, target migrator.Target, now time.Time) (string, error) {
	slug := sanitizeTitle(title)
	if slug == "" {
		return "", fmt.Errorf("title %q has no usable characters", title)
	}

	def := migrator.Definition{
		Info: migrator.Info{Description: title, Type: typ, Target: target},
		Up:   func(context.Context, *migrator.Env) (migrator.Result, error) { return migrator.Result{}, nil },
	}
	if err := def.Validate(); err != nil {
		return "", err
	}

	name, err := migrationFilename(ver, now.Unix(), slug)
	if err != nil {
		return "", err
	}
	// the generated name must be accepted by the catalog
	if _, err := migrator.ParseFilename(name); err != nil {
		return "", err
	}

	data := migrationTemplateData{
		Name:        definitionName(slug),
		Description: strings.ReplaceAll(title, `"`, `'`),
		TypeConst:   "Type" + exportName(string(typ)),
		TargetConst: "Target" + exportName(string(target)),
	}

	var buf bytes.Buffer
	if err := migrationTemplate.Execute(&buf, data); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	file := filepath.Join(dir, name)
	if _, err := os.Stat(file); err == nil {
		return "", fmt.Errorf("migration %s already exists", file)
	}
	if err := os.WriteFile(file, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("error creating migration file: %w", err)
	}
	return file, nil
}

// migrationFilename builds v<major>_<minor>_<patch>-<timestamp>-<slug>.go.
// An empty version means the version of the binary.
func migrationFilename(ver string, timestamp int64, slug string) (string, error) {
	if ver == "" {
		ver = version.Get()
	}
	v, err := goversion.NewSemver(ver)
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", ver, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return "", fmt.Errorf("version %q cannot carry a prerelease or metadata", ver)
	}

	seg := v.Segments()
	return fmt.Sprintf("v%d_%d_%d-%d-%s.go", seg[0], seg[1], seg[2], timestamp, slug), nil
}

func sanitizeTitle(title string) string {
	// Convert to lowercase and replace spaces with hyphens
	title = strings.ToLower(strings.TrimSpace(title))
	title = strings.ReplaceAll(title, " ", "-")
	title = strings.ReplaceAll(title, "_", "-")
	// Remove any non-alphanumeric characters except hyphens
	title = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, title)
	return strings.Trim(title, "-")
}

// definitionName turns add-greeting-flag into AddGreetingFlag.
func definitionName(slug string) string {
	var b strings.Builder
	for _, part := range strings.Split(slug, "-") {
		b.WriteString(exportName(part))
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "Migration" + name
	}
	return name
}

func exportName(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func init() {
	createMigrationCmd.Flags().StringVar(&newMigrationDir, "dir", "migrations", "Directory of the migration catalog")
	createMigrationCmd.Flags().StringVar(&newMigrationVersion, "version", "", "Version the migration upgrades to, default is the binary version")
	createMigrationCmd.Flags().StringVar(&newMigrationType, "type", string(migrator.TypeConfig), "Migration type: database, config or content")
	createMigrationCmd.Flags().StringVar(&newMigrationTarget, "target", string(migrator.TargetBot), "Migration target: bot or core")
	rootCmd.AddCommand(createMigrationCmd)
}
