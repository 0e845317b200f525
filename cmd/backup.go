package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AvaProtocol/bot-migrator/core/backup"
	"github.com/AvaProtocol/bot-migrator/core/config"
	"github.com/AvaProtocol/bot-migrator/pkg/logger"
	"github.com/AvaProtocol/bot-migrator/storage"
)

var (
	backupDir        string
	periodicInterval int
	dbPath           string
	restoreFile      string

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Backup studio storage",
		Long: `Backup the studio storage to a specified directory.

The backup command can run either as a one-time backup or as a periodic backup process.
Backups are stored in the format: /backup_dir/yy-mm-dd-hh-mm-ss.mmm/full-backup.db
Use --db-path to specify the storage directory to backup, default is db_path of the config.
Use --dir to specify where to store the backups, default is backup_dir of the config.
Use --interval to enable periodic backups (value in minutes, 0 means one-time backup).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd)
		},
	}

	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Restore studio storage from backup",
		Long: `Restore the studio storage from a backup file.

Use --db-path to specify the storage directory to restore to.
Use --file to specify the backup file to restore from, default is the latest backup in --dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd)
		},
	}
)

// storageFlags fills --db-path and --dir from the config file when they are
// not given.
func storageFlags() (string, string, error) {
	path, dir := dbPath, backupDir
	if path != "" && dir != "" {
		return path, dir, nil
	}

	c, err := config.NewConfig(configPath)
	if err != nil {
		return "", "", fmt.Errorf("--db-path and --dir are required without a config file: %w", err)
	}
	if path == "" {
		path = c.DbPath
	}
	if dir == "" {
		dir = c.BackupDir
	}
	if dir == "" {
		return "", "", fmt.Errorf("no backup directory, use --dir or set backup_dir")
	}
	return path, dir, nil
}

func openBackup(path, dir string) (storage.Storage, *backup.Service, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create DB directory: %w", err)
	}
	db, err := storage.NewWithPath(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, backup.NewService(logger.NewNoOpLogger(), db, dir), nil
}

func runBackup(cmd *cobra.Command) error {
	path, dir, err := storageFlags()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting backup. DB path: %s, Backup directory: %s\n", path, dir)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	db, svc, err := openBackup(path, dir)
	if err != nil {
		return err
	}
	defer db.Close()

	backupFile, err := svc.PerformBackup()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Backup completed successfully to %s\n", backupFile)

	if periodicInterval == 0 {
		return nil
	}

	fmt.Fprintf(out, "Setting up periodic backup every %d minutes\n", periodicInterval)
	if err := svc.StartPeriodicBackup(time.Duration(periodicInterval) * time.Minute); err != nil {
		return err
	}
	defer svc.StopPeriodicBackup()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

func runRestore(cmd *cobra.Command) error {
	path, dir, err := storageFlags()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	db, svc, err := openBackup(path, dir)
	if err != nil {
		return err
	}
	defer db.Close()

	file := restoreFile
	if file == "" {
		if file, err = svc.Latest(); err != nil {
			return err
		}
		if file == "" {
			return fmt.Errorf("no backup found in %s", dir)
		}
	}

	fmt.Fprintf(out, "Running restore from %s to %s\n", file, path)
	if err := svc.Restore(commandContext(cmd), file); err != nil {
		return err
	}
	fmt.Fprintf(out, "Restore completed successfully\n")
	return nil
}

func init() {
	backupCmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the storage directory")
	backupCmd.Flags().StringVar(&backupDir, "dir", "", "Directory to store backups")
	backupCmd.Flags().IntVar(&periodicInterval, "interval", 0, "Run backups periodically (minutes, 0 for one-time)")
	rootCmd.AddCommand(backupCmd)

	restoreCmd.Flags().StringVar(&dbPath, "db-path", "", "Path to the storage directory to restore to")
	restoreCmd.Flags().StringVar(&backupDir, "dir", "", "Directory holding the backups")
	restoreCmd.Flags().StringVar(&restoreFile, "file", "", "Backup file to restore from")
	rootCmd.AddCommand(restoreCmd)
}
