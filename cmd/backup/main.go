package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"luminexus/internal/config"
	"luminexus/internal/logger"
	"luminexus/internal/repository"
	"luminexus/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "backup",
		Short: "Export and import Luminexus players and progress",
		Long: `Luminexus backup tool.

Storage is selected by the server configuration (config.yaml or
LUMINEXUS_* environment variables), e.g. LUMINEXUS_STORAGE_TYPE=sql with
LUMINEXUS_DATABASE_TYPE=sqlite and DB_PATH=./luminexus.db.`,
		SilenceUsage: true,
	}
	root.AddCommand(newExportCmd(), newImportCmd())
	return root
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all players to a JSON file",
		Example: `  backup export
  backup export --output backups/luminexus.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackupService(cmd.Context(), func(svc *service.BackupService, log *logger.Logger) error {
				return runExport(cmd.Context(), svc, log, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		input     string
		clearData bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import players from a JSON file",
		Example: `  # merge with existing data
  backup import --input backup.json

  # replace all data
  backup import --input backup.json --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file: %w", err)
			}
			if clearData && !yes && !confirm(cmd, "WARNING: This will delete all existing data. Type 'yes' to confirm: ") {
				fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
				return nil
			}
			return withBackupService(cmd.Context(), func(svc *service.BackupService, log *logger.Logger) error {
				return runImport(cmd.Context(), svc, log, input, clearData)
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file path")
	cmd.Flags().BoolVar(&clearData, "clear", false, "clear existing data before import (destructive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt for --clear")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func withBackupService(ctx context.Context, fn func(*service.BackupService, *logger.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	storage, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer storage.Close()

	svc := service.NewBackupService(
		repository.NewPlayerRepository(storage.KV),
		repository.NewProgressRepository(storage.KV),
		storage.Type,
		log,
	)
	return fn(svc, log)
}

func runExport(ctx context.Context, svc *service.BackupService, log *logger.Logger, outputPath string) error {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := svc.Export(ctx, file)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err == nil {
		log.Info("Export complete", "path", outputPath, "players", len(backup.Players), "bytes", info.Size())
	}
	return nil
}

func runImport(ctx context.Context, svc *service.BackupService, log *logger.Logger, inputPath string, clearData bool) error {
	if clearData {
		if err := svc.Clear(ctx); err != nil {
			return err
		}
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	stats, err := svc.Import(ctx, file)
	if err != nil {
		return err
	}
	log.Info("Import complete", "path", inputPath, "profiles", stats.Profiles, "progress", stats.Progress, "quarantined", stats.Quarantined)
	return nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.TrimSpace(answer) == "yes"
}
