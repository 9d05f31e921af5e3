package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/standards-sync/internal/logging"
	"github.com/JakeFAU/standards-sync/internal/metrics"
	"github.com/JakeFAU/standards-sync/internal/pdf"
)

// newIngestCmd creates the 'ingest' subcommand: re-chunk and re-index every
// PDF already on disk without touching the network or the manifest. Useful
// after changing chunk sizing or switching gateway backends.
func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Re-chunks and re-indexes the PDFs already downloaded",
		RunE:  runIngestCommand,
	}

	cmd.Flags().String("outdir", "", "directory of PDFs to ingest (default from config)")

	return cmd
}

func runIngestCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSyncConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := pdf.CheckAvailable(); err != nil {
		return fmt.Errorf("%w\n%s", err, pdf.InstallInstructions())
	}

	metrics.Init()

	ctx := cmd.Context()

	indexer, closeIndexer, err := buildIndexer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIndexer()

	ingestor := buildIngestor(cfg, indexer, logger)

	entries, err := os.ReadDir(cfg.Sync.OutDir)
	if err != nil {
		return fmt.Errorf("read pdf dir %s: %w", cfg.Sync.OutDir, err)
	}

	var files, chunks, failed int
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		files++
		path := filepath.Join(cfg.Sync.OutDir, entry.Name())
		n, err := ingestor.IngestFile(ctx, path)
		if err != nil {
			failed++
			logger.Error("ingest failed", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		chunks += n
	}

	logger.Info("ingest complete",
		zap.Int("files", files),
		zap.Int("chunks", chunks),
		zap.Int("failed", failed),
	)
	return nil
}
