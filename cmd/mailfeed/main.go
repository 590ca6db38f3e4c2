package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mailfeed/internal/config"
	"mailfeed/internal/export"
	"mailfeed/internal/feed"
	"mailfeed/internal/index"
	"mailfeed/internal/mailbox"
	"mailfeed/internal/model"
	"mailfeed/internal/normalize"
	"mailfeed/internal/state"
	"mailfeed/internal/version"
	"mailfeed/internal/weblink"
)

var logPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailfeed",
		Short: "Mirror a mailbox folder into a local archive and Atom feed",
		Long:  "Incrementally sync messages from an IMAP folder into an append-only local archive and republish it as a chronologically ordered Atom feed",
		RunE:  runScan,
	}

	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to log file")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the mailbox for new messages (default)",
		RunE:  runScan,
	}

	injectCmd := &cobra.Command{
		Use:   "inject [url]",
		Short: "Add a single web link to the archive and feed",
		Args:  cobra.ExactArgs(1),
		RunE:  runInject,
	}

	regenCmd := &cobra.Command{
		Use:   "regen",
		Short: "Regenerate the feed and search index from saved state, no network",
		RunE:  runRegen,
	}

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "List the most recent archive entries",
		RunE:  runLatest,
	}

	var (
		latestLimit int
		latestJSON  bool
	)

	latestCmd.Flags().IntVar(&latestLimit, "limit", 20, "Maximum number of entries to show")
	latestCmd.Flags().BoolVar(&latestJSON, "json", false, "Output results as JSON")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search archive entries",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}

	var (
		searchLimit int
		searchJSON  bool
	)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output results as JSON")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived entries as markdown files",
		RunE:  runExport,
	}

	var exportDir string
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (required)")
	exportCmd.MarkFlagRequired("dir")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("mailfeed %s\n", version.GetFullVersion())
		},
	}

	rootCmd.AddCommand(scanCmd, injectCmd, regenCmd, latestCmd, searchCmd, exportCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateScan(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	store := state.New(cfg.OutPath, logger)
	lastUID, existing, err := store.Load()
	if err != nil {
		return err
	}

	logger.Printf("Checking for new emails (last UID: %d)", lastUID)

	client, err := mailbox.Connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	norm := normalize.New(cfg.BaseURL)
	scanner := mailbox.NewScanner(client, norm, cfg.OutPath, logger)

	fresh, newUID, err := scanner.Scan(lastUID, existing)
	if err != nil {
		return err
	}

	logger.Printf("Processed %d new emails", len(fresh))

	materializer := feed.NewMaterializer(cfg)
	merged, err := materializer.MergeAndEmit(existing, fresh)
	if err != nil {
		return err
	}

	if err := store.Save(newUID, merged); err != nil {
		return err
	}

	logger.Printf("State saved, high-water mark UID now %d", newUID)

	rebuildIndex(cfg.OutPath, merged, logger)
	return nil
}

func runInject(cmd *cobra.Command, args []string) error {
	url := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateOutput(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	store := state.New(cfg.OutPath, logger)
	lastUID, existing, err := store.Load()
	if err != nil {
		return err
	}

	norm := normalize.New(cfg.BaseURL)
	injector := weblink.New(norm, time.Duration(cfg.HTTPTimeout)*time.Second, logger)
	entry := injector.Inject(url)

	materializer := feed.NewMaterializer(cfg)
	merged, err := materializer.MergeAndEmit(existing, []model.Entry{entry})
	if err != nil {
		return err
	}

	// Manual links never touch the watermark.
	if err := store.Save(lastUID, merged); err != nil {
		return err
	}

	logger.Printf("Added link %s as %q", url, entry.Title)

	rebuildIndex(cfg.OutPath, merged, logger)
	return nil
}

func runRegen(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateOutput(); err != nil {
		return err
	}

	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	store := state.New(cfg.OutPath, logger)
	_, existing, err := store.Load()
	if err != nil {
		return err
	}

	materializer := feed.NewMaterializer(cfg)
	merged, err := materializer.MergeAndEmit(existing, nil)
	if err != nil {
		return err
	}

	logger.Printf("Regenerated feed with %d entries", len(merged))

	rebuildIndex(cfg.OutPath, merged, logger)
	return nil
}

func runLatest(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ix, err := openIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	rows, err := ix.Latest(limit)
	if err != nil {
		return fmt.Errorf("failed to list entries (run scan or regen first?): %w", err)
	}

	return index.Print(rows, jsonOutput)
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ix, err := openIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	rows, err := ix.Search(args[0], limit)
	if err != nil {
		return fmt.Errorf("failed to search entries (run scan or regen first?): %w", err)
	}

	return index.Print(rows, jsonOutput)
}

func runExport(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.OutPath == "" {
		return fmt.Errorf("OUT_PATH is required")
	}

	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	store := state.New(cfg.OutPath, logger)
	_, entries, err := store.Load()
	if err != nil {
		return err
	}

	exporter := export.New(cfg.OutPath)
	return exporter.ExportAll(entries, dir)
}

func openIndex() (*index.Index, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.OutPath == "" {
		return nil, fmt.Errorf("OUT_PATH is required")
	}

	return index.Open(cfg.OutPath)
}

func newLogger() (*log.Logger, func(), error) {
	if logPath == "" {
		return log.New(os.Stderr, "", log.LstdFlags), func() {}, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return log.New(logFile, "", log.LstdFlags), func() { logFile.Close() }, nil
}

// rebuildIndex refreshes the derived search index. The index is fully
// regenerable, so a failure here is a warning, not a run failure.
func rebuildIndex(outPath string, entries []model.Entry, logger *log.Logger) {
	ix, err := index.Open(outPath)
	if err != nil {
		logger.Printf("Warning: could not open search index: %v", err)
		return
	}
	defer ix.Close()

	if err := ix.Rebuild(entries); err != nil {
		logger.Printf("Warning: could not rebuild search index: %v", err)
	}
}
