package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"salvage/internal/config"
	"salvage/internal/engine"
	"salvage/internal/event"
	"salvage/internal/filter"
	"salvage/internal/report"
	"salvage/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// flags collects everything the command line can set. Config-file
// defaults fill in whatever the user left untouched.
type flags struct {
	mode           string
	workers        int
	retries        int
	fileTimeout    string
	maxSizeStr     string
	excludeExts    string
	bwLimitStr     string
	granularityStr string
	noDateFolders  bool
	noCategories   bool
	sourcePrefix   bool
	topFirst       bool
	noDedup        bool
	removeEmpty    bool
	includeHidden  bool
	smartFilter    bool
	resume         bool
	preserveTimes  bool
	quiet          bool
	verbose        bool
	logFile        string
	reportDir      string
	showVersion    bool
}

//nolint:gocyclo // main CLI entry point orchestrates all flag parsing and mode selection
func run() int {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "salvage [flags] <source> <destination>",
		Short: "Rescue files from a failing volume: scan, deduplicate, organize, copy",
		Args: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				return nil
			}
			mode, err := config.ParseMode(f.mode)
			if err != nil {
				return err
			}
			if mode == config.AnalyzeOnly {
				return cobra.MinimumNArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				fmt.Fprintf(os.Stdout, "salvage %s\n", version)
				return nil
			}
			return runRescue(cmd, &f, args)
		},
	}

	rootCmd.Flags().BoolVar(&f.showVersion, "version", false, "print version and exit")
	rootCmd.Flags().StringVarP(&f.mode, "mode", "m", "saver", "run mode: saver, cleanup, dedup")
	rootCmd.Flags().
		IntVarP(&f.workers, "workers", "n", 0, "number of copy workers (default: min(NumCPU, 8))")
	rootCmd.Flags().IntVar(&f.retries, "retries", 2, "retry attempts per failed file")
	rootCmd.Flags().
		StringVar(&f.fileTimeout, "file-timeout", "5m", "abandon a single file after this long")
	rootCmd.Flags().
		StringVar(&f.maxSizeStr, "max-size", "", "skip files larger than SIZE (e.g. 1G, 500M)")
	rootCmd.Flags().
		StringVar(&f.excludeExts, "exclude", "", "comma-separated extensions to skip (e.g. tmp,log,bak)")
	rootCmd.Flags().StringVar(&f.bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	rootCmd.Flags().
		StringVar(&f.granularityStr, "date-granularity", "month", "date folder depth: year or month")
	rootCmd.Flags().BoolVar(&f.noDateFolders, "no-date-folders", false, "do not group by year")
	rootCmd.Flags().
		BoolVar(&f.noCategories, "no-categories", false, "do not group by file category")
	rootCmd.Flags().
		BoolVar(&f.sourcePrefix, "source-prefix", false, "add a from_<folder> segment per source top folder")
	rootCmd.Flags().
		BoolVar(&f.topFirst, "top-first", false, "place from_<folder> before the category segment")
	rootCmd.Flags().BoolVar(&f.noDedup, "no-dedup", false, "copy duplicates instead of skipping them")
	rootCmd.Flags().
		BoolVar(&f.removeEmpty, "remove-empty-dirs", false, "remove emptied source directories afterwards")
	rootCmd.Flags().BoolVar(&f.includeHidden, "hidden", false, "copy hidden files too")
	rootCmd.Flags().
		BoolVar(&f.smartFilter, "smart-filter", true, "skip OS-internal directories ($RECYCLE.BIN, node_modules, ...)")
	rootCmd.Flags().BoolVar(&f.resume, "resume", false, "resume an interrupted run of the same source/destination")
	rootCmd.Flags().BoolVar(&f.preserveTimes, "preserve-times", true, "keep source modification times on copies")
	rootCmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().StringVar(&f.logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().
		StringVar(&f.reportDir, "report-dir", "", "write per-run logs (actions, duplicates, ...) to DIR")

	rootCmd.AddCommand(analyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func runRescue(cmd *cobra.Command, f *flags, args []string) error {
	cfg, err := buildConfig(cmd, f, args)
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogging(f)
	if err != nil {
		return err
	}
	defer closeLog()

	// The sink slice is filled in below, before Start; events only
	// flow once the run begins.
	var sinks event.Multi
	runner := engine.NewRunner(cfg, event.SinkFunc(func(e event.Event) {
		sinks.Handle(e)
	}), logger)

	presenter := ui.NewPresenter(ui.Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Stats:     runner.Stats(),
		SrcRoot:   args[0],
		Quiet:     f.quiet,
		Verbose:   f.verbose,
	})
	sinks = append(sinks, presenter)

	if f.reportDir != "" {
		rep, err := report.New(f.reportDir)
		if err != nil {
			return err
		}
		defer rep.Close()
		sinks = append(sinks, rep)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		runner.Cancel()
	}()
	notifyPauseResume(runner)

	if !f.quiet && cfg.Mode != config.AnalyzeOnly {
		if free := cfg.DestFreeSpace(); free > 0 {
			logger.Info("destination preflight", "free", ui.FormatBytes(int64(free))) //nolint:gosec // free capped by disk size
		}
	}

	if err := runner.Start(ctx); err != nil {
		return err
	}
	presenter.Start()
	result := runner.Wait()
	presenter.Stop()

	if !f.quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
	}

	switch {
	case result.Cancelled:
		return &exitError{code: 3}
	case result.Counts.Failed > 0 && result.Counts.Copied > 0:
		return &exitError{code: 1} // partial failure
	case result.Counts.Failed > 0:
		return &exitError{code: 2} // total failure
	default:
		return nil
	}
}

// buildConfig turns flags plus config-file defaults into a run Config.
func buildConfig(cmd *cobra.Command, f *flags, args []string) (*config.Config, error) {
	file, err := config.LoadFile()
	if err != nil {
		slog.Warn("failed to load config file", "error", err)
	}
	applyFileDefaults(cmd, file.Defaults, f)

	mode, err := config.ParseMode(f.mode)
	if err != nil {
		return nil, err
	}
	granularity, err := config.ParseGranularity(f.granularityStr)
	if err != nil {
		return nil, err
	}
	fileTimeout, err := time.ParseDuration(f.fileTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid --file-timeout: %w", err)
	}

	rules := filter.New()
	if f.excludeExts != "" {
		rules.AddExts(f.excludeExts)
	}
	if f.maxSizeStr != "" {
		n, err := filter.ParseSize(f.maxSizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --max-size: %w", err)
		}
		rules.SetMaxSize(n)
	}

	var bwLimit int64
	if f.bwLimitStr != "" {
		bwLimit, err = filter.ParseSize(f.bwLimitStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}

	cfg := &config.Config{
		Mode:              mode,
		Source:            args[0],
		DateFolders:       !f.noDateFolders,
		DateGranularity:   granularity,
		CategoryFolders:   !f.noCategories,
		SourcePrefix:      f.sourcePrefix,
		TopBeforeCategory: f.topFirst,
		HashDedup:         !f.noDedup,
		RemoveEmptyDirs:   f.removeEmpty || mode == config.Cleanup,
		IncludeHidden:     f.includeHidden,
		SmartFilter:       f.smartFilter,
		Resume:            f.resume,
		PreserveTimes:     f.preserveTimes,
		Workers:           f.workers,
		MaxRetries:        f.retries,
		FileTimeout:       fileTimeout,
		BWLimit:           bwLimit,
		Rules:             rules,
	}
	if len(args) > 1 {
		cfg.Dest = args[1]
	}
	return cfg, nil
}

// applyFileDefaults overlays config-file values onto flags the user
// did not set explicitly.
func applyFileDefaults(cmd *cobra.Command, d config.FileDefaults, f *flags) {
	if !cmd.Flags().Changed("workers") && d.Workers != nil {
		f.workers = *d.Workers
	}
	if !cmd.Flags().Changed("no-dedup") && d.HashDedup != nil {
		f.noDedup = !*d.HashDedup
	}
	if !cmd.Flags().Changed("no-date-folders") && d.DateFolders != nil {
		f.noDateFolders = !*d.DateFolders
	}
	if !cmd.Flags().Changed("date-granularity") && d.DateGranularity != nil {
		f.granularityStr = *d.DateGranularity
	}
	if !cmd.Flags().Changed("no-categories") && d.CategoryFolders != nil {
		f.noCategories = !*d.CategoryFolders
	}
	if !cmd.Flags().Changed("source-prefix") && d.SourcePrefix != nil {
		f.sourcePrefix = *d.SourcePrefix
	}
	if !cmd.Flags().Changed("smart-filter") && d.SmartFilter != nil {
		f.smartFilter = *d.SmartFilter
	}
	if !cmd.Flags().Changed("preserve-times") && d.PreserveTimes != nil {
		f.preserveTimes = *d.PreserveTimes
	}
	if !cmd.Flags().Changed("max-size") && d.MaxSize != nil {
		f.maxSizeStr = *d.MaxSize
	}
	if !cmd.Flags().Changed("exclude") && d.ExcludeExts != nil {
		f.excludeExts = *d.ExcludeExts
	}
	if !cmd.Flags().Changed("bwlimit") && d.BWLimit != nil {
		f.bwLimitStr = *d.BWLimit
	}
}

// setupLogging builds the slog logger: text to stderr, plus JSON to a
// file when --log is set.
func setupLogging(f *flags) (*slog.Logger, func(), error) {
	logLevel := slog.LevelWarn
	if f.verbose {
		logLevel = slog.LevelDebug
	} else if !f.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})

	var handler slog.Handler = textHandler
	closeLog := func() {}
	if f.logFile != "" {
		lf, err := os.Create(f.logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = ui.NewMultiHandler(textHandler, jsonHandler)
		closeLog = func() { _ = lf.Close() }
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closeLog, nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
