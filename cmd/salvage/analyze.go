package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"salvage/internal/engine"
	"salvage/internal/filter"
	"salvage/internal/ui"
)

// analyzeCmd builds the read-only pre-analysis subcommand: it walks a
// tree and reports what a rescue run would find, without copying.
func analyzeCmd() *cobra.Command {
	var (
		sniff   bool
		smart   bool
		topExts int
	)

	cmd := &cobra.Command{
		Use:   "analyze <source>",
		Short: "Inspect a tree before rescuing: categories, hot folders, likely duplicates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rules := filter.New()
			if smart {
				for _, d := range filter.SystemDirs {
					rules.AddSkipDir(d)
				}
			}

			records, err := collectRecords(ctx, args[0], rules)
			if err != nil {
				return err
			}

			sum, err := (&engine.Analyzer{SniffContent: sniff}).Summarize(ctx, records)
			if err != nil {
				return err
			}
			printSummary(os.Stdout, sum, topExts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&sniff, "sniff", false, "detect files whose content does not match their extension")
	cmd.Flags().BoolVar(&smart, "smart-filter", true, "skip OS-internal directories")
	cmd.Flags().IntVar(&topExts, "top", 10, "number of extensions to list")
	return cmd
}

func collectRecords(ctx context.Context, root string, rules *filter.Rules) ([]engine.FileRecord, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	recCh, failCh := engine.NewScanner(root, rules).Scan(ctx)
	var records []engine.FileRecord
	for recCh != nil || failCh != nil {
		select {
		case rec, ok := <-recCh:
			if !ok {
				recCh = nil
				continue
			}
			records = append(records, rec)
		case fail, ok := <-failCh:
			if !ok {
				failCh = nil
				continue
			}
			fmt.Fprintf(os.Stderr, "warning: %v\n", fail)
		}
	}
	return records, ctx.Err()
}

func printSummary(w *os.File, sum *engine.Summary, topExts int) {
	fmt.Fprintf(w, "files: %s  size: %s  hidden: %s\n\n",
		ui.FormatCount(int64(sum.Files)),
		ui.FormatBytes(sum.Bytes),
		ui.FormatCount(int64(sum.Hidden)))

	fmt.Fprintln(w, "categories:")
	for _, cs := range sum.Categories {
		fmt.Fprintf(w, "  %-12s %8s files  %10s\n",
			cs.Category, ui.FormatCount(int64(cs.Files)), ui.FormatBytes(cs.Bytes))
		for _, fc := range cs.TopFolders {
			fmt.Fprintf(w, "    %5d  %s\n", fc.Count, fc.Folder)
		}
	}

	fmt.Fprintln(w, "\nextensions:")
	exts := sum.Extensions
	if len(exts) > topExts {
		exts = exts[:topExts]
	}
	for _, ec := range exts {
		fmt.Fprintf(w, "  %-10s %8s files  %10s\n",
			ec.Ext, ui.FormatCount(int64(ec.Count)), ui.FormatBytes(ec.Bytes))
	}

	if sum.DupGroups > 0 {
		fmt.Fprintf(w, "\nprobable duplicates: %s groups, %s extra files, %s reclaimable\n",
			ui.FormatCount(int64(sum.DupGroups)),
			ui.FormatCount(int64(sum.DupFiles)),
			ui.FormatBytes(sum.DupBytes))
	} else {
		fmt.Fprintln(w, "\nno probable duplicates")
	}

	if len(sum.Mismatches) > 0 {
		fmt.Fprintln(w, "\nextension mismatches:")
		for _, m := range sum.Mismatches {
			fmt.Fprintf(w, "  %s  (.%s, looks like %s)\n", m.Path, m.Ext, m.Detected)
		}
	}
}
