package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxoplace/internal/align"
	"taxoplace/internal/alignparse"
	"taxoplace/internal/gffwrite"
	"taxoplace/internal/placement/batch"
	"taxoplace/internal/taxrepo"
	"taxoplace/pkg/placement"
)

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Place every query in an alignment table against a taxonomy snapshot",
	RunE:  runPlace,
}

func init() {
	placeCmd.Flags().String("alignments", "", "path to the tab-delimited alignment table")
	placeCmd.Flags().String("label", "default", "taxonomy snapshot label to load")
	placeCmd.Flags().String("taxrepo-dsn", "", "sqlite database path (overrides TAXOPLACE_TAXREPO_DSN)")
	placeCmd.Flags().String("out", "", "GFF3 output path, defaults to stdout")
	placeCmd.Flags().Float64("exclude-factor", 0, "exclude_factor override, default 0.9 (or TAXOPLACE_EXCLUDE_ALIGNMENTS_FACTOR)")
	placeCmd.Flags().Float64("reeval-bandwidth", 0, "reeval_bandwidth override, default 0.1 (or TAXOPLACE_REEVAL_BANDWIDTH)")
	placeCmd.Flags().Int("concurrency", 4, "number of queries placed concurrently")
	rootCmd.AddCommand(placeCmd)
}

func runPlace(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	alignmentsPath, _ := cmd.Flags().GetString("alignments")
	label, _ := cmd.Flags().GetString("label")
	dsn, _ := cmd.Flags().GetString("taxrepo-dsn")
	outPath, _ := cmd.Flags().GetString("out")
	excludeFactor, _ := cmd.Flags().GetFloat64("exclude-factor")
	reevalBandwidth, _ := cmd.Flags().GetFloat64("reeval-bandwidth")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	taxStore, err := openSQLiteTaxrepo(dsn)
	if err != nil {
		return fmt.Errorf("open taxrepo: %w", err)
	}
	defer taxStore.Close()

	snap, err := taxStore.LoadSnapshot(ctx, label)
	if err != nil {
		return fmt.Errorf("load snapshot %q: %w", label, err)
	}
	tax, err := taxrepo.Rebuild(snap)
	if err != nil {
		return fmt.Errorf("rebuild taxonomy: %w", err)
	}

	alignments, err := os.Open(alignmentsPath)
	if err != nil {
		return fmt.Errorf("open alignment table: %w", err)
	}
	defer alignments.Close()
	byQuery, err := alignparse.Parse(alignments, tax, taxStore)
	if err != nil {
		return fmt.Errorf("parse alignment table: %w", err)
	}

	store, err := openSequenceStore(ctx, "")
	if err != nil {
		return fmt.Errorf("open sequence storage: %w", err)
	}

	model := placement.NewRPA(tax, store, align.Score, placementConfig(excludeFactor, reevalBandwidth))

	queries := make([]placement.Query, 0, len(byQuery))
	for id, records := range byQuery {
		queries = append(queries, placement.Query{ID: id, Records: records})
	}

	results, err := batch.Run(ctx, model, queries, nil, concurrency)
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	writer := gffwrite.New(out)
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "query %s: %v\n", r.QueryID, r.Err)
			continue
		}
		if err := writer.Write(r.Prediction); err != nil {
			return fmt.Errorf("write result for %s: %w", r.QueryID, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d queries failed\n", failed, len(results))
	}
	return nil
}
