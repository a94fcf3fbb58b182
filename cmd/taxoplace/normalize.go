package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxoplace/internal/ncbiload"
	"taxoplace/internal/taxrepo"
	"taxoplace/pkg/domain"
	"taxoplace/pkg/taxonomy"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Build a taxonomy from an NCBI dump, rank-normalize it, and store a snapshot",
	RunE:  runNormalize,
}

func init() {
	normalizeCmd.Flags().String("nodes", "", "path to nodes.dmp")
	normalizeCmd.Flags().String("names", "", "path to names.dmp")
	normalizeCmd.Flags().Int64("root", 1, "root taxon id")
	normalizeCmd.Flags().StringSlice("ranks", domain.DefaultRankSet().Ranks(), "rank ladder, most general first, for delete-unmarked-nodes")
	normalizeCmd.Flags().String("label", "default", "snapshot label to write")
	normalizeCmd.Flags().String("dsn", "", "sqlite database path (overrides TAXOPLACE_TAXREPO_DSN)")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	nodesPath, _ := cmd.Flags().GetString("nodes")
	namesPath, _ := cmd.Flags().GetString("names")
	rootTaxID, _ := cmd.Flags().GetInt64("root")
	rankNames, _ := cmd.Flags().GetStringSlice("ranks")
	label, _ := cmd.Flags().GetString("label")
	dsn, _ := cmd.Flags().GetString("dsn")

	nodes, err := os.Open(nodesPath)
	if err != nil {
		return fmt.Errorf("open nodes.dmp: %w", err)
	}
	defer nodes.Close()
	names, err := os.Open(namesPath)
	if err != nil {
		return fmt.Errorf("open names.dmp: %w", err)
	}
	defer names.Close()

	tax, err := ncbiload.Load(nodes, names, rootTaxID)
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}

	ranks := domain.NewRankSet(rankNames)
	if err := normalizeRanks(tax, ranks); err != nil {
		return fmt.Errorf("normalize ranks: %w", err)
	}

	snap, err := taxrepo.Encode(tax)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	store, err := openSQLiteTaxrepo(dsn)
	if err != nil {
		return fmt.Errorf("open taxrepo: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveSnapshot(ctx, label, snap); err != nil {
		return fmt.Errorf("save snapshot %q: %w", label, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote snapshot %q: %d taxa\n", label, tax.Size())
	return nil
}

func normalizeRanks(tax *taxonomy.Taxonomy, ranks domain.RankSet) error {
	tax.DeleteUnmarkedNodes(ranks)
	tax.SetRankDistances(ranks)
	result := tax.CheckInvariants(ranks)
	if result.HasFatal() {
		return fmt.Errorf("rank normalization left invariant violations: %v", result.Violations)
	}
	return nil
}
