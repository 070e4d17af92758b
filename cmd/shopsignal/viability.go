package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopsignal/shopsignal/internal/scoring"
	"github.com/shopsignal/shopsignal/internal/store"
	"github.com/spf13/cobra"
)

// NewViabilityCmd creates the viability command
func NewViabilityCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "viability <product-id>",
		Short: "Show the kill/test/scale verdict for a product",
		Long: `Compute the funnel viability verdict for one product from its
accumulated analytics counters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViability(cmd, dbPath, args[0])
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "./shopsignal.db", "Path to the score database")

	return cmd
}

// runViability computes and prints the verdict
func runViability(cmd *cobra.Command, dbPath, productID string) error {
	scores, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open score database: %w", err)
	}
	defer scores.Close()

	analytics, err := scores.GetAnalytics(context.Background(), productID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no analytics recorded for product %q", productID)
	}
	if err != nil {
		return fmt.Errorf("failed to read analytics: %w", err)
	}

	computed := scoring.ComputeAnalytics(*analytics)
	verdict := scoring.CalculateViabilityScore(computed)

	cmd.Printf("Product:        %s\n", verdict.ProductID)
	cmd.Printf("Score:          %d\n", verdict.Score)
	cmd.Printf("Recommendation: %s\n", verdict.Recommendation)
	cmd.Println()
	cmd.Printf("  CTR:             %d (%.1f%%)\n", verdict.Breakdown.CTRScore, computed.CTR)
	cmd.Printf("  Add to cart:     %d (%.1f%%)\n", verdict.Breakdown.AddToCartScore, computed.AddToCartRate)
	cmd.Printf("  Checkout:        %d (%.1f%%)\n", verdict.Breakdown.CheckoutScore, computed.CheckoutRate)
	cmd.Printf("  Engagement:      %d\n", verdict.Breakdown.EngagementScore)
	cmd.Printf("  Price tolerance: %d\n", verdict.Breakdown.PriceToleranceScore)
	cmd.Println()
	cmd.Println(verdict.Explanation)

	return nil
}
