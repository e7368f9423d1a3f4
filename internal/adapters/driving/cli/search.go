package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

var (
	searchScope string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the local seeds index",
	Long: `Runs a full-text query against the local search index.
Matching combines exact, prefix and fuzzy term matching with
accent-insensitive tokenization, so "cafe" finds "Café".`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchScope, "scope", "all", "restrict results to a scope (public, private, apidae, all)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	results, err := searchService.Search(context.Background(), query, domain.Scope(searchScope))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		seed := results[i].Seed

		cmd.Printf("  [%d] %s (%.0f)\n", i+1, seed.Name, results[i].Score)
		if seed.Category != "" {
			cmd.Printf("      %s, %s\n", seed.Category, seed.Scope)
		}
		if seed.Address != "" {
			cmd.Printf("      %s\n", seed.Address)
		}
		cmd.Println()
	}

	return nil
}
