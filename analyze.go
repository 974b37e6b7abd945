package main

import (
	"encoding/json"
	"fmt"

	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/spf13/cobra"
)

var analyzeFlags struct {
	title       string
	category    string
	condition   string
	description string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Suggest a price for one item and print the analysis as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		analysis := a.advisor.Analyze(cmd.Context(), pricing.Request{
			Title:       analyzeFlags.title,
			Category:    analyzeFlags.category,
			Condition:   pricing.ParseCondition(analyzeFlags.condition),
			Description: analyzeFlags.description,
		})

		out, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.title, "title", "", "Item title (required)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.category, "category", "", "Marketplace category (required)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.condition, "condition", string(pricing.ConditionGood), "Item condition")
	analyzeCmd.Flags().StringVar(&analyzeFlags.description, "description", "", "Item description")
	analyzeCmd.MarkFlagRequired("title")
	analyzeCmd.MarkFlagRequired("category")
}
