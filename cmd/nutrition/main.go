package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"smart-nutrition/internal/catalog"
	"smart-nutrition/internal/database"
	"smart-nutrition/internal/matcher"
	"smart-nutrition/internal/metrics"
	"smart-nutrition/internal/optimizer"
)

var (
	dbPath      string
	catalogPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nutrition",
		Short: "Maintenance tools for the food catalog and the nutrition database",
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "data/nutrition.db", "database path")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "food catalog JSON (embedded catalog when empty)")

	rootCmd.AddCommand(importCatalogCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(metricsCleanupCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func importCatalogCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "import-catalog [table.html]",
		Short: "Convert an HTML nutrition table into a catalog JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			foods, err := catalog.ImportHTML(f)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(foods, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal catalog: %w", err)
			}
			if output == "" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(output, append(data, '\n'), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Imported %d foods into %s\n", len(foods), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	return cmd
}

func matchCmd() *cobra.Command {
	var (
		grams         int
		preparation   string
		minConfidence float64
	)

	cmd := &cobra.Command{
		Use:   "match [food name]",
		Short: "Match a detected food name against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			foods, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}

			item := matcher.DetectedFoodItem{
				Name:           strings.Join(args, " "),
				EstimatedGrams: grams,
				Preparation:    preparation,
				Confidence:     1,
			}
			res := matcher.New(foods.Foods()).Match(item, minConfidence)
			n := res.Nutrition()

			if res.Match == nil {
				fmt.Printf("No match for %q, using the generic estimate\n", item.Name)
			} else {
				fmt.Printf("%s %s (confidence %.2f)\n", res.Match.Food.GlyphOrDefault(), res.Match.Food.Name, res.Match.Confidence)
			}
			fmt.Printf("%dg: %.1f kcal | P %.1fg | C %.1fg | F %.1fg\n",
				grams, matcher.Round1(n.Calories), matcher.Round1(n.Protein), matcher.Round1(n.Carbs), matcher.Round1(n.Fat))
			return nil
		},
	}

	cmd.Flags().IntVar(&grams, "grams", 100, "portion size in grams")
	cmd.Flags().StringVar(&preparation, "preparation", "", "preparation method (frito, a la plancha, ...)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", matcher.DefaultMinConfidence, "minimum match confidence")
	return cmd
}

func recommendCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recommend [kcal] [protein] [carbs] [fat]",
		Short: "Recommend foods and portions for the remaining macros",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v [4]float64
			for i, a := range args {
				n, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("%q is not a number", a)
				}
				v[i] = n
			}
			remaining := optimizer.MacroTarget{Calories: v[0], ProteinG: v[1], CarbsG: v[2], FatG: v[3]}
			if remaining.IsComplete() {
				fmt.Println("Goals reached, nothing to recommend")
				return nil
			}

			foods, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}

			recs := optimizer.New(optimizer.DefaultPortionOptions()).RecommendFoods(foods.Foods(), remaining, limit)
			if len(recs) == 0 {
				fmt.Println("No suitable foods found")
				return nil
			}
			for i, r := range recs {
				fmt.Printf("%d. %s %-30s %4.0fg  %6.1f kcal  P %5.1fg  C %5.1fg  F %5.1fg  (score %.1f)\n",
					i+1, r.Food.GlyphOrDefault(), r.Food.Name, r.Grams,
					r.Nutrition.Calories, r.Nutrition.Protein, r.Nutrition.Carbs, r.Nutrition.Fat, r.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", optimizer.DefaultMaxRecommendations, "maximum number of recommendations")
	return cmd
}

func metricsCleanupCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Delete vision usage metrics older than the given number of days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}

			db, err := database.NewDB(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := metrics.NewStore(db.SQL).Cleanup(context.Background(), days)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d metric rows older than %d days\n", n, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "retention in days")
	return cmd
}
