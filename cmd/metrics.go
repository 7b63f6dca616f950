package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gridworks/prodcost/core/analytics"
	"github.com/gridworks/prodcost/core/model"
	"github.com/gridworks/prodcost/infra/results"
)

var resultsDir string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Summarize persisted simulation results",
	RunE:  summarize,
}

func init() {
	metricsCmd.Flags().StringVarP(&resultsDir, "results", "r", "results", "results directory")
	rootCmd.AddCommand(metricsCmd)
}

func summarize(cmd *cobra.Command, args []string) error {
	runs, err := results.LoadAll(resultsDir)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	names := make([]string, 0, len(runs))
	for n := range runs {
		names = append(names, n)
	}
	sort.Strings(names)

	metrics := []analytics.Metric{
		analytics.TotalObjective(),
		analytics.StepCount(),
		analytics.SolveTimeSeconds(),
		analytics.CostSeries(),
		analytics.CategoryCostSeries(model.CategoryThermal),
		analytics.CategoryCostSeries(model.CategoryRenewableDispatch),
		analytics.CurtailmentSeries(),
	}
	for _, name := range names {
		c := runs[name]
		fmt.Printf("run %s (%d steps)\n", name, len(c.Steps))
		summary := analytics.Summarize(c, metrics)
		for _, row := range summary.Rows {
			fmt.Printf("  %-28s total=%.4f mean=%.4f min=%.4f max=%.4f\n",
				row.Metric, row.Total, row.Mean, row.Min, row.Max)
		}
	}
	return nil
}
