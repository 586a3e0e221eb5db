package cmd

import (
	"fmt"
	"strconv"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/pipeline"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Cost over the last 12 months and by category",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
	subs, err := loadData()
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Println("\n  No subscriptions found.")
		return nil
	}

	summary := pipeline.Aggregate(subs, asOf())

	fmt.Println()
	fmt.Println(cli.RenderTitle("COST STATISTICS"))
	fmt.Println()

	// Trailing 12 months
	values := make([]float64, len(summary.Trailing12Months))
	maxCost, total := 0.0, 0.0
	for i, m := range summary.Trailing12Months {
		values[i] = m.Cost
		maxCost = max(maxCost, m.Cost)
		total += m.Cost
	}

	fmt.Printf("  Last 12 months  %s\n\n", cli.RenderSparkline(values))
	for _, m := range summary.Trailing12Months {
		fmt.Println(cli.RenderHorizontalBar(cli.FormatMonth(m.Month), 7, m.Cost, maxCost, 30))
	}
	fmt.Printf("\n  Total %s, average %s per month\n\n", cli.FormatEUR(total), cli.FormatEUR(total/12))

	// Categories
	if len(summary.ByCategory) == 0 {
		fmt.Println("  No active subscriptions.")
		return nil
	}

	rows := make([][]string, 0, len(summary.ByCategory)+2)
	for _, c := range summary.ByCategory {
		rows = append(rows, []string{
			c.Category,
			strconv.Itoa(c.Count),
			cli.FormatEUR(c.MonthlyCost),
			cli.FormatPercent(c.SharePercent),
		})
	}
	rows = append(rows,
		[]string{"---"},
		[]string{"Total", strconv.Itoa(summary.ActiveCount), cli.FormatEUR(summary.MonthlyTotal), cli.FormatPercent(100)},
	)

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By category (active, per month)",
		Headers: []string{"Category", "Count", "Monthly", "Share"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}
