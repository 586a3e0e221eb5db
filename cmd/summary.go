package cmd

import (
	"fmt"
	"strconv"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/pipeline"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Monthly and yearly totals, budget and savings",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	subs, err := loadData()
	if err != nil {
		return err
	}

	if len(subs) == 0 {
		fmt.Println("\n  No subscriptions yet.")
		fmt.Println("  Add one with `aboradar add` or open the dashboard with `aboradar tui`.")
		return nil
	}

	now := asOf()
	general := appCfg.General
	summary := pipeline.Aggregate(subs, now)
	budget := pipeline.ComputeBudget(summary, appCfg.Budget.MonthlyEUR)
	savings := pipeline.SavingsPotential(subs, now, general.ExpensiveThreshold)
	upcoming := pipeline.UpcomingDeadlines(subs, now, general.WarningDays)

	title := "SUBSCRIPTIONS  " + cli.FormatDate(now)
	if flagCategory != "" {
		title += "  " + flagCategory
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()

	monthly := cli.FormatEUR(summary.MonthlyTotal)
	if n := len(summary.Trailing12Months); n >= 2 {
		prev := summary.Trailing12Months[n-2].Cost
		if prev > 0 {
			monthly += "  (" + cli.FormatDelta(summary.MonthlyTotal, prev) + " vs last month)"
		}
	}

	rows := [][]string{
		{"Subscriptions", strconv.Itoa(summary.TotalCount)},
		{"Active", strconv.Itoa(summary.ActiveCount)},
		{"---"},
		{"Per month", monthly},
		{"Per year", cli.FormatEUR(summary.YearlyTotal)},
	}
	if budget.MonthlyBudget != nil {
		remaining := cli.FormatEUR(budget.Remaining)
		if budget.OverBudget {
			remaining = cli.Alert(remaining)
		}
		rows = append(rows,
			[]string{"---"},
			[]string{"Budget", cli.FormatEUR(*budget.MonthlyBudget)},
			[]string{"Used", cli.FormatPercent(budget.BudgetUsedPercent)},
			[]string{"Remaining", remaining},
		)
	}
	if len(savings.Expensive) > 0 {
		rows = append(rows,
			[]string{"---"},
			[]string{"Above " + cli.FormatEUR(savings.Threshold), strconv.Itoa(len(savings.Expensive))},
			[]string{"Savings potential", cli.FormatEUR(savings.MonthlyTotal) + " / month"},
		)
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if budget.MonthlyBudget != nil {
		fmt.Printf("\n  Budget %s\n", cli.RenderBudgetBar(budget.BudgetUsedPercent, 30))
	}

	if len(upcoming) > 0 {
		fmt.Println()
		for _, u := range upcoming {
			fmt.Printf("  %s  %s: cancel by %s (%s)\n",
				cli.Warn("!"), u.Subscription.Name, cli.FormatDate(u.Deadline), cli.FormatDaysLeft(u.DaysLeft))
		}
	}
	fmt.Println()

	return nil
}
