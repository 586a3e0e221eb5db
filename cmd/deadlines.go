package cmd

import (
	"fmt"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagDeadlineDays int

var deadlinesCmd = &cobra.Command{
	Use:   "deadlines",
	Short: "Upcoming cancellation deadlines",
	RunE:  runDeadlines,
}

func init() {
	deadlinesCmd.Flags().IntVarP(&flagDeadlineDays, "days", "n", 0, "Look-ahead window in days (default from config)")
	rootCmd.AddCommand(deadlinesCmd)
}

func runDeadlines(_ *cobra.Command, _ []string) error {
	subs, err := loadData()
	if err != nil {
		return err
	}

	days := flagDeadlineDays
	if days <= 0 {
		days = appCfg.General.UpcomingDays
	}
	upcoming := pipeline.UpcomingDeadlines(subs, asOf(), days)
	if len(upcoming) == 0 {
		fmt.Printf("\n  No cancellation deadlines in the next %d days.\n\n", days)
		return nil
	}

	warnDays := appCfg.General.WarningDays
	rows := make([][]string, 0, len(upcoming))
	for _, u := range upcoming {
		left := cli.FormatDaysLeft(u.DaysLeft)
		if u.DaysLeft <= warnDays {
			left = cli.Alert(left)
		}
		rows = append(rows, []string{
			u.Subscription.Name,
			cli.FormatDate(u.Deadline),
			left,
			cli.FormatDate(u.EndDate),
			cli.FormatEUR(pipeline.MonthlyCost(u.Subscription)),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Cancellation deadlines, next %d days", days),
		Headers: []string{"Name", "Cancel by", "Left", "Contract ends", "Monthly"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}
