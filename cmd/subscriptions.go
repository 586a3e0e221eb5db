package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/form"
	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/pipeline"
	"github.com/theirongolddev/aboradar/internal/store"
	"github.com/theirongolddev/aboradar/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	flagSub      form.Input
	flagListName string
	flagResetYes bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List subscriptions with cost and cancellation deadline",
	RunE:    runList,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a subscription (interactive without --name)",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a subscription; only the given flags change",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var removeCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm"},
	Short:   "Delete a subscription",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all subscriptions and the stored letter template",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		addSubscriptionFlags(c.Flags())
	}
	listCmd.Flags().StringVar(&flagListName, "name", "", "Filter by name (substring match)")
	resetCmd.Flags().BoolVarP(&flagResetYes, "yes", "y", false, "Skip the confirmation")

	rootCmd.AddCommand(listCmd, addCmd, editCmd, removeCmd, resetCmd)
}

func addSubscriptionFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flagSub.Name, "name", "", "Name, e.g. Netflix")
	fs.StringVar(&flagSub.Price, "price", "", "Price per interval in EUR")
	fs.StringVar(&flagSub.Interval, "interval", string(model.Monthly), "Billing interval: weekly, monthly or yearly")
	fs.StringVar(&flagSub.StartDate, "start", "", "Start date YYYY-MM-DD (default today)")
	fs.StringVar(&flagSub.Category, "category-name", "", "Category")
	fs.StringVar(&flagSub.ContractTerm, "term", "", "Minimum contract term in months")
	fs.StringVar(&flagSub.NoticePeriod, "notice", "", "Notice period")
	fs.StringVar(&flagSub.NoticeUnit, "notice-unit", "", "Notice unit: days, weeks or months")
}

func runList(_ *cobra.Command, _ []string) error {
	subs, err := loadData()
	if err != nil {
		return err
	}
	subs = pipeline.SortByName(pipeline.FilterByName(subs, flagListName))
	if len(subs) == 0 {
		fmt.Println("\n  No subscriptions found.")
		return nil
	}

	now := asOf()
	warnDays := appCfg.General.WarningDays
	threshold := appCfg.General.ExpensiveThreshold

	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		monthly := cli.FormatEUR(pipeline.MonthlyCost(s))
		if pipeline.IsExpensive(s, threshold) {
			monthly = cli.Warn(monthly)
		}

		deadline := cli.Muted("-")
		if d, ok := pipeline.CancellationDeadline(s); ok {
			left := pipeline.DaysBetween(now, d)
			deadline = cli.FormatDate(d) + " " + cli.FormatDaysLeft(left)
			switch {
			case !pipeline.IsActive(s, now):
				deadline = cli.Muted(cli.FormatDate(d) + " ended")
			case pipeline.DeadlineSoon(s, now, warnDays):
				deadline = cli.Alert(deadline)
			}
		}

		rows = append(rows, []string{
			shortID(s.ID),
			s.Name,
			s.CategoryOrDefault(),
			cli.FormatPrice(s),
			monthly,
			cli.FormatTerm(s),
			deadline,
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Subscriptions (%d)", len(subs)),
		Headers: []string{"ID", "Name", "Category", "Price", "Monthly", "Term", "Cancel by"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

// shortID trims UUIDs for display; edit and remove accept any unique prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runAdd(cmd *cobra.Command, _ []string) error {
	in := flagSub
	if in.StartDate == "" {
		in.StartDate = asOf().Format("2006-01-02")
	}
	if !cmd.Flags().Changed("category-name") {
		in.Category = appCfg.DefaultCategory(model.DefaultCategory)
	}

	if in.Name == "" {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return errors.New("--name is required when not running interactively")
		}
		existing, err := loadData()
		if err != nil {
			return err
		}
		if err := runSubscriptionForm(&in, existing, false); err != nil {
			return err
		}
	}

	sub, err := form.Parse(in, "")
	if err != nil {
		return err
	}
	if err := withStore(func(st *store.Store) error { return st.Put(sub) }); err != nil {
		return err
	}

	appLog.Info("subscription added", zap.String("id", sub.ID), zap.String("name", sub.Name))
	fmt.Printf("  Added %s (%s), id %s\n", sub.Name, cli.FormatPrice(sub), shortID(sub.ID))
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	return withStore(func(st *store.Store) error {
		current, err := resolveID(st, args[0])
		if err != nil {
			return err
		}

		in := form.FromSubscription(current)
		changed := 0
		cmd.Flags().Visit(func(f *pflag.Flag) {
			changed++
			switch f.Name {
			case "name":
				in.Name = flagSub.Name
			case "price":
				in.Price = flagSub.Price
			case "interval":
				in.Interval = flagSub.Interval
			case "start":
				in.StartDate = flagSub.StartDate
			case "category-name":
				in.Category = flagSub.Category
			case "term":
				in.ContractTerm = flagSub.ContractTerm
			case "notice":
				in.NoticePeriod = flagSub.NoticePeriod
			case "notice-unit":
				in.NoticeUnit = flagSub.NoticeUnit
			default:
				changed--
			}
		})

		if changed == 0 {
			if !isatty.IsTerminal(os.Stdin.Fd()) {
				return errors.New("nothing to change; pass at least one field flag")
			}
			lr, err := st.List()
			if err != nil {
				return err
			}
			if err := runSubscriptionForm(&in, lr.Subscriptions, true); err != nil {
				return err
			}
		}

		sub, err := form.Parse(in, current.ID)
		if err != nil {
			return err
		}
		if err := st.Put(sub); err != nil {
			return err
		}
		appLog.Info("subscription updated", zap.String("id", sub.ID))
		fmt.Printf("  Updated %s\n", sub.Name)
		return nil
	})
}

func runRemove(_ *cobra.Command, args []string) error {
	return withStore(func(st *store.Store) error {
		sub, err := resolveID(st, args[0])
		if err != nil {
			return err
		}
		if err := st.Delete(sub.ID); err != nil {
			return err
		}
		appLog.Info("subscription deleted", zap.String("id", sub.ID))
		fmt.Printf("  Deleted %s\n", sub.Name)
		return nil
	})
}

func runReset(_ *cobra.Command, _ []string) error {
	if !flagResetYes {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return errors.New("refusing to delete without --yes")
		}
		confirmed := false
		err := huh.NewConfirm().
			Title("Delete all subscriptions and the letter template?").
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil || !confirmed {
			fmt.Println("  Nothing deleted.")
			return nil
		}
	}

	if err := withStore(func(st *store.Store) error { return st.DeleteAll() }); err != nil {
		return err
	}
	appLog.Info("all data deleted", zap.String("db", dbPath()))
	fmt.Println("  All data deleted.")
	return nil
}

// resolveID finds a subscription by full ID or unique ID prefix.
func resolveID(st *store.Store, id string) (model.Subscription, error) {
	sub, err := st.Get(id)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Subscription{}, err
	}

	lr, err := st.List()
	if err != nil {
		return model.Subscription{}, err
	}
	var matches []model.Subscription
	for _, s := range lr.Subscriptions {
		if len(id) >= 4 && len(s.ID) >= len(id) && s.ID[:len(id)] == id {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return model.Subscription{}, fmt.Errorf("no subscription with id %q", id)
	case 1:
		return matches[0], nil
	default:
		return model.Subscription{}, fmt.Errorf("id prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}

func runSubscriptionForm(in *form.Input, existing []model.Subscription, editing bool) error {
	err := tui.NewSubscriptionForm(in, existing, editing).
		WithTheme(huh.ThemeBase16()).
		WithTimeout(10 * time.Minute).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errors.New("cancelled")
	}
	return err
}
