package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/form"
	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/pipeline"
	"github.com/theirongolddev/aboradar/internal/store"
	"github.com/theirongolddev/aboradar/internal/tui/components"
	"github.com/theirongolddev/aboradar/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// subsState holds the subscriptions tab state.
type subsState struct {
	cursor int
	offset int

	searching bool
	search    textinput.Model
	query     string

	form     *huh.Form
	formVals *form.Input
	editID   string // empty when adding

	confirmDelete bool
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "name..."
	ti.CharLimit = 64
	ti.Width = 30
	ti.Prompt = "/ "
	return ti
}

func (a App) selectedSub() (model.Subscription, bool) {
	if a.subsState.cursor < 0 || a.subsState.cursor >= len(a.visible) {
		return model.Subscription{}, false
	}
	return a.visible[a.subsState.cursor], true
}

// updateSubsKey handles list navigation and actions. handled is false for
// keys the global handler should see.
func (a App) updateSubsKey(key string) (tea.Model, tea.Cmd, bool) {
	ss := &a.subsState

	if ss.confirmDelete {
		ss.confirmDelete = false
		sel, ok := a.selectedSub()
		if key != "y" || !ok {
			a.status = "Delete cancelled"
			return a, nil, true
		}
		a.status = ""
		return a, mutateCmd(a.opts.DBPath, "Deleted "+sel.Name, func(st *store.Store) error {
			return st.Delete(sel.ID)
		}), true
	}

	switch key {
	case "j", "down":
		ss.cursor = clampCursor(ss.cursor+1, len(a.visible))
	case "k", "up":
		ss.cursor = clampCursor(ss.cursor-1, len(a.visible))
	case "g", "home":
		ss.cursor = 0
	case "G", "end":
		ss.cursor = clampCursor(len(a.visible)-1, len(a.visible))
	case "/":
		ss.searching = true
		ss.search = newSearchInput()
		ss.search.SetValue(ss.query)
		ss.search.Focus()
		return a, textinput.Blink, true
	case "esc":
		if ss.query == "" {
			return a, nil, false
		}
		ss.query = ""
		a.recompute()
	case "a":
		return a.openSubForm(model.Subscription{}, false)
	case "e", "enter":
		sel, ok := a.selectedSub()
		if !ok {
			return a, nil, true
		}
		return a.openSubForm(sel, true)
	case "d", "delete":
		sel, ok := a.selectedSub()
		if !ok {
			return a, nil, true
		}
		ss.confirmDelete = true
		a.status = fmt.Sprintf("Delete %s? [y] to confirm", sel.Name)
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) updateSubsSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.subsState.query = strings.TrimSpace(a.subsState.search.Value())
		a.subsState.searching = false
		a.subsState.cursor = 0
		a.recompute()
		return a, nil
	case "esc":
		a.subsState.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.subsState.search, cmd = a.subsState.search.Update(msg)
	return a, cmd
}

// openSubForm opens the add/edit form, prefilled from sub when editing.
func (a App) openSubForm(sub model.Subscription, editing bool) (tea.Model, tea.Cmd, bool) {
	vals := form.Input{
		Interval:  string(model.Monthly),
		StartDate: a.asOf().Format("2006-01-02"),
		Category:  a.cfg.DefaultCategory(model.DefaultCategory),
	}
	a.subsState.editID = ""
	if editing {
		vals = form.FromSubscription(sub)
		a.subsState.editID = sub.ID
	}
	a.subsState.formVals = &vals
	a.subsState.confirmDelete = false
	a.subsState.form = NewSubscriptionForm(&vals, a.subs, editing).WithWidth(a.formWidth())
	return a, a.subsState.form.Init(), true
}

// NewSubscriptionForm builds the add/edit form bound to v. Names and
// categories of existing feed the autocompletion.
func NewSubscriptionForm(v *form.Input, existing []model.Subscription, editing bool) *huh.Form {
	title := "Add subscription"
	if editing {
		title = "Edit subscription"
	}

	intervals := make([]huh.Option[string], 0, len(model.Intervals))
	for _, i := range model.Intervals {
		intervals = append(intervals, huh.NewOption(string(i), string(i)))
	}
	units := []huh.Option[string]{huh.NewOption("none", "")}
	for _, u := range model.NoticeUnits {
		units = append(units, huh.NewOption(string(u), string(u)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description("Name").
				Suggestions(form.SuggestNames(existing, "")).
				Value(&v.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Price (€)").
				Placeholder("9,99").
				Value(&v.Price),
			huh.NewSelect[string]().
				Title("Billing interval").
				Options(intervals...).
				Value(&v.Interval),
			huh.NewInput().
				Title("Start date").
				Placeholder("YYYY-MM-DD").
				Value(&v.StartDate).
				Validate(func(s string) error {
					if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
						return errors.New("use YYYY-MM-DD")
					}
					return nil
				}),
			huh.NewInput().
				Title("Category").
				Suggestions(form.SuggestCategories(existing, "")).
				Value(&v.Category),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Contract term (months)").
				Description("Leave empty for flexible subscriptions.").
				Value(&v.ContractTerm),
			huh.NewInput().
				Title("Notice period").
				Value(&v.NoticePeriod),
			huh.NewSelect[string]().
				Title("Notice unit").
				Options(units...).
				Value(&v.NoticeUnit),
		),
	).WithShowHelp(true)
}

func (a App) updateSubsForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	ss := &a.subsState
	if isEsc(msg) {
		ss.form = nil
		a.status = "Cancelled"
		return a, nil
	}

	f, cmd := ss.form.Update(msg)
	if hf, ok := f.(*huh.Form); ok {
		ss.form = hf
	}

	switch ss.form.State {
	case huh.StateCompleted:
		ss.form = nil
		sub, err := form.Parse(*ss.formVals, ss.editID)
		if err != nil {
			a.status = err.Error()
			return a, nil
		}
		verb := "Added "
		if ss.editID != "" {
			verb = "Updated "
		}
		return a, mutateCmd(a.opts.DBPath, verb+sub.Name, func(st *store.Store) error {
			return st.Put(sub)
		})
	case huh.StateAborted:
		ss.form = nil
		return a, nil
	}
	return a, cmd
}

func (a App) renderSubscriptionsTab(cw, h int) string {
	t := theme.Active
	ss := a.subsState

	if ss.form != nil {
		return components.ContentCard("", ss.form.View(), cw)
	}

	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	endedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	alertStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)

	listW := cw
	if !a.isCompactLayout() {
		listW = cw * 3 / 5
	}
	inner := components.CardInnerWidth(listW)
	nameW := max(inner-12-14-12, 10)

	var body strings.Builder
	if ss.searching {
		body.WriteString(ss.search.View())
		body.WriteString("\n")
	} else if ss.query != "" {
		body.WriteString(mutedStyle.Render(fmt.Sprintf("filter: %q  [Esc] clear", ss.query)))
		body.WriteString("\n")
	}

	body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %12s %13s %11s", nameW, "Name", "Monthly", "Category", "Deadline")))
	body.WriteString("\n")

	if len(a.visible) == 0 {
		body.WriteString(mutedStyle.Render("No subscriptions. Press [a] to add one."))
	}

	visibleRows := max(h-7, 3)
	offset := ss.offset
	if ss.cursor < offset {
		offset = ss.cursor
	}
	if ss.cursor >= offset+visibleRows {
		offset = ss.cursor - visibleRows + 1
	}
	end := min(offset+visibleRows, len(a.visible))

	asOf := a.asOf()
	for i := offset; i < end; i++ {
		sub := a.visible[i]
		deadline := "-"
		if d, ok := pipeline.CancellationDeadline(sub); ok {
			deadline = cli.FormatDate(d)
		}
		line := fmt.Sprintf("%-*s %12s %13s %11s",
			nameW, truncStr(sub.Name, nameW),
			cli.FormatEUR(pipeline.MonthlyCost(sub)),
			truncStr(sub.CategoryOrDefault(), 13),
			deadline)

		style := rowStyle
		switch {
		case i == ss.cursor:
			style = selectedStyle
		case !pipeline.IsActive(sub, asOf):
			style = endedStyle
		case pipeline.DeadlineSoon(sub, asOf, a.cfg.General.WarningDays):
			style = alertStyle
		}
		body.WriteString(style.Render(line))
		body.WriteString("\n")
	}

	body.WriteString("\n")
	body.WriteString(mutedStyle.Render("[a]dd  [e]dit  [d]elete  [/] search"))

	title := fmt.Sprintf("Subscriptions (%d)", len(a.visible))
	list := components.ContentCard(title, body.String(), listW)
	if a.isCompactLayout() {
		return list
	}

	sel, ok := a.selectedSub()
	if !ok {
		return list
	}
	detail := components.ContentCard(sel.Name, a.renderSubDetail(sel), cw-listW)
	return components.CardRow([]string{list, detail})
}

func (a App) renderSubDetail(sub model.Subscription) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)

	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-12s", label)) + valueStyle.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(row("Price", cli.FormatPrice(sub)))
	b.WriteString(row("Monthly", cli.FormatEUR(pipeline.MonthlyCost(sub))))
	b.WriteString(row("Yearly", cli.FormatEUR(pipeline.MonthlyCost(sub)*12)))
	b.WriteString(row("Category", sub.CategoryOrDefault()))
	b.WriteString(row("Started", cli.FormatDate(sub.StartDate)))
	b.WriteString(row("Contract", cli.FormatTerm(sub)))

	if end, ok := pipeline.ContractEndDate(sub); ok {
		b.WriteString(row("Ends", cli.FormatDate(end)))
	}
	if deadline, ok := pipeline.CancellationDeadline(sub); ok {
		left := pipeline.DaysBetween(a.asOf(), deadline)
		b.WriteString(row("Cancel by", cli.FormatDate(deadline)+" ("+cli.FormatDaysLeft(left)+")"))
		if pipeline.DeadlineSoon(sub, a.asOf(), a.cfg.General.WarningDays) {
			b.WriteString("\n")
			b.WriteString(warnStyle.Render("⚠ Cancel now to avoid renewal"))
		}
	}
	if !pipeline.IsActive(sub, a.asOf()) {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Ended: deadline passed, not counted in totals"))
	}
	if pipeline.IsExpensive(sub, a.cfg.General.ExpensiveThreshold) {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Above the expensive threshold"))
	}
	return b.String()
}
