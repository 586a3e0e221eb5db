package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/config"
	"github.com/theirongolddev/aboradar/internal/store"
	"github.com/theirongolddev/aboradar/internal/tui/components"
	"github.com/theirongolddev/aboradar/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldTheme = iota
	settingsFieldBudget
	settingsFieldWarningDays
	settingsFieldUpcomingDays
	settingsFieldThreshold
	settingsFieldDeleteAll
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor       int
	editing      bool
	input        textinput.Model
	confirmReset bool
	saveErr      error
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 20
	return ti
}

func (a App) updateSettingsKey(key string) (tea.Model, tea.Cmd, bool) {
	st := &a.settings

	if st.confirmReset {
		st.confirmReset = false
		if key != "y" {
			a.status = "Delete cancelled"
			return a, nil, true
		}
		return a, mutateCmd(a.opts.DBPath, "All data deleted", func(s *store.Store) error {
			return s.DeleteAll()
		}), true
	}

	switch key {
	case "j", "down":
		st.cursor = clampCursor(st.cursor+1, settingsFieldCount)
	case "k", "up":
		st.cursor = clampCursor(st.cursor-1, settingsFieldCount)
	case "enter", " ":
		switch st.cursor {
		case settingsFieldTheme:
			return a, a.toggleTheme(), true
		case settingsFieldDeleteAll:
			st.confirmReset = true
			a.status = fmt.Sprintf("Delete all %d subscriptions and the letter template? [y] to confirm", len(a.subs))
		default:
			return a.settingsStartEdit()
		}
	default:
		return a, nil, false
	}
	return a, nil, true
}

// toggleTheme flips dark/light and persists the choice in the store, where
// it overrides the configured default on the next start.
func (a *App) toggleTheme() tea.Cmd {
	name := theme.Toggle()
	a.spinner.Style = a.spinner.Style.Foreground(theme.Active.Accent).Background(theme.Active.Surface)
	return mutateCmd(a.opts.DBPath, "Theme: "+name, func(s *store.Store) error {
		return s.SetSetting(store.SettingTheme, name)
	})
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd, bool) {
	g := a.cfg.General
	ti := newSettingsInput()

	switch a.settings.cursor {
	case settingsFieldBudget:
		ti.Placeholder = "monthly €, empty to clear"
		if a.cfg.Budget.MonthlyEUR != nil {
			ti.SetValue(strconv.FormatFloat(*a.cfg.Budget.MonthlyEUR, 'f', -1, 64))
		}
	case settingsFieldWarningDays:
		ti.SetValue(strconv.Itoa(g.WarningDays))
	case settingsFieldUpcomingDays:
		ti.SetValue(strconv.Itoa(g.UpcomingDays))
	case settingsFieldThreshold:
		ti.SetValue(strconv.FormatFloat(g.ExpensiveThreshold, 'f', -1, 64))
	}

	a.settings.editing = true
	a.settings.saveErr = nil
	ti.Focus()
	a.settings.input = ti
	return a, textinput.Blink, true
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settings.editing = false
		if err := a.settingsSave(strings.TrimSpace(a.settings.input.Value())); err != nil {
			a.settings.saveErr = err
			a.status = "Save failed: " + err.Error()
			return a, nil
		}
		a.recompute()
		a.status = "Saved"
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates val for the selected field and writes the config.
func (a *App) settingsSave(val string) error {
	cfg := a.cfg

	positiveInt := func() (int, error) {
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%q is not a number of days", val)
		}
		return n, nil
	}

	switch a.settings.cursor {
	case settingsFieldBudget:
		b, err := parseBudget(val)
		if err != nil {
			return err
		}
		cfg.Budget.MonthlyEUR = b
	case settingsFieldWarningDays:
		n, err := positiveInt()
		if err != nil {
			return err
		}
		cfg.General.WarningDays = n
	case settingsFieldUpcomingDays:
		n, err := positiveInt()
		if err != nil {
			return err
		}
		cfg.General.UpcomingDays = n
	case settingsFieldThreshold:
		f, err := strconv.ParseFloat(strings.Replace(val, ",", ".", 1), 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%q is not an amount", val)
		}
		cfg.General.ExpensiveThreshold = f
	}

	if err := config.Save(cfg); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)
	dangerStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)

	budget := "(not set)"
	if a.cfg.Budget.MonthlyEUR != nil {
		budget = cli.FormatEUR(*a.cfg.Budget.MonthlyEUR)
	}

	fields := []struct{ label, value string }{
		{"Theme", theme.Active.Name + "  (Enter to toggle)"},
		{"Monthly budget", budget},
		{"Warn days ahead", strconv.Itoa(a.cfg.General.WarningDays)},
		{"Upcoming window", fmt.Sprintf("%d days", a.cfg.General.UpcomingDays)},
		{"Expensive above", cli.FormatEUR(a.cfg.General.ExpensiveThreshold) + " / month"},
		{"Delete all data", fmt.Sprintf("%d subscriptions", len(a.subs))},
	}

	innerW := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			form.WriteString(a.settings.input.View())
			form.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			line := markerStyle.Render("▸ ") +
				selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")) +
				selectedStyle.Render(f.value)
			if pad := innerW - lipgloss.Width(line); pad > 0 {
				line += lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad))
			}
			form.WriteString(line)
		} else {
			label := labelStyle
			if i == settingsFieldDeleteAll {
				label = dangerStyle
			}
			form.WriteString(labelStyle.Render("  "))
			form.WriteString(label.Render(fmt.Sprintf("%-18s ", f.label+":")))
			form.WriteString(valueStyle.Render(f.value))
		}
		form.WriteString("\n")
	}
	form.WriteString("\n")
	form.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit / toggle  [Esc] cancel"))

	mailState := "not configured"
	if a.opts.Mailer != nil {
		mailState = a.cfg.Mail.Host
	}
	letters := "disabled (no API key)"
	if a.opts.Generator != nil {
		letters = "Gemini " + a.cfg.Gemini.Model
	}

	var info strings.Builder
	row := func(label, value string) {
		info.WriteString(labelStyle.Render(fmt.Sprintf("%-18s", label)) + valueStyle.Render(value) + "\n")
	}
	row("Database:", a.opts.DBPath)
	row("Config file:", config.ConfigPath())
	row("Subscriptions:", fmt.Sprintf("%d stored, %d skipped", len(a.subs), a.dropped))
	row("Load time:", fmt.Sprintf("%dms", a.loadTime.Milliseconds()))
	row("Letters:", letters)
	info.WriteString(labelStyle.Render(fmt.Sprintf("%-18s", "Mail:")) + valueStyle.Render(mailState))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", form.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", info.String(), cw))
	return b.String()
}
