package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/aboradar/internal/config"
	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/tui/components"
	"github.com/theirongolddev/aboradar/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// setupValues holds the first-run answers. The form binds to its fields,
// so it lives behind a pointer that survives App copies.
type setupValues struct {
	Theme    string
	Budget   string
	Category string
	APIKey   string
	saveErr  error
}

func newSetupValues(cfg config.Config) *setupValues {
	v := &setupValues{
		Theme:    cfg.ThemeName(),
		Category: cfg.DefaultCategory(model.DefaultCategory),
		APIKey:   cfg.Gemini.APIKey,
	}
	if cfg.Budget.MonthlyEUR != nil {
		v.Budget = strconv.FormatFloat(*cfg.Budget.MonthlyEUR, 'f', -1, 64)
	}
	return v
}

// newSetupForm builds the first-run wizard.
func newSetupForm(v *setupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themes = append(themes, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to aboradar").
				Description("Track what your subscriptions cost and when you have to cancel them.\nA few questions, all of which can be changed later with `aboradar setup`."),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&v.Theme),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Monthly budget (€)").
				Description("Leave empty to disable budget tracking.").
				Placeholder("100").
				Value(&v.Budget).
				Validate(validateBudget),
			huh.NewInput().
				Title("Default category").
				Suggestions(model.Categories).
				Value(&v.Category),
			huh.NewInput().
				Title("Gemini API key").
				Description("Used to draft cancellation letters. GEMINI_API_KEY overrides it.").
				EchoMode(huh.EchoModePassword).
				Value(&v.APIKey),
		),
	).WithShowHelp(true)
}

func parseBudget(s string) (*float64, error) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseFloat(s, 64)
	if err != nil || b <= 0 {
		return nil, errors.New("enter a positive amount")
	}
	return &b, nil
}

func validateBudget(s string) error {
	_, err := parseBudget(s)
	return err
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if isEsc(msg) {
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}

	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.saveSetupConfig()
		a.needSetup = false
		a.setupForm = nil
		a.recompute()
		if err := a.setupVals.saveErr; err != nil {
			a.status = "Could not save config: " + err.Error()
		} else {
			a.status = "Saved " + config.ConfigPath()
		}
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}

	return a, cmd
}

func (a *App) saveSetupConfig() {
	a.cfg = a.setupVals.apply(a.cfg)
	theme.SetActive(a.cfg.Appearance.Theme)
	a.setupVals.saveErr = config.Save(a.cfg)
}

// apply copies the answers into cfg. An invalid budget keeps the old one.
func (v *setupValues) apply(cfg config.Config) config.Config {
	cfg.Appearance.Theme = v.Theme
	if budget, err := parseBudget(v.Budget); err == nil {
		cfg.Budget.MonthlyEUR = budget
	}
	cfg.General.DefaultCategory = strings.TrimSpace(v.Category)
	cfg.Gemini.APIKey = strings.TrimSpace(v.APIKey)
	return cfg
}

// RunSetup runs the setup wizard standalone on the terminal and returns the
// updated config. It does not save.
func RunSetup(cfg config.Config) (config.Config, error) {
	v := newSetupValues(cfg)
	if err := newSetupForm(v).WithTheme(huh.ThemeBase16()).Run(); err != nil {
		return cfg, err
	}
	return v.apply(cfg), nil
}

func (a App) viewSetup() string {
	t := theme.Active
	cw := a.contentWidth()

	title := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true).
		Render(fmt.Sprintf("◈ aboradar setup · %d subscriptions stored", len(a.subs)))
	card := components.ContentCard("", title+"\n\n"+a.setupForm.View(), cw)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}
