// Package tui provides the interactive Bubble Tea dashboard for aboradar.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/aboradar/internal/config"
	"github.com/theirongolddev/aboradar/internal/gemini"
	"github.com/theirongolddev/aboradar/internal/letter"
	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/pipeline"
	"github.com/theirongolddev/aboradar/internal/store"
	"github.com/theirongolddev/aboradar/internal/tui/components"
	"github.com/theirongolddev/aboradar/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// DataLoadedMsg is sent when the store has been read, initially and after
// every mutation.
type DataLoadedMsg struct {
	Subscriptions []model.Subscription
	Dropped       int
	Theme         string
	Template      string
	LoadTime      time.Duration
	Status        string
	Err           error
}

// Options configures the dashboard.
type Options struct {
	DBPath    string
	AsOf      time.Time // zero means the wall clock
	Category  string
	Config    config.Config
	Generator gemini.Generator // nil disables letter generation
	Mailer    *letter.Mailer   // nil disables sending letters
	NeedSetup bool
}

// App is the root Bubble Tea model.
type App struct {
	opts Options
	cfg  config.Config

	// Data
	subs     []model.Subscription
	dropped  int
	template string
	loaded   bool
	loadTime time.Duration
	loadErr  error

	// Pre-computed for the current snapshot
	summary  model.Summary
	upcoming []model.UpcomingDeadline
	warnings []model.UpcomingDeadline
	savings  model.SavingsStats
	budget   model.BudgetStats
	visible  []model.Subscription

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	status    string

	// Per-tab state
	subsState subsState
	cancel    cancelState
	settings  settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *setupValues
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 160
	minContentHeight = 5

	generateTimeout = 60 * time.Second
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:      opts,
		cfg:       opts.Config,
		needSetup: opts.NeedSetup,
		spinner:   sp,
		settings:  settingsState{input: newSettingsInput()},
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts.DBPath, ""),
		a.spinner.Tick,
		tickCmd(),
	)
}

// asOf is the reference date of every computation.
func (a App) asOf() time.Time {
	if !a.opts.AsOf.IsZero() {
		return a.opts.AsOf
	}
	return time.Now()
}

func (a *App) recompute() {
	asOf := a.asOf()
	general := a.cfg.General

	subs := a.subs
	if a.opts.Category != "" {
		subs = pipeline.FilterByCategory(subs, a.opts.Category)
	}

	a.summary = pipeline.Aggregate(subs, asOf)
	a.upcoming = pipeline.UpcomingDeadlines(subs, asOf, general.UpcomingDays)
	a.warnings = nil
	for _, u := range a.upcoming {
		if u.DaysLeft <= general.WarningDays {
			a.warnings = append(a.warnings, u)
		}
	}
	a.savings = pipeline.SavingsPotential(subs, asOf, general.ExpensiveThreshold)
	a.budget = pipeline.ComputeBudget(a.summary, a.cfg.Budget.MonthlyEUR)

	a.visible = pipeline.SortByName(subs)
	if q := a.subsState.query; q != "" {
		a.visible = pipeline.FilterByName(a.visible, q)
	}

	a.subsState.cursor = clampCursor(a.subsState.cursor, len(a.visible))
	a.cancel.cursor = clampCursor(a.cancel.cursor, len(a.upcoming))
}

func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(a.formWidth())
		}
		a.cancel.viewport.Width = components.CardInnerWidth(a.contentWidth())
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil || a.formActive() {
			return a, nil
		}
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loaded = true
		a.loadTime = msg.LoadTime
		if msg.Err != nil {
			a.loadErr = msg.Err
			a.status = "Error: " + msg.Err.Error()
			return a, nil
		}
		a.loadErr = nil
		a.subs = msg.Subscriptions
		a.dropped = msg.Dropped
		a.template = msg.Template
		if msg.Theme != "" {
			theme.SetActive(msg.Theme)
		}
		if msg.Status != "" {
			a.status = msg.Status
		}
		a.recompute()

		if a.needSetup && a.setupForm == nil {
			a.setupVals = newSetupValues(a.cfg)
			a.setupForm = newSetupForm(a.setupVals).WithWidth(a.formWidth())
			return a, a.setupForm.Init()
		}
		return a, nil

	case letterMsg:
		return a.handleLetter(msg)

	case exportMsg:
		if msg.err != nil {
			a.status = "Error: " + msg.err.Error()
		} else {
			a.status = msg.status
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded || a.cancel.stage == stageGenerating {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		// Deadlines move with the calendar even when nothing is edited.
		if a.loaded && a.opts.AsOf.IsZero() {
			a.recompute()
		}
		return a, tickCmd()
	}

	// Forward everything else (cursor blinks) to the open form.
	return a.updateActiveForm(msg)
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	if a.setupForm != nil || a.formActive() {
		return a.updateActiveForm(msg)
	}

	// Text inputs capture every key while focused.
	if a.activeTab == components.TabSubscriptions && a.subsState.searching {
		return a.updateSubsSearch(msg)
	}
	if a.activeTab == components.TabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	var (
		handled bool
		next    tea.Model
		cmd     tea.Cmd
	)
	switch a.activeTab {
	case components.TabSubscriptions:
		next, cmd, handled = a.updateSubsKey(key)
	case components.TabCancellations:
		next, cmd, handled = a.updateCancelKey(key)
	case components.TabSettings:
		next, cmd, handled = a.updateSettingsKey(key)
	}
	if handled {
		return next, cmd
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		a.status = ""
		return a, loadDataCmd(a.opts.DBPath, "Reloaded")
	case "left", "shift+tab":
		a.switchTab((a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs))
		return a, nil
	case "right", "tab":
		a.switchTab((a.activeTab + 1) % len(components.Tabs))
		return a, nil
	}

	if r := []rune(key); len(r) == 1 {
		if idx := components.TabIdxByKey(r[0]); idx >= 0 {
			a.switchTab(idx)
		}
	}
	return a, nil
}

func (a *App) switchTab(idx int) {
	if idx != a.activeTab {
		a.status = ""
		a.subsState.confirmDelete = false
		a.settings.confirmReset = false
	}
	a.activeTab = idx
}

// formActive reports whether a tab's huh form owns the keyboard.
func (a App) formActive() bool {
	return a.subsState.form != nil || a.cancel.form != nil
}

// updateActiveForm routes a message to whichever form is open.
func (a App) updateActiveForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch {
	case a.setupForm != nil:
		return a.updateSetupForm(msg)
	case a.subsState.form != nil:
		return a.updateSubsForm(msg)
	case a.cancel.form != nil:
		return a.updateCancelForm(msg)
	}
	return a, nil
}

// isEsc reports whether msg is the escape key, which closes any form.
func isEsc(msg tea.Msg) bool {
	k, ok := msg.(tea.KeyMsg)
	return ok && k.String() == "esc"
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return a.moveCursor(-1), nil
	case tea.MouseButtonWheelDown:
		return a.moveCursor(1), nil
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.switchTab(tab)
			}
		}
	}
	return a, nil
}

func (a App) moveCursor(delta int) App {
	switch a.activeTab {
	case components.TabSubscriptions:
		a.subsState.cursor = clampCursor(a.subsState.cursor+delta, len(a.visible))
		a.subsState.confirmDelete = false
	case components.TabCancellations:
		if a.cancel.stage == stagePreview {
			if delta > 0 {
				a.cancel.viewport.ScrollDown(delta)
			} else {
				a.cancel.viewport.ScrollUp(-delta)
			}
			return a
		}
		a.cancel.cursor = clampCursor(a.cancel.cursor+delta, len(a.upcoming))
	case components.TabSettings:
		a.settings.cursor = clampCursor(a.settings.cursor+delta, settingsFieldCount)
	}
	return a
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

func (a App) formWidth() int {
	return max(components.CardInnerWidth(a.contentWidth()), 40)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.viewSetup()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  aboradar needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	h := max(a.height, 5)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	body := logoStyle.Render("◈ aboradar") +
		subtitleStyle.Render(" · Subscriptions & Deadlines") + "\n\n" +
		a.spinner.View() + subtitleStyle.Render(" Loading subscriptions...")

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"o s t c x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move in lists"},
		}},
		{"Subscriptions", [][2]string{
			{"a", "Add subscription"},
			{"e Enter", "Edit selected"},
			{"d", "Delete selected"},
			{"/", "Search by name"},
		}},
		{"Cancellations", [][2]string{
			{"g", "Generate letter template"},
			{"l", "Fill placeholders"},
			{"p m", "Export PDF / send mail"},
		}},
		{"General", [][2]string{
			{"Esc", "Back / Cancel"},
			{"r", "Reload data"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w)
	if a.opts.Category != "" {
		pill := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true).
			Width(w).Render(" category: " + a.opts.Category)
		header = lipgloss.JoinVertical(lipgloss.Left, header, pill)
	}

	dataAge := fmt.Sprintf("%d subs · %dms", len(a.subs), a.loadTime.Milliseconds())
	statusBar := components.RenderStatusBar(w, a.status, dataAge)

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case components.TabOverview:
		content = a.renderOverviewTab(cw)
	case components.TabSubscriptions:
		content = a.renderSubscriptionsTab(cw, contentH)
	case components.TabStats:
		content = a.renderStatsTab(cw, contentH)
	case components.TabCancellations:
		content = a.renderCancellationsTab(cw, contentH)
	case components.TabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataCmd reads subscriptions and dashboard settings from the store.
func loadDataCmd(dbPath, status string) tea.Cmd {
	return func() tea.Msg {
		return loadSnapshot(dbPath, status)
	}
}

func loadSnapshot(dbPath, status string) DataLoadedMsg {
	start := time.Now()

	st, err := store.Open(dbPath)
	if err != nil {
		return DataLoadedMsg{Err: err, LoadTime: time.Since(start)}
	}
	defer func() { _ = st.Close() }()

	lr, err := st.List()
	if err != nil {
		return DataLoadedMsg{Err: err, LoadTime: time.Since(start)}
	}
	themeName, _ := st.Setting(store.SettingTheme)
	tmpl, _ := st.Setting(store.SettingLetterTemplate)

	return DataLoadedMsg{
		Subscriptions: lr.Subscriptions,
		Dropped:       lr.Dropped,
		Theme:         themeName,
		Template:      tmpl,
		LoadTime:      time.Since(start),
		Status:        status,
	}
}

// mutateCmd applies fn to the store and reloads the snapshot.
func mutateCmd(dbPath, status string, fn func(*store.Store) error) tea.Cmd {
	return func() tea.Msg {
		st, err := store.Open(dbPath)
		if err != nil {
			return exportMsg{err: err}
		}
		err = fn(st)
		_ = st.Close()
		if err != nil {
			return exportMsg{err: err}
		}
		return loadSnapshot(dbPath, status)
	}
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}
