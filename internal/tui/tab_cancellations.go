package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/gemini"
	"github.com/theirongolddev/aboradar/internal/letter"
	"github.com/theirongolddev/aboradar/internal/store"
	"github.com/theirongolddev/aboradar/internal/tui/components"
	"github.com/theirongolddev/aboradar/internal/tui/theme"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Cancellations tab stages.
const (
	stageList = iota
	stageGenerating
	stagePreview
)

// Forms of the cancellations tab.
const (
	formGenerate = iota
	formFill
)

// cancelState holds the cancellations tab state.
type cancelState struct {
	cursor int
	stage  int

	form     *huh.Form
	formKind int
	genVals  *genValues
	fillVals map[string]*string

	letter   string // text shown in the preview
	filled   bool   // letter has gone through the placeholder form
	viewport viewport.Model
}

type genValues struct {
	ContractType string
	Hint         string
}

// letterMsg carries a generated template.
type letterMsg struct {
	text string
	err  error
}

// exportMsg reports the outcome of a file or mail export.
type exportMsg struct {
	status string
	err    error
}

func (a App) updateCancelKey(key string) (tea.Model, tea.Cmd, bool) {
	cs := &a.cancel

	switch cs.stage {
	case stageGenerating:
		// Keys other than global ones are ignored while waiting.
		return a, nil, key != "q" && key != "ctrl+c"

	case stagePreview:
		switch key {
		case "esc":
			cs.stage = stageList
		case "j", "down":
			cs.viewport.ScrollDown(1)
		case "k", "up":
			cs.viewport.ScrollUp(1)
		case "l":
			return a.openFillForm()
		case "p":
			return a, exportPDFCmd(cs.letter), true
		case "m":
			if a.opts.Mailer == nil {
				a.status = "Mail is not configured (config section [mail])"
				return a, nil, true
			}
			a.status = "Sending..."
			return a, sendMailCmd(a.opts.Mailer, cs.letter), true
		case "u":
			a.status = truncStr(letter.MailtoURL(cs.letter), a.width-40)
		default:
			return a, nil, false
		}
		return a, nil, true
	}

	switch key {
	case "j", "down":
		cs.cursor = clampCursor(cs.cursor+1, len(a.upcoming))
	case "k", "up":
		cs.cursor = clampCursor(cs.cursor-1, len(a.upcoming))
	case "g":
		if a.opts.Generator == nil {
			a.status = "Set GEMINI_API_KEY to generate letters"
			return a, nil, true
		}
		return a.openGenerateForm()
	case "l":
		return a.openFillForm()
	case "enter", "v":
		if a.template == "" {
			a.status = "No letter template yet, press [g]"
			return a, nil, true
		}
		a.openPreview(a.template, false)
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) selectedUpcomingName() string {
	if a.cancel.cursor < 0 || a.cancel.cursor >= len(a.upcoming) {
		return ""
	}
	return a.upcoming[a.cancel.cursor].Subscription.Name
}

func (a App) openGenerateForm() (tea.Model, tea.Cmd, bool) {
	vals := &genValues{ContractType: gemini.ContractTypes[len(gemini.ContractTypes)-1], Hint: a.selectedUpcomingName()}

	types := make([]huh.Option[string], 0, len(gemini.ContractTypes))
	for _, ct := range gemini.ContractTypes {
		types = append(types, huh.NewOption(ct, ct))
	}

	a.cancel.genVals = vals
	a.cancel.formKind = formGenerate
	a.cancel.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Contract type").
				Options(types...).
				Value(&vals.ContractType),
			huh.NewInput().
				Title("Details").
				Description("Provider name or anything the letter should mention.").
				Value(&vals.Hint),
		),
	).WithShowHelp(true).WithWidth(a.formWidth())
	return a, a.cancel.form.Init(), true
}

func (a App) openFillForm() (tea.Model, tea.Cmd, bool) {
	if a.template == "" {
		a.status = "No letter template yet, press [g]"
		return a, nil, true
	}

	defaults := letter.DefaultValues(a.asOf())
	if name := a.selectedUpcomingName(); name != "" {
		defaults["AnbieterName"] = name
	}

	a.cancel.fillVals = make(map[string]*string, len(letter.Keys))
	inputs := make([]huh.Field, 0, len(letter.Keys))
	for _, k := range letter.Keys {
		v := defaults[k]
		a.cancel.fillVals[k] = &v
		inputs = append(inputs, huh.NewInput().Title(letter.Labels[k]).Value(&v))
	}

	// Provider, sender, then contract details.
	a.cancel.formKind = formFill
	a.cancel.form = huh.NewForm(
		huh.NewGroup(inputs[:3]...).Title("Provider"),
		huh.NewGroup(inputs[3:8]...).Title("Sender"),
		huh.NewGroup(inputs[8:]...).Title("Contract"),
	).WithShowHelp(true).WithWidth(a.formWidth())
	return a, a.cancel.form.Init(), true
}

func (a App) updateCancelForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	cs := &a.cancel
	if isEsc(msg) {
		cs.form = nil
		return a, nil
	}

	f, cmd := cs.form.Update(msg)
	if hf, ok := f.(*huh.Form); ok {
		cs.form = hf
	}

	switch cs.form.State {
	case huh.StateCompleted:
		cs.form = nil
		if cs.formKind == formGenerate {
			cs.stage = stageGenerating
			a.status = ""
			return a, tea.Batch(
				generateLetterCmd(a.opts.Generator, a.opts.DBPath, cs.genVals.ContractType, cs.genVals.Hint),
				a.spinner.Tick,
			)
		}
		values := make(letter.Values, len(cs.fillVals))
		for k, p := range cs.fillVals {
			values[k] = strings.TrimSpace(*p)
		}
		a.openPreview(letter.Fill(a.template, values), true)
		if missing := letter.Missing(cs.letter); len(missing) > 0 {
			a.status = fmt.Sprintf("%d placeholder(s) still empty", len(missing))
		}
		return a, nil
	case huh.StateAborted:
		cs.form = nil
		return a, nil
	}
	return a, cmd
}

func (a App) handleLetter(msg letterMsg) (tea.Model, tea.Cmd) {
	a.cancel.stage = stageList
	if msg.err != nil {
		a.status = "Letter generation failed: " + msg.err.Error()
		return a, nil
	}
	a.template = msg.text
	a.openPreview(msg.text, false)
	a.status = "Template ready, press [l] to fill in your details"
	return a, nil
}

func (a *App) openPreview(text string, filled bool) {
	w := components.CardInnerWidth(a.contentWidth())
	vp := viewport.New(w, max(a.height-8, 5))
	vp.SetContent(lipgloss.NewStyle().Width(w).Render(text))

	a.cancel.letter = text
	a.cancel.filled = filled
	a.cancel.viewport = vp
	a.cancel.stage = stagePreview
}

// generateLetterCmd asks the generator for a template and stores it.
func generateLetterCmd(gen gemini.Generator, dbPath, contractType, hint string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		defer cancel()

		text, err := gen.GenerateLetter(ctx, contractType, hint)
		if err != nil {
			return letterMsg{err: err}
		}

		st, err := store.Open(dbPath)
		if err != nil {
			return letterMsg{text: text}
		}
		defer func() { _ = st.Close() }()
		_ = st.SetSetting(store.SettingLetterTemplate, text)

		return letterMsg{text: text}
	}
}

func exportPDFCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := letter.WritePDF(letter.DefaultPDFName, text); err != nil {
			return exportMsg{err: err}
		}
		abs, _ := filepath.Abs(letter.DefaultPDFName)
		return exportMsg{status: "Saved " + abs}
	}
}

func sendMailCmd(m *letter.Mailer, text string) tea.Cmd {
	return func() tea.Msg {
		dir, err := os.MkdirTemp("", "aboradar-")
		if err != nil {
			return exportMsg{err: err}
		}
		defer func() { _ = os.RemoveAll(dir) }()

		pdf := filepath.Join(dir, letter.DefaultPDFName)
		if err := letter.WritePDF(pdf, text); err != nil {
			return exportMsg{err: err}
		}
		if err := m.Send("", letter.MailSubject, text, pdf); err != nil {
			return exportMsg{err: err}
		}
		return exportMsg{status: "Letter sent"}
	}
}

func (a App) renderCancellationsTab(cw, h int) string {
	t := theme.Active
	cs := a.cancel

	if cs.form != nil {
		title := "Generate cancellation letter"
		if cs.formKind == formFill {
			title = "Fill in your details"
		}
		return components.ContentCard(title, cs.form.View(), cw)
	}

	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	alertStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)

	switch cs.stage {
	case stageGenerating:
		body := a.spinner.View() + mutedStyle.Render(" Drafting a letter template...")
		return components.ContentCard("Cancellation letter", body, cw)

	case stagePreview:
		title := "Letter template"
		hints := "[l] fill placeholders  [p] PDF  [m] mail  [u] mailto link  [Esc] back"
		if cs.filled {
			title = "Cancellation letter"
		}
		body := cs.viewport.View() + "\n\n" + mutedStyle.Render(hints)
		return components.ContentCard(title, body, cw)
	}

	inner := components.CardInnerWidth(cw)
	nameW := max(inner-12-12-14-4, 10)

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %11s %13s %11s", nameW, "Name", "Cancel by", "Days left", "Ends")))
	body.WriteString("\n")
	if len(a.upcoming) == 0 {
		body.WriteString(mutedStyle.Render(fmt.Sprintf("No cancellation deadlines in the next %d days.", a.cfg.General.UpcomingDays)))
		body.WriteString("\n")
	}

	visibleRows := max(h-9, 3)
	offset := 0
	if cs.cursor >= visibleRows {
		offset = cs.cursor - visibleRows + 1
	}
	end := min(offset+visibleRows, len(a.upcoming))
	for i := offset; i < end; i++ {
		u := a.upcoming[i]
		line := fmt.Sprintf("%-*s %11s %13s %11s",
			nameW, truncStr(u.Subscription.Name, nameW),
			cli.FormatDate(u.Deadline),
			cli.FormatDaysLeft(u.DaysLeft),
			cli.FormatDate(u.EndDate))

		style := rowStyle
		switch {
		case i == cs.cursor:
			style = selectedStyle
		case u.DaysLeft <= a.cfg.General.WarningDays:
			style = alertStyle
		}
		body.WriteString(style.Render(line))
		body.WriteString("\n")
	}

	body.WriteString("\n")
	if a.template != "" {
		body.WriteString(accentStyle.Render("Letter template stored"))
		body.WriteString(mutedStyle.Render(fmt.Sprintf(" · %d placeholders", len(letter.Missing(a.template)))))
	} else {
		body.WriteString(mutedStyle.Render("No letter template yet"))
	}
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render("[g] generate template  [l] fill & export  [Enter] view template"))

	title := fmt.Sprintf("Upcoming cancellations (next %d days)", a.cfg.General.UpcomingDays)
	return components.ContentCard(title, body.String(), cw)
}
