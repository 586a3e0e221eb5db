package cmd

import (
	"fmt"

	"github.com/theirongolddev/aboradar/internal/config"
	"github.com/theirongolddev/aboradar/internal/tui"
	"github.com/theirongolddev/aboradar/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(appCfg.ThemeName())

	// Force TrueColor so background styling always emits ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	opts := tui.Options{
		DBPath:    dbPath(),
		Category:  flagCategory,
		Config:    appCfg,
		Generator: newGenerator(appCfg),
		NeedSetup: !config.Exists(),
	}
	if flagAsOf != "" {
		opts.AsOf = asOf()
	}
	if m := newMailer(appCfg); m != nil {
		opts.Mailer = m
	}

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
