// Package cmd implements the aboradar CLI commands.
package cmd

import (
	"fmt"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Printf("  Database:    %s\n", dbPath())
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default category:    %s\n", cfg.DefaultCategory("(none)"))
	fmt.Printf("    Warning days:        %d\n", cfg.General.WarningDays)
	fmt.Printf("    Upcoming window:     %d days\n", cfg.General.UpcomingDays)
	fmt.Printf("    Expensive threshold: %s\n", cli.FormatEUR(cfg.General.ExpensiveThreshold))
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.ThemeName())
	fmt.Println()

	fmt.Println("  [Budget]")
	if cfg.Budget.MonthlyEUR != nil {
		fmt.Printf("    Monthly budget: %s\n", cli.FormatEUR(*cfg.Budget.MonthlyEUR))
	} else {
		fmt.Println("    Monthly budget: not set")
	}
	fmt.Println()

	fmt.Println("  [Gemini]")
	if key := config.GetGeminiAPIKey(cfg); key != "" {
		fmt.Printf("    API key: %s\n", maskAPIKey(key))
	} else {
		fmt.Println("    API key: not configured")
	}
	if cfg.Gemini.Model != "" {
		fmt.Printf("    Model:   %s\n", cfg.Gemini.Model)
	}
	fmt.Println()

	fmt.Println("  [Mail]")
	if cfg.MailConfigured() {
		fmt.Printf("    Server: %s:%d as %s\n", cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.From)
	} else {
		fmt.Println("    Server: not configured")
	}
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %ds\n", cfg.Daemon.IntervalSec)
	if cfg.Daemon.DigestSchedule != "" {
		fmt.Printf("    Digest:   %s\n", cfg.Daemon.DigestSchedule)
	}
	fmt.Println()

	fmt.Println("  Run `aboradar setup` to reconfigure.")
	return nil
}
