package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/theirongolddev/aboradar/internal/config"
	"github.com/theirongolddev/aboradar/internal/gemini"
	"github.com/theirongolddev/aboradar/internal/letter"
	"github.com/theirongolddev/aboradar/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagLetterType   string
	flagLetterHint   string
	flagLetterValues map[string]string
	flagLetterOut    string
	flagLetterTo     string
)

var letterCmd = &cobra.Command{
	Use:   "letter",
	Short: "Draft, fill and send cancellation letters",
}

var letterGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft a letter template with Gemini and store it",
	Args:  cobra.NoArgs,
	RunE:  runLetterGenerate,
}

var letterFillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Print the stored template with placeholders filled in",
	Args:  cobra.NoArgs,
	RunE:  runLetterFill,
}

var letterPDFCmd = &cobra.Command{
	Use:   "pdf [FILE]",
	Short: "Write the filled letter as an A4 PDF",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLetterPDF,
}

var letterMailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Send the filled letter by SMTP with the PDF attached",
	Args:  cobra.NoArgs,
	RunE:  runLetterMail,
}

func init() {
	letterGenerateCmd.Flags().StringVarP(&flagLetterType, "type", "t", gemini.ContractTypes[len(gemini.ContractTypes)-1],
		"Contract type: "+strings.Join(gemini.ContractTypes, ", "))
	letterGenerateCmd.Flags().StringVar(&flagLetterHint, "hint", "", "Extra instructions, e.g. the provider name")

	for _, c := range []*cobra.Command{letterFillCmd, letterPDFCmd, letterMailCmd} {
		c.Flags().StringToStringVar(&flagLetterValues, "set", nil,
			"Placeholder values, e.g. --set Vorname=Max --set Kundennummer=123")
	}
	letterFillCmd.Flags().StringVarP(&flagLetterOut, "out", "o", "", "Write to file instead of stdout")
	letterMailCmd.Flags().StringVar(&flagLetterTo, "to", "", "Recipient (default [mail] to)")

	letterCmd.AddCommand(letterGenerateCmd, letterFillCmd, letterPDFCmd, letterMailCmd)
	rootCmd.AddCommand(letterCmd)
}

// newGenerator returns the configured Gemini client behind a session cache,
// or nil without an API key.
func newGenerator(cfg config.Config) gemini.Generator {
	var opts []gemini.Option
	if cfg.Gemini.Model != "" {
		opts = append(opts, gemini.WithModel(cfg.Gemini.Model))
	}
	if cfg.Gemini.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	}
	client := gemini.NewClient(config.GetGeminiAPIKey(cfg), opts...)
	if client == nil {
		return nil
	}
	return gemini.NewCachedGenerator(client, time.Hour)
}

// newMailer returns an SMTP mailer, or nil when [mail] is incomplete.
func newMailer(cfg config.Config) *letter.Mailer {
	if !cfg.MailConfigured() {
		return nil
	}
	port := cfg.Mail.Port
	if port == 0 {
		port = 587
	}
	return letter.NewMailer(cfg.Mail.Host, port, cfg.Mail.Username, config.GetSMTPPassword(cfg), cfg.Mail.From, cfg.Mail.To)
}

func runLetterGenerate(_ *cobra.Command, _ []string) error {
	if !slices.Contains(gemini.ContractTypes, flagLetterType) {
		return fmt.Errorf("unknown contract type %q (want one of %s)", flagLetterType, strings.Join(gemini.ContractTypes, ", "))
	}
	gen := newGenerator(appCfg)
	if gen == nil {
		return errors.New("no Gemini API key: set GEMINI_API_KEY or [gemini] api_key")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	appLog.Info("generating letter", zap.String("type", flagLetterType))
	text, err := gen.GenerateLetter(ctx, flagLetterType, flagLetterHint)
	if err != nil {
		return err
	}

	if err := withStore(func(st *store.Store) error {
		return st.SetSetting(store.SettingLetterTemplate, text)
	}); err != nil {
		return fmt.Errorf("storing template: %w", err)
	}

	fmt.Println(text)
	fmt.Fprintln(os.Stderr, "\n  Template stored. Fill it with `aboradar letter fill --set Key=Value`.")
	return nil
}

// filledLetter loads the stored template and substitutes --set values over
// the defaults. Unknown keys are rejected.
func filledLetter() (string, error) {
	var tmpl string
	if err := withStore(func(st *store.Store) error {
		var err error
		tmpl, err = st.Setting(store.SettingLetterTemplate)
		return err
	}); err != nil {
		return "", err
	}
	if strings.TrimSpace(tmpl) == "" {
		return "", errors.New("no letter template stored; run `aboradar letter generate` first")
	}

	values := letter.DefaultValues(time.Now())
	for k, v := range flagLetterValues {
		if _, ok := values[k]; !ok {
			return "", fmt.Errorf("unknown placeholder %q (known: %s)", k, strings.Join(letter.Keys, ", "))
		}
		values[k] = v
	}

	text := letter.Fill(tmpl, values)
	if missing := letter.Missing(text); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "  Still unfilled: %s\n", strings.Join(missing, ", "))
	}
	return text, nil
}

func runLetterFill(_ *cobra.Command, _ []string) error {
	text, err := filledLetter()
	if err != nil {
		return err
	}
	if flagLetterOut == "" {
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(flagLetterOut, []byte(text+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", flagLetterOut, err)
	}
	fmt.Printf("  Saved %s\n", flagLetterOut)
	return nil
}

func runLetterPDF(_ *cobra.Command, args []string) error {
	text, err := filledLetter()
	if err != nil {
		return err
	}
	path := letter.DefaultPDFName
	if len(args) == 1 {
		path = args[0]
	}
	if err := letter.WritePDF(path, text); err != nil {
		return err
	}
	fmt.Printf("  Saved %s\n", path)
	return nil
}

func runLetterMail(_ *cobra.Command, _ []string) error {
	mailer := newMailer(appCfg)
	if mailer == nil {
		return errors.New("mail is not configured: set [mail] host and from in " + config.ConfigPath())
	}
	text, err := filledLetter()
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "aboradar-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	pdf := filepath.Join(dir, letter.DefaultPDFName)
	if err := letter.WritePDF(pdf, text); err != nil {
		return err
	}
	if err := mailer.Send(flagLetterTo, letter.MailSubject, text, pdf); err != nil {
		return err
	}

	appLog.Info("letter mailed", zap.String("to", flagLetterTo))
	fmt.Println("  Letter sent.")
	return nil
}
