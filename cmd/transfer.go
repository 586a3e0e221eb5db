package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/theirongolddev/aboradar/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagImportReplace bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import subscriptions from a JSON export (- for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export all subscriptions as JSON (stdout without FILE)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	importCmd.Flags().BoolVar(&flagImportReplace, "replace", false, "Delete existing data before importing")
	rootCmd.AddCommand(importCmd, exportCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	lr, err := store.DecodeJSON(data)
	if err != nil {
		return err
	}

	err = withStore(func(st *store.Store) error {
		if flagImportReplace {
			if err := st.DeleteAll(); err != nil {
				return err
			}
		}
		return st.PutAll(lr.Subscriptions)
	})
	if err != nil {
		return err
	}

	appLog.Info("import finished",
		zap.String("file", args[0]),
		zap.Int("imported", len(lr.Subscriptions)),
		zap.Int("dropped", lr.Dropped),
	)
	fmt.Printf("  Imported %d subscriptions", len(lr.Subscriptions))
	if lr.Dropped > 0 {
		fmt.Printf(", skipped %d invalid entries", lr.Dropped)
	}
	fmt.Println()
	return nil
}

func runExport(_ *cobra.Command, args []string) error {
	var lr store.LoadResult
	if err := withStore(func(st *store.Store) error {
		var err error
		lr, err = st.List()
		return err
	}); err != nil {
		return err
	}

	data, err := store.EncodeJSON(lr.Subscriptions)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if len(args) == 0 {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(args[0], data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", args[0], err)
	}
	fmt.Fprintf(os.Stderr, "  Exported %d subscriptions to %s\n", len(lr.Subscriptions), args[0])
	return nil
}
