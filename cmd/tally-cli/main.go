// tally-cli administers a tally database without running the server: export
// and import backups, inspect totals, or wipe everything.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"tally/internal/core"
	"tally/internal/report"
	"tally/internal/storage"
	"tally/internal/store"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "tally-cli",
	Short: "Administer a tally database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [output_file]",
	Short: "Export all data as a JSON backup document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, gateway, closeDB, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDB()

		doc, err := gateway.Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}

		if len(args) == 0 {
			fmt.Println(string(doc))
			return nil
		}
		if err := os.WriteFile(args[0], doc, 0644); err != nil {
			return fmt.Errorf("write %s: %w", args[0], err)
		}
		newLogger().Info("export written", "file", args[0], "bytes", len(doc))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <backup_file>",
	Short: "Replace all data with a previously exported backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		st, gateway, closeDB, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := gateway.Import(cmd.Context(), payload); err != nil {
			return fmt.Errorf("import %s: %w", args[0], err)
		}
		newLogger().Info("import complete",
			"transactions", len(st.Transactions()),
			"categories", len(st.Categories()),
			"currency", st.Currency())
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored data and reset to defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to clear without --yes")
		}

		_, gateway, closeDB, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDB()

		gateway.ClearAll(cmd.Context())
		newLogger().Info("all data cleared", "db", dbPath)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print income, expense and balance totals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, _, closeDB, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDB()

		sum := report.Summarize(st.Snapshot())
		fmt.Printf("Transactions: %d\n", sum.Count)
		fmt.Printf("Income:       %s\n", core.FormatAmount(sum.Currency, sum.Income))
		fmt.Printf("Expenses:     %s\n", core.FormatAmount(sum.Currency, sum.Expenses))
		fmt.Printf("Balance:      %s\n", core.FormatAmount(sum.Currency, sum.Balance))
		if len(sum.ByCategory) > 0 {
			fmt.Println("\nExpenses by category:")
			for _, c := range sum.ByCategory {
				fmt.Printf("  %-20s %s\n", c.Name, core.FormatAmount(sum.Currency, c.Amount))
			}
		}
		return nil
	},
}

// openDatabase loads the sqlite database into a fresh store through the
// gateway, exactly as the server does on boot.
func openDatabase() (*store.Store, *storage.Gateway, func(), error) {
	kv, err := storage.NewSQLiteKV(dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s: %w", dbPath, err)
	}

	st := store.New()
	gateway := storage.NewGateway(kv, st)
	gateway.Init(context.Background())

	return st, gateway, func() { _ = kv.Close() }, nil
}

func newLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "tally-cli",
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "./data/tally.db", "Path to the SQLite database")
	clearCmd.Flags().Bool("yes", false, "Confirm deletion of all data")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(summaryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
