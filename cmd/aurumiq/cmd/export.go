package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aurumiq/aurumiq/journal"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all closed legs to CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	trades, err := store.AllTrades()
	if err != nil {
		return err
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		out = f
	}

	return journal.WriteClosedLegsCSV(out, trades)
}
