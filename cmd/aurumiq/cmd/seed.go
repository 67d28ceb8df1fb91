package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aurumiq/aurumiq/journal"
)

var seedCmd = &cobra.Command{
	Use:   "seed <fixtures.yaml>",
	Short: "Load trades and snapshots from a YAML fixture file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sf, err := journal.LoadSeedFile(args[0])
	if err != nil {
		return err
	}

	store, err := journal.NewSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	tradeCount, snapshotCount, err := sf.Apply(store)
	if err != nil {
		return err
	}

	fmt.Printf("seeded %d trades and %d snapshots into %s\n", tradeCount, snapshotCount, cfg.Database.Path)
	return nil
}
