package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aurumiq/aurumiq/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aurumiq",
	Short: "Single-user trading journal and analytics backend",
	Long: `Aurumiq is a trading journal: record multi-leg trades and price
snapshots, browse them over a REST API, and track realized and unrealized
profit-and-loss reconciled against live broker quotes.

Subcommands:
  serve    - run the REST API and quote poller
  seed     - load trades and snapshots from a YAML fixture file
  journal  - query trades and analytics from the command line
  export   - write closed legs to CSV`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./aurumiq.yaml)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
