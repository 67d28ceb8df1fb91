package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aurumiq/aurumiq/journal"
	"github.com/aurumiq/aurumiq/pnl"
)

var (
	journalPage     int
	journalPageSize int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trades and analytics from the command line",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Show a single trade with all its legs",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print realized PnL analytics across all trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalSummary,
}

func init() {
	journalListCmd.Flags().IntVar(&journalPage, "page", 1, "page number")
	journalListCmd.Flags().IntVar(&journalPageSize, "page-size", 10, "trades per page")

	journalCmd.AddCommand(journalListCmd, journalShowCmd, journalSummaryCmd)
	rootCmd.AddCommand(journalCmd)
}

func openStore() (journal.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := journal.NewSQLite(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	trades, total, err := store.ListTrades(journalPage, journalPageSize)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLEGS\tSTATUS\tREALIZED PNL")
	for _, t := range trades {
		view := pnl.BuildTradeView(t.Legs, nil)
		status := "closed"
		if view.IsOpen {
			status = "open"
		}
		realized := view.PnL.StringFixed(2)
		if view.Partial {
			realized += " (partial)"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", t.TradeID, t.Name, view.LegCount, status, realized)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("page %d of %d trades\n", journalPage, total)
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	tradeID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid trade id %q", args[0])
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	trade, err := store.GetTrade(tradeID)
	if err != nil {
		return err
	}

	fmt.Printf("Trade %d: %s\n", trade.TradeID, trade.Name)
	if trade.Description != "" {
		fmt.Println(trade.Description)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tQTY\tENTRY\tENTRY PRICE\tEXIT\tEXIT PRICE\tPNL")
	for _, leg := range trade.Legs {
		exitDate, exitPrice, legPnL := "-", "-", "-"
		if leg.ExitDate != nil {
			exitDate = leg.ExitDate.Format("2006-01-02")
		}
		if leg.ExitPrice != nil {
			exitPrice = leg.ExitPrice.StringFixed(2)
		}
		if v, ok := pnl.LegPnL(leg, nil); ok {
			legPnL = v.StringFixed(2)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			leg.Ticker, leg.Quantity,
			leg.EntryDate.Format("2006-01-02"), leg.EntryPrice.StringFixed(2),
			exitDate, exitPrice, legPnL)
	}
	return w.Flush()
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	trades, err := store.AllTrades()
	if err != nil {
		return err
	}

	s := pnl.Summarize(trades)
	fmt.Printf("open trades:    %d (realized so far %s)\n", s.TotalOpenTrades, s.OpenTradesPnL.StringFixed(2))
	fmt.Printf("closed trades:  %d (realized %s)\n", s.TotalClosedTrades, s.ClosedTradesPnL.StringFixed(2))
	fmt.Printf("overall pnl:    %s\n", s.OverallPnL.StringFixed(2))

	if len(s.PnLOverTime) > 0 {
		fmt.Println("\nrealized pnl by exit month:")
		for _, m := range s.PnLOverTime {
			fmt.Printf("  %s  %s\n", m.Month, m.PnL.StringFixed(2))
		}
	}
	return nil
}
