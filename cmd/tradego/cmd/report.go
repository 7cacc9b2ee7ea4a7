package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/venkat7568/tradego/ledger"
)

var (
	reportDB      string
	reportDate    string
	reportCapital float64
)

func init() {
	reportCmd.Flags().StringVar(&reportDB, "db", "tradego.db", "path to the trade database")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "day to report, YYYY-MM-DD (default today)")
	reportCmd.Flags().Float64Var(&reportCapital, "capital", 1_000_000, "starting capital for ratios")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the portfolio summary for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := resolveDay(reportDate)
		if err != nil {
			return err
		}

		store, err := ledger.NewSQLiteStore(reportDB)
		if err != nil {
			return err
		}
		defer store.Close()

		book, err := ledger.New(store, reportCapital, ledger.DefaultCosts(), zerolog.Nop())
		if err != nil {
			return err
		}

		snap := book.Snapshot(ledger.Day(day))

		fmt.Printf("Portfolio for %s\n\n", day.Format("2006-01-02"))
		fmt.Printf("  starting capital   %14.2f\n", snap.StartingCapital)
		fmt.Printf("  deployed capital   %14.2f\n", snap.DeployedCapital)
		fmt.Printf("  realized pnl       %14.2f\n", snap.RealizedPnL)
		fmt.Printf("  unrealized pnl     %14.2f\n", snap.UnrealizedPnL)
		fmt.Printf("  open positions     %14d\n", snap.OpenCount)
		fmt.Printf("  heat               %14.2f\n", snap.Heat)
		fmt.Printf("  win rate           %13.1f%%\n", snap.WinRate*100)
		fmt.Printf("  profit factor      %14.2f\n\n", snap.ProfitFactor)
		fmt.Printf("  intraday: %d trades, %d wins, pnl %.2f\n",
			snap.Intraday.Trades, snap.Intraday.Wins, snap.Intraday.PnL)
		fmt.Printf("  carry:    %d trades, %d wins, pnl %.2f\n",
			snap.Carry.Trades, snap.Carry.Wins, snap.Carry.PnL)
		return nil
	},
}

func resolveDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return day, nil
}
