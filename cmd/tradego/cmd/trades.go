package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/venkat7568/tradego/ledger"
)

var (
	tradesDB   string
	tradesDate string
)

func init() {
	tradesCmd.Flags().StringVar(&tradesDB, "db", "tradego.db", "path to the trade database")
	tradesCmd.Flags().StringVar(&tradesDate, "date", "", "day to list, YYYY-MM-DD (default today)")
}

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List trades entered on a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := resolveDay(tradesDate)
		if err != nil {
			return err
		}

		store, err := ledger.NewSQLiteStore(tradesDB)
		if err != nil {
			return err
		}
		defer store.Close()

		period := ledger.Day(day)
		trades, err := store.TradesEnteredBetween(period.Start, period.End)
		if err != nil {
			return err
		}
		if len(trades) == 0 {
			fmt.Printf("no trades on %s\n", day.Format("2006-01-02"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tINSTRUMENT\tSTRATEGY\tDIR\tQTY\tENTRY\tEXIT\tSTATE\tREASON\tPNL")
		for _, t := range trades {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.2f\t%.2f\t%s\t%s\t%.2f\n",
				t.ID, t.Instrument, t.Strategy, t.Direction, t.Quantity,
				t.EntryPrice, t.ExitPrice, t.State, t.ExitReason, t.RealizedPnL)
		}
		return w.Flush()
	},
}
