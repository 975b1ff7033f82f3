package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/vendbot/internal/state"
	"github.com/user/vendbot/internal/types"
)

func init() {
	rootCmd.AddCommand(salesCmd)
	salesCmd.AddCommand(salesListCmd, salesSummaryCmd)

	salesListCmd.Flags().Int("limit", 20, "maximum number of sales to show")
	salesSummaryCmd.Flags().Duration("window", 24*time.Hour, "how far back to summarize")
}

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Inspect the sales ledger",
}

var salesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sales",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		sales, err := state.NewSalesLedger(db).List(ctx, limit)
		if err != nil {
			return fmt.Errorf("list sales: %w", err)
		}
		if len(sales) == 0 {
			fmt.Println("No sales recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LINK\tBUYER\tITEM\tAMOUNT\tAT")
		for _, s := range sales {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
				s.LinkID,
				s.BuyerID,
				s.ItemID,
				types.FormatRupees(s.AmountMinor),
				s.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var salesSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize sales over a window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		window, _ := cmd.Flags().GetDuration("window")

		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		summary, err := state.NewSalesLedger(db).Summarize(ctx, time.Now().Add(-window))
		if err != nil {
			return fmt.Errorf("summarize sales: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Orders: %d\nRevenue: %s\n", summary.Count, types.FormatRupees(summary.TotalMinor))
		return nil
	},
}
