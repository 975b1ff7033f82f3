package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/vendbot/internal/state"
	"github.com/user/vendbot/internal/types"
)

func init() {
	rootCmd.AddCommand(itemCmd)
	itemCmd.AddCommand(itemListCmd, itemAddCmd)

	itemAddCmd.Flags().String("label", "", "display label (required)")
	itemAddCmd.Flags().String("type", "", "content type: video or link (required)")
	itemAddCmd.Flags().Int64("price", 0, "price in whole rupees (required)")
	itemAddCmd.Flags().String("file-id", "", "Telegram file id for video items")
	itemAddCmd.Flags().String("url", "", "URL for link items")
	_ = itemAddCmd.MarkFlagRequired("label")
	_ = itemAddCmd.MarkFlagRequired("type")
	_ = itemAddCmd.MarkFlagRequired("price")
}

// openDB opens the configured database for one-shot commands.
func openDB(ctx context.Context) (*state.DB, error) {
	cfg := loadConfig()
	return state.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
}

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage catalog items",
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := state.NewCatalogStore(db).List(ctx)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("No items in the catalog.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tPRICE")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\n", it.ID, it.Label, types.FormatRupees(it.PriceMinor))
		}
		return w.Flush()
	},
}

var itemAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a catalog item",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		typ, _ := cmd.Flags().GetString("type")
		price, _ := cmd.Flags().GetInt64("price")
		fileID, _ := cmd.Flags().GetString("file-id")
		url, _ := cmd.Flags().GetString("url")

		ct, ok := types.ParseContentType(typ)
		if !ok {
			return fmt.Errorf("unknown content type %q (want video or link)", typ)
		}
		var payload types.Payload
		switch ct {
		case types.ContentVideo:
			payload = types.VideoPayload{FileID: fileID}
		case types.ContentLink:
			payload = types.LinkPayload{URL: url}
		}
		if price <= 0 || price > math.MaxInt64/100 {
			return errors.New("price must be a positive number of rupees")
		}

		item, err := types.NewItem(label, payload, price*100)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := state.NewCatalogStore(db).Create(ctx, item)
		if err != nil {
			return fmt.Errorf("add item: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Item %d added: %s (%s, %s).\n", id, label, ct, types.FormatRupees(item.PriceMinor))
		return nil
	},
}
