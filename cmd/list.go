package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pricewatch/internal/model"
	"github.com/sells-group/pricewatch/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked products with their latest price",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		products, err := st.ListProducts(ctx)
		if err != nil {
			return eris.Wrap(err, "list products")
		}
		if len(products) == 0 {
			fmt.Fprintln(os.Stderr, "No tracked products.")
			return nil
		}

		return formatProductList(ctx, os.Stdout, st, products)
	},
}

func formatProductList(ctx context.Context, w io.Writer, st store.Store, products []model.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCHECKED\tURL")
	for _, p := range products {
		latest, err := st.LatestPrice(ctx, p.ID)
		if err != nil {
			return eris.Wrapf(err, "latest price for %s", p.ID)
		}

		price := "-"
		if latest != nil {
			price = latest.Currency + latest.Amount.StringFixed(2)
		}
		checked := "-"
		if p.LastCheckedAt != nil {
			checked = p.LastCheckedAt.Format("2006-01-02 15:04")
		}
		name := p.Name
		if name == "" {
			name = "(undetected)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, name, price, checked, p.URL)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(listCmd)
}
