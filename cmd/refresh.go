package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pricewatch/internal/extract"
	"github.com/sells-group/pricewatch/internal/tracker"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [id]",
	Short: "Check tracked products for price changes now",
	Long:  "Without arguments every tracked product is checked; with an id only that product.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tr := newTracker(st, tracker.Options{})

		if len(args) == 1 {
			p, err := st.GetProduct(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "refresh product")
			}
			res, err := tr.Check(ctx, p)
			if err != nil {
				return err
			}
			return printRefreshResult(res)
		}

		sum, err := tr.RefreshAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("checked %d: %d updated, %d ambiguous, %d failed\n",
			sum.Checked, sum.Updated, sum.Ambiguous, sum.Failed)
		return nil
	},
}

func printRefreshResult(res extract.Result) error {
	switch res.Status {
	case extract.StatusSuccess:
		fmt.Printf("%s %s\n", res.Price.Price.Amount.StringFixed(2), res.Name)
		return nil
	case extract.StatusAmbiguous:
		fmt.Fprintln(os.Stderr, "Ambiguous price; candidates ranked by score:")
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Candidates)
	default:
		fmt.Fprintf(os.Stderr, "failed: %s\n", res.Reason)
		return nil
	}
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
