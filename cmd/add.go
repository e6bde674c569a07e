package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pricewatch/internal/tracker"
)

var (
	addName     string
	addLocale   string
	addSelector string
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Start tracking a product URL",
	Long:  "Adds a product URL. Pass --name, --locale, and --selector together to pin manual extraction instead of auto-detection.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pin := addName != "" || addLocale != "" || addSelector != ""
		if pin && (addName == "" || addLocale == "" || addSelector == "") {
			return eris.New("--name, --locale, and --selector must be set together")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := st.CreateProduct(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "add product")
		}

		if pin {
			p.Name = addName
			p.LocaleTag = addLocale
			p.Selector = addSelector
			p.Pinned = true
			if err := st.UpdateProduct(ctx, p); err != nil {
				return eris.Wrap(err, "pin product")
			}
		}

		zap.L().Info("product added",
			zap.String("id", p.ID),
			zap.String("url", p.URL),
			zap.Bool("pinned", p.Pinned),
		)
		fmt.Println(p.ID)

		// First check right away so the user sees whether the page
		// needs a pinned selector.
		tr := newTracker(st, tracker.Options{})
		res, err := tr.Check(ctx, p)
		if err != nil {
			return err
		}
		return printRefreshResult(res)
	},
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "pinned product name")
	addCmd.Flags().StringVar(&addLocale, "locale", "", "pinned locale tag, e.g. en-US")
	addCmd.Flags().StringVar(&addSelector, "selector", "", "pinned CSS selector for the price element")
	rootCmd.AddCommand(addCmd)
}
