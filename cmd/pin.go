package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	pinName     string
	pinLocale   string
	pinSelector string
	unpin       bool
)

var pinCmd = &cobra.Command{
	Use:   "pin <id>",
	Short: "Pin manual extraction parameters on a tracked product",
	Long:  "After an ambiguous check, pin the product name, locale tag, and CSS selector so every later refresh uses the manual pipeline. --unpin reverts to auto-detection.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := st.GetProduct(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "pin product")
		}

		if unpin {
			p.Pinned = false
			p.Selector = ""
		} else {
			if pinName == "" || pinLocale == "" || pinSelector == "" {
				return eris.New("--name, --locale, and --selector are required")
			}
			p.Name = pinName
			p.LocaleTag = pinLocale
			p.Selector = pinSelector
			p.Pinned = true
		}

		if err := st.UpdateProduct(ctx, p); err != nil {
			return eris.Wrap(err, "pin product")
		}
		zap.L().Info("product pin updated",
			zap.String("id", p.ID),
			zap.Bool("pinned", p.Pinned),
		)
		return nil
	},
}

func init() {
	pinCmd.Flags().StringVar(&pinName, "name", "", "product name")
	pinCmd.Flags().StringVar(&pinLocale, "locale", "", "locale tag, e.g. en-US")
	pinCmd.Flags().StringVar(&pinSelector, "selector", "", "CSS selector for the price element")
	pinCmd.Flags().BoolVar(&unpin, "unpin", false, "revert to auto-detection")
	rootCmd.AddCommand(pinCmd)
}
