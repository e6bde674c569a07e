package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pricewatch/internal/extract"
	"github.com/sells-group/pricewatch/internal/fetch"
)

var (
	checkName     string
	checkLocale   string
	checkSelector string
)

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Run one extraction pass against a URL without persisting",
	Long:  "Fetches the page and prints the extraction result as JSON. Pass --name, --locale, and --selector to exercise the manual pipeline.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		loader := newLoader()
		engine := extract.NewEngine()

		var res extract.Result
		doc, err := loader.Fetch(ctx, args[0])
		switch {
		case err != nil && eris.Is(err, fetch.ErrNoResponse):
			res = extract.Failed(extract.FailNoResponse)
		case err != nil:
			res = extract.Failed(extract.FailInvalidResponse)
		case checkSelector != "":
			res = engine.Manual(doc, checkName, checkLocale, checkSelector)
		default:
			res = engine.Auto(doc)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkName, "name", "", "manual product name")
	checkCmd.Flags().StringVar(&checkLocale, "locale", "", "manual locale tag, e.g. de-DE")
	checkCmd.Flags().StringVar(&checkSelector, "selector", "", "manual CSS selector for the price element")
	rootCmd.AddCommand(checkCmd)
}
