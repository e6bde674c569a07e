package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/pricewatch/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the full price history to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		products, err := st.ListProducts(ctx)
		if err != nil {
			return eris.Wrap(err, "export: list products")
		}

		f := xlsx.NewFile()
		sheet, err := f.AddSheet("prices")
		if err != nil {
			return eris.Wrap(err, "export: add sheet")
		}

		header := sheet.AddRow()
		for _, h := range []string{"product_id", "name", "url", "amount", "currency", "source", "checked_at"} {
			header.AddCell().SetString(h)
		}

		var rows int
		for _, p := range products {
			history, err := st.PriceHistory(ctx, p.ID, store.HistoryFilter{})
			if err != nil {
				return eris.Wrapf(err, "export: history for %s", p.ID)
			}
			for _, point := range history {
				row := sheet.AddRow()
				row.AddCell().SetString(p.ID)
				row.AddCell().SetString(p.Name)
				row.AddCell().SetString(p.URL)
				row.AddCell().SetString(point.Amount.StringFixed(2))
				row.AddCell().SetString(point.Currency)
				row.AddCell().SetString(string(point.Source))
				row.AddCell().SetString(point.CheckedAt.UTC().Format("2006-01-02 15:04:05"))
				rows++
			}
		}

		if err := f.Save(exportOut); err != nil {
			return eris.Wrapf(err, "export: save %s", exportOut)
		}
		zap.L().Info("export complete",
			zap.String("path", exportOut),
			zap.Int("products", len(products)),
			zap.Int("rows", rows),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "prices.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
