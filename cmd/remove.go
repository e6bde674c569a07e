package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Stop tracking a product",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteProduct(ctx, args[0]); err != nil {
			return eris.Wrap(err, "remove product")
		}
		zap.L().Info("product removed", zap.String("id", args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
