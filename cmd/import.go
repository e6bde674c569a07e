package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var importPath string

// importEntry is one product row in the import file.
type importEntry struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Locale   string `yaml:"locale"`
	Selector string `yaml:"selector"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import products from a YAML file",
	Long:  "Reads a YAML list of products. Entries carrying name, locale, and selector are pinned to manual extraction.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(importPath)
		if err != nil {
			return eris.Wrapf(err, "import: read %s", importPath)
		}
		var entries []importEntry
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return eris.Wrap(err, "import: parse yaml")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var created int
		for _, e := range entries {
			if e.URL == "" {
				zap.L().Warn("import: skipping entry without url")
				continue
			}
			p, err := st.CreateProduct(ctx, e.URL)
			if err != nil {
				zap.L().Warn("import: skipping product",
					zap.String("url", e.URL),
					zap.Error(err),
				)
				continue
			}
			if e.Name != "" && e.Locale != "" && e.Selector != "" {
				p.Name = e.Name
				p.LocaleTag = e.Locale
				p.Selector = e.Selector
				p.Pinned = true
				if err := st.UpdateProduct(ctx, p); err != nil {
					return eris.Wrapf(err, "import: pin %s", e.URL)
				}
			}
			created++
		}

		zap.L().Info("import complete",
			zap.Int("created", created),
			zap.String("file", importPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to YAML file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
