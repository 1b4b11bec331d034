package cli

import (
	"github.com/spf13/cobra"

	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
	"github.com/AndreyAkinshin/docsuite/internal/packages"
)

func newPackagesCmd(a *app) *cobra.Command {
	var (
		dir      string
		category string
	)

	cmd := &cobra.Command{
		Use:   "packages",
		Short: "List package descriptors and their type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("packages-dir") {
				cfg.PackagesDir = dir
			}

			var want packages.Category
			if category != "" {
				want = packages.Category(category)
				if !want.Valid() {
					return docerrors.Configf("unknown package type %q (want component, native or bridged)", category)
				}
			}

			descs, err := packages.List(cfg.PackagesDir)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, d := range descs {
				c := packages.Classify(d)
				if want != "" && c != want {
					continue
				}
				rows = append(rows, []string{d.Name, c.Title()})
			}
			a.out.Table([]string{"Package", "Type"}, rows)
			a.out.Info("")
			a.out.Info("%d packages", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "packages-dir", "", "Directory of package descriptor YAML files")
	cmd.Flags().StringVarP(&category, "type", "t", "", "Only list packages of this type")
	return cmd
}
