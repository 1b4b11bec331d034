package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AndreyAkinshin/docsuite/internal/config"
	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
	"github.com/AndreyAkinshin/docsuite/internal/publish"
)

func newKeyCmd(a *app) *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "key <start-ms>",
		Short: "Print the object key for a run start time in Unix milliseconds",
		Example: `  docsuite key 1709802000000
  docsuite key --location America/Los_Angeles 1709802000000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return docerrors.Configf("start time %q is not Unix milliseconds", args[0])
			}
			loc, err := time.LoadLocation(location)
			if err != nil {
				return docerrors.Configf("location %q: %v", location, err)
			}
			a.out.Println("%s", publish.Key(time.UnixMilli(ms), loc))
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", config.DefaultLocation, "Time zone of the date prefix")
	return cmd
}
