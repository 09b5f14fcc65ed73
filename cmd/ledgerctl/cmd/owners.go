package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newOwnersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "owners",
		Short: "List owners with a stored document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.store.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "OWNER\tVERSION\tMODIFIED AT\tSTORED AT")
			for _, rec := range recs {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
					rec.OwnerID, rec.Version, rec.ModifiedAt, rec.UpdatedAt.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}
