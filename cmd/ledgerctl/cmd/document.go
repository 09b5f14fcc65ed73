package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/household-ledger/household"
	"github.com/warp/household-ledger/logging"
)

func newExportCmd(opts *options) *cobra.Command {
	var file string

	c := &cobra.Command{
		Use:   "export",
		Short: "Write an owner's document as a versioned JSON envelope",
		Long: `Write the owner's normalized document in the same envelope the
server stores: {"version": ..., "modifiedAt": ..., "state": {...}}.

Example:
  ledgerctl export --owner alice > alice.json
  ledgerctl export --owner alice --file alice.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.load(cmd)
			if err != nil {
				return err
			}
			data, err := household.EncodeDocument(st)
			if err != nil {
				return err
			}

			if file == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(file, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", file, err)
			}
			s.log.Info("document exported", logging.FieldOwner, s.owner(), "file", file)
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "output file (default stdout)")
	return c
}

func newImportCmd(opts *options) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "import FILE",
		Short: "Store a document envelope for an owner",
		Long: `Store a document envelope for an owner. Like a device sync, the import
only wins when its modifiedAt is newer than the stored document; --force
replaces the stored document regardless.

Example:
  ledgerctl import alice.json --owner bob
  ledgerctl import backup.json --owner alice --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			st, err := household.DecodeDocument(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if force {
				if err := s.syncer.Replace(cmd.Context(), s.owner(), st); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: replaced (modifiedAt %s)\n", s.owner(), st.ModifiedAt)
				return nil
			}

			winner, decision, err := s.syncer.Save(cmd.Context(), s.owner(), st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (modifiedAt %s)\n", s.owner(), decision, winner.ModifiedAt)
			return nil
		},
	}

	c.Flags().BoolVar(&force, "force", false, "replace the stored document even if it is newer")
	return c
}
