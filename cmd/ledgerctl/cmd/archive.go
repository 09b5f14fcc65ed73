package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
	"github.com/warp/household-ledger/logging"
)

func newArchiveCmd(opts *options) *cobra.Command {
	var undo bool

	c := &cobra.Command{
		Use:   "archive YYYY-MM",
		Short: "Freeze a month, or make it live again with --undo",
		Long: `Freeze a month: every row visible in it is snapshotted, so later edits
to charges, envelopes or accounts no longer change it. With --undo the
month becomes editable again; its snapshots are kept.

Example:
  ledgerctl archive 2026-02 --owner alice
  ledgerctl archive 2026-02 --owner alice --undo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ym, err := generic.ParseYearMonth(args[0])
			if err != nil {
				return err
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.load(cmd)
			if err != nil {
				return err
			}

			var action household.Action = household.ArchiveMonthAction{Month: ym}
			verb := "archived"
			if undo {
				action = household.UnarchiveMonthAction{Month: ym}
				verb = "unarchived"
			}
			next, err := household.NewReducer(s.clock).Apply(st, action)
			if err != nil {
				return err
			}

			// A device that synced in the meantime wins.
			_, decision, err := s.syncer.Save(cmd.Context(), s.owner(), next)
			if err != nil {
				return err
			}
			if decision != household.PushLocal {
				return fmt.Errorf("document for %q changed while archiving (%s), try again", s.owner(), decision)
			}

			s.log.Info("month "+verb, logging.FieldOwner, s.owner(), logging.FieldMonth, ym.String())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s\n", s.owner(), verb, ym)
			return nil
		},
	}

	c.Flags().BoolVar(&undo, "undo", false, "unarchive instead")
	return c
}
