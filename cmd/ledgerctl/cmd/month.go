package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
)

func newMonthCmd(opts *options) *cobra.Command {
	var (
		output string
		asOf   string
	)

	c := &cobra.Command{
		Use:   "month YYYY-MM",
		Short: "Resolve one month of a stored document",
		Long: `Resolve one month exactly as the app shows it: charges in display
order with their paid state and share, budget envelopes with their
carry-over, totals and per-account transfers.

Example:
  ledgerctl month 2026-03 --owner alice
  ledgerctl month 2026-03 --as-of 2026-03-05 -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ym, err := generic.ParseYearMonth(args[0])
			if err != nil {
				return err
			}
			if output != "table" && output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q: want table, json or yaml", output)
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			clock := s.clock
			if asOf != "" {
				d, err := generic.ParseDate(asOf)
				if err != nil {
					return err
				}
				clock = func() time.Time { return d.Time }
			}

			st, err := s.load(cmd)
			if err != nil {
				return err
			}
			view := household.NewEngine(clock).ResolveMonth(st, ym)
			s.log.Debug("month resolved", "owner", s.owner(), "month", ym.String(),
				"charges", len(view.Charges), "budgets", len(view.Budgets))

			return writeMonthView(cmd.OutOrStdout(), view, output)
		},
	}

	c.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	c.Flags().StringVar(&asOf, "as-of", "", "resolve as if today were this date (YYYY-MM-DD)")
	return c
}

func writeMonthView(w io.Writer, view household.MonthView, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "yaml":
		return writeYAML(w, view)
	default:
		return writeMonthTable(w, view)
	}
}

// writeYAML goes through JSON so the keys and value formats match the API.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plainNumbers(doc)); err != nil {
		return err
	}
	return enc.Close()
}

// plainNumbers turns json.Number leaves into int64 or float64 values, so
// yaml writes 120000 rather than "120000".
func plainNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, x := range t {
			t[k] = plainNumbers(x)
		}
	case []any:
		for i, x := range t {
			t[i] = plainNumbers(x)
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
	}
	return v
}

func writeMonthTable(w io.Writer, view household.MonthView) error {
	mode := "live"
	if view.Archived {
		mode = "archived"
	}
	fmt.Fprintf(w, "=== %s (%s) ===\n\n", view.Month, mode)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "CHARGE\tSCOPE\tACCOUNT\tDUE\tAMOUNT\tMY SHARE\tPAID\t")
	for _, c := range view.Charges {
		paid := ""
		if c.Paid {
			paid = "yes"
		}
		name := c.Name
		if c.IsSavings {
			name += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			name, c.Scope, c.AccountName, c.DueDate,
			generic.FormatCents(c.AmountCents), generic.FormatCents(c.MyShareCents), paid)
	}
	fmt.Fprintln(tw, "\t\t\t\t\t\t\t")

	fmt.Fprintln(tw, "ENVELOPE\tACCOUNT\tTARGET\tCARRY\tFUNDING\tSPENT\tREMAINING\t")
	for _, b := range view.Budgets {
		carry := b.CarryOverDebtCents - b.CarryOverCreditCents
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			b.Name, b.AccountName,
			generic.FormatCents(b.AmountCents), generic.FormatCents(carry), generic.FormatCents(b.FundingCents),
			generic.FormatCents(b.SpentCents), generic.FormatCents(b.RemainingCents))
	}
	fmt.Fprintln(tw, "\t\t\t\t\t\t\t")

	fmt.Fprintln(tw, "ACCOUNT\tCHARGES\tENVELOPES\tTOTAL\tMY SHARE\t")
	for _, a := range view.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			a.AccountName, generic.FormatCents(a.ChargesCents), generic.FormatCents(a.BudgetsCents),
			generic.FormatCents(a.TotalCents), generic.FormatCents(a.TotalMyShareCents))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	t := view.Totals
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Salary:                    %s\n", generic.FormatCents(t.SalaryCents))
	fmt.Fprintf(w, "Charges (my share):        %s\n", generic.FormatCents(t.ChargesMyShareCents))
	fmt.Fprintf(w, "Money left before budgets: %s\n", generic.FormatCents(t.MoneyLeftBeforeBudgetsCents))
	fmt.Fprintf(w, "Envelopes (my share):      %s\n", generic.FormatCents(t.BudgetFundedMyShareCents))
	fmt.Fprintf(w, "Money left:                %s\n", generic.FormatCents(t.MoneyLeftCents))
	return nil
}
