/*
charges.go - Charge resolution for one month

PURPOSE:
  Answers "which charges apply to month M, for how much, when are they
  due, and are they paid?" from the definitions, the month's overrides and
  (for archived months) the month's snapshots.

ALGORITHM:
  1. Select candidate ids
       archived: ids with a non-removed snapshot
       live:     active definitions not removed this month, plus any id in
                 the month's override map (a paid marker survives after the
                 charge is deactivated), minus removed ids
  2. Resolve each id to (snapshot, paid)
       archived: the stored snapshot and its stored paid flag
       live:     active definition > month snapshot > tombstone definition
                 paid = stored override, or the auto-due default
  3. Derive split, my share, due date, destination label
  4. Sort: shared before personal, then sortOrder, dayOfMonth, name
  5. Live only: the auto-savings row absorbs what is left of the salary
     (see savings.go)

AUTO-DUE DEFAULT:
  With no override for the id, an auto-payment charge counts as paid once
  its due date for the month is on or before today (local date).

FAILURE SEMANTICS:
  None. Ids that resolve to nothing are omitted from the output.

SEE ALSO:
  - budgets.go: budget rows, needed by the savings step
  - archive.go: uses the same resolution to freeze a month
*/
package household

import (
	"sort"

	"github.com/warp/household-ledger/generic"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine resolves months. It holds no state besides its policies: every
// call works on the State it is given and allocates its own memo tables, so
// an Engine is safe for concurrent use.
type Engine struct {
	Clock   generic.Clock
	Savings SavingsPolicy
}

func NewEngine(clock generic.Clock) *Engine {
	return &Engine{Clock: clock, Savings: DefaultSavingsPolicy()}
}

// ChargeRow is a fully resolved charge for one month.
type ChargeRow struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	AmountCents      int64        `json:"amountCents"`
	SortOrder        int          `json:"sortOrder"`
	DayOfMonth       int          `json:"dayOfMonth"`
	DueDate          generic.Date `json:"dueDate"`
	AccountID        string       `json:"accountId"`
	AccountName      string       `json:"accountName"`
	Scope            Scope        `json:"scope"`
	SplitPercent     int          `json:"splitPercent"`
	Payment          PaymentMode  `json:"payment"`
	Destination      *Destination `json:"destination,omitempty"`
	DestinationLabel string       `json:"destinationLabel,omitempty"`
	Paid             bool         `json:"paid"`
	MyShareCents     int64        `json:"myShareCents"`

	// IsSavings marks the row whose amount was recomputed from the salary.
	IsSavings bool `json:"isSavings,omitempty"`
}

// ResolveCharges returns the ordered charge rows of month ym.
func (e *Engine) ResolveCharges(st *State, ym generic.YearMonth) []ChargeRow {
	var budgets []BudgetRow
	if !st.Month(ym).Archived {
		budgets = e.ResolveBudgets(st, ym)
	}
	return e.resolveCharges(st, ym, budgets)
}

func (e *Engine) resolveCharges(st *State, ym generic.YearMonth, budgets []BudgetRow) []ChargeRow {
	md := st.Month(ym)
	defs := indexCharges(st)
	today := e.Clock.Today()

	var ids []string
	if md.Archived {
		ids = archivedChargeIDs(md)
	} else {
		ids = liveChargeIDs(st, md)
	}

	rows := make([]ChargeRow, 0, len(ids))
	eligible := make(map[string]bool)
	for _, id := range ids {
		res, ok := resolveCharge(defs, ym, md, id, today)
		if !ok {
			continue
		}
		rows = append(rows, buildChargeRow(st, ym, id, res.snapshot, res.paid))
		if res.live && res.snapshot.Payment == PaymentAuto {
			eligible[id] = true
		}
	}

	SortChargeRows(rows)

	if !md.Archived {
		e.Savings.Apply(rows, eligible, budgets, st.SalaryCents)
	}
	return rows
}

// =============================================================================
// SELECTION
// =============================================================================

func archivedChargeIDs(md MonthData) []string {
	var ids []string
	for _, id := range md.chargeIDs() {
		ov := md.Charges[id]
		if ov.Snapshot != nil && !ov.Removed {
			ids = append(ids, id)
		}
	}
	return ids
}

func liveChargeIDs(st *State, md MonthData) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range st.Charges {
		if !c.Active || seen[c.ID] || md.Charges[c.ID].Removed {
			continue
		}
		seen[c.ID] = true
		ids = append(ids, c.ID)
	}
	for _, id := range md.chargeIDs() {
		if seen[id] || md.Charges[id].Removed {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// =============================================================================
// RESOLUTION
// =============================================================================

type chargeResolution struct {
	snapshot ChargeSnapshot
	paid     bool
	live     bool // built from an active definition
}

func resolveCharge(defs map[string]Charge, ym generic.YearMonth, md MonthData, id string, today generic.Date) (chargeResolution, bool) {
	ov, hasOverride := md.Charges[id]

	if md.Archived {
		if ov.Snapshot == nil {
			return chargeResolution{}, false
		}
		return chargeResolution{snapshot: *ov.Snapshot, paid: ov.Paid}, true
	}

	var res chargeResolution
	def, hasDef := defs[id]
	switch {
	case hasDef && def.Active:
		res.snapshot = def.Snapshot()
		res.live = true
	case ov.Snapshot != nil:
		res.snapshot = *ov.Snapshot
	case hasDef:
		res.snapshot = def.Snapshot()
	default:
		return chargeResolution{}, false
	}

	if hasOverride {
		res.paid = ov.Paid
	} else {
		res.paid = defaultPaid(res.snapshot, ym, today)
	}
	return res, true
}

// defaultPaid is the auto-due rule: auto payments are paid once due.
func defaultPaid(snap ChargeSnapshot, ym generic.YearMonth, today generic.Date) bool {
	if snap.Payment != PaymentAuto {
		return false
	}
	return ym.Day(snap.DayOfMonth).BeforeOrEqual(today)
}

func buildChargeRow(st *State, ym generic.YearMonth, id string, snap ChargeSnapshot, paid bool) ChargeRow {
	split := generic.ClampSplit(snap.SplitPercent)
	return ChargeRow{
		ID:               id,
		Name:             snap.Name,
		AmountCents:      snap.AmountCents,
		SortOrder:        snap.SortOrder,
		DayOfMonth:       snap.DayOfMonth,
		DueDate:          ym.Day(snap.DayOfMonth),
		AccountID:        snap.AccountID,
		AccountName:      st.AccountName(snap.AccountID),
		Scope:            snap.Scope,
		SplitPercent:     split,
		Payment:          snap.Payment,
		Destination:      snap.Destination.Clone(),
		DestinationLabel: snap.Destination.Label(st),
		Paid:             paid,
		MyShareCents:     myShare(snap.Scope, snap.AmountCents, split),
	}
}

// myShare applies the scope rule shared by charges and budgets.
func myShare(scope Scope, amount int64, split int) int64 {
	if scope == ScopeShared {
		return generic.ShareCents(amount, split)
	}
	return amount
}

// =============================================================================
// ORDERING
// =============================================================================

func scopeRank(s Scope) int {
	if s == ScopeShared {
		return 0
	}
	return 1
}

// SortChargeRows orders rows shared-first, then by sortOrder, dayOfMonth,
// name, and id as a last resort so the order never depends on input order.
func SortChargeRows(rows []ChargeRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if ra, rb := scopeRank(a.Scope), scopeRank(b.Scope); ra != rb {
			return ra < rb
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if a.DayOfMonth != b.DayOfMonth {
			return a.DayOfMonth < b.DayOfMonth
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

func indexCharges(st *State) map[string]Charge {
	idx := make(map[string]Charge, len(st.Charges))
	for _, c := range st.Charges {
		if _, dup := idx[c.ID]; !dup {
			idx[c.ID] = c
		}
	}
	return idx
}
