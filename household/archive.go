/*
archive.go - Freezing a month

PURPOSE:
  Closing out a month freezes its figures. After ArchiveMonth, resolution
  of that month reads only the snapshots stored inside it, so later edits
  to charge or budget definitions can no longer change its history.

STATE MACHINE (per month, re-entrant, no terminal state):
  live --ArchiveMonth--> archived --UnarchiveMonth--> live --> ...

ARCHIVE:
  For every charge visible in the live month without a snapshot, store one
  built from its definition, capturing paid from the override or from the
  auto-due default. Same for every visible budget (expenses and handled
  flags are kept as they are). Then set Archived.

  Existing snapshots are never rewritten, so re-archiving a month that
  already has a snapshot for everything only touches the flag.

UNARCHIVE:
  Clears the flag and the frozen carry-in, which the live chain recomputes.
  Snapshots stay: live resolution ignores them while a live definition
  exists, and they remain the only source of truth for month-only rows.

SEE ALSO:
  - charges.go / budgets.go: the resolution these snapshots feed
  - reducer.go: ArchiveMonthAction / UnarchiveMonthAction
*/
package household

import "github.com/warp/household-ledger/generic"

// ArchiveMonth returns a copy of st with month ym frozen.
func ArchiveMonth(st *State, ym generic.YearMonth, today generic.Date) *State {
	next := st.Clone()
	md := monthForWrite(next, ym)
	if md.Archived {
		return next
	}

	charges := indexCharges(next)
	for _, id := range liveChargeIDs(next, md) {
		ov := md.Charges[id]
		if ov.Snapshot != nil {
			continue
		}
		res, ok := resolveCharge(charges, ym, md, id, today)
		if !ok {
			continue
		}
		snap := res.snapshot
		md.Charges[id] = ChargeOverride{Paid: res.paid, Snapshot: &snap, Removed: ov.Removed}
	}

	chain := newCarryChain(next)
	frozen := make(map[string]*BudgetRow)
	for _, id := range liveBudgetIDs(next, md, ym) {
		if r := chain.row(ym, id); r != nil {
			frozen[id] = r
		}
	}
	for id, r := range frozen {
		ov := md.Budgets[id]
		if ov.Snapshot == nil {
			snap, ok := chain.source(ym, md, id)
			if !ok {
				continue
			}
			ov.Snapshot = &snap
		}
		if ov.CarryIn == nil {
			ov.CarryIn = &CarryIn{DebtCents: r.CarryOverSourceDebtCents, CreditCents: r.CarryOverSourceCreditCents}
		}
		md.Budgets[id] = ov
	}

	md.Archived = true
	next.Months[ym] = md
	return next
}

// UnarchiveMonth returns a copy of st with month ym live again.
func UnarchiveMonth(st *State, ym generic.YearMonth) *State {
	next := st.Clone()
	if md, ok := next.Months[ym]; ok {
		md.Archived = false
		for id, ov := range md.Budgets {
			if ov.CarryIn != nil {
				ov.CarryIn = nil
				md.Budgets[id] = ov
			}
		}
		next.Months[ym] = md
	}
	return next
}

// monthForWrite returns the month with allocated maps, registering it in
// the (already cloned) state.
func monthForWrite(st *State, ym generic.YearMonth) MonthData {
	if st.Months == nil {
		st.Months = make(map[generic.YearMonth]MonthData)
	}
	md, ok := st.Months[ym]
	if !ok {
		md = NewMonthData()
	}
	if md.Charges == nil {
		md.Charges = make(map[string]ChargeOverride)
	}
	if md.Budgets == nil {
		md.Budgets = make(map[string]BudgetOverride)
	}
	st.Months[ym] = md
	return md
}
