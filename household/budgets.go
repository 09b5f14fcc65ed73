/*
budgets.go - Budget resolution and the carry-over chain

PURPOSE:
  Resolves the envelope rows of a month. Each envelope is a small monthly
  ledger: it receives its target, may inherit debt or credit from the
  previous month (carry-over), records spending, and hands its own debt or
  credit to the next month (carry-forward).

THE CHAIN:
  carry-over(M) = carry-forward(M-1), for the same budget id.

  The chain starts at the budget's FLOOR: the earliest month holding any
  carry signal for that id (a snapshot, expenses, or a handled flag).
  Months whose previous month is before the floor get zero carry-in. A
  budget with no signal anywhere never carries. An archived month holding
  a frozen carry-in also ends the walk: its carry-in is read, not computed.

PER-MONTH LEDGER:
  carryOverDebt/Credit   = source values, or 0 when carryOverHandled
  adjustedAmount         = target + carryOverDebt - carryOverCredit
  funding                = max(0, adjustedAmount)
  spent                  = sum(expenses)
  remainingToFund        = target - spent
  available              = max(carryOverCredit - carryOverDebt, target)
  remaining              = available - spent
  carryForwardSourceDebt = max(0, -remaining)
  carryForwardSourceCredit = max(0, remaining)
  carryForwardDebt       = 0 when carryForwardHandled, else source debt
  carryForwardCredit     = source credit, ALWAYS

  Only debt can be forgiven: a handled flag never cancels leftover credit.

EVALUATION:
  Each call builds one carryChain with a memo keyed by (month, budget id).
  To resolve (M, id) it walks back with an explicit stack until it hits a
  memoized month, a frozen carry-in or the floor, then computes forward.
  Nothing recurses, and each pair is computed once per call.

EXAMPLE:
  Target 200.00, January spend 250.00:
    January  remaining = -50.00  -> carryForwardDebt 50.00
    February carryOverDebt 50.00 -> adjustedAmount 250.00, funding 250.00

SEE ALSO:
  - charges.go: shared selection/resolution conventions
  - totals.go: budget shares in the month totals
*/
package household

import (
	"sort"

	"github.com/warp/household-ledger/generic"
)

// BudgetRow is a fully resolved envelope for one month.
type BudgetRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AccountID    string `json:"accountId"`
	AccountName  string `json:"accountName"`
	Scope        Scope  `json:"scope"`
	SplitPercent int    `json:"splitPercent"`

	// Target amount of the envelope.
	AmountCents int64 `json:"amountCents"`

	Expenses   []BudgetExpense `json:"expenses"`
	SpentCents int64           `json:"spentCents"`

	CarryOverSourceDebtCents   int64 `json:"carryOverSourceDebtCents"`
	CarryOverSourceCreditCents int64 `json:"carryOverSourceCreditCents"`
	CarryOverDebtCents         int64 `json:"carryOverDebtCents"`
	CarryOverCreditCents       int64 `json:"carryOverCreditCents"`
	CarryOverHandled           bool  `json:"carryOverHandled"`

	AdjustedAmountCents  int64 `json:"adjustedAmountCents"`
	FundingCents         int64 `json:"fundingCents"`
	RemainingToFundCents int64 `json:"remainingToFundCents"`
	AvailableCents       int64 `json:"availableCents"`
	RemainingCents       int64 `json:"remainingCents"`

	CarryForwardSourceDebtCents   int64 `json:"carryForwardSourceDebtCents"`
	CarryForwardSourceCreditCents int64 `json:"carryForwardSourceCreditCents"`
	CarryForwardDebtCents         int64 `json:"carryForwardDebtCents"`
	CarryForwardCreditCents       int64 `json:"carryForwardCreditCents"`
	CarryForwardHandled           bool  `json:"carryForwardHandled"`

	MyShareCents          int64 `json:"myShareCents"`
	BaseMyShareCents      int64 `json:"baseMyShareCents"`
	CarryOverMyShareCents int64 `json:"carryOverMyShareCents"`
}

// ResolveBudgets returns the envelope rows of month ym, sorted by name.
func (e *Engine) ResolveBudgets(st *State, ym generic.YearMonth) []BudgetRow {
	return newCarryChain(st).rows(ym)
}

// =============================================================================
// CARRY CHAIN
// =============================================================================

type chainKey struct {
	ym generic.YearMonth
	id string
}

type carry struct {
	debt   int64
	credit int64
}

type carryChain struct {
	st     *State
	defs   map[string]Budget
	floors map[string]generic.YearMonth

	// A nil row means the budget resolves to nothing that month.
	memo map[chainKey]*BudgetRow
}

func newCarryChain(st *State) *carryChain {
	c := &carryChain{
		st:     st,
		defs:   indexBudgets(st),
		floors: make(map[string]generic.YearMonth),
		memo:   make(map[chainKey]*BudgetRow),
	}
	for ym, md := range st.Months {
		for id, ov := range md.Budgets {
			if !ov.HasCarrySignal() {
				continue
			}
			if f, ok := c.floors[id]; !ok || ym.Before(f) {
				c.floors[id] = ym
			}
		}
	}
	return c
}

func (c *carryChain) rows(ym generic.YearMonth) []BudgetRow {
	md := c.st.Month(ym)

	var ids []string
	if md.Archived {
		for _, id := range md.budgetIDs() {
			if md.Budgets[id].Snapshot != nil {
				ids = append(ids, id)
			}
		}
	} else {
		ids = liveBudgetIDs(c.st, md, ym)
	}

	rows := make([]BudgetRow, 0, len(ids))
	for _, id := range ids {
		if r := c.row(ym, id); r != nil {
			rows = append(rows, *r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

func liveBudgetIDs(st *State, md MonthData, ym generic.YearMonth) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, b := range st.Budgets {
		if seen[b.ID] || !b.EnabledIn(ym) {
			continue
		}
		seen[b.ID] = true
		ids = append(ids, b.ID)
	}
	for _, id := range md.budgetIDs() {
		if seen[id] || len(md.Budgets[id].Expenses) == 0 {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// row returns the memoized ledger of (ym, id), computing the chain up to it.
func (c *carryChain) row(ym generic.YearMonth, id string) *BudgetRow {
	key := chainKey{ym: ym, id: id}
	if r, ok := c.memo[key]; ok {
		return r
	}

	floor, anchored := c.floors[id]
	pending := []generic.YearMonth{ym}
	var in carry
	for {
		cur := pending[len(pending)-1]
		if frozen, ok := c.frozenCarryIn(cur, id); ok {
			in = frozen
			break
		}
		prev := cur.Prev()
		if !anchored || prev.Before(floor) {
			break
		}
		if r, ok := c.memo[chainKey{ym: prev, id: id}]; ok {
			in = forwardOf(r)
			break
		}
		pending = append(pending, prev)
	}

	for i := len(pending) - 1; i >= 0; i-- {
		r := c.compute(pending[i], id, in)
		c.memo[chainKey{ym: pending[i], id: id}] = r
		in = forwardOf(r)
	}
	return c.memo[key]
}

// frozenCarryIn returns the carry-in stored when ym was archived.
func (c *carryChain) frozenCarryIn(ym generic.YearMonth, id string) (carry, bool) {
	md := c.st.Month(ym)
	if !md.Archived {
		return carry{}, false
	}
	ov, ok := md.Budgets[id]
	if !ok || ov.CarryIn == nil {
		return carry{}, false
	}
	return carry{debt: ov.CarryIn.DebtCents, credit: ov.CarryIn.CreditCents}, true
}

func forwardOf(r *BudgetRow) carry {
	if r == nil {
		return carry{}
	}
	return carry{debt: r.CarryForwardDebtCents, credit: r.CarryForwardCreditCents}
}

// source picks the snapshot a month resolves a budget from.
func (c *carryChain) source(ym generic.YearMonth, md MonthData, id string) (BudgetSnapshot, bool) {
	ov := md.Budgets[id]
	if md.Archived {
		if ov.Snapshot == nil {
			return BudgetSnapshot{}, false
		}
		return *ov.Snapshot, true
	}
	def, hasDef := c.defs[id]
	switch {
	case hasDef && def.EnabledIn(ym):
		return def.Snapshot(), true
	case ov.Snapshot != nil:
		return *ov.Snapshot, true
	case hasDef:
		return def.Snapshot(), true
	}
	return BudgetSnapshot{}, false
}

func (c *carryChain) compute(ym generic.YearMonth, id string, in carry) *BudgetRow {
	md := c.st.Month(ym)
	snap, ok := c.source(ym, md, id)
	if !ok {
		return nil
	}
	ov := md.Budgets[id]
	split := generic.ClampSplit(snap.SplitPercent)
	target := snap.AmountCents

	r := &BudgetRow{
		ID:                         id,
		Name:                       snap.Name,
		AccountID:                  snap.AccountID,
		AccountName:                c.st.AccountName(snap.AccountID),
		Scope:                      snap.Scope,
		SplitPercent:               split,
		AmountCents:                target,
		Expenses:                   append([]BudgetExpense{}, ov.Expenses...),
		CarryOverSourceDebtCents:   in.debt,
		CarryOverSourceCreditCents: in.credit,
		CarryOverHandled:           ov.CarryOverHandled,
		CarryForwardHandled:        ov.CarryForwardHandled,
	}

	if !ov.CarryOverHandled {
		r.CarryOverDebtCents = in.debt
		r.CarryOverCreditCents = in.credit
	}

	r.AdjustedAmountCents = target + r.CarryOverDebtCents - r.CarryOverCreditCents
	r.FundingCents = generic.MaxCents(0, r.AdjustedAmountCents)

	for _, exp := range ov.Expenses {
		r.SpentCents += exp.AmountCents
	}
	r.RemainingToFundCents = target - r.SpentCents
	r.AvailableCents = generic.MaxCents(r.CarryOverCreditCents-r.CarryOverDebtCents, target)
	r.RemainingCents = r.AvailableCents - r.SpentCents

	r.CarryForwardSourceDebtCents = generic.MaxCents(0, -r.RemainingCents)
	r.CarryForwardSourceCreditCents = generic.MaxCents(0, r.RemainingCents)
	if !ov.CarryForwardHandled {
		r.CarryForwardDebtCents = r.CarryForwardSourceDebtCents
	}
	r.CarryForwardCreditCents = r.CarryForwardSourceCreditCents

	r.MyShareCents = myShare(snap.Scope, r.FundingCents, split)
	r.BaseMyShareCents = myShare(snap.Scope, target, split)
	r.CarryOverMyShareCents = r.MyShareCents - r.BaseMyShareCents
	return r
}

func indexBudgets(st *State) map[string]Budget {
	idx := make(map[string]Budget, len(st.Budgets))
	for _, b := range st.Budgets {
		if _, dup := idx[b.ID]; !dup {
			idx[b.ID] = b
		}
	}
	return idx
}
