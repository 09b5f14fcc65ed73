/*
normalize.go - Bringing any stored document up to the current shape

PURPOSE:
  Documents come from older app versions, other devices and hand edits.
  Normalize runs once on load and guarantees the invariants the engine
  relies on, so resolution never has to second-guess its input.

GUARANTEES (after Normalize):
  - Version is CurrentVersion
  - no nil slices or maps (months included)
  - every definition has a unique, non-empty id
  - enums hold known values (unknown scope -> personal, payment -> manual,
    account kind -> personal)
  - dayOfMonth in 1..31, split percent finite and in 0..100, amounts >= 0
  - sort ranks are positive and unique within a scope
  - every account referenced by a definition exists (missing ones are
    created as inactive personal accounts)
  - at least one account is active

IDEMPOTENCE:
  Normalize(Normalize(x)) equals Normalize(x). Every rule only fires on
  input that violates the guarantee it establishes.

NOTE:
  Month snapshots are left as stored. They are historical truth, and a
  broken snapshot degrades to a raw id or a dropped row at resolution time.
*/
package household

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/warp/household-ledger/generic"
)

// DefaultAccountID names the account created for a document with none.
const DefaultAccountID = "Personal"

// Normalize returns a normalized copy of st. A nil st yields an empty document.
func Normalize(st *State) *State {
	if st == nil {
		st = &State{}
	}
	n := st.Clone()
	n.Version = CurrentVersion
	if n.SalaryCents < 0 {
		n.SalaryCents = 0
	}

	normalizeAccounts(n)
	normalizeCharges(n)
	normalizeBudgets(n)
	normalizeMonths(n)
	ensureReferencedAccounts(n)
	ensureActiveAccount(n)
	return n
}

func normalizeAccounts(st *State) {
	seen := make(map[string]bool)
	accounts := make([]Account, 0, len(st.Accounts))
	for _, a := range st.Accounts {
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		if !a.Kind.Valid() {
			a.Kind = AccountPersonal
		}
		accounts = append(accounts, a)
	}
	st.Accounts = accounts
}

func normalizeCharges(st *State) {
	seen := make(map[string]bool)
	for _, c := range st.Charges {
		seen[strings.TrimSpace(c.ID)] = true
	}

	kept := make(map[string]bool)
	charges := make([]Charge, 0, len(st.Charges))
	for i, c := range st.Charges {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			c.ID = freshID("charge", i, seen)
		}
		if kept[c.ID] {
			continue
		}
		kept[c.ID] = true

		if !c.Scope.Valid() {
			c.Scope = ScopePersonal
		}
		if !c.Payment.Valid() {
			c.Payment = PaymentManual
		}
		c.DayOfMonth = clampDay(c.DayOfMonth)
		c.AmountCents = generic.MaxCents(0, c.AmountCents)
		c.SplitPercent = normalizeSplit(c.SplitPercent)
		if d := c.Destination; d != nil {
			switch d.Kind {
			case DestinationAccount:
				if strings.TrimSpace(d.AccountID) == "" {
					c.Destination = nil
				}
			case DestinationText:
				if strings.TrimSpace(d.Text) == "" {
					c.Destination = nil
				}
			default:
				c.Destination = nil
			}
		}
		charges = append(charges, c)
	}
	st.Charges = charges

	for _, scope := range []Scope{ScopeShared, ScopePersonal} {
		rerankIfNeeded(st, scope)
	}
}

// rerankIfNeeded assigns 10, 20, ... within a scope when any rank is
// missing (<= 0) or duplicated. Unranked charges go last.
func rerankIfNeeded(st *State, scope Scope) {
	var idx []int
	ranks := make(map[int]bool)
	broken := false
	for i, c := range st.Charges {
		if c.Scope != scope {
			continue
		}
		idx = append(idx, i)
		if c.SortOrder <= 0 || ranks[c.SortOrder] {
			broken = true
		}
		ranks[c.SortOrder] = true
	}
	if !broken {
		return
	}

	sort.SliceStable(idx, func(x, y int) bool {
		a, b := st.Charges[idx[x]], st.Charges[idx[y]]
		if ua, ub := a.SortOrder <= 0, b.SortOrder <= 0; ua != ub {
			return ub
		}
		return chargeRankLess(a, b)
	})
	for pos, i := range idx {
		st.Charges[i].SortOrder = (pos + 1) * sortStep
	}
}

func normalizeBudgets(st *State) {
	seen := make(map[string]bool)
	for _, b := range st.Budgets {
		seen[strings.TrimSpace(b.ID)] = true
	}

	kept := make(map[string]bool)
	budgets := make([]Budget, 0, len(st.Budgets))
	for i, b := range st.Budgets {
		b.ID = strings.TrimSpace(b.ID)
		if b.ID == "" {
			b.ID = freshID("budget", i, seen)
		}
		if kept[b.ID] {
			continue
		}
		kept[b.ID] = true

		if !b.Scope.Valid() {
			b.Scope = ScopePersonal
		}
		b.AmountCents = generic.MaxCents(0, b.AmountCents)
		b.SplitPercent = normalizeSplit(b.SplitPercent)
		if b.Active {
			b.InactiveFromYm = nil
		}
		budgets = append(budgets, b)
	}
	st.Budgets = budgets
}

// normalizeMonths allocates override maps, drops non-positive expenses and
// clamps frozen carry-in to zero.
func normalizeMonths(st *State) {
	if st.Months == nil {
		st.Months = make(map[generic.YearMonth]MonthData)
	}
	for ym, md := range st.Months {
		if md.Charges == nil {
			md.Charges = make(map[string]ChargeOverride)
		}
		if md.Budgets == nil {
			md.Budgets = make(map[string]BudgetOverride)
		}
		for id, ov := range md.Budgets {
			expenses := make([]BudgetExpense, 0, len(ov.Expenses))
			for _, e := range ov.Expenses {
				if e.AmountCents > 0 {
					expenses = append(expenses, e)
				}
			}
			ov.Expenses = expenses
			if ov.CarryIn != nil {
				ov.CarryIn.DebtCents = generic.MaxCents(0, ov.CarryIn.DebtCents)
				ov.CarryIn.CreditCents = generic.MaxCents(0, ov.CarryIn.CreditCents)
			}
			md.Budgets[id] = ov
		}
		st.Months[ym] = md
	}
}

func ensureReferencedAccounts(st *State) {
	known := make(map[string]bool, len(st.Accounts))
	for _, a := range st.Accounts {
		known[a.ID] = true
	}
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || known[id] {
			return
		}
		known[id] = true
		st.Accounts = append(st.Accounts, Account{ID: id, Kind: AccountPersonal})
	}
	for _, c := range st.Charges {
		add(c.AccountID)
		if id, ok := c.Destination.RoutedAccount(); ok {
			add(id)
		}
	}
	for _, b := range st.Budgets {
		add(b.AccountID)
	}
}

func ensureActiveAccount(st *State) {
	for _, a := range st.Accounts {
		if a.Active {
			return
		}
	}
	if len(st.Accounts) > 0 {
		st.Accounts[0].Active = true
		return
	}
	st.Accounts = append(st.Accounts, Account{ID: DefaultAccountID, Kind: AccountPersonal, Active: true})
}

func clampDay(d int) int {
	if d < 1 {
		return 1
	}
	if d > 31 {
		return 31
	}
	return d
}

func normalizeSplit(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return Percent(math.Max(0, math.Min(100, v)))
}

// freshID derives a deterministic id for a definition stored without one.
func freshID(prefix string, i int, taken map[string]bool) string {
	for n := i + 1; ; n++ {
		id := fmt.Sprintf("%s-%d", prefix, n)
		if !taken[id] {
			taken[id] = true
			return id
		}
	}
}
