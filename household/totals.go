package household

import (
	"sort"

	"github.com/warp/household-ledger/generic"
)

// =============================================================================
// MONTH TOTALS
// =============================================================================

// Totals are pure sums over a month's resolved rows.
type Totals struct {
	SharedChargesCents   int64 `json:"sharedChargesCents"`
	SharedMyShareCents   int64 `json:"sharedMyShareCents"`
	PersonalChargesCents int64 `json:"personalChargesCents"`
	ChargesMyShareCents  int64 `json:"chargesMyShareCents"`
	PaidMyShareCents     int64 `json:"paidMyShareCents"`
	UnpaidMyShareCents   int64 `json:"unpaidMyShareCents"`

	BudgetBaseMyShareCents   int64 `json:"budgetBaseMyShareCents"`
	BudgetCarryMyShareCents  int64 `json:"budgetCarryMyShareCents"`
	BudgetFundedMyShareCents int64 `json:"budgetFundedMyShareCents"`
	BudgetSpentCents         int64 `json:"budgetSpentCents"`

	SalaryCents int64 `json:"salaryCents"`

	// MoneyLeftBeforeBudgetsCents is salary minus charge my-shares.
	MoneyLeftBeforeBudgetsCents int64 `json:"moneyLeftBeforeBudgetsCents"`
	// MoneyLeftCents also subtracts envelope funding.
	MoneyLeftCents int64 `json:"moneyLeftCents"`
}

func MonthTotals(charges []ChargeRow, budgets []BudgetRow, salary int64) Totals {
	t := Totals{SalaryCents: salary}
	for _, c := range charges {
		switch c.Scope {
		case ScopeShared:
			t.SharedChargesCents += c.AmountCents
			t.SharedMyShareCents += c.MyShareCents
		default:
			t.PersonalChargesCents += c.AmountCents
		}
		t.ChargesMyShareCents += c.MyShareCents
		if c.Paid {
			t.PaidMyShareCents += c.MyShareCents
		} else {
			t.UnpaidMyShareCents += c.MyShareCents
		}
	}
	for _, b := range budgets {
		t.BudgetBaseMyShareCents += b.BaseMyShareCents
		t.BudgetCarryMyShareCents += b.CarryOverMyShareCents
		t.BudgetFundedMyShareCents += b.MyShareCents
		t.BudgetSpentCents += b.SpentCents
	}
	t.MoneyLeftBeforeBudgetsCents = salary - t.ChargesMyShareCents
	t.MoneyLeftCents = t.MoneyLeftBeforeBudgetsCents - t.BudgetFundedMyShareCents
	return t
}

// =============================================================================
// ACCOUNT TOTALS
// =============================================================================

// AccountTotal is what must flow into one account for the month.
type AccountTotal struct {
	AccountID   string      `json:"accountId"`
	AccountName string      `json:"accountName"`
	Kind        AccountKind `json:"kind,omitempty"`
	Known       bool        `json:"known"`

	ChargesCents        int64 `json:"chargesCents"`
	ChargesMyShareCents int64 `json:"chargesMyShareCents"`
	BudgetsCents        int64 `json:"budgetsCents"`
	BudgetsMyShareCents int64 `json:"budgetsMyShareCents"`
	TotalCents          int64 `json:"totalCents"`
	TotalMyShareCents   int64 `json:"totalMyShareCents"`
}

func (a AccountTotal) idle() bool {
	return a.ChargesCents == 0 && a.ChargesMyShareCents == 0 &&
		a.BudgetsCents == 0 && a.BudgetsMyShareCents == 0
}

// EffectiveAccount is where a charge's money goes: the destination account
// when there is one, the owning account otherwise.
func (r ChargeRow) EffectiveAccount() string {
	if id, ok := r.Destination.RoutedAccount(); ok {
		return id
	}
	return r.AccountID
}

// AccountTotals routes charges by effective account and budgets by owning
// account. Accounts without activity are dropped. Known accounts come first
// in state order, then unknown ids alphabetically.
func AccountTotals(st *State, charges []ChargeRow, budgets []BudgetRow) []AccountTotal {
	byID := make(map[string]*AccountTotal)
	get := func(id string) *AccountTotal {
		if t, ok := byID[id]; ok {
			return t
		}
		t := &AccountTotal{AccountID: id, AccountName: st.AccountName(id)}
		if a, ok := st.Account(id); ok {
			t.Kind = a.Kind
			t.Known = true
		}
		byID[id] = t
		return t
	}

	for _, c := range charges {
		t := get(c.EffectiveAccount())
		t.ChargesCents += c.AmountCents
		t.ChargesMyShareCents += c.MyShareCents
	}
	for _, b := range budgets {
		t := get(b.AccountID)
		t.BudgetsCents += b.FundingCents
		t.BudgetsMyShareCents += b.MyShareCents
	}

	var result []AccountTotal
	emitted := make(map[string]bool)
	for _, a := range st.Accounts {
		t, ok := byID[a.ID]
		if !ok || emitted[a.ID] || t.idle() {
			continue
		}
		emitted[a.ID] = true
		result = append(result, t.finish())
	}

	var unknown []string
	for id, t := range byID {
		if !t.Known && !t.idle() {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		result = append(result, byID[id].finish())
	}
	return result
}

func (a *AccountTotal) finish() AccountTotal {
	a.TotalCents = a.ChargesCents + a.BudgetsCents
	a.TotalMyShareCents = a.ChargesMyShareCents + a.BudgetsMyShareCents
	return *a
}

// =============================================================================
// MONTH VIEW - Everything a screen needs for one month
// =============================================================================

type MonthView struct {
	Month    generic.YearMonth `json:"month"`
	Archived bool              `json:"archived"`
	Charges  []ChargeRow       `json:"charges"`
	Budgets  []BudgetRow       `json:"budgets"`
	Totals   Totals            `json:"totals"`
	Accounts []AccountTotal    `json:"accounts"`
}

// ResolveMonth resolves charges, budgets and totals with a single budget pass.
func (e *Engine) ResolveMonth(st *State, ym generic.YearMonth) MonthView {
	budgets := e.ResolveBudgets(st, ym)
	charges := e.resolveCharges(st, ym, budgets)
	return MonthView{
		Month:    ym,
		Archived: st.Month(ym).Archived,
		Charges:  charges,
		Budgets:  budgets,
		Totals:   MonthTotals(charges, budgets, st.SalaryCents),
		Accounts: AccountTotals(st, charges, budgets),
	}
}
