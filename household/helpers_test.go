package household_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// 20 March 2026. Auto charges due up to the 20th count as paid in March.
var today = time.Date(2026, time.March, 20, 9, 30, 0, 0, time.UTC)

var (
	jan = generic.MustYearMonth("2026-01")
	feb = generic.MustYearMonth("2026-02")
	mar = generic.MustYearMonth("2026-03")
	apr = generic.MustYearMonth("2026-04")
)

func clockAt(t time.Time) generic.Clock {
	return func() time.Time { return t }
}

func newReducer() *household.Reducer {
	r := household.NewReducer(clockAt(today))
	n := 0
	r.NewID = func() string {
		n++
		return "gen-" + strconv.Itoa(n)
	}
	return r
}

func newEngine() *household.Engine {
	return household.NewEngine(clockAt(today))
}

func mustApply(t *testing.T, st *household.State, actions ...household.Action) *household.State {
	t.Helper()
	next, err := newReducer().ApplyAll(st, actions...)
	require.NoError(t, err)
	return next
}

// baseHousehold has a shared Joint account, a Savings account and a salary.
func baseHousehold(t *testing.T) *household.State {
	t.Helper()
	return mustApply(t, household.NewState(),
		household.AddAccount{ID: "Joint", AccountKind: household.AccountShared},
		household.AddAccount{ID: "Savings"},
		household.SetSalary{SalaryCents: 300000},
	)
}

func rent() household.Charge {
	return household.Charge{
		ID:           "rent",
		Name:         "Loyer",
		AmountCents:  120000,
		DayOfMonth:   5,
		AccountID:    "Joint",
		Scope:        household.ScopeShared,
		SplitPercent: household.Percent(50),
		Payment:      household.PaymentAuto,
	}
}

func savingsTransfer() household.Charge {
	return household.Charge{
		ID:          "savings",
		Name:        "Virement épargne",
		AmountCents: 10000,
		DayOfMonth:  28,
		AccountID:   household.DefaultAccountID,
		Payment:     household.PaymentAuto,
		Destination: household.ToAccount("Savings"),
	}
}

func groceries() household.Budget {
	return household.Budget{
		ID:          "groceries",
		Name:        "Courses",
		AmountCents: 20000,
		AccountID:   household.DefaultAccountID,
	}
}

func expense(ym generic.YearMonth, id string, cents int64) household.AddBudgetExpense {
	return household.AddBudgetExpense{
		Month:    ym,
		BudgetID: "groceries",
		Expense:  household.BudgetExpense{ID: id, Date: ym.Day(10), Label: id, AmountCents: cents},
	}
}

func chargeByID(rows []household.ChargeRow, id string) (household.ChargeRow, bool) {
	for _, r := range rows {
		if r.ID == id {
			return r, true
		}
	}
	return household.ChargeRow{}, false
}

func chargeIDs(rows []household.ChargeRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func onlyBudget(t *testing.T, rows []household.BudgetRow) household.BudgetRow {
	t.Helper()
	require.Len(t, rows, 1)
	return rows[0]
}

func ptr[T any](v T) *T { return &v }
