package household_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
)

// messyDocument is what an old client or a hand edit might store.
func messyDocument() *household.State {
	return &household.State{
		Version:     1,
		SalaryCents: -5,
		Accounts: []household.Account{
			{ID: " Joint ", Kind: "weird"},
			{ID: "Joint", Kind: household.AccountShared, Active: true},
			{ID: ""},
		},
		Charges: []household.Charge{
			{ID: "a", Name: "A", AmountCents: -3, DayOfMonth: 40, Scope: "x", Payment: "y", SplitPercent: household.Percent(150), AccountID: "Joint", SortOrder: 5, Active: true},
			{ID: "a", Name: "duplicate", AccountID: "Joint"},
			{Name: "B", AccountID: "Bank2", Destination: household.ToAccount("Vault"), SortOrder: 5, Active: true},
		},
		Budgets: []household.Budget{
			{Name: "X", AmountCents: 100, AccountID: "Joint", Active: true, InactiveFromYm: &mar},
		},
		Months: map[generic.YearMonth]household.MonthData{
			feb: {Budgets: map[string]household.BudgetOverride{
				"budget-1": {Expenses: []household.BudgetExpense{{ID: "zero", AmountCents: 0}, {ID: "ok", AmountCents: 100}}},
			}},
		},
	}
}

func TestNormalize_Nil(t *testing.T) {
	st := household.Normalize(nil)

	assert.Equal(t, household.CurrentVersion, st.Version)
	require.Len(t, st.Accounts, 1)
	assert.Equal(t, household.Account{ID: household.DefaultAccountID, Kind: household.AccountPersonal, Active: true}, st.Accounts[0])
	assert.NotNil(t, st.Charges)
	assert.NotNil(t, st.Budgets)
	assert.NotNil(t, st.Months)
}

func TestNormalize_RepairsMessyDocument(t *testing.T) {
	st := household.Normalize(messyDocument())

	assert.Equal(t, household.CurrentVersion, st.Version)
	assert.Equal(t, int64(0), st.SalaryCents)

	// Accounts: trimmed, deduplicated, kind repaired, references created
	ids := make([]string, len(st.Accounts))
	for i, a := range st.Accounts {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"Joint", "Bank2", "Vault"}, ids)
	assert.Equal(t, household.AccountPersonal, st.Accounts[0].Kind)
	assert.True(t, st.Accounts[0].Active, "first account is activated when none is")
	assert.False(t, st.Accounts[1].Active)

	// Charges: first of a duplicated id wins, blank ids get a stable one
	require.Len(t, st.Charges, 2)
	a, _ := st.Charge("a")
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, household.ScopePersonal, a.Scope)
	assert.Equal(t, household.PaymentManual, a.Payment)
	assert.Equal(t, 31, a.DayOfMonth)
	assert.Equal(t, int64(0), a.AmountCents)
	assert.Equal(t, 100.0, *a.SplitPercent)

	b, ok := st.Charge("charge-3")
	require.True(t, ok)
	assert.Equal(t, "B", b.Name)

	// Duplicate ranks in a scope are reassigned
	assert.Equal(t, 10, b.SortOrder)
	assert.Equal(t, 20, a.SortOrder)

	// Budgets and months
	require.Len(t, st.Budgets, 1)
	assert.Equal(t, "budget-1", st.Budgets[0].ID)
	assert.Nil(t, st.Budgets[0].InactiveFromYm)

	md := st.Month(feb)
	assert.NotNil(t, md.Charges)
	exps := md.Budgets["budget-1"].Expenses
	require.Len(t, exps, 1)
	assert.Equal(t, "ok", exps[0].ID)
}

func TestNormalize_Idempotent(t *testing.T) {
	once := household.Normalize(messyDocument())
	twice := household.Normalize(once)

	assert.Equal(t, once, twice)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	doc := messyDocument()

	_ = household.Normalize(doc)

	assert.Equal(t, messyDocument(), doc)
}

func TestNormalize_KeepsValidRanks(t *testing.T) {
	doc := &household.State{
		Accounts: []household.Account{{ID: "P", Kind: household.AccountPersonal, Active: true}},
		Charges: []household.Charge{
			{ID: "x", Name: "X", DayOfMonth: 1, AccountID: "P", Scope: household.ScopePersonal, Payment: household.PaymentManual, SortOrder: 70},
			{ID: "y", Name: "Y", DayOfMonth: 1, AccountID: "P", Scope: household.ScopePersonal, Payment: household.PaymentManual, SortOrder: 15},
		},
	}

	st := household.Normalize(doc)

	assert.Equal(t, 70, st.Charges[0].SortOrder)
	assert.Equal(t, 15, st.Charges[1].SortOrder)
}

func TestNormalize_UnrankedChargesGoLast(t *testing.T) {
	doc := &household.State{
		Accounts: []household.Account{{ID: "P", Kind: household.AccountPersonal, Active: true}},
		Charges: []household.Charge{
			{ID: "new", Name: "New", DayOfMonth: 1, AccountID: "P"},
			{ID: "old", Name: "Old", DayOfMonth: 20, AccountID: "P", SortOrder: 40},
		},
	}

	st := household.Normalize(doc)

	old, _ := st.Charge("old")
	fresh, _ := st.Charge("new")
	assert.Equal(t, 10, old.SortOrder)
	assert.Equal(t, 20, fresh.SortOrder)
}
