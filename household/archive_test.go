package household_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
)

func archivedHousehold(t *testing.T) *household.State {
	t.Helper()
	return mustApply(t, baseHousehold(t),
		household.AddCharge{Charge: rent()},
		household.AddCharge{Charge: savingsTransfer()},
		household.AddBudget{Budget: groceries()},
		expense(feb, "big-shop", 25000),
		household.ArchiveMonthAction{Month: feb},
	)
}

func TestArchiveMonth_SnapshotsEveryVisibleRow(t *testing.T) {
	st := archivedHousehold(t)

	md := st.Month(feb)
	assert.True(t, md.Archived)
	require.Contains(t, md.Charges, "rent")
	require.Contains(t, md.Charges, "savings")
	require.Contains(t, md.Budgets, "groceries")

	rentOv := md.Charges["rent"]
	require.NotNil(t, rentOv.Snapshot)
	assert.Equal(t, int64(120000), rentOv.Snapshot.AmountCents)
	assert.True(t, rentOv.Paid, "auto-due default is captured")

	budgetOv := md.Budgets["groceries"]
	require.NotNil(t, budgetOv.Snapshot)
	assert.Len(t, budgetOv.Expenses, 1, "expenses are kept as they are")
}

func TestArchiveMonth_IsIdempotent(t *testing.T) {
	st := archivedHousehold(t)

	again := household.ArchiveMonth(st, feb, generic.DateOf(today))

	assert.Equal(t, st.Months, again.Months)
}

func TestArchiveMonth_DoesNotMutateInput(t *testing.T) {
	st := mustApply(t, baseHousehold(t), household.AddCharge{Charge: rent()})

	_ = household.ArchiveMonth(st, feb, generic.DateOf(today))

	assert.NotContains(t, st.Months, feb)
}

func TestArchiveMonth_FrozenAgainstDefinitionEdits(t *testing.T) {
	st := archivedHousehold(t)
	engine := newEngine()
	before := engine.ResolveMonth(st, feb)

	// WHEN: every definition changes after the archive
	st = mustApply(t, st,
		household.UpdateCharge{ID: "rent", Patch: household.ChargePatch{AmountCents: ptr(int64(150000)), Name: ptr("Nouveau loyer")}},
		household.UpdateBudget{ID: "groceries", Patch: household.BudgetPatch{AmountCents: ptr(int64(40000))}},
		household.RemoveCharge{ID: "savings"},
		household.SetSalary{SalaryCents: 1},
	)

	// THEN: February's rows are unchanged
	after := engine.ResolveMonth(st, feb)
	assert.Equal(t, before.Charges, after.Charges)
	assert.Equal(t, before.Budgets, after.Budgets)
}

func TestArchiveMonth_BlocksEdits(t *testing.T) {
	st := archivedHousehold(t)

	tests := []household.Action{
		household.ToggleChargePaid{Month: feb, ID: "rent"},
		household.RemoveChargeForMonth{Month: feb, ID: "rent"},
		expense(feb, "late", 100),
		household.RemoveBudgetExpense{Month: feb, BudgetID: "groceries", ExpenseID: "big-shop"},
		household.SetBudgetCarryHandled{Month: feb, BudgetID: "groceries", CarryForward: ptr(true)},
	}
	for _, a := range tests {
		t.Run(a.Kind(), func(t *testing.T) {
			_, err := newReducer().Apply(st, a)
			require.Error(t, err)
			assert.ErrorIs(t, err, generic.ErrMonthArchived)
			assert.True(t, generic.IsConflict(err))
		})
	}
}

func TestArchiveMonth_AccountRetiredAfterArchive(t *testing.T) {
	// GIVEN: a phone bill on Old Bank, February archived
	st := mustApply(t, household.NewState(),
		household.AddAccount{ID: "Old Bank"},
		household.AddCharge{Charge: household.Charge{ID: "phone", Name: "Forfait", AmountCents: 1999, DayOfMonth: 10, AccountID: "Old Bank", Payment: household.PaymentAuto}},
		household.ArchiveMonthAction{Month: feb},
	)

	// WHEN: Old Bank is retired
	st = mustApply(t, st, household.DeactivateAccount{ID: "Old Bank", ReassignTo: household.DefaultAccountID})
	engine := newEngine()

	// THEN: the archive still shows Old Bank, live months use Personal
	febRows := engine.ResolveCharges(st, feb)
	require.Len(t, febRows, 1)
	assert.Equal(t, "Old Bank", febRows[0].AccountID)
	assert.Equal(t, "Old Bank", febRows[0].AccountName)

	marRows := engine.ResolveCharges(st, mar)
	require.Len(t, marRows, 1)
	assert.Equal(t, household.DefaultAccountID, marRows[0].AccountID)

	acc, ok := st.Account("Old Bank")
	require.True(t, ok)
	assert.False(t, acc.Active)
}

func TestUnarchiveMonth_LiveAgainSnapshotsKept(t *testing.T) {
	st := archivedHousehold(t)
	st = mustApply(t, st, household.UpdateCharge{ID: "rent", Patch: household.ChargePatch{AmountCents: ptr(int64(130000))}})

	st = mustApply(t, st, household.UnarchiveMonthAction{Month: feb})

	md := st.Month(feb)
	assert.False(t, md.Archived)
	assert.NotNil(t, md.Charges["rent"].Snapshot)

	// Live resolution prefers the active definition again
	rentRow, _ := chargeByID(newEngine().ResolveCharges(st, feb), "rent")
	assert.Equal(t, int64(130000), rentRow.AmountCents)

	// And edits are accepted again
	_, err := newReducer().Apply(st, household.ToggleChargePaid{Month: feb, ID: "rent"})
	assert.NoError(t, err)
}

func TestArchiveMonth_KeepsMonthOnlyRowsAfterDeactivation(t *testing.T) {
	// GIVEN: February archived, unarchived, then savings deactivated
	st := mustApply(t, archivedHousehold(t),
		household.UnarchiveMonthAction{Month: feb},
		household.RemoveCharge{ID: "savings"},
	)

	// THEN: the live month still resolves savings from its snapshot
	row, ok := chargeByID(newEngine().ResolveCharges(st, feb), "savings")
	require.True(t, ok)
	assert.Equal(t, "Virement épargne", row.Name)
	assert.False(t, row.IsSavings, "inactive definitions never absorb the salary")
}

func TestArchiveMonth_RemovedRowStaysHidden(t *testing.T) {
	st := mustApply(t, baseHousehold(t),
		household.AddCharge{Charge: rent()},
		household.RemoveChargeForMonth{Month: feb, ID: "rent"},
		household.ArchiveMonthAction{Month: feb},
	)

	assert.Empty(t, newEngine().ResolveCharges(st, feb))
}

func TestArchiveMonth_CarryFlowsThroughSnapshots(t *testing.T) {
	st := archivedHousehold(t)
	st = mustApply(t, st, household.UpdateBudget{ID: "groceries", Patch: household.BudgetPatch{AmountCents: ptr(int64(10000))}})

	// February was frozen with a 200.00 target, so its debt stays 50.00
	m := groceriesRow(t, st, mar)
	assert.Equal(t, int64(5000), m.CarryOverSourceDebtCents)
	assert.Equal(t, int64(15000), m.AdjustedAmountCents)
}

func TestArchiveMonth_CarryInFrozenAgainstEarlierLiveMonths(t *testing.T) {
	// GIVEN: January overspent by 50.00 and still live, February archived
	st := mustApply(t, baseHousehold(t),
		household.AddBudget{Budget: groceries()},
		expense(jan, "jan-shop", 25000),
		household.ArchiveMonthAction{Month: feb},
	)
	before := groceriesRow(t, st, feb)
	require.Equal(t, int64(5000), before.CarryOverSourceDebtCents)
	require.Equal(t, int64(25000), before.FundingCents)

	ov := st.Month(feb).Budgets["groceries"]
	require.NotNil(t, ov.CarryIn)
	assert.Equal(t, household.CarryIn{DebtCents: 5000}, *ov.CarryIn)

	// WHEN: the target is raised, so live January now ends in credit
	st = mustApply(t, st, household.UpdateBudget{ID: "groceries", Patch: household.BudgetPatch{AmountCents: ptr(int64(40000))}})

	// THEN: February keeps the carry it was archived with
	assert.Equal(t, int64(15000), groceriesRow(t, st, jan).CarryForwardCreditCents)
	assert.Equal(t, before, groceriesRow(t, st, feb))

	// AND: March chains from the frozen February
	m := groceriesRow(t, st, mar)
	assert.Equal(t, before.CarryForwardDebtCents, m.CarryOverSourceDebtCents)
	assert.Equal(t, before.CarryForwardCreditCents, m.CarryOverSourceCreditCents)
}

func TestUnarchiveMonth_CarryInRecomputed(t *testing.T) {
	st := mustApply(t, baseHousehold(t),
		household.AddBudget{Budget: groceries()},
		expense(jan, "jan-shop", 25000),
		household.ArchiveMonthAction{Month: feb},
		household.UpdateBudget{ID: "groceries", Patch: household.BudgetPatch{AmountCents: ptr(int64(40000))}},
		household.UnarchiveMonthAction{Month: feb},
	)

	assert.Nil(t, st.Month(feb).Budgets["groceries"].CarryIn)
	f := groceriesRow(t, st, feb)
	assert.Equal(t, int64(0), f.CarryOverSourceDebtCents)
	assert.Equal(t, int64(15000), f.CarryOverSourceCreditCents)

	// Re-archiving freezes the refreshed carry
	st = mustApply(t, st, household.ArchiveMonthAction{Month: feb})
	assert.Equal(t, household.CarryIn{CreditCents: 15000}, *st.Month(feb).Budgets["groceries"].CarryIn)
}
