/*
actions.go - The closed set of state transitions

PURPOSE:
  Every change to a household document is one of the actions below. The
  set is closed: Action has an unexported method, so only this package can
  add transitions, and the Reducer handles each one explicitly.

WIRE FORMAT:
  Callers (the HTTP layer, the sync client) send actions as
    {"type": "ADD_CHARGE", "payload": {...}}
  DecodeAction maps the type to the Go struct and decodes the payload.

TIMESTAMPS:
  Every action stamps State.ModifiedAt, except Hydrate (loading a stored
  document) and EnsureMonth (materializing an empty month), which are not
  user edits.

SEE ALSO:
  - reducer.go: how each action is applied
  - archive.go: ArchiveMonthAction / UnarchiveMonthAction
*/
package household

import (
	"encoding/json"
	"fmt"

	"github.com/warp/household-ledger/generic"
)

// Action is a state transition.
type Action interface {
	Kind() string
	apply(r *Reducer, st *State) (*State, error)
}

// =============================================================================
// SALARY & ACCOUNTS
// =============================================================================

type SetSalary struct {
	SalaryCents int64 `json:"salaryCents"`
}

type AddAccount struct {
	ID          string      `json:"id"`
	AccountKind AccountKind `json:"kind"`
}

type UpdateAccount struct {
	ID          string       `json:"id"`
	AccountKind *AccountKind `json:"kind,omitempty"`
	Active      *bool        `json:"isActive,omitempty"`
}

// DeactivateAccount deactivates an account and moves every charge, budget
// and destination that references it to ReassignTo.
type DeactivateAccount struct {
	ID         string `json:"id"`
	ReassignTo string `json:"reassignTo"`
}

// =============================================================================
// CHARGES
// =============================================================================

type AddCharge struct {
	Charge Charge `json:"charge"`
}

// ChargePatch holds the fields to change; nil means unchanged.
type ChargePatch struct {
	Name             *string      `json:"name,omitempty"`
	AmountCents      *int64       `json:"amountCents,omitempty"`
	SortOrder        *int         `json:"sortOrder,omitempty"`
	DayOfMonth       *int         `json:"dayOfMonth,omitempty"`
	AccountID        *string      `json:"accountId,omitempty"`
	Scope            *Scope       `json:"scope,omitempty"`
	SplitPercent     *float64     `json:"splitPercent,omitempty"`
	Payment          *PaymentMode `json:"payment,omitempty"`
	Destination      *Destination `json:"destination,omitempty"`
	ClearDestination bool         `json:"clearDestination,omitempty"`
}

type UpdateCharge struct {
	ID    string      `json:"id"`
	Patch ChargePatch `json:"patch"`
}

// RemoveCharge deactivates a charge for all future months.
type RemoveCharge struct {
	ID string `json:"id"`
}

// RemoveChargeForMonth hides a charge in one live month only.
type RemoveChargeForMonth struct {
	Month generic.YearMonth `json:"month"`
	ID    string            `json:"id"`
}

// ReorderCharges assigns ranks 10, 20, ... to IDs within Scope.
type ReorderCharges struct {
	Scope Scope    `json:"scope"`
	IDs   []string `json:"ids"`
}

type ToggleChargePaid struct {
	Month generic.YearMonth `json:"month"`
	ID    string            `json:"id"`
}

// =============================================================================
// BUDGETS
// =============================================================================

type AddBudget struct {
	Budget Budget `json:"budget"`
}

type BudgetPatch struct {
	Name         *string  `json:"name,omitempty"`
	AmountCents  *int64   `json:"amountCents,omitempty"`
	AccountID    *string  `json:"accountId,omitempty"`
	Scope        *Scope   `json:"scope,omitempty"`
	SplitPercent *float64 `json:"splitPercent,omitempty"`
}

type UpdateBudget struct {
	ID    string      `json:"id"`
	Patch BudgetPatch `json:"patch"`
}

// RemoveBudget deactivates a budget starting at From; earlier months keep
// showing it. A zero From means the current month.
type RemoveBudget struct {
	ID   string            `json:"id"`
	From generic.YearMonth `json:"from"`
}

type AddBudgetExpense struct {
	Month    generic.YearMonth `json:"month"`
	BudgetID string            `json:"budgetId"`
	Expense  BudgetExpense     `json:"expense"`
}

type RemoveBudgetExpense struct {
	Month     generic.YearMonth `json:"month"`
	BudgetID  string            `json:"budgetId"`
	ExpenseID string            `json:"expenseId"`
}

// SetBudgetCarryHandled sets the handled flags; nil leaves a flag as is.
type SetBudgetCarryHandled struct {
	Month        generic.YearMonth `json:"month"`
	BudgetID     string            `json:"budgetId"`
	CarryOver    *bool             `json:"carryOverHandled,omitempty"`
	CarryForward *bool             `json:"carryForwardHandled,omitempty"`
}

// =============================================================================
// MONTHS & DOCUMENT
// =============================================================================

type ArchiveMonthAction struct {
	Month generic.YearMonth `json:"month"`
}

type UnarchiveMonthAction struct {
	Month generic.YearMonth `json:"month"`
}

type EnsureMonth struct {
	Month generic.YearMonth `json:"month"`
}

// Hydrate replaces the whole state, e.g. after loading from storage.
type Hydrate struct {
	State *State `json:"state"`
}

func (SetSalary) Kind() string             { return "SET_SALARY" }
func (AddAccount) Kind() string            { return "ADD_ACCOUNT" }
func (UpdateAccount) Kind() string         { return "UPDATE_ACCOUNT" }
func (DeactivateAccount) Kind() string     { return "DEACTIVATE_ACCOUNT" }
func (AddCharge) Kind() string             { return "ADD_CHARGE" }
func (UpdateCharge) Kind() string          { return "UPDATE_CHARGE" }
func (RemoveCharge) Kind() string          { return "REMOVE_CHARGE" }
func (RemoveChargeForMonth) Kind() string  { return "REMOVE_CHARGE_FOR_MONTH" }
func (ReorderCharges) Kind() string        { return "REORDER_CHARGES" }
func (ToggleChargePaid) Kind() string      { return "TOGGLE_CHARGE_PAID" }
func (AddBudget) Kind() string             { return "ADD_BUDGET" }
func (UpdateBudget) Kind() string          { return "UPDATE_BUDGET" }
func (RemoveBudget) Kind() string          { return "REMOVE_BUDGET" }
func (AddBudgetExpense) Kind() string      { return "ADD_BUDGET_EXPENSE" }
func (RemoveBudgetExpense) Kind() string   { return "REMOVE_BUDGET_EXPENSE" }
func (SetBudgetCarryHandled) Kind() string { return "SET_BUDGET_CARRY_HANDLED" }
func (ArchiveMonthAction) Kind() string    { return "ARCHIVE_MONTH" }
func (UnarchiveMonthAction) Kind() string  { return "UNARCHIVE_MONTH" }
func (EnsureMonth) Kind() string           { return "ENSURE_MONTH" }
func (Hydrate) Kind() string               { return "HYDRATE" }

// =============================================================================
// DECODING
// =============================================================================

// ActionEnvelope is the wire form of an action.
type ActionEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var actionDecoders = map[string]func(json.RawMessage) (Action, error){
	SetSalary{}.Kind():             decodeAs[SetSalary],
	AddAccount{}.Kind():            decodeAs[AddAccount],
	UpdateAccount{}.Kind():         decodeAs[UpdateAccount],
	DeactivateAccount{}.Kind():     decodeAs[DeactivateAccount],
	AddCharge{}.Kind():             decodeAs[AddCharge],
	UpdateCharge{}.Kind():          decodeAs[UpdateCharge],
	RemoveCharge{}.Kind():          decodeAs[RemoveCharge],
	RemoveChargeForMonth{}.Kind():  decodeAs[RemoveChargeForMonth],
	ReorderCharges{}.Kind():        decodeAs[ReorderCharges],
	ToggleChargePaid{}.Kind():      decodeAs[ToggleChargePaid],
	AddBudget{}.Kind():             decodeAs[AddBudget],
	UpdateBudget{}.Kind():          decodeAs[UpdateBudget],
	RemoveBudget{}.Kind():          decodeAs[RemoveBudget],
	AddBudgetExpense{}.Kind():      decodeAs[AddBudgetExpense],
	RemoveBudgetExpense{}.Kind():   decodeAs[RemoveBudgetExpense],
	SetBudgetCarryHandled{}.Kind(): decodeAs[SetBudgetCarryHandled],
	ArchiveMonthAction{}.Kind():    decodeAs[ArchiveMonthAction],
	UnarchiveMonthAction{}.Kind():  decodeAs[UnarchiveMonthAction],
	EnsureMonth{}.Kind():           decodeAs[EnsureMonth],
	Hydrate{}.Kind():               decodeAs[Hydrate],
}

// DecodeAction parses {"type": ..., "payload": ...}.
func DecodeAction(data []byte) (Action, error) {
	var env ActionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrInvalidInput, err)
	}
	return env.Decode()
}

func (env ActionEnvelope) Decode() (Action, error) {
	decode, ok := actionDecoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", generic.ErrUnknownAction, env.Type)
	}
	return decode(env.Payload)
}

// ActionKinds lists the wire names of all actions.
func ActionKinds() []string {
	kinds := make([]string, 0, len(actionDecoders))
	for k := range actionDecoders {
		kinds = append(kinds, k)
	}
	return kinds
}

func decodeAs[T Action](payload json.RawMessage) (Action, error) {
	var a T
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", generic.ErrInvalidInput, a.Kind(), err)
		}
	}
	return a, nil
}
