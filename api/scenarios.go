/*
scenarios.go - Demo households for testing and demonstrations

PURPOSE:
	Provides pre-built households that show the engine's behavior on
	realistic data. Each scenario is a list of reducer actions applied to an
	empty document, relative to the current month, so every demo looks
	"live" whenever it is loaded.

AVAILABLE SCENARIOS:
	salary-savings:     The savings transfer absorbs what the salary leaves
	overspent-envelope: Envelope overspent last month, debt carried in
	forgiven-carry:     Same debt, acknowledged this month
	archived-account:   Account retired after its month was archived

HOW SCENARIOS WORK:
 1. Start from an empty normalized document
 2. Apply the scenario's actions through the Reducer (so they are
    validated exactly like user input)
 3. Replace the owner's stored document

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "overspent-envelope"}

ADDING NEW SCENARIOS:
 1. Add a scenario entry with ID, name, description and build function
 2. Build returns the actions for the given current month

NOTE:
	Loading a scenario overwrites the owner's document.

SEE ALSO:
  - handlers.go: Handler and helpers
  - household/reducer.go: The actions used here
*/
package api

import (
	"fmt"
	"net/http"

	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
	"github.com/warp/household-ledger/logging"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	build func(current generic.YearMonth) []household.Action
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "salary-savings",
			Name:        "Salary & Savings",
			Description: "3000.00 salary, shared rent of 1200.00 split 50/50 and a savings transfer with a 100.00 floor",
		},
		build: salarySavingsActions,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "overspent-envelope",
			Name:        "Overspent Envelope",
			Description: "Groceries envelope of 200.00 overspent by 50.00 last month; the debt is carried into this month",
		},
		build: overspentEnvelopeActions,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "forgiven-carry",
			Name:        "Forgiven Carry-Over",
			Description: "Same overspent envelope, but this month's inbound debt is marked as handled",
		},
		build: forgivenCarryActions,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "archived-account",
			Name:        "Archived Account",
			Description: "Last month was archived, then its bank account was retired; the archive still shows the old account",
		},
		build: archivedAccountActions,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// BuildScenario applies the scenario's actions to an empty document.
func BuildScenario(r *household.Reducer, id string, current generic.YearMonth) (*household.State, error) {
	s, ok := findScenario(id)
	if !ok {
		return nil, fmt.Errorf("%w: unknown scenario %q", generic.ErrInvalidInput, id)
	}
	return r.ApplyAll(household.NewState(), s.build(current)...)
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the scenario last loaded for the owner, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	id := h.currentScenario[h.owner(r)]
	h.mu.Unlock()

	if id == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if s, ok := findScenario(id); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: id, Name: id, Description: "Currently loaded scenario"})
}

// LoadScenario replaces the owner's document with a demo household.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := findScenario(req.ScenarioID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	current := h.Reducer.Clock.Today().YearMonth()
	st, err := BuildScenario(h.Reducer, req.ScenarioID, current)
	if err != nil {
		h.writeDomainError(w, "Failed to build scenario", err)
		return
	}

	owner := h.owner(r)
	h.mu.Lock()
	err = h.Syncer.Replace(r.Context(), owner, st)
	if err == nil {
		h.currentScenario[owner] = req.ScenarioID
	}
	h.mu.Unlock()
	if err != nil {
		h.writeDomainError(w, "Failed to store scenario", err)
		return
	}

	h.Log.InfoContext(r.Context(), "scenario loaded", logging.FieldOwner, owner, "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, StateResponse{Owner: owner, State: st})
}

// =============================================================================
// SCENARIO ACTIONS
// =============================================================================

const (
	accountJoint   = "Joint"
	accountSavings = "Savings"
	accountOldBank = "Old Bank"
)

func householdBasics() []household.Action {
	return []household.Action{
		household.AddAccount{ID: accountJoint, AccountKind: household.AccountShared},
		household.AddAccount{ID: accountSavings, AccountKind: household.AccountPersonal},
		household.SetSalary{SalaryCents: 300000},
	}
}

func salarySavingsActions(generic.YearMonth) []household.Action {
	return append(householdBasics(),
		household.AddCharge{Charge: household.Charge{
			ID:           "rent",
			Name:         "Loyer",
			AmountCents:  120000,
			DayOfMonth:   5,
			AccountID:    accountJoint,
			Scope:        household.ScopeShared,
			SplitPercent: household.Percent(50),
			Payment:      household.PaymentAuto,
		}},
		household.AddCharge{Charge: household.Charge{
			ID:          "savings",
			Name:        "Virement épargne",
			AmountCents: 10000,
			DayOfMonth:  28,
			AccountID:   household.DefaultAccountID,
			Scope:       household.ScopePersonal,
			Payment:     household.PaymentAuto,
			Destination: household.ToAccount(accountSavings),
		}},
	)
}

func groceriesEnvelope() household.Action {
	return household.AddBudget{Budget: household.Budget{
		ID:          "groceries",
		Name:        "Courses",
		AmountCents: 20000,
		AccountID:   household.DefaultAccountID,
		Scope:       household.ScopePersonal,
	}}
}

func overspentEnvelopeActions(current generic.YearMonth) []household.Action {
	prev := current.Prev()
	return append(householdBasics(),
		groceriesEnvelope(),
		household.AddBudgetExpense{
			Month:    prev,
			BudgetID: "groceries",
			Expense: household.BudgetExpense{
				ID:          "exp-big-shop",
				Date:        prev.Day(14),
				Label:       "Hypermarché",
				AmountCents: 25000,
			},
		},
	)
}

func forgivenCarryActions(current generic.YearMonth) []household.Action {
	return append(overspentEnvelopeActions(current),
		household.SetBudgetCarryHandled{Month: current, BudgetID: "groceries", CarryOver: boolPtr(true)},
	)
}

func archivedAccountActions(current generic.YearMonth) []household.Action {
	return []household.Action{
		household.AddAccount{ID: accountOldBank, AccountKind: household.AccountPersonal},
		household.SetSalary{SalaryCents: 250000},
		household.AddCharge{Charge: household.Charge{
			ID:          "phone",
			Name:        "Forfait mobile",
			AmountCents: 1999,
			DayOfMonth:  10,
			AccountID:   accountOldBank,
			Scope:       household.ScopePersonal,
			Payment:     household.PaymentAuto,
		}},
		household.ArchiveMonthAction{Month: current.Prev()},
		household.DeactivateAccount{ID: accountOldBank, ReassignTo: household.DefaultAccountID},
	}
}

func boolPtr(b bool) *bool { return &b }
