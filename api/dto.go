/*
dto.go - Request/response shapes of the HTTP API

Most responses reuse the household types directly (State, MonthView,
ChargeRow, BudgetRow, Totals, AccountTotal): they already carry JSON tags
and are the contract the front end renders. This file only holds the
envelopes around them.
*/
package api

import (
	"time"

	"github.com/warp/household-ledger/household"
)

// StateResponse wraps a document, with the sync decision for PUT /api/state.
type StateResponse struct {
	Owner    string           `json:"owner"`
	Decision string           `json:"decision,omitempty"`
	State    *household.State `json:"state"`
}

// HistoryEntryDTO is one replaced document, without its payload.
type HistoryEntryDTO struct {
	ModifiedAt string    `json:"modifiedAt"`
	Version    int       `json:"version"`
	ReplacedAt time.Time `json:"replacedAt"`
}

// ActionKindsResponse lists the accepted action types.
type ActionKindsResponse struct {
	Types []string `json:"types"`
}

// ScenarioDTO represents a demo household.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
