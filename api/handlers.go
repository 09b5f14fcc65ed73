/*
handlers.go - HTTP API handlers for the household ledger

PURPOSE:
  Exposes the resolution engine and the reducer over REST. Handles HTTP
  request/response and JSON, and delegates everything else to household.

ENDPOINTS:
  Document:
    GET    /api/state                  Current document of the owner
    PUT    /api/state                  Sync push (last write wins)
    GET    /api/state/history          Replaced documents (SQLite store only)

  Actions:
    GET    /api/actions                Accepted action types
    POST   /api/actions                Apply {"type": ..., "payload": ...}

  Months:
    GET    /api/months/{ym}            Full month view
    GET    /api/months/{ym}/charges    Charge rows
    GET    /api/months/{ym}/budgets    Budget rows
    GET    /api/months/{ym}/totals     Month totals
    GET    /api/months/{ym}/accounts   Per-account totals
    POST   /api/months/{ym}/archive    Freeze the month
    POST   /api/months/{ym}/unarchive  Make the month live again

  Scenarios:
    GET    /api/scenarios              List demo households
    POST   /api/scenarios/load         Replace the document with a demo

OWNER:
  Every request works on one owner's document, named by the X-Owner-ID
  header, or the configured default owner without it.

REQUEST FLOW (writes):
  1. Decode the action
  2. Load the owner's document (or an empty one)
  3. Reducer.Apply
  4. Store the new document
  5. Return it
  Writes are serialized by a mutex so two requests cannot both start from
  the same stored document.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown action type
  - 404: Unknown charge, budget, account or expense
  - 409: Edits to an archived month
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The owner header is trusted as given.

SEE ALSO:
  - dto.go: Response envelopes
  - scenarios.go: Demo households
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
	"github.com/warp/household-ledger/logging"
)

// OwnerHeader names the document a request works on.
const OwnerHeader = "X-Owner-ID"

const maxBodyBytes = 4 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// HistoryStore is implemented by stores that keep replaced documents.
type HistoryStore interface {
	History(ctx context.Context, ownerID string, limit int) ([]generic.Record, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Syncer       *household.Syncer
	Engine       *household.Engine
	Reducer      *household.Reducer
	Log          *logging.Logger
	DefaultOwner string

	mu sync.Mutex

	// Last scenario loaded per owner
	currentScenario map[string]string
}

// NewHandler creates a handler over store. clock decides "today" for both
// the engine and the reducer.
func NewHandler(store generic.DocumentStore, clock generic.Clock, defaultOwner string, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		Syncer:          household.NewSyncer(store, log),
		Engine:          household.NewEngine(clock),
		Reducer:         household.NewReducer(clock),
		Log:             log.WithComponent(logging.ComponentHTTP),
		DefaultOwner:    defaultOwner,
		currentScenario: make(map[string]string),
	}
}

func (h *Handler) owner(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(OwnerHeader)); id != "" {
		return id
	}
	return h.DefaultOwner
}

// apply runs one action against the owner's stored document and stores
// the result.
func (h *Handler) apply(ctx context.Context, owner string, a household.Action) (*household.State, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, err := h.Syncer.LoadOrNew(ctx, owner)
	if err != nil {
		return nil, err
	}
	next, err := h.Reducer.Apply(st, a)
	if err != nil {
		return nil, err
	}
	if err := h.Syncer.Replace(ctx, owner, next); err != nil {
		return nil, err
	}
	h.Log.DebugContext(ctx, "action applied",
		logging.FieldOwner, owner, logging.FieldAction, a.Kind())
	return next, nil
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// GetState returns the owner's document, empty when none is stored.
// GET /api/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)
	st, err := h.Syncer.LoadOrNew(r.Context(), owner)
	if err != nil {
		h.writeDomainError(w, "Failed to load document", err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Owner: owner, State: st})
}

// PutState pushes a whole document. The stored one wins if it is newer.
// PUT /api/state
func (h *Handler) PutState(w http.ResponseWriter, r *http.Request) {
	var st household.State
	if err := decodeBody(r, &st); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document", err)
		return
	}

	owner := h.owner(r)
	h.mu.Lock()
	winner, decision, err := h.Syncer.Save(r.Context(), owner, &st)
	h.mu.Unlock()
	if err != nil {
		h.writeDomainError(w, "Failed to save document", err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Owner: owner, Decision: decision.String(), State: winner})
}

// GetStateHistory lists replaced documents, newest first.
// GET /api/state/history?limit=N
func (h *Handler) GetStateHistory(w http.ResponseWriter, r *http.Request) {
	hs, ok := h.Syncer.Store.(HistoryStore)
	if !ok {
		writeError(w, http.StatusNotImplemented, "History is not kept by this store", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := hs.History(r.Context(), h.owner(r), limit)
	if err != nil {
		h.writeDomainError(w, "Failed to load history", err)
		return
	}
	dtos := make([]HistoryEntryDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = HistoryEntryDTO{ModifiedAt: rec.ModifiedAt, Version: rec.Version, ReplacedAt: rec.UpdatedAt}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ACTION HANDLERS
// =============================================================================

// ListActionKinds returns the accepted action types, sorted.
// GET /api/actions
func (h *Handler) ListActionKinds(w http.ResponseWriter, r *http.Request) {
	kinds := household.ActionKinds()
	sort.Strings(kinds)
	writeJSON(w, http.StatusOK, ActionKindsResponse{Types: kinds})
}

// PostAction applies one action.
// POST /api/actions
func (h *Handler) PostAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	action, err := household.DecodeAction(body)
	if err != nil {
		h.writeDomainError(w, "Invalid action", err)
		return
	}

	owner := h.owner(r)
	st, err := h.apply(r.Context(), owner, action)
	if err != nil {
		h.writeDomainError(w, "Action rejected", err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Owner: owner, State: st})
}

// =============================================================================
// MONTH HANDLERS
// =============================================================================

// monthView resolves the {ym} month of the owner's document.
func (h *Handler) monthView(w http.ResponseWriter, r *http.Request) (household.MonthView, bool) {
	ym, err := generic.ParseYearMonth(chi.URLParam(r, "ym"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return household.MonthView{}, false
	}
	st, err := h.Syncer.LoadOrNew(r.Context(), h.owner(r))
	if err != nil {
		h.writeDomainError(w, "Failed to load document", err)
		return household.MonthView{}, false
	}
	return h.Engine.ResolveMonth(st, ym), true
}

// GetMonth returns charges, budgets and totals of one month.
// GET /api/months/{ym}
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	if view, ok := h.monthView(w, r); ok {
		writeJSON(w, http.StatusOK, view)
	}
}

// GET /api/months/{ym}/charges
func (h *Handler) GetMonthCharges(w http.ResponseWriter, r *http.Request) {
	if view, ok := h.monthView(w, r); ok {
		writeJSON(w, http.StatusOK, view.Charges)
	}
}

// GET /api/months/{ym}/budgets
func (h *Handler) GetMonthBudgets(w http.ResponseWriter, r *http.Request) {
	if view, ok := h.monthView(w, r); ok {
		writeJSON(w, http.StatusOK, view.Budgets)
	}
}

// GET /api/months/{ym}/totals
func (h *Handler) GetMonthTotals(w http.ResponseWriter, r *http.Request) {
	if view, ok := h.monthView(w, r); ok {
		writeJSON(w, http.StatusOK, view.Totals)
	}
}

// GET /api/months/{ym}/accounts
func (h *Handler) GetMonthAccounts(w http.ResponseWriter, r *http.Request) {
	if view, ok := h.monthView(w, r); ok {
		writeJSON(w, http.StatusOK, view.Accounts)
	}
}

// ArchiveMonth freezes a month and returns its view.
// POST /api/months/{ym}/archive
func (h *Handler) ArchiveMonth(w http.ResponseWriter, r *http.Request) {
	h.monthTransition(w, r, func(ym generic.YearMonth) household.Action {
		return household.ArchiveMonthAction{Month: ym}
	})
}

// UnarchiveMonth makes a month live again and returns its view.
// POST /api/months/{ym}/unarchive
func (h *Handler) UnarchiveMonth(w http.ResponseWriter, r *http.Request) {
	h.monthTransition(w, r, func(ym generic.YearMonth) household.Action {
		return household.UnarchiveMonthAction{Month: ym}
	})
}

func (h *Handler) monthTransition(w http.ResponseWriter, r *http.Request, build func(generic.YearMonth) household.Action) {
	ym, err := generic.ParseYearMonth(chi.URLParam(r, "ym"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	owner := h.owner(r)
	st, err := h.apply(r.Context(), owner, build(ym))
	if err != nil {
		h.writeDomainError(w, "Month transition failed", err)
		return
	}
	h.Log.InfoContext(r.Context(), "month transition",
		logging.FieldOwner, owner, logging.FieldMonth, ym.String(), "archived", st.Month(ym).Archived)
	writeJSON(w, http.StatusOK, h.Engine.ResolveMonth(st, ym))
}

// Healthz reports liveness.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Log.Error(message, logging.FieldError, err)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}

func statusFor(err error) (int, string) {
	switch {
	case generic.IsConflict(err):
		return http.StatusConflict, "conflict"
	case errors.Is(err, generic.ErrRecordNotFound):
		return http.StatusNotFound, "record_not_found"
	case errors.Is(err, generic.ErrNoUsableRecord):
		return http.StatusUnprocessableEntity, "no_usable_record"
	case generic.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case generic.IsClientError(err):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}
