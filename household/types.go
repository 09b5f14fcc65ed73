/*
Package household implements the monthly resolution and carry-over engine.

PURPOSE:
  A household keeps a set of recurring charges (rent, subscriptions, the
  monthly savings transfer) and budget envelopes (groceries, fuel). Those
  definitions are the single source of truth for FUTURE months. Each past
  or current month may carry sparse overrides (paid markers, expenses,
  removals) and, once closed out, frozen snapshots. This package turns
  definitions + overrides + snapshots into the effective rows of any month.

KEY CONCEPTS IN THIS FILE (types.go):
  - State: the whole persisted document (one per household)
  - Charge / Budget: recurring definitions, addressed by id, never deleted
  - MonthData: per-month overrides, keyed by YearMonth
  - ChargeSnapshot / BudgetSnapshot: frozen copies stored inside a month
  - Destination: where a charge's money goes (an account or free text)

TWO MONTH MODES:
  live:     resolution reads live definitions, falling back to overrides
  archived: resolution reads ONLY the month's snapshots

INVARIANTS:
  1. The engine never mutates a State. Mutations go through the Reducer,
     which always works on a Clone.
  2. Snapshot data for an archived month never changes when a definition
     is edited later.
  3. Deactivation sets Active=false; rows are tombstones, never removed.

SEE ALSO:
  - charges.go: charge resolution
  - budgets.go: budget resolution and the carry-over chain
  - archive.go: the archive/unarchive transition
  - reducer.go: all other state transitions
*/
package household

import (
	"sort"

	"github.com/warp/household-ledger/generic"
)

// CurrentVersion is the document schema version this package reads and writes.
const CurrentVersion = 3

// =============================================================================
// ENUMS
// =============================================================================

type Scope string

const (
	ScopeShared   Scope = "shared"
	ScopePersonal Scope = "personal"
)

func (s Scope) Valid() bool { return s == ScopeShared || s == ScopePersonal }

type PaymentMode string

const (
	PaymentAuto   PaymentMode = "auto"
	PaymentManual PaymentMode = "manual"
)

func (p PaymentMode) Valid() bool { return p == PaymentAuto || p == PaymentManual }

type AccountKind string

const (
	AccountPersonal AccountKind = "personal"
	AccountShared   AccountKind = "shared"
)

func (k AccountKind) Valid() bool { return k == AccountPersonal || k == AccountShared }

// =============================================================================
// DEFINITIONS
// =============================================================================

// Account is identified by its display key. Accounts are never deleted.
type Account struct {
	ID     string      `json:"id"`
	Kind   AccountKind `json:"kind"`
	Active bool        `json:"isActive"`
}

// Charge is a recurring monthly obligation.
type Charge struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	AmountCents  int64        `json:"amountCents"`
	SortOrder    int          `json:"sortOrder"`
	DayOfMonth   int          `json:"dayOfMonth"`
	AccountID    string       `json:"accountId"`
	Scope        Scope        `json:"scope"`
	SplitPercent *float64     `json:"splitPercent,omitempty"`
	Payment      PaymentMode  `json:"payment"`
	Destination  *Destination `json:"destination,omitempty"`
	Active       bool         `json:"isActive"`
}

// Budget is a recurring monthly envelope.
type Budget struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	AmountCents  int64    `json:"amountCents"`
	AccountID    string   `json:"accountId"`
	Scope        Scope    `json:"scope"`
	SplitPercent *float64 `json:"splitPercent,omitempty"`
	Active       bool     `json:"isActive"`

	// InactiveFromYm keeps a deactivated budget visible in months before it.
	InactiveFromYm *generic.YearMonth `json:"inactiveFromYm,omitempty"`
}

// EnabledIn reports whether the budget belongs in the live rows of ym.
func (b Budget) EnabledIn(ym generic.YearMonth) bool {
	if b.Active {
		return true
	}
	return b.InactiveFromYm != nil && ym.Before(*b.InactiveFromYm)
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// ChargeSnapshot is the frozen copy of the fields that matter for resolution.
type ChargeSnapshot struct {
	Name         string       `json:"name"`
	AmountCents  int64        `json:"amountCents"`
	SortOrder    int          `json:"sortOrder"`
	DayOfMonth   int          `json:"dayOfMonth"`
	AccountID    string       `json:"accountId"`
	Scope        Scope        `json:"scope"`
	SplitPercent *float64     `json:"splitPercent,omitempty"`
	Payment      PaymentMode  `json:"payment"`
	Destination  *Destination `json:"destination,omitempty"`
}

func (c Charge) Snapshot() ChargeSnapshot {
	return ChargeSnapshot{
		Name:         c.Name,
		AmountCents:  c.AmountCents,
		SortOrder:    c.SortOrder,
		DayOfMonth:   c.DayOfMonth,
		AccountID:    c.AccountID,
		Scope:        c.Scope,
		SplitPercent: cloneFloat(c.SplitPercent),
		Payment:      c.Payment,
		Destination:  c.Destination.Clone(),
	}
}

func (s *ChargeSnapshot) Clone() *ChargeSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.SplitPercent = cloneFloat(s.SplitPercent)
	c.Destination = s.Destination.Clone()
	return &c
}

// BudgetSnapshot is the frozen copy of a budget's resolution fields.
type BudgetSnapshot struct {
	Name         string   `json:"name"`
	AmountCents  int64    `json:"amountCents"`
	AccountID    string   `json:"accountId"`
	Scope        Scope    `json:"scope"`
	SplitPercent *float64 `json:"splitPercent,omitempty"`
}

func (b Budget) Snapshot() BudgetSnapshot {
	return BudgetSnapshot{
		Name:         b.Name,
		AmountCents:  b.AmountCents,
		AccountID:    b.AccountID,
		Scope:        b.Scope,
		SplitPercent: cloneFloat(b.SplitPercent),
	}
}

func (s *BudgetSnapshot) Clone() *BudgetSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.SplitPercent = cloneFloat(s.SplitPercent)
	return &c
}

// =============================================================================
// MONTH DATA - Sparse per-month overrides
// =============================================================================

type ChargeOverride struct {
	Paid     bool            `json:"paid"`
	Snapshot *ChargeSnapshot `json:"snapshot,omitempty"`
	Removed  bool            `json:"removed,omitempty"`
}

type BudgetExpense struct {
	ID          string       `json:"id"`
	Date        generic.Date `json:"date"`
	Label       string       `json:"label"`
	AmountCents int64        `json:"amountCents"`
}

// CarryIn is the inbound carry of a month, frozen when the month is archived.
type CarryIn struct {
	DebtCents   int64 `json:"debtCents"`
	CreditCents int64 `json:"creditCents"`
}

func (c *CarryIn) Clone() *CarryIn {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

type BudgetOverride struct {
	Expenses            []BudgetExpense `json:"expenses"`
	Snapshot            *BudgetSnapshot `json:"snapshot,omitempty"`
	CarryIn             *CarryIn        `json:"carryIn,omitempty"`
	CarryOverHandled    bool            `json:"carryOverHandled,omitempty"`
	CarryForwardHandled bool            `json:"carryForwardHandled,omitempty"`
}

// HasCarrySignal reports whether this override anchors the carry-over chain.
func (o BudgetOverride) HasCarrySignal() bool {
	return o.Snapshot != nil || len(o.Expenses) > 0 || o.CarryOverHandled || o.CarryForwardHandled
}

type MonthData struct {
	Archived bool                      `json:"archived"`
	Charges  map[string]ChargeOverride `json:"charges"`
	Budgets  map[string]BudgetOverride `json:"budgets"`
}

func NewMonthData() MonthData {
	return MonthData{
		Charges: make(map[string]ChargeOverride),
		Budgets: make(map[string]BudgetOverride),
	}
}

func (m MonthData) Clone() MonthData {
	c := MonthData{
		Archived: m.Archived,
		Charges:  make(map[string]ChargeOverride, len(m.Charges)),
		Budgets:  make(map[string]BudgetOverride, len(m.Budgets)),
	}
	for id, ov := range m.Charges {
		ov.Snapshot = ov.Snapshot.Clone()
		c.Charges[id] = ov
	}
	for id, ov := range m.Budgets {
		ov.Snapshot = ov.Snapshot.Clone()
		ov.CarryIn = ov.CarryIn.Clone()
		ov.Expenses = append([]BudgetExpense(nil), ov.Expenses...)
		c.Budgets[id] = ov
	}
	return c
}

// chargeIDs returns the override ids in a stable order.
func (m MonthData) chargeIDs() []string {
	ids := make([]string, 0, len(m.Charges))
	for id := range m.Charges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m MonthData) budgetIDs() []string {
	ids := make([]string, 0, len(m.Budgets))
	for id := range m.Budgets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// =============================================================================
// STATE - The whole document
// =============================================================================

type State struct {
	Version     int                             `json:"version"`
	SalaryCents int64                           `json:"salaryCents"`
	Accounts    []Account                       `json:"accounts"`
	Charges     []Charge                        `json:"charges"`
	Budgets     []Budget                        `json:"budgets"`
	Months      map[generic.YearMonth]MonthData `json:"months"`
	ModifiedAt  string                          `json:"modifiedAt,omitempty"`
}

// NewState returns an empty, normalized document.
func NewState() *State {
	return Normalize(&State{})
}

// Month returns the month's data, or an empty live month.
func (s *State) Month(ym generic.YearMonth) MonthData {
	if md, ok := s.Months[ym]; ok {
		return md
	}
	return MonthData{}
}

func (s *State) Charge(id string) (Charge, bool) {
	for _, c := range s.Charges {
		if c.ID == id {
			return c, true
		}
	}
	return Charge{}, false
}

func (s *State) Budget(id string) (Budget, bool) {
	for _, b := range s.Budgets {
		if b.ID == id {
			return b, true
		}
	}
	return Budget{}, false
}

func (s *State) Account(id string) (Account, bool) {
	for _, a := range s.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// AccountName returns the display name for an account id. Unknown ids are
// displayed raw.
func (s *State) AccountName(id string) string {
	if a, ok := s.Account(id); ok {
		return a.ID
	}
	return id
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := &State{
		Version:     s.Version,
		SalaryCents: s.SalaryCents,
		Accounts:    append([]Account(nil), s.Accounts...),
		Charges:     make([]Charge, len(s.Charges)),
		Budgets:     make([]Budget, len(s.Budgets)),
		Months:      make(map[generic.YearMonth]MonthData, len(s.Months)),
		ModifiedAt:  s.ModifiedAt,
	}
	for i, ch := range s.Charges {
		ch.SplitPercent = cloneFloat(ch.SplitPercent)
		ch.Destination = ch.Destination.Clone()
		c.Charges[i] = ch
	}
	for i, b := range s.Budgets {
		b.SplitPercent = cloneFloat(b.SplitPercent)
		if b.InactiveFromYm != nil {
			ym := *b.InactiveFromYm
			b.InactiveFromYm = &ym
		}
		c.Budgets[i] = b
	}
	for ym, md := range s.Months {
		c.Months[ym] = md.Clone()
	}
	return c
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Percent is a convenience for building split percentages.
func Percent(v float64) *float64 { return &v }
