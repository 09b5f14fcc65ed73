package household

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/household-ledger/generic"
)

// ModifiedAtLayout is the UTC timestamp format of State.ModifiedAt. It sorts
// lexicographically in time order, which is what sync compares.
const ModifiedAtLayout = "2006-01-02T15:04:05.000Z"

// FormatModifiedAt renders t in ModifiedAtLayout.
func FormatModifiedAt(t time.Time) string {
	return t.UTC().Format(ModifiedAtLayout)
}

// sortStep is the gap between consecutive sort ranks.
const sortStep = 10

// =============================================================================
// REDUCER
// =============================================================================

// Reducer applies actions. It never mutates the State it is given.
type Reducer struct {
	Clock generic.Clock
	NewID func() string
}

func NewReducer(clock generic.Clock) *Reducer {
	return &Reducer{Clock: clock, NewID: uuid.NewString}
}

// Apply returns the state after a. On error the input state is unchanged
// and no new state is returned.
func (r *Reducer) Apply(st *State, a Action) (*State, error) {
	if a == nil {
		return nil, generic.Invalid("action", "required")
	}
	if st == nil {
		st = NewState()
	}
	next, err := a.apply(r, st.Clone())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Kind(), err)
	}
	if stamps(a) {
		next.ModifiedAt = FormatModifiedAt(r.now())
	}
	return next, nil
}

// ApplyAll folds actions left to right, stopping at the first error.
func (r *Reducer) ApplyAll(st *State, actions ...Action) (*State, error) {
	for _, a := range actions {
		next, err := r.Apply(st, a)
		if err != nil {
			return nil, err
		}
		st = next
	}
	return st, nil
}

func stamps(a Action) bool {
	switch a.(type) {
	case Hydrate, EnsureMonth:
		return false
	}
	return true
}

func (r *Reducer) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock()
}

func (r *Reducer) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}

// =============================================================================
// SALARY & ACCOUNTS
// =============================================================================

func (a SetSalary) apply(_ *Reducer, st *State) (*State, error) {
	if a.SalaryCents < 0 {
		return nil, generic.Invalid("salaryCents", "must not be negative")
	}
	st.SalaryCents = a.SalaryCents
	return st, nil
}

func (a AddAccount) apply(_ *Reducer, st *State) (*State, error) {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return nil, generic.Invalid("id", "required")
	}
	if _, ok := st.Account(id); ok {
		return nil, fmt.Errorf("%w: account %q", generic.ErrDuplicateID, id)
	}
	kind := a.AccountKind
	if kind == "" {
		kind = AccountPersonal
	}
	if !kind.Valid() {
		return nil, generic.Invalid("kind", "unknown account kind %q", kind)
	}
	st.Accounts = append(st.Accounts, Account{ID: id, Kind: kind, Active: true})
	return st, nil
}

func (a UpdateAccount) apply(_ *Reducer, st *State) (*State, error) {
	i := accountIndex(st, a.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", generic.ErrAccountNotFound, a.ID)
	}
	if a.AccountKind != nil {
		if !a.AccountKind.Valid() {
			return nil, generic.Invalid("kind", "unknown account kind %q", *a.AccountKind)
		}
		st.Accounts[i].Kind = *a.AccountKind
	}
	if a.Active != nil {
		if !*a.Active {
			return nil, generic.Invalid("isActive", "deactivate with %s so references are reassigned", DeactivateAccount{}.Kind())
		}
		st.Accounts[i].Active = true
	}
	return st, nil
}

func (a DeactivateAccount) apply(_ *Reducer, st *State) (*State, error) {
	i := accountIndex(st, a.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", generic.ErrAccountNotFound, a.ID)
	}
	if a.ReassignTo == a.ID {
		return nil, generic.Invalid("reassignTo", "must differ from the deactivated account")
	}
	target, ok := st.Account(a.ReassignTo)
	if !ok {
		return nil, fmt.Errorf("%w: reassign target %q", generic.ErrAccountNotFound, a.ReassignTo)
	}
	if !target.Active {
		return nil, generic.Invalid("reassignTo", "account %q is inactive", a.ReassignTo)
	}

	for j := range st.Charges {
		c := &st.Charges[j]
		if c.AccountID == a.ID {
			c.AccountID = a.ReassignTo
		}
		if c.Destination != nil && c.Destination.Kind == DestinationAccount && c.Destination.AccountID == a.ID {
			c.Destination = ToAccount(a.ReassignTo)
		}
	}
	for j := range st.Budgets {
		if st.Budgets[j].AccountID == a.ID {
			st.Budgets[j].AccountID = a.ReassignTo
		}
	}
	st.Accounts[i].Active = false
	return st, nil
}

// =============================================================================
// CHARGES
// =============================================================================

func (a AddCharge) apply(r *Reducer, st *State) (*State, error) {
	c := a.Charge
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		c.ID = r.newID()
	}
	if _, ok := st.Charge(c.ID); ok {
		return nil, fmt.Errorf("%w: charge %q", generic.ErrDuplicateID, c.ID)
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Scope == "" {
		c.Scope = ScopePersonal
	}
	if c.Payment == "" {
		c.Payment = PaymentManual
	}
	if err := validateCharge(c); err != nil {
		return nil, err
	}
	if err := validateChargeRefs(st, c); err != nil {
		return nil, err
	}
	if c.SortOrder == 0 {
		c.SortOrder = nextSortOrder(st, c.Scope)
	}
	c.SplitPercent = cloneFloat(c.SplitPercent)
	c.Destination = c.Destination.Clone()
	c.Active = true
	st.Charges = append(st.Charges, c)
	return st, nil
}

func (a UpdateCharge) apply(_ *Reducer, st *State) (*State, error) {
	i := chargeIndex(st, a.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", generic.ErrChargeNotFound, a.ID)
	}
	c := st.Charges[i]
	p := a.Patch
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.AmountCents != nil {
		c.AmountCents = *p.AmountCents
	}
	if p.DayOfMonth != nil {
		c.DayOfMonth = *p.DayOfMonth
	}
	if p.AccountID != nil {
		c.AccountID = *p.AccountID
	}
	if p.SplitPercent != nil {
		c.SplitPercent = cloneFloat(p.SplitPercent)
	}
	if p.Payment != nil {
		c.Payment = *p.Payment
	}
	switch {
	case p.ClearDestination:
		c.Destination = nil
	case p.Destination != nil:
		c.Destination = p.Destination.Clone()
	}
	scopeChanged := p.Scope != nil && *p.Scope != c.Scope
	if p.Scope != nil {
		c.Scope = *p.Scope
	}
	if err := validateCharge(c); err != nil {
		return nil, err
	}
	if p.AccountID != nil || p.Destination != nil {
		if err := validateChargeRefs(st, c); err != nil {
			return nil, err
		}
	}
	switch {
	case p.SortOrder != nil:
		c.SortOrder = *p.SortOrder
	case scopeChanged:
		c.SortOrder = nextSortOrder(st, c.Scope)
	}
	st.Charges[i] = c
	return st, nil
}

func (a RemoveCharge) apply(_ *Reducer, st *State) (*State, error) {
	i := chargeIndex(st, a.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", generic.ErrChargeNotFound, a.ID)
	}
	st.Charges[i].Active = false
	return st, nil
}

func (a RemoveChargeForMonth) apply(_ *Reducer, st *State) (*State, error) {
	if err := requireLiveMonth(st, a.Month); err != nil {
		return nil, err
	}
	_, hasDef := st.Charge(a.ID)
	_, hasOverride := st.Month(a.Month).Charges[a.ID]
	if !hasDef && !hasOverride {
		return nil, fmt.Errorf("%w: %q", generic.ErrChargeNotFound, a.ID)
	}
	md := monthForWrite(st, a.Month)
	ov := md.Charges[a.ID]
	ov.Removed = true
	md.Charges[a.ID] = ov
	return st, nil
}

// ReorderCharges ranks the listed ids first, in the given order, then the
// rest of the scope in its current order, so ranks stay unique.
func (a ReorderCharges) apply(_ *Reducer, st *State) (*State, error) {
	if !a.Scope.Valid() {
		return nil, generic.Invalid("scope", "unknown scope %q", a.Scope)
	}
	listed := make(map[string]bool, len(a.IDs))
	for _, id := range a.IDs {
		i := chargeIndex(st, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", generic.ErrChargeNotFound, id)
		}
		if st.Charges[i].Scope != a.Scope {
			return nil, generic.Invalid("ids", "charge %q is not in scope %s", id, a.Scope)
		}
		if listed[id] {
			return nil, generic.Invalid("ids", "charge %q listed twice", id)
		}
		listed[id] = true
	}

	var rest []int
	for i, c := range st.Charges {
		if c.Scope == a.Scope && !listed[c.ID] {
			rest = append(rest, i)
		}
	}
	sort.SliceStable(rest, func(x, y int) bool {
		return chargeRankLess(st.Charges[rest[x]], st.Charges[rest[y]])
	})

	rank := 0
	for _, id := range a.IDs {
		rank += sortStep
		st.Charges[chargeIndex(st, id)].SortOrder = rank
	}
	for _, i := range rest {
		rank += sortStep
		st.Charges[i].SortOrder = rank
	}
	return st, nil
}

// ToggleChargePaid flips the paid state the user currently sees, which may
// come from the auto-due default rather than a stored marker.
func (a ToggleChargePaid) apply(r *Reducer, st *State) (*State, error) {
	if err := requireLiveMonth(st, a.Month); err != nil {
		return nil, err
	}
	defs := indexCharges(st)
	res, ok := resolveCharge(defs, a.Month, st.Month(a.Month), a.ID, r.Clock.Today())
	if !ok {
		return nil, fmt.Errorf("%w: %q", generic.ErrChargeNotFound, a.ID)
	}

	md := monthForWrite(st, a.Month)
	ov := md.Charges[a.ID]
	ov.Paid = !res.paid
	if def, ok := defs[a.ID]; ok && def.Active && ov.Snapshot != nil {
		snap := def.Snapshot()
		ov.Snapshot = &snap
	}
	md.Charges[a.ID] = ov
	return st, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

func (a AddBudget) apply(r *Reducer, st *State) (*State, error) {
	b := a.Budget
	b.ID = strings.TrimSpace(b.ID)
	if b.ID == "" {
		b.ID = r.newID()
	}
	if _, ok := st.Budget(b.ID); ok {
		return nil, fmt.Errorf("%w: budget %q", generic.ErrDuplicateID, b.ID)
	}
	b.Name = strings.TrimSpace(b.Name)
	if b.Scope == "" {
		b.Scope = ScopePersonal
	}
	if err := validateBudget(b); err != nil {
		return nil, err
	}
	if err := requireActiveAccount(st, "accountId", b.AccountID); err != nil {
		return nil, err
	}
	b.SplitPercent = cloneFloat(b.SplitPercent)
	b.Active = true
	b.InactiveFromYm = nil
	st.Budgets = append(st.Budgets, b)
	return st, nil
}

func (a UpdateBudget) apply(_ *Reducer, st *State) (*State, error) {
	i := budgetIndex(st, a.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", generic.ErrBudgetNotFound, a.ID)
	}
	b := st.Budgets[i]
	p := a.Patch
	if p.Name != nil {
		b.Name = strings.TrimSpace(*p.Name)
	}
	if p.AmountCents != nil {
		b.AmountCents = *p.AmountCents
	}
	if p.AccountID != nil {
		b.AccountID = *p.AccountID
	}
	if p.Scope != nil {
		b.Scope = *p.Scope
	}
	if p.SplitPercent != nil {
		b.SplitPercent = cloneFloat(p.SplitPercent)
	}
	if err := validateBudget(b); err != nil {
		return nil, err
	}
	if p.AccountID != nil {
		if err := requireActiveAccount(st, "accountId", b.AccountID); err != nil {
			return nil, err
		}
	}
	st.Budgets[i] = b
	return st, nil
}

func (a RemoveBudget) apply(r *Reducer, st *State) (*State, error) {
	i := budgetIndex(st, a.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", generic.ErrBudgetNotFound, a.ID)
	}
	from := a.From
	if from.IsZero() {
		from = r.Clock.Today().YearMonth()
	}
	st.Budgets[i].Active = false
	st.Budgets[i].InactiveFromYm = &from
	return st, nil
}

func (a AddBudgetExpense) apply(r *Reducer, st *State) (*State, error) {
	if err := requireLiveMonth(st, a.Month); err != nil {
		return nil, err
	}
	if err := requireBudget(st, a.Month, a.BudgetID); err != nil {
		return nil, err
	}
	exp := a.Expense
	if exp.AmountCents <= 0 {
		return nil, generic.Invalid("amountCents", "expense must be positive")
	}
	exp.ID = strings.TrimSpace(exp.ID)
	if exp.ID == "" {
		exp.ID = r.newID()
	}
	exp.Label = strings.TrimSpace(exp.Label)
	if exp.Date.IsZero() {
		today := r.Clock.Today()
		if today.YearMonth() == a.Month {
			exp.Date = today
		} else {
			exp.Date = a.Month.First()
		}
	}

	md := monthForWrite(st, a.Month)
	ov := md.Budgets[a.BudgetID]
	for _, e := range ov.Expenses {
		if e.ID == exp.ID {
			return nil, fmt.Errorf("%w: expense %q", generic.ErrDuplicateID, exp.ID)
		}
	}
	ov.Expenses = append(ov.Expenses, exp)
	md.Budgets[a.BudgetID] = ov
	return st, nil
}

func (a RemoveBudgetExpense) apply(_ *Reducer, st *State) (*State, error) {
	if err := requireLiveMonth(st, a.Month); err != nil {
		return nil, err
	}
	ov, ok := st.Month(a.Month).Budgets[a.BudgetID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", generic.ErrExpenseNotFound, a.ExpenseID)
	}
	kept := make([]BudgetExpense, 0, len(ov.Expenses))
	for _, e := range ov.Expenses {
		if e.ID != a.ExpenseID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(ov.Expenses) {
		return nil, fmt.Errorf("%w: %q", generic.ErrExpenseNotFound, a.ExpenseID)
	}
	ov.Expenses = kept
	md := monthForWrite(st, a.Month)
	md.Budgets[a.BudgetID] = ov
	return st, nil
}

func (a SetBudgetCarryHandled) apply(_ *Reducer, st *State) (*State, error) {
	if err := requireLiveMonth(st, a.Month); err != nil {
		return nil, err
	}
	if err := requireBudget(st, a.Month, a.BudgetID); err != nil {
		return nil, err
	}
	md := monthForWrite(st, a.Month)
	ov := md.Budgets[a.BudgetID]
	if a.CarryOver != nil {
		ov.CarryOverHandled = *a.CarryOver
	}
	if a.CarryForward != nil {
		ov.CarryForwardHandled = *a.CarryForward
	}
	md.Budgets[a.BudgetID] = ov
	return st, nil
}

// =============================================================================
// MONTHS & DOCUMENT
// =============================================================================

func (a ArchiveMonthAction) apply(r *Reducer, st *State) (*State, error) {
	if a.Month.IsZero() {
		return nil, generic.Invalid("month", "required")
	}
	return ArchiveMonth(st, a.Month, r.Clock.Today()), nil
}

func (a UnarchiveMonthAction) apply(_ *Reducer, st *State) (*State, error) {
	if a.Month.IsZero() {
		return nil, generic.Invalid("month", "required")
	}
	return UnarchiveMonth(st, a.Month), nil
}

func (a EnsureMonth) apply(_ *Reducer, st *State) (*State, error) {
	if a.Month.IsZero() {
		return nil, generic.Invalid("month", "required")
	}
	monthForWrite(st, a.Month)
	return st, nil
}

func (a Hydrate) apply(_ *Reducer, _ *State) (*State, error) {
	if a.State == nil {
		return nil, generic.Invalid("state", "required")
	}
	return Normalize(a.State), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateCharge(c Charge) error {
	if c.Name == "" {
		return generic.Invalid("name", "required")
	}
	if c.AmountCents < 0 {
		return generic.Invalid("amountCents", "must not be negative")
	}
	if c.DayOfMonth < 1 || c.DayOfMonth > 31 {
		return generic.Invalid("dayOfMonth", "%d is outside 1..31", c.DayOfMonth)
	}
	if !c.Scope.Valid() {
		return generic.Invalid("scope", "unknown scope %q", c.Scope)
	}
	if !c.Payment.Valid() {
		return generic.Invalid("payment", "unknown payment mode %q", c.Payment)
	}
	if d := c.Destination; d != nil {
		switch d.Kind {
		case DestinationAccount:
		case DestinationText:
			if strings.TrimSpace(d.Text) == "" {
				return generic.Invalid("destination", "text is empty")
			}
		default:
			return generic.Invalid("destination", "unknown kind %q", d.Kind)
		}
	}
	return validateSplit(c.SplitPercent)
}

// validateChargeRefs checks the accounts a charge points at. Only new or
// changed references must be active: a charge may keep pointing at an
// account the normalizer recreated as inactive.
func validateChargeRefs(st *State, c Charge) error {
	if err := requireActiveAccount(st, "accountId", c.AccountID); err != nil {
		return err
	}
	if id, ok := c.Destination.RoutedAccount(); ok {
		return requireActiveAccount(st, "destination", id)
	}
	if c.Destination != nil && c.Destination.Kind == DestinationAccount {
		return generic.Invalid("destination", "account is empty")
	}
	return nil
}

func validateBudget(b Budget) error {
	if b.Name == "" {
		return generic.Invalid("name", "required")
	}
	if b.AmountCents < 0 {
		return generic.Invalid("amountCents", "must not be negative")
	}
	if !b.Scope.Valid() {
		return generic.Invalid("scope", "unknown scope %q", b.Scope)
	}
	return validateSplit(b.SplitPercent)
}

func validateSplit(p *float64) error {
	if p == nil {
		return nil
	}
	if math.IsNaN(*p) || math.IsInf(*p, 0) || *p < 0 || *p > 100 {
		return generic.Invalid("splitPercent", "%v is outside 0..100", *p)
	}
	return nil
}

func requireActiveAccount(st *State, field, id string) error {
	acc, ok := st.Account(id)
	if !ok {
		return fmt.Errorf("%w: %s %q", generic.ErrAccountNotFound, field, id)
	}
	if !acc.Active {
		return generic.Invalid(field, "account %q is inactive", id)
	}
	return nil
}

func requireLiveMonth(st *State, ym generic.YearMonth) error {
	if ym.IsZero() {
		return generic.Invalid("month", "required")
	}
	if st.Month(ym).Archived {
		return fmt.Errorf("%w: %s", generic.ErrMonthArchived, ym)
	}
	return nil
}

// requireBudget accepts a budget known by definition or by a month snapshot.
func requireBudget(st *State, ym generic.YearMonth, id string) error {
	if _, ok := st.Budget(id); ok {
		return nil
	}
	if st.Month(ym).Budgets[id].Snapshot != nil {
		return nil
	}
	return fmt.Errorf("%w: %q", generic.ErrBudgetNotFound, id)
}

// =============================================================================
// HELPERS
// =============================================================================

func nextSortOrder(st *State, scope Scope) int {
	highest := 0
	for _, c := range st.Charges {
		if c.Scope == scope && c.SortOrder > highest {
			highest = c.SortOrder
		}
	}
	return highest + sortStep
}

// chargeRankLess is the definition-level order used when ranks are assigned.
func chargeRankLess(a, b Charge) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	if a.DayOfMonth != b.DayOfMonth {
		return a.DayOfMonth < b.DayOfMonth
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

func chargeIndex(st *State, id string) int {
	for i, c := range st.Charges {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func budgetIndex(st *State, id string) int {
	for i, b := range st.Budgets {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func accountIndex(st *State, id string) int {
	for i, a := range st.Accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}
