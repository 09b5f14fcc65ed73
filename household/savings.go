package household

import (
	"strings"
	"unicode"

	"github.com/warp/household-ledger/generic"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// SAVINGS POLICY - Which charge absorbs the leftover salary
// =============================================================================
//
// The monthly savings transfer is not a fixed amount: it takes whatever the
// salary leaves after every other charge and every envelope, but never less
// than its configured amount (the floor).
//
// The savings charge is found by name. The match runs on a folded name
// (lowercase, no diacritics, single spaces) so "Virement Épargne",
// "virement epargne" and the common typo "virement éparne" all qualify.
// Only personal, auto-payment charges with a live definition are candidates.
//
// TODO: replace the name heuristic with an explicit "savings anchor" flag on
// Charge once the normalizer can back-fill it for existing documents.

type SavingsPolicy struct {
	// Contains lists folded substrings that make a name a candidate.
	Contains []string
	// Exact lists folded names that win over any other candidate.
	Exact []string
	// Prefixes lists folded prefixes ranked right after exact names.
	Prefixes []string
}

func DefaultSavingsPolicy() SavingsPolicy {
	return SavingsPolicy{
		Contains: []string{"epargne", "eparne"},
		Exact:    []string{"virement epargne", "epargne"},
		Prefixes: []string{"virement epargne", "virement eparne"},
	}
}

// Matches reports whether a charge name looks like the savings transfer.
func (p SavingsPolicy) Matches(name string) bool {
	folded := FoldName(name)
	for _, s := range p.Contains {
		if strings.Contains(folded, s) {
			return true
		}
	}
	return false
}

type savingsCandidate struct {
	index  int
	exact  bool
	prefix bool
	order  int
	id     string
}

func (a savingsCandidate) beats(b savingsCandidate) bool {
	if a.exact != b.exact {
		return a.exact
	}
	if a.prefix != b.prefix {
		return a.prefix
	}
	if a.order != b.order {
		return a.order < b.order
	}
	return a.id < b.id
}

// Pick returns the index of the savings row, or -1.
func (p SavingsPolicy) Pick(rows []ChargeRow, eligible map[string]bool) int {
	best := savingsCandidate{index: -1}
	for i, r := range rows {
		if r.Scope != ScopePersonal || !eligible[r.ID] || !p.Matches(r.Name) {
			continue
		}
		folded := FoldName(r.Name)
		c := savingsCandidate{
			index:  i,
			exact:  containsString(p.Exact, folded),
			prefix: hasAnyPrefix(folded, p.Prefixes),
			order:  r.SortOrder,
			id:     r.ID,
		}
		if best.index < 0 || c.beats(best) {
			best = c
		}
	}
	return best.index
}

// Apply recomputes the savings row in place:
//
//	floor  = max(0, configured amount)
//	extra  = max(0, salary - other charges' my-shares - budget my-shares - floor)
//	amount = floor + extra
//
// Both AmountCents and MyShareCents of the row are overwritten. The
// definition itself is never touched.
func (p SavingsPolicy) Apply(rows []ChargeRow, eligible map[string]bool, budgets []BudgetRow, salary int64) {
	idx := p.Pick(rows, eligible)
	if idx < 0 {
		return
	}

	var others int64
	for i, r := range rows {
		if i != idx {
			others += r.MyShareCents
		}
	}
	var envelopes int64
	for _, b := range budgets {
		envelopes += b.MyShareCents
	}

	floor := generic.MaxCents(0, rows[idx].AmountCents)
	extra := generic.MaxCents(0, salary-others-envelopes-floor)

	rows[idx].AmountCents = floor + extra
	rows[idx].MyShareCents = floor + extra
	rows[idx].IsSavings = true
}

// FoldName lowercases, strips diacritics and collapses whitespace.
func FoldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
