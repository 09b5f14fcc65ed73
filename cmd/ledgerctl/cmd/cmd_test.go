package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/warp/household-ledger/cmd/ledgerctl/cmd"
	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
	"github.com/warp/household-ledger/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// Documents are stamped well in the past so that any later edit wins.
var seededAt = time.Date(2020, time.January, 15, 10, 0, 0, 0, time.UTC)

type cli struct {
	dir    string
	dbPath string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{dir: dir, dbPath: filepath.Join(dir, "ledger.db")}
}

func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cmd.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--db", c.dbPath, "--env", filepath.Join(c.dir, "missing.env")))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(t, args...)
	require.NoError(t, err, "ledgerctl %s", strings.Join(args, " "))
	return out
}

// seed stores a household with rent, a savings transfer and a groceries envelope.
func (c *cli) seed(t *testing.T, owner string) {
	t.Helper()
	store, err := sqlite.New(c.dbPath)
	require.NoError(t, err)
	defer store.Close()

	r := household.NewReducer(func() time.Time { return seededAt })
	st, err := r.ApplyAll(household.NewState(),
		household.AddAccount{ID: "Joint", AccountKind: household.AccountShared},
		household.AddAccount{ID: "Savings"},
		household.SetSalary{SalaryCents: 300000},
		household.AddCharge{Charge: household.Charge{
			ID: "rent", Name: "Loyer", AmountCents: 120000, DayOfMonth: 5, AccountID: "Joint",
			Scope: household.ScopeShared, SplitPercent: household.Percent(50), Payment: household.PaymentAuto,
		}},
		household.AddCharge{Charge: household.Charge{
			ID: "savings", Name: "Virement épargne", AmountCents: 10000, DayOfMonth: 28,
			AccountID: household.DefaultAccountID, Payment: household.PaymentAuto, Destination: household.ToAccount("Savings"),
		}},
		household.AddBudget{Budget: household.Budget{ID: "groceries", Name: "Courses", AmountCents: 20000, AccountID: household.DefaultAccountID}},
	)
	require.NoError(t, err)
	require.NoError(t, household.NewSyncer(store, nil).Replace(context.Background(), owner, st))
}

func (c *cli) stored(t *testing.T, owner string) *household.State {
	t.Helper()
	store, err := sqlite.New(c.dbPath)
	require.NoError(t, err)
	defer store.Close()

	st, err := household.NewSyncer(store, nil).Load(context.Background(), owner)
	require.NoError(t, err)
	return st
}

func findCharge(view household.MonthView, id string) (household.ChargeRow, bool) {
	for _, c := range view.Charges {
		if c.ID == id {
			return c, true
		}
	}
	return household.ChargeRow{}, false
}

// =============================================================================
// MONTH
// =============================================================================

func TestMonth_JSON(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "alice")

	out := c.mustRun(t, "month", "2026-03", "--owner", "alice", "--as-of", "2026-03-20", "-o", "json")

	var view household.MonthView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, generic.MustYearMonth("2026-03"), view.Month)
	require.Len(t, view.Charges, 2)

	rentRow, ok := findCharge(view, "rent")
	require.True(t, ok)
	assert.True(t, rentRow.Paid, "auto charge due on the 5th is paid by the 20th")
	assert.Equal(t, int64(60000), rentRow.MyShareCents)

	savingsRow, ok := findCharge(view, "savings")
	require.True(t, ok)
	assert.False(t, savingsRow.Paid)
	assert.Equal(t, int64(220000), savingsRow.AmountCents)

	assert.Equal(t, int64(0), view.Totals.MoneyLeftCents)
}

func TestMonth_AsOfChangesPaidState(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "alice")

	out := c.mustRun(t, "month", "2026-03", "--owner", "alice", "--as-of", "2026-03-01", "-o", "json")

	var view household.MonthView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	rentRow, _ := findCharge(view, "rent")
	assert.False(t, rentRow.Paid)
}

func TestMonth_YAML(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "alice")

	out := c.mustRun(t, "month", "2026-03", "--owner", "alice", "--as-of", "2026-03-20", "-o", "yaml")

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "2026-03", doc["month"])
	assert.Len(t, doc["charges"], 2)

	totals, ok := doc["totals"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 300000, totals["salaryCents"])
	assert.Equal(t, 0, totals["moneyLeftCents"])
}

func TestMonth_Table(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "alice")

	out := c.mustRun(t, "month", "2026-03", "--owner", "alice", "--as-of", "2026-03-20")

	assert.Contains(t, out, "=== 2026-03 (live) ===")
	assert.Contains(t, out, "Loyer")
	assert.Contains(t, out, "1200.00")
	assert.Contains(t, out, "Virement épargne *")
	assert.Contains(t, out, "2200.00")
	assert.Contains(t, out, "Courses")
	assert.Contains(t, out, "Money left:                0.00")
}

func TestMonth_Errors(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "alice")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown owner", []string{"month", "2026-03", "--owner", "nobody"}, `no document stored for owner "nobody"`},
		{"bad month", []string{"month", "March", "--owner", "alice"}, "invalid year-month"},
		{"bad format", []string{"month", "2026-03", "--owner", "alice", "-o", "xml"}, "unknown output format"},
		{"bad as-of", []string{"month", "2026-03", "--owner", "alice", "--as-of", "20/03/2026"}, "invalid date"},
		{"missing month", []string{"month", "--owner", "alice"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.run(t, tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

func TestExport_Stdout(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "alice")

	out := c.mustRun(t, "export", "--owner", "alice")

	st, err := household.DecodeDocument([]byte(strings.TrimSpace(out)))
	require.NoError(t, err)
	assert.Equal(t, int64(300000), st.SalaryCents)
	assert.Equal(t, "2020-01-15T10:00:00.000Z", st.ModifiedAt)
}

func TestExportImport_CopiesHousehold(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "alice")
	file := filepath.Join(c.dir, "alice.json")

	// GIVEN: alice's document exported to a file
	c.mustRun(t, "export", "--owner", "alice", "--file", file)

	// WHEN: it is imported for bob
	out := c.mustRun(t, "import", file, "--owner", "bob")

	// THEN: bob got it, and both resolve the same month
	assert.Equal(t, "bob: push_local (modifiedAt 2020-01-15T10:00:00.000Z)\n", out)
	aliceMonth := c.mustRun(t, "month", "2026-03", "--owner", "alice", "--as-of", "2026-03-20", "-o", "json")
	bobMonth := c.mustRun(t, "month", "2026-03", "--owner", "bob", "--as-of", "2026-03-20", "-o", "json")
	assert.JSONEq(t, aliceMonth, bobMonth)

	// AND: importing the same file again changes nothing
	out = c.mustRun(t, "import", file, "--owner", "bob")
	assert.Contains(t, out, "bob: in_sync")
}

func TestImport_OlderDocumentLoses(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "alice")
	file := filepath.Join(c.dir, "alice.json")
	c.mustRun(t, "export", "--owner", "alice", "--file", file)

	// A newer edit lands on the server
	c.mustRun(t, "archive", "2026-02", "--owner", "alice")

	out := c.mustRun(t, "import", file, "--owner", "alice")
	assert.Contains(t, out, "alice: pull_remote")
	assert.True(t, c.stored(t, "alice").Month(generic.MustYearMonth("2026-02")).Archived)

	// --force restores the backup anyway
	out = c.mustRun(t, "import", file, "--owner", "alice", "--force")
	assert.Equal(t, "alice: replaced (modifiedAt 2020-01-15T10:00:00.000Z)\n", out)
	assert.False(t, c.stored(t, "alice").Month(generic.MustYearMonth("2026-02")).Archived)
}

func TestImport_UnusableFile(t *testing.T) {
	c := newCLI(t)
	file := filepath.Join(c.dir, "broken.json")
	require.NoError(t, writeFile(file, `{"version":42,"state":{}}`))

	_, err := c.run(t, "import", file, "--owner", "alice")

	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrNoUsableRecord)
}

// =============================================================================
// ARCHIVE / OWNERS
// =============================================================================

func TestArchive_AndUndo(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "alice")
	feb := generic.MustYearMonth("2026-02")

	out := c.mustRun(t, "archive", "2026-02", "--owner", "alice")
	assert.Equal(t, "alice: archived 2026-02\n", out)

	st := c.stored(t, "alice")
	md := st.Month(feb)
	assert.True(t, md.Archived)
	require.Contains(t, md.Charges, "rent")
	assert.NotNil(t, md.Charges["rent"].Snapshot)
	assert.Greater(t, st.ModifiedAt, "2020-01-15T10:00:00.000Z")

	out = c.mustRun(t, "archive", "2026-02", "--owner", "alice", "--undo")
	assert.Equal(t, "alice: unarchived 2026-02\n", out)
	assert.False(t, c.stored(t, "alice").Month(feb).Archived)
}

func TestOwners(t *testing.T) {
	c := newCLI(t)
	c.seed(t, "bob")
	c.seed(t, "alice")

	out := c.mustRun(t, "owners")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "OWNER"))
	assert.True(t, strings.HasPrefix(lines[1], "alice"))
	assert.True(t, strings.HasPrefix(lines[2], "bob"))
	assert.Contains(t, lines[1], "2020-01-15T10:00:00.000Z")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
