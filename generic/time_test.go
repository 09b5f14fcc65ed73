package generic_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/household-ledger/generic"
)

func TestParseYearMonth(t *testing.T) {
	ym, err := generic.ParseYearMonth(" 2026-03 ")
	require.NoError(t, err)
	assert.Equal(t, generic.YearMonth{Year: 2026, Month: time.March}, ym)
	assert.Equal(t, "2026-03", ym.String())

	for _, bad := range []string{"", "2026-3", "26-03", "2026-13", "2026-00", "2026/03", "March", "2026-03-01"} {
		t.Run(bad, func(t *testing.T) {
			_, err := generic.ParseYearMonth(bad)
			assert.Error(t, err)
		})
	}
}

func TestYearMonth_Arithmetic(t *testing.T) {
	jan := generic.MustYearMonth("2026-01")

	assert.Equal(t, generic.MustYearMonth("2025-12"), jan.Prev())
	assert.Equal(t, generic.MustYearMonth("2026-02"), jan.Next())
	assert.Equal(t, generic.MustYearMonth("2027-02"), jan.AddMonths(13))
	assert.Equal(t, generic.MustYearMonth("2024-11"), jan.AddMonths(-14))

	assert.True(t, jan.Before(jan.Next()))
	assert.True(t, jan.After(jan.Prev()))
	assert.Equal(t, 0, jan.Compare(generic.MustYearMonth("2026-01")))
	assert.Equal(t, 1, generic.MustYearMonth("2027-01").Compare(generic.MustYearMonth("2026-12")))
	assert.True(t, generic.YearMonth{}.IsZero())
}

func TestYearMonth_DayClamps(t *testing.T) {
	tests := []struct {
		ym   string
		day  int
		want string
	}{
		{"2026-02", 31, "2026-02-28"},
		{"2024-02", 31, "2024-02-29"},
		{"2026-04", 31, "2026-04-30"},
		{"2026-03", 31, "2026-03-31"},
		{"2026-03", 0, "2026-03-01"},
		{"2026-03", 15, "2026-03-15"},
	}

	for _, tt := range tests {
		t.Run(tt.ym+"/"+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, generic.MustYearMonth(tt.ym).Day(tt.day).String())
		})
	}

	feb := generic.MustYearMonth("2026-02")
	assert.Equal(t, 28, feb.DaysIn())
	assert.Equal(t, "2026-02-01", feb.First().String())
	assert.Equal(t, "2026-02-28", feb.Last().String())
}

func TestYearMonth_JSONMapKey(t *testing.T) {
	in := map[generic.YearMonth]int{
		generic.MustYearMonth("2026-02"): 1,
		generic.MustYearMonth("2025-12"): 2,
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2025-12":2,"2026-02":1}`, string(data))

	var out map[generic.YearMonth]int
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"Feb":1}`), &out))
}

func TestDate(t *testing.T) {
	d, err := generic.ParseDate("2026-03-20")
	require.NoError(t, err)
	assert.Equal(t, generic.NewDate(2026, time.March, 20), d)
	assert.Equal(t, generic.MustYearMonth("2026-03"), d.YearMonth())

	_, err = generic.ParseDate("20/03/2026")
	assert.Error(t, err)

	assert.True(t, d.Before(generic.NewDate(2026, time.March, 21)))
	assert.True(t, d.BeforeOrEqual(d))
	assert.False(t, d.After(d))
}

func TestDate_JSON(t *testing.T) {
	var holder struct {
		Date generic.Date `json:"date"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-02-14"}`), &holder))
	assert.Equal(t, generic.NewDate(2026, time.February, 14), holder.Date)

	require.NoError(t, json.Unmarshal([]byte(`{"date":""}`), &holder))
	assert.True(t, holder.Date.IsZero())

	data, err := json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":""}`, string(data))
}

func TestClock_Today(t *testing.T) {
	// Late evening in Paris is still the same calendar day there
	paris := time.FixedZone("CET", 2*60*60)
	clock := generic.Clock(func() time.Time {
		return time.Date(2026, time.March, 20, 23, 30, 0, 0, paris)
	})

	assert.Equal(t, generic.NewDate(2026, time.March, 20), clock.Today())

	var unset generic.Clock
	assert.False(t, unset.Today().IsZero())
}
