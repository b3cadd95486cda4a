package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paneplan/internal/model"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return d
}

func TestScoreOverdueCustomer(t *testing.T) {
	today := mustDate(t, "2026-03-02")
	// Last serviced 40 days ago on a 14-day cadence: 26 days overdue.
	cs := []model.Customer{{ID: "c1", LastService: "2026-01-21", FrequencyDays: 14}}
	entries, excluded := scoreCustomers(cs, today)
	require.Empty(t, excluded)
	require.Len(t, entries, 1)
	require.Equal(t, 26, entries[0].Score)
}

func TestScoreNotYetDueIsZero(t *testing.T) {
	today := mustDate(t, "2026-03-02")
	cs := []model.Customer{{ID: "c1", LastService: "2026-02-25", FrequencyDays: 14}}
	entries, _ := scoreCustomers(cs, today)
	require.Len(t, entries, 1)
	require.Equal(t, 0, entries[0].Score, "not-yet-due must floor at zero, not go negative")
}

func TestScoreOrdering(t *testing.T) {
	today := mustDate(t, "2026-03-02")
	cs := []model.Customer{
		{ID: "later-due", LastService: "2026-02-20", FrequencyDays: 14},  // score 0, due 03-06
		{ID: "most-overdue", LastService: "2026-01-01", FrequencyDays: 7}, // score 53
		{ID: "sooner-due", LastService: "2026-02-18", FrequencyDays: 14},  // score 0, due 03-04
	}
	entries, _ := scoreCustomers(cs, today)
	require.Len(t, entries, 3)
	require.Equal(t, "most-overdue", entries[0].Customer.ID)
	// Equal scores order by earlier next-due.
	require.Equal(t, "sooner-due", entries[1].Customer.ID)
	require.Equal(t, "later-due", entries[2].Customer.ID)
}

func TestScoreStableForEqualCustomers(t *testing.T) {
	today := mustDate(t, "2026-03-02")
	cs := []model.Customer{
		{ID: "a", LastService: "2026-02-01", FrequencyDays: 14},
		{ID: "b", LastService: "2026-02-01", FrequencyDays: 14},
	}
	entries, _ := scoreCustomers(cs, today)
	require.Equal(t, "a", entries[0].Customer.ID)
	require.Equal(t, "b", entries[1].Customer.ID)
}

func TestScoreExcludesBadInput(t *testing.T) {
	today := mustDate(t, "2026-03-02")
	cs := []model.Customer{
		{ID: "future", LastService: "2026-04-01", FrequencyDays: 14},
		{ID: "garbage", LastService: "not-a-date", FrequencyDays: 14},
		{ID: "ok", LastService: "2026-02-01", FrequencyDays: 14},
	}
	entries, excluded := scoreCustomers(cs, today)
	require.Len(t, entries, 1)
	require.Equal(t, "ok", entries[0].Customer.ID)
	require.Len(t, excluded, 2)
	ids := []string{excluded[0].CustomerID, excluded[1].CustomerID}
	require.ElementsMatch(t, []string{"future", "garbage"}, ids)
}

func TestScoreDefaultsFrequency(t *testing.T) {
	today := mustDate(t, "2026-03-02")
	cs := []model.Customer{{ID: "c1", LastService: "2026-02-02"}} // 28 days, default cadence 14
	entries, _ := scoreCustomers(cs, today)
	require.Equal(t, 14, entries[0].Score)
}

func TestParseFrequency(t *testing.T) {
	require.Equal(t, 7, ParseFrequency("weekly"))
	require.Equal(t, 14, ParseFrequency("bi-weekly"))
	require.Equal(t, 14, ParseFrequency("Biweekly"))
	require.Equal(t, 14, ParseFrequency("fortnightly"))
	require.Equal(t, 30, ParseFrequency("monthly"))
	require.Equal(t, DefaultFrequencyDays, ParseFrequency("whenever"))
	require.Equal(t, DefaultFrequencyDays, ParseFrequency(""))
}
