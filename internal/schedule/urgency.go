package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"paneplan/internal/model"
)

const dateLayout = "2006-01-02"

// DefaultFrequencyDays is assumed when a customer carries no usable cadence.
const DefaultFrequencyDays = 14

// urgencyEntry pairs a customer with its scoring for one run. Derived data
// only; it never leaves this package except through the schedule result.
type urgencyEntry struct {
	Customer model.Customer
	Score    int
	NextDue  time.Time
	Duration int
	Source   string
}

// ParseFrequency maps a stored cadence label to days. Unknown labels fall
// back to DefaultFrequencyDays rather than failing a whole run.
func ParseFrequency(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly":
		return 7
	case "bi-weekly", "biweekly", "fortnightly":
		return 14
	case "monthly":
		return 30
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
		return n
	}
	return DefaultFrequencyDays
}

// scoreCustomers computes urgency for every customer against today and
// returns entries sorted most-urgent first. Customers with unusable input
// are excluded, not fatal: the run proceeds without them and reports why.
//
// Score is whole days overdue, floored at zero. Ordering is score descending
// then next-due ascending; the sort is stable so equal customers keep their
// input order.
func scoreCustomers(customers []model.Customer, today time.Time) ([]urgencyEntry, []model.Exclusion) {
	entries := make([]urgencyEntry, 0, len(customers))
	var excluded []model.Exclusion
	for _, c := range customers {
		last, err := time.Parse(dateLayout, c.LastService)
		if err != nil {
			excluded = append(excluded, model.Exclusion{CustomerID: c.ID, Reason: fmt.Sprintf("invalid lastService %q", c.LastService)})
			continue
		}
		daysSince := int(today.Sub(last).Hours() / 24)
		if daysSince < 0 {
			excluded = append(excluded, model.Exclusion{CustomerID: c.ID, Reason: "lastService is in the future"})
			continue
		}
		freq := c.FrequencyDays
		if freq <= 0 {
			freq = DefaultFrequencyDays
		}
		score := daysSince - freq
		if score < 0 {
			score = 0
		}
		entries = append(entries, urgencyEntry{
			Customer: c,
			Score:    score,
			NextDue:  last.AddDate(0, 0, freq),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].NextDue.Before(entries[j].NextDue)
	})
	return entries, excluded
}
