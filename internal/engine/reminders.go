package engine

import (
	"sort"
	"time"

	"github.com/lazypower/tether/internal/model"
)

// DefaultWindowDays is the lookahead used when the caller does not specify
// one.
const DefaultWindowDays = 7

// UpcomingReminders flattens the reminders of every contact and keeps the
// incomplete ones due in [now, now+windowDays], both bounds inclusive.
// Results are sorted ascending by due date; ties keep input order.
// windowDays <= 0 means DefaultWindowDays.
func UpcomingReminders(contacts []model.Contact, now time.Time, windowDays int) []model.Reminder {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	until := now.AddDate(0, 0, windowDays)

	var due []model.Reminder
	for _, c := range contacts {
		for _, r := range c.Reminders {
			if r.Completed {
				continue
			}
			if r.Date.Before(now) || r.Date.After(until) {
				continue
			}
			due = append(due, r)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Date.Before(due[j].Date)
	})
	return due
}
