// Package engine holds the pure derivation logic: insight strings,
// upcoming-reminder selection, and list filtering. Nothing here touches
// storage; every function takes its inputs (including "now") explicitly
// and never mutates them.
package engine

import (
	"fmt"
	"time"

	"github.com/lazypower/tether/internal/model"
)

// DeriveInsights computes the suggestion strings shown on a contact's
// detail view. Order is fixed: staleness first, then open reminders, then
// the relationship-specific nudge. Missing optional data simply produces
// nothing for that branch.
func DeriveInsights(c model.Contact, now time.Time) []string {
	var insights []string

	if !c.LastContactDate.IsZero() {
		daysSince := int(now.Sub(c.LastContactDate) / (24 * time.Hour))
		if daysSince > 30 {
			insights = append(insights,
				fmt.Sprintf("It's been %d days since you last talked. Consider reaching out!", daysSince))
		}
	}

	open := 0
	for _, r := range c.Reminders {
		if !r.Completed {
			open++
		}
	}
	if open > 0 {
		plural := ""
		if open > 1 {
			plural = "s"
		}
		insights = append(insights,
			fmt.Sprintf("You have %d active reminder%s for this person.", open, plural))
	}

	switch {
	case c.Relationship == model.RelNetworking:
		insights = append(insights,
			"Professional connection - consider discussing career updates or industry trends.")
	case c.Relationship == model.RelFriend && len(c.PersonalDetails) > 0:
		insights = append(insights,
			"Ask about their recent interests or hobbies you discussed before.")
	}

	return insights
}
