package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports a required field that is missing or an
// enumeration value outside its closed set. It is raised before any
// persistence is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the aggregate's own invariants: non-empty name, valid
// relationship, and for each child a non-empty summary/title and in-range
// enumeration values. Presentation-layer concerns are the caller's problem.
func Validate(c *Contact) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return &ValidationError{Field: "contact", Reason: err.Error()}
	}
	first := errs[0]
	reason := "is required"
	if first.Tag() == "oneof" {
		reason = fmt.Sprintf("must be one of %s", first.Param())
	}
	return &ValidationError{Field: first.Field(), Reason: reason}
}

// The Parse* helpers map stored enumeration strings back into the closed
// sets. Unknown values are defaulted rather than passed through, so a row
// written by a newer schema never leaks an out-of-range value.

func ParseRelationship(s string) Relationship {
	switch Relationship(s) {
	case RelFriend, RelColleague, RelFamily, RelRomantic, RelAcquaintance, RelNetworking, RelOther:
		return Relationship(s)
	}
	return RelOther
}

func ParseMood(s string) Mood {
	switch Mood(s) {
	case MoodPositive, MoodNeutral, MoodNegative:
		return Mood(s)
	}
	return MoodNeutral
}

func ParseReminderType(s string) ReminderType {
	switch ReminderType(s) {
	case ReminderFollowUp, ReminderBirthday, ReminderEvent, ReminderPromise, ReminderCheckIn, ReminderOther:
		return ReminderType(s)
	}
	return ReminderOther
}

func ParseDetailCategory(s string) DetailCategory {
	switch DetailCategory(s) {
	case DetailWork, DetailFamily, DetailHobbies, DetailPreferences, DetailGoals, DetailOther:
		return DetailCategory(s)
	}
	return DetailOther
}

func ParseImportance(s string) Importance {
	switch Importance(s) {
	case ImportanceHigh, ImportanceMedium, ImportanceLow:
		return Importance(s)
	}
	return ImportanceMedium
}
