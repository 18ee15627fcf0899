// Package repotest is a conformance suite for repo.Repository. Both
// backends run the same behavioral checks so they cannot drift apart on
// the contract: upsert semantics, child merging, cascade delete, and
// search.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lazypower/tether/internal/model"
	"github.com/lazypower/tether/internal/repo"
)

const scope = "tester"

// Times go through storage at millisecond precision, so fixtures stay on
// millisecond boundaries to compare exactly after a round trip.
var (
	metDate  = time.Date(2026, 1, 10, 18, 30, 0, 0, time.UTC)
	talkDate = time.Date(2026, 2, 2, 9, 15, 0, 0, time.UTC)
	dueDate  = time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)
)

func fixture() *model.Contact {
	return &model.Contact{
		Name:         "Priya Sharma",
		Relationship: model.RelNetworking,
		HowWeMet:     "conference panel",
		WhereWeMet:   "GopherCon",
		Company:      "Acme Robotics",
		FirstMetDate: metDate,
		Tags:         []string{"golang", "robotics"},
		Notes:        "wants to move to Berlin",
		Conversations: []model.Conversation{
			{
				Date:     talkDate,
				Summary:  "talked about embedded Go",
				Topics:   []string{"tinygo"},
				Promises: []string{"send article"},
				Mood:     model.MoodPositive,
			},
		},
		Reminders: []model.Reminder{
			{Date: dueDate, Title: "Send the tinygo article", Type: model.ReminderPromise},
		},
		PersonalDetails: []model.PersonalDetail{
			{Category: model.DetailGoals, Detail: "relocating next year", Importance: model.ImportanceHigh},
		},
	}
}

// Run exercises the Repository contract against a backend. open must
// return a fresh, empty repository each time it is called.
func Run(t *testing.T, open func(t *testing.T) repo.Repository) {
	ctx := context.Background()

	t.Run("SaveAssignsIDsAndRoundTrips", func(t *testing.T) {
		r := open(t)
		saved, err := r.Save(ctx, fixture(), scope)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if saved.ID == "" {
			t.Fatal("Save did not assign a contact id")
		}
		if saved.Conversations[0].ID == "" || saved.Reminders[0].ID == "" || saved.PersonalDetails[0].ID == "" {
			t.Error("Save did not assign child ids")
		}
		if saved.Reminders[0].ContactID != saved.ID {
			t.Errorf("reminder contactId = %q, want %q", saved.Reminders[0].ContactID, saved.ID)
		}
		if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
			t.Error("Save did not stamp createdAt/updatedAt")
		}

		got, err := r.Get(ctx, saved.ID, scope)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == nil {
			t.Fatal("Get returned nil for a saved contact")
		}
		if got.Name != "Priya Sharma" || got.Relationship != model.RelNetworking {
			t.Errorf("round trip lost top-level fields: %+v", got)
		}
		if !got.FirstMetDate.Equal(metDate) {
			t.Errorf("firstMetDate = %v, want %v", got.FirstMetDate, metDate)
		}
		if len(got.Tags) != 2 || got.Tags[0] != "golang" {
			t.Errorf("tags = %v", got.Tags)
		}
		if len(got.Conversations) != 1 || got.Conversations[0].Summary != "talked about embedded Go" {
			t.Errorf("conversations = %+v", got.Conversations)
		}
		if !got.Conversations[0].Date.Equal(talkDate) {
			t.Errorf("conversation date = %v, want %v", got.Conversations[0].Date, talkDate)
		}
		if len(got.Reminders) != 1 || got.Reminders[0].Title != "Send the tinygo article" {
			t.Errorf("reminders = %+v", got.Reminders)
		}
		if len(got.PersonalDetails) != 1 || got.PersonalDetails[0].Importance != model.ImportanceHigh {
			t.Errorf("personal details = %+v", got.PersonalDetails)
		}
	})

	t.Run("GetMissingReturnsNilNil", func(t *testing.T) {
		r := open(t)
		got, err := r.Get(ctx, "no-such-id", scope)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != nil {
			t.Errorf("Get = %+v, want nil for an absent id", got)
		}
	})

	t.Run("SaveRejectsMissingName", func(t *testing.T) {
		r := open(t)
		c := fixture()
		c.Name = ""
		_, err := r.Save(ctx, c, scope)
		var verr *model.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Save = %v, want ValidationError", err)
		}
	})

	t.Run("ResaveAdvancesUpdatedAt", func(t *testing.T) {
		r := open(t)
		first, err := r.Save(ctx, fixture(), scope)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		second, err := r.Save(ctx, first, scope)
		if err != nil {
			t.Fatalf("resave: %v", err)
		}
		if !second.UpdatedAt.After(first.UpdatedAt) {
			t.Errorf("updatedAt %v did not advance past %v", second.UpdatedAt, first.UpdatedAt)
		}
		if !second.CreatedAt.Equal(first.CreatedAt) {
			t.Errorf("createdAt changed on resave: %v -> %v", first.CreatedAt, second.CreatedAt)
		}
	})

	t.Run("SaveUpsertsChildrenWithoutDeleting", func(t *testing.T) {
		r := open(t)
		first, err := r.Save(ctx, fixture(), scope)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}

		// Resave with only one reminder in the payload: the existing one
		// updated in place, conversations and details omitted entirely.
		update := &model.Contact{
			ID:           first.ID,
			Name:         first.Name,
			Relationship: first.Relationship,
			Reminders: []model.Reminder{
				{
					ID:        first.Reminders[0].ID,
					Date:      dueDate,
					Title:     "Send the tinygo article",
					Type:      model.ReminderPromise,
					Completed: true,
				},
				{Date: dueDate.AddDate(0, 0, 7), Title: "Check in after the move", Type: model.ReminderCheckIn},
			},
		}
		resaved, err := r.Save(ctx, update, scope)
		if err != nil {
			t.Fatalf("resave: %v", err)
		}
		// The returned aggregate is the stored one: omitted children are
		// present, not just the payload's.
		if len(resaved.Conversations) != 1 || len(resaved.PersonalDetails) != 1 {
			t.Errorf("Save returned %d conversations and %d details, want the stored 1 and 1",
				len(resaved.Conversations), len(resaved.PersonalDetails))
		}
		if len(resaved.Reminders) != 2 {
			t.Errorf("Save returned %d reminders, want 2", len(resaved.Reminders))
		}

		got, err := r.Get(ctx, first.ID, scope)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got.Conversations) != 1 {
			t.Errorf("omitted conversations were deleted: %d left", len(got.Conversations))
		}
		if len(got.PersonalDetails) != 1 {
			t.Errorf("omitted details were deleted: %d left", len(got.PersonalDetails))
		}
		if len(got.Reminders) != 2 {
			t.Fatalf("reminders = %d, want 2 (one updated, one added)", len(got.Reminders))
		}
		byID := map[string]model.Reminder{}
		for _, rem := range got.Reminders {
			byID[rem.ID] = rem
		}
		if !byID[first.Reminders[0].ID].Completed {
			t.Error("existing reminder was not updated in place")
		}
	})

	t.Run("SaveAssignsDistinctIDsToNewChildren", func(t *testing.T) {
		r := open(t)
		first, err := r.Save(ctx, fixture(), scope)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}

		update := &model.Contact{
			ID:           first.ID,
			Name:         first.Name,
			Relationship: first.Relationship,
			Reminders: []model.Reminder{
				{Date: dueDate.AddDate(0, 0, 1), Title: "First new reminder", Type: model.ReminderEvent},
				{Date: dueDate.AddDate(0, 0, 2), Title: "Second new reminder", Type: model.ReminderEvent},
			},
		}
		resaved, err := r.Save(ctx, update, scope)
		if err != nil {
			t.Fatalf("resave: %v", err)
		}
		if len(resaved.Reminders) != 3 {
			t.Fatalf("reminders = %d, want the existing one plus two new", len(resaved.Reminders))
		}
		seen := map[string]bool{}
		for _, rem := range resaved.Reminders {
			if rem.ID == "" {
				t.Error("a reminder came back without an id")
			}
			if seen[rem.ID] {
				t.Errorf("duplicate reminder id %q", rem.ID)
			}
			seen[rem.ID] = true
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		r := open(t)
		saved, err := r.Save(ctx, fixture(), scope)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := r.Delete(ctx, saved.ID, scope); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		got, err := r.Get(ctx, saved.ID, scope)
		if err != nil {
			t.Fatalf("Get after delete: %v", err)
		}
		if got != nil {
			t.Errorf("contact survived delete: %+v", got)
		}
		all, err := r.List(ctx, scope)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("List = %d contacts after delete, want 0", len(all))
		}
	})

	t.Run("DeleteMissingIsNoOp", func(t *testing.T) {
		r := open(t)
		if _, err := r.Save(ctx, fixture(), scope); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := r.Delete(ctx, "no-such-id", scope); err != nil {
			t.Fatalf("Delete of a missing id must not error: %v", err)
		}
		all, err := r.List(ctx, scope)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("List = %d contacts, want the one saved", len(all))
		}
	})

	t.Run("SearchMatchesAcrossFields", func(t *testing.T) {
		r := open(t)
		if _, err := r.Save(ctx, fixture(), scope); err != nil {
			t.Fatalf("Save: %v", err)
		}
		other := &model.Contact{Name: "Jonas Weber", Relationship: model.RelFriend}
		if _, err := r.Save(ctx, other, scope); err != nil {
			t.Fatalf("Save: %v", err)
		}

		for query, want := range map[string]int{
			"berlin":    1, // notes, case-insensitive
			"robotics":  1, // tag
			"gophercon": 1, // whereWeMet
			"weber":     1, // name
			"zurich":    0,
			"":          2,
		} {
			got, err := r.Search(ctx, query, scope)
			if err != nil {
				t.Fatalf("Search(%q): %v", query, err)
			}
			if len(got) != want {
				t.Errorf("Search(%q) = %d contacts, want %d", query, len(got), want)
			}
		}
	})

	t.Run("ListHydratesEveryContact", func(t *testing.T) {
		r := open(t)
		if _, err := r.Save(ctx, fixture(), scope); err != nil {
			t.Fatalf("Save: %v", err)
		}
		bare := &model.Contact{Name: "Mei Lin", Relationship: model.RelFriend}
		if _, err := r.Save(ctx, bare, scope); err != nil {
			t.Fatalf("Save: %v", err)
		}

		all, err := r.List(ctx, scope)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("List = %d contacts, want 2", len(all))
		}
		for _, c := range all {
			if c.Tags == nil || c.Conversations == nil || c.Reminders == nil || c.PersonalDetails == nil {
				t.Errorf("contact %q has nil collections after List", c.Name)
			}
		}
	})
}
