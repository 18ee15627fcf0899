package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lazypower/tether/internal/model"
	"github.com/lazypower/tether/internal/repo"
	"github.com/lazypower/tether/internal/repo/repotest"
)

func TestRepositoryContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repo.Repository {
		return testDB(t)
	})
}

func TestScopeIsolation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	saved, err := db.Save(ctx, &model.Contact{Name: "Ada", Relationship: model.RelFriend}, "alice")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Another scope sees nothing.
	got, err := db.Get(ctx, saved.ID, "bob")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get leaked across scopes: %+v", got)
	}
	all, err := db.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("List leaked %d contacts across scopes", len(all))
	}

	// A foreign delete is scoped away and the contact survives.
	if err := db.Delete(ctx, saved.ID, "bob"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = db.Get(ctx, saved.ID, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("foreign-scope delete removed the contact")
	}
}

func TestSaveForeignScopeNotAuthorized(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	saved, err := db.Save(ctx, &model.Contact{Name: "Ada", Relationship: model.RelFriend}, "alice")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	saved.Name = "Hijacked"
	_, err = db.Save(ctx, saved, "bob")
	if !errors.Is(err, repo.ErrNotAuthorized) {
		t.Fatalf("Save under foreign scope = %v, want ErrNotAuthorized", err)
	}

	got, err := db.Get(ctx, saved.ID, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Ada" {
		t.Errorf("name = %q, foreign save must not write", got.Name)
	}
}

func TestChildUpsertCannotCrossScopes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	due := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)
	alice, err := db.Save(ctx, &model.Contact{
		Name:         "Ada",
		Relationship: model.RelFriend,
		Conversations: []model.Conversation{
			{Date: due, Summary: "private notes", Mood: model.MoodNeutral},
		},
		Reminders: []model.Reminder{
			{Date: due, Title: "private reminder", Type: model.ReminderFollowUp},
		},
		PersonalDetails: []model.PersonalDetail{
			{Category: model.DetailGoals, Detail: "private goal", Importance: model.ImportanceHigh},
		},
	}, "alice")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A save under another scope reusing alice's child ids must fail
	// outright, for every child table.
	attacks := []*model.Contact{
		{
			Name: "Mallory's contact", Relationship: model.RelOther,
			Conversations: []model.Conversation{
				{ID: alice.Conversations[0].ID, Date: due, Summary: "rewritten", Mood: model.MoodNegative},
			},
		},
		{
			Name: "Mallory's contact", Relationship: model.RelOther,
			Reminders: []model.Reminder{
				{ID: alice.Reminders[0].ID, Date: due, Title: "rewritten", Type: model.ReminderOther},
			},
		},
		{
			Name: "Mallory's contact", Relationship: model.RelOther,
			PersonalDetails: []model.PersonalDetail{
				{ID: alice.PersonalDetails[0].ID, Category: model.DetailOther, Detail: "rewritten", Importance: model.ImportanceLow},
			},
		},
	}
	for i, attack := range attacks {
		if _, err := db.Save(ctx, attack, "bob"); !errors.Is(err, repo.ErrNotAuthorized) {
			t.Errorf("attack %d: Save = %v, want ErrNotAuthorized", i, err)
		}
	}

	got, err := db.Get(ctx, alice.ID, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Conversations[0].Summary != "private notes" ||
		got.Reminders[0].Title != "private reminder" ||
		got.PersonalDetails[0].Detail != "private goal" {
		t.Errorf("a foreign save rewrote alice's children: %+v", got)
	}

	// The failed saves must have rolled back entirely.
	bobs, err := db.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bobs) != 0 {
		t.Errorf("rejected saves left %d contacts behind", len(bobs))
	}
}

func TestListOrdersByUpdatedAtDescending(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first, err := db.Save(ctx, &model.Contact{Name: "First", Relationship: model.RelFriend}, "alice")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := db.Save(ctx, &model.Contact{Name: "Second", Relationship: model.RelFriend}, "alice"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Two resaves guarantee a strictly later updated_at even when every
	// save so far landed in the same millisecond.
	if first, err = db.Save(ctx, first, "alice"); err != nil {
		t.Fatalf("resave: %v", err)
	}
	if _, err = db.Save(ctx, first, "alice"); err != nil {
		t.Fatalf("resave: %v", err)
	}

	all, err := db.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List = %d contacts, want 2", len(all))
	}
	if all[0].Name != "First" {
		t.Errorf("most recently updated contact is %q, want First", all[0].Name)
	}
}

func TestTimeColumnsRoundTripNull(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	saved, err := db.Save(ctx, &model.Contact{Name: "Ada", Relationship: model.RelFriend}, "alice")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := db.Get(ctx, saved.ID, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.FirstMetDate.IsZero() || !got.LastContactDate.IsZero() {
		t.Errorf("unset dates must come back zero: first=%v last=%v",
			got.FirstMetDate, got.LastContactDate)
	}
}
