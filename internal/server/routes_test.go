package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lazypower/tether/internal/auth"
	"github.com/lazypower/tether/internal/model"
	"github.com/lazypower/tether/internal/store"
)

const testSecret = "server-test-secret"

func newTestServer(t *testing.T, verifier *auth.Verifier) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, verifier, nil, "test")
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, auth.NewVerifier(testSecret))

	rec := doJSON(t, s, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d, want 200", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestContactLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/contacts", "", model.Contact{
		Name:         "Priya Sharma",
		Relationship: model.RelNetworking,
		Notes:        "wants to move to Berlin",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[model.Contact](t, rec)
	if created.ID == "" {
		t.Fatal("create did not assign an id")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/contacts/"+created.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	got := decode[model.Contact](t, rec)
	if got.Name != "Priya Sharma" {
		t.Errorf("name = %q", got.Name)
	}

	got.Company = "Acme Robotics"
	rec = doJSON(t, s, http.MethodPut, "/api/contacts/"+created.ID, "", got)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[model.Contact](t, rec)
	if updated.Company != "Acme Robotics" {
		t.Errorf("company = %q after update", updated.Company)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("updatedAt %v did not advance past %v", updated.UpdatedAt, created.UpdatedAt)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/contacts", "", nil)
	list := decode[struct {
		Count    int             `json:"count"`
		Contacts []model.Contact `json:"contacts"`
	}](t, rec)
	if list.Count != 1 || len(list.Contacts) != 1 {
		t.Fatalf("list count = %d", list.Count)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/contacts/"+created.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/contacts/"+created.ID, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}
}

func TestCreateContactValidation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/contacts", "", model.Contact{
		Relationship: model.RelFriend,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("nameless contact = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader("{not json"))
	rec2 := httptest.NewRecorder()
	s.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("malformed json = %d, want 400", rec2.Code)
	}
}

func TestGetMissingContact(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/api/contacts/no-such-id", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get = %d, want 404", rec.Code)
	}
}

func TestListFiltersByQueryAndRelationship(t *testing.T) {
	s := newTestServer(t, nil)

	for _, c := range []model.Contact{
		{Name: "Priya Sharma", Relationship: model.RelNetworking, Notes: "wants to move to Berlin"},
		{Name: "Jonas Weber", Relationship: model.RelFriend},
	} {
		if rec := doJSON(t, s, http.MethodPost, "/api/contacts", "", c); rec.Code != http.StatusCreated {
			t.Fatalf("create = %d", rec.Code)
		}
	}

	type listResponse struct {
		Count    int             `json:"count"`
		Contacts []model.Contact `json:"contacts"`
	}

	rec := doJSON(t, s, http.MethodGet, "/api/contacts?q=berlin", "", nil)
	list := decode[listResponse](t, rec)
	if list.Count != 1 || list.Contacts[0].Name != "Priya Sharma" {
		t.Errorf("q=berlin returned %+v", list)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/contacts?relationship=friend", "", nil)
	list = decode[listResponse](t, rec)
	if list.Count != 1 || list.Contacts[0].Name != "Jonas Weber" {
		t.Errorf("relationship=friend returned %+v", list)
	}

	// The free-text query wins over the relationship filter.
	rec = doJSON(t, s, http.MethodGet, "/api/contacts?q=berlin&relationship=friend", "", nil)
	list = decode[listResponse](t, rec)
	if list.Count != 1 || list.Contacts[0].Name != "Priya Sharma" {
		t.Errorf("q with relationship returned %+v", list)
	}
}

func TestInsightsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/contacts", "", model.Contact{
		Name:            "Priya Sharma",
		Relationship:    model.RelNetworking,
		LastContactDate: time.Now().UTC().AddDate(0, 0, -45),
	})
	created := decode[model.Contact](t, rec)

	rec = doJSON(t, s, http.MethodGet, "/api/contacts/"+created.ID+"/insights", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("insights = %d", rec.Code)
	}
	body := decode[struct {
		Insights []string `json:"insights"`
	}](t, rec)
	if len(body.Insights) != 2 {
		t.Fatalf("insights = %v, want staleness plus networking nudge", body.Insights)
	}
	if !strings.Contains(body.Insights[0], "since you last talked") {
		t.Errorf("first insight = %q", body.Insights[0])
	}
}

func TestAddConversationMovesLastContactDate(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/contacts", "", model.Contact{
		Name: "Priya Sharma", Relationship: model.RelNetworking,
	})
	created := decode[model.Contact](t, rec)

	talked := time.Date(2026, 2, 2, 9, 15, 0, 0, time.UTC)
	rec = doJSON(t, s, http.MethodPost, "/api/contacts/"+created.ID+"/conversations", "", model.Conversation{
		Date:    talked,
		Summary: "talked about embedded Go",
		Mood:    model.MoodPositive,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add conversation = %d: %s", rec.Code, rec.Body.String())
	}
	saved := decode[model.Contact](t, rec)
	if len(saved.Conversations) != 1 {
		t.Fatalf("conversations = %d, want 1", len(saved.Conversations))
	}
	if !saved.LastContactDate.Equal(talked) {
		t.Errorf("lastContactDate = %v, want the conversation date %v", saved.LastContactDate, talked)
	}
}

func TestAddReminderAndUpcoming(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/contacts", "", model.Contact{
		Name: "Priya Sharma", Relationship: model.RelNetworking,
	})
	created := decode[model.Contact](t, rec)

	rec = doJSON(t, s, http.MethodPost, "/api/contacts/"+created.ID+"/reminders", "", model.Reminder{
		Title: "Send the tinygo article",
		Date:  time.Now().UTC().AddDate(0, 0, 3),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add reminder = %d: %s", rec.Code, rec.Body.String())
	}
	saved := decode[model.Contact](t, rec)
	if saved.Reminders[0].Type != model.ReminderFollowUp {
		t.Errorf("type = %q, want the follow-up default", saved.Reminders[0].Type)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reminders/upcoming?days=5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("upcoming = %d", rec.Code)
	}
	body := decode[struct {
		Count     int              `json:"count"`
		Window    int              `json:"window"`
		Reminders []model.Reminder `json:"reminders"`
	}](t, rec)
	if body.Window != 5 {
		t.Errorf("window = %d, want 5", body.Window)
	}
	if body.Count != 1 || body.Reminders[0].Title != "Send the tinygo article" {
		t.Errorf("upcoming = %+v", body)
	}

	// Out of window.
	rec = doJSON(t, s, http.MethodGet, "/api/reminders/upcoming?days=2", "", nil)
	body = decode[struct {
		Count     int              `json:"count"`
		Window    int              `json:"window"`
		Reminders []model.Reminder `json:"reminders"`
	}](t, rec)
	if body.Count != 0 {
		t.Errorf("upcoming within 2 days = %d, want 0", body.Count)
	}
}

func TestAddDetailDefaults(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/contacts", "", model.Contact{
		Name: "Priya Sharma", Relationship: model.RelFriend,
	})
	created := decode[model.Contact](t, rec)

	rec = doJSON(t, s, http.MethodPost, "/api/contacts/"+created.ID+"/details", "", map[string]string{
		"detail": "training for a marathon",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add detail = %d: %s", rec.Code, rec.Body.String())
	}
	saved := decode[model.Contact](t, rec)
	det := saved.PersonalDetails[0]
	if det.Category != model.DetailOther || det.Importance != model.ImportanceMedium {
		t.Errorf("defaults = %q/%q, want other/medium", det.Category, det.Importance)
	}
}

func TestAuthRequiredWhenVerifierSet(t *testing.T) {
	s := newTestServer(t, auth.NewVerifier(testSecret))

	rec := doJSON(t, s, http.MethodGet, "/api/contacts", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d, want 401", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/contacts", signToken(t, "alice"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token = %d, want 200", rec.Code)
	}
}

func TestScopesAreIsolatedPerToken(t *testing.T) {
	s := newTestServer(t, auth.NewVerifier(testSecret))
	alice := signToken(t, "alice")
	bob := signToken(t, "bob")

	rec := doJSON(t, s, http.MethodPost, "/api/contacts", alice, model.Contact{
		Name: "Ada", Relationship: model.RelFriend,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}
	created := decode[model.Contact](t, rec)

	rec = doJSON(t, s, http.MethodGet, "/api/contacts/"+created.ID, bob, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign get = %d, want 404", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/contacts/%s", created.ID), bob, model.Contact{
		Name: "Hijacked", Relationship: model.RelFriend,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign save = %d, want 403", rec.Code)
	}
}
