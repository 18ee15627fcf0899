package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/tether/internal/auth"
	"github.com/lazypower/tether/internal/engine"
	"github.com/lazypower/tether/internal/model"
	"github.com/lazypower/tether/internal/repo"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// repoError maps the error taxonomy onto status codes: validation is the
// caller's fault, authorization is forbidden, everything else is the
// backend's problem.
func repoError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, repo.ErrNotAuthorized):
		respondError(w, http.StatusForbidden, "not authorized")
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleListContacts serves the visible list: ?q= runs the free-text
// search (and bypasses ?relationship=), otherwise ?relationship= narrows
// by category.
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())
	query := r.URL.Query().Get("q")
	relationship := r.URL.Query().Get("relationship")

	var contacts []model.Contact
	var err error
	if query != "" {
		contacts, err = s.contacts.Search(r.Context(), query, scope)
	} else {
		contacts, err = s.contacts.List(r.Context(), scope)
		if err == nil {
			contacts = engine.FilterContacts(contacts, "", relationship)
		}
	}
	if err != nil {
		repoError(w, err)
		return
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(contacts),
		"contacts": contacts,
	})
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())
	id := chi.URLParam(r, "contactID")

	contact, err := s.contacts.Get(r.Context(), id, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	if contact == nil {
		respondError(w, http.StatusNotFound, "contact not found")
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())

	var contact model.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	saved, err := s.contacts.Save(r.Context(), &contact, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleSaveContact(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())
	id := chi.URLParam(r, "contactID")

	var contact model.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	contact.ID = id

	saved, err := s.contacts.Save(r.Context(), &contact, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())
	id := chi.URLParam(r, "contactID")

	if err := s.contacts.Delete(r.Context(), id, scope); err != nil {
		repoError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())
	id := chi.URLParam(r, "contactID")

	contact, err := s.contacts.Get(r.Context(), id, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	if contact == nil {
		respondError(w, http.StatusNotFound, "contact not found")
		return
	}

	insights := engine.DeriveInsights(*contact, time.Now().UTC())
	if insights == nil {
		insights = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

// handleAddConversation records an interaction. The parent's
// lastContactDate moves to the conversation's date, not to "now".
func (s *Server) handleAddConversation(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())
	id := chi.URLParam(r, "contactID")

	var conv model.Conversation
	if err := json.NewDecoder(r.Body).Decode(&conv); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if conv.Date.IsZero() {
		conv.Date = time.Now().UTC()
	}
	if conv.Mood == "" {
		conv.Mood = model.MoodNeutral
	}

	contact, err := s.contacts.Get(r.Context(), id, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	if contact == nil {
		respondError(w, http.StatusNotFound, "contact not found")
		return
	}

	contact.AddConversation(conv)
	saved, err := s.contacts.Save(r.Context(), contact, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleAddReminder(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())
	id := chi.URLParam(r, "contactID")

	var rem model.Reminder
	if err := json.NewDecoder(r.Body).Decode(&rem); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if rem.Type == "" {
		rem.Type = model.ReminderFollowUp
	}

	contact, err := s.contacts.Get(r.Context(), id, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	if contact == nil {
		respondError(w, http.StatusNotFound, "contact not found")
		return
	}

	contact.AddReminder(rem)
	saved, err := s.contacts.Save(r.Context(), contact, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleAddDetail(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())
	id := chi.URLParam(r, "contactID")

	var det model.PersonalDetail
	if err := json.NewDecoder(r.Body).Decode(&det); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if det.Category == "" {
		det.Category = model.DetailOther
	}
	if det.Importance == "" {
		det.Importance = model.ImportanceMedium
	}

	contact, err := s.contacts.Get(r.Context(), id, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	if contact == nil {
		respondError(w, http.StatusNotFound, "contact not found")
		return
	}

	contact.AddPersonalDetail(det)
	saved, err := s.contacts.Save(r.Context(), contact, scope)
	if err != nil {
		repoError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpcomingReminders(w http.ResponseWriter, r *http.Request) {
	scope := auth.ScopeFrom(r.Context())

	days := engine.DefaultWindowDays
	if d := r.URL.Query().Get("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			days = n
		}
	}

	contacts, err := s.contacts.List(r.Context(), scope)
	if err != nil {
		repoError(w, err)
		return
	}

	reminders := engine.UpcomingReminders(contacts, time.Now().UTC(), days)
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":     len(reminders),
		"window":    days,
		"reminders": reminders,
	})
}
