// Package localstore is the single-user contact backend: the whole
// collection lives in one JSON file under a fixed name and is read fully
// and written fully on every mutation, mirroring a browser-origin
// key-value store. There is no owner scope; the store itself is the scope.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/tether/internal/engine"
	"github.com/lazypower/tether/internal/model"
	"github.com/lazypower/tether/internal/repo"
)

// storageFile is the single fixed key the entire collection is stored
// under.
const storageFile = "contacts.json"

// Store implements repo.Repository over one JSON blob on disk.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ repo.Repository = (*Store)(nil)

// DefaultDir returns the default data directory: ~/.tether
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".tether"), nil
}

// Open prepares a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{path: filepath.Join(dir, storageFile)}, nil
}

// load reads the full collection. A missing file is an empty collection.
func (s *Store) load() ([]model.Contact, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []model.Contact{}, nil
	}
	if err != nil {
		return nil, &repo.TransportError{Op: "read store", Err: err}
	}
	var contacts []model.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, &repo.TransportError{Op: "decode store", Err: err}
	}
	for i := range contacts {
		contacts[i].Normalize()
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	return contacts, nil
}

// write replaces the full collection. Written to a temp file first so a
// crash mid-write never leaves a truncated blob behind.
func (s *Store) write(contacts []model.Contact) error {
	data, err := json.MarshalIndent(contacts, "", "  ")
	if err != nil {
		return &repo.TransportError{Op: "encode store", Err: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &repo.TransportError{Op: "write store", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &repo.TransportError{Op: "replace store", Err: err}
	}
	return nil
}

// List returns the collection in insertion order.
func (s *Store) List(ctx context.Context, scope string) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the aggregate, or nil when absent.
func (s *Store) Get(ctx context.Context, id, scope string) (*model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contacts, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range contacts {
		if contacts[i].ID == id {
			return contacts[i].Clone(), nil
		}
	}
	return nil, nil
}

// Save upserts the aggregate into the blob: an unknown id is appended,
// a known id has its top-level fields replaced and its children merged by
// child id (omitted children survive). The whole blob is rewritten.
func (s *Store) Save(ctx context.Context, contact *model.Contact, scope string) (*model.Contact, error) {
	if err := model.Validate(contact); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.load()
	if err != nil {
		return nil, err
	}

	saved := contact.Clone()
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	assignChildIDs(saved)

	now := time.Now().UTC().Truncate(time.Millisecond)
	index := -1
	for i := range contacts {
		if contacts[i].ID == saved.ID {
			index = i
			break
		}
	}

	if index >= 0 {
		saved = model.Merge(&contacts[index], saved)
		saved.UpdatedAt = model.AdvanceUpdatedAt(contacts[index].UpdatedAt, now)
		contacts[index] = *saved
	} else {
		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = now
		}
		saved.UpdatedAt = model.AdvanceUpdatedAt(saved.UpdatedAt, now)
		contacts = append(contacts, *saved)
	}

	if err := s.write(contacts); err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete filters the contact out of the blob, children and all in one
// write. A nonexistent id is a no-op.
func (s *Store) Delete(ctx context.Context, id, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.load()
	if err != nil {
		return err
	}

	kept := contacts[:0]
	for _, c := range contacts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(contacts) {
		return nil
	}
	return s.write(kept)
}

// Search filters the collection with the shared substring matcher.
func (s *Store) Search(ctx context.Context, query, scope string) ([]model.Contact, error) {
	contacts, err := s.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	matched := engine.SearchContacts(contacts, query)
	if matched == nil {
		matched = []model.Contact{}
	}
	return matched, nil
}

func assignChildIDs(c *model.Contact) {
	for i := range c.Conversations {
		if c.Conversations[i].ID == "" {
			c.Conversations[i].ID = uuid.NewString()
		}
		c.Conversations[i].ContactID = c.ID
	}
	for i := range c.Reminders {
		if c.Reminders[i].ID == "" {
			c.Reminders[i].ID = uuid.NewString()
		}
		c.Reminders[i].ContactID = c.ID
	}
	for i := range c.PersonalDetails {
		if c.PersonalDetails[i].ID == "" {
			c.PersonalDetails[i].ID = uuid.NewString()
		}
		c.PersonalDetails[i].ContactID = c.ID
	}
}
