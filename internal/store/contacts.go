package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/tether/internal/engine"
	"github.com/lazypower/tether/internal/model"
	"github.com/lazypower/tether/internal/repo"
)

var _ repo.Repository = (*DB)(nil)

const contactColumns = `id, name, relationship, how_we_met, where_we_met, company,
	first_met_date, last_contact_date, tags, notes, created_at, updated_at`

// List returns every contact in the scope, most recently updated first,
// hydrated with its children. Hydration is a bounded number of round
// trips: one query for the contact rows, then one per child table with an
// IN clause over the contact ids.
func (db *DB) List(ctx context.Context, scope string) ([]model.Contact, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts WHERE user_id = ?
		ORDER BY updated_at DESC
	`, scope)
	if err != nil {
		return nil, &repo.TransportError{Op: "list contacts", Err: err}
	}
	defer rows.Close()

	contacts, err := scanContacts(rows)
	if err != nil {
		return nil, &repo.TransportError{Op: "scan contacts", Err: err}
	}
	if len(contacts) == 0 {
		return []model.Contact{}, nil
	}

	ids := make([]string, len(contacts))
	byID := make(map[string]*model.Contact, len(contacts))
	for i := range contacts {
		ids[i] = contacts[i].ID
		byID[contacts[i].ID] = &contacts[i]
	}

	if err := db.attachConversations(ctx, ids, byID); err != nil {
		return nil, err
	}
	if err := db.attachReminders(ctx, ids, byID); err != nil {
		return nil, err
	}
	if err := db.attachDetails(ctx, ids, byID); err != nil {
		return nil, err
	}
	return contacts, nil
}

// Get returns the hydrated aggregate, or nil if the id is absent from the
// scope.
func (db *DB) Get(ctx context.Context, id, scope string) (*model.Contact, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts WHERE id = ? AND user_id = ?
	`, id, scope)

	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &repo.TransportError{Op: "get contact", Err: err}
	}

	byID := map[string]*model.Contact{c.ID: c}
	ids := []string{c.ID}
	if err := db.attachConversations(ctx, ids, byID); err != nil {
		return nil, err
	}
	if err := db.attachReminders(ctx, ids, byID); err != nil {
		return nil, err
	}
	if err := db.attachDetails(ctx, ids, byID); err != nil {
		return nil, err
	}
	return c, nil
}

// Save upserts the aggregate under the scope. Top-level fields are
// replaced; each child row is upserted by its own id. Children missing
// from the payload stay untouched and come back in the returned
// aggregate. A child id owned by another user fails the whole save with
// ErrNotAuthorized. The write runs in one transaction.
func (db *DB) Save(ctx context.Context, contact *model.Contact, scope string) (*model.Contact, error) {
	if err := model.Validate(contact); err != nil {
		return nil, err
	}

	saved := contact.Clone()
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	// Ids are assigned before the merge so two new children in one payload
	// never collide on an empty id.
	assignChildIDs(saved)

	if contact.ID != "" {
		// Merge against the stored aggregate so children omitted from the
		// payload survive in the returned value, matching what a
		// subsequent Get reads back.
		existing, err := db.Get(ctx, saved.ID, scope)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			saved = model.Merge(existing, saved)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &repo.TransportError{Op: "begin save", Err: err}
	}
	defer tx.Rollback()

	var owner string
	var prevCreated, prevUpdated string
	err = tx.QueryRowContext(ctx,
		"SELECT user_id, created_at, updated_at FROM contacts WHERE id = ?", saved.ID,
	).Scan(&owner, &prevCreated, &prevUpdated)
	switch {
	case err == sql.ErrNoRows:
		// Stamp at millisecond precision so the returned aggregate matches
		// what a later read parses back out of the TEXT columns.
		now := time.Now().UTC().Truncate(time.Millisecond)
		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = now
		}
		saved.UpdatedAt = model.AdvanceUpdatedAt(saved.UpdatedAt, now)
	case err != nil:
		return nil, &repo.TransportError{Op: "check owner", Err: err}
	case owner != scope:
		return nil, repo.ErrNotAuthorized
	default:
		saved.CreatedAt = parseTime(prevCreated)
		saved.UpdatedAt = model.AdvanceUpdatedAt(parseTime(prevUpdated), time.Now().UTC().Truncate(time.Millisecond))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contacts (id, user_id, name, relationship, how_we_met, where_we_met, company,
			first_met_date, last_contact_date, tags, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			relationship = excluded.relationship,
			how_we_met = excluded.how_we_met,
			where_we_met = excluded.where_we_met,
			company = excluded.company,
			first_met_date = excluded.first_met_date,
			last_contact_date = excluded.last_contact_date,
			tags = excluded.tags,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, saved.ID, scope, saved.Name, string(saved.Relationship), saved.HowWeMet, saved.WhereWeMet,
		nullableString(saved.Company), formatNullableTime(saved.FirstMetDate),
		formatNullableTime(saved.LastContactDate), encodeList(saved.Tags), saved.Notes,
		formatTime(saved.CreatedAt), formatTime(saved.UpdatedAt))
	if err != nil {
		return nil, &repo.TransportError{Op: "upsert contact", Err: err}
	}

	for i := range saved.Conversations {
		conv := &saved.Conversations[i]
		conv.ContactID = saved.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, contact_id, user_id, date, summary, topics, promises, mood, next_steps)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				date = excluded.date,
				summary = excluded.summary,
				topics = excluded.topics,
				promises = excluded.promises,
				mood = excluded.mood,
				next_steps = excluded.next_steps
			WHERE user_id = excluded.user_id
		`, conv.ID, conv.ContactID, scope, formatTime(conv.Date), conv.Summary,
			encodeList(conv.Topics), encodeList(conv.Promises), string(conv.Mood),
			nullableString(conv.NextSteps))
		if err != nil {
			return nil, &repo.TransportError{Op: "upsert conversation", Err: err}
		}
		if err := ensureOwnedRow(res); err != nil {
			return nil, err
		}
	}

	for i := range saved.Reminders {
		rem := &saved.Reminders[i]
		rem.ContactID = saved.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO reminders (id, contact_id, user_id, date, title, description, type, completed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				date = excluded.date,
				title = excluded.title,
				description = excluded.description,
				type = excluded.type,
				completed = excluded.completed
			WHERE user_id = excluded.user_id
		`, rem.ID, rem.ContactID, scope, formatTime(rem.Date), rem.Title, rem.Description,
			string(rem.Type), boolToInt(rem.Completed))
		if err != nil {
			return nil, &repo.TransportError{Op: "upsert reminder", Err: err}
		}
		if err := ensureOwnedRow(res); err != nil {
			return nil, err
		}
	}

	for i := range saved.PersonalDetails {
		det := &saved.PersonalDetails[i]
		det.ContactID = saved.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO personal_details (id, contact_id, user_id, category, detail, importance)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				category = excluded.category,
				detail = excluded.detail,
				importance = excluded.importance
			WHERE user_id = excluded.user_id
		`, det.ID, det.ContactID, scope, string(det.Category), det.Detail, string(det.Importance))
		if err != nil {
			return nil, &repo.TransportError{Op: "upsert personal detail", Err: err}
		}
		if err := ensureOwnedRow(res); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &repo.TransportError{Op: "commit save", Err: err}
	}
	return saved, nil
}

// Delete cascades over the three child tables and then removes the contact
// row, all in one transaction so no observer sees children outliving their
// parent. A nonexistent id is a no-op.
func (db *DB) Delete(ctx context.Context, id, scope string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &repo.TransportError{Op: "begin delete", Err: err}
	}
	defer tx.Rollback()

	for _, table := range []string{"conversations", "reminders", "personal_details"} {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE contact_id = ? AND user_id = ?", id, scope,
		); err != nil {
			return &repo.TransportError{Op: "delete " + table, Err: err}
		}
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM contacts WHERE id = ? AND user_id = ?", id, scope,
	); err != nil {
		return &repo.TransportError{Op: "delete contact", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &repo.TransportError{Op: "commit delete", Err: err}
	}
	return nil
}

// Search loads the scope's contacts and filters them in memory with the
// shared substring matcher, keeping both backends' semantics identical.
func (db *DB) Search(ctx context.Context, query, scope string) ([]model.Contact, error) {
	contacts, err := db.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	matched := engine.SearchContacts(contacts, query)
	if matched == nil {
		matched = []model.Contact{}
	}
	return matched, nil
}

// --- child hydration ---

func (db *DB) attachConversations(ctx context.Context, ids []string, byID map[string]*model.Contact) error {
	ph, args := placeholders(ids)
	rows, err := db.QueryContext(ctx, `
		SELECT id, contact_id, date, summary, topics, promises, mood, next_steps
		FROM conversations WHERE contact_id IN (`+ph+`)
		ORDER BY rowid
	`, args...)
	if err != nil {
		return &repo.TransportError{Op: "list conversations", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var conv model.Conversation
		var date, topics, promises, mood string
		var nextSteps sql.NullString
		if err := rows.Scan(&conv.ID, &conv.ContactID, &date, &conv.Summary,
			&topics, &promises, &mood, &nextSteps); err != nil {
			return &repo.TransportError{Op: "scan conversation", Err: err}
		}
		conv.Date = parseTime(date)
		conv.Topics = decodeList(topics)
		conv.Promises = decodeList(promises)
		conv.Mood = model.ParseMood(mood)
		conv.NextSteps = nextSteps.String
		if c, ok := byID[conv.ContactID]; ok {
			c.Conversations = append(c.Conversations, conv)
		}
	}
	return rows.Err()
}

func (db *DB) attachReminders(ctx context.Context, ids []string, byID map[string]*model.Contact) error {
	ph, args := placeholders(ids)
	rows, err := db.QueryContext(ctx, `
		SELECT id, contact_id, date, title, description, type, completed
		FROM reminders WHERE contact_id IN (`+ph+`)
		ORDER BY rowid
	`, args...)
	if err != nil {
		return &repo.TransportError{Op: "list reminders", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var rem model.Reminder
		var date, typ string
		var completed int
		if err := rows.Scan(&rem.ID, &rem.ContactID, &date, &rem.Title,
			&rem.Description, &typ, &completed); err != nil {
			return &repo.TransportError{Op: "scan reminder", Err: err}
		}
		rem.Date = parseTime(date)
		rem.Type = model.ParseReminderType(typ)
		rem.Completed = completed != 0
		if c, ok := byID[rem.ContactID]; ok {
			c.Reminders = append(c.Reminders, rem)
		}
	}
	return rows.Err()
}

func (db *DB) attachDetails(ctx context.Context, ids []string, byID map[string]*model.Contact) error {
	ph, args := placeholders(ids)
	rows, err := db.QueryContext(ctx, `
		SELECT id, contact_id, category, detail, importance
		FROM personal_details WHERE contact_id IN (`+ph+`)
		ORDER BY rowid
	`, args...)
	if err != nil {
		return &repo.TransportError{Op: "list personal details", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var det model.PersonalDetail
		var category, importance string
		if err := rows.Scan(&det.ID, &det.ContactID, &category, &det.Detail, &importance); err != nil {
			return &repo.TransportError{Op: "scan personal detail", Err: err}
		}
		det.Category = model.ParseDetailCategory(category)
		det.Importance = model.ParseImportance(importance)
		if c, ok := byID[det.ContactID]; ok {
			c.PersonalDetails = append(c.PersonalDetails, det)
		}
	}
	return rows.Err()
}

// --- scanning ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*model.Contact, error) {
	var c model.Contact
	var relationship, tags, createdAt, updatedAt string
	var company, firstMet, lastContact sql.NullString
	err := row.Scan(&c.ID, &c.Name, &relationship, &c.HowWeMet, &c.WhereWeMet,
		&company, &firstMet, &lastContact, &tags, &c.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Relationship = model.ParseRelationship(relationship)
	c.Company = company.String
	c.FirstMetDate = parseNullableTime(firstMet)
	c.LastContactDate = parseNullableTime(lastContact)
	c.Tags = decodeList(tags)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	c.Normalize()
	return &c, nil
}

func scanContacts(rows *sql.Rows) ([]model.Contact, error) {
	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// placeholders builds "?, ?, ?" plus the matching args for an IN clause.
func placeholders(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

func assignChildIDs(c *model.Contact) {
	for i := range c.Conversations {
		if c.Conversations[i].ID == "" {
			c.Conversations[i].ID = uuid.NewString()
		}
	}
	for i := range c.Reminders {
		if c.Reminders[i].ID == "" {
			c.Reminders[i].ID = uuid.NewString()
		}
	}
	for i := range c.PersonalDetails {
		if c.PersonalDetails[i].ID == "" {
			c.PersonalDetails[i].ID = uuid.NewString()
		}
	}
}

// ensureOwnedRow guards the child upserts. The conflict update is scoped
// to the owning user, so zero affected rows means the incoming id
// collides with another user's row.
func ensureOwnedRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &repo.TransportError{Op: "rows affected", Err: err}
	}
	if n == 0 {
		return repo.ErrNotAuthorized
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
