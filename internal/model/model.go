package model

import "time"

// Relationship classifies how the user knows a contact.
type Relationship string

const (
	RelFriend       Relationship = "friend"
	RelColleague    Relationship = "colleague"
	RelFamily       Relationship = "family"
	RelRomantic     Relationship = "romantic"
	RelAcquaintance Relationship = "acquaintance"
	RelNetworking   Relationship = "networking"
	RelOther        Relationship = "other"
)

// Mood is the overall tone of a recorded conversation.
type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNeutral  Mood = "neutral"
	MoodNegative Mood = "negative"
)

// ReminderType classifies what a reminder is about.
type ReminderType string

const (
	ReminderFollowUp ReminderType = "follow-up"
	ReminderBirthday ReminderType = "birthday"
	ReminderEvent    ReminderType = "event"
	ReminderPromise  ReminderType = "promise"
	ReminderCheckIn  ReminderType = "check-in"
	ReminderOther    ReminderType = "other"
)

// DetailCategory groups personal details about a contact.
type DetailCategory string

const (
	DetailWork        DetailCategory = "work"
	DetailFamily      DetailCategory = "family"
	DetailHobbies     DetailCategory = "hobbies"
	DetailPreferences DetailCategory = "preferences"
	DetailGoals       DetailCategory = "goals"
	DetailOther       DetailCategory = "other"
)

// Importance ranks how much a personal detail matters.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Contact is the aggregate root: one person plus everything recorded about
// them. Child collections are always present (empty, never nil) on a
// hydrated aggregate.
type Contact struct {
	ID              string         `json:"id"`
	Name            string         `json:"name" validate:"required"`
	Relationship    Relationship   `json:"relationship" validate:"required,oneof=friend colleague family romantic acquaintance networking other"`
	HowWeMet        string         `json:"howWeMet"`
	WhereWeMet      string         `json:"whereWeMet"`
	Company         string         `json:"company,omitempty"`
	FirstMetDate    time.Time      `json:"firstMetDate,omitzero"`
	LastContactDate time.Time      `json:"lastContactDate,omitzero"`
	Tags            []string       `json:"tags"`
	Notes           string         `json:"notes"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`

	Conversations   []Conversation   `json:"conversations" validate:"dive"`
	Reminders       []Reminder       `json:"reminders" validate:"dive"`
	PersonalDetails []PersonalDetail `json:"personalDetails" validate:"dive"`
}

// Conversation records one interaction with a contact. Date is the event
// time, not the time the record was entered.
type Conversation struct {
	ID        string   `json:"id"`
	ContactID string   `json:"contactId"`
	Date      time.Time `json:"date"`
	Summary   string   `json:"summary" validate:"required"`
	Topics    []string `json:"topics"`
	Promises  []string `json:"promises"`
	Mood      Mood     `json:"mood" validate:"required,oneof=positive neutral negative"`
	NextSteps string   `json:"nextSteps,omitempty"`
}

// Reminder is a dated prompt to do something for a contact.
type Reminder struct {
	ID          string       `json:"id"`
	ContactID   string       `json:"contactId"`
	Date        time.Time    `json:"date"`
	Title       string       `json:"title" validate:"required"`
	Description string       `json:"description"`
	Type        ReminderType `json:"type" validate:"required,oneof=follow-up birthday event promise check-in other"`
	Completed   bool         `json:"completed"`
}

// PersonalDetail is a remembered fact about a contact.
type PersonalDetail struct {
	ID        string         `json:"id"`
	ContactID string         `json:"contactId"`
	Category  DetailCategory `json:"category" validate:"required,oneof=work family hobbies preferences goals other"`
	Detail    string         `json:"detail"`
	Importance Importance    `json:"importance" validate:"required,oneof=high medium low"`
}

// Normalize replaces nil child collections with empty slices so a hydrated
// aggregate never omits a collection.
func (c *Contact) Normalize() {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Conversations == nil {
		c.Conversations = []Conversation{}
	}
	if c.Reminders == nil {
		c.Reminders = []Reminder{}
	}
	if c.PersonalDetails == nil {
		c.PersonalDetails = []PersonalDetail{}
	}
}

// Clone returns a deep copy of the aggregate.
func (c *Contact) Clone() *Contact {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	out.Conversations = make([]Conversation, len(c.Conversations))
	for i, conv := range c.Conversations {
		conv.Topics = append([]string(nil), conv.Topics...)
		conv.Promises = append([]string(nil), conv.Promises...)
		out.Conversations[i] = conv
	}
	out.Reminders = append([]Reminder(nil), c.Reminders...)
	out.PersonalDetails = append([]PersonalDetail(nil), c.PersonalDetails...)
	out.Normalize()
	return &out
}

// AddConversation appends a conversation and moves the contact's
// lastContactDate to the conversation's date (not to "now").
func (c *Contact) AddConversation(conv Conversation) {
	conv.ContactID = c.ID
	c.Conversations = append(c.Conversations, conv)
	c.LastContactDate = conv.Date
}

// AddReminder appends a reminder for this contact.
func (c *Contact) AddReminder(r Reminder) {
	r.ContactID = c.ID
	c.Reminders = append(c.Reminders, r)
}

// AddPersonalDetail appends a personal detail for this contact.
func (c *Contact) AddPersonalDetail(d PersonalDetail) {
	d.ContactID = c.ID
	c.PersonalDetails = append(c.PersonalDetails, d)
}

// AdvanceUpdatedAt returns the timestamp a save should stamp: now, unless
// that would move updated_at backward (or hold it still), in which case it
// nudges forward by a millisecond past the previous value.
func AdvanceUpdatedAt(prev, now time.Time) time.Time {
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}
