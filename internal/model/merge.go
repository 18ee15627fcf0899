package model

// Merge applies upsert semantics for a full-aggregate save against an
// existing aggregate: top-level fields are replaced wholesale, while each
// child collection is merged by child id. A child with a known id replaces
// the stored one in place; a child with a new id is appended. Children the
// incoming payload omits are kept — deletion is explicit only, via the
// aggregate delete.
func Merge(existing, incoming *Contact) *Contact {
	out := incoming.Clone()
	out.ID = existing.ID
	out.CreatedAt = existing.CreatedAt
	out.Conversations = mergeConversations(existing.Conversations, incoming.Conversations)
	out.Reminders = mergeReminders(existing.Reminders, incoming.Reminders)
	out.PersonalDetails = mergeDetails(existing.PersonalDetails, incoming.PersonalDetails)
	return out
}

func mergeConversations(existing, incoming []Conversation) []Conversation {
	out := append([]Conversation{}, existing...)
	for _, in := range incoming {
		replaced := false
		for i, cur := range out {
			if cur.ID == in.ID {
				out[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, in)
		}
	}
	return out
}

func mergeReminders(existing, incoming []Reminder) []Reminder {
	out := append([]Reminder{}, existing...)
	for _, in := range incoming {
		replaced := false
		for i, cur := range out {
			if cur.ID == in.ID {
				out[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, in)
		}
	}
	return out
}

func mergeDetails(existing, incoming []PersonalDetail) []PersonalDetail {
	out := append([]PersonalDetail{}, existing...)
	for _, in := range incoming {
		replaced := false
		for i, cur := range out {
			if cur.ID == in.ID {
				out[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, in)
		}
	}
	return out
}
