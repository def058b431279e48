package domain

import "time"

// Action records how a history entry was produced.
type Action string

const (
	ActionGenerate Action = "generate" // fresh template, fresh draws
	ActionReroll   Action = "reroll"   // same template, fresh draws
	ActionOverride Action = "override" // clone with one fragment changed
	ActionRevisit  Action = "revisit"  // clone of an earlier entry
)

// Entry is one recorded generation. Its Prompt is an independent snapshot:
// later overrides always produce new entries and never touch this one.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Action    Action    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	Prompt    *Prompt   `json:"prompt"`
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	out := *e
	out.Prompt = e.Prompt.Clone()
	return &out
}
