package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventParse    EventType = "parse"
	EventGenerate EventType = "generate"
	EventOverride EventType = "override"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// ParseEvent is emitted once per parsed template.
type ParseEvent struct {
	EventBase
	Source       string   `json:"source"`
	Alternations int      `json:"alternations"`
	Unresolved   []string `json:"unresolved,omitempty"`
}

// GenerateEvent is emitted when a prompt is instantiated.
type GenerateEvent struct {
	EventBase
	Action Action `json:"action"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

// OverrideEvent is emitted for every override attempt, successful or not.
type OverrideEvent struct {
	EventBase
	FragmentID int    `json:"fragment_id"`
	Option     int    `json:"option"`
	Err        error  `json:"-"`
	Text       string `json:"text,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnParse    func(context.Context, *ParseEvent)
	OnGenerate func(context.Context, *GenerateEvent)
	OnOverride func(context.Context, *OverrideEvent)
}
