package domain

import "time"

// EventType defines the category of the event.
type EventType string

const (
	EventEvaluate EventType = "evaluate"
	EventSignal   EventType = "signal"
	EventLoad     EventType = "load"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Template  string    `json:"template"`
}

// EvaluateEvent describes the outcome of one Tree.Evaluate call.
type EvaluateEvent struct {
	EventBase
	Previous NodeID `json:"previous"`
	Selected NodeID `json:"selected"`
	Behavior string `json:"behavior,omitempty"`
}

// SignalEvent describes the outcome of delivering a signal to a tree.
type SignalEvent struct {
	EventBase
	Signal  string `json:"signal"`
	Matched bool   `json:"matched"`
}

// LoadEvent describes a completed registry load.
type LoadEvent struct {
	EventBase
	Templates int   `json:"templates"`
	Files     int   `json:"files"`
	Errors    int   `json:"errors"`
	Err       error `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the caller's goroutine and must not block.
type LifecycleHooks struct {
	OnEvaluate func(*EvaluateEvent)
	OnSignal   func(*SignalEvent)
	OnLoad     func(*LoadEvent)
}

// Merge returns hooks that invoke h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnEvaluate: chain(h.OnEvaluate, other.OnEvaluate),
		OnSignal:   chain(h.OnSignal, other.OnSignal),
		OnLoad:     chain(h.OnLoad, other.OnLoad),
	}
}

func chain[E any](a, b func(*E)) func(*E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(e *E) {
		a(e)
		b(e)
	}
}
