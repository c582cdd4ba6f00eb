package relsave

import (
	"context"
	"time"
)

// Report describes one committed save.
type Report struct {
	// Model is the owner model name.
	Model string `json:"model"`

	// OwnerKey is the owner primary key after the save, rendered as a tuple.
	OwnerKey string `json:"owner_key"`

	// State is the final state reached.
	State State `json:"state"`

	// Summary provides aggregate counts of the plan.
	Summary PlanSummary `json:"summary"`

	// Actions lists the writes that were performed.
	Actions []Action `json:"actions"`

	// At is the commit time.
	At time.Time `json:"at"`
}

// Journal receives a report after every committed save that wrote relations.
// Write failures are logged and never undo the save.
type Journal interface {
	Write(ctx context.Context, report *Report) error
}

// JournalFunc adapts a function to the Journal interface.
type JournalFunc func(ctx context.Context, report *Report) error

// Write calls f.
func (f JournalFunc) Write(ctx context.Context, report *Report) error {
	return f(ctx, report)
}
