package relsave

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Kind identifies where the keys of a relation live.
type Kind string

const (
	// HasOne relations keep the key on the owner row (gorm belongs_to).
	HasOne Kind = "has_one"
	// HasMany relations keep the key on the related rows.
	HasMany Kind = "has_many"
	// ManyToMany relations keep key tuples in a separate link table.
	ManyToMany Kind = "many_to_many"
)

// Cardinality tells whether a relation holds one entity or a list.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// State is a step of the save state machine.
type State string

const (
	StateIdle           State = "idle"
	StateValidating     State = "validating"
	StateSavingParents  State = "saving_parents"
	StateSavingSelf     State = "saving_self"
	StateSavingChildren State = "saving_children"
	StateCommitted      State = "committed"
	StateAborted        State = "aborted"
)

// Key is a primary key tuple. Components are compared one by one.
type Key []any

// String renders the key as a comma separated tuple.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = fmt.Sprint(v)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// identity is the map key used when matching entities across sets.
func (k Key) identity() string {
	var sb strings.Builder
	for i, v := range k {
		if i > 0 {
			sb.WriteByte(0)
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	return sb.String()
}

// equalValues compares two normalized column values.
func equalValues(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
