package relsave

import (
	"context"
)

// ActionType represents the type of write a save will perform.
type ActionType string

const (
	// ActionInsert inserts a new related row.
	ActionInsert ActionType = "insert"
	// ActionUpdate writes changed columns of an existing related row.
	ActionUpdate ActionType = "update"
	// ActionLink points a foreign key or inserts a link row.
	ActionLink ActionType = "link"
	// ActionUnlink nulls a foreign key or deletes a link row.
	ActionUnlink ActionType = "unlink"
	// ActionClear nulls the owner foreign key of a has-one relation.
	ActionClear ActionType = "clear"
)

// Action represents one planned write.
type Action struct {
	// Relation is the relation name the action belongs to.
	Relation string `json:"relation"`

	// Type specifies the write to perform.
	Type ActionType `json:"type"`

	// Key is the related primary key, rendered as a tuple.
	// Empty for rows that do not have a key yet.
	Key string `json:"key,omitempty"`
}

// PlanSummary provides aggregate counts for a save plan.
type PlanSummary struct {
	// Relations counts the staged relations.
	Relations int `json:"relations"`

	// Inserts counts related rows to insert.
	Inserts int `json:"inserts"`

	// Updates counts related rows to update.
	Updates int `json:"updates"`

	// Links counts foreign keys to point and link rows to insert.
	Links int `json:"links"`

	// Unlinks counts foreign keys to null and link rows to delete.
	Unlinks int `json:"unlinks"`
}

// Plan is the set of writes a save will perform, computed before the
// transaction opens.
type Plan struct {
	// Model is the owner model name.
	Model string `json:"model"`

	// Actions lists the planned writes in execution order.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`

	changes []*change
}

// Empty reports whether the plan has no relation writes.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}

// buildPlan orders the changes the way the saver runs them (has-one parents
// first, then children) and derives the action list.
func buildPlan(ctx context.Context, model *Model, changes []*change) *Plan {
	p := &Plan{Model: model.Schema.Name}

	var parents, children []*change
	for _, c := range changes {
		if c.relation.Kind == HasOne {
			parents = append(parents, c)
		} else {
			children = append(children, c)
		}
	}
	p.changes = append(parents, children...)
	p.Summary.Relations = len(p.changes)

	for _, c := range p.changes {
		d := c.relation
		if c.clear {
			p.add(Action{Relation: d.Name, Type: ActionClear})
			continue
		}
		for _, it := range c.add {
			key := ""
			if !it.entity.isNew {
				if k, ok := keyOf(ctx, d.Related, it.entity.ptr); ok {
					key = k.String()
				}
			}
			switch {
			case it.entity.isNew:
				p.add(Action{Relation: d.Name, Type: ActionInsert})
			case it.modified():
				p.add(Action{Relation: d.Name, Type: ActionUpdate, Key: key})
			}
			p.add(Action{Relation: d.Name, Type: ActionLink, Key: key})
		}
		for _, it := range c.keep {
			if it.modified() {
				key, _ := keyOf(ctx, d.Related, it.entity.ptr)
				p.add(Action{Relation: d.Name, Type: ActionUpdate, Key: key.String()})
			}
		}
		if d.Kind == HasOne {
			// The previous parent is replaced through the owner key.
			continue
		}
		for _, it := range c.remove {
			key, _ := keyOf(ctx, d.Related, it.entity.ptr)
			p.add(Action{Relation: d.Name, Type: ActionUnlink, Key: key.String()})
		}
	}
	return p
}

func (p *Plan) add(a Action) {
	p.Actions = append(p.Actions, a)
	switch a.Type {
	case ActionInsert:
		p.Summary.Inserts++
	case ActionUpdate:
		p.Summary.Updates++
	case ActionLink:
		p.Summary.Links++
	case ActionUnlink, ActionClear:
		p.Summary.Unlinks++
	}
}
