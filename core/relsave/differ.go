package relsave

import (
	"context"
)

// item is one entity of a relation change together with the columns that
// differ from its persisted snapshot.
type item struct {
	entity  *entity
	changes map[string]any
}

// modified reports whether an existing entity needs an update.
func (i *item) modified() bool {
	return !i.entity.isNew && len(i.changes) > 0
}

// change is the reconciliation of one staged relation against what is linked.
type change struct {
	relation *Descriptor

	// add holds entities to link, in assignment order.
	add []*item
	// remove holds linked entities missing from the assignment.
	remove []*item
	// keep holds entities linked before and after.
	keep []*item
	// clear is set when a single-entity relation was assigned null.
	clear bool
	// assigned is the deduplicated assignment in order. It becomes the loaded
	// set once the save commits.
	assigned []*entity
}

// empty reports whether the change writes nothing.
func (c *change) empty() bool {
	if c.clear || len(c.add) > 0 || len(c.remove) > 0 {
		return false
	}
	for _, k := range c.keep {
		if k.modified() {
			return false
		}
	}
	return true
}

// diff compares the linked entities with a new assignment. Existing entities
// are matched by their full primary key tuple; new or unkeyed entities are
// added once per instance. Duplicate identities in the assignment collapse to
// the first.
func diff(ctx context.Context, tr *tracker, d *Descriptor, linked, assigned []*entity) *change {
	c := &change{relation: d}

	linkedByID := make(map[string]*entity, len(linked))
	for _, e := range linked {
		if key, ok := keyOf(ctx, d.Related, e.ptr); ok {
			linkedByID[key.identity()] = e
		}
	}

	seen := make(map[string]bool, len(assigned))
	fresh := make(map[any]bool)
	addFresh := func(e *entity) {
		ptr := e.ptr.Interface()
		if fresh[ptr] {
			return
		}
		fresh[ptr] = true
		c.add = append(c.add, &item{entity: e, changes: attrsOf(ctx, d.Related, e.ptr)})
		c.assigned = append(c.assigned, e)
	}
	for _, e := range assigned {
		if e == nil {
			continue
		}
		if e.isNew {
			addFresh(e)
			continue
		}
		key, ok := keyOf(ctx, d.Related, e.ptr)
		if !ok {
			addFresh(e)
			continue
		}
		id := key.identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		c.assigned = append(c.assigned, e)

		it := &item{entity: e, changes: tr.changes(ctx, d.Related, e.ptr)}
		if _, ok := linkedByID[id]; ok {
			c.keep = append(c.keep, it)
		} else {
			c.add = append(c.add, it)
		}
	}

	for _, e := range linked {
		key, ok := keyOf(ctx, d.Related, e.ptr)
		if !ok || seen[key.identity()] {
			continue
		}
		c.remove = append(c.remove, &item{entity: e})
	}

	if !d.IsMany() && len(c.assigned) == 0 {
		c.clear = true
	}
	return c
}
