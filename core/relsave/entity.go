package relsave

import (
	"context"
	"reflect"

	"gorm.io/gorm/schema"
)

// entity is a resolved related record.
type entity struct {
	// ptr is a pointer to the model struct.
	ptr reflect.Value
	// isNew is true until the row has been inserted.
	isNew bool
}

func (e *entity) value() any {
	return e.ptr.Interface()
}

// snapshot is the persisted state of a tracked entity.
type snapshot struct {
	attrs map[string]any
}

// tracker remembers which entities were loaded or saved through a record and
// the column values they had in storage at that time. It is scoped to one
// record and never shared.
type tracker struct {
	entries map[any]*snapshot
}

func newTracker() *tracker {
	return &tracker{entries: make(map[any]*snapshot)}
}

func (t *tracker) get(ptr reflect.Value) (*snapshot, bool) {
	s, ok := t.entries[ptr.Interface()]
	return s, ok
}

// remember records the current column values of ptr as its persisted state.
func (t *tracker) remember(ctx context.Context, sch *schema.Schema, ptr reflect.Value) {
	t.entries[ptr.Interface()] = &snapshot{attrs: attrsOf(ctx, sch, ptr)}
}

// rememberAs records attrs as the persisted state of ptr.
func (t *tracker) rememberAs(ptr reflect.Value, attrs map[string]any) {
	t.entries[ptr.Interface()] = &snapshot{attrs: attrs}
}

// changes returns the columns of ptr that differ from its snapshot.
func (t *tracker) changes(ctx context.Context, sch *schema.Schema, ptr reflect.Value) map[string]any {
	current := attrsOf(ctx, sch, ptr)
	snap, ok := t.get(ptr)
	if !ok {
		return current
	}
	changed := make(map[string]any)
	for col, v := range current {
		if old, ok := snap.attrs[col]; !ok || !equalValues(old, v) {
			changed[col] = v
		}
	}
	return changed
}

// keyOf reads the primary key tuple of ptr. It reports false when any
// component is the zero value.
func keyOf(ctx context.Context, sch *schema.Schema, ptr reflect.Value) (Key, bool) {
	if len(sch.PrimaryFields) == 0 {
		return nil, false
	}
	rv := reflect.Indirect(ptr)
	key := make(Key, 0, len(sch.PrimaryFields))
	for _, f := range sch.PrimaryFields {
		v, zero := f.ValueOf(ctx, rv)
		if zero {
			return nil, false
		}
		key = append(key, indirect(v))
	}
	return key, true
}

// attrsOf reads every non-key column of ptr.
func attrsOf(ctx context.Context, sch *schema.Schema, ptr reflect.Value) map[string]any {
	rv := reflect.Indirect(ptr)
	attrs := make(map[string]any, len(sch.Fields))
	for _, f := range sch.Fields {
		if f.DBName == "" || f.PrimaryKey || !f.Readable {
			continue
		}
		v, _ := f.ValueOf(ctx, rv)
		attrs[f.DBName] = indirect(v)
	}
	return attrs
}

// fieldValue reads one column of ptr.
func fieldValue(ctx context.Context, f *schema.Field, ptr reflect.Value) any {
	v, _ := f.ValueOf(ctx, reflect.Indirect(ptr))
	return indirect(v)
}

// setField writes v into the column of ptr, converting as gorm does on scan.
func setField(ctx context.Context, f *schema.Field, ptr reflect.Value, v any) error {
	return f.Set(ctx, reflect.Indirect(ptr), v)
}

// zeroField resets the column of ptr to its zero value (nil for pointers).
func zeroField(ctx context.Context, f *schema.Field, ptr reflect.Value) {
	fv := f.ReflectValueOf(ctx, reflect.Indirect(ptr))
	fv.Set(reflect.Zero(f.FieldType))
}

// lookupField finds a field by column name or Go field name.
func lookupField(sch *schema.Schema, name string) *schema.Field {
	if f, ok := sch.FieldsByDBName[name]; ok {
		return f
	}
	if f, ok := sch.FieldsByName[name]; ok && f.DBName != "" {
		return f
	}
	return nil
}

// indirect dereferences pointer values so that *uint(3) and uint(3) compare equal.
func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// clone copies the struct ptr points to into a new pointer.
func clone(ptr reflect.Value) reflect.Value {
	c := reflect.New(ptr.Elem().Type())
	c.Elem().Set(ptr.Elem())
	return c
}
