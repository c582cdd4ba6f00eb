package relsave

import (
	"fmt"
	"reflect"
)

type valueKind int

const (
	valueNull valueKind = iota
	valueInstance
	valueRef
	valueAttrs
)

// Value is one element of a relation assignment. It is either a related
// entity instance, a raw identifier, an attribute mapping or null.
type Value struct {
	kind   valueKind
	entity any
	key    any
	attrs  map[string]any
}

// Instance wraps a pointer to a related model struct.
func Instance(entity any) Value {
	return Value{kind: valueInstance, entity: entity}
}

// Ref wraps a raw identifier: a scalar primary key, a positional []any
// composite key or a map[string]any of key columns. The row must exist.
func Ref(key any) Value {
	return Value{kind: valueRef, key: key}
}

// Attrs wraps an attribute mapping. Keys may be column names or Go field
// names. When every primary key column is present the existing row is
// loaded and updated; otherwise a new entity is created.
func Attrs(attrs map[string]any) Value {
	return Value{kind: valueAttrs, attrs: attrs}
}

// Null clears a single-entity relation.
func Null() Value {
	return Value{kind: valueNull}
}

// IsNull reports whether the value clears the relation.
func (v Value) IsNull() bool {
	return v.kind == valueNull
}

// String describes the value for logs.
func (v Value) String() string {
	switch v.kind {
	case valueInstance:
		return fmt.Sprintf("instance(%T)", v.entity)
	case valueRef:
		return fmt.Sprintf("ref(%v)", v.key)
	case valueAttrs:
		return fmt.Sprintf("attrs(%d)", len(v.attrs))
	default:
		return "null"
	}
}

// ValueOf coerces an arbitrary assignment element into a Value: nil is Null,
// a Value is kept, maps are Attrs, pointers to structs are Instances and
// anything else is a Ref.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case map[string]any:
		return Attrs(x)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return Null()
		}
		if rv.Elem().Kind() == reflect.Struct {
			return Instance(v)
		}
	}
	return Ref(v)
}
