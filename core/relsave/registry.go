package relsave

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Model is the relation metadata of one gorm model type.
type Model struct {
	// Schema is the parsed gorm schema of the model.
	Schema *schema.Schema
	// Relations lists the supported relations in declaration order.
	Relations []*Descriptor

	byName map[string]*Descriptor
}

// Describe returns the descriptor of the named relation. Both the Go field
// name and its column-style name are accepted.
func (m *Model) Describe(name string) (*Descriptor, error) {
	if d, ok := m.byName[name]; ok {
		return d, nil
	}
	return nil, &UndeclaredRelationError{Model: m.Schema.Name, Relation: name}
}

// Registry caches relation metadata per model type.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	models map[reflect.Type]*Model
	sf     singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[reflect.Type]*Model)}
}

// defaultRegistry is shared by records created without WithRegistry.
var defaultRegistry = NewRegistry()

// Model returns the metadata of the model value, parsing it on first use.
// Concurrent first callers for the same type share a single parse.
func (r *Registry) Model(db *gorm.DB, value any) (*Model, error) {
	t := reflect.TypeOf(value)
	for t != nil && (t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrNotAModel, value)
	}

	// Fast path
	r.mu.RLock()
	m, ok := r.models[t]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	result, err, _ := r.sf.Do(t.PkgPath()+"."+t.Name(), func() (interface{}, error) {
		r.mu.RLock()
		m, ok := r.models[t]
		r.mu.RUnlock()
		if ok {
			return m, nil
		}

		m, err := parseModel(db, reflect.New(t).Interface())
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.models[t] = m
		r.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Model), nil
}

// parseModel reads the relations gorm declared for the model.
func parseModel(db *gorm.DB, value any) (*Model, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAModel, err)
	}
	sch := stmt.Schema

	m := &Model{Schema: sch, byName: make(map[string]*Descriptor)}
	for _, field := range sch.Fields {
		rel, ok := sch.Relationships.Relations[field.Name]
		if !ok {
			continue
		}
		d, ok := describe(db.NamingStrategy, sch, rel)
		if !ok {
			continue
		}
		m.Relations = append(m.Relations, d)
		m.byName[d.Name] = d
		m.byName[d.FieldName] = d
	}
	return m, nil
}
