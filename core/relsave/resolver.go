package relsave

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// NewRecorder lets a model state whether it has been persisted. Models that
// do not implement it are classified by the resolver.
type NewRecorder interface {
	IsNewRecord() bool
}

// resolver turns relation values into entities and lazily loads the entities
// currently linked to an owner. It never writes.
type resolver struct {
	db      *gorm.DB
	tracked *tracker
}

// check validates the shape of a value against a relation without touching storage.
func check(d *Descriptor, v Value) error {
	switch v.kind {
	case valueNull:
		if d.IsMany() {
			return fmt.Errorf("%w: null element in list relation %q", ErrInvalidValue, d.Name)
		}
	case valueInstance:
		t := reflect.TypeOf(v.entity)
		if t == nil || t.Kind() != reflect.Ptr || t.Elem() != d.Related.ModelType {
			return fmt.Errorf("%w: relation %q expects *%s, got %T", ErrInvalidValue, d.Name, d.Related.ModelType.Name(), v.entity)
		}
		if reflect.ValueOf(v.entity).IsNil() {
			return fmt.Errorf("%w: nil instance for relation %q", ErrInvalidValue, d.Name)
		}
	case valueRef:
		if _, err := keyFromRef(d.Related, v.key); err != nil {
			return fmt.Errorf("%w: relation %q: %v", ErrInvalidValue, d.Name, err)
		}
	case valueAttrs:
		for name := range v.attrs {
			if lookupField(d.Related, name) == nil {
				return fmt.Errorf("%w: %s has no attribute %q", ErrInvalidValue, d.Related.Name, name)
			}
		}
	}
	return nil
}

// resolve normalizes one value into an entity. Null values resolve to nil.
func (r *resolver) resolve(ctx context.Context, d *Descriptor, v Value) (*entity, error) {
	switch v.kind {
	case valueInstance:
		return r.instance(ctx, d, v.entity)
	case valueRef:
		return r.ref(ctx, d, v.key)
	case valueAttrs:
		return r.attrs(ctx, d, v.attrs)
	default:
		return nil, nil
	}
}

// instance classifies a caller supplied entity as new or existing.
func (r *resolver) instance(ctx context.Context, d *Descriptor, value any) (*entity, error) {
	ptr := reflect.ValueOf(value)
	if nr, ok := value.(NewRecorder); ok && nr.IsNewRecord() {
		return &entity{ptr: ptr, isNew: true}, nil
	}
	if _, ok := r.tracked.get(ptr); ok {
		return &entity{ptr: ptr}, nil
	}
	key, ok := keyOf(ctx, d.Related, ptr)
	if !ok {
		return &entity{ptr: ptr, isNew: true}, nil
	}

	// Probe storage: the row decides whether this is an insert or an update.
	stored, found, err := r.find(ctx, d.Related, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return &entity{ptr: ptr, isNew: true}, nil
	}
	r.tracked.rememberAs(ptr, attrsOf(ctx, d.Related, stored))
	return &entity{ptr: ptr}, nil
}

// ref loads the entity identified by a raw key.
func (r *resolver) ref(ctx context.Context, d *Descriptor, raw any) (*entity, error) {
	key, err := keyFromRef(d.Related, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: relation %q: %v", ErrInvalidValue, d.Name, err)
	}
	ptr, found, err := r.find(ctx, d.Related, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &RelatedEntityNotFoundError{Relation: d.Name, Model: d.Related.Name, Key: key}
	}
	r.tracked.remember(ctx, d.Related, ptr)
	return &entity{ptr: ptr}, nil
}

// attrs builds an entity from an attribute mapping. A mapping carrying the
// full primary key updates the stored row when there is one.
func (r *resolver) attrs(ctx context.Context, d *Descriptor, attrs map[string]any) (*entity, error) {
	if key, full := keyFromAttrs(d.Related, attrs); full {
		ptr, found, err := r.find(ctx, d.Related, key)
		if err != nil {
			return nil, err
		}
		if found {
			r.tracked.remember(ctx, d.Related, ptr)
			if err := apply(ctx, d.Related, ptr, attrs, false); err != nil {
				return nil, err
			}
			return &entity{ptr: ptr}, nil
		}
	}

	ptr := reflect.New(d.Related.ModelType)
	if err := apply(ctx, d.Related, ptr, attrs, true); err != nil {
		return nil, err
	}
	return &entity{ptr: ptr, isNew: true}, nil
}

// find loads the row of sch with the given primary key.
func (r *resolver) find(ctx context.Context, sch *schema.Schema, key Key) (reflect.Value, bool, error) {
	dest := reflect.New(sch.ModelType)
	err := r.db.WithContext(ctx).
		Clauses(clause.Where{Exprs: keyExprs(sch.Table, columnNames(sch.PrimaryFields), key)}).
		Take(dest.Interface()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return reflect.Value{}, false, nil
	}
	if err != nil {
		return reflect.Value{}, false, storageErr("load", sch.Table, err)
	}
	return dest, true, nil
}

// load reads the entities currently linked to owner through d.
func (r *resolver) load(ctx context.Context, d *Descriptor, owner reflect.Value) ([]*entity, error) {
	tx := r.db.WithContext(ctx)
	ownerRV := reflect.Indirect(owner)

	switch d.Kind {
	case HasOne:
		key, ok := readKey(ctx, ownerRV, localFields(d.Keys))
		if !ok {
			return nil, nil
		}
		dest := reflect.New(d.Related.ModelType)
		err := tx.Clauses(clause.Where{Exprs: keyExprs(d.Related.Table, columnNames(remoteFields(d.Keys)), key)}).
			Take(dest.Interface()).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, storageErr("load", d.Related.Table, err)
		}
		r.tracked.remember(ctx, d.Related, dest)
		return []*entity{{ptr: dest}}, nil

	case HasMany:
		key, ok := readKey(ctx, ownerRV, localFields(d.Keys))
		if !ok {
			return nil, nil
		}
		tx = tx.Clauses(clause.Where{Exprs: keyExprs(d.Related.Table, columnNames(remoteFields(d.Keys)), key)})
		return r.list(ctx, tx, d)

	case ManyToMany:
		ownerFields := make([]*schema.Field, len(d.Link.OwnerColumns))
		ownerCols := make([]string, len(d.Link.OwnerColumns))
		for i, lc := range d.Link.OwnerColumns {
			ownerFields[i] = lc.Field
			ownerCols[i] = lc.Column
		}
		key, ok := readKey(ctx, ownerRV, ownerFields)
		if !ok {
			return nil, nil
		}
		on := make([]string, len(d.Link.RelatedColumns))
		for i, lc := range d.Link.RelatedColumns {
			on[i] = tx.Statement.Quote(d.Link.Name+"."+lc.Column) + " = " + tx.Statement.Quote(d.Related.Table+"."+lc.Field.DBName)
		}
		tx = tx.Select(tx.Statement.Quote(d.Related.Table)+".*").
			Joins("JOIN "+tx.Statement.Quote(d.Link.Name)+" ON "+strings.Join(on, " AND ")).
			Clauses(clause.Where{Exprs: keyExprs(d.Link.Name, ownerCols, key)})
		return r.list(ctx, tx, d)
	}
	return nil, nil
}

// list runs a prepared query for related rows ordered by primary key.
func (r *resolver) list(ctx context.Context, tx *gorm.DB, d *Descriptor) ([]*entity, error) {
	for _, pf := range d.Related.PrimaryFields {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Table: d.Related.Table, Name: pf.DBName}})
	}
	dest := reflect.New(reflect.SliceOf(reflect.PointerTo(d.Related.ModelType)))
	if err := tx.Find(dest.Interface()).Error; err != nil {
		return nil, storageErr("load", d.Related.Table, err)
	}

	rows := dest.Elem()
	out := make([]*entity, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		ptr := rows.Index(i)
		r.tracked.remember(ctx, d.Related, ptr)
		out = append(out, &entity{ptr: ptr})
	}
	return out, nil
}

// apply writes attrs into ptr. Key columns are skipped unless withKeys is set.
func apply(ctx context.Context, sch *schema.Schema, ptr reflect.Value, attrs map[string]any, withKeys bool) error {
	for name, v := range attrs {
		f := lookupField(sch, name)
		if f == nil {
			return fmt.Errorf("%w: %s has no attribute %q", ErrInvalidValue, sch.Name, name)
		}
		if f.PrimaryKey && !withKeys {
			continue
		}
		if err := setField(ctx, f, ptr, v); err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrInvalidValue, sch.Name, f.Name, err)
		}
	}
	return nil
}

// keyFromRef normalizes a raw identifier into a key tuple of sch.
func keyFromRef(sch *schema.Schema, raw any) (Key, error) {
	pks := sch.PrimaryFields
	if len(pks) == 0 {
		return nil, fmt.Errorf("%s has no primary key", sch.Name)
	}
	switch k := raw.(type) {
	case map[string]any:
		key := make(Key, len(pks))
		for i, pf := range pks {
			v, ok := k[pf.DBName]
			if !ok {
				v, ok = k[pf.Name]
			}
			if !ok {
				return nil, fmt.Errorf("missing key column %q", pf.DBName)
			}
			key[i] = v
		}
		return key, nil
	case Key:
		if len(k) != len(pks) {
			return nil, fmt.Errorf("key has %d components, %s needs %d", len(k), sch.Name, len(pks))
		}
		return k, nil
	case []any:
		if len(k) != len(pks) {
			return nil, fmt.Errorf("key has %d components, %s needs %d", len(k), sch.Name, len(pks))
		}
		return Key(k), nil
	case nil:
		return nil, fmt.Errorf("nil key")
	default:
		if len(pks) != 1 {
			return nil, fmt.Errorf("%s has a composite key, scalar %v given", sch.Name, raw)
		}
		return Key{k}, nil
	}
}

// keyFromAttrs extracts the primary key from an attribute mapping and reports
// whether every component is present and non-zero.
func keyFromAttrs(sch *schema.Schema, attrs map[string]any) (Key, bool) {
	if len(sch.PrimaryFields) == 0 {
		return nil, false
	}
	key := make(Key, 0, len(sch.PrimaryFields))
	for _, pf := range sch.PrimaryFields {
		v, ok := attrs[pf.DBName]
		if !ok {
			v, ok = attrs[pf.Name]
		}
		if !ok || v == nil || reflect.ValueOf(v).IsZero() {
			return nil, false
		}
		key = append(key, v)
	}
	return key, true
}

// readKey reads the given fields of a struct value and reports false when any is zero.
func readKey(ctx context.Context, rv reflect.Value, fields []*schema.Field) (Key, bool) {
	key := make(Key, 0, len(fields))
	for _, f := range fields {
		v, zero := f.ValueOf(ctx, rv)
		if zero {
			return nil, false
		}
		key = append(key, indirect(v))
	}
	return key, len(key) > 0
}

// keyExprs builds table.column = value conditions for a key tuple.
func keyExprs(table string, columns []string, key Key) []clause.Expression {
	exprs := make([]clause.Expression, len(columns))
	for i, col := range columns {
		exprs[i] = clause.Eq{Column: clause.Column{Table: table, Name: col}, Value: key[i]}
	}
	return exprs
}

func localFields(keys []KeyPair) []*schema.Field {
	out := make([]*schema.Field, len(keys))
	for i, kp := range keys {
		out[i] = kp.Local
	}
	return out
}

func remoteFields(keys []KeyPair) []*schema.Field {
	out := make([]*schema.Field, len(keys))
	for i, kp := range keys {
		out[i] = kp.Remote
	}
	return out
}

func columnNames(fields []*schema.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.DBName
	}
	return out
}
