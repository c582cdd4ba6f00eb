package relsave

import (
	"database/sql"
	"reflect"

	"gorm.io/gorm/schema"
)

// Descriptor is the resolved metadata of one declared relation.
type Descriptor struct {
	// Name is the column-style relation name ("company", "users").
	Name string
	// FieldName is the Go struct field holding the relation ("Company").
	FieldName string
	// Kind tells where the keys live.
	Kind Kind
	// Cardinality is CardinalityOne for single-entity relations and CardinalityMany for lists.
	Cardinality Cardinality
	// Owner is the schema of the model declaring the relation.
	Owner *schema.Schema
	// Related is the schema of the model on the other side.
	Related *schema.Schema
	// Keys pairs owner-side and related-side columns. For HasOne the local
	// field is the owner foreign key and the remote field the related primary
	// key; for HasMany the local field is the owner primary key and the remote
	// field the related foreign key. Empty for ManyToMany.
	Keys []KeyPair
	// Link describes the link table of a ManyToMany relation.
	Link *LinkTable

	field *schema.Field
}

// KeyPair is one column of a possibly composite key mapping.
type KeyPair struct {
	Local  *schema.Field
	Remote *schema.Field
}

// LinkTable describes the join table of a many-to-many relation.
type LinkTable struct {
	Name string
	// OwnerColumns map link columns to owner primary key fields.
	OwnerColumns []LinkColumn
	// RelatedColumns map link columns to related primary key fields.
	RelatedColumns []LinkColumn
}

// LinkColumn is a link table column and the model field it copies.
type LinkColumn struct {
	Column string
	Field  *schema.Field
}

// IsMany reports whether the relation holds a list.
func (d *Descriptor) IsMany() bool {
	return d.Cardinality == CardinalityMany
}

// Nullable reports whether the relation can be detached by nulling its key
// columns. ManyToMany relations are always detachable since only link rows
// are deleted.
func (d *Descriptor) Nullable() (bool, string) {
	switch d.Kind {
	case HasOne:
		for _, kp := range d.Keys {
			if !nullableField(kp.Local) {
				return false, kp.Local.DBName
			}
		}
	case HasMany:
		for _, kp := range d.Keys {
			if !nullableField(kp.Remote) {
				return false, kp.Remote.DBName
			}
		}
	}
	return true, ""
}

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// nullableField reports whether the column can hold NULL: the field must not be
// tagged "not null" and its Go type must be able to represent a missing value.
func nullableField(f *schema.Field) bool {
	if f == nil || f.NotNull || f.PrimaryKey {
		return false
	}
	t := f.FieldType
	if t.Kind() == reflect.Ptr {
		return true
	}
	return reflect.PointerTo(t).Implements(scannerType)
}

// describe converts a parsed gorm relationship into a Descriptor. Polymorphic
// relations are not supported and report false.
func describe(namer schema.Namer, owner *schema.Schema, rel *schema.Relationship) (*Descriptor, bool) {
	if rel.Polymorphic != nil || rel.Field == nil || rel.FieldSchema == nil {
		return nil, false
	}

	d := &Descriptor{
		Name:        namer.ColumnName("", rel.Name),
		FieldName:   rel.Name,
		Owner:       owner,
		Related:     rel.FieldSchema,
		Cardinality: CardinalityOne,
		field:       rel.Field,
	}
	if rel.Field.IndirectFieldType.Kind() == reflect.Slice {
		d.Cardinality = CardinalityMany
	}

	switch rel.Type {
	case schema.BelongsTo:
		d.Kind = HasOne
		for _, ref := range rel.References {
			if ref.PrimaryKey == nil || ref.ForeignKey == nil {
				return nil, false
			}
			d.Keys = append(d.Keys, KeyPair{Local: ref.ForeignKey, Remote: ref.PrimaryKey})
		}
	case schema.HasOne, schema.HasMany:
		d.Kind = HasMany
		for _, ref := range rel.References {
			if ref.PrimaryKey == nil || ref.ForeignKey == nil {
				return nil, false
			}
			d.Keys = append(d.Keys, KeyPair{Local: ref.PrimaryKey, Remote: ref.ForeignKey})
		}
	case schema.Many2Many:
		if rel.JoinTable == nil {
			return nil, false
		}
		d.Kind = ManyToMany
		d.Link = &LinkTable{Name: rel.JoinTable.Table}
		for _, ref := range rel.References {
			if ref.PrimaryKey == nil || ref.ForeignKey == nil {
				return nil, false
			}
			col := LinkColumn{Column: ref.ForeignKey.DBName, Field: ref.PrimaryKey}
			if ref.OwnPrimaryKey {
				d.Link.OwnerColumns = append(d.Link.OwnerColumns, col)
			} else {
				d.Link.RelatedColumns = append(d.Link.RelatedColumns, col)
			}
		}
		if len(d.Link.OwnerColumns) == 0 || len(d.Link.RelatedColumns) == 0 {
			return nil, false
		}
	default:
		return nil, false
	}

	if d.Kind != ManyToMany && len(d.Keys) == 0 {
		return nil, false
	}
	return d, true
}
