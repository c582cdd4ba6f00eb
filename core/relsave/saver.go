package relsave

import (
	"context"
	"reflect"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// saver executes a plan inside an open transaction. Parents are written
// first so their keys can be copied into the owner, then the owner row,
// then the children and link rows.
type saver struct {
	model   *Model
	owner   reflect.Value
	tracked *tracker
	logger  *zap.Logger
	state   func(State)
}

func (s *saver) run(ctx context.Context, tx *gorm.DB, plan *Plan) error {
	s.state(StateSavingParents)
	for _, c := range plan.changes {
		if c.relation.Kind != HasOne {
			continue
		}
		if err := s.saveParent(ctx, tx, c); err != nil {
			return err
		}
	}

	s.state(StateSavingSelf)
	if err := tx.Omit(clause.Associations).Save(s.owner.Interface()).Error; err != nil {
		return storageErr("save", s.model.Schema.Table, err)
	}

	s.state(StateSavingChildren)
	for _, c := range plan.changes {
		var err error
		switch c.relation.Kind {
		case HasMany:
			err = s.saveChildren(ctx, tx, c)
		case ManyToMany:
			err = s.saveLinks(ctx, tx, c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// saveParent writes the has-one entity and copies its key into the owner.
func (s *saver) saveParent(ctx context.Context, tx *gorm.DB, c *change) error {
	d := c.relation
	if c.clear {
		if ok, col := d.Nullable(); !ok {
			return &RequiredRelationError{Relation: d.Name, Column: col}
		}
		for _, kp := range d.Keys {
			zeroField(ctx, kp.Local, s.owner)
		}
		return nil
	}

	for _, items := range [][]*item{c.add, c.keep} {
		for _, it := range items {
			if err := s.persist(ctx, tx, d, it); err != nil {
				return err
			}
			for _, kp := range d.Keys {
				if err := setField(ctx, kp.Local, s.owner, fieldValue(ctx, kp.Remote, it.entity.ptr)); err != nil {
					return storageErr("link", s.model.Schema.Table, err)
				}
			}
		}
	}
	return nil
}

// saveChildren points the foreign keys of added entities at the owner and
// nulls them on removed ones. Related rows are never deleted.
func (s *saver) saveChildren(ctx context.Context, tx *gorm.DB, c *change) error {
	d := c.relation
	table := d.Related.Table

	for _, it := range c.add {
		for _, kp := range d.Keys {
			if err := setField(ctx, kp.Remote, it.entity.ptr, fieldValue(ctx, kp.Local, s.owner)); err != nil {
				return storageErr("link", table, err)
			}
		}
		if it.entity.isNew {
			if err := s.persist(ctx, tx, d, it); err != nil {
				return err
			}
			continue
		}
		if err := s.update(ctx, tx, d, it.entity.ptr, s.tracked.changes(ctx, d.Related, it.entity.ptr), "link"); err != nil {
			return err
		}
	}

	for _, it := range c.keep {
		if err := s.persist(ctx, tx, d, it); err != nil {
			return err
		}
	}

	if len(c.remove) == 0 {
		return nil
	}
	if ok, col := d.Nullable(); !ok {
		return &RequiredRelationError{Relation: d.Name, Column: col}
	}
	for _, it := range c.remove {
		nulls := make(map[string]any, len(d.Keys))
		for _, kp := range d.Keys {
			nulls[kp.Remote.DBName] = nil
		}
		if err := s.update(ctx, tx, d, it.entity.ptr, nulls, "unlink"); err != nil {
			return err
		}
		for _, kp := range d.Keys {
			zeroField(ctx, kp.Remote, it.entity.ptr)
		}
	}
	return nil
}

// saveLinks writes the related entities of a many-to-many relation and
// reconciles the link rows. Unlinking deletes the link row only.
func (s *saver) saveLinks(ctx context.Context, tx *gorm.DB, c *change) error {
	d := c.relation
	link := d.Link

	for _, it := range c.add {
		if err := s.persist(ctx, tx, d, it); err != nil {
			return err
		}
		row := make(map[string]any, len(link.OwnerColumns)+len(link.RelatedColumns))
		for _, lc := range link.OwnerColumns {
			row[lc.Column] = fieldValue(ctx, lc.Field, s.owner)
		}
		for _, lc := range link.RelatedColumns {
			row[lc.Column] = fieldValue(ctx, lc.Field, it.entity.ptr)
		}
		if err := tx.Table(link.Name).Create(row).Error; err != nil {
			return storageErr("link", link.Name, err)
		}
	}

	for _, it := range c.keep {
		if err := s.persist(ctx, tx, d, it); err != nil {
			return err
		}
	}

	for _, it := range c.remove {
		exprs := make([]clause.Expression, 0, len(link.OwnerColumns)+len(link.RelatedColumns))
		for _, lc := range link.OwnerColumns {
			exprs = append(exprs, clause.Eq{Column: clause.Column{Table: link.Name, Name: lc.Column}, Value: fieldValue(ctx, lc.Field, s.owner)})
		}
		for _, lc := range link.RelatedColumns {
			exprs = append(exprs, clause.Eq{Column: clause.Column{Table: link.Name, Name: lc.Column}, Value: fieldValue(ctx, lc.Field, it.entity.ptr)})
		}
		if err := tx.Table(link.Name).Clauses(clause.Where{Exprs: exprs}).Delete(nil).Error; err != nil {
			return storageErr("unlink", link.Name, err)
		}
	}
	return nil
}

// persist inserts a new entity or writes the changed columns of a modified one.
func (s *saver) persist(ctx context.Context, tx *gorm.DB, d *Descriptor, it *item) error {
	if it.entity.isNew {
		if err := tx.Omit(clause.Associations).Create(it.entity.value()).Error; err != nil {
			return storageErr("insert", d.Related.Table, err)
		}
		s.logger.Debug("Inserted related row",
			zap.String("relation", d.Name),
			zap.String("table", d.Related.Table))
		return nil
	}
	if !it.modified() {
		return nil
	}
	return s.update(ctx, tx, d, it.entity.ptr, it.changes, "update")
}

// update writes cols to the row of ptr identified by its primary key.
func (s *saver) update(ctx context.Context, tx *gorm.DB, d *Descriptor, ptr reflect.Value, cols map[string]any, op string) error {
	if len(cols) == 0 {
		return nil
	}
	key, ok := keyOf(ctx, d.Related, ptr)
	if !ok {
		return storageErr(op, d.Related.Table, ErrInvalidValue)
	}
	table := d.Related.Table
	err := tx.Table(table).
		Clauses(clause.Where{Exprs: keyExprs(table, columnNames(d.Related.PrimaryFields), key)}).
		Updates(cols).Error
	if err != nil {
		return storageErr(op, table, err)
	}
	s.logger.Debug("Updated related row",
		zap.String("relation", d.Name),
		zap.String("table", table),
		zap.String("key", key.String()),
		zap.Int("columns", len(cols)))
	return nil
}
