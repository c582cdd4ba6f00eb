package relsave

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Option configures a Record.
type Option func(*Record)

// WithLogger sets the logger used for state transitions and plan summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Record) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithJournal sets the journal receiving a report after each committed save.
func WithJournal(j Journal) Option {
	return func(r *Record) {
		r.journal = j
	}
}

// WithRegistry sets the metadata registry. Records share a package level
// registry by default.
func WithRegistry(reg *Registry) Option {
	return func(r *Record) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// Record attaches relation saving to one owning model instance.
// Relation assignments are staged by Set and written by Save in a single
// transaction. A Record is not safe for concurrent use.
type Record struct {
	db       *gorm.DB
	owner    reflect.Value
	model    *Model
	registry *Registry
	logger   *zap.Logger
	journal  Journal

	tracked  *tracker
	resolver *resolver

	// staged holds the pending assignment per relation.
	staged map[*Descriptor][]Value
	// resolved caches the entities of staged assignments.
	resolved map[*Descriptor][]*entity
	// loaded holds the entities known to be linked in storage.
	loaded map[*Descriptor][]*entity

	errs  Errors
	state State
}

// New wraps owner, which must be a non-nil pointer to a gorm model struct.
func New(db *gorm.DB, owner any, opts ...Option) (*Record, error) {
	rv := reflect.ValueOf(owner)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrNotAModel, owner)
	}

	r := &Record{
		db:       db,
		owner:    rv,
		registry: defaultRegistry,
		logger:   zap.NewNop(),
		tracked:  newTracker(),
		staged:   make(map[*Descriptor][]Value),
		resolved: make(map[*Descriptor][]*entity),
		loaded:   make(map[*Descriptor][]*entity),
		errs:     Errors{},
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}

	model, err := r.registry.Model(db, owner)
	if err != nil {
		return nil, err
	}
	r.model = model
	r.resolver = &resolver{db: db, tracked: r.tracked}
	return r, nil
}

// Model returns the relation metadata of the owner.
func (r *Record) Model() *Model {
	return r.model
}

// State returns the last state reached by Save.
func (r *Record) State() State {
	return r.state
}

// Errors returns the validation messages of the last Save.
func (r *Record) Errors() Errors {
	return r.errs
}

// Staged reports whether any relation assignment is pending.
func (r *Record) Staged() bool {
	return len(r.staged) > 0
}

// Set stages an assignment for the named relation without touching storage.
// Each value may be a Value or anything ValueOf accepts. Single relations
// take exactly one value (nil clears them). For list relations the values
// form the new linked set; a single slice argument is expanded, and calling
// Set with no values unlinks everything. Composite keys must be passed with Ref.
func (r *Record) Set(name string, values ...any) error {
	d, err := r.model.Describe(name)
	if err != nil {
		return err
	}

	if d.IsMany() && len(values) == 1 {
		values = expand(values[0])
	}
	if !d.IsMany() && len(values) != 1 {
		return fmt.Errorf("%w: relation %q takes one value, got %d", ErrInvalidValue, d.Name, len(values))
	}

	staged := make([]Value, len(values))
	for i, v := range values {
		val := ValueOf(v)
		if err := check(d, val); err != nil {
			return err
		}
		staged[i] = val
	}

	r.staged[d] = staged
	delete(r.resolved, d)
	r.logger.Debug("Staged relation",
		zap.String("model", r.model.Schema.Name),
		zap.String("relation", d.Name),
		zap.Int("values", len(staged)))
	return nil
}

// Clear stages null for a single relation or the empty set for a list relation.
func (r *Record) Clear(name string) error {
	d, err := r.model.Describe(name)
	if err != nil {
		return err
	}
	if d.IsMany() {
		return r.Set(name)
	}
	return r.Set(name, nil)
}

// Get returns the staged entities of the named relation, or the linked ones
// loaded from storage on first access. Single relations yield at most one.
func (r *Record) Get(ctx context.Context, name string) ([]any, error) {
	d, err := r.model.Describe(name)
	if err != nil {
		return nil, err
	}

	var ents []*entity
	if _, ok := r.staged[d]; ok {
		ents, err = r.resolve(ctx, d)
	} else {
		ents, err = r.linked(ctx, d)
	}
	if err != nil {
		return nil, err
	}

	out := make([]any, len(ents))
	for i, e := range ents {
		out[i] = e.value()
	}
	return out, nil
}

// Plan resolves the staged assignments and returns the writes Save would
// perform. It reads from storage but never writes.
func (r *Record) Plan(ctx context.Context) (*Plan, error) {
	var changes []*change
	for _, d := range r.model.Relations {
		if _, ok := r.staged[d]; !ok {
			continue
		}
		assigned, err := r.resolve(ctx, d)
		if err != nil {
			return nil, err
		}
		linked, err := r.linked(ctx, d)
		if err != nil {
			return nil, err
		}
		changes = append(changes, diff(ctx, r.tracked, d, linked, assigned))
	}
	return buildPlan(ctx, r.model, changes), nil
}

// Save validates the owner and the staged relations, then writes everything
// in one transaction. It returns false with a nil error when validation
// fails; the messages are available through Errors and the staging is kept,
// so callers fix the entities or call Set or Clear before saving again.
// Any other failure rolls the transaction back, restores the in-memory
// entities and discards the staging.
func (r *Record) Save(ctx context.Context) (bool, error) {
	r.errs = Errors{}
	r.setState(StateValidating)

	plan, err := r.Plan(ctx)
	if err != nil {
		r.setState(StateAborted)
		return false, err
	}

	if errs := validate(r.owner.Interface(), plan); errs.Len() > 0 {
		r.errs = errs
		r.setState(StateAborted)
		r.logger.Debug("Validation failed",
			zap.String("model", r.model.Schema.Name),
			zap.Int("errors", errs.Len()))
		return false, nil
	}

	if plan.Empty() {
		return r.savePlain(ctx, plan)
	}

	backup := r.backup(plan)
	s := &saver{model: r.model, owner: r.owner, tracked: r.tracked, logger: r.logger, state: r.setState}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.run(ctx, tx, plan)
	})
	if err != nil {
		backup.restore()
		r.discard()
		r.setState(StateAborted)
		r.logger.Warn("Save aborted",
			zap.String("model", r.model.Schema.Name),
			zap.Error(err))
		return false, classify(err, r.model.Schema.Table)
	}

	r.commit(ctx, plan)
	r.logger.Info("Saved relations",
		zap.String("model", r.model.Schema.Name),
		zap.Int("relations", plan.Summary.Relations),
		zap.Int("inserts", plan.Summary.Inserts),
		zap.Int("updates", plan.Summary.Updates),
		zap.Int("links", plan.Summary.Links),
		zap.Int("unlinks", plan.Summary.Unlinks))
	r.report(ctx, plan)
	return true, nil
}

// savePlain saves the owner row alone when no relation write is pending.
func (r *Record) savePlain(ctx context.Context, plan *Plan) (bool, error) {
	r.setState(StateSavingSelf)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(r.owner.Interface()).Error; err != nil {
		r.setState(StateAborted)
		return false, storageErr("save", r.model.Schema.Table, err)
	}
	r.commit(ctx, plan)
	return true, nil
}

// resolve returns the entities of the staged assignment of d.
func (r *Record) resolve(ctx context.Context, d *Descriptor) ([]*entity, error) {
	if ents, ok := r.resolved[d]; ok {
		return ents, nil
	}
	values := r.staged[d]
	ents := make([]*entity, 0, len(values))
	for _, v := range values {
		e, err := r.resolver.resolve(ctx, d, v)
		if err != nil {
			return nil, err
		}
		if e != nil {
			ents = append(ents, e)
		}
	}
	r.resolved[d] = ents
	return ents, nil
}

// linked returns the entities linked in storage, loading them once.
func (r *Record) linked(ctx context.Context, d *Descriptor) ([]*entity, error) {
	if ents, ok := r.loaded[d]; ok {
		return ents, nil
	}
	ents, err := r.resolver.load(ctx, d, r.owner)
	if err != nil {
		return nil, err
	}
	r.loaded[d] = ents
	if len(ents) > 0 && d.field.ReflectValueOf(ctx, reflect.Indirect(r.owner)).IsZero() {
		r.writeBack(ctx, d, ents)
	}
	return ents, nil
}

// commit makes the saved assignment the linked set and clears the staging.
func (r *Record) commit(ctx context.Context, plan *Plan) {
	for _, c := range plan.changes {
		d := c.relation
		for _, e := range c.assigned {
			e.isNew = false
			r.tracked.remember(ctx, d.Related, e.ptr)
		}
		for _, it := range c.remove {
			r.tracked.remember(ctx, d.Related, it.entity.ptr)
		}
		r.loaded[d] = c.assigned
		r.writeBack(ctx, d, c.assigned)
	}
	r.discard()
	r.setState(StateCommitted)
}

// discard drops every staged assignment.
func (r *Record) discard() {
	r.staged = make(map[*Descriptor][]Value)
	r.resolved = make(map[*Descriptor][]*entity)
}

// writeBack stores ents in the owner's relation field.
func (r *Record) writeBack(ctx context.Context, d *Descriptor, ents []*entity) {
	fv := d.field.ReflectValueOf(ctx, reflect.Indirect(r.owner))
	if !fv.CanSet() {
		return
	}
	assign := func(dst reflect.Value, e *entity) {
		if dst.Kind() == reflect.Ptr {
			dst.Set(e.ptr)
			return
		}
		dst.Set(e.ptr.Elem())
	}

	if d.IsMany() {
		t := fv.Type()
		if t.Kind() != reflect.Slice {
			return
		}
		s := reflect.MakeSlice(t, len(ents), len(ents))
		for i, e := range ents {
			assign(s.Index(i), e)
		}
		fv.Set(s)
		return
	}
	if len(ents) == 0 {
		fv.Set(reflect.Zero(fv.Type()))
		return
	}
	assign(fv, ents[0])
}

// report hands the committed plan to the journal.
func (r *Record) report(ctx context.Context, plan *Plan) {
	if r.journal == nil {
		return
	}
	ownerKey := ""
	if key, ok := keyOf(ctx, r.model.Schema, r.owner); ok {
		ownerKey = key.String()
	}
	rep := &Report{
		Model:    plan.Model,
		OwnerKey: ownerKey,
		State:    r.state,
		Summary:  plan.Summary,
		Actions:  plan.Actions,
		At:       time.Now().UTC(),
	}
	if err := r.journal.Write(ctx, rep); err != nil {
		r.logger.Warn("Failed to write save report",
			zap.String("model", plan.Model),
			zap.Error(err))
	}
}

func (r *Record) setState(s State) {
	r.state = s
	r.logger.Debug("Save state",
		zap.String("model", r.model.Schema.Name),
		zap.String("state", string(s)))
}

// backup holds copies of every struct a save may modify, keyed by pointer.
type backup struct {
	saved map[any][2]reflect.Value
}

func (r *Record) backup(plan *Plan) *backup {
	b := &backup{saved: make(map[any][2]reflect.Value)}
	b.keep(r.owner)
	for _, c := range plan.changes {
		for _, items := range [][]*item{c.add, c.keep, c.remove} {
			for _, it := range items {
				b.keep(it.entity.ptr)
			}
		}
	}
	return b
}

func (b *backup) keep(ptr reflect.Value) {
	if _, ok := b.saved[ptr.Interface()]; !ok {
		b.saved[ptr.Interface()] = [2]reflect.Value{ptr, clone(ptr)}
	}
}

func (b *backup) restore() {
	for _, pair := range b.saved {
		pair[0].Elem().Set(pair[1].Elem())
	}
}

// classify keeps typed errors raised inside the transaction and wraps
// anything else, such as a failed commit, as a storage error.
func classify(err error, table string) error {
	var se *StorageError
	if errors.As(err, &se) || IsRequiredRelation(err) {
		return err
	}
	return storageErr("commit", table, err)
}

// expand turns a single slice argument into its elements. Keys and byte
// slices are kept whole.
func expand(v any) []any {
	switch v.(type) {
	case Key, []byte, nil:
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
