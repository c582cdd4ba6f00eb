package project

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"relsave/core/metrics"
	"relsave/core/relsave"
	"relsave/feature/project/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the requested project does not exist.
var ErrNotFound = errors.New("project not found")

// Input is a change request for one project.
type Input struct {
	// Name renames the project when set.
	Name *string `json:"name,omitempty"`
	// Relations maps relation names to their new values. A number or string is a
	// primary key, an object is an attribute map, an array is a list of either
	// and null clears the relation.
	Relations map[string]any `json:"relations,omitempty"`
}

// Result is the outcome of a change request.
type Result struct {
	// Saved reports whether the changes were written.
	Saved bool `json:"saved"`
	// Project is the project with its relations after the request.
	Project *models.Project `json:"project,omitempty"`
	// Plan lists the writes; set for dry runs and committed saves with relation writes.
	Plan *relsave.Plan `json:"plan,omitempty"`
	// Errors holds validation messages keyed by relation or attribute.
	Errors relsave.Errors `json:"errors,omitempty"`
}

// Service reads and changes projects through relsave records.
type Service struct {
	db       *gorm.DB
	registry *relsave.Registry
	journal  relsave.Journal
	recorder *metrics.Recorder
	logger   *zap.Logger
}

// NewService creates a project service. journal and recorder may be nil.
func NewService(db *gorm.DB, journal relsave.Journal, recorder *metrics.Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		registry: relsave.NewRegistry(),
		journal:  journal,
		recorder: recorder,
		logger:   logger,
	}
}

// Get returns a project with its company, users and links.
func (s *Service) Get(ctx context.Context, id uint) (*models.Project, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.record(p, nil)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, rec, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Create saves a new project with the given relations.
func (s *Service) Create(ctx context.Context, in Input, dryRun bool) (*Result, error) {
	return s.apply(ctx, &models.Project{}, in, dryRun)
}

// Update changes an existing project.
func (s *Service) Update(ctx context.Context, id uint, in Input, dryRun bool) (*Result, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, p, in, dryRun)
}

func (s *Service) find(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).Take(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load project %d: %w", id, err)
	}
	return &p, nil
}

func (s *Service) record(p *models.Project, journal relsave.Journal) (*relsave.Record, error) {
	opts := []relsave.Option{relsave.WithLogger(s.logger), relsave.WithRegistry(s.registry)}
	if journal != nil {
		opts = append(opts, relsave.WithJournal(journal))
	}
	return relsave.New(s.db, p, opts...)
}

func (s *Service) apply(ctx context.Context, p *models.Project, in Input, dryRun bool) (*Result, error) {
	// captures the report of a committed save before forwarding it
	var report *relsave.Report
	journal := relsave.JournalFunc(func(ctx context.Context, r *relsave.Report) error {
		report = r
		if s.journal == nil {
			return nil
		}
		return s.journal.Write(ctx, r)
	})

	rec, err := s.record(p, journal)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if err := stage(rec, in.Relations); err != nil {
		return nil, err
	}

	if dryRun {
		plan, err := rec.Plan(ctx)
		if err != nil {
			return nil, err
		}
		return &Result{Project: p, Plan: plan}, nil
	}

	start := time.Now()
	ok, err := rec.Save(ctx)
	s.observe(start, ok, err, report)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{Project: p, Errors: rec.Errors()}, nil
	}

	if err := s.populate(ctx, rec, p); err != nil {
		return nil, err
	}
	res := &Result{Saved: true, Project: p}
	if report != nil {
		res.Plan = &relsave.Plan{Model: report.Model, Actions: report.Actions, Summary: report.Summary}
	}
	return res, nil
}

func (s *Service) observe(start time.Time, ok bool, err error, report *relsave.Report) {
	if s.recorder == nil {
		return
	}
	outcome := metrics.OutcomePlain
	var summary relsave.PlanSummary
	switch {
	case err != nil:
		outcome = metrics.OutcomeAborted
	case !ok:
		outcome = metrics.OutcomeInvalid
	case report != nil:
		outcome = metrics.OutcomeCommitted
		summary = report.Summary
	}
	s.recorder.ObserveSave("Project", outcome, time.Since(start), summary)
}

// populate fills the relation fields of p from the record.
func (s *Service) populate(ctx context.Context, rec *relsave.Record, p *models.Project) error {
	company, err := relsave.One[models.Company](ctx, rec, "company")
	if err != nil {
		return err
	}
	users, err := relsave.Many[models.User](ctx, rec, "users")
	if err != nil {
		return err
	}
	links, err := relsave.Many[models.Link](ctx, rec, "links")
	if err != nil {
		return err
	}
	p.Company, p.Users, p.Links = company, users, links
	return nil
}

// stage assigns the requested relations in name order.
func stage(rec *relsave.Record, relations map[string]any) error {
	names := make([]string, 0, len(relations))
	for name := range relations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := relations[name]
		if raw == nil {
			if err := rec.Clear(name); err != nil {
				return err
			}
			continue
		}
		if err := rec.Set(name, values(raw)...); err != nil {
			return err
		}
	}
	return nil
}

// values converts one decoded relation value into relsave values.
func values(raw any) []any {
	items, ok := raw.([]any)
	if !ok {
		return []any{value(raw)}
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = value(item)
	}
	return out
}

func value(raw any) relsave.Value {
	switch v := raw.(type) {
	case nil:
		return relsave.Null()
	case map[string]any:
		return relsave.Attrs(v)
	default:
		return relsave.Ref(v)
	}
}
