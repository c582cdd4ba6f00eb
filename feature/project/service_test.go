package project_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"relsave/core/database"
	"relsave/core/metrics"
	"relsave/core/relsave"
	"relsave/feature/project"
	"relsave/feature/project/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setupDB creates a migrated and seeded in-memory database.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	ctx := context.Background()
	require.NoError(t, project.Migrate(ctx, db, zap.NewNop()))
	require.NoError(t, project.Seed(ctx, db, zap.NewNop()))
	return db
}

func userIDs(users []*models.User) []uint {
	out := make([]uint, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}

func name(s string) *string { return &s }

func TestSchema_SeedIsIdempotentAndVerified(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, project.Seed(context.Background(), db, zap.NewNop()))
	require.NoError(t, project.Verify(db))

	var n int64
	require.NoError(t, db.Table("project_user").Count(&n).Error)
	assert.Equal(t, int64(3), n)
}

func TestService_Get(t *testing.T) {
	svc := project.NewService(setupDB(t), nil, nil, nil)

	p, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Mac OS X", p.Name)
	require.NotNil(t, p.Company)
	assert.Equal(t, "Apple", p.Company.Name)
	assert.Equal(t, []uint{1, 4}, userIDs(p.Users))
	assert.Len(t, p.Links, 2)

	_, err = svc.Get(context.Background(), 99)
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestService_Update(t *testing.T) {
	db := setupDB(t)
	recorder := metrics.New("test")
	var reports []*relsave.Report
	journal := relsave.JournalFunc(func(ctx context.Context, r *relsave.Report) error {
		reports = append(reports, r)
		return nil
	})
	svc := project.NewService(db, journal, recorder, nil)

	res, err := svc.Update(context.Background(), 1, project.Input{
		Name: name("macOS"),
		Relations: map[string]any{
			"company": int64(3),
			"users":   []any{int64(1), int64(3)},
		},
	}, false)
	require.NoError(t, err)
	require.True(t, res.Saved)

	assert.Equal(t, "macOS", res.Project.Name)
	assert.Equal(t, "Google", res.Project.Company.Name)
	assert.Equal(t, []uint{1, 3}, userIDs(res.Project.Users))
	require.NotNil(t, res.Plan)
	assert.Equal(t, 1, res.Plan.Summary.Unlinks)

	var stored models.Project
	require.NoError(t, db.Take(&stored, 1).Error)
	assert.Equal(t, uint(3), stored.CompanyID)
	assert.Equal(t, "macOS", stored.Name)

	require.Len(t, reports, 1)
	assert.Equal(t, "(1)", reports[0].OwnerKey)
	assert.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(`
# HELP test_save_total Total record saves by outcome.
# TYPE test_save_total counter
test_save_total{model="Project",outcome="committed"} 1
`), "test_save_total"))
}

func TestService_CreateWithNewRelations(t *testing.T) {
	db := setupDB(t)
	svc := project.NewService(db, nil, nil, nil)

	res, err := svc.Create(context.Background(), project.Input{
		Name: name("Yosemite"),
		Relations: map[string]any{
			"company": map[string]any{"name": "NeXT"},
			"users":   []any{int64(1), map[string]any{"username": "Craig Federighi"}},
			"links": []any{
				map[string]any{"language": "fr", "name": "mac_os_x"},
				map[string]any{"language": "de", "name": "yosemite", "link": "http://www.apple.com/de/osx/"},
			},
		},
	}, false)
	require.NoError(t, err)
	require.True(t, res.Saved)

	p := res.Project
	assert.NotZero(t, p.ID)
	assert.Equal(t, "NeXT", p.Company.Name)
	assert.Equal(t, p.Company.ID, p.CompanyID)
	require.Len(t, p.Users, 2)
	assert.NotZero(t, p.Users[1].ID)
	require.Len(t, p.Links, 2)
	assert.Equal(t, "http://www.apple.com/fr/osx/", p.Links[0].Link)

	var links int64
	require.NoError(t, db.Table("project_link").Where("project_id = ?", p.ID).Count(&links).Error)
	assert.Equal(t, int64(2), links)
}

func TestService_ValidationFailure(t *testing.T) {
	db := setupDB(t)
	recorder := metrics.New("test")
	svc := project.NewService(db, nil, recorder, nil)

	res, err := svc.Update(context.Background(), 1, project.Input{
		Relations: map[string]any{"company": map[string]any{"name": ""}},
	}, false)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.Equal(t, "Company: Name cannot be blank.", res.Errors.First("company"))

	var companies int64
	require.NoError(t, db.Table("company").Count(&companies).Error)
	assert.Equal(t, int64(3), companies)
	assert.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(`
# HELP test_save_total Total record saves by outcome.
# TYPE test_save_total counter
test_save_total{model="Project",outcome="invalid"} 1
`), "test_save_total"))
}

func TestService_DryRunWritesNothing(t *testing.T) {
	db := setupDB(t)
	svc := project.NewService(db, nil, nil, nil)

	res, err := svc.Update(context.Background(), 1, project.Input{
		Relations: map[string]any{"users": []any{}},
	}, true)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	require.NotNil(t, res.Plan)
	assert.Equal(t, 2, res.Plan.Summary.Unlinks)

	var n int64
	require.NoError(t, db.Table("project_user").Where("project_id = ?", 1).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestService_Errors(t *testing.T) {
	db := setupDB(t)
	svc := project.NewService(db, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, project.Input{Relations: map[string]any{"owner": int64(1)}}, false)
	assert.True(t, relsave.IsUndeclaredRelation(err))

	_, err = svc.Update(ctx, 1, project.Input{Relations: map[string]any{"company": int64(99)}}, false)
	assert.True(t, relsave.IsRelatedNotFound(err))

	_, err = svc.Update(ctx, 1, project.Input{Relations: map[string]any{"company": nil}}, false)
	assert.True(t, relsave.IsRequiredRelation(err))

	_, err = svc.Update(ctx, 1, project.Input{Relations: map[string]any{"company": []any{int64(1), int64(2)}}}, false)
	assert.True(t, errors.Is(err, relsave.ErrInvalidValue))

	_, err = svc.Update(ctx, 2, project.Input{Relations: map[string]any{
		"users": []any{map[string]any{"username": "Steve Jobs"}},
	}}, false)
	require.Error(t, err)
	assert.True(t, relsave.IsConstraintError(err))

	_, err = svc.Update(ctx, 42, project.Input{}, false)
	assert.ErrorIs(t, err, project.ErrNotFound)
}
