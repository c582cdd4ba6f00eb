package relsave

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DescribesProjectRelations(t *testing.T) {
	db := setupTestDB(t)
	reg := NewRegistry()

	m, err := reg.Model(db, &Project{})
	require.NoError(t, err)
	require.Len(t, m.Relations, 3)
	assert.Equal(t, []string{"company", "users", "links"},
		[]string{m.Relations[0].Name, m.Relations[1].Name, m.Relations[2].Name})

	company, err := m.Describe("company")
	require.NoError(t, err)
	assert.Equal(t, HasOne, company.Kind)
	assert.Equal(t, CardinalityOne, company.Cardinality)
	require.Len(t, company.Keys, 1)
	assert.Equal(t, "company_id", company.Keys[0].Local.DBName)
	assert.Equal(t, "id", company.Keys[0].Remote.DBName)
	nullable, col := company.Nullable()
	assert.False(t, nullable)
	assert.Equal(t, "company_id", col)

	links, err := m.Describe("Links")
	require.NoError(t, err)
	assert.Equal(t, ManyToMany, links.Kind)
	assert.True(t, links.IsMany())
	require.NotNil(t, links.Link)
	assert.Equal(t, "project_link", links.Link.Name)
	require.Len(t, links.Link.OwnerColumns, 1)
	assert.Equal(t, "project_id", links.Link.OwnerColumns[0].Column)
	require.Len(t, links.Link.RelatedColumns, 2)
	assert.Equal(t, "language", links.Link.RelatedColumns[0].Column)
	assert.Equal(t, "name", links.Link.RelatedColumns[1].Column)

	users, err := m.Describe("users")
	require.NoError(t, err)
	assert.Equal(t, "project_user", users.Link.Name)
	assert.Equal(t, "user_id", users.Link.RelatedColumns[0].Column)

	_, err = m.Describe("owner")
	assert.True(t, IsUndeclaredRelation(err))
}

func TestRegistry_DescribesHasMany(t *testing.T) {
	db := setupTestDB(t)

	m, err := NewRegistry().Model(db, &Company{})
	require.NoError(t, err)

	employees, err := m.Describe("employees")
	require.NoError(t, err)
	assert.Equal(t, HasMany, employees.Kind)
	assert.Equal(t, "id", employees.Keys[0].Local.DBName)
	assert.Equal(t, "company_id", employees.Keys[0].Remote.DBName)
	nullable, _ := employees.Nullable()
	assert.True(t, nullable)

	projects, err := m.Describe("projects")
	require.NoError(t, err)
	nullable, col := projects.Nullable()
	assert.False(t, nullable)
	assert.Equal(t, "company_id", col)
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	db := setupTestDB(t)
	reg := NewRegistry()

	var wg sync.WaitGroup
	models := make([]*Model, 16)
	for i := range models {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := reg.Model(db, &Project{})
			assert.NoError(t, err)
			models[i] = m
		}(i)
	}
	wg.Wait()

	for _, m := range models[1:] {
		assert.Same(t, models[0], m)
	}
}

func TestRegistry_RejectsNonStruct(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewRegistry().Model(db, 42)
	assert.ErrorIs(t, err, ErrNotAModel)

	m, err := NewRegistry().Model(db, &[]Project{})
	require.NoError(t, err, "slices resolve to their element type")
	assert.Equal(t, "Project", m.Schema.Name)
}
