package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec(`CREATE TABLE link (
		language VARCHAR(5) NOT NULL,
		name VARCHAR(255) NOT NULL,
		link TEXT,
		PRIMARY KEY (language, name)
	)`).Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "link")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	byName := make(map[string]ColumnInfo)
	for _, col := range columns {
		byName[col.Field] = col
	}

	assert.Equal(t, "varchar(5)", byName["language"].Type)
	assert.True(t, byName["language"].PrimaryKey)
	assert.True(t, byName["name"].PrimaryKey)
	assert.False(t, byName["name"].Nullable)
	assert.Equal(t, "text", byName["link"].Type)
	assert.True(t, byName["link"].Nullable)

	// PRAGMA table_info returns no rows for unknown tables
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestMissingColumns(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE project_user (project_id INTEGER NOT NULL, user_id INTEGER NOT NULL)").Error)

	missing, err := MissingColumns(db, "project_user", []string{"user_id", "project_id"})
	require.NoError(t, err)
	assert.Empty(t, missing)

	missing, err = MissingColumns(db, "project_link", []string{"project_id", "name", "language"})
	require.NoError(t, err)
	assert.Equal(t, []string{"language", "name", "project_id"}, missing)
}
