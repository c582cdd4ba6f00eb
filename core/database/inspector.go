package database

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo describes one table column in a dialect neutral form.
type ColumnInfo struct {
	// Field is the lower-cased column name.
	Field string
	// Type is the lower-cased declared type.
	Type string
	// Nullable reports whether the column accepts NULL.
	Nullable bool
	// PrimaryKey reports whether the column is part of the primary key.
	PrimaryKey bool
}

// GetTableColumns retrieves the column definitions for a given table.
// Unknown tables yield no columns and no error.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo

	if db.Dialector.Name() == "sqlite" {
		type sqliteColumn struct {
			Cid       int
			Name      string
			Type      string
			Notnull   int
			DfltValue *string
			Pk        int
		}
		var rows []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range rows {
			columns = append(columns, ColumnInfo{
				Field:      strings.ToLower(col.Name),
				Type:       strings.ToLower(col.Type),
				Nullable:   col.Notnull == 0 && col.Pk == 0,
				PrimaryKey: col.Pk > 0,
			})
		}
		return columns, nil
	}

	// MySQL SHOW COLUMNS keeps the exact declared type strings
	type mysqlColumn struct {
		Field string
		Type  string
		Null  string
		Key   string
	}
	var rows []mysqlColumn
	if err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for _, col := range rows {
		columns = append(columns, ColumnInfo{
			Field:      strings.ToLower(col.Field),
			Type:       strings.ToLower(col.Type),
			Nullable:   strings.EqualFold(col.Null, "YES"),
			PrimaryKey: col.Key == "PRI",
		})
	}
	return columns, nil
}

// MissingColumns returns the expected columns the table does not have, sorted.
// A missing table reports every expected column.
func MissingColumns(db *gorm.DB, tableName string, expected []string) ([]string, error) {
	columns, err := GetTableColumns(db, tableName)
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		have[col.Field] = struct{}{}
	}

	var missing []string
	for _, name := range expected {
		if _, ok := have[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing, nil
}
