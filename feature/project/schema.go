package project

import (
	"context"
	"fmt"
	"strings"

	"relsave/core/database"
	"relsave/feature/project/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// expectedColumns lists the columns every table must carry after migration.
var expectedColumns = map[string][]string{
	"company":      {"id", "name"},
	"user":         {"id", "username", "company_id"},
	"project":      {"id", "name", "company_id"},
	"link":         {"language", "name", "link"},
	"project_user": {"project_id", "user_id"},
	"project_link": {"project_id", "language", "name"},
}

// Migrate creates or updates the tables of the feature, join tables included.
func Migrate(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate project schema: %w", err)
	}
	logger.Info("Migrated project schema", zap.Int("models", len(models.All())))
	return nil
}

// Verify reports tables missing expected columns.
func Verify(db *gorm.DB) error {
	var problems []string
	for _, table := range []string{"company", "user", "project", "link", "project_user", "project_link"} {
		missing, err := database.MissingColumns(db, table, expectedColumns[table])
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("%s: missing %s", table, strings.Join(missing, ", ")))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("schema verification failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Seed inserts the sample companies, users, projects and links.
// Rows that already exist are left alone and join tables are only filled
// when empty, so seeding twice is harmless.
func Seed(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
	companies := []models.Company{{ID: 1, Name: "Apple"}, {ID: 2, Name: "Microsoft"}, {ID: 3, Name: "Google"}}
	users := []models.User{
		{ID: 1, Username: "Steve Jobs"},
		{ID: 2, Username: "Bill Gates"},
		{ID: 3, Username: "Tim Cook"},
		{ID: 4, Username: "Jonathan Ive"},
	}
	projects := []models.Project{{ID: 1, Name: "Mac OS X", CompanyID: 1}, {ID: 2, Name: "Windows 10", CompanyID: 2}}
	links := []models.Link{
		{Language: "fr", Name: "mac_os_x", Link: "http://www.apple.com/fr/osx/"},
		{Language: "en", Name: "mac_os_x", Link: "http://www.apple.com/osx/"},
	}
	projectUsers := []map[string]any{
		{"project_id": 1, "user_id": 1},
		{"project_id": 1, "user_id": 4},
		{"project_id": 2, "user_id": 2},
	}
	projectLinks := []map[string]any{
		{"project_id": 1, "language": "fr", "name": "mac_os_x"},
		{"project_id": 1, "language": "en", "name": "mac_os_x"},
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Session(&gorm.Session{})
		steps := []struct {
			table string
			rows  any
		}{
			{"company", &companies},
			{"user", &users},
			{"project", &projects},
			{"link", &links},
		}
		for _, s := range steps {
			if err := rows.Create(s.rows).Error; err != nil {
				return fmt.Errorf("failed to seed %s: %w", s.table, err)
			}
		}
		joins := []struct {
			table string
			rows  []map[string]any
		}{
			{"project_user", projectUsers},
			{"project_link", projectLinks},
		}
		for _, j := range joins {
			var n int64
			if err := tx.Table(j.table).Count(&n).Error; err != nil {
				return fmt.Errorf("failed to count %s: %w", j.table, err)
			}
			if n > 0 {
				continue
			}
			if err := tx.Table(j.table).Create(j.rows).Error; err != nil {
				return fmt.Errorf("failed to seed %s: %w", j.table, err)
			}
		}
		logger.Info("Seeded project fixtures",
			zap.Int("companies", len(companies)),
			zap.Int("users", len(users)),
			zap.Int("projects", len(projects)),
			zap.Int("links", len(links)))
		return nil
	})
}
