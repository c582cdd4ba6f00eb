package relsave

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Company struct {
	ID        uint       `gorm:"primaryKey"`
	Name      string     `gorm:"not null"`
	Projects  []*Project `gorm:"foreignKey:CompanyID"`
	Employees []*User    `gorm:"foreignKey:CompanyID"`
}

func (Company) TableName() string { return "company" }

func (c *Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Errors{"name": {"Name cannot be blank."}}
	}
	return nil
}

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"not null"`
	CompanyID *uint
}

func (User) TableName() string { return "user" }

func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return Errors{"username": {"Username cannot be blank."}}
	}
	return nil
}

type Project struct {
	ID        uint     `gorm:"primaryKey"`
	Name      string   `gorm:"not null"`
	CompanyID uint     `gorm:"not null"`
	Company   *Company `gorm:"foreignKey:CompanyID"`
	Users     []*User  `gorm:"many2many:project_user"`
	Links     []*Link  `gorm:"many2many:project_link;joinForeignKey:ProjectID;joinReferences:Language,Name"`
}

func (Project) TableName() string { return "project" }

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Errors{"name": {"Name cannot be blank."}}
	}
	return nil
}

type Link struct {
	Language string `gorm:"primaryKey"`
	Name     string `gorm:"primaryKey"`
	Link     string `gorm:"not null"`
}

func (Link) TableName() string { return "link" }

func (l *Link) Validate() error {
	if strings.TrimSpace(l.Link) == "" {
		return Errors{"link": {"Link cannot be blank."}}
	}
	return nil
}

var fixtureSchema = []string{
	`CREATE TABLE company (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE "user" (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username VARCHAR(255) NOT NULL UNIQUE,
		company_id INTEGER NULL
	)`,
	`CREATE TABLE project (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(255) NOT NULL,
		company_id INTEGER NOT NULL,
		UNIQUE (company_id, name)
	)`,
	`CREATE TABLE link (
		language VARCHAR(5) NOT NULL,
		name VARCHAR(255) NOT NULL,
		link VARCHAR(255) NOT NULL,
		PRIMARY KEY (language, name)
	)`,
	`CREATE TABLE project_link (
		language VARCHAR(5) NOT NULL,
		name VARCHAR(255) NOT NULL,
		project_id INTEGER NOT NULL,
		PRIMARY KEY (language, name, project_id)
	)`,
	`CREATE TABLE project_user (
		project_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		PRIMARY KEY (project_id, user_id)
	)`,
}

var fixtureRows = []string{
	`INSERT INTO company (id, name) VALUES (1, 'Apple'), (2, 'Microsoft'), (3, 'Google')`,
	`INSERT INTO "user" (id, username) VALUES (1, 'Steve Jobs'), (2, 'Bill Gates'), (3, 'Tim Cook'), (4, 'Jonathan Ive')`,
	`INSERT INTO project (id, name, company_id) VALUES (1, 'Mac OS X', 1), (2, 'Windows 10', 2)`,
	`INSERT INTO link (language, name, link) VALUES
		('fr', 'mac_os_x', 'http://www.apple.com/fr/osx/'),
		('en', 'mac_os_x', 'http://www.apple.com/osx/')`,
	`INSERT INTO project_link (language, name, project_id) VALUES ('fr', 'mac_os_x', 1), ('en', 'mac_os_x', 1)`,
	`INSERT INTO project_user (project_id, user_id) VALUES (1, 1), (1, 4), (2, 2)`,
}

// setupTestDB creates a seeded in-memory SQLite DB private to the test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range append(append([]string{}, fixtureSchema...), fixtureRows...) {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to prepare fixtures: %v", err)
		}
	}
	return db
}

// loadProject reads a project row without relations.
func loadProject(t *testing.T, db *gorm.DB, id uint) *Project {
	t.Helper()
	var p Project
	if err := db.First(&p, id).Error; err != nil {
		t.Fatalf("failed to load project %d: %v", id, err)
	}
	return &p
}

// linkedUserIDs lists the user ids linked to a project, ordered.
func linkedUserIDs(t *testing.T, db *gorm.DB, projectID uint) []uint {
	t.Helper()
	var ids []uint
	if err := db.Table("project_user").Where("project_id = ?", projectID).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		t.Fatalf("failed to read project_user: %v", err)
	}
	return ids
}

func count(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	if err := db.Table(table).Count(&n).Error; err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
