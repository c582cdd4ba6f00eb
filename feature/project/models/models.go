package models

import (
	"strings"

	"relsave/core/relsave"
)

// Company owns projects and employs users.
type Company struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Projects  []*Project `gorm:"foreignKey:CompanyID" json:"projects,omitempty"`
	Employees []*User    `gorm:"foreignKey:CompanyID" json:"employees,omitempty"`
}

// TableName overrides the table name.
func (Company) TableName() string { return "company" }

// Validate reports blank names.
func (c *Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return relsave.Errors{"name": {"Name cannot be blank."}}
	}
	return nil
}

// User is a person working on projects. CompanyID is nullable so users can
// be unlinked from their employer.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"size:255;not null;uniqueIndex" json:"username"`
	CompanyID *uint  `json:"company_id"`
}

// TableName overrides the table name.
func (User) TableName() string { return "user" }

// Validate reports blank usernames.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return relsave.Errors{"username": {"Username cannot be blank."}}
	}
	return nil
}

// Project belongs to one company, has many users and many links.
type Project struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	Name      string   `gorm:"size:255;not null" json:"name"`
	CompanyID uint     `gorm:"not null" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Users     []*User  `gorm:"many2many:project_user" json:"users,omitempty"`
	Links     []*Link  `gorm:"many2many:project_link;joinForeignKey:ProjectID;joinReferences:Language,Name" json:"links,omitempty"`
}

// TableName overrides the table name.
func (Project) TableName() string { return "project" }

// Validate reports blank names.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return relsave.Errors{"name": {"Name cannot be blank."}}
	}
	return nil
}

// Link is a localized project page keyed by (language, name).
type Link struct {
	Language string `gorm:"primaryKey;size:5" json:"language"`
	Name     string `gorm:"primaryKey;size:255" json:"name"`
	Link     string `gorm:"size:255;not null" json:"link"`
}

// TableName overrides the table name.
func (Link) TableName() string { return "link" }

// Validate reports blank URLs.
func (l *Link) Validate() error {
	if strings.TrimSpace(l.Link) == "" {
		return relsave.Errors{"link": {"Link cannot be blank."}}
	}
	return nil
}

// All lists the models in migration order.
func All() []any {
	return []any{&Company{}, &User{}, &Link{}, &Project{}}
}
