// Package models defines the gorm models of the project feature.
//
// Company, User, Project and Link cover every relation kind relsave handles:
// Project.Company is a has-one (the project row holds company_id),
// Company.Employees is a has-many over a nullable key, Project.Users is a
// many-to-many through project_user, and Project.Links is a many-to-many
// through project_link against Link's composite (language, name) key.
package models
