package relsave

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	// ErrUndeclaredRelation is returned when a relation name is not declared by the model.
	ErrUndeclaredRelation = errors.New("relsave: undeclared relation")

	// ErrRelatedNotFound is returned when a raw identifier does not resolve to a row.
	ErrRelatedNotFound = errors.New("relsave: related entity not found")

	// ErrRequiredRelation is returned when clearing a relation whose key column is not nullable.
	ErrRequiredRelation = errors.New("relsave: relation is required")

	// ErrStorage is returned when an insert, update, delete or link statement fails.
	ErrStorage = errors.New("relsave: storage failure")

	// ErrValidation is returned when the owner or a staged related entity is invalid.
	ErrValidation = errors.New("relsave: validation failed")

	// ErrNotAModel is returned when the owner is not a pointer to a gorm model struct.
	ErrNotAModel = errors.New("relsave: owner is not a model")

	// ErrInvalidValue is returned when an assignment does not fit the relation.
	ErrInvalidValue = errors.New("relsave: invalid relation value")
)

// UndeclaredRelationError reports access to a relation the model does not declare.
type UndeclaredRelationError struct {
	Model    string
	Relation string
}

// Error returns the error string.
func (e *UndeclaredRelationError) Error() string {
	return fmt.Sprintf("relsave: %s has no relation %q", e.Model, e.Relation)
}

// Is reports whether the target error matches ErrUndeclaredRelation.
func (e *UndeclaredRelationError) Is(err error) bool {
	return err == ErrUndeclaredRelation
}

// IsUndeclaredRelation returns true if the error is an UndeclaredRelationError.
func IsUndeclaredRelation(err error) bool {
	return err != nil && errors.Is(err, ErrUndeclaredRelation)
}

// RelatedEntityNotFoundError reports an identifier assignment that matched no row.
type RelatedEntityNotFoundError struct {
	Relation string
	Model    string
	Key      Key
}

// Error returns the error string.
func (e *RelatedEntityNotFoundError) Error() string {
	return fmt.Sprintf("relsave: %s %s not found for relation %q", e.Model, e.Key, e.Relation)
}

// Is reports whether the target error matches ErrRelatedNotFound.
func (e *RelatedEntityNotFoundError) Is(err error) bool {
	return err == ErrRelatedNotFound
}

// IsRelatedNotFound returns true if the error is a RelatedEntityNotFoundError.
func IsRelatedNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrRelatedNotFound)
}

// RequiredRelationError reports an attempt to null a non-nullable key column.
type RequiredRelationError struct {
	Relation string
	Column   string
}

// Error returns the error string.
func (e *RequiredRelationError) Error() string {
	return fmt.Sprintf("relsave: relation %q cannot be cleared, column %q is not nullable", e.Relation, e.Column)
}

// Is reports whether the target error matches ErrRequiredRelation.
func (e *RequiredRelationError) Is(err error) bool {
	return err == ErrRequiredRelation
}

// IsRequiredRelation returns true if the error is a RequiredRelationError.
func IsRequiredRelation(err error) bool {
	return err != nil && errors.Is(err, ErrRequiredRelation)
}

// StorageError wraps a failed statement with the operation and table it targeted.
type StorageError struct {
	Op    string // insert, update, save, link, unlink, load
	Table string
	Err   error
}

// Error returns the error string.
func (e *StorageError) Error() string {
	return fmt.Sprintf("relsave: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ErrStorage.
func (e *StorageError) Is(err error) bool {
	return err == ErrStorage
}

// IsStorage returns true if the error is a StorageError.
func IsStorage(err error) bool {
	return err != nil && errors.Is(err, ErrStorage)
}

func storageErr(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Table: table, Err: err}
}

// ValidationError carries the messages collected while validating a save.
type ValidationError struct {
	Errors Errors
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return "relsave: validation failed: " + e.Errors.Error()
}

// Is reports whether the target error matches ErrValidation.
func (e *ValidationError) Is(err error) bool {
	return err == ErrValidation
}

// Unwrap returns the collected messages.
func (e *ValidationError) Unwrap() error {
	return e.Errors
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	return err != nil && errors.Is(err, ErrValidation)
}

// errorNumberer is implemented by driver errors exposing a numeric code.
type errorNumberer interface {
	Number() uint16
}

// sqlStateError is implemented by pgx and some MySQL drivers.
type sqlStateError interface {
	SQLState() string
}

// IsConstraintError reports whether the error came from a unique or foreign-key violation.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var st sqlStateError
	if errors.As(err, &st) && strings.HasPrefix(st.SQLState(), "23") {
		return true
	}
	var num errorNumberer
	if errors.As(err, &num) {
		switch num.Number() {
		case 1062, 1451, 1452:
			return true
		}
	}
	msg := err.Error()
	for _, s := range []string{
		"UNIQUE constraint failed",
		"FOREIGN KEY constraint failed",
		"NOT NULL constraint failed",
		"Error 1062",
		"violates unique constraint",
		"violates foreign key constraint",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
