package relsave

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type numberedErr struct{ n uint16 }

func (e numberedErr) Error() string  { return fmt.Sprintf("Error %d", e.n) }
func (e numberedErr) Number() uint16 { return e.n }

type stateErr struct{ state string }

func (e stateErr) Error() string    { return "driver failure" }
func (e stateErr) SQLState() string { return e.state }

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("disk full")
	storage := storageErr("insert", "user", cause)

	assert.True(t, IsStorage(storage))
	assert.ErrorIs(t, storage, cause)
	assert.Equal(t, "relsave: insert user: disk full", storage.Error())
	assert.Nil(t, storageErr("insert", "user", nil))

	wrapped := fmt.Errorf("save project: %w", &RequiredRelationError{Relation: "company", Column: "company_id"})
	assert.True(t, IsRequiredRelation(wrapped))
	assert.False(t, IsStorage(wrapped))

	assert.True(t, IsUndeclaredRelation(&UndeclaredRelationError{Model: "Project", Relation: "owner"}))
	assert.True(t, IsRelatedNotFound(&RelatedEntityNotFoundError{Relation: "company", Model: "Company", Key: Key{99}}))
	assert.True(t, IsValidation(&ValidationError{Errors: Errors{"company": {"Company: Name cannot be blank."}}}))
	assert.False(t, IsValidation(nil))
}

func TestIsConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sqlite unique", errors.New("UNIQUE constraint failed: user.username"), true},
		{"mysql duplicate", numberedErr{1062}, true},
		{"mysql fk", fmt.Errorf("wrapped: %w", numberedErr{1452}), true},
		{"mysql other", numberedErr{1205}, false},
		{"sqlstate", stateErr{"23505"}, true},
		{"sqlstate other", stateErr{"40001"}, false},
		{"plain", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConstraintError(tt.err))
		})
	}
}

func TestErrors(t *testing.T) {
	errs := Errors{}
	assert.NoError(t, errs.Err())
	assert.Equal(t, "", errs.First("company"))

	errs.Add("users", "User: Username cannot be blank.")
	errs.Add("company", "Company: Name cannot be blank.")
	errs.Add("", "project is locked")

	assert.Equal(t, 3, errs.Len())
	assert.True(t, errs.Has("company"))
	assert.False(t, errs.Has("links"))
	err := errs.Err()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t,
		"project is locked; company: Company: Name cannot be blank.; users: User: Username cannot be blank.",
		errs.Error())
	assert.Equal(t, "relsave: validation failed: "+errs.Error(), err.Error())

	var fields Errors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "Company: Name cannot be blank.", fields.First("company"))
}

func TestCollect_ValidatorReturningErr(t *testing.T) {
	dst := Errors{}
	collect(dst, &plainValidator{err: Errors{"name": {"Name cannot be blank."}}.Err()}, "company", "Company")
	assert.Equal(t, []string{"Company: Name cannot be blank."}, dst["company"])
}

type plainValidator struct{ err error }

func (p *plainValidator) Validate() error { return p.err }

func TestCollect(t *testing.T) {
	dst := Errors{}
	collect(dst, &plainValidator{err: errors.New("locked")}, "", "")
	assert.Equal(t, "locked", dst.First(""))

	collect(dst, &plainValidator{err: Errors{"b": {"B is bad."}, "a": {"A is bad."}}}, "company", "Company")
	assert.Equal(t, []string{"Company: A is bad.", "Company: B is bad."}, dst["company"])

	collect(dst, struct{}{}, "users", "User")
	assert.False(t, dst.Has("users"))
}

func TestValueOf(t *testing.T) {
	assert.True(t, ValueOf(nil).IsNull())
	assert.True(t, ValueOf((*User)(nil)).IsNull())
	assert.Equal(t, valueInstance, ValueOf(&User{}).kind)
	assert.Equal(t, valueAttrs, ValueOf(map[string]any{"id": 1}).kind)
	assert.Equal(t, valueRef, ValueOf(3).kind)
	assert.Equal(t, valueRef, ValueOf("fr").kind)
	assert.Equal(t, "ref(3)", ValueOf(Ref(3)).String())
	assert.Equal(t, "null", Null().String())
}

func TestExpand(t *testing.T) {
	assert.Equal(t, []any{1, 2}, expand([]any{1, 2}))
	assert.Len(t, expand([]*User{{ID: 1}, {ID: 2}}), 2)
	assert.Equal(t, []any{3}, expand(3))
	assert.Equal(t, []any{Key{"fr", "x"}}, expand(Key{"fr", "x"}))
}
