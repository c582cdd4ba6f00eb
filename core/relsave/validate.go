package relsave

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validator is implemented by models that check their own attributes.
// Returning an Errors value reports messages per attribute; any other
// error is reported as a message without attribute.
type Validator interface {
	Validate() error
}

// Errors maps attribute or relation names to validation messages.
// The empty name holds messages that belong to no attribute.
type Errors map[string][]string

// Add appends a message under name.
func (e Errors) Add(name, msg string) {
	e[name] = append(e[name], msg)
}

// Has reports whether name has at least one message.
func (e Errors) Has(name string) bool {
	return len(e[name]) > 0
}

// First returns the first message under name, or "".
func (e Errors) First(name string) string {
	if msgs := e[name]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Len returns the number of names with messages.
func (e Errors) Len() int {
	return len(e)
}

// Err wraps e in a ValidationError, or returns nil when it holds no messages.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return &ValidationError{Errors: e}
}

// Error joins all messages ordered by name.
func (e Errors) Error() string {
	names := e.names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		for _, msg := range e[name] {
			if name == "" {
				parts = append(parts, msg)
			} else {
				parts = append(parts, name+": "+msg)
			}
		}
	}
	return strings.Join(parts, "; ")
}

func (e Errors) names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// collect runs v.Validate and merges its messages into dst. When prefix is set
// every message lands under prefix instead of its attribute name, formatted
// as "<model>: <message>".
func collect(dst Errors, v any, prefix, model string) {
	val, ok := v.(Validator)
	if !ok {
		return
	}
	err := val.Validate()
	if err == nil {
		return
	}

	var fields Errors
	if !errors.As(err, &fields) {
		fields = Errors{"": {err.Error()}}
	}
	for _, name := range fields.names() {
		for _, msg := range fields[name] {
			if prefix == "" {
				dst.Add(name, msg)
				continue
			}
			dst.Add(prefix, fmt.Sprintf("%s: %s", model, msg))
		}
	}
}

// validate checks the owner and every entity the plan inserts, links or
// updates. Entities that are only unlinked are skipped.
func validate(owner any, plan *Plan) Errors {
	errs := Errors{}
	collect(errs, owner, "", "")
	for _, c := range plan.changes {
		d := c.relation
		for _, it := range c.add {
			collect(errs, it.entity.value(), d.Name, d.Related.Name)
		}
		for _, it := range c.keep {
			if it.modified() {
				collect(errs, it.entity.value(), d.Name, d.Related.Name)
			}
		}
	}
	return errs
}
