package relsave

import (
	"context"
	"fmt"
)

// One reads a single-entity relation as *T. It returns nil when nothing is linked.
func One[T any](ctx context.Context, r *Record, name string) (*T, error) {
	values, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	v, ok := values[0].(*T)
	if !ok {
		return nil, fmt.Errorf("%w: relation %q holds %T", ErrInvalidValue, name, values[0])
	}
	return v, nil
}

// Many reads a relation as []*T in its linked or assigned order.
func Many[T any](ctx context.Context, r *Record, name string) ([]*T, error) {
	values, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(values))
	for _, value := range values {
		v, ok := value.(*T)
		if !ok {
			return nil, fmt.Errorf("%w: relation %q holds %T", ErrInvalidValue, name, value)
		}
		out = append(out, v)
	}
	return out, nil
}
