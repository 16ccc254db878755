package feature

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/c360/playkit/errors"
)

// Combine merges descriptors into one composed descriptor.
//
// State is the shallow union of member states in argument order, later
// members winning on key collision. The request map is the strict union:
// two members declaring the same request name is a construction-time
// error, as is passing the same descriptor twice. Combining zero
// descriptors is legal and yields an empty no-op descriptor.
//
// Combining an already-combined descriptor flattens its members, so
// nesting does not change attach isolation or ordering.
func Combine[T any](features ...*Feature[T]) (*Feature[T], error) {
	var members []*Feature[T]
	seen := make(map[uuid.UUID]string)

	for _, f := range features {
		if f == nil {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Feature", "Combine", "nil descriptor")
		}
		for _, m := range f.Members() {
			if prev, dup := seen[m.id]; dup {
				msg := fmt.Errorf("%w: '%s'", errors.ErrDuplicateFeature, prev)
				return nil, errors.WrapInvalid(msg, "Feature", "Combine", "duplicate descriptor check")
			}
			seen[m.id] = m.name
			members = append(members, m)
		}
	}

	initial := make(State)
	requests := make(map[string]Request[T])
	owner := make(map[string]string) // request name -> feature that declared it
	names := make([]string, 0, len(members))

	for _, m := range members {
		names = append(names, m.name)
		initial.Merge(m.initial)
		for name, req := range m.requests {
			if prev, dup := owner[name]; dup {
				msg := fmt.Errorf("%w: '%s' declared by both '%s' and '%s'",
					errors.ErrDuplicateRequest, name, prev, m.name)
				return nil, errors.WrapInvalid(msg, "Feature", "Combine", "request union")
			}
			owner[name] = m.name
			requests[name] = req
		}
	}

	name := strings.Join(names, "+")
	if name == "" {
		name = "empty"
	}

	return &Feature[T]{
		id:       uuid.New(),
		name:     name,
		initial:  initial,
		requests: requests,
		members:  members,
	}, nil
}
