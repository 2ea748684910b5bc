package client

import (
	"context"
)

// guardedWrite wraps a mutation of a versioned Data Center resource. The
// server enforces optimistic concurrency: every update or delete must echo
// the resource's current version token or it is rejected with a conflict.
//
// The read happens immediately before the write, inside the same logical
// operation, and the version passes through verbatim. It is never cached
// across operations: the server is the sole source of truth for the next
// valid version. A rejected write surfaces as a conflict error and is not
// retried here; a conflict reflects a real concurrent edit, and silently
// redoing the sequence could overwrite it without the caller's knowledge.
func guardedWrite[T any](ctx context.Context, read func(context.Context) (int, error), write func(context.Context, int) (T, error)) (T, error) {
	var zero T

	version, err := read(ctx)
	if err != nil {
		return zero, err
	}

	return write(ctx, version)
}
