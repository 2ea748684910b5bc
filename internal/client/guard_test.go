package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

func TestGuardedWrite_PassesFreshVersionToWrite(t *testing.T) {
	version := 7
	reads := 0

	result, err := guardedWrite(context.Background(),
		func(context.Context) (int, error) {
			reads++
			return version, nil
		},
		func(_ context.Context, v int) (string, error) {
			assert.Equal(t, 7, v)
			return "written", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "written", result)
	assert.Equal(t, 1, reads)
}

func TestGuardedWrite_ReadErrorShortCircuits(t *testing.T) {
	readErr := errors.New("read failed")
	writes := 0

	_, err := guardedWrite(context.Background(),
		func(context.Context) (int, error) { return 0, readErr },
		func(_ context.Context, _ int) (string, error) {
			writes++
			return "", nil
		})

	require.ErrorIs(t, err, readErr)
	assert.Equal(t, 0, writes)
}

func TestGuardedWrite_ConflictIsNotRetried(t *testing.T) {
	// A concurrent edit between read and write produces a conflict. The
	// guard surfaces it; it never re-reads and re-writes on its own.
	reads := 0
	writes := 0
	conflict := bitbucket.NewError(bitbucket.ErrorKindConflict, 409, "pull-request", "version 7 is out of date")

	_, err := guardedWrite(context.Background(),
		func(context.Context) (int, error) {
			reads++
			return 7, nil
		},
		func(_ context.Context, _ int) (struct{}, error) {
			writes++
			return struct{}{}, conflict
		})

	require.Error(t, err)
	assert.True(t, bitbucket.IsConflict(err))
	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, writes)
}
