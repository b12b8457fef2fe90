package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("database is locked")

func isBusy(err error) bool { return errors.Is(err, errBusy) }

func TestRetryingStopsOnPermanentError(t *testing.T) {
	boom := errors.New("constraint failed")
	calls := 0
	err := Retrying(5, isBusy)(context.Background(), func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryingRecoversFromTransientError(t *testing.T) {
	calls := 0
	err := Retrying(3, isBusy)(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errBusy
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryingGivesUpAfterMaxTries(t *testing.T) {
	calls := 0
	err := Retrying(2, isBusy)(context.Background(), func() error {
		calls++
		return errBusy
	})
	require.ErrorIs(t, err, errBusy)
	assert.Equal(t, 2, calls)
}

func TestRunOnce(t *testing.T) {
	calls := 0
	require.ErrorIs(t, runOnce(context.Background(), func() error { calls++; return errBusy }), errBusy)
	assert.Equal(t, 1, calls)
}
