package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	t.Run("classifies constructed errors", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, KindInvalidInput, KindOf(InvalidInputf("amount must be positive")))
		require.Equal(t, KindInvalidState, KindOf(InvalidStatef("already resolved")))
		require.Equal(t, KindNotFound, KindOf(NotFoundf("no user %q", "alice")))
		require.Equal(t, KindForbidden, KindOf(Forbiddenf("role %q cannot resolve", "employee")))
		require.Equal(t, KindStorage, KindOf(Storage("query failed", errors.New("conn refused"))))
	})

	t.Run("survives wrapping", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("submit: %w", InvalidInputf("description is required"))
		require.Equal(t, KindInvalidInput, KindOf(err))
		require.True(t, IsKind(err, KindInvalidInput))
	})

	t.Run("unclassified errors are unknown", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
		require.Equal(t, KindUnknown, KindOf(nil))
	})
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	t.Run("includes kind and message", func(t *testing.T) {
		t.Parallel()
		err := NotFoundf("no reimbursement with id %d", 42)
		require.Equal(t, "not_found: no reimbursement with id 42", err.Error())
	})

	t.Run("includes wrapped cause", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("connection reset")
		err := Storage("insert failed", cause)
		require.Contains(t, err.Error(), "storage: insert failed")
		require.Contains(t, err.Error(), "connection reset")
		require.ErrorIs(t, err, cause)
	})
}
