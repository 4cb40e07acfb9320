package repository

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeSeatNumbers(t *testing.T) {
	free := FreeSeatNumbers(6, []uint32{2, 4, 5})
	assert.Equal(t, []uint32{1, 3, 6}, free)
}

func TestFreeSeatNumbersEmptyBoat(t *testing.T) {
	free := FreeSeatNumbers(3, nil)
	assert.Equal(t, []uint32{1, 2, 3}, free)
}

func TestFreeSeatNumbersFullBoat(t *testing.T) {
	free := FreeSeatNumbers(3, []uint32{1, 2, 3})
	assert.Empty(t, free)
}

func TestFreeSeatNumbersIgnoresOutOfRangeHolds(t *testing.T) {
	// A held seat above seats_total (shrunk boat) must not corrupt the
	// complement of the valid range.
	free := FreeSeatNumbers(4, []uint32{2, 9})
	assert.Equal(t, []uint32{1, 3, 4}, free)
}

func TestWrapRetryableDeadlock(t *testing.T) {
	err := WrapRetryable(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryable)
}

func TestWrapRetryableLockWaitTimeout(t *testing.T) {
	err := WrapRetryable(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
	assert.ErrorIs(t, err, ErrRetryable)
}

func TestWrapRetryablePassthrough(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, plain, WrapRetryable(plain))

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	got := WrapRetryable(dup)
	assert.False(t, errors.Is(got, ErrRetryable))
	assert.Nil(t, WrapRetryable(nil))
}

func TestGroupUpdateEmpty(t *testing.T) {
	assert.True(t, GroupUpdate{}.Empty())

	yes := true
	assert.False(t, GroupUpdate{AcceptedTerms: &yes}.Empty())
	assert.False(t, GroupUpdate{Cancelled: true}.Empty())
}
