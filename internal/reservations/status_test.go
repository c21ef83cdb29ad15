package reservations_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/fsm"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
)

var allStatuses = []reservations.Status{
	reservations.StatusPending,
	reservations.StatusConfirmed,
	reservations.StatusSeated,
	reservations.StatusCompleted,
	reservations.StatusCancelled,
	reservations.StatusNoShow,
}

func TestReservationTransitionTable(t *testing.T) {
	assert.True(t, reservations.CanTransition(reservations.StatusPending, reservations.StatusSeated))
	assert.True(t, reservations.CanTransition(reservations.StatusSeated, reservations.StatusConfirmed))
	assert.False(t, reservations.CanTransition(reservations.StatusSeated, reservations.StatusCancelled))
	assert.False(t, reservations.CanTransition(reservations.StatusPending, reservations.StatusNoShow))

	for _, s := range []reservations.Status{reservations.StatusCompleted, reservations.StatusCancelled, reservations.StatusNoShow} {
		assert.True(t, s.IsTerminal(), s)
		assert.Empty(t, reservations.AllowedTransitions(s))
	}
	assert.False(t, reservations.StatusSeated.IsTerminal())
	assert.False(t, reservations.Status("bogus").Valid())
}

func TestReservationActionGuards(t *testing.T) {
	legal := map[string][]reservations.Status{
		reservations.ActionConfirm:  {reservations.StatusPending},
		reservations.ActionSeat:     {reservations.StatusPending, reservations.StatusConfirmed},
		reservations.ActionUnseat:   {reservations.StatusSeated},
		reservations.ActionComplete: {reservations.StatusSeated},
		reservations.ActionCancel:   {reservations.StatusPending, reservations.StatusConfirmed},
		reservations.ActionNoShow:   {reservations.StatusConfirmed},
	}
	m := reservations.Machine()
	for act, from := range legal {
		target, ok := m.Target(act)
		require.True(t, ok, act)
		for _, s := range allStatuses {
			t.Run(act+"/"+string(s), func(t *testing.T) {
				err := m.Assert(act, "r1", s)
				switch {
				case contains(from, s):
					assert.NoError(t, err)
					assert.True(t, m.Can(act, s))
				case s == target:
					assert.True(t, errors.Is(err, fsm.ErrAlreadyInState), "got %v", err)
				default:
					assert.True(t, errors.Is(err, fsm.ErrInvalidTransition), "got %v", err)
					assert.False(t, m.Can(act, s))
				}
			})
		}
	}
}

func TestConfirmIsNotUnseat(t *testing.T) {
	seated := reservations.Reservation{ID: "r1", Status: reservations.StatusSeated}
	assert.False(t, reservations.CanConfirm(seated))
	assert.True(t, reservations.CanUnseat(seated))

	err := reservations.AssertCanConfirm(seated)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fsm.ErrInvalidTransition))
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))
	ctx := apperr.ContextOf(err)
	assert.Equal(t, "seated", ctx["current_state"])
	assert.Equal(t, "confirmed", ctx["target_state"])
	assert.Equal(t, "r1", ctx["entity_id"])

	// raw table allows seated -> confirmed
	assert.NoError(t, reservations.AssertCanTransition(seated, reservations.StatusConfirmed))
}

func TestSeatedCannotBeCancelled(t *testing.T) {
	seated := reservations.Reservation{ID: "r1", Status: reservations.StatusSeated}
	assert.False(t, reservations.CanCancel(seated))
	assert.ErrorIs(t, reservations.AssertCanCancel(seated), fsm.ErrInvalidTransition)
}

func TestBlocksTable(t *testing.T) {
	for _, s := range allStatuses {
		want := s != reservations.StatusCancelled && s != reservations.StatusCompleted
		assert.Equal(t, want, s.BlocksTable(), s)
	}
}

func contains(list []reservations.Status, s reservations.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
