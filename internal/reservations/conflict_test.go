package reservations_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
	"github.com/ariefcatur/go-restaurant-booking/internal/timeslot"
)

func booking(id, table, date, from, to string, status reservations.Status, linked ...string) reservations.Reservation {
	return reservations.Reservation{
		ID:             id,
		RestaurantID:   "rest-1",
		Status:         status,
		TableID:        table,
		LinkedTableIDs: linked,
		Date:           date,
		TimeFrom:       from,
		TimeTo:         to,
	}
}

func mustSlot(t *testing.T, date, from, to string) timeslot.TimeSlot {
	t.Helper()
	s, err := timeslot.FromDate(date, from, to, "UTC")
	require.NoError(t, err)
	return s
}

func newDetector(existing ...reservations.Reservation) *reservations.ConflictDetector {
	return reservations.NewConflictDetector(fakeReader(existing), reservations.StaticTimezone("UTC"),
		clock.Fixed(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestValidateNoConflictBookingScenario(t *testing.T) {
	ctx := context.Background()
	d := newDetector(booking("A", "5", "2026-02-05", "19:00", "21:00", reservations.StatusConfirmed))

	res, err := d.ValidateNoConflict(ctx, []string{"5"}, mustSlot(t, "2026-02-05", "20:00", "22:00"), reservations.CheckOptions{})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "A", res.Conflicts[0].ReservationID)
	assert.Equal(t, []string{"5"}, res.Conflicts[0].TableIDs)
	assert.Contains(t, res.Message, "5")

	cerr := res.Err()
	require.Error(t, cerr)
	assert.True(t, errors.Is(cerr, reservations.ErrConflict))
	assert.Equal(t, apperr.CodeReservationConflict, apperr.CodeOf(cerr))
	ctxMap := apperr.ContextOf(cerr)
	assert.Equal(t, []string{"5"}, ctxMap["table_ids"])
	assert.Equal(t, []string{"A"}, ctxMap["conflicting_reservations"])
	assert.Equal(t, "20:00", ctxMap["time_from"])

	res, err = d.ValidateNoConflict(ctx, []string{"5"}, mustSlot(t, "2026-02-05", "21:00", "23:00"), reservations.CheckOptions{})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.NoError(t, res.Err())
}

func TestValidateNoConflict(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		existing reservations.Reservation
		tables   []string
		slot     [3]string
		opt      reservations.CheckOptions
		valid    bool
	}{
		{"other table", booking("A", "6", "2026-02-05", "19:00", "21:00", reservations.StatusConfirmed),
			[]string{"5"}, [3]string{"2026-02-05", "19:00", "21:00"}, reservations.CheckOptions{}, true},
		{"ends when existing starts", booking("A", "5", "2026-02-05", "19:00", "21:00", reservations.StatusPending),
			[]string{"5"}, [3]string{"2026-02-05", "17:00", "19:00"}, reservations.CheckOptions{}, true},
		{"cancelled does not block", booking("A", "5", "2026-02-05", "19:00", "21:00", reservations.StatusCancelled),
			[]string{"5"}, [3]string{"2026-02-05", "19:00", "21:00"}, reservations.CheckOptions{}, true},
		{"completed does not block", booking("A", "5", "2026-02-05", "19:00", "21:00", reservations.StatusCompleted),
			[]string{"5"}, [3]string{"2026-02-05", "19:00", "21:00"}, reservations.CheckOptions{}, true},
		{"no-show still blocks", booking("A", "5", "2026-02-05", "19:00", "21:00", reservations.StatusNoShow),
			[]string{"5"}, [3]string{"2026-02-05", "20:00", "20:30"}, reservations.CheckOptions{}, false},
		{"seated blocks", booking("A", "5", "2026-02-05", "19:00", "21:00", reservations.StatusSeated),
			[]string{"5"}, [3]string{"2026-02-05", "18:00", "19:30"}, reservations.CheckOptions{}, false},
		{"linked table of existing", booking("A", "7", "2026-02-05", "19:00", "21:00", reservations.StatusConfirmed, "5"),
			[]string{"5"}, [3]string{"2026-02-05", "20:00", "22:00"}, reservations.CheckOptions{}, false},
		{"linked table of candidate", booking("A", "8", "2026-02-05", "19:00", "21:00", reservations.StatusConfirmed),
			[]string{"5", "8"}, [3]string{"2026-02-05", "20:00", "22:00"}, reservations.CheckOptions{}, false},
		{"self excluded", booking("A", "5", "2026-02-05", "19:00", "21:00", reservations.StatusConfirmed),
			[]string{"5"}, [3]string{"2026-02-05", "19:30", "21:30"}, reservations.CheckOptions{ExcludeID: "A"}, true},
		{"previous day across midnight", booking("A", "5", "2026-02-04", "22:00", "02:00", reservations.StatusConfirmed),
			[]string{"5"}, [3]string{"2026-02-05", "01:00", "03:00"}, reservations.CheckOptions{}, false},
		{"previous day ended before", booking("A", "5", "2026-02-04", "22:00", "01:00", reservations.StatusConfirmed),
			[]string{"5"}, [3]string{"2026-02-05", "01:00", "03:00"}, reservations.CheckOptions{}, true},
		{"candidate across midnight", booking("A", "5", "2026-02-06", "00:30", "02:00", reservations.StatusConfirmed),
			[]string{"5"}, [3]string{"2026-02-05", "23:00", "01:00"}, reservations.CheckOptions{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDetector(tt.existing)
			res, err := d.ValidateNoConflict(ctx, tt.tables, mustSlot(t, tt.slot[0], tt.slot[1], tt.slot[2]), tt.opt)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.NotEmpty(t, res.Conflicts)
				assert.ErrorIs(t, res.Err(), reservations.ErrConflict)
			}
		})
	}
}

func TestValidateNoConflictNamesEveryOffendingTable(t *testing.T) {
	d := newDetector(
		booking("A", "5", "2026-02-05", "19:00", "21:00", reservations.StatusConfirmed),
		booking("B", "3", "2026-02-05", "20:00", "21:00", reservations.StatusPending),
	)
	res, err := d.ValidateNoConflict(context.Background(), []string{"5", "3", "9"}, mustSlot(t, "2026-02-05", "19:30", "20:30"), reservations.CheckOptions{})
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 2)
	assert.Equal(t, []string{"3", "5"}, apperr.ContextOf(res.Err())["table_ids"])
}

func TestValidateNoConflictUsesRestaurantTimezone(t *testing.T) {
	// 19:00-21:00 Jakarta is 12:00-14:00 UTC
	existing := booking("A", "5", "2026-02-05", "19:00", "21:00", reservations.StatusConfirmed)
	d := reservations.NewConflictDetector(fakeReader{existing}, reservations.StaticTimezone("Asia/Jakarta"), nil)

	overlapping := mustSlot(t, "2026-02-05", "13:00", "15:00")
	res, err := d.ValidateNoConflict(context.Background(), []string{"5"}, overlapping, reservations.CheckOptions{})
	require.NoError(t, err)
	assert.False(t, res.Valid)

	later := mustSlot(t, "2026-02-05", "19:00", "21:00")
	res, err = d.ValidateNoConflict(context.Background(), []string{"5"}, later, reservations.CheckOptions{})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestValidateNoConflictRequiresTables(t *testing.T) {
	_, err := newDetector().ValidateNoConflict(context.Background(), []string{""}, mustSlot(t, "2026-02-05", "19:00", "21:00"), reservations.CheckOptions{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestValidateSlot(t *testing.T) {
	d := newDetector()
	tests := []struct {
		name      string
		slot      [3]string
		allowPast bool
		field     string
	}{
		{"ok", [3]string{"2026-02-05", "19:00", "21:00"}, false, ""},
		{"exactly 30 minutes", [3]string{"2026-02-05", "19:00", "19:30"}, false, ""},
		{"too short", [3]string{"2026-02-05", "19:00", "19:29"}, false, "time_to"},
		{"exactly 12 hours", [3]string{"2026-02-05", "10:00", "22:00"}, false, ""},
		{"too long", [3]string{"2026-02-05", "10:00", "22:01"}, false, "time_to"},
		{"12 hours and 30 seconds", [3]string{"2026-02-05", "08:00:00", "20:00:30"}, true, "time_to"},
		{"29 minutes 59 seconds", [3]string{"2026-02-05", "19:00:00", "19:29:59"}, false, "time_to"},
		{"equal times are 24h", [3]string{"2026-02-05", "19:00", "19:00"}, false, "time_to"},
		{"in the past", [3]string{"2026-01-31", "19:00", "21:00"}, false, "time_from"},
		{"past allowed for edits", [3]string{"2026-01-31", "19:00", "21:00"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.ValidateSlot(mustSlot(t, tt.slot[0], tt.slot[1], tt.slot[2]), tt.allowPast)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
