package reservations

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/timeslot"
)

const (
	MinDurationMinutes = 30
	MaxDurationMinutes = 720
)

// ConflictQuery selects reservations that still block any of TableIDs,
// either as main or as linked table, with a date in [FromDate, ToDate].
type ConflictQuery struct {
	TableIDs     []string
	FromDate     string
	ToDate       string
	ExcludeID    string
	RestaurantID string
}

type ReservationReader interface {
	// FindActiveForTables returns reservations whose status BlocksTable.
	FindActiveForTables(ctx context.Context, q ConflictQuery) ([]Reservation, error)
}

type TimezoneResolver interface {
	Timezone(ctx context.Context, restaurantID string) (string, error)
}

// StaticTimezone resolves every restaurant to the same zone.
type StaticTimezone string

func (z StaticTimezone) Timezone(context.Context, string) (string, error) { return string(z), nil }

type Conflict struct {
	ReservationID string            `json:"reservation_id"`
	TableIDs      []string          `json:"table_ids"`
	Slot          timeslot.TimeSlot `json:"-"`
	Status        Status            `json:"status"`
}

type ConflictResult struct {
	Valid     bool
	Message   string
	Conflicts []Conflict

	err *ConflictError
}

// Err returns the structured conflict, nil when the result is valid.
func (r ConflictResult) Err() error {
	if r.Valid || r.err == nil {
		return nil
	}
	return r.err
}

type CheckOptions struct {
	ExcludeID    string
	RestaurantID string
}

type ConflictDetector struct {
	reader ReservationReader
	zones  TimezoneResolver
	clock  clock.Clock
}

func NewConflictDetector(reader ReservationReader, zones TimezoneResolver, c clock.Clock) *ConflictDetector {
	return &ConflictDetector{reader: reader, zones: zones, clock: clock.Or(c)}
}

// ValidateSlot enforces duration bounds and, unless allowPast, rejects a
// slot that has already started.
func (d *ConflictDetector) ValidateSlot(slot timeslot.TimeSlot, allowPast bool) error {
	if slot.IsZero() {
		return apperr.Validation("time_slot", "time slot is required")
	}
	// compare full durations; minutes truncate HH:MM:SS slots
	dur := slot.Duration()
	if dur < MinDurationMinutes*time.Minute {
		return apperr.Validation("time_to", "reservation must last at least %d minutes", MinDurationMinutes).
			With("duration", dur.String())
	}
	if dur > MaxDurationMinutes*time.Minute {
		return apperr.Validation("time_to", "reservation cannot last more than %d minutes", MaxDurationMinutes).
			With("duration", dur.String())
	}
	if !allowPast && slot.IsPast(d.clock.Now()) {
		return apperr.Validation("time_from", "reservation cannot start in the past").
			With("starts_at", slot.StartsAt().Format(time.RFC3339))
	}
	return nil
}

// ValidateNoConflict checks tableIDs against every blocking reservation. The
// returned error is reserved for read failures; a conflict is reported in
// the result.
func (d *ConflictDetector) ValidateNoConflict(ctx context.Context, tableIDs []string, slot timeslot.TimeSlot, opt CheckOptions) (ConflictResult, error) {
	tableIDs = dedupe(tableIDs)
	if len(tableIDs) == 0 {
		return ConflictResult{}, apperr.Validation("table_id", "at least one table is required")
	}

	// a booking that started the day before may run past midnight into slot
	from := slot.StartsAt().AddDate(0, 0, -1).Format(timeslot.DateLayout)
	to := slot.EndsAt().AddDate(0, 0, 1).Format(timeslot.DateLayout)
	existing, err := d.reader.FindActiveForTables(ctx, ConflictQuery{
		TableIDs:     tableIDs,
		FromDate:     from,
		ToDate:       to,
		ExcludeID:    opt.ExcludeID,
		RestaurantID: opt.RestaurantID,
	})
	if err != nil {
		return ConflictResult{}, fmt.Errorf("find reservations for tables: %w", err)
	}

	zones := map[string]string{}
	var (
		conflicts []Conflict
		offending []string
	)
	for _, r := range existing {
		if r.ID == opt.ExcludeID || !r.Status.BlocksTable() {
			continue
		}
		shared := intersect(tableIDs, r.TableIDs())
		if len(shared) == 0 {
			continue
		}
		tz, err := d.zoneFor(ctx, zones, r.RestaurantID, slot.Timezone())
		if err != nil {
			return ConflictResult{}, err
		}
		other, err := r.Slot(tz)
		if err != nil {
			return ConflictResult{}, fmt.Errorf("rebuild slot of reservation %s: %w", r.ID, err)
		}
		if !slot.Overlaps(other) {
			continue
		}
		conflicts = append(conflicts, Conflict{ReservationID: r.ID, TableIDs: shared, Slot: other, Status: r.Status})
		for _, id := range shared {
			if !slices.Contains(offending, id) {
				offending = append(offending, id)
			}
		}
	}

	if len(conflicts) == 0 {
		return ConflictResult{Valid: true}, nil
	}
	slices.Sort(offending)
	cerr := &ConflictError{TableIDs: offending, Slot: slot, Conflicts: conflicts}
	return ConflictResult{Valid: false, Message: cerr.Error(), Conflicts: conflicts, err: cerr}, nil
}

func (d *ConflictDetector) zoneFor(ctx context.Context, memo map[string]string, restaurantID, fallback string) (string, error) {
	if tz, ok := memo[restaurantID]; ok {
		return tz, nil
	}
	tz := fallback
	if d.zones != nil {
		resolved, err := d.zones.Timezone(ctx, restaurantID)
		if err != nil {
			return "", fmt.Errorf("resolve timezone of restaurant %s: %w", restaurantID, err)
		}
		if resolved != "" {
			tz = resolved
		}
	}
	memo[restaurantID] = tz
	return tz, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func intersect(a, b []string) []string {
	var out []string
	for _, id := range a {
		if slices.Contains(b, id) {
			out = append(out, id)
		}
	}
	return out
}
