package reservations_test

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
)

var errBoom = errors.New("boom")

type fakeStore struct {
	reservations map[string]reservations.Reservation
	orders       map[string]orders.Order
	tables       map[string]orders.Table
	visits       map[string]int
	noShows      map[string]int
	zones        map[string]string
	log          []reservations.StatusLogEntry

	// row writes and locks in call order, across transactions
	ops []string

	occupyErr error
	readErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reservations: map[string]reservations.Reservation{},
		orders:       map[string]orders.Order{},
		tables:       map[string]orders.Table{},
		visits:       map[string]int{},
		noShows:      map[string]int{},
		zones:        map[string]string{},
	}
}

func (s *fakeStore) addTable(restaurantID, id string, capacity int) {
	s.tables[id] = orders.Table{ID: id, RestaurantID: restaurantID, Number: id, Capacity: capacity, Status: orders.TableFree}
}

func (s *fakeStore) InTx(_ context.Context, fn func(tx reservations.Tx) error) error {
	tx := &fakeTx{
		store:        s,
		reservations: maps.Clone(s.reservations),
		orders:       maps.Clone(s.orders),
		tables:       maps.Clone(s.tables),
		visits:       maps.Clone(s.visits),
		noShows:      maps.Clone(s.noShows),
		log:          slices.Clone(s.log),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.reservations, s.orders, s.tables = tx.reservations, tx.orders, tx.tables
	s.visits, s.noShows, s.log = tx.visits, tx.noShows, tx.log
	return nil
}

type fakeTx struct {
	store        *fakeStore
	reservations map[string]reservations.Reservation
	orders       map[string]orders.Order
	tables       map[string]orders.Table
	visits       map[string]int
	noShows      map[string]int
	log          []reservations.StatusLogEntry
}

func (t *fakeTx) FindActiveForTables(_ context.Context, q reservations.ConflictQuery) ([]reservations.Reservation, error) {
	if t.store.readErr != nil {
		return nil, t.store.readErr
	}
	var out []reservations.Reservation
	for _, r := range t.reservations {
		if !r.Status.BlocksTable() || r.ID == q.ExcludeID {
			continue
		}
		if q.RestaurantID != "" && r.RestaurantID != q.RestaurantID {
			continue
		}
		if r.Date < q.FromDate || r.Date > q.ToDate {
			continue
		}
		if slices.ContainsFunc(r.TableIDs(), func(id string) bool { return slices.Contains(q.TableIDs, id) }) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *fakeTx) Timezone(_ context.Context, restaurantID string) (string, error) {
	return t.store.zones[restaurantID], nil
}

func (t *fakeTx) LockReservation(_ context.Context, id string) (*reservations.Reservation, error) {
	r, ok := t.reservations[id]
	if !ok {
		return nil, apperr.NotFound("reservation", id)
	}
	return &r, nil
}

func (t *fakeTx) LockTables(_ context.Context, restaurantID string, ids []string) ([]orders.Table, error) {
	out := make([]orders.Table, 0, len(ids))
	for _, id := range ids {
		tb, ok := t.tables[id]
		if !ok || tb.RestaurantID != restaurantID {
			return nil, apperr.NotFound("table", id)
		}
		out = append(out, tb)
	}
	return out, nil
}

func (t *fakeTx) InsertReservation(_ context.Context, r *reservations.Reservation) error {
	t.reservations[r.ID] = *r
	return nil
}

func (t *fakeTx) SaveReservation(_ context.Context, r *reservations.Reservation) error {
	t.reservations[r.ID] = *r
	return nil
}

func (t *fakeTx) AppendReservationLog(_ context.Context, e reservations.StatusLogEntry) error {
	t.log = append(t.log, e)
	return nil
}

func (t *fakeTx) InsertOrder(_ context.Context, o *orders.Order) error {
	t.orders[o.ID] = *o
	return nil
}

func (t *fakeTx) LockOrder(_ context.Context, id string) (*orders.Order, error) {
	t.store.ops = append(t.store.ops, "lock order "+id)
	o, ok := t.orders[id]
	if !ok {
		return nil, apperr.NotFound("order", id)
	}
	return &o, nil
}

func (t *fakeTx) SaveOrder(_ context.Context, o *orders.Order) error {
	t.orders[o.ID] = *o
	return nil
}

func (t *fakeTx) AppendOrderLog(context.Context, orders.StatusLogEntry) error { return nil }

func (t *fakeTx) OccupyTable(_ context.Context, id string) error {
	t.store.ops = append(t.store.ops, "occupy "+id)
	if t.store.occupyErr != nil {
		return t.store.occupyErr
	}
	tb := t.tables[id]
	tb.Status = orders.TableOccupied
	t.tables[id] = tb
	return nil
}

func (t *fakeTx) FreeTable(_ context.Context, id string) error {
	t.store.ops = append(t.store.ops, "free "+id)
	tb := t.tables[id]
	tb.Status = orders.TableFree
	t.tables[id] = tb
	return nil
}

func (t *fakeTx) RecordVisit(_ context.Context, customerID string, _ time.Time) error {
	t.visits[customerID]++
	return nil
}

func (t *fakeTx) RecordNoShow(_ context.Context, customerID string, _ time.Time) error {
	t.noShows[customerID]++
	return nil
}

// fakeReader serves the conflict detector directly.
type fakeReader []reservations.Reservation

func (f fakeReader) FindActiveForTables(_ context.Context, q reservations.ConflictQuery) ([]reservations.Reservation, error) {
	var out []reservations.Reservation
	for _, r := range f {
		if r.Status.BlocksTable() && r.ID != q.ExcludeID && r.Date >= q.FromDate && r.Date <= q.ToDate {
			out = append(out, r)
		}
	}
	return out, nil
}
