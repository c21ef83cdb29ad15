package orders_test

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
)

var errBoom = errors.New("boom")

type fakeStore struct {
	orders map[string]orders.Order
	tables map[string]orders.Table
	visits map[string]int
	log    []orders.StatusLogEntry

	freeErr   error
	occupyErr error
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: map[string]orders.Order{},
		tables: map[string]orders.Table{},
		visits: map[string]int{},
	}
}

func (s *fakeStore) InTx(_ context.Context, fn func(tx orders.Tx) error) error {
	tx := &fakeTx{
		store:  s,
		orders: maps.Clone(s.orders),
		tables: maps.Clone(s.tables),
		visits: maps.Clone(s.visits),
		log:    append([]orders.StatusLogEntry(nil), s.log...),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.orders, s.tables, s.visits, s.log = tx.orders, tx.tables, tx.visits, tx.log
	return nil
}

type fakeTx struct {
	store  *fakeStore
	orders map[string]orders.Order
	tables map[string]orders.Table
	visits map[string]int
	log    []orders.StatusLogEntry
}

func (t *fakeTx) LockOrder(_ context.Context, id string) (*orders.Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return nil, apperr.NotFound("order", id)
	}
	return &o, nil
}

func (t *fakeTx) SaveOrder(_ context.Context, o *orders.Order) error {
	if t.store.saveErr != nil {
		return t.store.saveErr
	}
	t.orders[o.ID] = *o
	return nil
}

func (t *fakeTx) AppendOrderLog(_ context.Context, e orders.StatusLogEntry) error {
	t.log = append(t.log, e)
	return nil
}

func (t *fakeTx) OccupyTable(_ context.Context, id string) error {
	if t.store.occupyErr != nil {
		return t.store.occupyErr
	}
	tb := t.tables[id]
	tb.ID, tb.Status = id, orders.TableOccupied
	t.tables[id] = tb
	return nil
}

func (t *fakeTx) FreeTable(_ context.Context, id string) error {
	if t.store.freeErr != nil {
		return t.store.freeErr
	}
	tb := t.tables[id]
	tb.ID, tb.Status = id, orders.TableFree
	t.tables[id] = tb
	return nil
}

func (t *fakeTx) RecordVisit(_ context.Context, customerID string, _ time.Time) error {
	t.visits[customerID]++
	return nil
}
