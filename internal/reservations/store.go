package reservations

import (
	"context"
	"time"

	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
)

// Tx is the view of one open transaction the reservation actions need. It
// includes the order view because seating creates orders and transfers
// deposits onto them. Lock methods hold row locks until the transaction
// ends and return apperr.NotFoundError for unknown ids.
type Tx interface {
	orders.Tx
	ReservationReader

	LockReservation(ctx context.Context, id string) (*Reservation, error)
	// LockTables locks the rows in id order and returns them in that order.
	LockTables(ctx context.Context, restaurantID string, ids []string) ([]orders.Table, error)
	InsertReservation(ctx context.Context, r *Reservation) error
	SaveReservation(ctx context.Context, r *Reservation) error
	AppendReservationLog(ctx context.Context, e StatusLogEntry) error
	InsertOrder(ctx context.Context, o *orders.Order) error
	// RecordNoShow bumps the customer's no-show counter.
	RecordNoShow(ctx context.Context, customerID string, at time.Time) error
	TimezoneResolver
}

type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
