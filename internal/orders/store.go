package orders

import (
	"context"
	"time"
)

type TableInventory interface {
	OccupyTable(ctx context.Context, tableID string) error
	FreeTable(ctx context.Context, tableID string) error
}

type CustomerStats interface {
	// RecordVisit bumps the visit counter and the last-visit timestamp.
	RecordVisit(ctx context.Context, customerID string, at time.Time) error
}

// Tx is the view of one open transaction the order actions need. LockOrder
// takes a row lock held until the transaction ends and returns an
// apperr.NotFoundError for unknown ids.
type Tx interface {
	LockOrder(ctx context.Context, id string) (*Order, error)
	SaveOrder(ctx context.Context, o *Order) error
	AppendOrderLog(ctx context.Context, e StatusLogEntry) error
	TableInventory
	CustomerStats
}

// TxRunner runs fn inside one transaction: commit when fn returns nil,
// rollback otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
