package reservations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/timeslot"
	"github.com/shopspring/decimal"
)

var (
	ErrConflict = errors.New("reservation conflict")
	ErrDeposit  = errors.New("deposit operation not allowed")
)

// ConflictError names the tables already booked over the requested slot.
type ConflictError struct {
	TableIDs  []string
	Slot      timeslot.TimeSlot
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("table(s) %s already booked for %s", strings.Join(e.TableIDs, ", "), e.Slot)
}

func (e *ConflictError) Code() apperr.Code { return apperr.CodeReservationConflict }

func (e *ConflictError) Context() map[string]any {
	ids := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ids = append(ids, c.ReservationID)
	}
	return map[string]any{
		"table_ids":                e.TableIDs,
		"date":                     e.Slot.StartDate(),
		"time_from":                e.Slot.TimeFrom(),
		"time_to":                  e.Slot.TimeTo(),
		"conflicting_reservations": ids,
	}
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type DepositReason string

const (
	DepositAlreadyPaid        DepositReason = "already_paid"
	DepositAlreadyRefunded    DepositReason = "already_refunded"
	DepositAlreadyTransferred DepositReason = "already_transferred"
	DepositAlreadyForfeited   DepositReason = "already_forfeited"
	DepositNotPaid            DepositReason = "not_paid"
	DepositNotRequired        DepositReason = "not_required"
	DepositOrderMismatch      DepositReason = "order_mismatch"
)

type DepositError struct {
	Reason        DepositReason
	Operation     string
	ReservationID string
	OrderID       string
	Amount        decimal.Decimal
	Status        DepositStatus
}

func (e *DepositError) Error() string {
	switch e.Reason {
	case DepositOrderMismatch:
		return fmt.Sprintf("deposit of reservation %s cannot be transferred to order %s: order belongs to another reservation",
			e.ReservationID, e.OrderID)
	case DepositNotRequired:
		return fmt.Sprintf("reservation %s has no deposit to %s", e.ReservationID, e.Operation)
	}
	return fmt.Sprintf("cannot %s deposit %s of reservation %s: %s", e.Operation, e.Amount.StringFixed(2), e.ReservationID, e.Reason)
}

func (e *DepositError) Code() apperr.Code { return apperr.CodeDeposit }

func (e *DepositError) Context() map[string]any {
	ctx := map[string]any{
		"reason":         string(e.Reason),
		"operation":      e.Operation,
		"reservation_id": e.ReservationID,
		"amount":         e.Amount.String(),
		"deposit_status": string(e.Status),
	}
	if e.OrderID != "" {
		ctx["order_id"] = e.OrderID
	}
	return ctx
}

func (e *DepositError) Is(target error) bool { return target == ErrDeposit }
