package reservations

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/ariefcatur/go-restaurant-booking/internal/action"
	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/eventbus"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/ariefcatur/go-restaurant-booking/internal/timeslot"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actions runs reservation transitions as single units of work. The
// conflict check and the write it guards share one transaction, after the
// table rows are locked.
type Actions struct {
	Tx              TxRunner
	Events          eventbus.Publisher
	Clock           clock.Clock
	Ledger          Ledger
	DefaultTimezone string
}

func NewActions(tx TxRunner, events eventbus.Publisher, c clock.Clock, defaultTimezone string) *Actions {
	c = clock.Or(c)
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &Actions{Tx: tx, Events: events, Clock: c, Ledger: NewLedger(c), DefaultTimezone: defaultTimezone}
}

type CreateInput struct {
	RestaurantID   string
	CustomerID     string
	ContactName    string
	ContactPhone   string
	TableID        string
	LinkedTableIDs []string
	Date           string
	TimeFrom       string
	TimeTo         string
	GuestsCount    int
	Deposit        decimal.Decimal
	Notes          string
	UserID         string
}

func (in CreateInput) validate() error {
	switch {
	case strings.TrimSpace(in.RestaurantID) == "":
		return apperr.Validation("restaurant_id", "restaurant is required")
	case strings.TrimSpace(in.TableID) == "":
		return apperr.Validation("table_id", "table is required")
	case in.GuestsCount < 1:
		return apperr.Validation("guests_count", "at least one guest is required").With("guests_count", in.GuestsCount)
	case in.Deposit.IsNegative():
		return apperr.Validation("deposit", "deposit cannot be negative").With("deposit", in.Deposit.String())
	}
	if in.CustomerID == "" && (strings.TrimSpace(in.ContactName) == "" || strings.TrimSpace(in.ContactPhone) == "") {
		return apperr.Validation("contact", "customer or contact name and phone are required")
	}
	return nil
}

type RescheduleInput struct {
	Date     string
	TimeFrom string
	TimeTo   string
	// TableID empty keeps the current tables.
	TableID        string
	LinkedTableIDs []string
	UserID         string
}

type SeatOptions struct {
	CreateOrder     bool
	TransferDeposit bool
	UserID          string
}

type CancelOptions struct {
	Reason        string
	RefundDeposit bool
	UserID        string
}

type NoShowOptions struct {
	Reason         string
	ForfeitDeposit bool
	UserID         string
}

type step struct {
	// action is empty for changes that keep the status.
	action  string
	message string
	reason  string
	apply   func(ctx context.Context, tx Tx, r *Reservation, now time.Time, meta map[string]any) error
	event   func(t Transition, meta map[string]any) eventbus.Event
}

func (a *Actions) Create(ctx context.Context, in CreateInput) (action.Result[Reservation], error) {
	if err := in.validate(); err != nil {
		return action.Result[Reservation]{Message: err.Error()}, err
	}

	var (
		created Reservation
		ev      eventbus.Event
		meta    = map[string]any{}
	)
	err := a.Tx.InTx(ctx, func(tx Tx) error {
		now := a.Clock.Now()
		r := Reservation{
			ID:             uuid.NewString(),
			RestaurantID:   in.RestaurantID,
			CustomerID:     in.CustomerID,
			ContactName:    strings.TrimSpace(in.ContactName),
			ContactPhone:   strings.TrimSpace(in.ContactPhone),
			Status:         StatusPending,
			TableID:        in.TableID,
			LinkedTableIDs: in.LinkedTableIDs,
			Date:           in.Date,
			TimeFrom:       in.TimeFrom,
			TimeTo:         in.TimeTo,
			GuestsCount:    in.GuestsCount,
			Notes:          in.Notes,
			Deposit:        in.Deposit,
			DepositStatus:  DepositPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		slot, err := a.claimTables(ctx, tx, &r, false)
		if err != nil {
			return err
		}
		if err := tx.InsertReservation(ctx, &r); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		if err := a.appendLog(ctx, tx, r, "", "created", in.UserID, now); err != nil {
			return err
		}
		meta["duration_minutes"] = slot.DurationMinutes()
		meta["crosses_midnight"] = slot.CrossesMidnight()
		meta["requires_deposit"] = RequiresDeposit(r)
		created = r
		ev = ReservationCreatedPayload{Transition: Transition{Reservation: r, ActorID: in.UserID, OccurredAt: now}}
		return nil
	})
	if err != nil {
		return action.Result[Reservation]{Message: err.Error()}, err
	}
	a.publish(ctx, ev, created.ID)
	return action.OK(created, "Reservation created", meta), nil
}

func (a *Actions) Reschedule(ctx context.Context, reservationID string, in RescheduleInput) (action.Result[Reservation], error) {
	return a.run(ctx, reservationID, in.UserID, step{
		message: "Reservation rescheduled",
		reason:  "rescheduled",
		apply: func(ctx context.Context, tx Tx, r *Reservation, _ time.Time, meta map[string]any) error {
			if !r.Status.Editable() {
				return apperr.Validation("status", "reservation in status %s cannot be rescheduled", r.Status).
					With("status", string(r.Status))
			}
			meta["previous_date"] = r.Date
			meta["previous_time_from"] = r.TimeFrom
			meta["previous_time_to"] = r.TimeTo
			meta["previous_table_ids"] = r.TableIDs()

			r.Date, r.TimeFrom, r.TimeTo = in.Date, in.TimeFrom, in.TimeTo
			if in.TableID != "" {
				r.TableID, r.LinkedTableIDs = in.TableID, in.LinkedTableIDs
			}
			_, err := a.claimTables(ctx, tx, r, true)
			return err
		},
		event: func(t Transition, meta map[string]any) eventbus.Event {
			return ReservationRescheduledPayload{
				Transition:       t,
				PreviousDate:     meta["previous_date"].(string),
				PreviousTimeFrom: meta["previous_time_from"].(string),
				PreviousTimeTo:   meta["previous_time_to"].(string),
				PreviousTableIDs: meta["previous_table_ids"].([]string),
			}
		},
	})
}

func (a *Actions) Confirm(ctx context.Context, reservationID, userID string) (action.Result[Reservation], error) {
	return a.run(ctx, reservationID, userID, step{
		action:  ActionConfirm,
		message: "Reservation confirmed",
		apply: func(_ context.Context, _ Tx, r *Reservation, now time.Time, _ map[string]any) error {
			r.ConfirmedAt = &now
			return nil
		},
		event: func(t Transition, _ map[string]any) eventbus.Event {
			return ReservationConfirmedPayload{Transition: t}
		},
	})
}

// Seat occupies every table of the reservation. With CreateOrder a dine-in
// order is opened on the main table; with TransferDeposit a paid deposit
// moves onto that order.
func (a *Actions) Seat(ctx context.Context, reservationID string, opt SeatOptions) (action.Result[Reservation], error) {
	return a.run(ctx, reservationID, opt.UserID, step{
		action:  ActionSeat,
		message: "Guests seated",
		apply: func(ctx context.Context, tx Tx, r *Reservation, now time.Time, meta map[string]any) error {
			r.SeatedAt = &now
			var (
				order    *orders.Order
				newOrder bool
			)
			transfer := opt.TransferDeposit && a.Ledger.CanTransfer(*r)
			if opt.CreateOrder && r.OrderID == "" {
				o := orders.NewOrder(uuid.NewString(), r.RestaurantID, orders.TypeDineIn, now)
				o.ReservationID = r.ID
				o.CustomerID = r.CustomerID
				o.TableID = r.TableID
				order, newOrder = &o, true
				r.OrderID = o.ID
			} else if transfer {
				if r.OrderID == "" {
					return apperr.Validation("order_id", "reservation %s has no order to receive the deposit", r.ID)
				}
				// order row before table rows, same as orders.Complete
				o, err := tx.LockOrder(ctx, r.OrderID)
				if err != nil {
					return err
				}
				order = o
			}

			for _, id := range sortedTableIDs(r) {
				if err := tx.OccupyTable(ctx, id); err != nil {
					return fmt.Errorf("occupy table %s: %w", id, err)
				}
			}
			meta["order_created"] = newOrder
			meta["deposit_transferred"] = false
			meta["transferred_amount"] = decimal.Zero

			if transfer {
				res, err := a.Ledger.TransferToOrder(*r, *order, opt.UserID)
				if err != nil {
					return err
				}
				*r, *order = res.Reservation, res.Order
				meta["deposit_transferred"] = true
				meta["transferred_amount"] = res.Amount
				if !newOrder {
					if err := tx.SaveOrder(ctx, order); err != nil {
						return fmt.Errorf("save order %s: %w", order.ID, err)
					}
				}
			}

			if newOrder {
				if err := tx.InsertOrder(ctx, order); err != nil {
					return fmt.Errorf("insert order for reservation %s: %w", r.ID, err)
				}
			}
			if r.OrderID != "" {
				meta["order_id"] = r.OrderID
			}
			return nil
		},
		event: func(t Transition, meta map[string]any) eventbus.Event {
			return GuestsSeatedPayload{
				Transition:         t,
				OrderID:            t.Reservation.OrderID,
				OrderCreated:       meta["order_created"].(bool),
				DepositTransferred: meta["deposit_transferred"].(bool),
				TransferredAmount:  meta["transferred_amount"].(decimal.Decimal),
			}
		},
	})
}

func (a *Actions) Unseat(ctx context.Context, reservationID, userID string) (action.Result[Reservation], error) {
	return a.run(ctx, reservationID, userID, step{
		action:  ActionUnseat,
		message: "Guests unseated",
		reason:  "unseat",
		apply: func(ctx context.Context, tx Tx, r *Reservation, _ time.Time, meta map[string]any) error {
			r.SeatedAt = nil
			return freeTables(ctx, tx, r, meta)
		},
		event: func(t Transition, _ map[string]any) eventbus.Event {
			return GuestsUnseatedPayload{Transition: t}
		},
	})
}

func (a *Actions) Complete(ctx context.Context, reservationID, userID string) (action.Result[Reservation], error) {
	return a.run(ctx, reservationID, userID, step{
		action:  ActionComplete,
		message: "Reservation completed",
		apply: func(ctx context.Context, tx Tx, r *Reservation, now time.Time, meta map[string]any) error {
			r.CompletedAt = &now
			if err := freeTables(ctx, tx, r, meta); err != nil {
				return err
			}
			if r.CustomerID != "" {
				if err := tx.RecordVisit(ctx, r.CustomerID, now); err != nil {
					return fmt.Errorf("record visit for customer %s: %w", r.CustomerID, err)
				}
			}
			return nil
		},
		event: func(t Transition, _ map[string]any) eventbus.Event {
			return ReservationCompletedPayload{Transition: t}
		},
	})
}

// Cancel refunds the deposit only when asked and the deposit was paid; an
// unpaid deposit is left pending.
func (a *Actions) Cancel(ctx context.Context, reservationID string, opt CancelOptions) (action.Result[Reservation], error) {
	reason := strings.TrimSpace(opt.Reason)
	return a.run(ctx, reservationID, opt.UserID, step{
		action:  ActionCancel,
		message: "Reservation cancelled",
		reason:  reason,
		apply: func(_ context.Context, _ Tx, r *Reservation, now time.Time, meta map[string]any) error {
			r.CancelledAt = &now
			r.CancelledBy = opt.UserID
			r.CancelReason = reason
			meta["deposit_refunded"] = false
			if opt.RefundDeposit && a.Ledger.CanRefund(*r) {
				refunded, err := a.Ledger.Refund(*r, reason, opt.UserID)
				if err != nil {
					return err
				}
				*r = refunded
				meta["deposit_refunded"] = true
			}
			if reason != "" {
				meta["reason"] = reason
			}
			return nil
		},
		event: func(t Transition, meta map[string]any) eventbus.Event {
			return ReservationCancelledPayload{Transition: t, Reason: reason, DepositRefunded: meta["deposit_refunded"].(bool)}
		},
	})
}

func (a *Actions) MarkNoShow(ctx context.Context, reservationID string, opt NoShowOptions) (action.Result[Reservation], error) {
	return a.run(ctx, reservationID, opt.UserID, step{
		action:  ActionNoShow,
		message: "Reservation marked as no-show",
		reason:  strings.TrimSpace(opt.Reason),
		apply: func(ctx context.Context, tx Tx, r *Reservation, now time.Time, meta map[string]any) error {
			r.NoShowAt = &now
			meta["deposit_forfeited"] = false
			if opt.ForfeitDeposit && a.Ledger.CanForfeit(*r) {
				forfeited, err := a.Ledger.Forfeit(*r, opt.Reason, opt.UserID)
				if err != nil {
					return err
				}
				*r = forfeited
				meta["deposit_forfeited"] = true
			}
			if r.CustomerID != "" {
				if err := tx.RecordNoShow(ctx, r.CustomerID, now); err != nil {
					return fmt.Errorf("record no-show for customer %s: %w", r.CustomerID, err)
				}
			}
			return nil
		},
		event: func(t Transition, meta map[string]any) eventbus.Event {
			return ReservationNoShowPayload{Transition: t, DepositForfeited: meta["deposit_forfeited"].(bool)}
		},
	})
}

func (a *Actions) MarkDepositPaid(ctx context.Context, reservationID string, p Payment) (action.Result[Reservation], error) {
	return a.run(ctx, reservationID, p.UserID, step{
		message: "Deposit paid",
		reason:  "deposit paid",
		apply: func(_ context.Context, _ Tx, r *Reservation, _ time.Time, meta map[string]any) error {
			paid, err := a.Ledger.MarkAsPaid(*r, p)
			if err != nil {
				return err
			}
			*r = paid
			meta["deposit_status"] = string(paid.DepositStatus)
			return nil
		},
		event: func(t Transition, _ map[string]any) eventbus.Event {
			return DepositPaidPayload{Transition: t, Amount: t.Reservation.Deposit, PaymentMethod: t.Reservation.DepositAudit.PaymentMethod}
		},
	})
}

func (a *Actions) RefundDeposit(ctx context.Context, reservationID, reason, userID string) (action.Result[Reservation], error) {
	return a.run(ctx, reservationID, userID, step{
		message: "Deposit refunded",
		reason:  "deposit refunded",
		apply: func(_ context.Context, _ Tx, r *Reservation, _ time.Time, meta map[string]any) error {
			refunded, err := a.Ledger.Refund(*r, reason, userID)
			if err != nil {
				return err
			}
			*r = refunded
			meta["deposit_status"] = string(refunded.DepositStatus)
			return nil
		},
		event: func(t Transition, _ map[string]any) eventbus.Event {
			return DepositRefundedPayload{Transition: t, Amount: t.Reservation.Deposit, Reason: t.Reservation.DepositAudit.RefundReason}
		},
	})
}

// claimTables locks the reservation's tables, checks capacity, slot bounds
// and conflicts. Existing reservations skip the past-start check.
func (a *Actions) claimTables(ctx context.Context, tx Tx, r *Reservation, existing bool) (timeslot.TimeSlot, error) {
	zones := fallbackZone{TimezoneResolver: tx, def: a.DefaultTimezone}
	tz, err := zones.Timezone(ctx, r.RestaurantID)
	if err != nil {
		return timeslot.TimeSlot{}, fmt.Errorf("resolve timezone of restaurant %s: %w", r.RestaurantID, err)
	}
	slot, err := r.Slot(tz)
	if err != nil {
		return timeslot.TimeSlot{}, err
	}
	detector := NewConflictDetector(tx, zones, a.Clock)
	if err := detector.ValidateSlot(slot, existing); err != nil {
		return timeslot.TimeSlot{}, err
	}

	ids := r.TableIDs()
	locked := slices.Clone(ids)
	slices.Sort(locked)
	tables, err := tx.LockTables(ctx, r.RestaurantID, locked)
	if err != nil {
		return timeslot.TimeSlot{}, err
	}
	capacity := 0
	for _, t := range tables {
		capacity += t.Capacity
	}
	if r.GuestsCount > capacity {
		return timeslot.TimeSlot{}, apperr.Validation("guests_count", "%d guests exceed table capacity %d", r.GuestsCount, capacity).
			With("capacity", capacity).With("guests_count", r.GuestsCount)
	}

	opt := CheckOptions{RestaurantID: r.RestaurantID}
	if existing {
		opt.ExcludeID = r.ID
	}
	res, err := detector.ValidateNoConflict(ctx, ids, slot, opt)
	if err != nil {
		return timeslot.TimeSlot{}, err
	}
	if err := res.Err(); err != nil {
		return timeslot.TimeSlot{}, err
	}
	return slot, nil
}

// sortedTableIDs returns the reservation's tables in lock order.
func sortedTableIDs(r *Reservation) []string {
	ids := slices.Clone(r.TableIDs())
	slices.Sort(ids)
	return ids
}

func freeTables(ctx context.Context, tx Tx, r *Reservation, meta map[string]any) error {
	ids := sortedTableIDs(r)
	for _, id := range ids {
		if err := tx.FreeTable(ctx, id); err != nil {
			return fmt.Errorf("free table %s: %w", id, err)
		}
	}
	meta["tables_freed"] = ids
	return nil
}

func (a *Actions) run(ctx context.Context, reservationID, userID string, s step) (action.Result[Reservation], error) {
	var (
		updated Reservation
		ev      eventbus.Event
		meta    map[string]any
	)
	err := a.Tx.InTx(ctx, func(tx Tx) error {
		meta = map[string]any{}
		r, err := tx.LockReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		from := r.Status
		if s.action != "" {
			if err := machine.Assert(s.action, r.ID, r.Status); err != nil {
				return err
			}
			r.Status, _ = machine.Target(s.action)
		}

		now := a.Clock.Now()
		r.UpdatedAt = now
		if s.apply != nil {
			if err := s.apply(ctx, tx, r, now, meta); err != nil {
				return err
			}
		}
		if err := tx.SaveReservation(ctx, r); err != nil {
			return fmt.Errorf("save reservation %s: %w", r.ID, err)
		}
		if err := a.appendLog(ctx, tx, *r, from, s.reason, userID, now); err != nil {
			return err
		}

		meta["previous_status"] = string(from)
		meta["deposit_status"] = string(r.DepositStatus)
		updated = *r
		ev = s.event(Transition{Reservation: *r, From: from, ActorID: userID, OccurredAt: now}, meta)
		return nil
	})
	if err != nil {
		return action.Result[Reservation]{Message: err.Error()}, err
	}
	a.publish(ctx, ev, updated.ID)
	return action.OK(updated, s.message, meta), nil
}

func (a *Actions) appendLog(ctx context.Context, tx Tx, r Reservation, from Status, reason, userID string, now time.Time) error {
	err := tx.AppendReservationLog(ctx, StatusLogEntry{
		ID:            uuid.NewString(),
		ReservationID: r.ID,
		From:          from,
		To:            r.Status,
		DepositStatus: r.DepositStatus,
		At:            now,
		Reason:        reason,
		UserID:        userID,
	})
	if err != nil {
		return fmt.Errorf("append reservation log %s: %w", r.ID, err)
	}
	return nil
}

func (a *Actions) publish(ctx context.Context, ev eventbus.Event, id string) {
	if a.Events == nil || ev == nil {
		return
	}
	if err := a.Events.Publish(ctx, ev); err != nil {
		log.Printf("reservations: publish %s for %s: %v", ev.EventName(), id, err)
	}
}

type fallbackZone struct {
	TimezoneResolver
	def string
}

func (z fallbackZone) Timezone(ctx context.Context, restaurantID string) (string, error) {
	tz, err := z.TimezoneResolver.Timezone(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	if tz == "" {
		return z.def, nil
	}
	return tz, nil
}
