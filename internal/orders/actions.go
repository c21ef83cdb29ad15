package orders

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-restaurant-booking/internal/action"
	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/eventbus"
	"github.com/google/uuid"
	"log"
	"strings"
	"time"
)

// Actions runs order transitions as single units of work: guard, status
// change, side effects and audit entry commit together, then exactly one
// event is published.
type Actions struct {
	Tx     TxRunner
	Events eventbus.Publisher
	Clock  clock.Clock
}

func NewActions(tx TxRunner, events eventbus.Publisher, c clock.Clock) *Actions {
	return &Actions{Tx: tx, Events: events, Clock: clock.Or(c)}
}

type step struct {
	action  string
	message string
	reason  string
	apply   func(ctx context.Context, tx Tx, o *Order, now time.Time, meta map[string]any) error
	event   func(t Transition, meta map[string]any) eventbus.Event
}

func (a *Actions) Confirm(ctx context.Context, orderID, userID string) (action.Result[Order], error) {
	return a.run(ctx, orderID, userID, step{
		action:  ActionConfirm,
		message: "Order confirmed",
		apply: func(_ context.Context, _ Tx, o *Order, now time.Time, _ map[string]any) error {
			o.ConfirmedAt = &now
			return nil
		},
		event: func(t Transition, _ map[string]any) eventbus.Event {
			return OrderConfirmedPayload{Transition: t}
		},
	})
}

func (a *Actions) StartCooking(ctx context.Context, orderID, userID string) (action.Result[Order], error) {
	return a.run(ctx, orderID, userID, step{
		action:  ActionStartCooking,
		message: "Cooking started",
		apply: func(ctx context.Context, tx Tx, o *Order, now time.Time, meta map[string]any) error {
			o.CookingStartedAt = &now
			meta["table_occupied"] = false
			if o.HasTable() {
				if err := tx.OccupyTable(ctx, o.TableID); err != nil {
					return fmt.Errorf("occupy table %s: %w", o.TableID, err)
				}
				meta["table_occupied"] = true
			}
			return nil
		},
		event: func(t Transition, meta map[string]any) eventbus.Event {
			return OrderCookingStartedPayload{Transition: t, TableOccupied: meta["table_occupied"].(bool)}
		},
	})
}

func (a *Actions) MarkReady(ctx context.Context, orderID, userID string) (action.Result[Order], error) {
	return a.run(ctx, orderID, userID, step{
		action:  ActionMarkReady,
		message: "Order is ready",
		apply: func(_ context.Context, _ Tx, o *Order, now time.Time, _ map[string]any) error {
			o.ReadyAt = &now
			return nil
		},
		event: func(t Transition, _ map[string]any) eventbus.Event {
			return OrderReadyPayload{Transition: t}
		},
	})
}

func (a *Actions) MarkServed(ctx context.Context, orderID, userID string) (action.Result[Order], error) {
	return a.run(ctx, orderID, userID, step{
		action:  ActionMarkServed,
		message: "Order served",
		apply: func(_ context.Context, _ Tx, o *Order, now time.Time, _ map[string]any) error {
			o.ServedAt = &now
			return nil
		},
		event: func(t Transition, _ map[string]any) eventbus.Event {
			return OrderServedPayload{Transition: t}
		},
	})
}

func (a *Actions) StartDelivering(ctx context.Context, orderID, courierID, userID string) (action.Result[Order], error) {
	courierID = strings.TrimSpace(courierID)
	if courierID == "" {
		return action.Result[Order]{}, apperr.Validation("courier_id", "courier is required to start delivery")
	}
	return a.run(ctx, orderID, userID, step{
		action:  ActionStartDelivering,
		message: "Delivery started",
		apply: func(_ context.Context, _ Tx, o *Order, now time.Time, meta map[string]any) error {
			o.CourierID = courierID
			o.PickedUpAt = &now
			meta["courier_id"] = courierID
			return nil
		},
		event: func(t Transition, _ map[string]any) eventbus.Event {
			return OrderDeliveryStartedPayload{Transition: t, CourierID: courierID}
		},
	})
}

func (a *Actions) Complete(ctx context.Context, orderID, userID string) (action.Result[Order], error) {
	return a.run(ctx, orderID, userID, step{
		action:  ActionComplete,
		message: "Order completed",
		apply: func(ctx context.Context, tx Tx, o *Order, now time.Time, meta map[string]any) error {
			o.CompletedAt = &now
			if o.Type == TypeDelivery && o.DeliveredAt == nil {
				o.DeliveredAt = &now
			}
			freed, err := freeTable(ctx, tx, o)
			if err != nil {
				return err
			}
			meta["table_freed"] = freed
			if o.CustomerID != "" {
				if err := tx.RecordVisit(ctx, o.CustomerID, now); err != nil {
					return fmt.Errorf("record visit for customer %s: %w", o.CustomerID, err)
				}
			}
			return nil
		},
		event: func(t Transition, meta map[string]any) eventbus.Event {
			return OrderCompletedPayload{Transition: t, TableFreed: meta["table_freed"].(bool)}
		},
	})
}

func (a *Actions) Cancel(ctx context.Context, orderID, reason, userID string) (action.Result[Order], error) {
	reason = strings.TrimSpace(reason)
	return a.run(ctx, orderID, userID, step{
		action:  ActionCancel,
		message: "Order cancelled",
		reason:  reason,
		apply: func(ctx context.Context, tx Tx, o *Order, now time.Time, meta map[string]any) error {
			o.CancelledAt = &now
			o.CancelledBy = userID
			o.CancelReason = reason
			freed, err := freeTable(ctx, tx, o)
			if err != nil {
				return err
			}
			meta["table_freed"] = freed
			if reason != "" {
				meta["reason"] = reason
			}
			return nil
		},
		event: func(t Transition, meta map[string]any) eventbus.Event {
			return OrderCancelledPayload{Transition: t, Reason: reason, TableFreed: meta["table_freed"].(bool)}
		},
	})
}

func freeTable(ctx context.Context, tx Tx, o *Order) (bool, error) {
	if !o.HasTable() {
		return false, nil
	}
	if err := tx.FreeTable(ctx, o.TableID); err != nil {
		return false, fmt.Errorf("free table %s: %w", o.TableID, err)
	}
	return true, nil
}

func (a *Actions) run(ctx context.Context, orderID, userID string, s step) (action.Result[Order], error) {
	var (
		updated Order
		ev      eventbus.Event
		meta    map[string]any
	)
	err := a.Tx.InTx(ctx, func(tx Tx) error {
		meta = map[string]any{}
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := machine.Assert(s.action, o.ID, o.Status); err != nil {
			return err
		}

		now := a.Clock.Now()
		from := o.Status
		to, _ := machine.Target(s.action)
		o.Status = to
		o.UpdatedAt = now
		if s.apply != nil {
			if err := s.apply(ctx, tx, o, now, meta); err != nil {
				return err
			}
		}
		if err := tx.SaveOrder(ctx, o); err != nil {
			return fmt.Errorf("save order %s: %w", o.ID, err)
		}
		if err := tx.AppendOrderLog(ctx, StatusLogEntry{
			ID: uuid.NewString(), OrderID: o.ID, From: from, To: to, At: now, Reason: s.reason, UserID: userID,
		}); err != nil {
			return fmt.Errorf("append order log %s: %w", o.ID, err)
		}

		meta["previous_status"] = string(from)
		updated = *o
		ev = s.event(Transition{Order: *o, From: from, ActorID: userID, OccurredAt: now}, meta)
		return nil
	})
	if err != nil {
		return action.Result[Order]{Message: err.Error()}, err
	}

	if a.Events != nil {
		if perr := a.Events.Publish(ctx, ev); perr != nil {
			log.Printf("orders: publish %s for %s: %v", ev.EventName(), updated.ID, perr)
		}
	}
	return action.OK(updated, s.message, meta), nil
}
