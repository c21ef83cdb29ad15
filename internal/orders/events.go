package orders

import "time"

const (
	EventOrderConfirmed       = "OrderConfirmed"
	EventOrderCookingStarted  = "OrderCookingStarted"
	EventOrderReady           = "OrderReady"
	EventOrderServed          = "OrderServed"
	EventOrderDeliveryStarted = "OrderDeliveryStarted"
	EventOrderCompleted       = "OrderCompleted"
	EventOrderCancelled       = "OrderCancelled"
)

// Transition is the part every order event shares: a snapshot of the order
// after the change, the status it left, and who did it.
type Transition struct {
	Order      Order     `json:"order"`
	From       Status    `json:"from"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (t Transition) Topic() string        { return TopicOrderEvents }
func (t Transition) PartitionKey() []byte { return PartitionKey(t.Order.ID) }

// ---- Payload tipe per event ----

type OrderConfirmedPayload struct {
	Transition
}

type OrderCookingStartedPayload struct {
	Transition
	TableOccupied bool `json:"table_occupied"`
}

type OrderReadyPayload struct {
	Transition
}

type OrderServedPayload struct {
	Transition
}

type OrderDeliveryStartedPayload struct {
	Transition
	CourierID string `json:"courier_id"`
}

type OrderCompletedPayload struct {
	Transition
	TableFreed bool `json:"table_freed"`
}

type OrderCancelledPayload struct {
	Transition
	Reason     string `json:"reason,omitempty"`
	TableFreed bool   `json:"table_freed"`
}

func (OrderConfirmedPayload) EventName() string       { return EventOrderConfirmed }
func (OrderCookingStartedPayload) EventName() string  { return EventOrderCookingStarted }
func (OrderReadyPayload) EventName() string           { return EventOrderReady }
func (OrderServedPayload) EventName() string          { return EventOrderServed }
func (OrderDeliveryStartedPayload) EventName() string { return EventOrderDeliveryStarted }
func (OrderCompletedPayload) EventName() string       { return EventOrderCompleted }
func (OrderCancelledPayload) EventName() string       { return EventOrderCancelled }
