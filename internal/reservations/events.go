package reservations

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventReservationCreated     = "ReservationCreated"
	EventReservationConfirmed   = "ReservationConfirmed"
	EventReservationRescheduled = "ReservationRescheduled"
	EventGuestsSeated           = "GuestsSeated"
	EventGuestsUnseated         = "GuestsUnseated"
	EventReservationCompleted   = "ReservationCompleted"
	EventReservationCancelled   = "ReservationCancelled"
	EventReservationNoShow      = "ReservationNoShow"
	EventDepositPaid            = "DepositPaid"
	EventDepositRefunded        = "DepositRefunded"
)

// Transition is shared by every reservation event: the reservation after the
// change, the status it left, and who did it.
type Transition struct {
	Reservation Reservation `json:"reservation"`
	From        Status      `json:"from"`
	ActorID     string      `json:"actor_id,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

func (t Transition) Topic() string        { return TopicReservationEvents }
func (t Transition) PartitionKey() []byte { return PartitionKey(t.Reservation.ID) }

type ReservationCreatedPayload struct {
	Transition
}

type ReservationConfirmedPayload struct {
	Transition
}

type ReservationRescheduledPayload struct {
	Transition
	PreviousDate     string   `json:"previous_date"`
	PreviousTimeFrom string   `json:"previous_time_from"`
	PreviousTimeTo   string   `json:"previous_time_to"`
	PreviousTableIDs []string `json:"previous_table_ids"`
}

type GuestsSeatedPayload struct {
	Transition
	OrderID            string          `json:"order_id,omitempty"`
	OrderCreated       bool            `json:"order_created"`
	DepositTransferred bool            `json:"deposit_transferred"`
	TransferredAmount  decimal.Decimal `json:"transferred_amount"`
}

type GuestsUnseatedPayload struct {
	Transition
}

type ReservationCompletedPayload struct {
	Transition
}

type ReservationCancelledPayload struct {
	Transition
	Reason          string `json:"reason,omitempty"`
	DepositRefunded bool   `json:"deposit_refunded"`
}

type ReservationNoShowPayload struct {
	Transition
	DepositForfeited bool `json:"deposit_forfeited"`
}

type DepositPaidPayload struct {
	Transition
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

type DepositRefundedPayload struct {
	Transition
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

func (ReservationCreatedPayload) EventName() string     { return EventReservationCreated }
func (ReservationConfirmedPayload) EventName() string   { return EventReservationConfirmed }
func (ReservationRescheduledPayload) EventName() string { return EventReservationRescheduled }
func (GuestsSeatedPayload) EventName() string           { return EventGuestsSeated }
func (GuestsUnseatedPayload) EventName() string         { return EventGuestsUnseated }
func (ReservationCompletedPayload) EventName() string   { return EventReservationCompleted }
func (ReservationCancelledPayload) EventName() string   { return EventReservationCancelled }
func (ReservationNoShowPayload) EventName() string      { return EventReservationNoShow }
func (DepositPaidPayload) EventName() string            { return EventDepositPaid }
func (DepositRefundedPayload) EventName() string        { return EventDepositRefunded }
