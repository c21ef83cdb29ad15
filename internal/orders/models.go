package orders

import (
	"github.com/shopspring/decimal"
	"time"
)

type Type string

const (
	TypeDineIn     Type = "dine_in"
	TypeDelivery   Type = "delivery"
	TypePickup     Type = "pickup"
	TypeAggregator Type = "aggregator"
	TypePreorder   Type = "preorder"
)

type PrepaidSource string

const PrepaidSourceReservationDeposit PrepaidSource = "reservation_deposit"

type Order struct {
	ID            string `json:"id"`
	RestaurantID  string `json:"restaurant_id"`
	CustomerID    string `json:"customer_id,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
	Status        Status `json:"status"` // lihat status.go
	Type          Type   `json:"type"`
	TableID       string `json:"table_id,omitempty"`
	CourierID     string `json:"courier_id,omitempty"`

	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	CookingStartedAt *time.Time `json:"cooking_started_at,omitempty"`
	ReadyAt          *time.Time `json:"ready_at,omitempty"`
	ServedAt         *time.Time `json:"served_at,omitempty"`
	PickedUpAt       *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy      string     `json:"cancelled_by,omitempty"`
	CancelReason     string     `json:"cancel_reason,omitempty"`

	PrepaidAmount decimal.Decimal `json:"prepaid_amount"`
	PrepaidSource PrepaidSource   `json:"prepaid_source,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o Order) HasTable() bool { return o.TableID != "" }

// StatusLogEntry is one row of the order audit log.
type StatusLogEntry struct {
	ID      string
	OrderID string
	From    Status
	To      Status
	At      time.Time
	Reason  string
	UserID  string
}

type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableOccupied TableStatus = "occupied"
)

// Table is referenced by id; its occupancy is written only by the action
// layer, inside the same unit of work as the order or reservation change.
type Table struct {
	ID           string
	RestaurantID string
	Number       string
	Capacity     int
	Status       TableStatus
}

// NewOrder starts an order in StatusNew with no prepayment.
func NewOrder(id, restaurantID string, typ Type, now time.Time) Order {
	return Order{
		ID:            id,
		RestaurantID:  restaurantID,
		Status:        StatusNew,
		Type:          typ,
		PrepaidAmount: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
