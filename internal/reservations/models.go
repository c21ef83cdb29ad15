package reservations

import (
	"github.com/ariefcatur/go-restaurant-booking/internal/timeslot"
	"github.com/shopspring/decimal"
	"time"
)

type Reservation struct {
	ID             string   `json:"id"`
	RestaurantID   string   `json:"restaurant_id"`
	CustomerID     string   `json:"customer_id,omitempty"`
	ContactName    string   `json:"contact_name,omitempty"`
	ContactPhone   string   `json:"contact_phone,omitempty"`
	Status         Status   `json:"status"`
	TableID        string   `json:"table_id"`
	LinkedTableIDs []string `json:"linked_table_ids,omitempty"`
	Date           string   `json:"date"`      // YYYY-MM-DD
	TimeFrom       string   `json:"time_from"` // HH:MM
	TimeTo         string   `json:"time_to"`   // HH:MM, <= time_from berarti lewat tengah malam
	GuestsCount    int      `json:"guests_count"`
	Notes          string   `json:"notes,omitempty"`
	OrderID        string   `json:"order_id,omitempty"`

	// Deposit, DepositStatus and DepositAudit are written by Ledger only.
	Deposit       decimal.Decimal `json:"deposit"`
	DepositStatus DepositStatus   `json:"deposit_status"`
	DepositAudit  DepositAudit    `json:"deposit_audit"`

	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	SeatedAt     *time.Time `json:"seated_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy  string     `json:"cancelled_by,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	NoShowAt     *time.Time `json:"no_show_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DepositAudit records who/when/why for each deposit outcome.
type DepositAudit struct {
	PaymentMethod        string     `json:"payment_method,omitempty"`
	TransactionID        string     `json:"transaction_id,omitempty"`
	PaidAt               *time.Time `json:"paid_at,omitempty"`
	PaidBy               string     `json:"paid_by,omitempty"`
	RefundedAt           *time.Time `json:"refunded_at,omitempty"`
	RefundedBy           string     `json:"refunded_by,omitempty"`
	RefundReason         string     `json:"refund_reason,omitempty"`
	TransferredToOrderID string     `json:"transferred_to_order_id,omitempty"`
	TransferredAt        *time.Time `json:"transferred_at,omitempty"`
	TransferredBy        string     `json:"transferred_by,omitempty"`
	ForfeitedAt          *time.Time `json:"forfeited_at,omitempty"`
	ForfeitedBy          string     `json:"forfeited_by,omitempty"`
	ForfeitReason        string     `json:"forfeit_reason,omitempty"`
}

// TableIDs returns the main table followed by the linked ones, without
// duplicates.
func (r Reservation) TableIDs() []string {
	out := make([]string, 0, 1+len(r.LinkedTableIDs))
	seen := map[string]bool{}
	for _, id := range append([]string{r.TableID}, r.LinkedTableIDs...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Slot rebuilds the reservation interval in the restaurant's timezone.
func (r Reservation) Slot(tz string) (timeslot.TimeSlot, error) {
	return timeslot.FromDate(r.Date, r.TimeFrom, r.TimeTo, tz)
}

// StatusLogEntry is one row of the reservation audit log.
type StatusLogEntry struct {
	ID            string
	ReservationID string
	From          Status
	To            Status
	DepositStatus DepositStatus
	At            time.Time
	Reason        string
	UserID        string
}
