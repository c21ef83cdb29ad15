package reservations

import (
	"strings"
	"time"

	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/fsm"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/shopspring/decimal"
)

type DepositStatus string

const (
	DepositPending     DepositStatus = "pending"
	DepositPaid        DepositStatus = "paid"
	DepositRefunded    DepositStatus = "refunded"
	DepositTransferred DepositStatus = "transferred"
	DepositForfeited   DepositStatus = "forfeited"
)

const (
	depositPay      = "pay"
	depositRefund   = "refund"
	depositTransfer = "transfer"
	depositForfeit  = "forfeit"
)

const DefaultForfeitReason = "No-show"

var depositMachine = fsm.New("deposit", map[DepositStatus][]DepositStatus{
	DepositPending:     {DepositPaid},
	DepositPaid:        {DepositRefunded, DepositTransferred, DepositForfeited},
	DepositRefunded:    {},
	DepositTransferred: {},
	DepositForfeited:   {},
},
	fsm.Action[DepositStatus]{Name: depositPay, From: []DepositStatus{DepositPending}, To: DepositPaid},
	fsm.Action[DepositStatus]{Name: depositRefund, From: []DepositStatus{DepositPaid}, To: DepositRefunded},
	fsm.Action[DepositStatus]{Name: depositTransfer, From: []DepositStatus{DepositPaid}, To: DepositTransferred},
	fsm.Action[DepositStatus]{Name: depositForfeit, From: []DepositStatus{DepositPaid}, To: DepositForfeited},
)

func (s DepositStatus) IsTerminal() bool { return depositMachine.IsTerminal(s) }

// Payment describes how a deposit was collected.
type Payment struct {
	Method        string
	TransactionID string
	UserID        string
}

// TransferResult is the outcome of moving a deposit onto an order.
type TransferResult struct {
	Reservation Reservation
	Order       orders.Order
	Amount      decimal.Decimal
}

type DepositSummary struct {
	Amount      decimal.Decimal `json:"amount"`
	Status      DepositStatus   `json:"status"`
	Required    bool            `json:"required"`
	CanCollect  bool            `json:"can_collect"`
	CanRefund   bool            `json:"can_refund"`
	CanTransfer bool            `json:"can_transfer"`
	CanForfeit  bool            `json:"can_forfeit"`
	Audit       DepositAudit    `json:"audit"`
}

// Ledger owns the deposit lifecycle. Every method takes the reservation by
// value and returns the updated copy; the amount itself never changes.
type Ledger struct {
	clock clock.Clock
}

func NewLedger(c clock.Clock) Ledger { return Ledger{clock: clock.Or(c)} }

func RequiresDeposit(r Reservation) bool { return r.Deposit.IsPositive() }

func (l Ledger) CanCollect(r Reservation) bool {
	return RequiresDeposit(r) && depositMachine.Can(depositPay, r.DepositStatus)
}

func (l Ledger) CanRefund(r Reservation) bool {
	return depositMachine.Can(depositRefund, r.DepositStatus)
}

func (l Ledger) CanTransfer(r Reservation) bool {
	return depositMachine.Can(depositTransfer, r.DepositStatus)
}

func (l Ledger) CanForfeit(r Reservation) bool {
	return depositMachine.Can(depositForfeit, r.DepositStatus)
}

func (l Ledger) MarkAsPaid(r Reservation, p Payment) (Reservation, error) {
	if !RequiresDeposit(r) {
		return r, l.fail(r, depositPay, DepositNotRequired)
	}
	if err := l.check(r, depositPay); err != nil {
		return r, err
	}
	now := l.now()
	r.DepositStatus = DepositPaid
	r.DepositAudit.PaymentMethod = strings.TrimSpace(p.Method)
	r.DepositAudit.TransactionID = strings.TrimSpace(p.TransactionID)
	r.DepositAudit.PaidBy = p.UserID
	r.DepositAudit.PaidAt = &now
	r.UpdatedAt = now
	return r, nil
}

func (l Ledger) Refund(r Reservation, reason, userID string) (Reservation, error) {
	if err := l.check(r, depositRefund); err != nil {
		return r, err
	}
	now := l.now()
	r.DepositStatus = DepositRefunded
	r.DepositAudit.RefundedAt = &now
	r.DepositAudit.RefundedBy = userID
	r.DepositAudit.RefundReason = strings.TrimSpace(reason)
	r.UpdatedAt = now
	return r, nil
}

// TransferToOrder adds the deposit to the order's prepaid amount. The order
// must be the one created for this reservation.
func (l Ledger) TransferToOrder(r Reservation, o orders.Order, userID string) (TransferResult, error) {
	if err := l.check(r, depositTransfer); err != nil {
		return TransferResult{Reservation: r, Order: o}, err
	}
	if o.ReservationID != r.ID || (r.OrderID != "" && r.OrderID != o.ID) {
		err := l.fail(r, depositTransfer, DepositOrderMismatch)
		err.OrderID = o.ID
		return TransferResult{Reservation: r, Order: o}, err
	}
	now := l.now()
	amount := r.Deposit

	o.PrepaidAmount = o.PrepaidAmount.Add(amount)
	o.PrepaidSource = orders.PrepaidSourceReservationDeposit
	o.UpdatedAt = now

	r.DepositStatus = DepositTransferred
	r.OrderID = o.ID
	r.DepositAudit.TransferredToOrderID = o.ID
	r.DepositAudit.TransferredAt = &now
	r.DepositAudit.TransferredBy = userID
	r.UpdatedAt = now
	return TransferResult{Reservation: r, Order: o, Amount: amount}, nil
}

// Forfeit keeps the deposit; reason defaults to DefaultForfeitReason.
func (l Ledger) Forfeit(r Reservation, reason, userID string) (Reservation, error) {
	if err := l.check(r, depositForfeit); err != nil {
		return r, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultForfeitReason
	}
	now := l.now()
	r.DepositStatus = DepositForfeited
	r.DepositAudit.ForfeitedAt = &now
	r.DepositAudit.ForfeitedBy = userID
	r.DepositAudit.ForfeitReason = reason
	r.UpdatedAt = now
	return r, nil
}

func (l Ledger) Summary(r Reservation) DepositSummary {
	return DepositSummary{
		Amount:      r.Deposit,
		Status:      r.DepositStatus,
		Required:    RequiresDeposit(r),
		CanCollect:  l.CanCollect(r),
		CanRefund:   l.CanRefund(r),
		CanTransfer: l.CanTransfer(r),
		CanForfeit:  l.CanForfeit(r),
		Audit:       r.DepositAudit,
	}
}

func (l Ledger) check(r Reservation, op string) error {
	if depositMachine.Can(op, r.DepositStatus) {
		return nil
	}
	return l.fail(r, op, reasonFor(r.DepositStatus))
}

func (l Ledger) fail(r Reservation, op string, reason DepositReason) *DepositError {
	return &DepositError{
		Reason:        reason,
		Operation:     op,
		ReservationID: r.ID,
		Amount:        r.Deposit,
		Status:        r.DepositStatus,
	}
}

func (l Ledger) now() time.Time {
	return clock.Or(l.clock).Now()
}

func reasonFor(s DepositStatus) DepositReason {
	switch s {
	case DepositPaid:
		return DepositAlreadyPaid
	case DepositRefunded:
		return DepositAlreadyRefunded
	case DepositTransferred:
		return DepositAlreadyTransferred
	case DepositForfeited:
		return DepositAlreadyForfeited
	}
	return DepositNotPaid
}
