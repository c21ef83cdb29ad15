package reservations

import "github.com/ariefcatur/go-restaurant-booking/internal/fsm"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusSeated    Status = "seated"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

const (
	ActionConfirm  = "confirm"
	ActionSeat     = "seat"
	ActionUnseat   = "unseat"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
	ActionNoShow   = "no_show"
)

var validNext = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusSeated}, // seated = walk-in tanpa konfirmasi
	StatusConfirmed: {StatusSeated, StatusCancelled, StatusNoShow},
	StatusSeated:    {StatusCompleted, StatusConfirmed}, // confirmed = unseat
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// confirm and unseat share a target; confirm accepts only pending, unseat
// only seated. Seated guests cannot be cancelled.
var machine = fsm.New("reservation", validNext,
	fsm.Action[Status]{Name: ActionConfirm, From: []Status{StatusPending}, To: StatusConfirmed},
	fsm.Action[Status]{Name: ActionSeat, From: []Status{StatusPending, StatusConfirmed}, To: StatusSeated},
	fsm.Action[Status]{Name: ActionUnseat, From: []Status{StatusSeated}, To: StatusConfirmed},
	fsm.Action[Status]{Name: ActionComplete, From: []Status{StatusSeated}, To: StatusCompleted},
	fsm.Action[Status]{Name: ActionCancel, From: []Status{StatusPending, StatusConfirmed}, To: StatusCancelled},
	fsm.Action[Status]{Name: ActionNoShow, From: []Status{StatusConfirmed}, To: StatusNoShow},
)

func Machine() *fsm.Machine[Status] { return machine }

func CanTransition(from, to Status) bool { return machine.CanTransition(from, to) }

func AllowedTransitions(from Status) []Status { return machine.Allowed(from) }

func (s Status) IsTerminal() bool { return machine.IsTerminal(s) }

func (s Status) Valid() bool { return machine.Known(s) }

// BlocksTable reports whether a reservation in this status still claims its
// tables for conflict detection.
func (s Status) BlocksTable() bool {
	return s != StatusCancelled && s != StatusCompleted
}

// Editable reports whether date, time and tables may still change.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusConfirmed
}

func CanConfirm(r Reservation) bool  { return machine.Can(ActionConfirm, r.Status) }
func CanSeat(r Reservation) bool     { return machine.Can(ActionSeat, r.Status) }
func CanUnseat(r Reservation) bool   { return machine.Can(ActionUnseat, r.Status) }
func CanComplete(r Reservation) bool { return machine.Can(ActionComplete, r.Status) }
func CanCancel(r Reservation) bool   { return machine.Can(ActionCancel, r.Status) }
func CanNoShow(r Reservation) bool   { return machine.Can(ActionNoShow, r.Status) }

func AssertCanTransition(r Reservation, to Status) error {
	return machine.AssertTransition(r.ID, r.Status, to)
}

func AssertCanConfirm(r Reservation) error  { return machine.Assert(ActionConfirm, r.ID, r.Status) }
func AssertCanSeat(r Reservation) error     { return machine.Assert(ActionSeat, r.ID, r.Status) }
func AssertCanUnseat(r Reservation) error   { return machine.Assert(ActionUnseat, r.ID, r.Status) }
func AssertCanComplete(r Reservation) error { return machine.Assert(ActionComplete, r.ID, r.Status) }
func AssertCanCancel(r Reservation) error   { return machine.Assert(ActionCancel, r.ID, r.Status) }
func AssertCanNoShow(r Reservation) error   { return machine.Assert(ActionNoShow, r.ID, r.Status) }
