package orders

import "github.com/ariefcatur/go-restaurant-booking/internal/fsm"

type Status string

const (
	StatusNew        Status = "new"
	StatusConfirmed  Status = "confirmed"
	StatusCooking    Status = "cooking"
	StatusReady      Status = "ready"
	StatusServed     Status = "served"
	StatusDelivering Status = "delivering"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

const (
	ActionConfirm         = "confirm"
	ActionStartCooking    = "start_cooking"
	ActionMarkReady       = "mark_ready"
	ActionMarkServed      = "mark_served"
	ActionStartDelivering = "start_delivering"
	ActionComplete        = "complete"
	ActionCancel          = "cancel"
)

var validNext = map[Status][]Status{
	StatusNew:        {StatusConfirmed, StatusCooking, StatusCancelled},
	StatusConfirmed:  {StatusCooking, StatusCancelled},
	StatusCooking:    {StatusReady, StatusCancelled},
	StatusReady:      {StatusServed, StatusDelivering, StatusCompleted, StatusCancelled},
	StatusServed:     {StatusCompleted, StatusCancelled},
	StatusDelivering: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// Confirm is narrower than the adjacency: new -> cooking exists for flows
// that skip confirmation, but only new may be confirmed.
var machine = fsm.New("order", validNext,
	fsm.Action[Status]{Name: ActionConfirm, From: []Status{StatusNew}, To: StatusConfirmed},
	fsm.Action[Status]{Name: ActionStartCooking, From: []Status{StatusNew, StatusConfirmed}, To: StatusCooking},
	fsm.Action[Status]{Name: ActionMarkReady, From: []Status{StatusCooking}, To: StatusReady},
	fsm.Action[Status]{Name: ActionMarkServed, From: []Status{StatusReady}, To: StatusServed},
	fsm.Action[Status]{Name: ActionStartDelivering, From: []Status{StatusReady}, To: StatusDelivering},
	fsm.Action[Status]{Name: ActionComplete, From: []Status{StatusReady, StatusServed, StatusDelivering}, To: StatusCompleted},
	fsm.Action[Status]{Name: ActionCancel, From: []Status{StatusNew, StatusConfirmed, StatusCooking, StatusReady, StatusServed, StatusDelivering}, To: StatusCancelled},
)

// Machine exposes the order status table read-only.
func Machine() *fsm.Machine[Status] { return machine }

func CanTransition(from, to Status) bool { return machine.CanTransition(from, to) }

func AllowedTransitions(from Status) []Status { return machine.Allowed(from) }

func (s Status) IsTerminal() bool { return machine.IsTerminal(s) }

func (s Status) Valid() bool { return machine.Known(s) }

func CanConfirm(o Order) bool         { return machine.Can(ActionConfirm, o.Status) }
func CanStartCooking(o Order) bool    { return machine.Can(ActionStartCooking, o.Status) }
func CanMarkReady(o Order) bool       { return machine.Can(ActionMarkReady, o.Status) }
func CanMarkServed(o Order) bool      { return machine.Can(ActionMarkServed, o.Status) }
func CanStartDelivering(o Order) bool { return machine.Can(ActionStartDelivering, o.Status) }
func CanComplete(o Order) bool        { return machine.Can(ActionComplete, o.Status) }
func CanCancel(o Order) bool          { return machine.Can(ActionCancel, o.Status) }

func AssertCanTransition(o Order, to Status) error {
	return machine.AssertTransition(o.ID, o.Status, to)
}

func AssertCanConfirm(o Order) error { return machine.Assert(ActionConfirm, o.ID, o.Status) }
func AssertCanStartCooking(o Order) error {
	return machine.Assert(ActionStartCooking, o.ID, o.Status)
}
func AssertCanMarkReady(o Order) error  { return machine.Assert(ActionMarkReady, o.ID, o.Status) }
func AssertCanMarkServed(o Order) error { return machine.Assert(ActionMarkServed, o.ID, o.Status) }
func AssertCanStartDelivering(o Order) error {
	return machine.Assert(ActionStartDelivering, o.ID, o.Status)
}
func AssertCanComplete(o Order) error { return machine.Assert(ActionComplete, o.ID, o.Status) }
func AssertCanCancel(o Order) error   { return machine.Assert(ActionCancel, o.ID, o.Status) }
