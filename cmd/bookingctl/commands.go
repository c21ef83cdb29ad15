package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/ariefcatur/go-restaurant-booking/internal/action"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/ariefcatur/go-restaurant-booking/internal/redisx"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
	"github.com/ariefcatur/go-restaurant-booking/internal/timeslot"
	"github.com/shopspring/decimal"
	"strings"
	"time"
)

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "add-restaurant":
		return a.addRestaurant(ctx, args)
	case "add-table":
		return a.addTable(ctx, args)
	case "add-customer":
		return a.addCustomer(ctx, args)
	case "create":
		return a.create(ctx, args)
	case "reschedule":
		return a.reschedule(ctx, args)
	case "confirm", "unseat", "complete":
		return a.simple(ctx, cmd, args)
	case "seat":
		return a.seat(ctx, args)
	case "cancel":
		return a.cancel(ctx, args)
	case "no-show":
		return a.noShow(ctx, args)
	case "pay-deposit":
		return a.payDeposit(ctx, args)
	case "refund-deposit":
		return a.refundDeposit(ctx, args)
	case "deposit":
		return a.depositSummary(ctx, args)
	case "check":
		return a.check(ctx, args)
	case "list":
		return a.list(ctx, args)
	case "order":
		return a.order(ctx, args)
	}
	return fmt.Errorf("unknown command %q (try: bookingctl help)", cmd)
}

func newFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	user := fs.String("user", "", "acting user id")
	return fs, user
}

func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("-%s is required", pairs[i])
		}
	}
	return nil
}

// csv splits a comma separated flag value, dropping blanks.
func csv(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (a *app) addRestaurant(ctx context.Context, args []string) error {
	fs, _ := newFlags("add-restaurant")
	id := fs.String("id", "", "restaurant id")
	name := fs.String("name", "", "display name")
	tz := fs.String("tz", a.cfg.DefaultTimezone, "IANA timezone")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id, "name", *name); err != nil {
		return err
	}
	if _, err := time.LoadLocation(*tz); err != nil {
		return fmt.Errorf("-tz: %w", err)
	}
	if err := a.store.UpsertRestaurant(ctx, *id, *name, *tz); err != nil {
		return err
	}
	fmt.Printf("restaurant %s saved (%s)\n", *id, *tz)
	return nil
}

func (a *app) addTable(ctx context.Context, args []string) error {
	fs, _ := newFlags("add-table")
	id := fs.String("id", "", "table id")
	restaurant := fs.String("restaurant", "", "restaurant id")
	number := fs.String("number", "", "table number shown to staff")
	capacity := fs.Int("capacity", 2, "seats")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id, "restaurant", *restaurant); err != nil {
		return err
	}
	if *capacity < 1 {
		return fmt.Errorf("-capacity must be positive")
	}
	if *number == "" {
		*number = *id
	}
	tb := orders.Table{ID: *id, RestaurantID: *restaurant, Number: *number, Capacity: *capacity}
	if err := a.store.UpsertTable(ctx, tb); err != nil {
		return err
	}
	fmt.Printf("table %s saved (%d seats)\n", *id, *capacity)
	return nil
}

func (a *app) addCustomer(ctx context.Context, args []string) error {
	fs, _ := newFlags("add-customer")
	id := fs.String("id", "", "customer id")
	name := fs.String("name", "", "name")
	phone := fs.String("phone", "", "phone")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id, "name", *name); err != nil {
		return err
	}
	if err := a.store.UpsertCustomer(ctx, *id, *name, *phone); err != nil {
		return err
	}
	fmt.Printf("customer %s saved\n", *id)
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	fs, user := newFlags("create")
	var in reservations.CreateInput
	fs.StringVar(&in.RestaurantID, "restaurant", "", "restaurant id")
	fs.StringVar(&in.TableID, "table", "", "main table id")
	linked := fs.String("linked", "", "comma separated linked table ids")
	fs.StringVar(&in.Date, "date", "", "YYYY-MM-DD")
	fs.StringVar(&in.TimeFrom, "from", "", "HH:MM")
	fs.StringVar(&in.TimeTo, "to", "", "HH:MM, at or before -from means next day")
	fs.IntVar(&in.GuestsCount, "guests", 2, "party size")
	deposit := fs.String("deposit", "0", "deposit amount")
	fs.StringVar(&in.CustomerID, "customer", "", "customer id")
	fs.StringVar(&in.ContactName, "name", "", "contact name")
	fs.StringVar(&in.ContactPhone, "phone", "", "contact phone")
	fs.StringVar(&in.Notes, "notes", "", "notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := decimal.NewFromString(*deposit)
	if err != nil {
		return fmt.Errorf("-deposit: %w", err)
	}
	in.Deposit = d
	in.LinkedTableIDs = csv(*linked)
	in.UserID = *user

	res, err := a.reservations.Create(ctx, in)
	if err != nil {
		return err
	}
	printReservationResult(res)
	return nil
}

func (a *app) reschedule(ctx context.Context, args []string) error {
	fs, user := newFlags("reschedule")
	id := fs.String("id", "", "reservation id")
	var in reservations.RescheduleInput
	fs.StringVar(&in.Date, "date", "", "YYYY-MM-DD")
	fs.StringVar(&in.TimeFrom, "from", "", "HH:MM")
	fs.StringVar(&in.TimeTo, "to", "", "HH:MM")
	fs.StringVar(&in.TableID, "table", "", "new main table id, empty keeps the current tables")
	linked := fs.String("linked", "", "comma separated linked table ids")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id, "date", in.Date, "from", in.TimeFrom, "to", in.TimeTo); err != nil {
		return err
	}
	in.LinkedTableIDs = csv(*linked)
	in.UserID = *user

	res, err := a.reservations.Reschedule(ctx, *id, in)
	if err != nil {
		return err
	}
	printReservationResult(res)
	return nil
}

func (a *app) simple(ctx context.Context, cmd string, args []string) error {
	fs, user := newFlags(cmd)
	id := fs.String("id", "", "reservation id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}

	var (
		res action.Result[reservations.Reservation]
		err error
	)
	switch cmd {
	case "confirm":
		res, err = a.reservations.Confirm(ctx, *id, *user)
	case "unseat":
		res, err = a.reservations.Unseat(ctx, *id, *user)
	case "complete":
		res, err = a.reservations.Complete(ctx, *id, *user)
	}
	if err != nil {
		return err
	}
	printReservationResult(res)
	return nil
}

func (a *app) seat(ctx context.Context, args []string) error {
	fs, user := newFlags("seat")
	id := fs.String("id", "", "reservation id")
	var opt reservations.SeatOptions
	fs.BoolVar(&opt.CreateOrder, "create-order", true, "open a dine-in order on the main table")
	fs.BoolVar(&opt.TransferDeposit, "transfer-deposit", true, "move a paid deposit onto the order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	opt.UserID = *user

	res, err := a.reservations.Seat(ctx, *id, opt)
	if err != nil {
		return err
	}
	printReservationResult(res)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs, user := newFlags("cancel")
	id := fs.String("id", "", "reservation id")
	var opt reservations.CancelOptions
	fs.StringVar(&opt.Reason, "reason", "", "cancellation reason")
	fs.BoolVar(&opt.RefundDeposit, "refund", false, "refund a paid deposit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	opt.UserID = *user

	res, err := a.reservations.Cancel(ctx, *id, opt)
	if err != nil {
		return err
	}
	printReservationResult(res)
	return nil
}

func (a *app) noShow(ctx context.Context, args []string) error {
	fs, user := newFlags("no-show")
	id := fs.String("id", "", "reservation id")
	var opt reservations.NoShowOptions
	fs.StringVar(&opt.Reason, "reason", "", "forfeit reason")
	fs.BoolVar(&opt.ForfeitDeposit, "forfeit", true, "forfeit a paid deposit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	opt.UserID = *user

	res, err := a.reservations.MarkNoShow(ctx, *id, opt)
	if err != nil {
		return err
	}
	printReservationResult(res)
	return nil
}

func (a *app) payDeposit(ctx context.Context, args []string) error {
	fs, user := newFlags("pay-deposit")
	id := fs.String("id", "", "reservation id")
	var p reservations.Payment
	fs.StringVar(&p.Method, "method", "", "payment method")
	fs.StringVar(&p.TransactionID, "tx", "", "payment transaction id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id, "method", p.Method); err != nil {
		return err
	}
	p.UserID = *user

	res, err := a.reservations.MarkDepositPaid(ctx, *id, p)
	if err != nil {
		return err
	}
	printReservationResult(res)
	return nil
}

func (a *app) refundDeposit(ctx context.Context, args []string) error {
	fs, user := newFlags("refund-deposit")
	id := fs.String("id", "", "reservation id")
	reason := fs.String("reason", "", "refund reason")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}

	res, err := a.reservations.RefundDeposit(ctx, *id, *reason, *user)
	if err != nil {
		return err
	}
	printReservationResult(res)
	return nil
}

func (a *app) depositSummary(ctx context.Context, args []string) error {
	fs, _ := newFlags("deposit")
	id := fs.String("id", "", "reservation id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	r, err := a.store.GetReservation(ctx, *id)
	if err != nil {
		return err
	}
	printDeposit(r, a.ledger.Summary(r))
	return nil
}

func (a *app) check(ctx context.Context, args []string) error {
	fs, _ := newFlags("check")
	restaurant := fs.String("restaurant", "", "restaurant id")
	table := fs.String("table", "", "main table id")
	linked := fs.String("linked", "", "comma separated linked table ids")
	date := fs.String("date", "", "YYYY-MM-DD")
	from := fs.String("from", "", "HH:MM")
	to := fs.String("to", "", "HH:MM")
	exclude := fs.String("exclude", "", "reservation id to ignore")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("restaurant", *restaurant, "table", *table, "date", *date, "from", *from, "to", *to); err != nil {
		return err
	}
	tz, err := defaultZone{store: a.store, def: a.cfg.DefaultTimezone}.Timezone(ctx, *restaurant)
	if err != nil {
		return err
	}
	slot, err := timeslot.FromDate(*date, *from, *to, tz)
	if err != nil {
		return err
	}
	if err := a.detector.ValidateSlot(slot, *exclude != ""); err != nil {
		return err
	}
	res, err := a.detector.ValidateNoConflict(ctx, append([]string{*table}, csv(*linked)...), slot,
		reservations.CheckOptions{ExcludeID: *exclude, RestaurantID: *restaurant})
	if err != nil {
		return err
	}
	printConflicts(slot, res)
	return res.Err()
}

func (a *app) list(ctx context.Context, args []string) error {
	fs, _ := newFlags("list")
	restaurant := fs.String("restaurant", "", "restaurant id")
	date := fs.String("date", "", "YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("restaurant", *restaurant, "date", *date); err != nil {
		return err
	}
	rs, err := a.store.ListReservations(ctx, *restaurant, *date)
	if err != nil {
		return err
	}
	printReservations(rs)
	return nil
}

func (a *app) order(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("order needs an action: confirm|start-cooking|mark-ready|mark-served|start-delivering|complete|cancel")
	}
	act := args[0]
	fs, user := newFlags("order " + act)
	id := fs.String("id", "", "order id")
	courier := fs.String("courier", "", "courier id, for start-delivering")
	reason := fs.String("reason", "", "cancellation reason")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}

	var (
		res action.Result[orders.Order]
		err error
	)
	switch act {
	case "confirm":
		res, err = a.orders.Confirm(ctx, *id, *user)
	case "start-cooking":
		res, err = a.orders.StartCooking(ctx, *id, *user)
	case "mark-ready":
		res, err = a.orders.MarkReady(ctx, *id, *user)
	case "mark-served":
		res, err = a.orders.MarkServed(ctx, *id, *user)
	case "start-delivering":
		res, err = a.orders.StartDelivering(ctx, *id, *courier, *user)
	case "complete":
		res, err = a.orders.Complete(ctx, *id, *user)
	case "cancel":
		res, err = a.orders.Cancel(ctx, *id, *reason, *user)
	default:
		return fmt.Errorf("unknown order action %q", act)
	}
	if err != nil {
		return err
	}
	printOrderResult(res)
	return nil
}

func statusCmd(ctx context.Context, cache *redisx.StatusCache, args []string) error {
	fs, _ := newFlags("status")
	kind := fs.String("kind", redisx.KindReservation, "order|reservation")
	id := fs.String("id", "", "entity id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	if *kind != redisx.KindOrder && *kind != redisx.KindReservation {
		return fmt.Errorf("-kind must be %s or %s", redisx.KindOrder, redisx.KindReservation)
	}
	s, ok, err := cache.Get(ctx, *kind, *id)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("%s %s: not projected yet\n", *kind, *id)
		return nil
	}
	printStatus(s)
	return nil
}
