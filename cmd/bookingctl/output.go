package main

import (
	"fmt"
	"github.com/ariefcatur/go-restaurant-booking/internal/action"
	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/ariefcatur/go-restaurant-booking/internal/redisx"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
	"github.com/ariefcatur/go-restaurant-booking/internal/timeslot"
	"github.com/olekukonko/tablewriter"
	"os"
	"sort"
	"strings"
	"time"
)

func printReservationResult(res action.Result[reservations.Reservation]) {
	r := res.Entity
	fmt.Println(res.Message)
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("field", "value")
	rows := [][]string{
		{"id", r.ID},
		{"status", string(r.Status)},
		{"tables", strings.Join(r.TableIDs(), ",")},
		{"slot", r.Date + " " + r.TimeFrom + "-" + r.TimeTo},
		{"guests", fmt.Sprint(r.GuestsCount)},
		{"deposit", r.Deposit.StringFixed(2) + " (" + string(r.DepositStatus) + ")"},
	}
	if r.OrderID != "" {
		rows = append(rows, []string{"order", r.OrderID})
	}
	rows = append(rows, metaRows(res.Metadata)...)
	for _, row := range rows {
		_ = table.Append(row)
	}
	_ = table.Render()
}

func printOrderResult(res action.Result[orders.Order]) {
	o := res.Entity
	fmt.Println(res.Message)
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("field", "value")
	rows := [][]string{
		{"id", o.ID},
		{"status", string(o.Status)},
		{"type", string(o.Type)},
		{"table", o.TableID},
		{"prepaid", o.PrepaidAmount.StringFixed(2)},
	}
	rows = append(rows, metaRows(res.Metadata)...)
	for _, row := range rows {
		_ = table.Append(row)
	}
	_ = table.Render()
}

func metaRows(meta map[string]any) [][]string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, []string{k, fmt.Sprint(meta[k])})
	}
	return out
}

func printReservations(rs []reservations.Reservation) {
	if len(rs) == 0 {
		fmt.Println("no reservations")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("id", "status", "tables", "from", "to", "guests", "contact", "deposit")
	for _, r := range rs {
		contact := r.ContactName
		if r.CustomerID != "" {
			contact = r.CustomerID
		}
		_ = table.Append([]string{
			r.ID,
			string(r.Status),
			strings.Join(r.TableIDs(), ","),
			r.TimeFrom,
			r.TimeTo,
			fmt.Sprint(r.GuestsCount),
			contact,
			r.Deposit.StringFixed(2) + " " + string(r.DepositStatus),
		})
	}
	_ = table.Render()
}

func printDeposit(r reservations.Reservation, s reservations.DepositSummary) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("reservation", "amount", "status", "required", "collect", "refund", "transfer", "forfeit")
	_ = table.Append([]string{
		r.ID,
		s.Amount.StringFixed(2),
		string(s.Status),
		fmt.Sprint(s.Required),
		fmt.Sprint(s.CanCollect),
		fmt.Sprint(s.CanRefund),
		fmt.Sprint(s.CanTransfer),
		fmt.Sprint(s.CanForfeit),
	})
	_ = table.Render()

	a := s.Audit
	for _, line := range []struct {
		label string
		at    *time.Time
		by    string
		extra string
	}{
		{"paid", a.PaidAt, a.PaidBy, strings.TrimSpace(a.PaymentMethod + " " + a.TransactionID)},
		{"refunded", a.RefundedAt, a.RefundedBy, a.RefundReason},
		{"transferred", a.TransferredAt, a.TransferredBy, a.TransferredToOrderID},
		{"forfeited", a.ForfeitedAt, a.ForfeitedBy, a.ForfeitReason},
	} {
		if line.at == nil {
			continue
		}
		fmt.Printf("%-12s %s by=%q %s\n", line.label, line.at.Format(time.RFC3339), line.by, line.extra)
	}
}

func printConflicts(slot timeslot.TimeSlot, res reservations.ConflictResult) {
	if res.Valid {
		fmt.Printf("free: %s\n", slot)
		return
	}
	fmt.Println(res.Message)
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("reservation", "status", "tables", "slot")
	for _, c := range res.Conflicts {
		_ = table.Append([]string{c.ReservationID, string(c.Status), strings.Join(c.TableIDs, ","), c.Slot.String()})
	}
	_ = table.Render()
}

func printStatus(s redisx.Status) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("kind", "id", "status", "deposit", "event", "updated_at")
	_ = table.Append([]string{s.Kind, s.ID, s.Status, s.DepositStatus, s.EventType, s.UpdatedAt.Format(time.RFC3339)})
	_ = table.Render()
}

// report prints err with its machine readable code and context when it
// carries one.
func report(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	if !apperr.IsBusiness(err) {
		return
	}
	fmt.Fprintln(os.Stderr, "code:", apperr.CodeOf(err))
	ctx := apperr.ContextOf(err)
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", k, ctx[k])
	}
}
