package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ariefcatur/go-restaurant-booking/internal/apperr"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the transactional persistence of orders, reservations, tables
// and customers.
type Store struct {
	DB        *pgxpool.Pool
	TxTimeout time.Duration
	reader
}

func NewStore(db *pgxpool.Pool, txTimeout time.Duration) *Store {
	return &Store{DB: db, TxTimeout: txTimeout, reader: reader{q: db}}
}

// Orders returns the unit of work used by orders.Actions.
func (s *Store) Orders() orders.TxRunner { return orderRunner{s} }

// Reservations returns the unit of work used by reservations.Actions.
func (s *Store) Reservations() reservations.TxRunner { return reservationRunner{s} }

type orderRunner struct{ s *Store }

func (r orderRunner) InTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	return r.s.inTx(ctx, func(tx *Tx) error { return fn(tx) })
}

type reservationRunner struct{ s *Store }

func (r reservationRunner) InTx(ctx context.Context, fn func(tx reservations.Tx) error) error {
	return r.s.inTx(ctx, func(tx *Tx) error { return fn(tx) })
}

func (s *Store) inTx(ctx context.Context, fn func(tx *Tx) error) error {
	if s.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.TxTimeout)
		defer cancel()
	}
	pgtx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = pgtx.Rollback(ctx) }()

	if err := fn(&Tx{tx: pgtx, reader: reader{q: pgtx}}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Tx implements orders.Tx and reservations.Tx on one pgx transaction.
type Tx struct {
	tx pgx.Tx
	reader
}

var (
	_ orders.Tx       = (*Tx)(nil)
	_ reservations.Tx = (*Tx)(nil)
)

func (t *Tx) LockOrder(ctx context.Context, id string) (*orders.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, selectOrder+` WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock order %s: %w", id, err)
	}
	return &o, nil
}

func (t *Tx) InsertOrder(ctx context.Context, o *orders.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, restaurant_id, customer_id, reservation_id, status, type, table_id,
		                   prepaid_amount, prepaid_source, created_at, updated_at)
		VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,NULLIF($7,''),$8::text::numeric,$9,$10,$11)`,
		o.ID, o.RestaurantID, o.CustomerID, o.ReservationID, string(o.Status), string(o.Type), o.TableID,
		o.PrepaidAmount.String(), string(o.PrepaidSource), o.CreatedAt, o.UpdatedAt)
	return err
}

func (t *Tx) SaveOrder(ctx context.Context, o *orders.Order) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET
			status=$2, courier_id=$3,
			confirmed_at=$4, cooking_started_at=$5, ready_at=$6, served_at=$7,
			picked_up_at=$8, delivered_at=$9, completed_at=$10, cancelled_at=$11,
			cancelled_by=$12, cancel_reason=$13,
			prepaid_amount=$14::text::numeric, prepaid_source=$15, updated_at=$16
		WHERE id=$1`,
		o.ID, string(o.Status), o.CourierID,
		o.ConfirmedAt, o.CookingStartedAt, o.ReadyAt, o.ServedAt,
		o.PickedUpAt, o.DeliveredAt, o.CompletedAt, o.CancelledAt,
		o.CancelledBy, o.CancelReason,
		o.PrepaidAmount.String(), string(o.PrepaidSource), o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("order", o.ID)
	}
	return nil
}

func (t *Tx) AppendOrderLog(ctx context.Context, e orders.StatusLogEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_status_log(id, order_id, from_status, to_status, reason, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.OrderID, string(e.From), string(e.To), e.Reason, e.UserID, e.At)
	return err
}

func (t *Tx) OccupyTable(ctx context.Context, tableID string) error {
	return t.setTable(ctx, tableID, orders.TableOccupied)
}

func (t *Tx) FreeTable(ctx context.Context, tableID string) error {
	return t.setTable(ctx, tableID, orders.TableFree)
}

func (t *Tx) setTable(ctx context.Context, tableID string, status orders.TableStatus) error {
	ct, err := t.tx.Exec(ctx, `UPDATE restaurant_tables SET status=$2, updated_at=now() WHERE id=$1`, tableID, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("table", tableID)
	}
	return nil
}

func (t *Tx) RecordVisit(ctx context.Context, customerID string, at time.Time) error {
	return t.bumpCustomer(ctx, customerID,
		`UPDATE customers SET visits_count = visits_count + 1, last_visit_at = $2 WHERE id=$1`, at)
}

func (t *Tx) RecordNoShow(ctx context.Context, customerID string, _ time.Time) error {
	return t.bumpCustomer(ctx, customerID, `UPDATE customers SET no_show_count = no_show_count + 1 WHERE id=$1`)
}

func (t *Tx) bumpCustomer(ctx context.Context, customerID, sql string, args ...any) error {
	ct, err := t.tx.Exec(ctx, sql, append([]any{customerID}, args...)...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("customer", customerID)
	}
	return nil
}

func (t *Tx) LockReservation(ctx context.Context, id string) (*reservations.Reservation, error) {
	r, err := scanReservation(t.tx.QueryRow(ctx, selectReservation+` WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("reservation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock reservation %s: %w", id, err)
	}
	return &r, nil
}

// LockTables takes FOR UPDATE on the table rows in id order so concurrent
// bookings of overlapping table sets queue instead of deadlocking.
func (t *Tx) LockTables(ctx context.Context, restaurantID string, ids []string) ([]orders.Table, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	rows, err := t.tx.Query(ctx, `
		SELECT id, restaurant_id, number, capacity, status
		FROM restaurant_tables
		WHERE restaurant_id=$1 AND id = ANY($2::text[])
		ORDER BY id
		FOR UPDATE`, restaurantID, ids)
	if err != nil {
		return nil, fmt.Errorf("lock tables: %w", err)
	}
	defer rows.Close()

	var out []orders.Table
	for rows.Next() {
		var tb orders.Table
		var status string
		if err := rows.Scan(&tb.ID, &tb.RestaurantID, &tb.Number, &tb.Capacity, &status); err != nil {
			return nil, err
		}
		tb.Status = orders.TableStatus(status)
		out = append(out, tb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if id := firstMissing(ids, out); id != "" {
		return nil, apperr.NotFound("table", id)
	}
	return out, nil
}

func (t *Tx) InsertReservation(ctx context.Context, r *reservations.Reservation) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO reservations(id, restaurant_id, customer_id, contact_name, contact_phone, status,
		                         table_id, linked_table_ids, date, time_from, time_to, guests_count, notes,
		                         deposit, deposit_status, created_at, updated_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8::text[],$9::text::date,$10::text::time,$11::text::time,$12,$13,
		        $14::text::numeric,$15,$16,$17)`,
		r.ID, r.RestaurantID, r.CustomerID, r.ContactName, r.ContactPhone, string(r.Status),
		r.TableID, nonNil(r.LinkedTableIDs), r.Date, r.TimeFrom, r.TimeTo, r.GuestsCount, r.Notes,
		r.Deposit.String(), string(r.DepositStatus), r.CreatedAt, r.UpdatedAt)
	return err
}

func (t *Tx) SaveReservation(ctx context.Context, r *reservations.Reservation) error {
	a := r.DepositAudit
	ct, err := t.tx.Exec(ctx, `
		UPDATE reservations SET
			status=$2, table_id=$3, linked_table_ids=$4::text[],
			date=$5::text::date, time_from=$6::text::time, time_to=$7::text::time,
			guests_count=$8, notes=$9, order_id=NULLIF($10,''),
			deposit_status=$11, deposit_payment_method=$12, deposit_transaction_id=$13,
			deposit_paid_at=$14, deposit_paid_by=$15,
			deposit_refunded_at=$16, deposit_refunded_by=$17, deposit_refund_reason=$18,
			deposit_transferred_to=$19, deposit_transferred_at=$20, deposit_transferred_by=$21,
			deposit_forfeited_at=$22, deposit_forfeited_by=$23, deposit_forfeit_reason=$24,
			confirmed_at=$25, seated_at=$26, completed_at=$27, cancelled_at=$28,
			cancelled_by=$29, cancel_reason=$30, no_show_at=$31, updated_at=$32
		WHERE id=$1`,
		r.ID, string(r.Status), r.TableID, nonNil(r.LinkedTableIDs),
		r.Date, r.TimeFrom, r.TimeTo,
		r.GuestsCount, r.Notes, r.OrderID,
		string(r.DepositStatus), a.PaymentMethod, a.TransactionID,
		a.PaidAt, a.PaidBy,
		a.RefundedAt, a.RefundedBy, a.RefundReason,
		a.TransferredToOrderID, a.TransferredAt, a.TransferredBy,
		a.ForfeitedAt, a.ForfeitedBy, a.ForfeitReason,
		r.ConfirmedAt, r.SeatedAt, r.CompletedAt, r.CancelledAt,
		r.CancelledBy, r.CancelReason, r.NoShowAt, r.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("reservation", r.ID)
	}
	return nil
}

func (t *Tx) AppendReservationLog(ctx context.Context, e reservations.StatusLogEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO reservation_status_log(id, reservation_id, from_status, to_status, deposit_status, reason, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.ReservationID, string(e.From), string(e.To), string(e.DepositStatus), e.Reason, e.UserID, e.At)
	return err
}

// reader holds the queries that work both inside and outside a transaction.
type reader struct{ q querier }

func (r reader) FindActiveForTables(ctx context.Context, q reservations.ConflictQuery) ([]reservations.Reservation, error) {
	return r.listReservations(ctx, selectReservation+`
		WHERE status NOT IN ('cancelled', 'completed')
		  AND date BETWEEN $1::text::date AND $2::text::date
		  AND (table_id = ANY($3::text[]) OR linked_table_ids && $3::text[])
		  AND ($4 = '' OR id <> $4)
		  AND ($5 = '' OR restaurant_id = $5)
		ORDER BY date, time_from`,
		q.FromDate, q.ToDate, q.TableIDs, q.ExcludeID, q.RestaurantID)
}

func (r reader) Timezone(ctx context.Context, restaurantID string) (string, error) {
	var tz string
	err := r.q.QueryRow(ctx, `SELECT timezone FROM restaurants WHERE id=$1`, restaurantID).Scan(&tz)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("restaurant", restaurantID)
	}
	return tz, err
}

func (r reader) GetReservation(ctx context.Context, id string) (reservations.Reservation, error) {
	res, err := scanReservation(r.q.QueryRow(ctx, selectReservation+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return res, apperr.NotFound("reservation", id)
	}
	return res, err
}

// ListReservations returns the reservations of one restaurant on date.
func (r reader) ListReservations(ctx context.Context, restaurantID, date string) ([]reservations.Reservation, error) {
	return r.listReservations(ctx, selectReservation+`
		WHERE restaurant_id=$1 AND date=$2::text::date
		ORDER BY time_from, table_id`, restaurantID, date)
}

func (r reader) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, selectOrder+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return o, apperr.NotFound("order", id)
	}
	return o, err
}

func (r reader) listReservations(ctx context.Context, sql string, args ...any) ([]reservations.Reservation, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reservations.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// UpsertRestaurant, UpsertTable and UpsertCustomer seed reference data.
func (s *Store) UpsertRestaurant(ctx context.Context, id, name, timezone string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO restaurants(id, name, timezone) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, timezone=EXCLUDED.timezone`, id, name, timezone)
	return err
}

func (s *Store) UpsertTable(ctx context.Context, tb orders.Table) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO restaurant_tables(id, restaurant_id, number, capacity) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET number=EXCLUDED.number, capacity=EXCLUDED.capacity`,
		tb.ID, tb.RestaurantID, tb.Number, tb.Capacity)
	return err
}

func (s *Store) UpsertCustomer(ctx context.Context, id, name, phone string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO customers(id, name, phone) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, phone=EXCLUDED.phone`, id, name, phone)
	return err
}

const selectOrder = `
	SELECT id, restaurant_id, COALESCE(customer_id,''), COALESCE(reservation_id,''), status, type,
	       COALESCE(table_id,''), courier_id,
	       confirmed_at, cooking_started_at, ready_at, served_at, picked_up_at, delivered_at,
	       completed_at, cancelled_at, cancelled_by, cancel_reason,
	       prepaid_amount::text, prepaid_source, created_at, updated_at
	FROM orders`

func scanOrder(row pgx.Row) (orders.Order, error) {
	var (
		o                         orders.Order
		status, typ, src, prepaid string
	)
	err := row.Scan(&o.ID, &o.RestaurantID, &o.CustomerID, &o.ReservationID, &status, &typ,
		&o.TableID, &o.CourierID,
		&o.ConfirmedAt, &o.CookingStartedAt, &o.ReadyAt, &o.ServedAt, &o.PickedUpAt, &o.DeliveredAt,
		&o.CompletedAt, &o.CancelledAt, &o.CancelledBy, &o.CancelReason,
		&prepaid, &src, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	o.Status, o.Type, o.PrepaidSource = orders.Status(status), orders.Type(typ), orders.PrepaidSource(src)
	if o.PrepaidAmount, err = decimal.NewFromString(prepaid); err != nil {
		return o, fmt.Errorf("order %s prepaid_amount %q: %w", o.ID, prepaid, err)
	}
	return o, nil
}

const selectReservation = `
	SELECT id, restaurant_id, COALESCE(customer_id,''), contact_name, contact_phone, status,
	       table_id, linked_table_ids, date::text, time_from::text, time_to::text,
	       guests_count, notes, COALESCE(order_id,''),
	       deposit::text, deposit_status, deposit_payment_method, deposit_transaction_id,
	       deposit_paid_at, deposit_paid_by,
	       deposit_refunded_at, deposit_refunded_by, deposit_refund_reason,
	       deposit_transferred_to, deposit_transferred_at, deposit_transferred_by,
	       deposit_forfeited_at, deposit_forfeited_by, deposit_forfeit_reason,
	       confirmed_at, seated_at, completed_at, cancelled_at, cancelled_by, cancel_reason, no_show_at,
	       created_at, updated_at
	FROM reservations`

func scanReservation(row pgx.Row) (reservations.Reservation, error) {
	var (
		r                        reservations.Reservation
		status, depStatus, depos string
	)
	a := &r.DepositAudit
	err := row.Scan(&r.ID, &r.RestaurantID, &r.CustomerID, &r.ContactName, &r.ContactPhone, &status,
		&r.TableID, &r.LinkedTableIDs, &r.Date, &r.TimeFrom, &r.TimeTo,
		&r.GuestsCount, &r.Notes, &r.OrderID,
		&depos, &depStatus, &a.PaymentMethod, &a.TransactionID,
		&a.PaidAt, &a.PaidBy,
		&a.RefundedAt, &a.RefundedBy, &a.RefundReason,
		&a.TransferredToOrderID, &a.TransferredAt, &a.TransferredBy,
		&a.ForfeitedAt, &a.ForfeitedBy, &a.ForfeitReason,
		&r.ConfirmedAt, &r.SeatedAt, &r.CompletedAt, &r.CancelledAt, &r.CancelledBy, &r.CancelReason, &r.NoShowAt,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.Status, r.DepositStatus = reservations.Status(status), reservations.DepositStatus(depStatus)
	r.TimeFrom, r.TimeTo = timeOfDay(r.TimeFrom), timeOfDay(r.TimeTo)
	if r.Deposit, err = decimal.NewFromString(depos); err != nil {
		return r, fmt.Errorf("reservation %s deposit %q: %w", r.ID, depos, err)
	}
	return r, nil
}

// timeOfDay renders a Postgres time as HH:MM, keeping the seconds only
// when they are set.
func timeOfDay(s string) string {
	if len(s) == len("15:04:05") && strings.HasSuffix(s, ":00") {
		return s[:5]
	}
	return s
}

// firstMissing returns the first id in want with no matching table.
func firstMissing(want []string, got []orders.Table) string {
	for _, id := range want {
		if !slices.ContainsFunc(got, func(t orders.Table) bool { return t.ID == id }) {
			return id
		}
	}
	return ""
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
