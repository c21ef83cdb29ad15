package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/eventbus"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/ariefcatur/go-restaurant-booking/internal/postgres"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
)

var now = time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)

// StoreSuite runs against a real database named by POSTGRES_TEST_DSN.
type StoreSuite struct {
	suite.Suite
	db    *pgxpool.Pool
	store *postgres.Store
	acts  *reservations.Actions

	restaurant string
	tables     []string
}

func (s *StoreSuite) SetupSuite() {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		s.T().Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		s.T().Fatalf("connect: %v", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		s.T().Fatalf("migrate: %v", err)
	}
	s.db = db
	s.store = postgres.NewStore(db, 5*time.Second)
	s.acts = reservations.NewActions(s.store.Reservations(), &eventbus.Recorder{}, clock.Fixed(now), "UTC")
}

func (s *StoreSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

// SetupTest seeds a fresh restaurant per test, so runs never share rows.
func (s *StoreSuite) SetupTest() {
	ctx := context.Background()
	s.restaurant = "rest-" + uuid.NewString()
	s.Require().NoError(s.store.UpsertRestaurant(ctx, s.restaurant, "Warung Test", "UTC"))
	s.tables = nil
	for i, n := range []string{"5", "6"} {
		id := s.restaurant + "-t" + n
		s.Require().NoError(s.store.UpsertTable(ctx, orders.Table{ID: id, RestaurantID: s.restaurant, Number: n, Capacity: 4 + i}))
		s.tables = append(s.tables, id)
	}
}

func (s *StoreSuite) input(table, from, to string, linked ...string) reservations.CreateInput {
	return reservations.CreateInput{
		RestaurantID:   s.restaurant,
		ContactName:    "Budi",
		ContactPhone:   "+62811000",
		TableID:        table,
		LinkedTableIDs: linked,
		Date:           "2026-02-05",
		TimeFrom:       from,
		TimeTo:         to,
		GuestsCount:    2,
		Deposit:        decimal.NewFromInt(100),
		UserID:         "host",
	}
}

func (s *StoreSuite) TestConcurrentCreateOnSameTable() {
	ctx := context.Background()
	inputs := []reservations.CreateInput{
		s.input(s.tables[0], "19:00", "21:00"),
		s.input(s.tables[0], "20:00", "22:00"),
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, len(inputs))
	)
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = s.acts.Create(ctx, in)
		}()
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, reservations.ErrConflict):
			conflicts++
		default:
			s.T().Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(s.T(), 1, ok)
	assert.Equal(s.T(), 1, conflicts)

	rs, err := s.store.ListReservations(ctx, s.restaurant, "2026-02-05")
	require.NoError(s.T(), err)
	assert.Len(s.T(), rs, 1)
}

func (s *StoreSuite) TestLinkedTableConflict() {
	ctx := context.Background()
	_, err := s.acts.Create(ctx, s.input(s.tables[0], "19:00", "21:00", s.tables[1]))
	require.NoError(s.T(), err)

	_, err = s.acts.Create(ctx, s.input(s.tables[1], "20:30", "22:00"))
	require.Error(s.T(), err)
	assert.ErrorIs(s.T(), err, reservations.ErrConflict)

	found, err := s.store.FindActiveForTables(ctx, reservations.ConflictQuery{
		TableIDs:     []string{s.tables[1]},
		FromDate:     "2026-02-04",
		ToDate:       "2026-02-06",
		RestaurantID: s.restaurant,
	})
	require.NoError(s.T(), err)
	require.Len(s.T(), found, 1)
	assert.Equal(s.T(), []string{s.tables[1]}, found[0].LinkedTableIDs)

	// back to back is not an overlap
	_, err = s.acts.Create(ctx, s.input(s.tables[1], "21:00", "22:00"))
	assert.NoError(s.T(), err)
}

func (s *StoreSuite) TestSeatRoundTrip() {
	ctx := context.Background()
	created, err := s.acts.Create(ctx, s.input(s.tables[0], "19:00:30", "21:00"))
	require.NoError(s.T(), err)
	id := created.Entity.ID

	_, err = s.acts.Confirm(ctx, id, "host")
	require.NoError(s.T(), err)
	_, err = s.acts.Seat(ctx, id, reservations.SeatOptions{CreateOrder: true, UserID: "waiter"})
	require.NoError(s.T(), err)

	got, err := s.store.GetReservation(ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), reservations.StatusSeated, got.Status)
	assert.Equal(s.T(), "19:00:30", got.TimeFrom)
	assert.Equal(s.T(), "21:00", got.TimeTo)
	assert.True(s.T(), got.Deposit.Equal(decimal.NewFromInt(100)))
	require.NotNil(s.T(), got.SeatedAt)
	require.NotEmpty(s.T(), got.OrderID)

	o, err := s.store.GetOrder(ctx, got.OrderID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id, o.ReservationID)
	assert.Equal(s.T(), s.tables[0], o.TableID)
	assert.Equal(s.T(), orders.TypeDineIn, o.Type)

	// the stored slot still conflicts at second precision
	_, err = s.acts.Create(ctx, s.input(s.tables[0], "18:30", "19:00:31"))
	assert.ErrorIs(s.T(), err, reservations.ErrConflict)
	_, err = s.acts.Create(ctx, s.input(s.tables[0], "18:30", "19:00:30"))
	assert.NoError(s.T(), err)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
