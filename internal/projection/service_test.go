package projection_test

import (
	"context"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/eventbus"
	kafkax "github.com/ariefcatur/go-restaurant-booking/internal/kafka"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/ariefcatur/go-restaurant-booking/internal/projection"
	"github.com/ariefcatur/go-restaurant-booking/internal/redisx"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
)

var at = time.Date(2026, 2, 5, 19, 5, 0, 0, time.UTC)

type memStore struct {
	seen   map[string]bool
	status map[string]redisx.Status
	puts   int
}

func newMemStore() *memStore {
	return &memStore{seen: map[string]bool{}, status: map[string]redisx.Status{}}
}

func (m *memStore) Seen(_ context.Context, id string) (bool, error) { return m.seen[id], nil }
func (m *memStore) MarkSeen(_ context.Context, id string) error    { m.seen[id] = true; return nil }
func (m *memStore) Put(_ context.Context, s redisx.Status) error {
	m.puts++
	m.status[s.Kind+"/"+s.ID] = s
	return nil
}

func message(t *testing.T, ev eventbus.Event) (eventbus.Envelope, kafkago.Message) {
	t.Helper()
	env, b, err := kafkax.Encode(ev, "booking-test", clock.Fixed(at))
	require.NoError(t, err)
	return env, kafkago.Message{Topic: ev.Topic(), Key: ev.PartitionKey(), Value: b}
}

func TestProjectReservation(t *testing.T) {
	r := reservations.Reservation{
		ID: "r1", Status: reservations.StatusSeated, DepositStatus: reservations.DepositTransferred,
		Deposit: decimal.NewFromInt(300), UpdatedAt: at,
	}
	env, _ := message(t, reservations.GuestsSeatedPayload{Transition: reservations.Transition{Reservation: r, From: reservations.StatusConfirmed}})

	st, ok, err := projection.Project(env)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, redisx.KindReservation, st.Kind)
	assert.Equal(t, "r1", st.ID)
	assert.Equal(t, "seated", st.Status)
	assert.Equal(t, "transferred", st.DepositStatus)
	assert.Equal(t, reservations.EventGuestsSeated, st.EventType)
	assert.True(t, at.Equal(st.UpdatedAt))
}

func TestProjectOrder(t *testing.T) {
	o := orders.NewOrder("o1", "rest-1", orders.TypeDelivery, at)
	o.Status = orders.StatusDelivering
	env, _ := message(t, orders.OrderDeliveryStartedPayload{Transition: orders.Transition{Order: o}, CourierID: "k1"})

	st, ok, err := projection.Project(env)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, redisx.KindOrder, st.Kind)
	assert.Equal(t, "delivering", st.Status)
	assert.Empty(t, st.DepositStatus)
}

func TestProjectSkipsUnknownEvents(t *testing.T) {
	_, ok, err := projection.Project(eventbus.Envelope{EventType: "StockReserved", Payload: kafkax.MustMarshal(map[string]string{})})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = projection.Project(eventbus.Envelope{EventType: orders.EventOrderReady, Payload: kafkax.MustMarshal(map[string]string{})})
	assert.Error(t, err)
}

func TestHandleDeduplicates(t *testing.T) {
	store := newMemStore()
	svc := &projection.Service{Store: store}
	r := reservations.Reservation{ID: "r1", Status: reservations.StatusConfirmed, UpdatedAt: at}
	env, msg := message(t, reservations.ReservationConfirmedPayload{Transition: reservations.Transition{Reservation: r}})

	require.NoError(t, svc.Handle(context.Background(), msg))
	require.NoError(t, svc.Handle(context.Background(), msg))
	assert.Equal(t, 1, store.puts)
	assert.True(t, store.seen[env.EventID])
	assert.Equal(t, "confirmed", store.status["reservation/r1"].Status)
}

func TestHandleRejectsGarbage(t *testing.T) {
	svc := &projection.Service{Store: newMemStore()}
	assert.Error(t, svc.Handle(context.Background(), kafkago.Message{Value: []byte("not json")}))
}
