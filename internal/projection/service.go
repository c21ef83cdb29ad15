// Package projection keeps a Redis view of the latest order and reservation
// statuses, fed by the domain event topics.
package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-restaurant-booking/internal/eventbus"
	kafkax "github.com/ariefcatur/go-restaurant-booking/internal/kafka"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/ariefcatur/go-restaurant-booking/internal/redisx"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Topics lists every stream the projector consumes.
var Topics = []string{orders.TopicOrderEvents, reservations.TopicReservationEvents}

type Store interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
	Put(ctx context.Context, s redisx.Status) error
}

type Service struct {
	Store Store
}

// Handle dipasang sebagai handler consumer. A nil return commits the offset.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		return err
	}
	st, ok, err := Project(env)
	if err != nil || !ok {
		return err
	}

	// dedup via Redis (pakai event_id)
	seen, err := s.Store.Seen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if seen {
		return nil
	}
	if err := s.Store.Put(ctx, st); err != nil {
		return fmt.Errorf("cache %s %s: %w", st.Kind, st.ID, err)
	}
	return s.Store.MarkSeen(ctx, env.EventID)
}

type snapshot struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	DepositStatus string    `json:"deposit_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type payload struct {
	Order       *snapshot `json:"order"`
	Reservation *snapshot `json:"reservation"`
}

// Project turns one envelope into the status it implies. Unknown event
// types are skipped with ok=false.
func Project(env eventbus.Envelope) (redisx.Status, bool, error) {
	if !known(env.EventType) {
		return redisx.Status{}, false, nil
	}
	p, err := kafkax.UnwrapPayload[payload](env.Payload)
	if err != nil {
		return redisx.Status{}, false, err
	}

	kind, snap := redisx.KindOrder, p.Order
	if p.Reservation != nil {
		kind, snap = redisx.KindReservation, p.Reservation
	}
	if snap == nil || snap.ID == "" {
		return redisx.Status{}, false, fmt.Errorf("event %s (%s) carries no aggregate", env.EventID, env.EventType)
	}
	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = env.OccurredAt
	}
	return redisx.Status{
		Kind:          kind,
		ID:            snap.ID,
		Status:        snap.Status,
		DepositStatus: snap.DepositStatus,
		EventType:     env.EventType,
		UpdatedAt:     updated,
	}, true, nil
}

func known(eventType string) bool {
	switch eventType {
	case orders.EventOrderConfirmed, orders.EventOrderCookingStarted, orders.EventOrderReady,
		orders.EventOrderServed, orders.EventOrderDeliveryStarted, orders.EventOrderCompleted,
		orders.EventOrderCancelled,
		reservations.EventReservationCreated, reservations.EventReservationConfirmed,
		reservations.EventReservationRescheduled, reservations.EventGuestsSeated,
		reservations.EventGuestsUnseated, reservations.EventReservationCompleted,
		reservations.EventReservationCancelled, reservations.EventReservationNoShow,
		reservations.EventDepositPaid, reservations.EventDepositRefunded:
		return true
	}
	return false
}

// RedisStore is the Store backed by redisx.
type RedisStore struct {
	rdb     *redis.Client
	cache   *redisx.StatusCache
	service string
}

func NewRedisStore(rdb *redis.Client, service string) *RedisStore {
	return &RedisStore{rdb: rdb, cache: redisx.NewStatusCache(rdb, redisx.TTLStatusCache), service: service}
}

func (s *RedisStore) Seen(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, s.rdb, redisx.DedupKey(s.service, eventID))
}

func (s *RedisStore) MarkSeen(ctx context.Context, eventID string) error {
	return s.rdb.Set(ctx, redisx.DedupKey(s.service, eventID), "1", redisx.TTLDedup).Err()
}

func (s *RedisStore) Put(ctx context.Context, st redisx.Status) error {
	return s.cache.Put(ctx, st)
}
