// Command bookingctl drives the booking engine from a terminal: it seeds
// reference data, runs order and reservation actions against Postgres and
// publishes their events to Kafka.
package main

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-restaurant-booking/internal/clock"
	"github.com/ariefcatur/go-restaurant-booking/internal/config"
	"github.com/ariefcatur/go-restaurant-booking/internal/eventbus"
	kafkax "github.com/ariefcatur/go-restaurant-booking/internal/kafka"
	"github.com/ariefcatur/go-restaurant-booking/internal/orders"
	"github.com/ariefcatur/go-restaurant-booking/internal/postgres"
	"github.com/ariefcatur/go-restaurant-booking/internal/redisx"
	"github.com/ariefcatur/go-restaurant-booking/internal/reservations"
	"github.com/joho/godotenv"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: bookingctl <command> [flags]

reference data:
  migrate
  add-restaurant  -id -name -tz
  add-table       -id -restaurant -number -capacity
  add-customer    -id -name -phone

reservations:
  create          -restaurant -table [-linked] -date -from -to -guests [-deposit] [-customer | -name -phone]
  reschedule      -id -date -from -to [-table -linked]
  confirm|unseat|complete -id
  seat            -id [-create-order] [-transfer-deposit]
  cancel          -id [-reason] [-refund]
  no-show         -id [-reason] [-forfeit]
  pay-deposit     -id -method [-tx]
  refund-deposit  -id [-reason]
  deposit         -id
  check           -restaurant -table [-linked] -date -from -to [-exclude]
  list            -restaurant -date

orders:
  order confirm|start-cooking|mark-ready|mark-served|start-delivering|complete|cancel -id [-courier] [-reason]

projection:
  status          -kind order|reservation -id
`

// app holds the wired dependencies of one invocation.
type app struct {
	cfg          config.Config
	store        *postgres.Store
	orders       *orders.Actions
	reservations *reservations.Actions
	detector     *reservations.ConflictDetector
	ledger       reservations.Ledger
}

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		report(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, cmd string, args []string) error {
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		fmt.Print(usage)
		return nil
	}
	if cmd == "status" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		return statusCmd(ctx, redisx.NewStatusCache(rdb, redisx.TTLStatusCache), args)
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()
	if cmd == "migrate" || cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		if cmd == "migrate" {
			log.Println("migrations applied")
			return nil
		}
	}

	events, closeEvents, err := publisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeEvents()

	store := postgres.NewStore(db, cfg.TxTimeout)
	zones := defaultZone{store: store, def: cfg.DefaultTimezone}
	a := &app{
		cfg:          cfg,
		store:        store,
		orders:       orders.NewActions(store.Orders(), events, clock.System{}),
		reservations: reservations.NewActions(store.Reservations(), events, clock.System{}, cfg.DefaultTimezone),
		detector:     reservations.NewConflictDetector(store, zones, clock.System{}),
		ledger:       reservations.NewLedger(clock.System{}),
	}
	return a.dispatch(ctx, cmd, args)
}

// publisher picks the event transport named by EVENT_TRANSPORT.
func publisher(ctx context.Context, cfg config.Config) (eventbus.Publisher, func(), error) {
	switch cfg.EventTransport {
	case config.TransportSarama:
		p, err := kafkax.NewSaramaPublisher(cfg.KafkaBrokers, cfg.ServiceName)
		if err != nil {
			return nil, nil, fmt.Errorf("sarama producer: %w", err)
		}
		return p, func() { _ = p.Close() }, nil
	case config.TransportKafkaGo:
		prod := kafkax.NewProducer(cfg.KafkaBrokers, 64)
		prod.Start(ctx)
		return kafkax.NewPublisher(prod, cfg.ServiceName), func() {
			prod.Close() // tutup inbox -> flush & close writer
			prod.WaitClosed()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown EVENT_TRANSPORT %q", cfg.EventTransport)
}

// defaultZone falls back to DEFAULT_TIMEZONE for restaurants without one.
type defaultZone struct {
	store *postgres.Store
	def   string
}

func (z defaultZone) Timezone(ctx context.Context, restaurantID string) (string, error) {
	tz, err := z.store.Timezone(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	if tz == "" {
		return z.def, nil
	}
	return tz, nil
}
