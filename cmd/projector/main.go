package main

import (
	"context"
	"github.com/ariefcatur/go-restaurant-booking/internal/config"
	"github.com/ariefcatur/go-restaurant-booking/internal/httpx"
	kafkax "github.com/ariefcatur/go-restaurant-booking/internal/kafka"
	"github.com/ariefcatur/go-restaurant-booking/internal/projection"
	"github.com/ariefcatur/go-restaurant-booking/internal/redisx"
	"github.com/joho/godotenv"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &projection.Service{Store: projection.NewRedisStore(rdb, cfg.ServiceName+"-projector")}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectionGroup, projection.Topics, cfg.ProjectionWorkers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Printf("projector started: group=%s topics=%v workers=%d", cfg.ProjectionGroup, projection.Topics, cfg.ProjectionWorkers)
		if err := cons.Start(ctx, svc.Handle); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// Health
	router := httpx.NewRouter(map[string]httpx.Check{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down projector...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()
	select {
	case <-done:
	case <-ctx2.Done():
		log.Println("consumer did not stop in time")
	}
}
