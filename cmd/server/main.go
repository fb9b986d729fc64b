package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/seathold/seat-hold-service/internal/config"
	"github.com/seathold/seat-hold-service/internal/consumer"
	"github.com/seathold/seat-hold-service/internal/database"
	"github.com/seathold/seat-hold-service/internal/eventlog"
	"github.com/seathold/seat-hold-service/internal/handler"
	"github.com/seathold/seat-hold-service/internal/lockstore"
	"github.com/seathold/seat-hold-service/internal/orchestrator"
	"github.com/seathold/seat-hold-service/internal/readmodel"
	"github.com/seathold/seat-hold-service/internal/reconciler"
	"github.com/seathold/seat-hold-service/internal/repository"
	"github.com/seathold/seat-hold-service/internal/router"
	"github.com/seathold/seat-hold-service/internal/signaler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("info: .env not found; using defaults/env")
	}

	cfg := config.Load()
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql connect failed: %v", err)
	}

	rdb := config.NewRedisClient()
	var locks *lockstore.Store
	if rdb == nil {
		slogger.Warn("redis unreachable at startup; running in degraded DB-only mode")
	} else {
		locks = lockstore.New(rdb, cfg.RedisDB, time.Duration(cfg.OverlayTTLSec)*time.Second)
	}

	var producer *eventlog.Producer
	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		slogger.Warn("rabbitmq unreachable at startup; event log publishing disabled", "error", err)
	} else {
		ch, err := amqpConn.Channel()
		if err != nil {
			slogger.Warn("rabbitmq channel open failed; event log publishing disabled", "error", err)
		} else {
			producer, err = eventlog.NewProducer(ch, "orchestrator")
			if err != nil {
				slogger.Warn("rabbitmq exchange declare failed; event log publishing disabled", "error", err)
				producer = nil
			}
		}
	}

	events := repository.NewEventRepo(db)
	seats := repository.NewSeatRepo(db)
	holds := repository.NewHoldRepo(db)
	bookings := repository.NewBookingRepo(db)
	idem := repository.NewIdempotencyRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.MaxSeatsPerHold = cfg.MaxSeatsPerHold
	orchCfg.HoldDuration = time.Duration(cfg.HoldDurationMin) * time.Minute
	orchCfg.TxTimeout = time.Duration(cfg.TxTimeoutSec) * time.Second

	orch := orchestrator.New(orchCfg, db, events, seats, holds, bookings, idem, locks, producer, slogger)
	reads := readmodel.New(seats, locks, slogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if locks != nil && producer != nil {
		sig := signaler.New(locks, producer, slogger)
		go func() {
			if err := sig.Run(ctx); err != nil && ctx.Err() == nil {
				slogger.Error("signaler stopped", "error", err)
			}
		}()

		cons := consumer.New(consumer.Config{
			AMQPURL:   cfg.AMQPURL,
			LaneCount: cfg.ConsumerLanes,
			Prefetch:  cfg.ConsumerPrefetch,
		}, db, seats, holds, locks, slogger)
		go func() {
			if err := cons.Run(ctx); err != nil && ctx.Err() == nil {
				slogger.Error("consumer stopped", "error", err)
			}
		}()
	}

	recCfg := reconciler.DefaultConfig()
	recCfg.Enabled = cfg.ReconcilerOn
	recCfg.Interval = time.Duration(cfg.ReconcilerEveryS) * time.Second
	recCfg.Batch = cfg.ReconcilerBatch
	rec := reconciler.New(recCfg, db, seats, holds, locks, slogger)
	go rec.Run(ctx)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	bookingHandler := handler.NewBookingHandler(orch)
	eventHandler := handler.NewEventHandler(reads)

	e := echo.New()
	router.RegisterRoutes(e, router.Deps{
		Cfg:      cfg,
		Redis:    rdb,
		Auth:     authHandler,
		Bookings: bookingHandler,
		Events:   eventHandler,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
