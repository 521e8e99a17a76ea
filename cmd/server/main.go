package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meeting-room-reservation/internal/config"
	"github.com/iliyamo/meeting-room-reservation/internal/database"
	"github.com/iliyamo/meeting-room-reservation/internal/handler"
	"github.com/iliyamo/meeting-room-reservation/internal/ledger"
	"github.com/iliyamo/meeting-room-reservation/internal/metrics"
	"github.com/iliyamo/meeting-room-reservation/internal/middleware"
	"github.com/iliyamo/meeting-room-reservation/internal/queue"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
	"github.com/iliyamo/meeting-room-reservation/internal/router"
	"github.com/iliyamo/meeting-room-reservation/internal/schedule"
	"github.com/iliyamo/meeting-room-reservation/internal/service"
)

func main() {
	config.LoadDotEnv(logrus.StandardLogger())
	cfg := config.Load()
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Password: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("schema migrated")
	}

	metrics.Register()

	var gateway ledger.Gateway = ledger.Disabled{}
	if cfg.Ledger.Enabled() {
		client, err := ledger.Dial(ctx, cfg.Ledger.Client(), log)
		if err != nil {
			log.WithError(err).Fatal("ledger gateway misconfigured")
		}
		defer client.Close()
		gateway = client
		log.WithField("rpc", cfg.Ledger.RPCURL).Info("ledger gateway enabled")
	} else {
		log.Warn("LEDGER_RPC_URL not set; wallet payments are disabled")
	}

	var events service.EventPublisher = queue.Nop{}
	if cfg.Queue.Enabled {
		publisher := queue.NewPublisher(cfg.Queue.URL, log)
		go publisher.Run(ctx)
		events = publisher
		go func() {
			if err := queue.StartReservationConsumer(ctx, cfg.Queue.URL, cfg.LogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("reservation consumer stopped")
			}
		}()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	clock := schedule.SystemClock{Location: cfg.TimeZone}
	rooms := repository.NewRoomRepo(db)
	reservations := repository.NewReservationRepo(db)

	h := router.Handlers{
		Health: &handler.HealthHandler{DB: db, Redis: rdb},
		Rooms: handler.NewRoomHandler(&service.RoomService{
			Rooms: rooms, Reservations: reservations, Clock: clock, Log: log,
		}, log),
		Reservations: handler.NewReservationHandler(&service.ReservationService{
			Rooms:        rooms,
			Reservations: reservations,
			Ledger:       gateway,
			Events:       events,
			Clock:        clock,
			RatePerHour:  cfg.KJBPerHour,
			Log:          log,
		}, log),
		Ledger: handler.NewLedgerHandler(&service.LedgerService{Ledger: gateway, Log: log}, log),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORS())
	router.RegisterRoutes(e, h, router.Middleware{
		API:         middleware.RateLimit(config.LoadRateLimitConfig(), rdb, log),
		LedgerReads: middleware.Cache(config.LoadCacheConfig(), rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
