package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-ticketing/internal/booking"
	"github.com/iliyamo/theatre-ticketing/internal/config"
	"github.com/iliyamo/theatre-ticketing/internal/database"
	"github.com/iliyamo/theatre-ticketing/internal/handler"
	"github.com/iliyamo/theatre-ticketing/internal/ledger"
	"github.com/iliyamo/theatre-ticketing/internal/ledger/memory"
	"github.com/iliyamo/theatre-ticketing/internal/ledger/mysql"
	"github.com/iliyamo/theatre-ticketing/internal/lock"
	"github.com/iliyamo/theatre-ticketing/internal/logging"
	"github.com/iliyamo/theatre-ticketing/internal/metrics"
	"github.com/iliyamo/theatre-ticketing/internal/middleware"
	"github.com/iliyamo/theatre-ticketing/internal/queue"
	"github.com/iliyamo/theatre-ticketing/internal/repository"
	"github.com/iliyamo/theatre-ticketing/internal/router"
	"github.com/iliyamo/theatre-ticketing/internal/schedule"
	"github.com/iliyamo/theatre-ticketing/internal/stats"
	"github.com/iliyamo/theatre-ticketing/internal/worker"
)

// catalog is the lookup and write surface shared by the services and the
// catalogue handler.
type catalog interface {
	booking.Directory
	booking.SessionStore
	stats.Catalog
	handler.CatalogStore
}

func main() {
	cfg := config.Load()
	log := logging.Setup(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db  *sql.DB
		cat catalog
		led ledger.Ledger
	)
	switch cfg.Booking.LedgerDriver {
	case config.DriverMySQL:
		var err error
		db, err = database.Open(ctx, database.Config{
			User: cfg.DB.User, Pass: cfg.DB.Pass, Host: cfg.DB.Host, Port: cfg.DB.Port, Name: cfg.DB.Name,
			MaxOpenConns: cfg.DB.MaxOpenConns, ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			log.WithError(err).Fatal("connect to mysql")
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migrate schema")
		}
		cat = repository.NewCatalog(db)
		led = mysql.New(db)
	case config.DriverMemory:
		mc := repository.NewMemoryCatalog()
		if cfg.SeedFile != "" {
			if err := mc.LoadFile(cfg.SeedFile); err != nil {
				log.WithError(err).Fatal("load seed")
			}
		}
		cat = mc
		led = memory.New(nil)
	}

	// Redis backs the response cache, the rate limiter and the redis seat
	// lock.  Without it those features are off.
	var rdb *redis.Client
	if rc := config.LoadRedisConfig(); rc.Addr != "" {
		var err error
		rdb, err = config.NewRedisClient(ctx, rc)
		if err != nil {
			log.WithError(err).Warn("redis unavailable; cache, rate limit and redis locks disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var locker lock.Locker = lock.Nop{}
	switch cfg.Booking.LockDriver {
	case config.LockLocal:
		locker = lock.NewKeyed(cfg.Booking.LockWait)
	case config.LockRedis:
		if rdb == nil {
			log.Fatal("LOCK_DRIVER=redis needs REDIS_ADDR")
		}
		locker = lock.NewRedisLocker(rdb, lock.RedisOptions{
			Prefix: "seatlock", TTL: cfg.Booking.LockTTL, Wait: cfg.Booking.LockWait,
		})
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitURL != "" {
		ap := queue.NewAMQPPublisher(cfg.RabbitURL, log)
		defer ap.Close()
		pub = ap
		if cfg.AuditDir != "" {
			go func() {
				err := queue.StartTicketConsumer(ctx, cfg.RabbitURL, queue.NewAuditLog(cfg.AuditDir), log)
				if err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("ticket consumer stopped")
				}
			}()
		}
	}

	svc := booking.NewService(cat, led,
		booking.WithLocker(locker),
		booking.WithPublisher(pub),
		booking.WithMetrics(m),
		booking.WithLogger(log.WithField("component", "booking")),
		booking.WithLocation(cfg.Timezone),
		booking.WithReservationTTL(cfg.Booking.ReservationTTL),
	)
	planner := booking.NewPlanner(cat, schedule.DefaultCalendar(), cfg.Timezone, log.WithField("component", "planner"))
	engine := stats.NewEngine(cat, led)

	deps := router.Deps{
		Tickets:   handler.NewTicketHandler(svc, log),
		Catalog:   handler.NewCatalogHandler(cat, log),
		Schedule:  handler.NewScheduleHandler(planner, cfg.Timezone, log),
		Stats:     handler.NewStatsHandler(engine, log),
		Metrics:   m,
		JWTSecret: cfg.JWT.Secret,
	}
	if db != nil {
		deps.DB = db
	}
	if rdb != nil {
		deps.Cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
		deps.RateLimit = middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, log).Middleware()
	}
	e := router.New(deps)
	e.Logger.SetOutput(log.WriterLevel(logrus.DebugLevel))

	if cfg.Booking.ReservationTTL > 0 {
		go worker.NewSweeper(svc, cfg.Booking.SweepInterval, log).Start(ctx)
	}

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "ledger": cfg.Booking.LedgerDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
