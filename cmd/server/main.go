package main // Entry point package

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/show-reservation/internal/booking"
	"github.com/iliyamo/show-reservation/internal/catalog"
	"github.com/iliyamo/show-reservation/internal/config"
	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/events"
	"github.com/iliyamo/show-reservation/internal/handler"
	"github.com/iliyamo/show-reservation/internal/ledger"
	"github.com/iliyamo/show-reservation/internal/logger"
	"github.com/iliyamo/show-reservation/internal/repository"
	"github.com/iliyamo/show-reservation/internal/repository/memory"
	"github.com/iliyamo/show-reservation/internal/router"
)

// stores bundles one storage backend.
type stores struct {
	tx           database.Transactor
	users        repository.UserStore
	tokens       repository.TokenStore
	points       repository.PointsStore
	venues       repository.VenueStore
	shows        repository.ShowStore
	reservations repository.ReservationStore
	checks       map[string]handler.Check
	close        func() error
}

func main() {
	migrate := flag.Bool("migrate", false, "apply the schema before serving (mysql driver only)")
	flag.Parse()

	cfg, err := config.Load() // Load environment config
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	closeLog, err := logger.Init(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()
	log := logger.Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, *migrate)
	if err != nil {
		log.Fatal("open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer st.close()

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		// rate limiting and caching degrade to passthrough
		log.Warn("redis unavailable", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
		st.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	pub := newPublisher(cfg)
	defer pub.Close()

	points := ledger.New(st.tx, st.points)
	cat := catalog.New(st.tx, st.venues, st.shows, st.reservations)
	bookings := booking.New(st.tx, cat, points, st.reservations, pub, booking.Options{
		TxTimeout:    cfg.BookingTxTimeout,
		CancelWindow: cfg.CancelWindow,
	})
	cacheCfg := config.LoadCacheConfig()

	e := router.New(router.Deps{
		JWTSecret:    cfg.JWTSecret,
		RateLimit:    config.LoadRateLimitConfig(),
		Cache:        cacheCfg,
		Redis:        rdb,
		HealthChecks: st.checks,
		Auth:         handler.NewAuthHandler(cfg, st.tx, st.users, st.tokens, points),
		Points:       &handler.PointsHandler{Ledger: points},
		Public:       &handler.PublicHandler{Catalog: cat},
		Admin:        &handler.AdminHandler{Catalog: cat, Redis: rdb, CachePrefix: cacheCfg.Prefix},
		Reservations: &handler.ReservationHandler{Bookings: bookings},
	})

	go serve(e, ":"+cfg.Port, log)
	log.Info("listening",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.StorageDriver),
		zap.String("broker", cfg.EventBroker))

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("stopped")
}

func serve(e *echo.Echo, addr string, log *zap.Logger) {
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.Config, migrate bool) (*stores, error) {
	if cfg.StorageDriver == config.StorageMemory {
		m := memory.New()
		s := m.Stores()
		return &stores{
			tx:           m.Transactor(),
			users:        s.Users,
			tokens:       s.Tokens,
			points:       s.Points,
			venues:       s.Venues,
			shows:        s.Shows,
			reservations: s.Reservations,
			checks:       map[string]handler.Check{},
			close:        func() error { return nil },
		}, nil
	}

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	tx, dbtx := database.NewTransactor(db)
	return &stores{
		tx:           tx,
		users:        repository.NewUserRepo(dbtx),
		tokens:       repository.NewTokenRepo(dbtx),
		points:       repository.NewPointsRepo(dbtx),
		venues:       repository.NewVenueRepo(dbtx),
		shows:        repository.NewShowRepo(dbtx),
		reservations: repository.NewReservationRepo(dbtx),
		checks:       map[string]handler.Check{"mysql": db.PingContext},
		close:        db.Close,
	}, nil
}

func newPublisher(cfg config.Config) events.Publisher {
	switch cfg.EventBroker {
	case config.BrokerRabbitMQ:
		return events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.EventQueue)
	case config.BrokerKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	return events.Nop{}
}
