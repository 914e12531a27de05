package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/quickmart/shop-backend/internal/config"
	"github.com/quickmart/shop-backend/internal/httpserver"
	"github.com/quickmart/shop-backend/internal/idempotency"
	"github.com/quickmart/shop-backend/internal/logging"
	"github.com/quickmart/shop-backend/internal/mykafka"
	"github.com/quickmart/shop-backend/internal/repo"
	"github.com/quickmart/shop-backend/internal/service"
	"github.com/quickmart/shop-backend/internal/stripe"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := cfg.InitDB(initCtx)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	gormRepo := &repo.GormRepo{DB: db}

	var producer *mykafka.Producer
	if cfg.KafkaAddress != "" {
		producer = mykafka.NewProducer(strings.Split(cfg.KafkaAddress, ","))
	}

	var idemStore idempotency.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		idemStore = idempotency.NewRedisStore(rdb, 24*time.Hour)
	}

	cartSvc := &service.CartService{Repo: gormRepo, Events: producer}
	orderSvc := &service.OrderService{
		Repo:        gormRepo,
		Currency:    cfg.SettlementCurrency,
		DedupWindow: cfg.OrderDedupWindow,
		Events:      producer,
	}
	catalogSvc := &service.CatalogService{Repo: gormRepo, Events: producer}
	paymentSvc := &service.PaymentService{
		Repo:     gormRepo,
		Orders:   orderSvc,
		Provider: stripe.NewClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret),
		Currency: cfg.SettlementCurrency,
		Idem:     idemStore,
	}

	sweeper := &service.Sweeper{
		Repo:     gormRepo,
		Expiry:   cfg.CartExpiry,
		Interval: cfg.SweepInterval,
		Log:      logger.With("component", "sweeper"),
	}
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeper.Start(logging.IntoContext(sweepCtx, logger))

	httpserver.Register(e, &httpserver.Deps{
		Cart:      &httpserver.CartHTTP{Svc: cartSvc},
		Order:     &httpserver.OrderHTTP{Svc: orderSvc},
		Payment:   &httpserver.PaymentHTTP{Svc: paymentSvc},
		Product:   &httpserver.ProductHTTP{Svc: catalogSvc},
		JWTSecret: cfg.JWTSecret,
	})

	go func() {
		log.Printf("Starting shop backend on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	log.Println("Shutting down server...")

	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close: %v", err)
		}
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}

	log.Println("Server stopped")
}
