package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	bookingapi "ms-booking/internal/booking/api"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/booking/qr"
	cartredis "ms-booking/internal/cart/redis"
	"ms-booking/internal/catalog"
	catalogdb "ms-booking/internal/catalog/db"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/events"
	eventsapi "ms-booking/internal/events/api"
	eventsdb "ms-booking/internal/events/db"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/sse"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err == nil {
			err = sqldb.Ping()
		}
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Addr))
	return client
}

// consumeBookingEvents feeds the SSE emitter from the booking topics so
// availability changes made by other replicas still reach local subscribers.
func consumeBookingEvents(ctx context.Context, cfg config.KafkaConfig, catalogSvc *catalog.Service, emitter *sse.AvailabilityEmitter, log *logger.Logger) {
	for _, topic := range kafka.BookingTopics() {
		consumer := kafka.NewConsumer(cfg.Brokers, topic, cfg.GroupID)
		go func(c *kafka.Consumer, topic string) {
			defer c.Close()
			c.Start(ctx, func(msg models.BookingEventMessage) {
				status, err := catalogSvc.EffectiveStatus(ctx, msg.EventID)
				if err != nil {
					log.Warn("SSE", fmt.Sprintf("Failed to resolve status for event %s: %v", msg.EventID, err))
					return
				}
				remaining, err := catalogSvc.RemainingInventory(ctx, msg.EventID)
				if err != nil {
					log.Warn("SSE", fmt.Sprintf("Failed to resolve inventory for event %s: %v", msg.EventID, err))
					return
				}
				emitter.Emit(models.AvailabilityUpdate{
					EventID:   msg.EventID,
					Status:    string(status),
					Remaining: remaining,
				})
			})
		}(consumer, topic)
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	migrationRunner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: "./migrations",
		AutoMigrate:   true,
		SeedData:      os.Getenv("SEED_DATA") == "true",
	})
	if err := migrationRunner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	defer migrationRunner.Close()

	var producer booking.KafkaPublisher
	emitter := sse.NewAvailabilityEmitter()
	catalogSvc := catalog.NewService(&catalogdb.DB{Bun: bunDB})

	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.BookingTopics()); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}

		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer kafkaProducer.Close()
		producer = kafkaProducer

		consumeBookingEvents(ctx, cfg.Kafka, catalogSvc, emitter, log)
		log.Info("KAFKA", "Kafka producer and availability consumers initialized")
	} else {
		producer = noopPublisher{}
		log.Warn("KAFKA", "Kafka disabled, booking events will not be published")
	}

	cartStore := &cartredis.Store{Client: redisClient, TTL: cfg.Booking.CartTTL}
	qrGen := qr.NewQRGenerator(cfg.Booking.QRSecret)

	bookingSvc := booking.NewService(
		&bookingdb.DB{Bun: bunDB},
		catalogSvc,
		cartStore,
		producer,
		qrGen,
		log,
		cfg.Booking.MaxPerType,
	)
	eventSvc := events.NewService(&eventsdb.DB{Bun: bunDB}, log)

	bookingHandler := bookingapi.NewHandler(bookingSvc, catalogSvc, emitter, log)
	eventHandler := eventsapi.NewHandler(eventSvc, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/api/events/{eventId}/status", bookingHandler.EventStatus)
	r.Get("/api/events/{eventId}/ticket-types", bookingHandler.ListTicketTypes)
	r.Get("/api/events/{eventId}/availability/stream", bookingHandler.StreamAvailability)
	log.Info("ROUTER", "Public catalog endpoints registered under /api/events")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Route("/events/{eventId}", func(r chi.Router) {
				r.Post("/cart", bookingHandler.BuildCart)
				r.Get("/cart", bookingHandler.GetCart)
				r.Post("/checkout", bookingHandler.Checkout)
			})
			log.Info("ROUTER", "Cart and checkout routes registered under /api/events/{eventId}")

			r.Route("/orders", func(r chi.Router) {
				r.Get("/{orderId}", bookingHandler.GetOrder)
				r.Delete("/{orderId}", bookingHandler.CancelOrder)
			})
			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", bookingHandler.ListBookings)
				r.Delete("/{bookingId}", bookingHandler.CancelBooking)
			})
			log.Info("ROUTER", "Order and booking routes registered")

			eventHandler.RegisterRoutes(r)
			log.Info("ROUTER", "Organizer event routes registered under /api/events")
		})
	})

	// WriteTimeout stays unset: the availability stream holds its response
	// open indefinitely.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	log.Info("APP", "Shutdown complete")
}

type noopPublisher struct{}

func (noopPublisher) PublishBookingConfirmed(models.BookingEventMessage) error { return nil }
func (noopPublisher) PublishBookingCancelled(models.BookingEventMessage) error { return nil }
func (noopPublisher) PublishEventSoldOut(models.BookingEventMessage) error     { return nil }
