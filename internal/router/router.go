// internal/router/router.go
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/config"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/events"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/handlers"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/idempotency"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/metrics"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/middleware"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/services"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/utils"
)

const redisPingTimeout = 3 * time.Second

// Initialize wires the infrastructure named in cfg into the services and
// returns the engine together with a cleanup func that releases it.
func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, func(), error) {
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetJWTIssuer(cfg.JWT.Issuer)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var closers []func() error

	var store idempotency.Store = idempotency.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = idempotency.NewRedisStore(rdb)
		closers = append(closers, rdb.Close)
		logrus.WithField("addr", cfg.Redis.Addr).Info("Idempotency keys stored in redis")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		closers = append(closers, publisher.Close)
		logrus.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		}).Info("Domain events published to kafka")
	}

	cleanup := func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logrus.WithError(err).Warn("Failed to release router dependency")
			}
		}
	}

	archive, err := services.NewArchiveService(cfg.AWS)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	svc := services.New(services.Dependencies{
		DB:              db,
		Policy:          services.TransitionPolicy{Strict: cfg.Workflow.StrictTransitions},
		Idempotency:     store,
		IdempotencyTTL:  time.Duration(cfg.Workflow.IdempotencyTTLHours) * time.Hour,
		Events:          publisher,
		Archive:         archive,
		Metrics:         m,
		MaxWriteRetries: cfg.Workflow.MaxWriteRetries,
	})

	return NewEngine(cfg, svc, m, registry), cleanup, nil
}

// NewEngine mounts the HTTP surface over already constructed services.
func NewEngine(cfg *config.Config, svc *services.Services, m *metrics.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	bulkRequestHandler := handlers.NewBulkRequestHandler(svc.BulkRequests)
	traceabilityHandler := handlers.NewTraceabilityHandler(svc.Traceability)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(limiter.Middleware())
	if m != nil {
		r.Use(middleware.Metrics(m))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	{
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.GetOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.PUT("/:id/status", orderHandler.UpdateOrderStatus)
			orders.PUT("/:id/payment", orderHandler.UpdateOrderPayment)
		}

		bulkRequests := v1.Group("/bulk-requests")
		{
			bulkRequests.GET("", bulkRequestHandler.GetBulkRequests)
			bulkRequests.GET("/:id", bulkRequestHandler.GetBulkRequest)

			authorized := bulkRequests.Group("")
			authorized.Use(middleware.AuthRequired())
			{
				authorized.POST("", bulkRequestHandler.CreateBulkRequest)
				authorized.PUT("/:id", bulkRequestHandler.UpdateBulkRequest)
				authorized.POST("/:id/offers", bulkRequestHandler.SubmitOffer)
				authorized.PUT("/:id/offers/:offerId", bulkRequestHandler.ResolveOffer)
				authorized.POST("/:id/offers/:offerId/order", bulkRequestHandler.ConvertOffer)
			}
		}

		traceability := v1.Group("/traceability")
		{
			traceability.GET("/:batchId", traceabilityHandler.LookupTraceability)

			authorized := traceability.Group("")
			authorized.Use(middleware.AuthRequired())
			{
				authorized.POST("", traceabilityHandler.OpenTraceability)
				authorized.POST("/:batchId/processing", traceabilityHandler.AppendProcessingStage)
				authorized.POST("/:batchId/quality-checks", traceabilityHandler.AppendQualityCheck)
			}
		}
	}

	return r
}
