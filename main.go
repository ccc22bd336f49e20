package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jj-link/Pulsr/internal/cache"
	"github.com/jj-link/Pulsr/internal/config"
	"github.com/jj-link/Pulsr/internal/handlers"
	"github.com/jj-link/Pulsr/internal/metrics"
	"github.com/jj-link/Pulsr/internal/middleware"
	"github.com/jj-link/Pulsr/internal/services"
	"github.com/jj-link/Pulsr/internal/store"
	"github.com/jj-link/Pulsr/internal/token"
	"github.com/jj-link/Pulsr/internal/version"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("Pulsr IR remote control server")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the API server")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	// Presence cache holds last-heartbeat timestamps keyed by device ID
	presenceCache := initializePresenceCache(cfg)

	auditService := services.NewAuditService(db, cfg.EnableAuditLogging, cfg.AuditLogBufferSize)
	tokenProvider := token.NewProvider(cfg)

	claimService := services.NewClaimService(db, cfg, auditService, recorder)
	deviceService := services.NewDeviceService(db, presenceCache, cfg.PresenceTTL, auditService, recorder)
	commandService := services.NewCommandService(db, deviceService, auditService, recorder)
	layoutService := services.NewLayoutService(db, deviceService, auditService, recorder)
	queueService := services.NewQueueService(db, deviceService, auditService, recorder)

	authHandler := handlers.NewAuthHandler(tokenProvider)
	claimHandler := handlers.NewClaimHandler(claimService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)
	commandHandler := handlers.NewCommandHandler(commandService)
	layoutHandler := handlers.NewLayoutHandler(layoutService)
	queueHandler := handlers.NewQueueHandler(queueService)
	auditHandler := handlers.NewAuditHandler(auditService)
	healthHandler := handlers.NewHealthHandler(db)

	r := gin.New()
	// Metrics middleware must run before the route handlers it observes
	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", healthHandler.Healthz)

	if cfg.MetricsEnabled {
		log.Printf("Prometheus metrics enabled at /metrics")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	hardwareLimiter := setupHardwareRateLimiter(cfg)

	r.POST("/api/v1/auth/token", authHandler.DevToken)

	// Hardware endpoints carry no bearer token: the device proves itself by
	// knowing a claim code or its own device ID. Rate limited so claim codes
	// cannot be brute-forced inside their TTL.
	hw := r.Group("/api/v1")
	hw.Use(hardwareLimiter)
	{
		hw.POST("/claims/redeem", claimHandler.Redeem)
		hw.POST("/hw/devices/:id/heartbeat", deviceHandler.Heartbeat)
		hw.GET("/hw/devices/:id/queue/next", queueHandler.PullNext)
		hw.POST("/hw/queue/:id/report", queueHandler.Report)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RequireAuth(tokenProvider))
	{
		api.POST("/claims", claimHandler.Create)
		api.GET("/claims", claimHandler.List)

		api.GET("/devices", deviceHandler.List)
		api.GET("/devices/:id", deviceHandler.Get)
		api.PATCH("/devices/:id", deviceHandler.Update)
		api.DELETE("/devices/:id", deviceHandler.Delete)
		api.POST("/devices/:id/learning", deviceHandler.SetLearning)

		api.GET("/devices/:id/commands", commandHandler.ListByDevice)
		api.POST("/devices/:id/commands", commandHandler.Capture)
		api.PATCH("/commands/:id", commandHandler.Rename)
		api.DELETE("/commands/:id", commandHandler.Delete)

		api.GET("/devices/:id/layout", layoutHandler.Get)
		api.PUT("/devices/:id/layout", layoutHandler.Save)

		api.POST("/devices/:id/queue", queueHandler.Enqueue)
		api.GET("/devices/:id/queue", queueHandler.ListByDevice)

		api.GET("/audit", auditHandler.List)
	}

	log.Printf("Pulsr server starting on %s", cfg.ServerAddr)
	log.Printf("Base URL: %s", cfg.BaseURL)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down audit service: %v", err)
			return err
		}
		return nil
	})

	// Periodically refresh the pending queue depth gauge
	if cfg.MetricsEnabled {
		m.AddRunningJob(func(ctx context.Context) error {
			const interval = 15 * time.Second
			wrapper := metrics.NewCacheWrapper(db, presenceCache)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			updateQueueDepthGauge(ctx, wrapper, recorder, interval)
			for {
				select {
				case <-ticker.C:
					updateQueueDepthGauge(ctx, wrapper, recorder, interval)
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	m.AddShutdownJob(func() error {
		if err := presenceCache.Close(); err != nil {
			log.Printf("Error closing presence cache: %v", err)
			return err
		}
		log.Println("Presence cache closed")
		return nil
	})

	<-m.Done()
}

// updateQueueDepthGauge refreshes the pending queue depth gauge. The cache
// TTL matches the update interval so all instances converge on one query.
func updateQueueDepthGauge(
	ctx context.Context,
	wrapper *metrics.CacheWrapper,
	recorder metrics.Recorder,
	ttl time.Duration,
) {
	depth, err := wrapper.GetPendingQueueDepth(ctx, ttl)
	if err != nil {
		recorder.RecordDatabaseQueryError("count_pending_queue")
		return
	}
	recorder.SetPendingQueueDepth(int(depth))
}

// initializePresenceCache selects the backend for device presence tracking
func initializePresenceCache(cfg *config.Config) cache.Cache[int64] {
	switch cfg.PresenceCacheType {
	case config.StoreTypeRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := cache.NewRueidisCache[int64](
			ctx,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			"presence:",
		)
		if err != nil {
			log.Fatalf("Failed to initialize redis presence cache: %v", err)
		}
		log.Printf("Presence cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c
	default:
		log.Println("Presence cache: memory (single instance only)")
		return cache.NewMemoryCache[int64]()
	}
}

// setupHardwareRateLimiter builds the limiter applied to anonymous endpoints
func setupHardwareRateLimiter(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimitEnabled {
		return func(c *gin.Context) { c.Next() }
	}

	log.Printf("Rate limiting enabled (store: %s)", cfg.RateLimitStore)
	limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		StoreType:         middleware.RateLimitStoreType(cfg.RateLimitStore),
		RedisAddr:         cfg.RedisAddr,
		RedisPassword:     cfg.RedisPassword,
		RedisDB:           cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}
	return limiter
}
