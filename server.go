package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/filters"
	"github.com/professorSergio12/Stock-Broker/ingest"
	"github.com/professorSergio12/Stock-Broker/middlewares"
	"github.com/professorSergio12/Stock-Broker/records"
	"github.com/professorSergio12/Stock-Broker/store"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("stock-broker")

const (
	janitorInterval  = time.Minute
	redisMaxAttempts = 5
	shutdownTimeout  = 30 * time.Second
)

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "stock-broker"})
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	// In production only CORS_ALLOWED_ORIGINS may call; with no list every
	// origin is refused. Elsewhere any origin is allowed.
	if config.IsProduction() {
		if origins := config.CORSAllowedOrigins(); len(origins) > 0 {
			cfg.AllowOrigins = origins
		} else {
			cfg.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods("GET", "POST", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", "Authorization", "Cache-Control", "Pragma", "Expires",
		middlewares.HeaderCorrelationID, middlewares.HeaderRequestID)
	cfg.AddExposeHeaders("Content-Length", middlewares.HeaderCorrelationID)
	return cfg
}

// newRouter mounts every endpoint. ready gates /api until the record store
// is connected.
func newRouter(logger *logrus.Logger, ready func() bool, engine *ingest.Engine, svc *records.Service) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.RequestLogger(logger))
	r.Use(cors.New(corsConfig()))
	r.Use(middlewares.ReadinessGate(ready))
	if config.RateLimitEnabled() {
		r.Use(middlewares.NewRateLimiter(config.GetRedisDB, config.RateLimitMaxRequests(), config.RateLimitWindow()).Middleware())
	}
	r.Use(middlewares.ErrorLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/", rootHandler)

	api := r.Group("/api")
	ingest.RegisterRoutes(api, engine, config.ImportMaxUploadBytes())
	records.RegisterRoutes(api.Group("/records"), svc)

	r.NoRoute(customNotFoundHandler)
	return r
}

func newEngine(recordStore store.RecordStore, tracker *ingest.Tracker, table string, cache *records.Cache, logger *logrus.Logger) *ingest.Engine {
	cfg := ingest.EngineConfig{
		Store:     recordStore,
		Tracker:   tracker,
		Table:     table,
		BatchSize: config.ImportBatchSize(),
		Logger:    logger,
		Tracer:    tracer,
	}
	if config.ImportArchiveEnabled() {
		cfg.Archive = ingest.GCSArchiver(config.ImportArchivePrefix(), nil)
	}
	engine := ingest.NewEngine(cfg)
	if cache != nil {
		engine.AddHook(cache.InvalidateOnImport)
	}
	if config.ImportEventsEnabled() {
		engine.AddHook(ingest.PubSubHook(config.ImportEventsTopic(), nil))
	}
	return engine
}

func main() {
	port := config.Port()
	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	table := filters.Table(config.RecordTable())
	recordStore := &store.Deferred{}
	tracker := ingest.NewTracker(config.ImportJobTTL())

	var cache *records.Cache
	if config.RecordsCacheEnabled() {
		cache = records.NewCache(config.RecordsCacheTTL())
	}
	engine := newEngine(recordStore, tracker, table, cache, logger)
	svc := records.NewService(records.Config{
		Store:  recordStore,
		Table:  table,
		Cache:  cache,
		Logger: logger,
		Tracer: tracer,
	})

	// Listen before the store is connected; /api answers 503 until it is.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newRouter(logger, recordStore.Ready, engine, svc),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	janitorCtx, cancelJanitor := context.WithCancel(context.Background())
	defer cancelJanitor()
	go tracker.Run(janitorCtx, janitorInterval)

	if cache != nil || config.RateLimitEnabled() {
		go config.ConnectRedisWithRetry(sigCtx, redisMaxAttempts)
	}

	st, closeStore, err := store.Open(sigCtx, table, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field":  "store",
			"driver": config.StoreDriver(),
		}).Fatal("failed to open record store: " + err.Error())
	}
	defer closeStore()
	recordStore.Set(st)

	logger.WithFields(logrus.Fields{
		"info":   "Connection Established",
		"driver": config.StoreDriver(),
		"table":  table,
	}).Info("listening on :", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelJanitor()

	// Running imports are not waited for; only HTTP requests are drained.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
