package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"slotbook/internal/bookings/handler"
	"slotbook/internal/bookings/repository"
	"slotbook/pkg/config"
	"slotbook/pkg/contracts"
	"slotbook/pkg/metrics"
	"slotbook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.RateLimiter
	opsHandler       http.Handler
	appHttpHandler   http.Handler
	workers          []contracts.Worker
	stopWorkers      context.CancelFunc
	workersDone      sync.WaitGroup
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// SetApp builds the HTTP stack. Workers are started by Run and stopped
// before the server drains.
func (a *Application) SetApp(store repository.Store, handlers []contracts.Handler, workers ...contracts.Worker) {
	a.workers = workers
	a.setOpsHandler(store)
	a.setAppHandler(handlers)
	a.setAppServer()
}

func (a *Application) setOpsHandler(store repository.Store) {
	opsRouter := httprouter.New()
	handler.NewHealthHandler(store, a.cfg.Log).RegisterRoutes(opsRouter)
	metrics.RegisterRoutes(opsRouter)

	var opsHTTPHandler http.Handler = opsRouter
	opsHTTPHandler = middleware.RequestLogging(a.cfg.Log)(opsHTTPHandler)
	opsHTTPHandler = middleware.Recovery(a.cfg.Log)(opsHTTPHandler)
	a.opsHandler = opsHTTPHandler
	a.cfg.Log.Info("Ops endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(handlers []contracts.Handler) {
	appRouter := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(appRouter)
	}

	if a.cfg.Client != nil && a.cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL)
		a.cfg.Log.Info("Idempotency keys stored in Redis")
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
		a.cfg.Log.Info("Idempotency keys stored in memory")
	}
	a.rateLimiter = middleware.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst, middleware.ClientIPKey, a.cfg.Log)

	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.Idempotency(a.idempotencyStore, a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHttpHandler)
	appHttpHandler = middleware.RateLimit(a.rateLimiter)(appHttpHandler)
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.RequestLogging(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.opsHandler)
	mux.Handle("/ready", a.opsHandler)
	mux.Handle("/metrics", a.opsHandler)
	mux.Handle("/", a.appHttpHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler returns the fully wrapped server handler.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) startWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWorkers = cancel

	a.rateLimiter.StartJanitor(ctx, 2*time.Minute)
	for _, w := range a.workers {
		a.workersDone.Add(1)
		go func(w contracts.Worker) {
			defer a.workersDone.Done()
			w.Run(ctx)
		}(w)
	}
}

func (a *Application) Run() {
	a.startWorkers()
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	a.cfg.Log.Info("Stopping background workers...")
	if a.stopWorkers != nil {
		a.stopWorkers()
	}
	a.workersDone.Wait()
	a.idempotencyStore.Stop()
	a.cfg.Log.Info("Background workers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
