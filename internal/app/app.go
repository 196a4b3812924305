package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shopcart/internal/catalog"
	"github.com/xenking/shopcart/internal/domain/cart"
	"github.com/xenking/shopcart/internal/domain/product"
	"github.com/xenking/shopcart/internal/events"
	"github.com/xenking/shopcart/internal/handler"
	"github.com/xenking/shopcart/internal/storage/memstore"
	"github.com/xenking/shopcart/internal/storage/postgres"
	"github.com/xenking/shopcart/pkg/health"
	"github.com/xenking/shopcart/pkg/httpmiddleware"
)

// store is the persistence backend shared by cart reconciliation and the cart
// view.
type store interface {
	cart.Transactor
	health.Pinger
}

// Run creates all dependencies, starts the HTTP server and the event hub, and
// handles graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store),
	)

	st, lines, closeStore, err := openStore(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("store", 5*time.Second, health.Ping(st))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineLimit(10000))
	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()

	hub := events.NewHub(lg.Named("events"), events.Config{
		WriteTimeout: cfg.Events.WriteTimeout,
		Buffer:       cfg.Events.Buffer,
	})
	cartService := cart.NewService(st, lines, hub)

	h, err := handler.NewHandler(newCatalog(cfg, m), cartService, handler.Options{
		Events:        hub,
		MeterProvider: m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("cartd", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gCtx)
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Drain: stop advertising readiness, give load balancers time to
		// notice, then stop accepting requests.
		<-gCtx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	healthSvc.SetReady(true)
	return g.Wait()
}

// openStore builds the configured backend. The returned lines repository reads
// committed state outside of transactions.
func openStore(ctx context.Context, lg *zap.Logger, cfg *Config) (store, cart.Repository, func(), error) {
	switch cfg.Store {
	case StoreMemory:
		lg.Warn("Using in-memory store, the cart is lost on restart")
		s := memstore.New()
		return s, s.Lines(), func() {}, nil
	case StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, errors.Wrap(err, "run migrations")
		}
		s := postgres.NewStore(pool)
		return s, s.Lines(), pool.Close, nil
	default:
		return nil, nil, nil, errors.Errorf("unknown store %q", cfg.Store)
	}
}

func newCatalog(cfg *Config, m *app.Telemetry) product.Catalog {
	if cfg.CatalogFile != "" {
		return catalog.NewFileSource(cfg.CatalogFile)
	}
	return catalog.NewHTTPSource(cfg.CatalogURL,
		catalog.WithTracerProvider(m.TracerProvider()),
		catalog.WithMeterProvider(m.MeterProvider()),
	)
}
