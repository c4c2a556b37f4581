// Package transit wires the route scanner, the transition handler and the
// ambient HTTP stack into one http.Handler.
//
//	reg := transition.NewRegistry()
//	routes.Register(reg) // generated: RegisterPage, RegisterLayout, ...
//
//	cfg, err := config.LoadFile("transit.json")
//	app, err := transit.New(transit.Options{Config: cfg, Registry: reg})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go app.Watch(ctx) // development only
//	http.ListenAndServe(":8080", app)
package transit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/transit/internal/config"
	"github.com/vango-dev/transit/internal/dev"
	"github.com/vango-dev/transit/internal/errors"
	"github.com/vango-dev/transit/pkg/assets"
	"github.com/vango-dev/transit/pkg/middleware"
	"github.com/vango-dev/transit/pkg/render"
	"github.com/vango-dev/transit/pkg/router"
	"github.com/vango-dev/transit/pkg/transition"
)

// Options configures an App.
type Options struct {
	// Config is the loaded transit.json. Defaults to config.New().
	Config *config.Config

	// Registry holds the compiled route modules. Required.
	Registry *transition.Registry

	// Renderer configures document output. In development the reload
	// snippet is appended to BodyEnd.
	Renderer render.RendererConfig

	// S3 reads an s3:// asset manifest.
	S3 assets.S3API

	// Metrics is where Prometheus metrics are registered and gathered.
	// Defaults to the global registry.
	Metrics interface {
		prometheus.Registerer
		prometheus.Gatherer
	}

	// TracerProvider overrides the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// App serves a route tree. It is safe for concurrent use; Rebuild installs
// a new route generation without interrupting in-flight requests.
type App struct {
	cfg      *config.Config
	registry *transition.Registry
	handler  *transition.Handler
	mux      http.Handler
	logger   *slog.Logger
	s3       assets.S3API

	bundle atomic.Pointer[assets.Bundle]
	reload *dev.ReloadServer

	rebuildMu sync.Mutex
}

// New loads the asset manifest, scans the route tree and installs the
// first route generation.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}
	if opts.Registry == nil {
		return nil, errors.New("E121").WithDetail("a route registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:      cfg,
		registry: opts.Registry,
		logger:   logger.With("component", "app"),
		s3:       opts.S3,
	}

	if err := a.loadAssets(context.Background()); err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		var reg prometheus.Registerer = prometheus.DefaultRegisterer
		if opts.Metrics != nil {
			reg = opts.Metrics
		}
		a.registry.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
	}
	if cfg.Tracing.Enabled {
		a.registry.Use(middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.TracerName),
			middleware.WithTracerProvider(opts.TracerProvider),
		))
	}

	rcfg := opts.Renderer
	if !cfg.Production {
		a.reload = dev.NewReloadServer(logger)
		rcfg.BodyEnd += dev.ClientScript(cfg.Dev.ReloadPath)
	}

	a.handler = transition.NewHandler(a.registry, transition.Config{
		TransitionPath: cfg.Transition.Path,
		Production:     cfg.Production,
		Renderer:       rcfg,
		Assets:         bundleAssets{a},
		Logger:         logger,
	})

	if err := a.Rebuild(); err != nil {
		return nil, err
	}

	a.mux = a.routes(opts)
	return a, nil
}

func (a *App) routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestID(a.logger))

	if a.cfg.Metrics.Enabled {
		var g prometheus.Gatherer = prometheus.DefaultGatherer
		if opts.Metrics != nil {
			g = opts.Metrics
		}
		r.Method(http.MethodGet, a.cfg.Metrics.Path, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	if a.reload != nil {
		r.Method(http.MethodGet, a.cfg.Dev.ReloadPath, a.reload)
	}

	var h http.Handler = a.handler
	if a.cfg.Compress {
		h = gzhttp.GzipHandler(h)
	}
	h = newStaticFiles(a.cfg.PublicPath(), "/", a.cfg.Production).wrap(h)
	r.Handle("/*", h)
	r.Handle("/", h)
	return r
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// Handler returns the transition handler.
func (a *App) Handler() *transition.Handler { return a.handler }

// Routes returns the active route generation.
func (a *App) Routes() *transition.Routes { return a.handler.Routes() }

// Rebuild rescans the route tree and swaps in the result. On failure the
// previous generation stays active and, in development, connected
// browsers are told about the error.
func (a *App) Rebuild() error {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	err := a.rebuild()
	if err != nil {
		a.logger.Error("route rebuild failed", "error", err)
		if a.reload != nil {
			a.reload.NotifyError(err.Error())
		}
	}
	return err
}

func (a *App) rebuild() error {
	m, err := router.NewScanner(a.cfg.RoutesPath(), a.cfg.GeneratedPath()).Scan()
	if err != nil {
		return err
	}

	version := ""
	if !a.cfg.Production {
		version = uuid.NewString()
	}
	rt, err := transition.NewRoutes(m, a.bundle.Load().Snapshot(), version)
	if err != nil {
		return err
	}
	if err := a.handler.Swap(rt); err != nil {
		return err
	}

	middleware.RecordRouteSwap(len(m.Pages) + len(m.API))
	a.logger.Info("routes installed", "pages", len(m.Pages), "api", len(m.API), "version", version)
	if a.reload != nil {
		a.reload.NotifyVersion(version)
	}
	return nil
}

// Watch rebuilds on route tree changes until ctx is canceled. It returns
// immediately when watching is disabled, which it always is in production.
func (a *App) Watch(ctx context.Context) error {
	if !a.cfg.WatchEnabled() {
		return nil
	}

	w := dev.NewWatcher(dev.WatcherConfig{
		Paths:    dev.CollectWatchPaths(a.cfg),
		Debounce: a.cfg.Dev.Debounce.Std(),
		Logger:   a.logger,
	})
	w.OnChange(func(changes []dev.Change) {
		for _, c := range changes {
			if c.Type == dev.ChangeManifest && c.Path == a.cfg.AssetsPath() {
				if err := a.loadAssets(ctx); err != nil {
					a.logger.Error("asset manifest reload failed", "error", err)
				}
				break
			}
		}
		a.Rebuild()
	})
	return w.Start(ctx)
}

// Close disconnects dev reload clients.
func (a *App) Close() {
	if a.reload != nil {
		a.reload.Close()
	}
}

func (a *App) loadAssets(ctx context.Context) error {
	m, err := a.readManifest(ctx)
	if err != nil {
		return errors.New("E120").
			WithDetail("asset manifest " + a.cfg.Paths.Assets + " could not be loaded").
			Wrap(err)
	}
	a.bundle.Store(assets.NewBundle(m, assets.NewResolver(m, a.cfg.Paths.AssetPrefix)))
	return nil
}

func (a *App) readManifest(ctx context.Context) (*assets.Manifest, error) {
	p := a.cfg.AssetsPath()
	switch {
	case p == "":
		return assets.NewManifest(), nil
	case config.IsS3URL(p):
		if a.s3 == nil {
			return nil, fmt.Errorf("%s: no S3 client configured", p)
		}
		bucket, key := splitS3URL(p)
		return assets.LoadFrom(ctx, assets.S3Source{Client: a.s3, Bucket: bucket}, key)
	default:
		return assets.Load(p)
	}
}

func splitS3URL(u string) (bucket, key string) {
	rest := u[len("s3://"):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:]
		}
	}
	return rest, ""
}

// bundleAssets reads the current bundle on every call so that manifest
// reloads reach the handler.
type bundleAssets struct{ a *App }

func (b bundleAssets) Stylesheets(routeID string) []string {
	return b.a.bundle.Load().Stylesheets(routeID)
}

func (b bundleAssets) Scripts(routeID string) []string {
	return b.a.bundle.Load().Scripts(routeID)
}
