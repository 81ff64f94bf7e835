package di

import (
	"context"
	"fmt"
	"time"

	"BrokerConsole/internal/domain/repository"
	"BrokerConsole/internal/handler/web"
	mid "BrokerConsole/internal/middleware"
	"BrokerConsole/internal/service/broker"
	"BrokerConsole/internal/service/feed"
	"BrokerConsole/internal/service/ratelimit"
	"BrokerConsole/internal/service/session"
	"BrokerConsole/internal/usecase"
	"BrokerConsole/pkg/cache"
	"BrokerConsole/pkg/config"
	xhttp "BrokerConsole/pkg/http"
	applogger "BrokerConsole/pkg/logger"
	"BrokerConsole/pkg/metrics"
	"BrokerConsole/pkg/server"
)

// ProvideLogger creates the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideHTTPClient creates the outbound client. Its cookie jar holds the
// broker server session and is shared with the feed dialer.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Broker.Timeout),
		xhttp.WithUserAgent("broker-console/"+cfg.Environment),
	)
}

// ProvideBrokerAPI creates the broker server API client.
func ProvideBrokerAPI(cfg *config.Config, client *xhttp.Client, l *applogger.Logger) repository.BrokerAPI {
	return broker.New(cfg.Broker.BaseURL, client, l.With(applogger.String("component", "broker_api")))
}

// ProvideSessionStorage opens the backend that keeps the admin flag across
// restarts.
func ProvideSessionStorage(cfg *config.Config) (cache.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Session.Redis.Host),
			cache.WithRedisPort(cfg.Session.Redis.Port),
			cache.WithRedisPassword(cfg.Session.Redis.Password),
			cache.WithRedisDB(cfg.Session.Redis.DB),
			cache.WithRedisPrefix(cfg.Session.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("session storage: %w", err)
		}
		return rc, nil
	case "memory":
		return cache.NewMemoryCache(), nil
	default:
		fc, err := cache.NewFileCache(cache.WithFilePath(cfg.Session.FilePath))
		if err != nil {
			return nil, fmt.Errorf("session storage: %w", err)
		}
		return fc, nil
	}
}

// ProvideSessionStore loads the persisted admin flag.
func ProvideSessionStore(cfg *config.Config, storage cache.Store, l *applogger.Logger) repository.SessionStore {
	return session.New(context.Background(), storage,
		session.WithKey(cfg.Session.Key),
		session.WithLogger(l.With(applogger.String("component", "session"))),
	)
}

func ProvideNavigationGate(s repository.SessionStore) *usecase.NavigationGate {
	return usecase.NewNavigationGate(s)
}

func ProvideAdminAuth(api repository.BrokerAPI, s repository.SessionStore, l *applogger.Logger) *usecase.AdminAuth {
	return usecase.NewAdminAuth(api, s, l)
}

// ProvideUsersCache holds short-lived broker lookups.
func ProvideUsersCache() *cache.MemoryCache {
	return cache.NewMemoryCache(cache.WithMemoryMaxSize(16), cache.WithMemoryCleanup(time.Minute))
}

func ProvideConsole(cfg *config.Config, api repository.BrokerAPI, users *cache.MemoryCache, l *applogger.Logger) *usecase.Console {
	return usecase.NewConsole(api, l, usecase.WithUsersCache(users, cfg.Broker.UsersCacheTTL))
}

// ProvideFeedDialer creates the Socket.IO dialer for the trade feed.
func ProvideFeedDialer(cfg *config.Config, client *xhttp.Client) repository.FeedDialer {
	return feed.NewSocketDialer(cfg.Broker.BaseURL, cfg.Feed.SocketPath, client.Jar(), cfg.Feed.HandshakeTimeout)
}

func ProvideFeedPipeline(l *applogger.Logger, m repository.Metrics) *mid.FeedPipeline {
	return mid.NewFeedPipeline(
		mid.WithPipelineLogger(l.With(applogger.String("component", "feed_pipeline"))),
		mid.WithPipelineMetrics(m),
	)
}

func ProvideLiveChart(
	cfg *config.Config,
	dialer repository.FeedDialer,
	pipeline *mid.FeedPipeline,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.LiveChart {
	return usecase.NewLiveChart(dialer, pipeline,
		usecase.WithBufferLimit(cfg.Feed.BufferLimit),
		usecase.WithChartLogger(l.With(applogger.String("component", "live_chart"))),
		usecase.WithChartMetrics(m),
	)
}

// ProvideLoginLimiter throttles admin login attempts per client address.
func ProvideLoginLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.LoginLimit.Capacity, cfg.LoginLimit.RefillPerSec)
}

func ProvideWebHandler(
	auth *usecase.AdminAuth,
	console *usecase.Console,
	gate *usecase.NavigationGate,
	chart *usecase.LiveChart,
	limiter *ratelimit.Limiter,
	l *applogger.Logger,
) *web.Handler {
	return web.NewHandler(auth, console, gate, chart,
		web.WithLoginLimiter(limiter),
		web.WithLogger(l.With(applogger.String("component", "web"))),
	)
}

func ProvideRenderer() (*web.Renderer, error) {
	return web.NewRenderer()
}

// ProvideHTTPServer creates the console HTTP server.
func ProvideHTTPServer(cfg *config.Config, h *web.Handler, r *web.Renderer, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(metricsPath, cfg.Server.SlowThreshold),
		xhttp.WithRenderer(r),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application. Caches are closed after the HTTP
// server has drained.
func ProvideApp(srv *xhttp.Server, l *applogger.Logger, storage cache.Store, users *cache.MemoryCache) *server.App {
	return server.New(srv, l, storage, users)
}
