package web

import (
	"net/http"
	"time"

	"BrokerConsole/internal/domain/models"
	"BrokerConsole/internal/service/ratelimit"
	"BrokerConsole/internal/usecase"
	applogger "BrokerConsole/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// NoticeTooManyLogins is shown when the login limiter rejects an attempt.
const NoticeTooManyLogins = "Too many login attempts, try again later"

const (
	csrfField  = "csrf"
	csrfCookie = "console_csrf"
)

// Handler serves the console views and the live chart stream.
type Handler struct {
	auth    *usecase.AdminAuth
	console *usecase.Console
	gate    *usecase.NavigationGate
	chart   *usecase.LiveChart
	limiter *ratelimit.Limiter
	log     *applogger.Logger
	csrf    echo.MiddlewareFunc

	upgrader  websocket.Upgrader
	writeWait time.Duration
	pongWait  time.Duration
}

// Option configures Handler.
type Option func(*Handler)

// WithLoginLimiter throttles POST /admin_login per client address.
func WithLoginLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithLogger sets the handler logger.
func WithLogger(l *applogger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithStreamTimeouts sets the chart stream write deadline and the time
// allowed between client pongs.
func WithStreamTimeouts(writeWait, pongWait time.Duration) Option {
	return func(h *Handler) {
		if writeWait > 0 {
			h.writeWait = writeWait
		}
		if pongWait > 0 {
			h.pongWait = pongWait
		}
	}
}

// NewHandler creates the console handler.
func NewHandler(
	auth *usecase.AdminAuth,
	console *usecase.Console,
	gate *usecase.NavigationGate,
	chart *usecase.LiveChart,
	opts ...Option,
) *Handler {
	h := &Handler{
		auth:    auth,
		console: console,
		gate:    gate,
		chart:   chart,
		log:     applogger.Nop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		writeWait: 10 * time.Second,
		pongWait:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.csrf = echomw.CSRFWithConfig(echomw.CSRFConfig{
		TokenLookup:    "form:" + csrfField,
		ContextKey:     csrfField,
		CookieName:     csrfCookie,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteStrictMode,
		ErrorHandler: func(err error, c echo.Context) error {
			h.log.Warn("form rejected: csrf token",
				applogger.String("path", c.Request().URL.Path),
				applogger.String("origin", c.Request().Header.Get(echo.HeaderOrigin)),
				applogger.Error(err),
			)
			return echo.NewHTTPError(http.StatusForbidden, "invalid csrf token")
		},
	})
	return h
}

// RegisterRoutes implements xhttp.Handler. Every page and form carries a
// CSRF token; the chart stream and health probe do not.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET(models.ViewRoot.Path(), h.Root, h.sameSite, h.csrf)
	e.GET(models.ViewLogin.Path(), h.LoginPage, h.sameSite, h.csrf)
	e.POST(models.ViewLogin.Path(), h.Login, h.sameSite, h.csrf)
	e.POST("/admin_logout", h.Logout, h.sameSite, h.csrf)

	e.GET(models.ViewDashboard.Path(), h.Dashboard, h.sameSite, h.csrf, h.guard(models.ViewDashboard))
	e.GET(models.ViewRegisterUser.Path(), h.RegisterUserPage, h.sameSite, h.csrf, h.guard(models.ViewRegisterUser))
	e.POST(models.ViewRegisterUser.Path(), h.RegisterUser, h.sameSite, h.csrf, h.guard(models.ViewRegisterUser))
	e.POST(models.ViewRegisterUser.Path()+"/bulk", h.BulkRegister, h.sameSite, h.csrf, h.guard(models.ViewRegisterUser))
	e.GET(models.ViewPlaceOrder.Path(), h.PlaceOrderPage, h.sameSite, h.csrf, h.guard(models.ViewPlaceOrder))
	e.POST(models.ViewPlaceOrder.Path(), h.PlaceOrder, h.sameSite, h.csrf, h.guard(models.ViewPlaceOrder))
	e.GET(models.ViewTrades.Path(), h.Trades, h.sameSite, h.csrf, h.guard(models.ViewTrades))
	e.GET(models.ViewChart.Path(), h.ChartPage, h.sameSite, h.csrf, h.guard(models.ViewChart))
	e.GET(models.ViewChart.Path()+"/stream", h.ChartStream, h.sameSite, h.guard(models.ViewChart))
}

// sameSite refuses form posts and stream upgrades that the browser marks as
// coming from another site.
func (h *Handler) sameSite(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		safe := req.Method == http.MethodGet && !websocket.IsWebSocketUpgrade(req)
		if !safe && req.Header.Get("Sec-Fetch-Site") == "cross-site" {
			h.log.Warn("cross-site request rejected",
				applogger.String("path", req.URL.Path),
				applogger.String("origin", req.Header.Get(echo.HeaderOrigin)),
			)
			return echo.NewHTTPError(http.StatusForbidden, "cross-site request")
		}
		return next(c)
	}
}

// guard sends unauthenticated requests to the login view. Websocket upgrades
// cannot follow a redirect and get 401 instead.
func (h *Handler) guard(view models.View) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := h.gate.Resolve(view)
			if !d.Redirect {
				return next(c)
			}
			if websocket.IsWebSocketUpgrade(c.Request()) {
				return echo.NewHTTPError(http.StatusUnauthorized, "login required")
			}
			return c.Redirect(http.StatusFound, d.View.Path())
		}
	}
}
