package web

import (
	"net/http"

	"BrokerConsole/internal/domain/models"
	xhttp "BrokerConsole/pkg/http"
	applogger "BrokerConsole/pkg/logger"
	"BrokerConsole/pkg/util"

	"github.com/labstack/echo/v4"
)

const (
	noticeLoggedOut        = "Logged out"
	noticeDashboardFailed  = "Error loading dashboard"
	noticeUsersFailed      = "Error loading users"
	noticeTradesFailed     = "Error loading trades"
	noticeUploadUnreadable = "Could not read the uploaded file"
)

// maxTrackedClients bounds the login limiter before idle entries are pruned.
const maxTrackedClients = 1024

// page is the data every template receives.
type page struct {
	Title    string
	Notice   *Notice
	LoggedIn bool
	CSRF     string

	Login    models.LoginRequest
	Stats    *models.DashboardStats
	Brokers  []string
	Register models.RegisterUserRequest
	Users    []models.User
	Order    models.ManualTradeForm
	Trades   []models.Trade
}

func (h *Handler) render(c echo.Context, status int, name string, p *page) error {
	p.LoggedIn = h.gate.Authenticated()
	p.CSRF, _ = c.Get(csrfField).(string)
	if p.Notice == nil {
		p.Notice = takeNotice(c)
	}
	return c.Render(status, name, p)
}

func (h *Handler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Root shows the dashboard or the login form without redirecting.
func (h *Handler) Root(c echo.Context) error {
	if h.gate.Resolve(models.ViewRoot).View == models.ViewDashboard {
		return h.Dashboard(c)
	}
	return h.render(c, http.StatusOK, pageLogin, &page{Title: "Login"})
}

func (h *Handler) LoginPage(c echo.Context) error {
	if d := h.gate.Resolve(models.ViewLogin); d.Redirect {
		return c.Redirect(http.StatusFound, d.View.Path())
	}
	return h.render(c, http.StatusOK, pageLogin, &page{Title: "Login"})
}

func (h *Handler) Login(c echo.Context) error {
	ip := c.RealIP()
	if h.limiter != nil && h.limiter.Len() > maxTrackedClients {
		h.limiter.Prune()
	}
	if h.limiter != nil && !h.limiter.Allow(ip) {
		h.log.Warn("login throttled", applogger.String("ip", ip))
		return h.render(c, http.StatusTooManyRequests, pageLogin, &page{
			Title:  "Login",
			Notice: errorNotice(NoticeTooManyLogins),
		})
	}

	req := &models.LoginRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.render(c, http.StatusBadRequest, pageLogin, &page{
			Title:  "Login",
			Notice: errorNotice(xhttp.FirstMessage(verr)),
			Login:  models.LoginRequest{Username: req.Username},
		})
	}

	ok, notice := h.auth.Login(c.Request().Context(), *req)
	if !ok {
		return h.render(c, http.StatusUnauthorized, pageLogin, &page{
			Title:  "Login",
			Notice: errorNotice(notice),
			Login:  models.LoginRequest{Username: req.Username},
		})
	}
	if h.limiter != nil {
		h.limiter.Reset(ip)
	}
	return c.Redirect(http.StatusFound, models.ViewDashboard.Path())
}

func (h *Handler) Logout(c echo.Context) error {
	h.auth.Logout(c.Request().Context())
	flash(c, noticeFor(true, noticeLoggedOut))
	return c.Redirect(http.StatusFound, models.ViewLogin.Path())
}

func (h *Handler) Dashboard(c echo.Context) error {
	p := &page{Title: "Dashboard"}
	status := http.StatusOK
	stats, err := h.console.Dashboard(c.Request().Context())
	if err != nil {
		p.Notice = errorNotice(noticeDashboardFailed)
		status = http.StatusBadGateway
	}
	p.Stats = stats
	return h.render(c, status, pageDashboard, p)
}

func (h *Handler) RegisterUserPage(c echo.Context) error {
	return h.render(c, http.StatusOK, pageRegisterUser, &page{
		Title:    "Register User",
		Brokers:  models.Brokers,
		Register: models.RegisterUserRequest{Broker: models.Brokers[0], DefaultQuantity: 1},
	})
}

func (h *Handler) RegisterUser(c echo.Context) error {
	req := &models.RegisterUserRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.render(c, http.StatusBadRequest, pageRegisterUser, &page{
			Title:    "Register User",
			Notice:   errorNotice(xhttp.FirstMessage(verr)),
			Brokers:  models.Brokers,
			Register: *req,
		})
	}

	ok, notice := h.console.RegisterUser(c.Request().Context(), *req)
	if !ok {
		return h.render(c, http.StatusUnprocessableEntity, pageRegisterUser, &page{
			Title:    "Register User",
			Notice:   errorNotice(notice),
			Brokers:  models.Brokers,
			Register: *req,
		})
	}
	flash(c, noticeFor(true, notice))
	return c.Redirect(http.StatusFound, models.ViewRegisterUser.Path())
}

// BulkRegister forwards the uploaded CSV. The outcome is always shown on the
// registration page.
func (h *Handler) BulkRegister(c echo.Context) error {
	ctx := c.Request().Context()

	fh, err := c.FormFile("file")
	if err != nil {
		_, notice := h.console.BulkRegister(ctx, "", nil)
		flash(c, errorNotice(notice))
		return c.Redirect(http.StatusFound, models.ViewRegisterUser.Path())
	}
	src, err := fh.Open()
	if err != nil {
		h.log.Error("open upload", applogger.String("file", fh.Filename), applogger.Error(err))
		flash(c, errorNotice(noticeUploadUnreadable))
		return c.Redirect(http.StatusFound, models.ViewRegisterUser.Path())
	}
	defer src.Close()

	ok, notice := h.console.BulkRegister(ctx, fh.Filename, src)
	flash(c, noticeFor(ok, notice))
	return c.Redirect(http.StatusFound, models.ViewRegisterUser.Path())
}

func (h *Handler) PlaceOrderPage(c echo.Context) error {
	p := &page{
		Title: "Place Order",
		Order: models.ManualTradeForm{TransactionType: string(models.Buy), Exchange: "NSE"},
	}
	return h.renderOrder(c, http.StatusOK, p)
}

func (h *Handler) PlaceOrder(c echo.Context) error {
	form := &models.ManualTradeForm{}
	if verr := xhttp.ReadAndValidateRequest(c, form); verr != nil {
		return h.renderOrder(c, http.StatusBadRequest, &page{
			Title:  "Place Order",
			Notice: errorNotice(xhttp.FirstMessage(verr)),
			Order:  *form,
		})
	}

	ok, notice := h.console.PlaceOrder(c.Request().Context(), *form)
	if !ok {
		return h.renderOrder(c, http.StatusUnprocessableEntity, &page{
			Title:  "Place Order",
			Notice: errorNotice(notice),
			Order:  *form,
		})
	}
	flash(c, noticeFor(true, notice))
	return c.Redirect(http.StatusFound, models.ViewPlaceOrder.Path())
}

// renderOrder fills the user list. A failed lookup still renders the form.
func (h *Handler) renderOrder(c echo.Context, status int, p *page) error {
	users, err := h.console.Users(c.Request().Context())
	if err != nil && p.Notice == nil {
		p.Notice = errorNotice(noticeUsersFailed)
	}
	p.Users = users
	return h.render(c, status, pagePlaceOrder, p)
}

// Trades lists trade history. ?limit=n keeps the newest n rows.
func (h *Handler) Trades(c echo.Context) error {
	p := &page{Title: "Trades"}
	status := http.StatusOK
	trades, err := h.console.Trades(c.Request().Context())
	if err != nil {
		p.Notice = errorNotice(noticeTradesFailed)
		status = http.StatusBadGateway
	}
	if n := util.ParseIntDefault(c.QueryParam("limit"), 0); n > 0 && len(trades) > n {
		trades = trades[len(trades)-n:]
	}
	p.Trades = trades
	return h.render(c, status, pageTrades, p)
}

func (h *Handler) ChartPage(c echo.Context) error {
	return h.render(c, http.StatusOK, pageChart, &page{Title: "Live Chart"})
}
