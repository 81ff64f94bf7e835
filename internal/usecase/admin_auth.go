package usecase

import (
	"context"

	"BrokerConsole/internal/domain/models"
	drepo "BrokerConsole/internal/domain/repository"
	applogger "BrokerConsole/pkg/logger"
)

const (
	NoticeLoginFailed = "Login failed"
	NoticeLoginError  = "Error logging in"
)

// AdminAuth runs the admin login and logout flows.
type AdminAuth struct {
	api     drepo.BrokerAPI
	session drepo.SessionStore
	log     *applogger.Logger
}

// NewAdminAuth creates an AdminAuth.
func NewAdminAuth(api drepo.BrokerAPI, session drepo.SessionStore, l *applogger.Logger) *AdminAuth {
	if l == nil {
		l = applogger.Nop()
	}
	return &AdminAuth{api: api, session: session, log: l}
}

// Login authenticates against the broker server. On success the session is
// marked authenticated and the notice is empty; otherwise the session is left
// untouched and notice says why.
func (a *AdminAuth) Login(ctx context.Context, req models.LoginRequest) (ok bool, notice string) {
	resp, err := a.api.AdminLogin(ctx, req)
	if err != nil {
		a.log.Error("admin login request failed", applogger.String("username", req.Username), applogger.Error(err))
		return false, NoticeLoginError
	}
	if !resp.Success {
		a.log.Info("admin login rejected", applogger.String("username", req.Username))
		if resp.Message != "" {
			return false, resp.Message
		}
		return false, NoticeLoginFailed
	}

	a.session.Login(ctx)
	a.log.Info("admin logged in", applogger.String("username", req.Username))
	return true, ""
}

// Logout clears the local session, then tells the server. The server call is
// best effort; the local flag is authoritative.
func (a *AdminAuth) Logout(ctx context.Context) {
	a.session.Logout(ctx)
	if err := a.api.AdminLogout(ctx); err != nil {
		a.log.Warn("admin logout request failed", applogger.Error(err))
	}
	a.log.Info("admin logged out")
}
