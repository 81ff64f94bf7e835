package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	xhttp "BrokerConsole/pkg/http"
	applogger "BrokerConsole/pkg/logger"
)

// App encapsulates the console process lifecycle.
type App struct {
	httpServer *xhttp.Server
	closers    []io.Closer
	log        *applogger.Logger
}

// New creates a new App. Closers run in order during shutdown, after the HTTP
// server has drained.
func New(httpServer *xhttp.Server, l *applogger.Logger, closers ...io.Closer) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		httpServer: httpServer,
		closers:    closers,
		log:        l,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the HTTP server and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("console started", applogger.String("addr", a.httpServer.Addr()))

	<-ctx.Done()

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", fmt.Sprintf("%T", c)), applogger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	a.log.Info("shutdown complete")
	return firstErr
}
