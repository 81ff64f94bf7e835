package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "BrokerConsole/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a handler panic into a 500 handed to the server's error
// handler, so pages and API routes fail the same way they do for returned
// errors.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				req := c.Request()
				l.Error("panic recovered",
					applogger.String("method", req.Method),
					applogger.String("uri", req.RequestURI),
					applogger.Error(perr),
					applogger.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed {
					err = nil
					return
				}
				err = echo.NewHTTPError(http.StatusInternalServerError).SetInternal(perr)
			}()
			return next(c)
		}
	}
}
