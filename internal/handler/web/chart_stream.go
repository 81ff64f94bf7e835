package web

import (
	"context"
	"time"

	"BrokerConsole/internal/domain/models"
	"BrokerConsole/internal/usecase"
	applogger "BrokerConsole/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// NoticeFeedUnavailable is sent when the feed cannot be opened at all.
const NoticeFeedUnavailable = "Live feed unavailable. Reload the page to retry."

// ChartStream upgrades to a websocket and streams chart frames for one live
// chart instance. The chart lives exactly as long as the websocket.
func (h *Handler) ChartStream(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		h.log.Warn("chart stream: upgrade failed", applogger.Error(err))
		return nil
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Reading starts before Mount so a client leaving mid-connect cancels the dial.
	go h.readPump(ws, cancel)

	chart, err := h.chart.Mount(ctx)
	if err != nil {
		if ctx.Err() != nil {
			h.log.Debug("chart stream: client left while connecting", applogger.Error(err))
			return nil
		}
		h.log.Error("chart stream: mount failed", applogger.Error(err))
		_ = h.writeFrame(ws, models.ChartFrame{
			State:  models.Disconnected,
			Series: usecase.RenderSeries(nil),
			Notice: NoticeFeedUnavailable,
		})
		h.closeStream(ws)
		return nil
	}
	defer chart.Unmount()

	ping := time.NewTicker(h.pongWait * 9 / 10)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-chart.Frames():
			if !ok {
				h.closeStream(ws)
				return nil
			}
			if err := h.writeFrame(ws, frame); err != nil {
				h.log.Debug("chart stream: write failed", applogger.Error(err))
				return nil
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeWait)); err != nil {
				return nil
			}
		}
	}
}

// readPump discards client messages and cancels the stream when the client
// goes away or stops answering pings.
func (h *Handler) readPump(ws *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		if _, _, err := ws.NextReader(); err != nil {
			return
		}
	}
}

func (h *Handler) writeFrame(ws *websocket.Conn, f models.ChartFrame) error {
	_ = ws.SetWriteDeadline(time.Now().Add(h.writeWait))
	return ws.WriteJSON(f)
}

func (h *Handler) closeStream(ws *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.writeWait))
}
