package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"turnos-api/internal/services"
	"turnos-api/pkg/api"
	appwebsocket "turnos-api/pkg/websocket"
)

// табло подключаются с любых адресов
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketController struct {
	baseCtx  context.Context
	hub      *appwebsocket.Hub
	notifier services.QueueNotifierInterface
	opts     appwebsocket.Options
	logger   *zap.Logger
}

// NewWebSocketController: baseCtx отменяется при остановке сервера и закрывает всех зрителей.
func NewWebSocketController(
	baseCtx context.Context,
	hub *appwebsocket.Hub,
	notifier services.QueueNotifierInterface,
	opts appwebsocket.Options,
	logger *zap.Logger,
) *WebSocketController {
	return &WebSocketController{
		baseCtx:  baseCtx,
		hub:      hub,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// ServeWs подключает зрителя к филиалу и держит соединение до его закрытия.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	branchID, err := parseID(ctx, "branch_id")
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// Upgrade сам ответил клиенту ошибкой
		c.logger.Warn("WebSocket: не удалось улучшить соединение", zap.Error(err))
		return nil
	}

	client := appwebsocket.NewClient(c.hub, conn, branchID, c.opts, c.logger)
	go client.WritePump()

	if err := c.notifier.AttachViewer(ctx.Request().Context(), branchID, client); err != nil {
		c.logger.Error("WebSocket: не удалось подключить зрителя",
			zap.Int64("branchID", branchID),
			zap.Error(err),
		)
		_ = client.Close()
		return nil
	}

	c.logger.Info("WebSocket: зритель подключён",
		zap.Int64("branchID", branchID),
		zap.String("connID", client.ID()),
	)
	client.ReadPump(c.baseCtx)
	c.logger.Info("WebSocket: зритель отключён",
		zap.Int64("branchID", branchID),
		zap.String("connID", client.ID()),
	)
	return nil
}
