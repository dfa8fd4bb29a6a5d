package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"turnos-api/pkg/api"
	apperrors "turnos-api/pkg/errors"
	"turnos-api/pkg/utils"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db      Pinger
	timeout time.Duration
}

func NewHealthController(db Pinger, timeout time.Duration) *HealthController {
	return &HealthController{db: db, timeout: timeout}
}

func (c *HealthController) Health(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.db.Ping(reqCtx); err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusServiceUnavailable, "База данных недоступна", err, nil))
	}
	return api.SuccessOne(ctx, http.StatusOK, "ok", map[string]string{"status": "ok"})
}
