package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "turnos-api/pkg/errors"
)

// parseID читает положительный int64 из параметра пути.
func parseID(ctx echo.Context, name string) (int64, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неверный ID",
			apperrors.ErrBadRequest,
			map[string]interface{}{"param": name, "value": raw},
		)
	}
	return id, nil
}

// bindAndValidate - Bind + Validate, ошибки разбора тела отдаются как 400.
func bindAndValidate(ctx echo.Context, payload interface{}) error {
	if err := ctx.Bind(payload); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err, nil)
	}
	return ctx.Validate(payload)
}
