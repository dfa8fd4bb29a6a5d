package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "turnos-api/pkg/errors"
)

type Response[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Body    T      `json:"body,omitempty"`
}

type ListBody[T any] struct {
	List  []T `json:"list"`
	Total int `json:"total"`
}

// SuccessOne - для возврата одного объекта
func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Status:  true,
		Message: message,
		Body:    data,
	})
}

// SuccessList - список без пагинации, порядок сохраняется как есть.
func SuccessList[T any](c echo.Context, message string, list []T) error {
	if list == nil {
		list = make([]T, 0)
	}

	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Status:  true,
		Message: message,
		Body:    ListBody[T]{List: list, Total: len(list)},
	})
}

func ErrorResponse(c echo.Context, err error) error {
	code := apperrors.StatusCode(err)
	msg := err.Error()

	// Для HttpError берем только пользовательское сообщение, без технических деталей
	var httpErr *apperrors.HttpError
	switch {
	case errors.As(err, &httpErr):
		msg = httpErr.Message
	case errors.Is(err, apperrors.ErrNotFound):
		msg = apperrors.ErrNotFound.Error()
	case errors.Is(err, apperrors.ErrPersistence):
		msg = apperrors.ErrPersistence.Error()
	}

	return c.JSON(code, Response[any]{
		Status:  false,
		Message: msg,
	})
}
