package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")

	// Хранилище
	ErrPersistence = fmt.Errorf("ошибка хранилища")

	// Интеграции
	ErrIntegrationDisabled = fmt.Errorf("интеграция отключена")
	ErrIntegrationConfig   = fmt.Errorf("интеграция не настроена")
)

// PersistenceError - БД недоступна, истёк таймаут или запись не прошла.
// Всегда отдаётся клиенту как 500 и никогда не применяется частично.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence.Error(), e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// HttpError - ошибка с кодом ответа и сообщением для пользователя.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

// Кастомные типы ошибок
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// StatusCode определяет HTTP-код для ошибки любого слоя.
func StatusCode(err error) int {
	var httpErr *HttpError
	var invalid *InvalidInputError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.As(err, &invalid), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrIntegrationDisabled), errors.Is(err, ErrIntegrationConfig):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
