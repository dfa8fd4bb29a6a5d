package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "turnos-api/pkg/errors"
)

// CustomValidator - обертка для использования в Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate реализует интерфейс echo.Validator.
// Ошибки валидатора превращаются в InvalidInputError, чтобы отдаваться как 400.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewInvalidInputError("%s", err.Error())
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describe(fe))
	}
	return apperrors.NewInvalidInputError("%s", strings.Join(parts, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("поле '%s' обязательно", field)
	case "phone":
		return fmt.Sprintf("поле '%s' должно быть номером телефона", field)
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("поле '%s' не прошло проверку %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("поле '%s' некорректно (%s)", field, fe.Tag())
	}
}

// New создает и настраивает валидатор
func New() *CustomValidator {
	v := validator.New()

	// имена полей в ошибках берём из json-тегов
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	registerNullTypes(v)

	// Если правило не зарегистрировалось - паникуем, так как сервер не должен стартовать
	if err := registerRules(v); err != nil {
		panic("ошибка регистрации валидаторов: " + err.Error())
	}

	return &CustomValidator{validator: v}
}
