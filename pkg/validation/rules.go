package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"turnos-api/pkg/utils"
)

// registerRules регистрирует теги, которые мы используем в struct tags
func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("phone", isPhone); err != nil {
		return err
	}
	if err := v.RegisterValidation("notblank", isNotBlank); err != nil {
		return err
	}
	return nil
}

// isPhone - номер клиента в свободном формате: цифры, пробелы, дефисы, скобки, ведущий +
func isPhone(fl validator.FieldLevel) bool {
	return utils.IsPhone(fl.Field().String())
}

// isNotBlank - строка не пустая после обрезки пробелов
func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
