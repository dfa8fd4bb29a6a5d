package utils

import (
	"regexp"
	"strings"

	"github.com/aarondl/null/v8"
)

var (
	phoneRegexp      = regexp.MustCompile(`^\+?[0-9][0-9 \-()]{5,19}$`)
	phoneSpaceRegexp = regexp.MustCompile(`\s+`)
)

// IsPhone - мягкая проверка формата телефона: цифры, пробелы, дефисы, скобки, ведущий "+".
func IsPhone(phone string) bool {
	return phoneRegexp.MatchString(strings.TrimSpace(phone))
}

// NormalizePhone убирает лишние пробелы; пустая строка превращается в NULL.
func NormalizePhone(phone null.String) null.String {
	if !phone.Valid {
		return phone
	}
	trimmed := phoneSpaceRegexp.ReplaceAllString(strings.TrimSpace(phone.String), " ")
	if trimmed == "" {
		return null.String{}
	}
	return null.StringFrom(trimmed)
}
