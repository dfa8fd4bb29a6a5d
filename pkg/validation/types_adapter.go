package validation

import (
	"reflect"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
)

// registerNullTypes: правила применяются к значению внутри null-типа,
// а невалидное значение отдаётся как nil, чтобы работал omitempty.
func registerNullTypes(v *validator.Validate) {
	v.RegisterCustomTypeFunc(unwrapNull, null.String{}, null.Int{}, null.Int64{})
}

func unwrapNull(field reflect.Value) interface{} {
	switch val := field.Interface().(type) {
	case null.String:
		if val.Valid {
			return val.String
		}
	case null.Int:
		if val.Valid {
			return val.Int
		}
	case null.Int64:
		if val.Valid {
			return val.Int64
		}
	}
	return nil
}
