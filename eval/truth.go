package eval

import "reflect"

// Truthy implements the fixed condition rule for if forms. Falsy values are:
// nil, boolean false, zero int64/float64, the empty string, and empty slices
// or maps of any element type. Everything else — including non-empty
// containers and any non-nil tool result object — is truthy. The rule is
// deliberately explicit rather than deferring to host-language coercion.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}
