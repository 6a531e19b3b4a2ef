package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"zero int", int64(0), false},
		{"nonzero int", int64(-3), true},
		{"zero float", 0.0, false},
		{"nonzero float", 0.1, true},
		{"empty string", "", false},
		{"nonempty string", "no", true},
		{"empty slice", []any{}, false},
		{"nil slice", []any(nil), false},
		{"nonempty slice", []any{int64(0)}, true},
		{"empty map", map[string]any{}, false},
		{"nonempty map", map[string]any{"k": nil}, true},
		{"typed empty slice", []string{}, false},
		{"typed nonempty slice", []string{"x"}, true},
		{"typed empty map", map[string]string{}, false},
		{"typed nonempty map", map[string]int{"k": 1}, true},
		{"opaque tool result", struct{ ok bool }{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.value))
		})
	}
}
