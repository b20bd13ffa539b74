package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"plain integer", "12", 12, true},
		{"decimal", "12.50", 12.5, true},
		{"negative", "-5.2", -5.2, true},
		{"thousands separator", "1,234.56", 1234.56, true},
		{"full-width separator", "1，234.56", 1234.56, true},
		{"surrounding spaces", "  18.00 ", 18, true},
		{"empty", "", 0, false},
		{"spaces only", "   ", 0, false},
		{"not a number", "待核对", 0, false},
		{"mixed", "12元", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiffExactCents(t *testing.T) {
	// Plain float64 subtraction gives 3.4999... here.
	assert.Equal(t, 3.5, Diff(13.5, 10))
	assert.Equal(t, -5.2, Diff(10, 15.2))
	assert.Equal(t, 0.0, Diff(18, 18))
	assert.Equal(t, 0.1, Diff(0.3, 0.2))
}
