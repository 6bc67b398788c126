package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericStringToCents(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{"whole dollars", "100", 10000},
		{"dollars with cents", "100.50", 10050},
		{"cents only", "0.99", 99},
		{"zero", "0.00", 0},
		{"rounding up", "99.999", 10000},
		{"with whitespace", "  50.25  ", 5025},
		{"negative amount", "-10.50", -1050},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := numericStringToCents(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNumericStringToCents_Errors(t *testing.T) {
	for _, input := range []string{"", "abc", "$100.00", "10.5.5"} {
		t.Run(input, func(t *testing.T) {
			_, err := numericStringToCents(input)
			assert.Error(t, err)
		})
	}
}

func TestCentsToNumericString(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected string
	}{
		{"whole dollars", 10000, "100.00"},
		{"cents only", 99, "0.99"},
		{"zero", 0, "0.00"},
		{"single cent", 1, "0.01"},
		{"negative amount", -1050, "-10.50"},
		{"negative cent", -1, "-0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, centsToNumericString(tt.input))
		})
	}
}

func TestMoneyConversion_RoundTrip(t *testing.T) {
	for _, original := range []int64{0, 1, 10, 999, 12345, 999999999999, -100, -12345} {
		str := centsToNumericString(original)
		cents, err := numericStringToCents(str)
		require.NoError(t, err)
		assert.Equal(t, original, cents, "cents=%d, str=%s", original, str)
	}
}
