package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArg(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"2.5", 2.5},
		{"1e3", 1000.0},
		{"NULL", nil},
		{"null", "null"},
		{"'42'", "42"},
		{"''", ""},
		{"'", "'"},
		{"abc", "abc"},
		{"Inf", "Inf"},
		{"NaN", "NaN"},
		{"99999999999999999999", 1e20},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseArg(tt.in))
		})
	}
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, []any{int64(1), "x", nil}, parseArgs([]string{"1", "x", "NULL"}))
	assert.Empty(t, parseArgs(nil))
}
