package main

import (
	"math"
	"strconv"
	"strings"
)

// parseArgs turns positional command-line values into statement
// arguments. See parseArg.
func parseArgs(raw []string) []any {
	args := make([]any, len(raw))
	for i, s := range raw {
		args[i] = parseArg(s)
	}
	return args
}

// parseArg reads NULL as nil, integers as int64 and other finite numbers
// as float64. A value wrapped in single quotes is always a string, with
// the quotes removed. Anything else is passed through as a string.
func parseArg(s string) any {
	if s == "NULL" {
		return nil
	}
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return s[1 : len(s)-1]
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}
