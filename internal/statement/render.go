package statement

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Render replaces every placeholder of sql with its argument written as a
// SQL literal. Placeholders without an argument are left as they are.
//
// The result is for humans reading an error message. It is not escaped for
// execution and must never be sent to an engine.
func Render(sql string, args []any) string {
	t := scan(sql)
	return substitute(sql, 0, t.placeholders(0, len(sql)), args)
}

func substitute(s string, offset int, phs []placeholder, args []any) string {
	if len(phs) == 0 {
		return s
	}
	var sb strings.Builder
	last := 0
	for _, ph := range phs {
		if ph.index >= len(args) {
			continue
		}
		sb.WriteString(s[last : ph.start-offset])
		sb.WriteString(Literal(args[ph.index]))
		last = ph.end - offset
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// Literal writes v the way a SQL literal of the same value looks.
func Literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(t)
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(t)) + "'"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(t)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return quote(t.Format(time.RFC3339Nano))
	case driver.Valuer:
		val, err := t.Value()
		if err != nil {
			return quote(fmt.Sprint(v))
		}
		if _, again := val.(driver.Valuer); again {
			return quote(fmt.Sprint(val))
		}
		return Literal(val)
	case fmt.Stringer:
		return quote(t.String())
	default:
		return quote(fmt.Sprint(v))
	}
}

// Display writes v for a diagnostic sentence: text unquoted, NULL as NULL.
func Display(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return t
	case []byte:
		return string(t)
	case driver.Valuer:
		val, err := t.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		if _, again := val.(driver.Valuer); again {
			return fmt.Sprint(val)
		}
		return Display(val)
	default:
		return fmt.Sprint(v)
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
