package database

import (
	"fmt"

	"github.com/koustreak/fkguard/internal/errs"
)

// ScanRows reads all rows from the result set and returns them as a slice
// of maps, where each key is the column name and each value is the Go-native
// representation of the DB value.
//
// The returned slice is always non-nil (empty slice on zero rows).
// ScanRows always closes the Rows; callers do not need to call Close().
func ScanRows(rows Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column names", err)
	}

	result := make([]map[string]any, 0)

	for rows.Next() {
		// Allocate scan targets as *any so the driver can write any type.
		dest := make([]any, len(columns))
		destPtrs := make([]any, len(columns))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}

		if err := rows.Scan(destPtrs...); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to scan row", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = dest[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, iterationError(err)
	}

	return result, nil
}

// Exists reports whether rows yields at least one row, then closes it.
func Exists(rows Rows) (bool, error) {
	defer rows.Close()

	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, iterationError(err)
	}
	return found, nil
}

// iterationError keeps an already classified error as is, so a constraint
// failure reported while reading rows still reads as one.
func iterationError(err error) error {
	if errs.KindOf(err) != errs.ErrKindUnknown {
		return err
	}
	return errs.Wrap(errs.ErrKindQueryFailed, "error during row iteration", err)
}

// Text renders a scanned column value as display text.
// NULL reports ok=false; byte slices (SQLite TEXT columns scanned into any)
// are converted to string.
func Text(v any) (s string, ok bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case []byte:
		return string(t), true
	case string:
		return t, true
	default:
		return fmt.Sprint(t), true
	}
}
