package domain

import (
	"math"
	"strconv"
	"strings"
)

// SanitizeIdentifier validates a table, column, or index name arriving from
// outside the core. Only alphanumerics and underscores pass; anything else is
// rejected before the name is interpolated into SQL text.
func SanitizeIdentifier(name string) (string, error) {
	if name == "" {
		return "", ValidationFailedf("identifier is empty")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return "", ValidationFailedf("identifier %q contains disallowed character %q", name, r)
		}
	}
	return name, nil
}

// QuoteIdentifier wraps a sanitized identifier in double quotes.
func QuoteIdentifier(name string) string {
	return `"` + name + `"`
}

// QuoteDefaultLiteral renders a default-value literal for DDL text:
// numeric literals and the CURRENT_TIMESTAMP / NULL keywords pass through
// unquoted, everything else is single-quoted with embedded quotes doubled.
func QuoteDefaultLiteral(v string) string {
	// ParseFloat also accepts "inf" and "nan", which are not SQL numeric
	// literals; those take the quoted path.
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return v
	}
	switch strings.ToUpper(v) {
	case "CURRENT_TIMESTAMP", "NULL":
		return strings.ToUpper(v)
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
