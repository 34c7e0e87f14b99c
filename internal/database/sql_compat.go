package database

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\$\d+`)

// ConvertPlaceholders converts PostgreSQL placeholders ($1, $2) to ?
// placeholders for MySQL and SQLite. Queries throughout the engine are
// written in PostgreSQL format and converted at the call site.
func ConvertPlaceholders(query string) string {
	if IsPostgreSQL() {
		return query
	}

	placeholders := placeholderRe.FindAllString(query, -1)
	result := query
	for _, placeholder := range placeholders {
		result = strings.Replace(result, placeholder, "?", 1)
	}

	// MySQL is case-insensitive by default; SQLite LIKE is too.
	result = strings.ReplaceAll(result, " ILIKE ", " LIKE ")
	result = strings.ReplaceAll(result, " ilike ", " LIKE ")

	return result
}

// IsUniqueViolation reports whether err is a unique-constraint failure,
// across the supported drivers. Used by the breach repository to map a
// concurrent double-insert onto the duplicate-skip path.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || // lib/pq
		strings.Contains(msg, "Duplicate entry") || // go-sql-driver/mysql
		strings.Contains(msg, "UNIQUE constraint failed") // go-sqlite3
}
