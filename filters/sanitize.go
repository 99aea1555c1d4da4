package filters

import (
	"regexp"
	"strings"

	"github.com/professorSergio12/Stock-Broker/config"
)

var identifierUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeIdentifier strips everything but letters, digits and underscores.
func SanitizeIdentifier(s string) string {
	return identifierUnsafe.ReplaceAllString(s, "")
}

// Table resolves a caller supplied table name, falling back to the configured
// record table when nothing usable is left after sanitizing.
func Table(s string) string {
	if t := SanitizeIdentifier(s); t != "" {
		return t
	}
	if t := SanitizeIdentifier(config.RecordTable()); t != "" {
		return t
	}
	return config.DefaultRecordTable
}

// EscapeLiteral doubles single quotes for embedding in a quoted literal.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Quote returns s as a single quoted literal.
func Quote(s string) string {
	return "'" + EscapeLiteral(s) + "'"
}
