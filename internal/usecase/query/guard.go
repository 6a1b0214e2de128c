package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrWriteQuery = errors.New("query is not read-only")
	ErrEmptyQuery = errors.New("empty query")
)

var (
	literalPattern = regexp.MustCompile("'(?:[^'\\\\]|\\\\.)*'|\"(?:[^\"\\\\]|\\\\.)*\"|`[^`]*`")
	commentPattern = regexp.MustCompile(`(?s)//[^\n]*|/\*.*?\*/`)
	wordPattern    = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_.]*`)
)

var writeClauses = map[string]bool{
	"CREATE":  true,
	"MERGE":   true,
	"DELETE":  true,
	"DETACH":  true,
	"SET":     true,
	"REMOVE":  true,
	"DROP":    true,
	"FOREACH": true,
	"LOAD":    true,
	"GRANT":   true,
	"DENY":    true,
	"REVOKE":  true,
}

var readProcedures = map[string]bool{
	"db.labels":                    true,
	"db.relationshiptypes":         true,
	"db.propertykeys":              true,
	"db.schema.visualization":      true,
	"db.schema.nodetypeproperties": true,
	"db.schema.reltypeproperties":  true,
}

// CheckReadOnly rejects Cypher that could modify the graph. Literals,
// quoted identifiers and comments are ignored.
func CheckReadOnly(cypher string) error {
	stripped := commentPattern.ReplaceAllString(literalPattern.ReplaceAllString(cypher, "''"), " ")
	if strings.TrimSpace(strings.TrimRight(strings.TrimSpace(stripped), ";")) == "" {
		return ErrEmptyQuery
	}
	if i := strings.Index(stripped, ";"); i >= 0 && strings.TrimSpace(stripped[i+1:]) != "" {
		return fmt.Errorf("%w: multiple statements", ErrWriteQuery)
	}

	words := wordPattern.FindAllString(stripped, -1)
	for i, w := range words {
		upper := strings.ToUpper(w)
		if writeClauses[upper] {
			return fmt.Errorf("%w: %s clause", ErrWriteQuery, upper)
		}
		if upper == "CALL" {
			if i+1 >= len(words) || !readProcedures[strings.ToLower(words[i+1])] {
				return fmt.Errorf("%w: procedure calls are limited to schema introspection", ErrWriteQuery)
			}
		}
	}
	return nil
}
