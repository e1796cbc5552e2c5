package metadata

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateIdentifier rejects anything that is not a plain SQL identifier.
// Schema and table names arrive from API callers, so they are never
// interpolated into a query without passing here first.
func validateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier: %q", name)
	}
	return nil
}

// escapeIdentifier validates name and wraps it in double quotes with any
// embedded quotes doubled, for the rare spot where an identifier has to be
// spliced into SQL text.
func escapeIdentifier(name string) (string, error) {
	if err := validateIdentifier(name); err != nil {
		return "", err
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`, nil
}
