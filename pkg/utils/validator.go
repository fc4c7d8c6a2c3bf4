package utils

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,63}$`)

// MaxTextLength caps free-text review fields
const MaxTextLength = 4000

// ValidateID validates a record, manager or session identifier
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier: %q", id)
	}
	return nil
}

// ValidateDate validates a YYYY-MM-DD date. Empty is allowed and means no
// date.
func ValidateDate(value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return nil
}

// ValidateDateTime validates a YYYY-MM-DD date with an optional HH:MM
// time. Empty is allowed.
func ValidateDateTime(value string) error {
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if _, err := time.Parse(layout, value); err == nil {
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: expected YYYY-MM-DD or YYYY-MM-DD HH:MM", value)
}

// ValidateText validates the length of a free-text field
func ValidateText(field, value string) error {
	if n := utf8.RuneCountInString(value); n > MaxTextLength {
		return fmt.Errorf("%s exceeds maximum length: %d > %d", field, n, MaxTextLength)
	}
	return nil
}
