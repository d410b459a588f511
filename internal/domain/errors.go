package domain

import "fmt"

// ValidationError reports a rejected request field. No state is changed when
// it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// CheckDelta rejects amounts outside [-MaxDelta, MaxDelta].
func CheckDelta(field string, n int) error {
	if n < -MaxDelta || n > MaxDelta {
		return invalid(field, fmt.Sprintf("must be between %d and %d", -MaxDelta, MaxDelta))
	}
	return nil
}
