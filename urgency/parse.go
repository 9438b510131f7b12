package urgency

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maastricht-university/nursecheck-triage/models"
)

const (
	MinPriority = 1
	MaxPriority = 10
)

// FormatError is an oracle reply that did not parse into the expected shape.
type FormatError struct {
	Field string
	Raw   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s reply %q", models.ErrClassificationFormat, e.Field, e.Raw)
}

func (e *FormatError) Unwrap() error { return models.ErrClassificationFormat }

// ParseNeedsVisit accepts only the exact tokens True and False (surrounding
// whitespace aside).
func ParseNeedsVisit(raw string) (bool, error) {
	switch strings.TrimSpace(raw) {
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	return false, &FormatError{Field: "needs_visit", Raw: raw}
}

// ParsePriority accepts a bare integer in [MinPriority, MaxPriority]. Out of
// range values are rejected, not clamped.
func ParsePriority(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < MinPriority || n > MaxPriority {
		return 0, &FormatError{Field: "priority", Raw: raw}
	}
	return n, nil
}

func ParseSummary(raw string) string {
	return strings.TrimSpace(raw)
}
