package access

import (
	"fmt"
	"strings"
)

// Result is the outcome of one authentication attempt.
// The zero value is Deny.
type Result int

const (
	Deny Result = iota
	Allow
)

// String returns the lower-case name of the result.
func (r Result) String() string {
	switch r {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// ParseResult converts a decision string ("allow", "deny", and a few aliases)
// into a Result.
func ParseResult(s string) (Result, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow", "yes", "y", "open":
		return Allow, nil
	case "deny", "no", "n", "":
		return Deny, nil
	default:
		return Deny, fmt.Errorf("%w: %q", ErrInvalidDecision, s)
	}
}
