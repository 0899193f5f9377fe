package manager

import (
	"fmt"
	"strings"
	"time"
)

// RetryPolicy selects what the daemon repeats after a Deny.
type RetryPolicy int

const (
	// RetryRedetect runs the full protocol again, starting with detection.
	RetryRedetect RetryPolicy = iota

	// RetryReauthenticate asks the authenticator again about the device
	// detected by the denied attempt, skipping detection.
	RetryReauthenticate
)

func (p RetryPolicy) String() string {
	switch p {
	case RetryRedetect:
		return "redetect"
	case RetryReauthenticate:
		return "reauthenticate"
	default:
		return fmt.Sprintf("retry(%d)", int(p))
	}
}

// ParseRetryPolicy parses a policy name as used in configuration files.
// An empty name selects RetryRedetect.
func ParseRetryPolicy(s string) (RetryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "redetect":
		return RetryRedetect, nil
	case "reauthenticate":
		return RetryReauthenticate, nil
	default:
		return RetryRedetect, fmt.Errorf("manager: unknown retry policy %q", s)
	}
}

// Config holds the protocol timing. It is copied into the Manager at
// construction and never changes afterwards.
type Config struct {
	// AuthorizeTimeout bounds every Authenticate call. Zero means no timeout.
	AuthorizeTimeout time.Duration

	// ReauthorizeTimeout is the cooldown between a Deny and the next attempt.
	ReauthorizeTimeout time.Duration

	Retry RetryPolicy
}
