package adafruit

import (
	"errors"
	"fmt"
)

// Kind discriminates gateway failures. Callers branch on the kind, never on
// message text.
type Kind uint8

const (
	KindRemote Kind = iota
	KindUnauthorized
	KindRateLimited
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	default:
		return "remote_error"
	}
}

// Error is the closed set of failures the gateway surfaces. Message carries
// the upstream wording for diagnostics only.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("adafruit: %s: %s (status %d)", e.Op, e.Kind, e.Status)
	}
	return fmt.Sprintf("adafruit: %s: %s: %s", e.Op, e.Kind, e.Message)
}

// KindOf extracts the gateway kind from err, if any.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a gateway error of kind k.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
