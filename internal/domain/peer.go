// A Principal is the identity of a caller. Operators derive theirs from an
// Ed25519 public key, but any non-blank token without whitespace is accepted.

package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Principal identifies a caller (account-equivalent).
type Principal string

// SystemPool is the treasury account that holds funded value.
// It can never be used as a caller identity.
const SystemPool Principal = "system_pool"

// ParsePrincipal validates and normalises a caller identity.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPrincipal)
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidPrincipal, s)
	}
	p := Principal(s)
	if p == SystemPool {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidPrincipal, s)
	}
	return p, nil
}

// String implements fmt.Stringer.
func (p Principal) String() string { return string(p) }

// Short returns a prefix suitable for tables and log lines.
func (p Principal) Short() string {
	if len(p) <= 12 {
		return string(p)
	}
	return string(p[:12]) + "…"
}
