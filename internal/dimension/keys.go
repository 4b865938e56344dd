// Package dimension derives surrogate keys and builds the five dimension
// tables of the sales star schema: geolocation, customer, product, seller,
// and time.
package dimension

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// KeyDerivationError reports a surrogate key derivation attempted over a null
// or empty natural-key attribute.
type KeyDerivationError struct {
	Dimension string
	Part      int
}

func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("dimension %s: natural key part %d is null or empty", e.Dimension, e.Part)
}

// SurrogateKey derives a deterministic 64-bit surrogate key from the natural
// key parts of a dimension row. The same parts always produce the same key,
// within a run and across runs, which is what makes rebuilds idempotent. The
// dimension name is folded into the hash so equal natural keys in different
// dimensions cannot collide.
//
// Parts must be non-nil, and string parts must be non-empty; otherwise a
// KeyDerivationError is returned. The key is the xxh3 hash reinterpreted as
// int64 and is never zero-adjacent to "null" downstream: a derived key is by
// construction non-null.
func SurrogateKey(dimension string, parts ...any) (int64, error) {
	var b strings.Builder
	b.WriteString(dimension)
	for i, p := range parts {
		b.WriteByte('\x1f')
		switch v := p.(type) {
		case nil:
			return 0, &KeyDerivationError{Dimension: dimension, Part: i}
		case string:
			if v == "" {
				return 0, &KeyDerivationError{Dimension: dimension, Part: i}
			}
			b.WriteString(v)
		case time.Time:
			b.WriteString(v.UTC().Format(time.RFC3339))
		default:
			fmt.Fprint(&b, v)
		}
	}
	return int64(xxh3.HashString(b.String())), nil
}
