// Package records defines the loosely typed row representation shared by the
// extraction and table layers. A Record maps canonical column names to values
// that are either nil, string, int64, float64, bool, or time.Time after the
// schema-typed load; raw parsers may temporarily hold plain strings.
package records

// Record is a single logical row keyed by canonical column name.
type Record map[string]any

// Clone returns a shallow copy of r. Values are not deep-copied; loaded cell
// values are immutable scalars, so a shallow copy is sufficient for the
// no-input-mutation guarantee of the builders.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
