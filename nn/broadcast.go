package nn

import "fmt"

// BroadcastParam expands a per-block option list to exactly count entries.
// A full-length list is copied through, a single value is replicated for
// every block, and any other length is a configuration error naming the
// offending field. A one-element list is always read as the replicate case,
// even when count is larger: the list form carries no marker that would
// distinguish an explicit single entry from a shorthand scalar, so the two
// are deliberately treated the same.
func BroadcastParam[T any](values []T, count int, name string) ([]T, error) {
	switch len(values) {
	case count:
		return append([]T(nil), values...), nil
	case 1:
		out := make([]T, count)
		for i := range out {
			out[i] = values[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s needs 1 or %d values, got %d", ErrConfiguration, name, count, len(values))
	}
}
