package transform

// Distinct returns rows with full-value duplicates removed, keeping the
// first occurrence.
func Distinct[T comparable](rows []T) []T {
	return DistinctBy(rows, func(r T) T { return r })
}

// DistinctBy removes rows whose key has already been seen.
func DistinctBy[T any, K comparable](rows []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		k := key(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
