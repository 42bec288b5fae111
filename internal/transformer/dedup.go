// Package transformer derives dimension and fact rows from parsed log events.
//
// Everything here is pure over one file's batch of events except Resolver,
// which consults a Catalog. Rows that cannot contribute to a dimension are
// reported as *SkippedRowError values next to the result instead of failing
// the batch.
package transformer

import "sort"

// Policy selects the winner among records sharing a key.
type Policy string

const (
	// KeepFirst keeps the earliest occurrence in the batch.
	KeepFirst Policy = "keep-first"
	// KeepLast keeps the latest occurrence in the batch.
	KeepLast Policy = "keep-last"
)

// DeDup collapses records sharing key(r) to a single winner chosen by policy.
// The result is ordered by the position of each winning record in the input,
// so keep-first preserves first-occurrence order and keep-last yields the
// order in which each key was last seen.
func DeDup[T any, K comparable](in []T, key func(T) K, policy Policy) []T {
	if len(in) == 0 {
		return in
	}

	winners := make(map[K]int, len(in))
	for i, r := range in {
		k := key(r)
		if policy == KeepFirst {
			if _, exists := winners[k]; exists {
				continue
			}
		}
		winners[k] = i
	}

	indexes := make([]int, 0, len(winners))
	for _, idx := range winners {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]T, len(indexes))
	for i, idx := range indexes {
		out[i] = in[idx]
	}
	return out
}
