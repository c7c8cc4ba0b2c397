package cordon

import "sort"

// policyEntry holds a policy with its priority for auto-ordering in [Wrap].
type policyEntry[T any] struct {
	policy   Policy[T]
	name     string
	priority int
}

// Priority constants define the nesting order for policies built by [Wrap].
// Lower priority = outermost wrapper (executed first).
const (
	priorityFallback = 0 // outermost — last resort
	priorityValidate = 1 // reject bad input before anything runs
	priorityGuard    = 2
	priorityTimeout  = 3 // global deadline
	priorityBreaker  = 4
	priorityRate     = 5
	priorityCache    = 6 // a hit short-circuits everything inner
	priorityRetry    = 7
	priorityCoalesce = 8 // debounce/throttle — innermost, closest to the call
)

// sortPolicies sorts entries by priority (lowest first = outermost).
// Stable, so entries with equal priority keep their declared order.
func sortPolicies[T any](entries []policyEntry[T]) []Policy[T] {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]policyEntry[T], 0, len(entries))
	sorted = append(sorted, entries...)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	policies := make([]Policy[T], 0, len(sorted))
	for _, e := range sorted {
		policies = append(policies, e.policy)
	}

	return policies
}
