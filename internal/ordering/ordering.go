// Package ordering holds the slice helpers shared by every orderable entity:
// id lookup, drag moves and order weight recomputation.
package ordering

// IndexOf returns the position of the element whose id is want, or -1.
func IndexOf[T any](items []T, id func(T) string, want string) int {
	for i, it := range items {
		if id(it) == want {
			return i
		}
	}
	return -1
}

// Move returns a fresh slice with the element activeID relocated to the
// position currently held by overID. The input is never modified. ok is
// false when either id is missing or both name the same element.
func Move[T any](items []T, id func(T) string, activeID, overID string) (out []T, ok bool) {
	from := IndexOf(items, id, activeID)
	to := IndexOf(items, id, overID)
	if from < 0 || to < 0 || from == to {
		return items, false
	}
	out = make([]T, 0, len(items))
	moved := items[from]
	for i, it := range items {
		if i == from {
			continue
		}
		out = append(out, it)
	}
	return Insert(out, to, moved), true
}

// Insert returns a fresh slice with v placed at index i. i is clamped to
// [0, len(items)].
func Insert[T any](items []T, i int, v T) []T {
	if i < 0 {
		i = 0
	}
	if i > len(items) {
		i = len(items)
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, v)
	return append(out, items[i:]...)
}

// Filter returns a fresh slice of the elements keep accepts.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Reweigh assigns order weights 0..n-1 following slice position.
func Reweigh[T any](items []T, set func(*T, int)) {
	for i := range items {
		set(&items[i], i)
	}
}
