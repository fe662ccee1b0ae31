package admin

import "fmt"

// moveItem removes the item at from and re-inserts it at to. Repeated calls
// during a drag re-splice the working order; the last drop target wins.
func moveItem[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return nil, fmt.Errorf("%w: move %d -> %d out of range for %d items", ErrInvalidOrder, from, to, len(items))
	}
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	moved := items[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out, nil
}

// reorderByID returns items arranged in the order of ids, which must name
// every item exactly once.
func reorderByID[T any](items []T, ids []string, key func(T) string) ([]T, error) {
	if len(ids) != len(items) {
		return nil, fmt.Errorf("%w: expected %d ids, got %d", ErrInvalidOrder, len(items), len(ids))
	}
	byID := make(map[string]T, len(items))
	for _, item := range items {
		byID[key(item)] = item
	}
	out := make([]T, 0, len(items))
	used := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown id %q", ErrInvalidOrder, id)
		}
		if _, dup := used[id]; dup {
			return nil, fmt.Errorf("%w: id %q repeated", ErrInvalidOrder, id)
		}
		used[id] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}
