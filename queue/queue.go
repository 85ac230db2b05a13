// Package queue implements an ordered item list with a movable current
// cursor, used as the playback queue of a player.
//
// Items are opaque to the queue: it orders them, tracks which one is
// current and hands them back, nothing more. Duplicates are allowed and
// insertion order is significant.
package queue

// list holds the ordered items of a queue.
type list[T any] struct {
	items []T
}

func (l *list[T]) add(items ...T) {
	l.items = append(l.items, items...)
}

// insert places items starting at index. index must be in [0, len].
func (l *list[T]) insert(index int, items ...T) {
	l.items = append(l.items[:index], append(append([]T{}, items...), l.items[index:]...)...)
}

// remove deletes the item at index and returns it. index must be valid.
func (l *list[T]) remove(index int) T {
	item := l.items[index]
	l.items = append(l.items[:index], l.items[index+1:]...)
	return item
}

// move relocates the item at from to position to. Both must be valid
// indices into the current list.
func (l *list[T]) move(from, to int) {
	if from == to {
		return
	}
	item := l.items[from]
	l.items = append(l.items[:from], l.items[from+1:]...)
	l.items = append(l.items[:to], append([]T{item}, l.items[to:]...)...)
}

func (l *list[T]) at(index int) *T {
	if index < 0 || index >= len(l.items) {
		return nil
	}
	return &l.items[index]
}

func (l *list[T]) len() int {
	return len(l.items)
}

// all returns a copy of the items.
func (l *list[T]) all() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// slice returns a copy of items[from:to], clamped to the valid range.
func (l *list[T]) slice(from, to int) []T {
	if from < 0 {
		from = 0
	}
	if to > len(l.items) {
		to = len(l.items)
	}
	if from >= to {
		return []T{}
	}
	out := make([]T, to-from)
	copy(out, l.items[from:to])
	return out
}

func (l *list[T]) clear() {
	l.items = l.items[:0]
}
