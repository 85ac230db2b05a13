package queue

import "sync"

// Delegate receives queue lifecycle notifications. Callbacks fire after
// the triggering mutation completes and without any internal lock held,
// so they may call back into the Manager.
type Delegate interface {
	// OnReceivedFirstItem fires when items are added to a previously
	// empty queue.
	OnReceivedFirstItem()
	// OnCurrentItemChanged fires when the current slot points at a
	// different item than before.
	OnCurrentItemChanged()
	// OnSkippedToSameItem fires when a navigation request resolved to
	// the item that was already current (boundary clamp, single-item
	// skip, jump to the current index).
	OnSkippedToSameItem()
}

type signal int

const (
	sigFirstItem signal = iota
	sigCurrentChanged
	sigSameItem
)

// Manager owns an ordered item list and the current-item cursor.
//
// The cursor is -1 when no item is current; every operation keeps
// -1 <= CurrentIndex() < Count(). Mutations are serialized internally,
// but the Manager never touches playback itself: it talks upward only
// through its Delegate.
type Manager[T any] struct {
	mu       sync.RWMutex
	list     list[T]
	current  int
	delegate Delegate
}

// NewManager creates an empty queue manager. delegate may be nil.
func NewManager[T any](delegate Delegate) *Manager[T] {
	return &Manager[T]{
		current:  -1,
		delegate: delegate,
	}
}

// SetDelegate replaces the delegate. Intended for wiring during
// construction, before the queue is shared between goroutines.
func (m *Manager[T]) SetDelegate(delegate Delegate) {
	m.mu.Lock()
	m.delegate = delegate
	m.mu.Unlock()
}

func (m *Manager[T]) notify(signals ...signal) {
	m.mu.RLock()
	d := m.delegate
	m.mu.RUnlock()
	if d == nil {
		return
	}
	for _, s := range signals {
		switch s {
		case sigFirstItem:
			d.OnReceivedFirstItem()
		case sigCurrentChanged:
			d.OnCurrentItemChanged()
		case sigSameItem:
			d.OnSkippedToSameItem()
		}
	}
}

// Add appends items to the end of the queue. The cursor does not move;
// adding to an empty queue notifies the delegate, which typically reacts
// by jumping to the first item.
func (m *Manager[T]) Add(items ...T) {
	if len(items) == 0 {
		return
	}
	m.mu.Lock()
	wasEmpty := m.list.len() == 0
	m.list.add(items...)
	m.mu.Unlock()

	if wasEmpty {
		m.notify(sigFirstItem)
	}
}

// AddAt inserts items before position index. index may equal Count(),
// which appends. When the insertion happens at or before the cursor the
// cursor shifts so it keeps pointing at the same logical item.
func (m *Manager[T]) AddAt(index int, items ...T) error {
	m.mu.Lock()
	if index < 0 || index > m.list.len() {
		length := m.list.len()
		m.mu.Unlock()
		return &InvalidIndexError{Index: index, Length: length}
	}
	if len(items) == 0 {
		m.mu.Unlock()
		return nil
	}
	wasEmpty := m.list.len() == 0
	if m.current >= index && m.list.len() > 1 {
		m.current += len(items)
	}
	m.list.insert(index, items...)
	m.mu.Unlock()

	if wasEmpty {
		m.notify(sigFirstItem)
	}
	return nil
}

// Next advances the cursor by one and returns the new current item, or
// nil if the queue is empty. With wrap the cursor moves modulo Count();
// without it a move past the last item clamps there and the delegate is
// told the skip resolved to the same item.
func (m *Manager[T]) Next(wrap bool) *T {
	m.mu.Lock()
	n := m.list.len()
	if n == 0 {
		m.mu.Unlock()
		return nil
	}

	var sig signal
	switch {
	case m.current == -1:
		m.current = 0
		sig = sigCurrentChanged
	case wrap:
		next := (m.current + 1) % n
		if next == m.current {
			sig = sigSameItem
		} else {
			m.current = next
			sig = sigCurrentChanged
		}
	case m.current >= n-1:
		sig = sigSameItem
	default:
		m.current++
		sig = sigCurrentChanged
	}
	item := m.list.at(m.current)
	m.mu.Unlock()

	m.notify(sig)
	return item
}

// Previous retreats the cursor by one, mirroring Next.
func (m *Manager[T]) Previous(wrap bool) *T {
	m.mu.Lock()
	n := m.list.len()
	if n == 0 {
		m.mu.Unlock()
		return nil
	}

	var sig signal
	switch {
	case m.current == -1:
		m.current = 0
		sig = sigCurrentChanged
	case wrap:
		prev := (m.current - 1 + n) % n
		if prev == m.current {
			sig = sigSameItem
		} else {
			m.current = prev
			sig = sigCurrentChanged
		}
	case m.current <= 0:
		sig = sigSameItem
	default:
		m.current--
		sig = sigCurrentChanged
	}
	item := m.list.at(m.current)
	m.mu.Unlock()

	m.notify(sig)
	return item
}

// Jump moves the cursor to index and returns the item there. Jumping to
// the index that is already current leaves the queue untouched and
// signals a same-item skip instead.
func (m *Manager[T]) Jump(index int) (*T, error) {
	m.mu.Lock()
	n := m.list.len()
	if n == 0 {
		m.mu.Unlock()
		return nil, ErrEmpty
	}
	if index < 0 || index >= n {
		m.mu.Unlock()
		return nil, &InvalidIndexError{Index: index, Length: n}
	}

	sig := sigCurrentChanged
	if index == m.current {
		sig = sigSameItem
	} else {
		m.current = index
	}
	item := m.list.at(m.current)
	m.mu.Unlock()

	m.notify(sig)
	return item, nil
}

// Move relocates the item at from to position to. The cursor follows the
// current item wherever it ends up.
func (m *Manager[T]) Move(from, to int) error {
	m.mu.Lock()
	n := m.list.len()
	if from < 0 || from >= n {
		m.mu.Unlock()
		return &InvalidIndexError{Index: from, Length: n}
	}
	if to < 0 || to >= n {
		m.mu.Unlock()
		return &InvalidIndexError{Index: to, Length: n}
	}

	switch {
	case m.current == from:
		m.current = to
	case m.current != -1:
		cur := m.current
		if from < cur {
			cur--
		}
		if to <= cur {
			cur++
		}
		m.current = cur
	}
	m.list.move(from, to)
	m.mu.Unlock()
	return nil
}

// Remove deletes the item at index and returns it. Removing the current
// item keeps the cursor at the same slot modulo the new length, so
// removing the last item wraps the cursor to 0; the delegate is told the
// current item changed. Removing the only item leaves the queue empty
// with no current item.
func (m *Manager[T]) Remove(index int) (T, error) {
	var zero T
	m.mu.Lock()
	n := m.list.len()
	if n == 0 {
		m.mu.Unlock()
		return zero, ErrEmpty
	}
	if index < 0 || index >= n {
		m.mu.Unlock()
		return zero, &InvalidIndexError{Index: index, Length: n}
	}

	removed := m.list.remove(index)
	changed := false
	switch {
	case index < m.current:
		m.current--
	case index == m.current:
		if m.list.len() == 0 {
			m.current = -1
		} else {
			m.current %= m.list.len()
		}
		changed = true
	}
	m.mu.Unlock()

	if changed {
		m.notify(sigCurrentChanged)
	}
	return removed, nil
}

// ReplaceCurrent overwrites the current item in place. Without a current
// item it appends and makes the new item current, which on an empty
// queue behaves like Add followed by a jump to the new slot.
func (m *Manager[T]) ReplaceCurrent(item T) {
	m.mu.Lock()
	var signals []signal
	if m.current == -1 {
		wasEmpty := m.list.len() == 0
		m.list.add(item)
		m.current = m.list.len() - 1
		if wasEmpty {
			signals = append(signals, sigFirstItem)
		}
		signals = append(signals, sigCurrentChanged)
	} else {
		*m.list.at(m.current) = item
		signals = append(signals, sigCurrentChanged)
	}
	m.mu.Unlock()

	m.notify(signals...)
}

// RemovePreviousItems drops everything before the current item and
// resets the cursor to 0. No-op when nothing precedes the cursor.
func (m *Manager[T]) RemovePreviousItems() {
	m.mu.Lock()
	if m.current > 0 {
		m.list.items = append([]T{}, m.list.items[m.current:]...)
		m.current = 0
	}
	m.mu.Unlock()
}

// RemoveUpcomingItems drops everything after the current item. No-op
// when there is no current item or the current item is last.
func (m *Manager[T]) RemoveUpcomingItems() {
	m.mu.Lock()
	if m.current >= 0 && m.current < m.list.len()-1 {
		m.list.items = m.list.items[:m.current+1]
	}
	m.mu.Unlock()
}

// Clear resets the queue to empty with no current item. The delegate is
// told the current item changed only if one existed.
func (m *Manager[T]) Clear() {
	m.mu.Lock()
	hadCurrent := m.current != -1
	m.list.clear()
	m.current = -1
	m.mu.Unlock()

	if hadCurrent {
		m.notify(sigCurrentChanged)
	}
}

// Current returns the current item, or nil if none.
func (m *Manager[T]) Current() *T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == -1 {
		return nil
	}
	return m.list.at(m.current)
}

// CurrentIndex returns the cursor position, -1 when no item is current.
func (m *Manager[T]) CurrentIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Count returns the number of items in the queue.
func (m *Manager[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.len()
}

// Items returns a copy of all items in order.
func (m *Manager[T]) Items() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.all()
}

// NextItems returns the items strictly after the current one. Empty when
// there is no current item.
func (m *Manager[T]) NextItems() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == -1 {
		return []T{}
	}
	return m.list.slice(m.current+1, m.list.len())
}

// PreviousItems returns the items strictly before the current one.
func (m *Manager[T]) PreviousItems() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == -1 {
		return []T{}
	}
	return m.list.slice(0, m.current)
}
