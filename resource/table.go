package resource

import (
	"sync"
)

// Config controls handle numbering and capacity.
type Config struct {
	// Base is the first handle issued. 0 means DefaultBase.
	Base Handle

	// Limit caps the number of live handles. 0 means unlimited.
	Limit int
}

// Table maps handles to values with type information and observer support.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a table with default numbering and no limit.
func NewTable() *Table {
	return NewTableWithConfig(nil)
}

// NewTableWithConfig creates a table with custom configuration.
func NewTableWithConfig(cfg *Config) *Table {
	var base Handle
	var limit int
	if cfg != nil {
		base = cfg.Base
		limit = cfg.Limit
	}
	return &Table{
		backend: NewLocalBackend(base, limit),
	}
}

// Insert adds a value and returns its handle.
func (t *Table) Insert(typeID uint32, value any) (Handle, error) {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0, ErrClosed
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Replace swaps the value stored under handle without running its Dropper.
// Used when ownership of the underlying resource moves to a new value.
func (t *Table) Replace(handle Handle, typeID uint32, value any) bool {
	if !t.backend.Replace(handle, typeID, value) {
		return false
	}
	t.notify(Event{
		Type:   EventUpdated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return true
}

// Touch notifies observers that the value under handle changed in place.
func (t *Table) Touch(handle Handle) {
	typeID, ok := t.backend.TypeID(handle)
	if !ok {
		return
	}
	value, _ := t.backend.Get(handle)
	t.notify(Event{
		Type:   EventUpdated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
}

// Remove drops a resource, runs its Dropper and returns the value.
func (t *Table) Remove(handle Handle) (any, error) {
	typeID, _ := t.backend.TypeID(handle)
	value, err := t.backend.Drop(handle)
	if err != nil {
		return nil, err
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return value, nil
}

// Borrow marks handle as in use; Remove fails until the borrow is returned.
func (t *Table) Borrow(handle Handle) (any, bool) {
	if !t.backend.Borrow(handle) {
		return nil, false
	}
	typeID, _ := t.backend.TypeID(handle)
	value, _ := t.backend.Get(handle)
	t.notify(Event{
		Type:   EventBorrowed,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return value, true
}

// ReturnBorrow releases a borrow taken with Borrow.
func (t *Table) ReturnBorrow(handle Handle) bool {
	if !t.backend.ReturnBorrow(handle) {
		return false
	}
	typeID, _ := t.backend.TypeID(handle)
	value, _ := t.backend.Get(handle)
	t.notify(Event{
		Type:   EventBorrowReturned,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. Observers are matched with ==, so o must
// be comparable; subscribe a pointer when it needs to be removed later.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over all active resources in handle order.
// fn must not modify the table.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.backend.Each(fn)
}

// Clear drops all resources that are not borrowed.
func (t *Table) Clear() {
	// Collect handles first to avoid holding lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, typeID uint32, value any) bool {
		handles = append(handles, h)
		return true
	})

	for _, h := range handles {
		_, _ = t.Remove(h)
	}
}

// Close drops every remaining resource and stops accepting inserts.
// Borrowed resources are dropped too, and observers see EventDropped for
// each of them.
func (t *Table) Close() error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return nil
	}
	t.closed = true
	t.closeMu.Unlock()

	t.Clear()

	var borrowed []Event
	t.backend.Each(func(h Handle, typeID uint32, value any) bool {
		borrowed = append(borrowed, Event{
			Type:   EventDropped,
			Handle: h,
			TypeID: typeID,
			Value:  value,
		})
		return true
	})
	err := t.backend.Close()
	for _, e := range borrowed {
		t.notify(e)
	}
	return err
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
