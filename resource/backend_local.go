package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed            = errors.New("resource backend closed")
	ErrOutstandingBorrow = errors.New("cannot drop resource with outstanding borrows")
	ErrInvalidHandle     = errors.New("invalid resource handle")
	ErrLimit             = errors.New("resource limit reached")
)

// DefaultBase is the first handle handed out. Guests also run WASI preview1,
// where 0-2 are stdio, so socket descriptors start above them.
const DefaultBase Handle = 3

// LocalBackend is an in-memory resource backend with borrow tracking.
type LocalBackend struct {
	entries  []entry
	freeList []Handle
	base     Handle
	limit    int
	live     int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	typeID      uint32
	borrowCount uint32
	valid       bool
}

// NewLocalBackend creates a new in-memory backend. Handles start at base
// (0 selects DefaultBase). A positive limit caps the number of live entries.
func NewLocalBackend(base Handle, limit int) *LocalBackend {
	if base == 0 {
		base = DefaultBase
	}
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
		base:     base,
		limit:    limit,
	}
}

// index maps a handle to its slot; ok is false for handles never issued.
func (b *LocalBackend) index(handle Handle) (int, bool) {
	if handle == 0 || handle < b.base {
		return 0, false
	}
	idx := int(handle - b.base)
	if idx >= len(b.entries) {
		return 0, false
	}
	return idx, true
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	if b.limit > 0 && b.live >= b.limit {
		return 0, ErrLimit
	}

	e := entry{
		typeID: typeID,
		value:  value,
		valid:  true,
	}
	b.live++

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-b.base] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return b.base + Handle(len(b.entries)-1), nil
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	idx, ok := b.index(handle)
	if !ok || !b.entries[idx].valid {
		return nil, false
	}
	return b.entries[idx].value, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	idx, ok := b.index(handle)
	if !ok || !b.entries[idx].valid {
		return 0, false
	}
	return b.entries[idx].typeID, true
}

// Replace swaps the value and type stored under a live handle.
func (b *LocalBackend) Replace(handle Handle, typeID uint32, value any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.index(handle)
	if !ok || !b.entries[idx].valid {
		return false
	}
	b.entries[idx].typeID = typeID
	b.entries[idx].value = value
	return true
}

// Drop removes a resource and returns its value. The caller runs the
// destructor.
func (b *LocalBackend) Drop(handle Handle) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.index(handle)
	if !ok || !b.entries[idx].valid {
		return nil, ErrInvalidHandle
	}
	e := &b.entries[idx]
	if e.borrowCount > 0 {
		return nil, ErrOutstandingBorrow
	}

	value := e.value
	*e = entry{}
	b.live--
	b.freeList = append(b.freeList, handle)
	return value, nil
}

// Close releases all resources, borrowed or not.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				d.Drop()
			}
			b.entries[i] = entry{}
		}
	}
	b.entries = nil
	b.freeList = nil
	b.live = 0
	return nil
}

// Borrow increments the borrow count for a handle.
func (b *LocalBackend) Borrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.index(handle)
	if !ok || !b.entries[idx].valid {
		return false
	}
	b.entries[idx].borrowCount++
	return true
}

// ReturnBorrow decrements the borrow count for a handle.
func (b *LocalBackend) ReturnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.index(handle)
	if !ok {
		return false
	}
	e := &b.entries[idx]
	if !e.valid || e.borrowCount == 0 {
		return false
	}
	e.borrowCount--
	return true
}

// Len returns the number of active resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all active resources in handle order.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(b.base+Handle(i), e.typeID, e.value) {
				break
			}
		}
	}
}
