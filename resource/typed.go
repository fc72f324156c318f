package resource

// Typed wraps a Table and exposes values of a single type.
type Typed[T any] struct {
	table  *Table
	typeID uint32
}

// NewTyped returns a typed view over table for typeID.
func NewTyped[T any](table *Table, typeID uint32) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Table returns the underlying table.
func (t *Typed[T]) Table() *Table {
	return t.table
}

func (t *Typed[T]) Insert(value T) (Handle, error) {
	return t.table.Insert(t.typeID, value)
}

func (t *Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Replace swaps the value under handle without dropping the old one. It
// fails for handles of another type.
func (t *Typed[T]) Replace(handle Handle, value T) bool {
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return false
	}
	return t.table.Replace(handle, t.typeID, value)
}

// Borrow marks handle as in use and returns its value. Handles of another
// type are not borrowed.
func (t *Typed[T]) Borrow(handle Handle) (T, bool) {
	var zero T
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return zero, false
	}
	v, ok := t.table.Borrow(handle)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		t.table.ReturnBorrow(handle)
		return zero, false
	}
	return typed, true
}

func (t *Typed[T]) ReturnBorrow(handle Handle) bool {
	return t.table.ReturnBorrow(handle)
}

func (t *Typed[T]) Remove(handle Handle) (T, error) {
	var zero T
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return zero, ErrInvalidHandle
	}
	v, err := t.table.Remove(handle)
	if err != nil {
		return zero, err
	}
	typed, _ := v.(T)
	return typed, nil
}

func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, typeID uint32, v any) bool {
		if typeID != t.typeID {
			return true
		}
		typed, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}
