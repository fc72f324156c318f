// Package resource provides the descriptor table that maps guest-visible
// handles to host-side socket owners.
//
// # Handles
//
// Handles are small integers numbered from a base (DefaultBase, 3, so the
// WASI stdio descriptors are never shadowed). Freed handles are reused:
//
//	table := resource.NewTableWithConfig(&resource.Config{Limit: 64})
//
//	h, err := table.Insert(typeID, owner)
//	if errors.Is(err, resource.ErrLimit) {
//	    // out of descriptors
//	}
//
//	value, ok := table.Get(h)
//
// # Ownership
//
// Values implementing Dropper are dropped exactly once: by Remove, by Clear
// or by Close. Replace swaps the stored value without dropping the old one,
// which is how a socket that was converted into a listener keeps its handle.
//
// # Borrows
//
// A host call that works on a value borrows it first. Remove fails with
// ErrOutstandingBorrow until every borrow is returned:
//
//	v, ok := table.Borrow(h)
//	defer table.ReturnBorrow(h)
//
// # Observers
//
// Observers receive lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s handle=%d", e.Type, e.Handle)
//	}))
package resource
