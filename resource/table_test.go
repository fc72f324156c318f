package resource

import (
	"errors"
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func (o *testObserver) types() []EventType {
	out := make([]EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h, err := table.Insert(1, "test")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if h != DefaultBase {
		t.Fatalf("handle = %d, want %d", h, DefaultBase)
	}

	val, ok := table.Get(h)
	if !ok || val != "test" {
		t.Fatalf("Get = %v, %v", val, ok)
	}

	if _, ok := table.GetTyped(h, 1); !ok {
		t.Fatal("GetTyped with correct type failed")
	}
	if _, ok := table.GetTyped(h, 2); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	val, err = table.Remove(h)
	if err != nil || val != "test" {
		t.Fatalf("Remove = %v, %v", val, err)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
	if _, err := table.Remove(h); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("second Remove err = %v", err)
	}
}

func TestTable_Config(t *testing.T) {
	table := NewTableWithConfig(&Config{Base: 100, Limit: 1})

	h, err := table.Insert(1, "a")
	if err != nil || h != 100 {
		t.Fatalf("Insert = %d, %v", h, err)
	}
	if _, err := table.Insert(1, "b"); !errors.Is(err, ErrLimit) {
		t.Fatalf("Insert past limit err = %v", err)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h, _ := table.Insert(1, "test")
	table.Borrow(h)
	table.ReturnBorrow(h)
	table.Replace(h, 2, "replaced")
	table.Touch(h)
	table.Remove(h)

	want := []EventType{EventCreated, EventBorrowed, EventBorrowReturned, EventUpdated, EventUpdated, EventDropped}
	got := obs.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, got[i], want[i])
		}
		if obs.events[i].Handle != h {
			t.Fatalf("event[%d] handle = %d", i, obs.events[i].Handle)
		}
	}
	if obs.events[3].TypeID != 2 || obs.events[3].Value != "replaced" {
		t.Fatalf("update event = %+v", obs.events[3])
	}

	table.Unsubscribe(obs)
	table.Insert(1, "test2")
	if len(obs.events) != len(want) {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	var created int
	table.Subscribe(ObserverFunc(func(e Event) {
		if e.Type == EventCreated {
			created++
		}
	}))
	table.Insert(1, "a")
	table.Insert(1, "b")
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}
}

func TestTable_BorrowBlocksRemove(t *testing.T) {
	table := NewTable()
	d := &countingDropper{}
	h, _ := table.Insert(1, d)

	if _, ok := table.Borrow(h); !ok {
		t.Fatal("Borrow failed")
	}
	if _, err := table.Remove(h); !errors.Is(err, ErrOutstandingBorrow) {
		t.Fatalf("Remove err = %v, want ErrOutstandingBorrow", err)
	}
	if d.Count() != 0 {
		t.Fatal("Dropper ran while borrowed")
	}
	table.ReturnBorrow(h)
	if _, err := table.Remove(h); err != nil {
		t.Fatal(err)
	}
	if d.Count() != 1 {
		t.Fatalf("drops = %d, want 1", d.Count())
	}
}

func TestTable_ReplaceDoesNotDrop(t *testing.T) {
	table := NewTable()
	old := &countingDropper{}
	next := &countingDropper{}
	h, _ := table.Insert(1, old)

	if !table.Replace(h, 2, next) {
		t.Fatal("Replace failed")
	}
	if old.Count() != 0 {
		t.Fatal("Replace dropped the old value")
	}
	table.Remove(h)
	if old.Count() != 0 || next.Count() != 1 {
		t.Fatalf("drops old=%d next=%d", old.Count(), next.Count())
	}
}

func TestTable_Clear(t *testing.T) {
	table := NewTable()

	table.Insert(1, "a")
	table.Insert(1, "b")
	held, _ := table.Insert(1, "c")
	table.Borrow(held)

	table.Clear()

	if table.Len() != 1 {
		t.Fatalf("Expected borrowed entry to survive Clear, Len = %d", table.Len())
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	d := &countingDropper{}

	table.Insert(1, d)
	table.Insert(1, "b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d.Count() != 1 {
		t.Fatalf("drops = %d, want 1", d.Count())
	}
	if _, err := table.Insert(1, "c"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Insert after Close err = %v", err)
	}
	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if d.Count() != 1 {
		t.Fatal("second Close dropped again")
	}
}

func TestTyped(t *testing.T) {
	table := NewTable()
	names := NewTyped[string](table, 1)
	nums := NewTyped[int](table, 2)

	h, err := names.Insert("a")
	if err != nil {
		t.Fatal(err)
	}
	n, _ := nums.Insert(7)
	names.Insert("b")

	if names.Table() != table {
		t.Fatal("Table() mismatch")
	}
	if v, ok := names.Get(h); !ok || v != "a" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if _, ok := names.Get(n); ok {
		t.Fatal("Get of a handle of another type should fail")
	}
	if table.Len() != 3 {
		t.Fatalf("Len = %d", table.Len())
	}

	var seen []string
	names.Each(func(_ Handle, v string) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 2 {
		t.Fatalf("Each saw %v", seen)
	}

	if _, err := names.Remove(n); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("Remove of other type err = %v", err)
	}
	if v, err := nums.Remove(n); err != nil || v != 7 {
		t.Fatalf("Remove = %d, %v", v, err)
	}
}

func TestTyped_BorrowReplace(t *testing.T) {
	table := NewTable()
	names := NewTyped[string](table, 1)
	nums := NewTyped[int](table, 2)

	h, _ := names.Insert("socket")
	n, _ := nums.Insert(7)

	if _, ok := names.Borrow(n); ok {
		t.Fatal("Borrow of a handle of another type should fail")
	}
	if v, ok := names.Borrow(h); !ok || v != "socket" {
		t.Fatalf("Borrow = %q, %v", v, ok)
	}
	if _, err := names.Remove(h); !errors.Is(err, ErrOutstandingBorrow) {
		t.Fatalf("Remove while borrowed err = %v", err)
	}

	if names.Replace(n, "x") {
		t.Fatal("Replace of a handle of another type should fail")
	}
	if !names.Replace(h, "listener") {
		t.Fatal("Replace failed")
	}
	if v, _ := names.Get(h); v != "listener" {
		t.Fatalf("Get after Replace = %q", v)
	}

	if !names.ReturnBorrow(h) {
		t.Fatal("ReturnBorrow failed")
	}
	if v, err := names.Remove(h); err != nil || v != "listener" {
		t.Fatalf("Remove = %q, %v", v, err)
	}
}

func TestTable_CloseReportsBorrowed(t *testing.T) {
	table := NewTable()
	free := &countingDropper{}
	held := &countingDropper{}
	table.Insert(1, free)
	h, _ := table.Insert(1, held)
	table.Borrow(h)

	obs := &testObserver{}
	table.Subscribe(obs)

	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if free.Count() != 1 || held.Count() != 1 {
		t.Fatalf("drops = %d/%d, want 1/1", free.Count(), held.Count())
	}

	var dropped []Handle
	for _, e := range obs.events {
		if e.Type == EventDropped {
			dropped = append(dropped, e.Handle)
		}
	}
	if len(dropped) != 2 || dropped[1] != h {
		t.Fatalf("dropped events for %v, want both handles ending with %d", dropped, h)
	}
}
