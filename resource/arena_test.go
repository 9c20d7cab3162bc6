package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

type dropCounter struct {
	drops int
}

func (d *dropCounter) Drop() { d.drops++ }

func newTestArena(opts ...Option) *Arena {
	return NewArena(Reserved{
		Global:   "global",
		Window:   "window",
		Document: "document",
		Body:     "body",
	}, opts...)
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		index, generation uint32
		want              Handle
	}{
		{0, 0, 0},
		{8, 0, 8 << 32},
		{8, 1, 8<<32 | 1},
		{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFFFFFFFFFF},
		{1, 0x80000000, 1<<32 | 0x80000000},
	}

	for _, tt := range tests {
		h := Encode(tt.index, tt.generation)
		if h != tt.want {
			t.Errorf("Encode(%d, %d) = %#x, want %#x", tt.index, tt.generation, h, tt.want)
		}
		index, generation := Decode(h)
		if index != tt.index || generation != tt.generation {
			t.Errorf("Decode(%#x) = (%d, %d), want (%d, %d)", h, index, generation, tt.index, tt.generation)
		}
	}
}

func TestArena_RoundTrip(t *testing.T) {
	a := newTestArena()

	values := []any{"text", 3.5, int64(-1), []float32{1, 2}, struct{ X int }{1}}
	handles := make([]Handle, len(values))
	for i, v := range values {
		handles[i] = a.Create(v)
	}

	for i, h := range handles {
		got, ok := a.Get(h)
		if !ok {
			t.Fatalf("Get(%#x) not found", h)
		}
		if i == 3 {
			if s, ok := got.([]float32); !ok || len(s) != 2 {
				t.Errorf("Get(%#x) = %v", h, got)
			}
			continue
		}
		if got != values[i] {
			t.Errorf("Get(%#x) = %v, want %v", h, got, values[i])
		}
	}

	if a.Len() != len(values) {
		t.Errorf("Len() = %d, want %d", a.Len(), len(values))
	}
}

func TestArena_FirstHandleAfterReserved(t *testing.T) {
	a := newTestArena()

	h := a.Create("first")
	if h.Index() != ReservedCount || h.Generation() != 0 {
		t.Fatalf("first handle = (%d, %d), want (%d, 0)", h.Index(), h.Generation(), ReservedCount)
	}
	if a.Cap() != ReservedCount+1 {
		t.Errorf("Cap() = %d, want %d", a.Cap(), ReservedCount+1)
	}
}

func TestArena_DestroyInvalidates(t *testing.T) {
	a := newTestArena()

	h := a.Create("value")
	if !a.Destroy(h) {
		t.Fatal("Destroy returned false for live handle")
	}
	if _, ok := a.Get(h); ok {
		t.Fatal("Get succeeded after Destroy")
	}
	if a.Destroy(h) {
		t.Fatal("second Destroy should report false")
	}
	if a.Len() != 0 {
		t.Errorf("Len() = %d, want 0", a.Len())
	}
}

func TestArena_GenerationIsolation(t *testing.T) {
	a := newTestArena()

	old := a.Create("old")
	a.Destroy(old)
	fresh := a.Create("new")

	if fresh.Index() != old.Index() {
		t.Fatalf("slot not reused: old index %d, new index %d", old.Index(), fresh.Index())
	}
	if fresh.Generation() != old.Generation()+1 {
		t.Fatalf("generation = %d, want %d", fresh.Generation(), old.Generation()+1)
	}
	if _, ok := a.Get(old); ok {
		t.Fatal("stale handle resolved to the new item")
	}
	if v, ok := a.Get(fresh); !ok || v != "new" {
		t.Fatalf("Get(fresh) = %v, %v", v, ok)
	}
	if a.Destroy(old) {
		t.Fatal("Destroy with stale handle should fail")
	}
	if v, _ := a.Get(fresh); v != "new" {
		t.Fatal("stale Destroy mutated the live slot")
	}
}

func TestArena_GrowsOnlyWhenFreeListEmpty(t *testing.T) {
	a := newTestArena()

	h1 := a.Create(1)
	h2 := a.Create(2)
	a.Destroy(h1)
	a.Destroy(h2)
	capBefore := a.Cap()

	// Free list is a stack: the last destroyed slot is reused first.
	r1 := a.Create(3)
	r2 := a.Create(4)
	if r1.Index() != h2.Index() || r2.Index() != h1.Index() {
		t.Errorf("reuse order = (%d, %d), want (%d, %d)", r1.Index(), r2.Index(), h2.Index(), h1.Index())
	}
	if a.Cap() != capBefore {
		t.Errorf("Cap() grew from %d to %d while free slots existed", capBefore, a.Cap())
	}

	a.Create(5)
	if a.Cap() != capBefore+1 {
		t.Errorf("Cap() = %d, want %d", a.Cap(), capBefore+1)
	}
}

func TestArena_InvalidHandles(t *testing.T) {
	a := newTestArena()
	h := a.Create("x")

	tests := []struct {
		name string
		h    Handle
	}{
		{"out of range index", Encode(1000, 0)},
		{"wrong generation", Encode(h.Index(), 5)},
		{"reserved slot via encoded form", Encode(2, 0)},
		{"max handle", Handle(^uint64(0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v, ok := a.Get(tt.h); ok {
				t.Errorf("Get(%#x) = %v, want not found", tt.h, v)
			}
			if a.Destroy(tt.h) {
				t.Errorf("Destroy(%#x) = true, want false", tt.h)
			}
		})
	}

	if v, ok := a.Get(h); !ok || v != "x" {
		t.Error("live handle disturbed by invalid operations")
	}
}

func TestArena_ReservedHandles(t *testing.T) {
	a := newTestArena()

	want := map[Handle]any{
		HandleUndefined: Undefined,
		HandleNull:      nil,
		HandleGlobal:    "global",
		HandleWindow:    "window",
		HandleDocument:  "document",
		HandleBody:      "body",
		HandleFalse:     false,
		HandleTrue:      true,
	}

	for h, v := range want {
		got, ok := a.Get(h)
		if !ok {
			t.Errorf("Get(%d) not found", h)
			continue
		}
		if got != v {
			t.Errorf("Get(%d) = %v, want %v", h, got, v)
		}
	}
}

func TestArena_ReservedImmutability(t *testing.T) {
	a := newTestArena()
	obs := &testObserver{}
	a.Subscribe(obs)

	capBefore, freeBefore := a.Cap(), a.Free()
	for h := Handle(0); h < ReservedCount; h++ {
		if a.Destroy(h) {
			t.Errorf("Destroy(%d) = true, want false", h)
		}
	}

	if a.Cap() != capBefore || a.Free() != freeBefore {
		t.Error("destroying reserved handles mutated the arena")
	}
	if len(obs.events) != 0 {
		t.Errorf("got %d events, want none", len(obs.events))
	}
	if v, ok := a.Get(HandleTrue); !ok || v != true {
		t.Error("reserved true slot changed")
	}
	if h := a.Create("after"); h.Index() < ReservedCount {
		t.Errorf("Create returned reserved index %d", h.Index())
	}
}

func TestArena_RecycleCeiling(t *testing.T) {
	const ceiling = 3
	a := newTestArena(WithRecycleCeiling(ceiling))

	h := a.Create("v")
	index := h.Index()
	for gen := uint32(0); gen < ceiling; gen++ {
		if h.Index() != index || h.Generation() != gen {
			t.Fatalf("handle = (%d, %d), want (%d, %d)", h.Index(), h.Generation(), index, gen)
		}
		a.Destroy(h)
		h = a.Create("v")
	}

	if h.Generation() != ceiling {
		t.Fatalf("generation = %d, want %d", h.Generation(), ceiling)
	}
	if !a.Destroy(h) {
		t.Fatal("Destroy at ceiling should still report success")
	}
	if a.Retired() != 1 || a.Free() != 0 {
		t.Fatalf("Retired() = %d, Free() = %d, want 1, 0", a.Retired(), a.Free())
	}

	for i := 0; i < 10; i++ {
		if next := a.Create(i); next.Index() == index {
			t.Fatalf("retired slot %d was reused", index)
		}
	}
	if slot, ok := a.Slot(index); !ok || slot.Active {
		t.Error("retired slot should exist and stay inactive")
	}
}

func TestArena_Dropper(t *testing.T) {
	a := newTestArena()
	d := &dropCounter{}

	h := a.Create(d)
	a.Destroy(h)
	a.Destroy(h)

	if d.drops != 1 {
		t.Errorf("Drop called %d times, want 1", d.drops)
	}
}

func TestArena_Observer(t *testing.T) {
	a := newTestArena(WithRecycleCeiling(1))
	obs := &testObserver{}
	a.Subscribe(obs)

	h := a.Create("test")
	if len(obs.events) != 1 || obs.events[0].Type != EventCreated || obs.events[0].Handle != h {
		t.Fatalf("unexpected events after Create: %+v", obs.events)
	}

	a.Destroy(h)
	if len(obs.events) != 2 || obs.events[1].Type != EventDestroyed {
		t.Fatalf("unexpected events after Destroy: %+v", obs.events)
	}
	if obs.events[1].Value != "test" {
		t.Errorf("destroyed value = %v", obs.events[1].Value)
	}

	h = a.Create("again")
	a.Destroy(h)
	if obs.events[3].Type != EventRetired {
		t.Errorf("event = %s, want retired", obs.events[3].Type)
	}

	a.Unsubscribe(obs)
	a.Create("ignored")
	if len(obs.events) != 4 {
		t.Fatal("should not receive events after Unsubscribe")
	}
}

func TestArena_UnsubscribeObserverFunc(t *testing.T) {
	a := newTestArena()
	var funcEvents, lateEvents int
	f := ObserverFunc(func(Event) { funcEvents++ })
	obs := &testObserver{}

	cancel := a.Subscribe(f)
	a.Subscribe(obs)

	// Must not panic on the uncomparable ObserverFunc in either position.
	a.Unsubscribe(f)
	a.Create("one")
	if funcEvents != 1 {
		t.Fatalf("func observer events = %d, want 1", funcEvents)
	}

	cancel()
	cancel()
	a.Create("two")
	if funcEvents != 1 {
		t.Errorf("func observer still notified after cancel: %d events", funcEvents)
	}
	if len(obs.events) != 2 {
		t.Errorf("pointer observer events = %d, want 2", len(obs.events))
	}

	a.Subscribe(ObserverFunc(func(Event) { lateEvents++ }))
	a.Unsubscribe(obs)
	a.Create("three")
	if len(obs.events) != 2 {
		t.Errorf("pointer observer notified after Unsubscribe")
	}
	if lateEvents != 1 {
		t.Errorf("remaining func observer events = %d, want 1", lateEvents)
	}
}

func TestArena_CancelDuringNotify(t *testing.T) {
	a := newTestArena()
	var calls int
	var cancel func()
	cancel = a.Subscribe(ObserverFunc(func(Event) {
		calls++
		cancel()
	}))
	obs := &testObserver{}
	a.Subscribe(obs)

	a.Create("x")
	a.Create("y")
	if calls != 1 {
		t.Errorf("self-cancelling observer called %d times, want 1", calls)
	}
	if len(obs.events) != 2 {
		t.Errorf("later observer events = %d, want 2", len(obs.events))
	}
}

func TestArena_ReentrantObserver(t *testing.T) {
	a := newTestArena()
	var nested Handle
	a.Subscribe(ObserverFunc(func(e Event) {
		if e.Type == EventCreated && e.Value == "outer" {
			nested = a.Create("inner")
		}
	}))

	outer := a.Create("outer")
	if v, ok := a.Get(outer); !ok || v != "outer" {
		t.Fatalf("Get(outer) = %v, %v", v, ok)
	}
	if v, ok := a.Get(nested); !ok || v != "inner" {
		t.Fatalf("Get(nested) = %v, %v", v, ok)
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(nil) || !IsEmpty(Undefined) {
		t.Error("nil and Undefined must be empty")
	}
	for _, v := range []any{false, 0, "", 0.0} {
		if IsEmpty(v) {
			t.Errorf("IsEmpty(%#v) = true", v)
		}
	}
}
