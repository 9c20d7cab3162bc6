package resource

import (
	"math"
	"reflect"
)

// DefaultRecycleCeiling is the generation at which a slot stops being reused.
// At the maximum the 32-bit generation can never wrap around.
const DefaultRecycleCeiling = math.MaxUint32

// Slot is one entry in the arena's backing table.
type Slot struct {
	Item       any
	Index      uint32
	Generation uint32
	Active     bool
}

// Arena is a generational slot table mapping handles to host values.
//
// Every operation is total: stale, out-of-range or reserved handles produce
// a sentinel result instead of an error. Arena is not safe for concurrent use,
// but it keeps no iteration state between calls, so it may be read and mutated
// from host functions nested inside other host functions.
type Arena struct {
	slots     []Slot
	freeList  []uint32
	observers []subscription
	nextSub   uint64
	ceiling   uint32
	retired   int
}

// Option configures an Arena.
type Option func(*Arena)

// WithRecycleCeiling sets the generation at which destroyed slots are retired
// instead of being returned to the free list.
func WithRecycleCeiling(ceiling uint32) Option {
	return func(a *Arena) {
		a.ceiling = ceiling
	}
}

// NewArena creates an arena with the reserved slots populated.
func NewArena(reserved Reserved, opts ...Option) *Arena {
	a := &Arena{
		slots:    make([]Slot, 0, 64),
		freeList: make([]uint32, 0, 16),
		ceiling:  DefaultRecycleCeiling,
	}
	for _, opt := range opts {
		opt(a)
	}

	builtins := [ReservedCount]any{
		Undefined,
		nil,
		reserved.Global,
		reserved.Window,
		reserved.Document,
		reserved.Body,
		false,
		true,
	}
	for i, item := range builtins {
		a.slots = append(a.slots, Slot{Item: item, Index: uint32(i), Active: true})
	}
	return a
}

// Create stores item and returns its handle. It never fails.
func (a *Arena) Create(item any) Handle {
	var slot *Slot
	if n := len(a.freeList); n > 0 {
		index := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		slot = &a.slots[index]
		slot.Generation++
	} else {
		a.slots = append(a.slots, Slot{Index: uint32(len(a.slots))})
		slot = &a.slots[len(a.slots)-1]
	}
	slot.Item = item
	slot.Active = true

	h := Encode(slot.Index, slot.Generation)
	a.notify(Event{Type: EventCreated, Handle: h, Value: item})
	return h
}

// Get returns the item for h, or (nil, false) if h does not name a live slot.
func (a *Arena) Get(h Handle) (any, bool) {
	if h < ReservedCount {
		return a.slots[h].Item, true
	}
	slot := a.lookup(h)
	if slot == nil {
		return nil, false
	}
	return slot.Item, true
}

// Destroy releases the slot named by h and reports whether it was live.
// Reserved handles and stale handles report false and leave the arena untouched.
func (a *Arena) Destroy(h Handle) bool {
	if h < ReservedCount {
		return false
	}
	slot := a.lookup(h)
	if slot == nil {
		return false
	}

	value := slot.Item
	slot.Item = nil
	slot.Active = false

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	if slot.Generation >= a.ceiling {
		a.retired++
		a.notify(Event{Type: EventRetired, Handle: h, Value: value})
		return true
	}

	a.freeList = append(a.freeList, slot.Index)
	a.notify(Event{Type: EventDestroyed, Handle: h, Value: value})
	return true
}

// lookup validates h against the table. Reserved slots are reachable only
// through their literal handles.
func (a *Arena) lookup(h Handle) *Slot {
	index, generation := Decode(h)
	if index < ReservedCount || int(index) >= len(a.slots) {
		return nil
	}
	slot := &a.slots[index]
	if !slot.Active || slot.Generation != generation {
		return nil
	}
	return slot
}

// Slot returns a copy of the slot at index.
func (a *Arena) Slot(index uint32) (Slot, bool) {
	if int(index) >= len(a.slots) {
		return Slot{}, false
	}
	return a.slots[index], true
}

// Len returns the number of live slots, excluding reserved ones.
func (a *Arena) Len() int {
	return len(a.slots) - ReservedCount - len(a.freeList) - a.retired
}

// Cap returns the length of the backing table, including reserved slots.
func (a *Arena) Cap() int {
	return len(a.slots)
}

// Free returns the number of slots waiting for reuse.
func (a *Arena) Free() int {
	return len(a.freeList)
}

// Retired returns the number of slots permanently removed from reuse.
func (a *Arena) Retired() int {
	return a.retired
}

type subscription struct {
	observer Observer
	id       uint64
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it again. The returned function works for any observer,
// including ObserverFunc values, and is safe to call more than once.
func (a *Arena) Subscribe(o Observer) func() {
	a.nextSub++
	id := a.nextSub
	a.observers = append(a.observers, subscription{observer: o, id: id})
	return func() { a.removeSubscription(id) }
}

// Unsubscribe removes the first subscription of o. Observers whose dynamic
// type is not comparable, such as ObserverFunc, never match; remove those
// with the function returned by Subscribe.
func (a *Arena) Unsubscribe(o Observer) {
	if o == nil || !reflect.TypeOf(o).Comparable() {
		return
	}
	for _, sub := range a.observers {
		if reflect.TypeOf(sub.observer).Comparable() && sub.observer == o {
			a.removeSubscription(sub.id)
			return
		}
	}
}

func (a *Arena) removeSubscription(id uint64) {
	for i, sub := range a.observers {
		if sub.id == id {
			a.observers = append(a.observers[:i:i], a.observers[i+1:]...)
			return
		}
	}
}

func (a *Arena) notify(e Event) {
	for _, sub := range a.observers {
		sub.observer.OnResourceEvent(e)
	}
}
