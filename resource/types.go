package resource

// Handle is an opaque reference to a slot in an Arena.
// The slot index occupies the upper 32 bits and the generation the lower 32 bits.
type Handle uint64

// Index returns the slot index encoded in the handle.
func (h Handle) Index() uint32 {
	return uint32(h >> 32)
}

// Generation returns the slot generation encoded in the handle.
func (h Handle) Generation() uint32 {
	return uint32(h)
}

// Encode packs a slot index and generation into a handle.
func Encode(index, generation uint32) Handle {
	return Handle(uint64(index)<<32 | uint64(generation))
}

// Decode unpacks a handle into its slot index and generation.
func Decode(h Handle) (index, generation uint32) {
	return h.Index(), h.Generation()
}

// Reserved handles. These are literal uids addressing slots 0 through 7; no
// handle minted by Create can collide with them because Create never hands out
// a slot below ReservedCount.
const (
	HandleUndefined Handle = iota
	HandleNull
	HandleGlobal
	HandleWindow
	HandleDocument
	HandleBody
	HandleFalse
	HandleTrue
)

// ReservedCount is the number of slots populated at construction and never destroyed.
const ReservedCount = 8

// UndefinedValue is the type of Undefined.
type UndefinedValue struct{}

func (UndefinedValue) String() string { return "undefined" }

// Undefined is the absent value. It is distinct from nil, which is the null value.
var Undefined = UndefinedValue{}

// IsEmpty reports whether v is null or Undefined.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(UndefinedValue)
	return ok
}

// Reserved holds the host objects placed in the fixed slots at construction.
type Reserved struct {
	Global   any
	Window   any
	Document any
	Body     any
}

// EventType identifies an arena lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDestroyed
	EventRetired
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDestroyed:
		return "destroyed"
	case EventRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// Event represents an arena lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
}

// Observer receives notifications about arena lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by values that need cleanup when destroyed.
type Dropper interface {
	Drop()
}
