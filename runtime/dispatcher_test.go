package runtime

import (
	"context"
	stderrors "errors"
	"math"
	"testing"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/resource"
	"github.com/wippyai/wasm-bridge/transcoder"
)

type mockMemory struct {
	data   []byte
	writes []string
}

func (m *mockMemory) Read(ptr, length uint32) ([]byte, error) {
	if uint64(ptr)+uint64(length) > uint64(len(m.data)) {
		return nil, errors.MemoryOutOfBounds(ptr, length, uint32(len(m.data)))
	}
	return append([]byte(nil), m.data[ptr:ptr+length]...), nil
}

func (m *mockMemory) WriteText(_ context.Context, s string) (uint32, error) {
	m.writes = append(m.writes, s)
	return uint32(len(m.writes)), nil
}

func newTestDispatcher(results ...any) (*Dispatcher, *mockMemory, *resource.Arena) {
	mem := &mockMemory{data: make([]byte, 256)}
	arena := resource.NewArena(resource.Reserved{})
	reg := NewRegistry(nil, nil)
	for _, r := range results {
		r := r
		reg.RegisterFunc(func(context.Context, []any) (any, error) { return r, nil })
	}
	return NewDispatcher(mem, arena, reg, nil), mem, arena
}

func TestDispatcher_InvokeOutOfRange(t *testing.T) {
	d, _, _ := newTestDispatcher()

	res, err := d.InvokeArgs(context.Background(), 9999, nil)
	if res != nil {
		t.Errorf("result = %#v", res)
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindOutOfBounds}) {
		t.Fatalf("expected dispatch out_of_bounds, got %v", err)
	}
}

func TestDispatcher_DecodeBeforeLookup(t *testing.T) {
	d, _, _ := newTestDispatcher()

	_, err := d.InvokeArgs(context.Background(), 9999, []byte{255})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindUnknownTag}) {
		t.Fatalf("expected unknown_tag, got %v", err)
	}
}

func TestDispatcher_ArgumentsSpread(t *testing.T) {
	d, mem, _ := newTestDispatcher()
	var got []any
	id := d.registry.RegisterFunc(func(_ context.Context, args []any) (any, error) {
		got = args
		return nil, nil
	})

	copy(mem.data[100:], "hi")
	buf := transcoder.NewEncoder().Float64(1.5).String(100, 2).Null().Bytes()
	copy(mem.data, buf)

	if err := d.InvokeVoid(context.Background(), id, 0, uint32(len(buf))); err != nil {
		t.Fatalf("InvokeVoid: %v", err)
	}
	if len(got) != 3 || got[0] != 1.5 || got[1] != "hi" || got[2] != nil {
		t.Errorf("args = %#v", got)
	}
}

func TestDispatcher_InvokeReadOutOfBounds(t *testing.T) {
	d, _, _ := newTestDispatcher(1.0)

	_, err := d.Invoke(context.Background(), 1, 250, 100)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseMemory, Kind: errors.KindOutOfBounds}) {
		t.Errorf("expected memory out_of_bounds, got %v", err)
	}
}

func TestDispatcher_FunctionError(t *testing.T) {
	d, _, _ := newTestDispatcher()
	id := d.registry.RegisterFunc(func(context.Context, []any) (any, error) {
		return nil, stderrors.New("boom")
	})

	_, err := d.InvokeArgs(context.Background(), id, nil)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindCallFailed}) {
		t.Errorf("expected call_failed, got %v", err)
	}
}

func TestDispatcher_InvokeObject(t *testing.T) {
	obj := &struct{ n int }{1}
	d, _, arena := newTestDispatcher(obj, resource.Undefined, nil)
	ctx := context.Background()

	h, err := d.InvokeObject(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("InvokeObject: %v", err)
	}
	if got, ok := arena.Get(h); !ok || got != obj {
		t.Errorf("arena.Get(%d) = %#v, %v", h, got, ok)
	}

	for _, id := range []uint32{2, 3} {
		_, err := d.InvokeObject(ctx, id, 0, 0)
		if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindEmptyResult}) {
			t.Errorf("function %d: expected empty_result, got %v", id, err)
		}
	}
	if arena.Len() != 1 {
		t.Errorf("arena grew on failure: Len = %d", arena.Len())
	}
}

func TestDispatcher_InvokeText(t *testing.T) {
	d, mem, _ := newTestDispatcher("héllo", 42.5, resource.Undefined)
	ctx := context.Background()

	id, err := d.InvokeText(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("InvokeText: %v", err)
	}
	if id != 1 || mem.writes[0] != "héllo" {
		t.Errorf("id = %d, writes = %v", id, mem.writes)
	}

	if _, err := d.InvokeText(ctx, 2, 0, 0); err != nil {
		t.Fatalf("InvokeText: %v", err)
	}
	if mem.writes[1] != "42.5" {
		t.Errorf("number text = %q", mem.writes[1])
	}

	_, err = d.InvokeText(ctx, 3, 0, 0)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindEmptyResult}) {
		t.Errorf("expected empty_result, got %v", err)
	}
	if len(mem.writes) != 2 {
		t.Errorf("empty result was written")
	}
}

func TestDispatcher_InvokeIntFloatBool(t *testing.T) {
	d, _, _ := newTestDispatcher(int64(math.MaxInt64), 2.75, "text")
	ctx := context.Background()

	n, err := d.InvokeInt(ctx, 1, 0, 0)
	if err != nil || n != math.MaxInt64 {
		t.Errorf("InvokeInt = %d, %v", n, err)
	}
	n, err = d.InvokeInt(ctx, 2, 0, 0)
	if err != nil || n != 2 {
		t.Errorf("InvokeInt(float) = %d, %v", n, err)
	}
	_, err = d.InvokeInt(ctx, 3, 0, 0)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindTypeMismatch}) {
		t.Errorf("expected type_mismatch, got %v", err)
	}

	f, err := d.InvokeFloat(ctx, 2, 0, 0)
	if err != nil || f != 2.75 {
		t.Errorf("InvokeFloat = %v, %v", f, err)
	}

	b, err := d.InvokeBool(ctx, 3, 0, 0)
	if err != nil || !b {
		t.Errorf("InvokeBool = %v, %v", b, err)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{resource.Undefined, false},
		{false, false},
		{true, true},
		{0.0, false},
		{math.NaN(), false},
		{-0.5, true},
		{int64(0), false},
		{int64(-1), true},
		{"", false},
		{"0", true},
		{[]float64{}, true},
		{&struct{}{}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		v    any
		want int64
	}{
		{int64(math.MinInt64), math.MinInt64},
		{3.9, 3},
		{-3.9, -3},
		{math.NaN(), 0},
		{math.Inf(1), math.MaxInt64},
		{math.Inf(-1), math.MinInt64},
		{1e300, math.MaxInt64},
		{true, 1},
		{false, 0},
		{uint32(7), 7},
	}
	for _, tt := range tests {
		got, err := ToInt64(tt.v)
		if err != nil {
			t.Errorf("ToInt64(%#v): %v", tt.v, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToInt64(%#v) = %d, want %d", tt.v, got, tt.want)
		}
	}

	for _, v := range []any{nil, resource.Undefined, "1", []uint32{1}} {
		if _, err := ToInt64(v); err == nil {
			t.Errorf("ToInt64(%#v) succeeded", v)
		}
	}
}

func TestToText(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{"plain", "plain"},
		{3.5, "3.5"},
		{int64(-2), "-2"},
		{true, "true"},
		{resource.Undefined, "undefined"},
	}
	for _, tt := range tests {
		if got := ToText(tt.v); got != tt.want {
			t.Errorf("ToText(%#v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
