package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindTruncated,
				Path:   []string{"arg", "3"},
				Import: "invoke_function",
				GoType: "string",
				Detail: "payload needs 8 bytes",
			},
			contains: []string{"[decode]", "truncated", "arg.3", "invoke_function", "string", "payload needs 8 bytes"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDispatch,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[dispatch]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseMemory,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[memory]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := UnknownTag(255, 0)

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindUnknownTag}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDispatch, Kind: KindUnknownTag}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindTruncated}) {
		t.Error("Is should not match different kind")
	}

	var wrapped error = Wrap(PhaseHost, KindCallFailed, err, "invoke")
	if !errors.Is(wrapped, &Error{Phase: PhaseDecode, Kind: KindUnknownTag}) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindTypeMismatch).
		Path("arg", "0").
		GoType("string").
		Import("invoke_function_returns_int").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "int64", "string").
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "arg" || err.Path[1] != "0" {
		t.Errorf("Path = %v, want [arg 0]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.Import != "invoke_function_returns_int" {
		t.Errorf("Import = %v", err.Import)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected int64, got string" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("UnknownTag", func(t *testing.T) {
		err := UnknownTag(200, 4)
		if err.Kind != KindUnknownTag || err.Phase != PhaseDecode {
			t.Errorf("got %s/%s", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "200") || !strings.Contains(err.Detail, "offset 4") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		err := Truncated("float64", 1, 8, 3)
		if err.Kind != KindTruncated {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTruncated)
		}
	})

	t.Run("EmptyResult", func(t *testing.T) {
		err := EmptyResult(7, "text")
		if err.Kind != KindEmptyResult || err.Phase != PhaseDispatch {
			t.Errorf("got %s/%s", err.Phase, err.Kind)
		}
		if err.Value != uint32(7) {
			t.Errorf("Value = %v, want 7", err.Value)
		}
	})

	t.Run("Aborted", func(t *testing.T) {
		err := Aborted()
		if err.Kind != KindAborted || err.Import != "abort" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(1024, nil)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseDispatch, 9999, 3)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != 9999 {
			t.Errorf("Value = %v, want 9999", err.Value)
		}
	})

	t.Run("MemoryOutOfBounds", func(t *testing.T) {
		err := MemoryOutOfBounds(65530, 16, 65536)
		if err.Phase != PhaseMemory || err.Kind != KindOutOfBounds {
			t.Errorf("got %s/%s", err.Phase, err.Kind)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseDispatch, "string", "an integer")
		if err.GoType != "string" || err.Detail != "expected an integer" {
			t.Errorf("got %+v", err)
		}
	})
}

func TestMissingExportsError(t *testing.T) {
	t.Run("lists exports", func(t *testing.T) {
		err := NewMissingExportsError([]string{"create_allocation", "memory"})
		msg := err.Error()
		if !strings.Contains(msg, "2 required export") {
			t.Errorf("error should contain count, got %q", msg)
		}
		if !strings.Contains(msg, "create_allocation") || !strings.Contains(msg, "memory") {
			t.Errorf("error should list names, got %q", msg)
		}
	})

	t.Run("empty", func(t *testing.T) {
		err := NewMissingExportsError(nil)
		if !strings.Contains(err.Error(), "no exports specified") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingExportsError([]string{"memory"})
		if !errors.Is(err, &MissingExportsError{}) {
			t.Error("errors.Is should match MissingExportsError")
		}
		if !errors.Is(err, &Error{Phase: PhaseLoad, Kind: KindMissingExport}) {
			t.Error("errors.Is should match load/missing_export")
		}
	})
}
