package simt

import (
	"errors"
	"testing"
)

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantOp   string
		wantMsg  string
		checkFn  func(error) bool
	}{
		{
			name:     "Invalid Size Error",
			err:      ErrInvalidSize,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Malloc",
			wantMsg:  "size must be positive",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Double Free Error",
			err:      ErrDoubleFree,
			wantType: ErrTypeMemory,
			wantOp:   "Free",
			wantMsg:  "double free detected",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Invalid Device Error",
			err:      ErrInvalidDevice,
			wantType: ErrTypeInvalidArg,
			wantOp:   "SetDevice",
			wantMsg:  "invalid device ID",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Shape Mismatch Error",
			err:      ErrShapeMismatch,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Transpose",
			wantMsg:  "output buffer does not match transposed shape",
			checkFn:  IsInvalidArgError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e *Error
			if !errors.As(tt.err, &e) {
				t.Fatalf("expected *Error, got %T", tt.err)
			}
			if e.Type != tt.wantType {
				t.Errorf("wrong type: got %v, want %v", e.Type, tt.wantType)
			}
			if e.Op != tt.wantOp {
				t.Errorf("wrong op: got %q, want %q", e.Op, tt.wantOp)
			}
			if e.Message != tt.wantMsg {
				t.Errorf("wrong message: got %q, want %q", e.Message, tt.wantMsg)
			}
			if !tt.checkFn(tt.err) {
				t.Errorf("check function rejected %v", tt.err)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := NewExecutionError("Launch", "kernel dispatch failed", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is failed to find wrapped cause")
	}

	want := "simt Execution error in Launch: kernel dispatch failed (caused by: underlying failure)"
	if err.Error() != want {
		t.Errorf("wrong error string:\ngot  %q\nwant %q", err.Error(), want)
	}
}

func TestErrorTypeString(t *testing.T) {
	cases := map[ErrorType]string{
		ErrTypeMemory:     "Memory",
		ErrTypeInvalidArg: "InvalidArgument",
		ErrTypeExecution:  "Execution",
		ErrTypeDevice:     "Device",
		ErrorType(99):     "Unknown",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
