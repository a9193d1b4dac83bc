package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	stage := func() (err error) {
		defer Recover(&err, "preprocessing.Preprocess")
		var columns []string
		_ = columns[3]
		return nil
	}

	err := stage()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "preprocessing.Preprocess" {
		t.Errorf("Expected operation 'preprocessing.Preprocess', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if !strings.HasPrefix(panicErr.Error(), "panic in preprocessing.Preprocess: ") {
		t.Errorf("unexpected message %q", panicErr.Error())
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	stage := func() (err error) {
		defer Recover(&err, "dataset.Load")
		return nil
	}

	if err := stage(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	stage := func() (err error) {
		defer Recover(&err, "assessment.Train")
		err = originalErr
		panic("panic after error")
	}

	err := stage()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "panic in assessment.Train") {
		t.Errorf("Error message should contain panic info: %s", errMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("Should be able to identify original error with errors.Is")
	}
}

func TestSafeExecute(t *testing.T) {
	fnErr := NewInvalidInputError("dataset.Load", "empty path")

	tests := []struct {
		name      string
		fn        func() error
		wantNil   bool
		wantPanic bool
		wantSame  error
	}{
		{name: "success", fn: func() error { return nil }, wantNil: true},
		{name: "function error passes through", fn: func() error { return fnErr }, wantSame: fnErr},
		{name: "panic becomes PanicError", fn: func() error { panic("tree build failed") }, wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("fit tree", tt.fn)
			switch {
			case tt.wantNil:
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
			case tt.wantSame != nil:
				if err != tt.wantSame {
					t.Fatalf("Expected original error, got: %v", err)
				}
			case tt.wantPanic:
				var panicErr *PanicError
				if !errors.As(err, &panicErr) {
					t.Fatalf("Expected PanicError, got %T", err)
				}
				if panicErr.PanicValue != "tree build failed" {
					t.Errorf("unexpected panic value %v", panicErr.PanicValue)
				}
			}
		})
	}
}

func TestPanicError_Interface(t *testing.T) {
	panicErr := NewPanicError("TestOp", "test value")

	if panicErr.Error() != "panic in TestOp: test value" {
		t.Errorf("unexpected message %q", panicErr.Error())
	}
	str := panicErr.String()
	if !strings.Contains(str, "Stack trace:") {
		t.Error("String() should include stack trace information")
	}
	if panicErr.Unwrap() != nil {
		t.Error("PanicError.Unwrap() should return nil for a non-error value")
	}
}

func TestRecover_KeepsKindOfPanickedError(t *testing.T) {
	stage := func() (err error) {
		defer Recover(&err, "preprocessing.Preprocess")
		panic(NewImputationError("SimpleImputer.Fit", "income", "no present values"))
	}

	err := stage()
	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if KindOf(err) != KindImputation {
		t.Errorf("Expected kind ImputationError, got %s", KindOf(err))
	}
}

func TestRecover_DifferentPanicTypes(t *testing.T) {
	testCases := []struct {
		name       string
		panicValue interface{}
	}{
		{"string panic", "string panic"},
		{"int panic", 42},
		{"error panic", fmt.Errorf("error as panic")},
		{"struct panic", struct{ Msg string }{"struct message"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stage := func() (err error) {
				defer Recover(&err, "TypeTest")
				panic(tc.panicValue)
			}

			var panicErr *PanicError
			if !errors.As(stage(), &panicErr) {
				t.Fatal("Expected PanicError")
			}
			if fmt.Sprintf("%v", panicErr.PanicValue) != fmt.Sprintf("%v", tc.panicValue) {
				t.Errorf("Expected panic value %v, got %v", tc.panicValue, panicErr.PanicValue)
			}
		})
	}
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("BenchmarkOp", func() error { return nil })
	}
}
