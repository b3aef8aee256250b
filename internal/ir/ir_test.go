package ir

import (
	"bytes"
	"testing"

	"sentra/internal/values"
)

func newRoundTripModule() *Module {
	m := NewModule("test.sntr")
	fn := &Function{
		Name:    "main",
		Arity:   0,
		MaxSlot: 4,
		Strings: NewStringPool(),
		Constants: func() *ConstPool {
			cp := NewConstPool()
			cp.Add(values.BoxInt(1))
			cp.Add(values.BoxInt(100000)) // exercises an operand beyond a single byte
			return cp
		}(),
		Code: []Instr{
			{Op: OpConst, A: 1, Line: 7},     // constant index 100000's slot, not its value
			{Op: OpLoadVar, A: 300, Line: 8}, // slot index above 255
			{Op: OpReturn, Line: 9},
		},
	}
	m.Functions = []*Function{fn}
	m.Strings = fn.Strings
	m.Constants = fn.Constants
	return m
}

func TestWriteReadModuleRoundTrip(t *testing.T) {
	m := newRoundTripModule()

	var buf bytes.Buffer
	if err := WriteModule(&buf, m); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := ReadModule(&buf, "test.sntr")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if len(got.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(got.Functions))
	}
	fn := got.Functions[0]
	if fn.Name != "main" || fn.MaxSlot != 4 {
		t.Fatalf("unexpected function header: %+v", fn)
	}
	if len(fn.Code) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(fn.Code))
	}
	// A 300-slot operand must survive the round trip; a single-byte
	// encoding would have wrapped it to 300 % 256 = 44.
	if fn.Code[1].A != 300 {
		t.Fatalf("expected operand A=300 to survive round trip, got %d", fn.Code[1].A)
	}
	if fn.Code[0].Line != 7 || fn.Code[2].Line != 9 {
		t.Fatalf("expected source lines to survive round trip, got %+v", fn.Code)
	}
}

func TestFingerprintStableAndSensitiveToOperands(t *testing.T) {
	fnA := &Function{Name: "f", Arity: 1, Code: []Instr{{Op: OpLoadVar, A: 0}, {Op: OpReturn}}}
	fnB := &Function{Name: "f", Arity: 1, Code: []Instr{{Op: OpLoadVar, A: 0}, {Op: OpReturn}}}
	fnC := &Function{Name: "f", Arity: 1, Code: []Instr{{Op: OpLoadVar, A: 1}, {Op: OpReturn}}}

	if Fingerprint(fnA) != Fingerprint(fnB) {
		t.Fatal("expected identical functions to fingerprint the same")
	}
	if Fingerprint(fnA) == Fingerprint(fnC) {
		t.Fatal("expected a different operand to change the fingerprint")
	}
}

func TestVerifyRejectsOutOfRangeJump(t *testing.T) {
	fn := &Function{Name: "f", Code: []Instr{
		{Op: OpJump, A: 99},
		{Op: OpReturn},
	}}
	if err := Verify(fn); err == nil {
		t.Fatal("expected an out-of-range jump target to fail verification")
	}
}

func TestVerifyRejectsOversizedMaxSlot(t *testing.T) {
	fn := &Function{Name: "f", MaxSlot: 257, Code: []Instr{{Op: OpReturn}}}
	if err := Verify(fn); err == nil {
		t.Fatal("expected MaxSlot over 256 to fail verification")
	}
}

func TestVerifyAcceptsWellFormedFunction(t *testing.T) {
	fn := &Function{Name: "f", MaxSlot: 2, Code: []Instr{
		{Op: OpConst, A: 0},
		{Op: OpJumpIfFalse, A: 3},
		{Op: OpConst, A: 0},
		{Op: OpReturn},
	}}
	if err := Verify(fn); err != nil {
		t.Fatalf("expected a well-formed function to verify, got %v", err)
	}
}
