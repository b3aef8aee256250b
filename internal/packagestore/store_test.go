package packagestore

import (
	"testing"

	"sentra/internal/ir"
	"sentra/internal/values"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleFunction(name string, constVal int64) *ir.Function {
	cp := ir.NewConstPool()
	cp.Add(values.BoxInt(constVal))
	return &ir.Function{
		Name: name, MaxSlot: 1,
		Strings:   ir.NewStringPool(),
		Constants: cp,
		Code: []ir.Instr{
			{Op: ir.OpConst, A: 0, Line: 3},
			{Op: ir.OpReturn, Line: 4},
		},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	fn := sampleFunction("f", 7)

	fp := ir.Fingerprint(fn)
	if err := s.Put(fp, fn); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := s.Get(fp)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit after Put")
	}
	if got.Name != "f" || len(got.Code) != 2 {
		t.Fatalf("unexpected roundtrip result: %+v", got)
	}
	if got.Code[0].Line != 3 {
		t.Fatalf("expected source line to survive the roundtrip, got %d", got.Code[0].Line)
	}
	if !values.IsInt(got.Constants.Get(0)) || values.AsInt(got.Constants.Get(0)) != 7 {
		t.Fatalf("expected constant 7 to survive the roundtrip, got %v", got.Constants.Get(0))
	}
}

func TestGetMissIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get(999999)
	if err != nil {
		t.Fatalf("unexpected error on a cache miss: %v", err)
	}
	if ok {
		t.Fatal("expected a miss for a fingerprint never stored")
	}
}

func TestPutOverwritesSameFingerprint(t *testing.T) {
	s := openTestStore(t)
	fn := sampleFunction("g", 1)

	fp := ir.Fingerprint(fn)
	if err := s.Put(fp, fn); err != nil {
		t.Fatalf("first put: %v", err)
	}

	fn.Name = "g-renamed"
	if err := s.Put(fp, fn); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, ok, err := s.Get(fp)
	if err != nil || !ok {
		t.Fatalf("get after overwrite: ok=%v err=%v", ok, err)
	}
	if got.Name != "g-renamed" {
		t.Fatalf("expected the second Put to overwrite the first, got name %q", got.Name)
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	s := openTestStore(t)
	fn := sampleFunction("h", 1)

	fp := ir.Fingerprint(fn)
	if err := s.Put(fp, fn); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(fp); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := s.Get(fp); err != nil || ok {
		t.Fatalf("expected no entry after delete, ok=%v err=%v", ok, err)
	}
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	if _, err := Open(Dialect("oracle"), "whatever"); err == nil {
		t.Fatal("expected an error for an unsupported dialect")
	}
}
