package ir

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"sentra/internal/values"
)

// magic identifies a persisted IR module file (spec section 6:
// "Persisted state layout"). This format is a contract only; the
// engine's correctness never depends on it, same as the teacher's own
// compiled-chunk serializer in internal/bytecode is optional tooling
// around the in-memory Chunk.
var magic = [4]byte{'S', 'N', 'T', 'R'}

const formatVersion uint16 = 2

// WriteModule serializes m to w in the little-endian layout spec
// section 6 defines: magic, version, function count, then per
// function name/arity/max-slot/instruction-count/instructions,
// followed by the string and constant pools.
func WriteModule(w io.Writer, m *Module) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(m.Functions))); err != nil {
		return err
	}

	for _, fn := range m.Functions {
		if err := writeFunction(bw, fn); err != nil {
			return err
		}
	}
	if err := writeStringPool(bw, m.Strings); err != nil {
		return err
	}
	if err := writeConstPool(bw, m.Constants); err != nil {
		return err
	}
	return bw.Flush()
}

func writeFunction(w *bufio.Writer, fn *Function) error {
	nameBytes := []byte(fn.Name)
	if err := binary.Write(w, binary.LittleEndian, uint16(len(nameBytes))); err != nil {
		return err
	}
	if _, err := w.Write(nameBytes); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(fn.Arity)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(fn.MaxSlot)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(fn.Code))); err != nil {
		return err
	}
	for _, in := range fn.Code {
		if err := binary.Write(w, binary.LittleEndian, uint8(in.Op)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, in.A); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, in.B); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, in.C); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, int32(in.Line)); err != nil {
			return err
		}
	}
	return nil
}

func writeStringPool(w *bufio.Writer, p *StringPool) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(p.Len())); err != nil {
		return err
	}
	for _, s := range p.All() {
		b := []byte(s)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func writeConstPool(w *bufio.Writer, p *ConstPool) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(p.Len())); err != nil {
		return err
	}
	for _, v := range p.All() {
		if err := binary.Write(w, binary.LittleEndian, uint64(v)); err != nil {
			return err
		}
	}
	return nil
}

// funcMagic identifies a persisted single-function blob, distinct from
// a whole-module file so the two formats are never confused by a
// reader holding the wrong one.
var funcMagic = [4]byte{'S', 'N', 'T', 'F'}

// WriteFunction serializes a single function plus the string/constant
// pools it indexes into, for internal/packagestore's on-disk tier
// underneath the bytecode cache (keyed by ir.Fingerprint, not by
// module path). Since a Function's pools are shared with the rest of
// its module, this writes the whole pool the function was compiled
// against rather than a slice containing only the indices it uses -
// simpler than remapping indices, at the cost of some duplicate pool
// bytes across two cached functions from the same module.
func WriteFunction(w io.Writer, fn *Function) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(funcMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := writeFunction(bw, fn); err != nil {
		return err
	}
	if err := writeStringPool(bw, fn.Strings); err != nil {
		return err
	}
	if err := writeConstPool(bw, fn.Constants); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadFunction deserializes a function written by WriteFunction.
func ReadFunction(r io.Reader) (*Function, error) {
	br := bufio.NewReader(r)

	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, err
	}
	if got != funcMagic {
		return nil, fmt.Errorf("ir: not a Sentra function blob (bad magic)")
	}
	var version uint16
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("ir: unsupported function blob format version %d", version)
	}

	fn, err := readFunction(br)
	if err != nil {
		return nil, err
	}
	strs, err := readStringPool(br)
	if err != nil {
		return nil, err
	}
	fn.Strings = strs
	consts, err := readConstPool(br)
	if err != nil {
		return nil, err
	}
	fn.Constants = consts
	return fn, nil
}

// ReadModule deserializes a module written by WriteModule. Path is
// informational only (used to populate Module.Path).
func ReadModule(r io.Reader, path string) (*Module, error) {
	br := bufio.NewReader(r)

	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, err
	}
	if got != magic {
		return nil, fmt.Errorf("ir: not a Sentra IR module (bad magic)")
	}
	var version uint16
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("ir: unsupported module format version %d", version)
	}

	var fnCount uint32
	if err := binary.Read(br, binary.LittleEndian, &fnCount); err != nil {
		return nil, err
	}

	m := NewModule(path)
	for i := uint32(0); i < fnCount; i++ {
		fn, err := readFunction(br)
		if err != nil {
			return nil, err
		}
		m.Functions = append(m.Functions, fn)
	}
	strs, err := readStringPool(br)
	if err != nil {
		return nil, err
	}
	m.Strings = strs
	consts, err := readConstPool(br)
	if err != nil {
		return nil, err
	}
	m.Constants = consts
	for _, fn := range m.Functions {
		fn.Strings = m.Strings
		fn.Constants = m.Constants
	}
	return m, nil
}

func readFunction(r *bufio.Reader) (*Function, error) {
	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, err
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return nil, err
	}
	var arity uint8
	if err := binary.Read(r, binary.LittleEndian, &arity); err != nil {
		return nil, err
	}
	var maxSlot uint16
	if err := binary.Read(r, binary.LittleEndian, &maxSlot); err != nil {
		return nil, err
	}
	var codeLen uint32
	if err := binary.Read(r, binary.LittleEndian, &codeLen); err != nil {
		return nil, err
	}
	code := make([]Instr, codeLen)
	for i := uint32(0); i < codeLen; i++ {
		var op uint8
		var a, b, c, line int32
		if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &a); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &line); err != nil {
			return nil, err
		}
		code[i] = Instr{Op: OpCode(op), A: a, B: b, C: c, Line: int(line)}
	}
	return &Function{
		Name:    string(nameBytes),
		Arity:   int(arity),
		MaxSlot: int(maxSlot),
		Code:    code,
	}, nil
}

func readStringPool(r *bufio.Reader) (*StringPool, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	p := NewStringPool()
	for i := uint32(0); i < count; i++ {
		var strLen uint32
		if err := binary.Read(r, binary.LittleEndian, &strLen); err != nil {
			return nil, err
		}
		b := make([]byte, strLen)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		p.Intern(string(b))
	}
	return p, nil
}

func readConstPool(r *bufio.Reader) (*ConstPool, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	p := NewConstPool()
	for i := uint32(0); i < count; i++ {
		var raw uint64
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, err
		}
		p.Add(values.Value(raw))
	}
	return p, nil
}
