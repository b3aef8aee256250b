package ir

import (
	"encoding/binary"
	"strconv"
)

// Fingerprint computes a stable identity for a function's compiled
// form: name plus every instruction's opcode and operands, FNV-1a
// hashed the same way the teacher's internal/vmregister.HashString
// hashes strings. Used by internal/engine to key its strategy,
// bytecode, native and profile caches (spec section 4.3); Engine.Reload
// clears those caches, so a tier decision is reused only within one
// loaded module.
func Fingerprint(fn *Function) uint64 {
	hash := uint64(14695981039346656037)
	mix := func(b byte) {
		hash ^= uint64(b)
		hash *= 1099511628211
	}
	mixString := func(s string) {
		for i := 0; i < len(s); i++ {
			mix(s[i])
		}
	}
	mixInt32 := func(v int32) {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		for _, b := range buf {
			mix(b)
		}
	}

	mixString(fn.Name)
	mixString(strconv.Itoa(fn.Arity))
	for _, in := range fn.Code {
		mix(byte(in.Op))
		mixInt32(in.A)
		mixInt32(in.B)
		mixInt32(in.C)
	}
	return hash
}
