package datum

import (
	"bytes"

	errorsmod "cosmossdk.io/errors"

	"github.com/cardano-ibc/gateway/types"
)

// SeqMap is a packet map keyed by sequence. Iteration follows insertion
// order, which is the order the entries appear in the encoded datum.
type SeqMap struct {
	keys   []uint64
	values map[uint64][]byte
}

func NewSeqMap() *SeqMap {
	return &SeqMap{values: make(map[uint64][]byte)}
}

func (m *SeqMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *SeqMap) Get(seq uint64) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[seq]
	return v, ok
}

func (m *SeqMap) Has(seq uint64) bool {
	_, ok := m.Get(seq)
	return ok
}

// Keys returns a copy of the sequences in insertion order.
func (m *SeqMap) Keys() []uint64 {
	if m == nil {
		return nil
	}
	keys := make([]uint64, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Set stores value under seq, replacing any previous value in place.
func (m *SeqMap) Set(seq uint64, value []byte) {
	if _, ok := m.values[seq]; !ok {
		m.keys = append(m.keys, seq)
	}
	m.values[seq] = value
}

// Insert adds an append-only entry. Re-inserting identical bytes is a no-op;
// different bytes for an existing sequence fail with ErrConflictingWrite.
func (m *SeqMap) Insert(seq uint64, value []byte) error {
	if prev, ok := m.values[seq]; ok {
		if bytes.Equal(prev, value) {
			return nil
		}
		return errorsmod.Wrapf(types.ErrConflictingWrite, "sequence %d already holds %x, refusing %x", seq, prev, value)
	}
	m.Set(seq, value)
	return nil
}

// Delete removes seq and reports whether it was present.
func (m *SeqMap) Delete(seq uint64) bool {
	if _, ok := m.values[seq]; !ok {
		return false
	}
	delete(m.values, seq)
	for i, k := range m.keys {
		if k == seq {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

func (m *SeqMap) Clone() *SeqMap {
	c := NewSeqMap()
	if m == nil {
		return c
	}
	for _, k := range m.keys {
		c.Set(k, append([]byte(nil), m.values[k]...))
	}
	return c
}

func (m *SeqMap) plutus() Map {
	out := make(Map, 0, m.Len())
	for _, k := range m.Keys() {
		out = append(out, Pair{Key: Int(k), Value: nonNil(m.values[k])})
	}
	return out
}

func decodeSeqMap(d Data, what string) (*SeqMap, error) {
	entries, err := asMap(d, what)
	if err != nil {
		return nil, err
	}
	m := NewSeqMap()
	for _, p := range entries {
		seq, err := asUint(p.Key, what+" key")
		if err != nil {
			return nil, err
		}
		value, err := asBytes(p.Value, what+" value")
		if err != nil {
			return nil, err
		}
		m.Set(seq, value)
	}
	return m, nil
}
