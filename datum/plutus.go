// Package datum holds the typed ledger datums and redeemers of the IBC
// contracts and their Plutus-data CBOR encoding.
package datum

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// Data is one Plutus data value. Concrete types are Constr, Map, List,
// *big.Int and []byte.
type Data = any

// Constr is a constructor application: the Index-th alternative of a sum
// type applied to Fields.
type Constr struct {
	Index  uint64
	Fields []Data
}

// Pair is one key/value entry of a Map.
type Pair struct {
	Key   Data
	Value Data
}

// Map keeps entries in encoding order; Plutus maps are association lists.
type Map []Pair

// List is a Plutus list.
type List []Data

const (
	cborMajorArray = 4
	cborMajorMap   = 5
	cborMajorTag   = 6

	tagConstrSmallBase = 121  // alternatives 0..6
	tagConstrLargeBase = 1280 // alternatives 7..127
	tagConstrGeneral   = 102

	tagUnsignedBignum = 2
	tagNegativeBignum = 3

	// byte strings longer than this are chunked, as the ledger requires
	maxByteChunk = 64
)

// NewConstr is a shorthand for Constr{Index: index, Fields: fields}.
func NewConstr(index uint64, fields ...Data) Constr {
	if fields == nil {
		fields = []Data{}
	}
	return Constr{Index: index, Fields: fields}
}

// Int wraps an unsigned integer as Plutus data.
func Int(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// Bool encodes a boolean as Constr 0 (False) / Constr 1 (True).
func Bool(v bool) Constr {
	if v {
		return NewConstr(1)
	}
	return NewConstr(0)
}

// Encode serialises d as CBOR.
func Encode(d Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeInto(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeInto(buf *bytes.Buffer, d Data) error {
	switch v := d.(type) {
	case Constr:
		return encodeConstr(buf, v)
	case *Constr:
		return encodeConstr(buf, *v)
	case Map:
		writeHead(buf, cborMajorMap, uint64(len(v)))
		for _, p := range v {
			if err := encodeInto(buf, p.Key); err != nil {
				return err
			}
			if err := encodeInto(buf, p.Value); err != nil {
				return err
			}
		}
		return nil
	case List:
		return encodeArray(buf, v)
	case []Data:
		return encodeArray(buf, v)
	case []byte:
		return encodeBytes(buf, v)
	case *big.Int:
		return marshalInto(buf, v)
	case uint64:
		return marshalInto(buf, v)
	case int64:
		return marshalInto(buf, v)
	case int:
		return marshalInto(buf, int64(v))
	default:
		return fmt.Errorf("unsupported plutus data type %T", d)
	}
}

func encodeConstr(buf *bytes.Buffer, c Constr) error {
	switch {
	case c.Index <= 6:
		writeHead(buf, cborMajorTag, tagConstrSmallBase+c.Index)
		return encodeArray(buf, c.Fields)
	case c.Index <= 127:
		writeHead(buf, cborMajorTag, tagConstrLargeBase+c.Index-7)
		return encodeArray(buf, c.Fields)
	default:
		writeHead(buf, cborMajorTag, tagConstrGeneral)
		writeHead(buf, cborMajorArray, 2)
		if err := marshalInto(buf, c.Index); err != nil {
			return err
		}
		return encodeArray(buf, c.Fields)
	}
}

func encodeArray(buf *bytes.Buffer, items []Data) error {
	writeHead(buf, cborMajorArray, uint64(len(items)))
	for _, item := range items {
		if err := encodeInto(buf, item); err != nil {
			return err
		}
	}
	return nil
}

func encodeBytes(buf *bytes.Buffer, b []byte) error {
	if len(b) <= maxByteChunk {
		return marshalInto(buf, b)
	}
	buf.WriteByte(0x5f)
	for len(b) > 0 {
		n := min(len(b), maxByteChunk)
		if err := marshalInto(buf, b[:n]); err != nil {
			return err
		}
		b = b[n:]
	}
	buf.WriteByte(0xff)
	return nil
}

func marshalInto(buf *bytes.Buffer, v any) error {
	bz, err := cbor.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(bz)
	return nil
}

func writeHead(buf *bytes.Buffer, major byte, n uint64) {
	m := major << 5
	switch {
	case n < 24:
		buf.WriteByte(m | byte(n))
	case n <= 0xff:
		buf.WriteByte(m | 24)
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(m | 25)
		_ = binary.Write(buf, binary.BigEndian, uint16(n))
	case n <= 0xffffffff:
		buf.WriteByte(m | 26)
		_ = binary.Write(buf, binary.BigEndian, uint32(n))
	default:
		buf.WriteByte(m | 27)
		_ = binary.Write(buf, binary.BigEndian, n)
	}
}

// Decode parses one Plutus data value; trailing bytes are an error.
func Decode(bz []byte) (Data, error) {
	d, rest, err := decodeFirst(bz)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after plutus data", len(rest))
	}
	return d, nil
}

func decodeFirst(bz []byte) (Data, []byte, error) {
	if len(bz) == 0 {
		return nil, nil, fmt.Errorf("unexpected end of plutus data")
	}
	switch bz[0] >> 5 {
	case 0, 1:
		var n big.Int
		rest, err := cbor.UnmarshalFirst(bz, &n)
		if err != nil {
			return nil, nil, err
		}
		return &n, rest, nil
	case 2:
		var b []byte
		rest, err := cbor.UnmarshalFirst(bz, &b)
		if err != nil {
			return nil, nil, err
		}
		if b == nil {
			b = []byte{}
		}
		return b, rest, nil
	case cborMajorArray:
		var raw []cbor.RawMessage
		rest, err := cbor.UnmarshalFirst(bz, &raw)
		if err != nil {
			return nil, nil, err
		}
		list, err := decodeItems(raw)
		if err != nil {
			return nil, nil, err
		}
		return List(list), rest, nil
	case cborMajorMap:
		return decodeMap(bz)
	case cborMajorTag:
		var raw cbor.RawMessage
		rest, err := cbor.UnmarshalFirst(bz, &raw)
		if err != nil {
			return nil, nil, err
		}
		var tag cbor.RawTag
		if err := tag.UnmarshalCBOR(raw); err != nil {
			return nil, nil, err
		}
		d, err := decodeTag(raw, tag)
		return d, rest, err
	default:
		return nil, nil, fmt.Errorf("unsupported cbor major type %d in plutus data", bz[0]>>5)
	}
}

func decodeTag(raw []byte, tag cbor.RawTag) (Data, error) {
	switch {
	case tag.Number == tagUnsignedBignum || tag.Number == tagNegativeBignum:
		var n big.Int
		if err := cbor.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &n, nil
	case tag.Number >= tagConstrSmallBase && tag.Number <= tagConstrSmallBase+6:
		fields, err := decodeFields(tag.Content)
		return Constr{Index: tag.Number - tagConstrSmallBase, Fields: fields}, err
	case tag.Number >= tagConstrLargeBase && tag.Number <= tagConstrLargeBase+120:
		fields, err := decodeFields(tag.Content)
		return Constr{Index: tag.Number - tagConstrLargeBase + 7, Fields: fields}, err
	case tag.Number == tagConstrGeneral:
		var parts []cbor.RawMessage
		if err := cbor.Unmarshal(tag.Content, &parts); err != nil {
			return nil, err
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("general constructor needs 2 elements, got %d", len(parts))
		}
		var index uint64
		if err := cbor.Unmarshal(parts[0], &index); err != nil {
			return nil, err
		}
		fields, err := decodeFields(parts[1])
		return Constr{Index: index, Fields: fields}, err
	default:
		return nil, fmt.Errorf("unsupported cbor tag %d in plutus data", tag.Number)
	}
}

func decodeFields(content []byte) ([]Data, error) {
	var raw []cbor.RawMessage
	if err := cbor.Unmarshal(content, &raw); err != nil {
		return nil, err
	}
	return decodeItems(raw)
}

func decodeItems(raw []cbor.RawMessage) ([]Data, error) {
	items := make([]Data, 0, len(raw))
	for _, r := range raw {
		d, err := Decode(r)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

func decodeMap(bz []byte) (Data, []byte, error) {
	info := bz[0] & 0x1f
	rest := bz[1:]
	indefinite := info == 31
	var count uint64
	if !indefinite {
		var err error
		count, rest, err = readLength(info, rest)
		if err != nil {
			return nil, nil, err
		}
	}

	m := Map{}
	for i := uint64(0); indefinite || i < count; i++ {
		if indefinite {
			if len(rest) == 0 {
				return nil, nil, fmt.Errorf("unterminated indefinite map")
			}
			if rest[0] == 0xff {
				rest = rest[1:]
				break
			}
		}
		key, next, err := decodeFirst(rest)
		if err != nil {
			return nil, nil, err
		}
		value, next, err := decodeFirst(next)
		if err != nil {
			return nil, nil, err
		}
		m = append(m, Pair{Key: key, Value: value})
		rest = next
	}
	return m, rest, nil
}

func readLength(info byte, bz []byte) (uint64, []byte, error) {
	switch {
	case info < 24:
		return uint64(info), bz, nil
	case info == 24 && len(bz) >= 1:
		return uint64(bz[0]), bz[1:], nil
	case info == 25 && len(bz) >= 2:
		return uint64(binary.BigEndian.Uint16(bz)), bz[2:], nil
	case info == 26 && len(bz) >= 4:
		return uint64(binary.BigEndian.Uint32(bz)), bz[4:], nil
	case info == 27 && len(bz) >= 8:
		return binary.BigEndian.Uint64(bz), bz[8:], nil
	default:
		return 0, nil, fmt.Errorf("malformed cbor length (info %d)", info)
	}
}
