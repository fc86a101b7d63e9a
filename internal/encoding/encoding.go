// Package encoding holds the uvarint length-prefixed encoding used for
// merkle leaf preimages.
package encoding

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/bits"
	"sync"
)

// bufPool provides temporary buffers to reduce allocations.
var bufPool = &sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// uvarintPool provides temporary slices for uvarint encoding.
var uvarintPool = &sync.Pool{
	New: func() interface{} {
		return &[binary.MaxVarintLen64]byte{}
	},
}

// EncodeUvarint writes a varint-encoded unsigned integer to an io.Writer.
func EncodeUvarint(w io.Writer, u uint64) error {
	buf := uvarintPool.Get().(*[binary.MaxVarintLen64]byte)
	n := binary.PutUvarint(buf[:], u)
	_, err := w.Write(buf[:n])
	uvarintPool.Put(buf)
	return err
}

// EncodeUvarintSize returns the byte size of the given integer as a varint.
func EncodeUvarintSize(u uint64) int {
	if u == 0 {
		return 1
	}
	return (bits.Len64(u) + 6) / 7
}

// EncodeBytes writes a varint length-prefixed byte slice to the writer.
func EncodeBytes(w io.Writer, bz []byte) error {
	if err := EncodeUvarint(w, uint64(len(bz))); err != nil {
		return err
	}
	_, err := w.Write(bz)
	return err
}

// EncodeBytesSize returns the byte size of the given slice including length-prefixing.
func EncodeBytesSize(bz []byte) int {
	return EncodeUvarintSize(uint64(len(bz))) + len(bz)
}

// Concat length-prefixes each part and appends the results after prefix.
func Concat(prefix []byte, parts ...[]byte) []byte {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	size := len(prefix)
	for _, p := range parts {
		size += EncodeBytesSize(p)
	}
	buf.Grow(size)

	buf.Write(prefix)
	for _, p := range parts {
		// writes to a bytes.Buffer cannot fail
		_ = EncodeBytes(buf, p)
	}
	out := make([]byte, size)
	copy(out, buf.Bytes())
	return out
}
