package datum

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	bz, err := hex.DecodeString(s)
	require.NoError(t, err)
	return bz
}

func TestEncodeConstrTags(t *testing.T) {
	testCases := []struct {
		name string
		data Data
		hex  string
	}{
		{"empty constr 0", NewConstr(0), "d87980"},
		{"constr 1 with int", NewConstr(1, Int(1)), "d87a8101"},
		{"constr 6", NewConstr(6), "d87f80"},
		{"constr 7 uses extended range", NewConstr(7), "d9050080"},
		{"constr 127", NewConstr(127), "d9057880"},
		{"constr 128 uses general form", NewConstr(128), "d86682188080"},
		{"auth token", EncodeAuthToken(AuthToken{PolicyID: []byte{0xaa, 0xbb}, Name: []byte{0xcc}}), "d8798242aabb41cc"},
		{"bool true", Bool(true), "d87a80"},
		{"map", Map{{Key: Int(1), Value: []byte{0x9a}}}, "a101419a"},
		{"empty list", List{}, "80"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bz, err := Encode(tc.data)
			require.NoError(t, err)
			require.Equal(t, tc.hex, hex.EncodeToString(bz))

			decoded, err := Decode(bz)
			require.NoError(t, err)
			again, err := Encode(decoded)
			require.NoError(t, err)
			require.Equal(t, bz, again)
		})
	}
}

func TestEncodeChunksLongBytes(t *testing.T) {
	long := bytes.Repeat([]byte{0x42}, 100)
	bz, err := Encode(long)
	require.NoError(t, err)
	require.Equal(t, byte(0x5f), bz[0])
	require.Equal(t, []byte{0x58, 0x40}, bz[1:3])
	require.Equal(t, byte(0xff), bz[len(bz)-1])

	decoded, err := Decode(bz)
	require.NoError(t, err)
	require.Equal(t, long, decoded)
}

func TestBignumRoundTrip(t *testing.T) {
	n, ok := new(big.Int).SetString("18446744073709551616", 10)
	require.True(t, ok)
	bz, err := Encode(NewConstr(0, n))
	require.NoError(t, err)

	decoded, err := Decode(bz)
	require.NoError(t, err)
	c, ok := decoded.(Constr)
	require.True(t, ok)
	require.Len(t, c.Fields, 1)
	require.Equal(t, 0, n.Cmp(c.Fields[0].(*big.Int)))

	_, err = asUint(c.Fields[0], "value")
	require.Error(t, err)
}

func TestDecodeIndefiniteContainers(t *testing.T) {
	// constr 0 over an indefinite array, and an indefinite map
	d, err := Decode(mustHex(t, "d8799f0102ff"))
	require.NoError(t, err)
	c := d.(Constr)
	require.Len(t, c.Fields, 2)

	d, err = Decode(mustHex(t, "bf0141aa0241bbff"))
	require.NoError(t, err)
	m := d.(Map)
	require.Len(t, m, 2)
	require.Equal(t, []byte{0xbb}, m[1].Value)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)

	_, err = Decode(mustHex(t, "d8798000"))
	require.ErrorContains(t, err, "trailing")

	_, err = Decode(mustHex(t, "f5"))
	require.Error(t, err)

	_, err = Decode(mustHex(t, "d90100"))
	require.Error(t, err)
}
