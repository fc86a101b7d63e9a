// Package identifier derives ledger token names for IBC objects and converts
// between wire identifiers ("connection-7") and bare sequences.
//
// A token name is the concatenation
//
//	sha3_256(policyId || name)[:BaseHashSize] || sha3_256(prefix)[:PrefixHashSize] || ascii(sequence)
//
// On-chain validators hard-code the same truncation lengths, so they are
// constants rather than options.
package identifier

import (
	"bytes"
	"fmt"
	"strconv"

	"golang.org/x/crypto/sha3"
)

const (
	// BaseHashSize is the number of bytes kept from the base token hash.
	BaseHashSize = 20
	// PrefixHashSize is the number of bytes kept from the prefix hash.
	PrefixHashSize = 4
	// MaxSequenceSize bounds the decimal sequence suffix.
	MaxSequenceSize = 8
	// MaxTokenNameSize is the ledger limit on asset names.
	MaxTokenNameSize = BaseHashSize + PrefixHashSize + MaxSequenceSize
)

// Token name prefixes used when minting IBC object tokens.
const (
	ClientTokenPrefix     = "ibc_client"
	ConnectionTokenPrefix = "connection"
	ChannelTokenPrefix    = "channel"
)

// AuthToken identifies one piece of IBC state on the ledger.
type AuthToken struct {
	PolicyID []byte
	Name     []byte
}

// Unit returns policyId || name, the ledger's asset unit.
func (t AuthToken) Unit() []byte {
	unit := make([]byte, 0, len(t.PolicyID)+len(t.Name))
	unit = append(unit, t.PolicyID...)
	return append(unit, t.Name...)
}

func (t AuthToken) String() string {
	return fmt.Sprintf("%x.%x", t.PolicyID, t.Name)
}

// Equal reports whether both tokens carry the same policy and name.
func (t AuthToken) Equal(o AuthToken) bool {
	return bytes.Equal(t.PolicyID, o.PolicyID) && bytes.Equal(t.Name, o.Name)
}

func truncatedHash(data []byte, size int) []byte {
	sum := sha3.Sum256(data)
	return sum[:size]
}

// NamePrefix returns the fixed part of every token name derived from base
// and prefix; the sequence suffix follows it.
func NamePrefix(base AuthToken, prefix string) []byte {
	name := make([]byte, 0, MaxTokenNameSize)
	name = append(name, truncatedHash(base.Unit(), BaseHashSize)...)
	return append(name, truncatedHash([]byte(prefix), PrefixHashSize)...)
}

// DeriveTokenName returns the token name of the object with the given
// sequence.
func DeriveTokenName(base AuthToken, prefix string, sequence uint64) ([]byte, error) {
	suffix := strconv.FormatUint(sequence, 10)
	if len(suffix) > MaxSequenceSize {
		return nil, fmt.Errorf("sequence %d exceeds %d bytes", sequence, MaxSequenceSize)
	}
	return append(NamePrefix(base, prefix), suffix...), nil
}

// ParseSequence recovers the sequence from a token name. It reports false
// when the name was not derived from base and prefix, which callers treat as
// "not this object".
func ParseSequence(tokenName []byte, base AuthToken, prefix string) (uint64, bool) {
	head := NamePrefix(base, prefix)
	if !bytes.HasPrefix(tokenName, head) {
		return 0, false
	}
	suffix := tokenName[len(head):]
	if len(suffix) == 0 || len(suffix) > MaxSequenceSize {
		return 0, false
	}
	seq, err := strconv.ParseUint(string(suffix), 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
