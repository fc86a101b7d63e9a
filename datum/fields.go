package datum

import (
	"math/big"
	"sort"

	errorsmod "cosmossdk.io/errors"

	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/types"
)

func fields(d Data, index uint64, arity int, what string) ([]Data, error) {
	c, ok := d.(Constr)
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrDecode, "%s: expected constructor, got %T", what, d)
	}
	if c.Index != index {
		return nil, errorsmod.Wrapf(types.ErrDecode, "%s: expected constructor %d, got %d", what, index, c.Index)
	}
	if len(c.Fields) != arity {
		return nil, errorsmod.Wrapf(types.ErrDecode, "%s: expected %d fields, got %d", what, arity, len(c.Fields))
	}
	return c.Fields, nil
}

func constrIndex(d Data, what string) (uint64, []Data, error) {
	c, ok := d.(Constr)
	if !ok {
		return 0, nil, errorsmod.Wrapf(types.ErrDecode, "%s: expected constructor, got %T", what, d)
	}
	return c.Index, c.Fields, nil
}

func asBytes(d Data, what string) ([]byte, error) {
	b, ok := d.([]byte)
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrDecode, "%s: expected bytes, got %T", what, d)
	}
	return b, nil
}

func asString(d Data, what string) (string, error) {
	b, err := asBytes(d, what)
	return string(b), err
}

func asUint(d Data, what string) (uint64, error) {
	n, ok := d.(*big.Int)
	if !ok {
		return 0, errorsmod.Wrapf(types.ErrDecode, "%s: expected integer, got %T", what, d)
	}
	if !n.IsUint64() {
		return 0, errorsmod.Wrapf(types.ErrDecode, "%s: %s out of uint64 range", what, n)
	}
	return n.Uint64(), nil
}

func asList(d Data, what string) ([]Data, error) {
	switch l := d.(type) {
	case List:
		return l, nil
	case []Data:
		return l, nil
	default:
		return nil, errorsmod.Wrapf(types.ErrDecode, "%s: expected list, got %T", what, d)
	}
}

func asMap(d Data, what string) (Map, error) {
	m, ok := d.(Map)
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrDecode, "%s: expected map, got %T", what, d)
	}
	return m, nil
}

func asBool(d Data, what string) (bool, error) {
	idx, fs, err := constrIndex(d, what)
	if err != nil {
		return false, err
	}
	if idx > 1 || len(fs) != 0 {
		return false, errorsmod.Wrapf(types.ErrDecode, "%s: invalid boolean constructor %d", what, idx)
	}
	return idx == 1, nil
}

func asStrings(d Data, what string) ([]string, error) {
	items, err := asList(d, what)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := asString(item, what)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func stringList(ss []string) List {
	l := make(List, 0, len(ss))
	for _, s := range ss {
		l = append(l, []byte(s))
	}
	return l
}

// EncodeAuthToken renders a token as Constr 0 [policy_id, name].
func EncodeAuthToken(t identifier.AuthToken) Constr {
	return NewConstr(0, nonNil(t.PolicyID), nonNil(t.Name))
}

// DecodeAuthToken is the inverse of EncodeAuthToken.
func DecodeAuthToken(d Data) (identifier.AuthToken, error) {
	fs, err := fields(d, 0, 2, "auth token")
	if err != nil {
		return identifier.AuthToken{}, err
	}
	policy, err := asBytes(fs[0], "auth token policy")
	if err != nil {
		return identifier.AuthToken{}, err
	}
	name, err := asBytes(fs[1], "auth token name")
	if err != nil {
		return identifier.AuthToken{}, err
	}
	return identifier.AuthToken{PolicyID: policy, Name: name}, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
