package query

import (
	"encoding/base64"
	"encoding/json"
	"slices"

	errorsmod "cosmossdk.io/errors"
	sdkquery "github.com/cosmos/cosmos-sdk/types/query"

	"github.com/cardano-ibc/gateway/types"
)

// pageKey is the continuation key handed out as next_key.
type pageKey struct {
	Offset uint64 `json:"offset"`
}

func encodePageKey(offset uint64) []byte {
	bz, _ := json.Marshal(pageKey{Offset: offset})
	return []byte(base64.StdEncoding.EncodeToString(bz))
}

func decodePageKey(key []byte) (uint64, error) {
	bz, err := base64.StdEncoding.DecodeString(string(key))
	if err != nil {
		return 0, errorsmod.Wrapf(types.ErrInvalidArgument, "pagination key is not base64: %s", err)
	}
	var k pageKey
	if err := json.Unmarshal(bz, &k); err != nil {
		return 0, errorsmod.Wrapf(types.ErrInvalidArgument, "pagination key: %s", err)
	}
	return k.Offset, nil
}

// paginate slices items, optionally reversed, to [offset, offset+limit).
// The key, when present, overrides the offset. next_key is set only while
// items remain past the page.
func paginate[T any](items []T, req *sdkquery.PageRequest) ([]T, *sdkquery.PageResponse, error) {
	if req == nil || req.Limit == 0 {
		return nil, nil, errorsmod.Wrap(types.ErrInvalidArgument, "pagination limit is required")
	}
	offset := req.Offset
	if len(req.Key) > 0 {
		var err error
		if offset, err = decodePageKey(req.Key); err != nil {
			return nil, nil, err
		}
	}

	ordered := items
	if req.Reverse {
		ordered = slices.Clone(items)
		slices.Reverse(ordered)
	}

	total := uint64(len(ordered))
	res := &sdkquery.PageResponse{Total: total}
	if offset >= total {
		return []T{}, res, nil
	}
	end := offset + req.Limit
	if end < offset || end > total {
		end = total
	}
	if end < total {
		res.NextKey = encodePageKey(end)
	}
	return ordered[offset:end], res, nil
}
