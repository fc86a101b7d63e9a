package query

import (
	"context"
	"sort"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	sdkquery "github.com/cosmos/cosmos-sdk/types/query"
	"golang.org/x/sync/errgroup"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/height"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/types"
)

func requireHeight(h uint64) error {
	if h == 0 {
		return errorsmod.Wrap(types.ErrInvalidArgument, "height is required")
	}
	return nil
}

func blockInfo(b ledger.Block) BlockInfo {
	return BlockInfo{
		Height:  b.Height,
		Hash:    b.Hash,
		Slot:    b.Slot,
		Epoch:   b.Epoch,
		Time:    b.Time.Unix(),
		TxCount: b.TxCount,
	}
}

func (q *Querier) BlockData(ctx context.Context, req *BlockDataRequest) (*BlockDataResponse, error) {
	if err := requireHeight(req.Height); err != nil {
		return nil, err
	}
	b, err := q.reader.Index().BlockByHeight(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	return &BlockDataResponse{Block: blockInfo(b)}, nil
}

func txResult(tx ledger.Tx, events []abci.Event) TxResult {
	return TxResult{
		Hash:   tx.Hash,
		Height: tx.BlockNo,
		Fee:    tx.Fee,
		Result: abci.ExecTxResult{Events: events},
	}
}

// BlockResults collects the IBC events of every transaction in a block and
// the stake-pool changes it carries. The four lookups run concurrently.
func (q *Querier) BlockResults(ctx context.Context, req *BlockResultsRequest) (*BlockResultsResponse, error) {
	if err := requireHeight(req.Height); err != nil {
		return nil, err
	}
	index := q.reader.Index()
	if _, err := index.BlockByHeight(ctx, req.Height); err != nil {
		return nil, err
	}

	var (
		touched state.Touched
		pools   []ledger.PoolUpdate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		touched.Clients, err = q.reader.ClientsAtBlock(gctx, req.Height)
		return err
	})
	g.Go(func() (err error) {
		touched.Connections, err = q.reader.ConnectionsAtBlock(gctx, req.Height)
		return err
	})
	g.Go(func() (err error) {
		touched.Channels, err = q.reader.ChannelsAtBlock(gctx, req.Height)
		return err
	})
	g.Go(func() (err error) {
		pools, err = index.PoolUpdatesAtBlock(gctx, req.Height)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hashes := txHashes(touched)
	results := make([]TxResult, 0, len(hashes))
	for _, hash := range hashes {
		tx, err := index.TxByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		events, err := q.txEvents(tx, touched)
		if err != nil {
			return nil, err
		}
		results = append(results, txResult(tx, events))
	}

	poolEvents := make([]abci.Event, 0, len(pools))
	for _, u := range pools {
		poolEvents = append(poolEvents, poolEvent(u))
	}
	return &BlockResultsResponse{
		Height:     height.FromBlock(req.Height),
		TxResults:  results,
		PoolEvents: poolEvents,
	}, nil
}

// txHashes lists the distinct transactions that wrote touched, sorted.
func txHashes(touched state.Touched) []string {
	seen := make(map[string]struct{})
	for _, c := range touched.Clients {
		seen[c.UTXO.TxHash] = struct{}{}
	}
	for _, c := range touched.Connections {
		seen[c.UTXO.TxHash] = struct{}{}
	}
	for _, c := range touched.Channels {
		seen[c.UTXO.TxHash] = struct{}{}
	}
	hashes := make([]string, 0, len(seen))
	for h := range seen {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return hashes
}

func (q *Querier) TransactionByHash(ctx context.Context, req *TransactionByHashRequest) (*TransactionByHashResponse, error) {
	if req.Hash == "" {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "hash is required")
	}
	tx, err := q.reader.Index().TxByHash(ctx, req.Hash)
	if err != nil {
		return nil, err
	}
	touched, err := q.reader.Touched(tx.Outputs)
	if err != nil {
		return nil, err
	}
	events, err := q.txEvents(tx, touched)
	if err != nil {
		return nil, err
	}
	return &TransactionByHashResponse{Tx: txResult(tx, events)}, nil
}

// BlockSearch finds the blocks in which a packet was sent from
// PacketSrcChannel or, when that is empty, received on PacketDstChannel.
func (q *Querier) BlockSearch(ctx context.Context, req *BlockSearchRequest) (*BlockSearchResponse, error) {
	channelID, kind := req.PacketSrcChannel, datum.SpendSendPacket
	if channelID == "" {
		channelID, kind = req.PacketDstChannel, datum.SpendRecvPacket
	}
	if channelID == "" {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "packet_src_channel or packet_dst_channel is required")
	}
	if err := requireSequence(req.PacketSequence); err != nil {
		return nil, err
	}
	history, err := q.reader.ChannelHistory(ctx, channelID)
	if err != nil {
		return nil, err
	}

	index := q.reader.Index()
	script := q.reader.Deployment().Channel.ScriptHash
	var blocks []uint64
	for _, h := range history {
		tx, err := index.TxByHash(ctx, h.UTXO.TxHash)
		if err != nil {
			return nil, err
		}
		bz, ok := tx.Redeemer(ledger.PurposeSpend, script)
		if !ok {
			continue
		}
		r, err := datum.DecodeSpendChannelRedeemer(bz)
		if err != nil {
			return nil, err
		}
		if r.Kind == kind && r.Packet.Sequence == req.PacketSequence {
			blocks = append(blocks, tx.BlockNo)
		}
	}

	page := max(req.Page, 1)
	window, res, err := paginate(blocks, &sdkquery.PageRequest{Offset: (page - 1) * req.Limit, Limit: req.Limit})
	if err != nil {
		return nil, err
	}
	out := make([]BlockInfo, 0, len(window))
	for _, n := range window {
		b, err := index.BlockByHeight(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, blockInfo(b))
	}
	return &BlockSearchResponse{Blocks: out, TotalCount: uint64(len(blocks)), Pagination: res}, nil
}
