package query

import (
	"context"
	"encoding/hex"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/height"
	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/types"
)

func (q *Querier) ClientState(ctx context.Context, req *clienttypes.QueryClientStateRequest) (*clienttypes.QueryClientStateResponse, error) {
	client, err := q.reader.Client(ctx, req.ClientId)
	if err != nil {
		return nil, err
	}
	cs, err := clienttypes.PackClientState(client.Datum.State.ClientState.ToIBC())
	if err != nil {
		return nil, internal(err, "packing client state of %s", client.ID)
	}
	proof, err := q.prove(ctx, host.FullClientStatePath(client.ID), false)
	if err != nil {
		return nil, err
	}
	return &clienttypes.QueryClientStateResponse{
		ClientState: cs,
		Proof:       proof,
		ProofHeight: proofHeight(client.UTXO),
	}, nil
}

func (q *Querier) ClientStates(ctx context.Context, req *clienttypes.QueryClientStatesRequest) (*clienttypes.QueryClientStatesResponse, error) {
	clients, err := q.reader.Clients(ctx)
	if err != nil {
		return nil, err
	}
	sortObjects(clients, identifier.ClientIDPrefix)
	page, res, err := paginate(clients, req.Pagination)
	if err != nil {
		return nil, err
	}
	out := make(clienttypes.IdentifiedClientStates, 0, len(page))
	for _, c := range page {
		out = append(out, clienttypes.NewIdentifiedClientState(c.ID, c.Datum.State.ClientState.ToIBC()))
	}
	return &clienttypes.QueryClientStatesResponse{ClientStates: out, Pagination: res}, nil
}

// ConsensusState returns the consensus state at the requested height. A
// zero height, or LatestHeight, selects the client's latest height.
func (q *Querier) ConsensusState(ctx context.Context, req *clienttypes.QueryConsensusStateRequest) (*clienttypes.QueryConsensusStateResponse, error) {
	client, err := q.reader.Client(ctx, req.ClientId)
	if err != nil {
		return nil, err
	}
	h := clienttypes.NewHeight(req.RevisionNumber, req.RevisionHeight)
	if req.LatestHeight {
		h = clienttypes.ZeroHeight()
	}
	h = height.ResolveClientHeight(client.Datum.State.ClientState, h)

	cs, ok := client.Datum.State.ConsensusStates[datum.HeightFromIBC(h)]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrNotFound, "client %s has no consensus state at height %s", client.ID, h)
	}
	packed, err := clienttypes.PackConsensusState(cs.ToIBC())
	if err != nil {
		return nil, internal(err, "packing consensus state of %s", client.ID)
	}
	proof, err := q.prove(ctx, host.FullConsensusStatePath(client.ID, h), false)
	if err != nil {
		return nil, err
	}
	return &clienttypes.QueryConsensusStateResponse{
		ConsensusState: packed,
		Proof:          proof,
		ProofHeight:    proofHeight(client.UTXO),
	}, nil
}

// LatestHeight is the height of the latest certified snapshot.
func (q *Querier) LatestHeight(ctx context.Context, _ *LatestHeightRequest) (*LatestHeightResponse, error) {
	h, err := q.heights.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return &LatestHeightResponse{Height: h.RevisionHeight}, nil
}

// NewClient describes the client a counterparty creates to track this
// ledger, bound to the latest certified snapshot and the root committed as
// of that snapshot's block.
func (q *Querier) NewClient(ctx context.Context, _ *NewClientRequest) (*NewClientResponse, error) {
	snapshot, err := q.heights.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	root, err := q.reader.CommittedRootAt(ctx, snapshot.BlockNumber)
	if err != nil {
		return nil, err
	}
	deploy := q.reader.Deployment()
	return &NewClientResponse{
		ClientState: LedgerClientState{
			ChainID:      q.chainID,
			LatestHeight: height.FromBlock(snapshot.BlockNumber),
			CurrentEpoch: snapshot.Epoch,
			HostStateToken: TokenJSON{
				PolicyID: hex.EncodeToString(deploy.HostStateToken.PolicyID),
				Name:     hex.EncodeToString(deploy.HostStateToken.Name),
			},
		},
		ConsensusState: LedgerConsensusState{
			Timestamp:       uint64(snapshot.CreatedAt.UnixNano()),
			BlockHash:       snapshot.BlockHash,
			CertificateHash: snapshot.CertificateHash,
			Root:            hex.EncodeToString(root),
		},
	}, nil
}
