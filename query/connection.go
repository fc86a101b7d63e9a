package query

import (
	"context"

	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"

	"github.com/cardano-ibc/gateway/identifier"
)

func (q *Querier) Connection(ctx context.Context, req *connectiontypes.QueryConnectionRequest) (*connectiontypes.QueryConnectionResponse, error) {
	conn, err := q.reader.Connection(ctx, req.ConnectionId)
	if err != nil {
		return nil, err
	}
	proof, err := q.prove(ctx, host.ConnectionPath(conn.ID), false)
	if err != nil {
		return nil, err
	}
	end := conn.Datum.State.ToIBC()
	return &connectiontypes.QueryConnectionResponse{
		Connection:  &end,
		Proof:       proof,
		ProofHeight: proofHeight(conn.UTXO),
	}, nil
}

// Connections lists connections in sequence order.
func (q *Querier) Connections(ctx context.Context, req *connectiontypes.QueryConnectionsRequest) (*connectiontypes.QueryConnectionsResponse, error) {
	conns, err := q.reader.Connections(ctx)
	if err != nil {
		return nil, err
	}
	sortObjects(conns, identifier.ConnectionIDPrefix)
	page, res, err := paginate(conns, req.Pagination)
	if err != nil {
		return nil, err
	}
	out := make([]*connectiontypes.IdentifiedConnection, 0, len(page))
	for _, c := range page {
		ic := connectiontypes.NewIdentifiedConnection(c.ID, c.Datum.State.ToIBC())
		out = append(out, &ic)
	}
	return &connectiontypes.QueryConnectionsResponse{
		Connections: out,
		Pagination:  res,
		Height:      listHeight(page),
	}, nil
}
