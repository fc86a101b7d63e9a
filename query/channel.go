package query

import (
	"context"
	"sort"

	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/state"
)

func (q *Querier) Channel(ctx context.Context, req *channeltypes.QueryChannelRequest) (*channeltypes.QueryChannelResponse, error) {
	ch, err := q.reader.Channel(ctx, req.PortId, req.ChannelId)
	if err != nil {
		return nil, err
	}
	proof, err := q.prove(ctx, host.ChannelPath(ch.Datum.Port, ch.ID), false)
	if err != nil {
		return nil, err
	}
	end := ch.Datum.State.Channel.ToIBC()
	return &channeltypes.QueryChannelResponse{
		Channel:     &end,
		Proof:       proof,
		ProofHeight: proofHeight(ch.UTXO),
	}, nil
}

// sortedChannels lists every channel ordered by port, then sequence.
func (q *Querier) sortedChannels(ctx context.Context) ([]state.Object[datum.ChannelDatum], error) {
	chans, err := q.reader.Channels(ctx)
	if err != nil {
		return nil, err
	}
	sortObjects(chans, identifier.ChannelIDPrefix)
	sort.SliceStable(chans, func(i, j int) bool { return chans[i].Datum.Port < chans[j].Datum.Port })
	return chans, nil
}

func identifiedChannels(chans []state.Object[datum.ChannelDatum]) []*channeltypes.IdentifiedChannel {
	out := make([]*channeltypes.IdentifiedChannel, 0, len(chans))
	for _, c := range chans {
		ic := channeltypes.NewIdentifiedChannel(c.Datum.Port, c.ID, c.Datum.State.Channel.ToIBC())
		out = append(out, &ic)
	}
	return out
}

func (q *Querier) Channels(ctx context.Context, req *channeltypes.QueryChannelsRequest) (*channeltypes.QueryChannelsResponse, error) {
	chans, err := q.sortedChannels(ctx)
	if err != nil {
		return nil, err
	}
	page, res, err := paginate(chans, req.Pagination)
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryChannelsResponse{
		Channels:   identifiedChannels(page),
		Pagination: res,
		Height:     listHeight(page),
	}, nil
}

// ConnectionChannels lists the channels whose first hop is the connection.
func (q *Querier) ConnectionChannels(ctx context.Context, req *channeltypes.QueryConnectionChannelsRequest) (*channeltypes.QueryConnectionChannelsResponse, error) {
	if _, err := identifier.ParseConnectionID(req.Connection); err != nil {
		return nil, err
	}
	chans, err := q.sortedChannels(ctx)
	if err != nil {
		return nil, err
	}
	matching := chans[:0]
	for _, c := range chans {
		hops := c.Datum.State.Channel.ConnectionHops
		if len(hops) > 0 && hops[0] == req.Connection {
			matching = append(matching, c)
		}
	}
	page, res, err := paginate(matching, req.Pagination)
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryConnectionChannelsResponse{
		Channels:   identifiedChannels(page),
		Pagination: res,
		Height:     listHeight(page),
	}, nil
}
