package handler

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibctm "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/types"
)

// CreateClient mints a client token at next_client_sequence holding the
// counterparty client state and its first consensus state.
func (h *Handler) CreateClient(ctx context.Context, msg *clienttypes.MsgCreateClient) (UnsignedTx, error) {
	var (
		tmClient    ibctm.ClientState
		tmConsensus ibctm.ConsensusState
	)
	if err := unpackAny(msg.ClientState, &tmClient, "client_state"); err != nil {
		return UnsignedTx{}, err
	}
	if err := unpackAny(msg.ConsensusState, &tmConsensus, "consensus_state"); err != nil {
		return UnsignedTx{}, err
	}
	if tmClient.LatestHeight.IsZero() {
		return UnsignedTx{}, errorsmod.Wrap(types.ErrInvalidArgument, "client_state: latest height is zero")
	}

	deploy := h.reader.Deployment()
	handler, err := h.reader.Handler(ctx)
	if err != nil {
		return UnsignedTx{}, err
	}
	seq, nextHandler := handler.Datum.State.BumpClient()
	token, err := deploy.ClientToken(seq)
	if err != nil {
		return UnsignedTx{}, err
	}
	clientID := identifier.ClientID(seq)

	cs := datum.ClientStateFromIBC(&tmClient)
	st := datum.ClientDatumState{
		ClientState:     cs,
		ConsensusStates: map[datum.Height]datum.ConsensusState{cs.LatestHeight: datum.ConsensusStateFromIBC(&tmConsensus)},
	}

	entries, err := projected(state.ClientEntries(clientID, st))
	if err != nil {
		return UnsignedTx{}, err
	}

	p := newPlan("CreateClient", msg.Signer)
	p.id = clientID
	p.spend(handler.UTXO, deploy.Handler, datum.HandlerCreateClient)
	p.output(deploy.Handler.Address, deploy.HandlerToken, datum.HandlerDatum{State: nextHandler, Token: deploy.HandlerToken})
	p.mint(token, datum.MintClientRedeemer{HandlerToken: deploy.HandlerToken})
	p.output(deploy.Client.Address, token, datum.ClientDatum{State: st, Token: token})
	p.commit(nil, entries)
	return h.submit(ctx, p)
}

// UpdateClient appends the consensus state carried by a tendermint header.
func (h *Handler) UpdateClient(ctx context.Context, msg *clienttypes.MsgUpdateClient) (UnsignedTx, error) {
	var header ibctm.Header
	if err := unpackAny(msg.ClientMessage, &header, "client_message"); err != nil {
		return UnsignedTx{}, err
	}
	if header.SignedHeader == nil || header.SignedHeader.Header == nil {
		return UnsignedTx{}, errorsmod.Wrap(types.ErrInvalidArgument, "client_message: header without signed header")
	}
	client, err := h.reader.Client(ctx, msg.ClientId)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := client.Datum.State
	if !current.ClientState.FrozenHeight.IsZero() {
		return UnsignedTx{}, errorsmod.Wrapf(types.ErrInternal, "UpdateClient: client %s is frozen at %s", client.ID, current.ClientState.FrozenHeight)
	}

	hh := header.GetHeight()
	height := datum.Height{RevisionNumber: hh.GetRevisionNumber(), RevisionHeight: hh.GetRevisionHeight()}
	next := current.Clone()
	if err := next.AddConsensusState(height, datum.ConsensusStateFromIBC(header.ConsensusState())); err != nil {
		return UnsignedTx{}, err
	}

	old, err := projected(state.ClientEntries(client.ID, current))
	if err != nil {
		return UnsignedTx{}, err
	}
	entries, err := projected(state.ClientEntries(client.ID, next))
	if err != nil {
		return UnsignedTx{}, err
	}

	deploy := h.reader.Deployment()
	p := newPlan("UpdateClient", msg.Signer)
	p.id = client.ID
	p.spend(client.UTXO, deploy.Client, datum.SpendClientRedeemer{Header: msg.ClientMessage.Value})
	p.output(deploy.Client.Address, client.Datum.Token, datum.ClientDatum{State: next, Token: client.Datum.Token})
	p.commit(old, entries)
	return h.submit(ctx, p)
}
