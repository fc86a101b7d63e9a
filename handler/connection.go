package handler

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
	ibctm "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/types"
)

// HostPrefix is the commitment prefix counterparties prove our paths under.
var HostPrefix = []byte("ibc")

func commitmentPrefix() commitmenttypes.MerklePrefix {
	return commitmenttypes.NewMerklePrefix(HostPrefix)
}

// requireClient resolves a client named by a message; a missing client is
// the caller's mistake.
func (h *Handler) requireClient(ctx context.Context, clientID string) (state.Object[datum.ClientDatum], error) {
	client, err := h.reader.Client(ctx, clientID)
	if errorsmod.IsOf(err, types.ErrNotFound) {
		return client, errorsmod.Wrapf(types.ErrInvalidArgument, "no client token for %s", clientID)
	}
	return client, err
}

// requireProofHeight checks the client holds a consensus state at the
// proof height and returns it.
func requireProofHeight(client state.Object[datum.ClientDatum], h datum.Height) (datum.ConsensusState, error) {
	cs, ok := client.Datum.State.ConsensusStates[h]
	if !ok {
		return cs, errorsmod.Wrapf(types.ErrNotFound, "client %s has no consensus state at proof height %s", client.ID, h)
	}
	return cs, nil
}

func (h *Handler) ConnOpenInit(ctx context.Context, msg *connectiontypes.MsgConnectionOpenInit) (UnsignedTx, error) {
	client, err := h.requireClient(ctx, msg.ClientId)
	if err != nil {
		return UnsignedTx{}, err
	}
	versions := datum.DefaultVersions()
	if msg.Version != nil {
		versions = datum.VersionsFromIBC([]*connectiontypes.Version{msg.Version})
	}
	end := datum.ConnectionEnd{
		ClientID: msg.ClientId,
		Versions: versions,
		State:    datum.ConnStateInit,
		Counterparty: datum.ConnectionCounterparty{
			ClientID: msg.Counterparty.ClientId,
			Prefix:   msg.Counterparty.Prefix.KeyPrefix,
		},
		DelayPeriod: msg.DelayPeriod,
	}
	return h.openConnection(ctx, "ConnectionOpenInit", msg.Signer, client, end, datum.HandlerConnOpenInit,
		func(handlerToken datum.AuthToken) datum.Redeemer {
			return datum.MintConnectionRedeemer{Kind: datum.MintConnOpenInit, HandlerToken: handlerToken}
		})
}

func (h *Handler) ConnOpenTry(ctx context.Context, msg *connectiontypes.MsgConnectionOpenTry) (UnsignedTx, error) {
	var counterpartyClient ibctm.ClientState
	if err := unpackAny(msg.ClientState, &counterpartyClient, "client_state"); err != nil {
		return UnsignedTx{}, err
	}
	if len(msg.ProofInit) == 0 || len(msg.ProofClient) == 0 {
		return UnsignedTx{}, errorsmod.Wrap(types.ErrInvalidArgument, "proof_init and proof_client are required")
	}
	client, err := h.requireClient(ctx, msg.ClientId)
	if err != nil {
		return UnsignedTx{}, err
	}
	versions := datum.VersionsFromIBC(msg.CounterpartyVersions)
	if len(versions) == 0 {
		versions = datum.DefaultVersions()
	}
	end := datum.ConnectionEnd{
		ClientID: msg.ClientId,
		Versions: versions,
		State:    datum.ConnStateTryOpen,
		Counterparty: datum.ConnectionCounterparty{
			ClientID:     msg.Counterparty.ClientId,
			ConnectionID: msg.Counterparty.ConnectionId,
			Prefix:       msg.Counterparty.Prefix.KeyPrefix,
		},
		DelayPeriod: msg.DelayPeriod,
	}
	proofHeight := datum.HeightFromIBC(msg.ProofHeight)
	return h.openConnection(ctx, "ConnectionOpenTry", msg.Signer, client, end, datum.HandlerConnOpenTry,
		func(handlerToken datum.AuthToken) datum.Redeemer {
			return datum.MintConnectionRedeemer{
				Kind:                    datum.MintConnOpenTry,
				HandlerToken:            handlerToken,
				CounterpartyClientState: datum.ClientStateFromIBC(&counterpartyClient),
				ProofInit:               msg.ProofInit,
				ProofClient:             msg.ProofClient,
				ProofHeight:             proofHeight,
			}
		})
}

// openConnection allocates next_connection_sequence and mints the token of
// a new connection holding end.
func (h *Handler) openConnection(
	ctx context.Context,
	op, signer string,
	client state.Object[datum.ClientDatum],
	end datum.ConnectionEnd,
	handlerOp datum.HandlerOperator,
	mintRedeemer func(datum.AuthToken) datum.Redeemer,
) (UnsignedTx, error) {
	deploy := h.reader.Deployment()
	handler, err := h.reader.Handler(ctx)
	if err != nil {
		return UnsignedTx{}, err
	}
	seq, nextHandler := handler.Datum.State.BumpConnection()
	token, err := deploy.ConnectionToken(seq)
	if err != nil {
		return UnsignedTx{}, err
	}
	connectionID := identifier.ConnectionID(seq)
	entries, err := projected(state.ConnectionEntries(connectionID, end))
	if err != nil {
		return UnsignedTx{}, err
	}

	p := newPlan(op, signer)
	p.id = connectionID
	p.reference(client.UTXO)
	p.spend(handler.UTXO, deploy.Handler, handlerOp)
	p.output(deploy.Handler.Address, deploy.HandlerToken, datum.HandlerDatum{State: nextHandler, Token: deploy.HandlerToken})
	p.mint(token, mintRedeemer(deploy.HandlerToken))
	p.output(deploy.Connection.Address, token, datum.ConnectionDatum{State: end, Token: token})
	p.commit(nil, entries)
	return h.submit(ctx, p)
}

// ConnOpenAck admits connections in Init or TryOpen.
func (h *Handler) ConnOpenAck(ctx context.Context, msg *connectiontypes.MsgConnectionOpenAck) (UnsignedTx, error) {
	const op = "ConnectionOpenAck"
	conn, err := h.reader.Connection(ctx, msg.ConnectionId)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := conn.Datum.State
	if current.State != datum.ConnStateInit && current.State != datum.ConnStateTryOpen {
		return UnsignedTx{}, stateError(op, "connection", conn.ID, "Init or TryOpen", current.State)
	}
	if msg.CounterpartyConnectionId == "" {
		return UnsignedTx{}, errorsmod.Wrap(types.ErrInvalidArgument, "counterparty_connection_id is required")
	}
	var counterpartyClient ibctm.ClientState
	if err := unpackAny(msg.ClientState, &counterpartyClient, "client_state"); err != nil {
		return UnsignedTx{}, err
	}
	client, err := h.reader.Client(ctx, current.ClientID)
	if err != nil {
		return UnsignedTx{}, err
	}
	proofHeight := datum.HeightFromIBC(msg.ProofHeight)
	consensus, err := requireProofHeight(client, proofHeight)
	if err != nil {
		return UnsignedTx{}, err
	}

	next := current
	next.State = datum.ConnStateOpen
	next.Counterparty.ConnectionID = msg.CounterpartyConnectionId
	if msg.Version != nil {
		next.Versions = datum.VersionsFromIBC([]*connectiontypes.Version{msg.Version})
	}

	// what the counterparty must hold for its end of this connection
	expected := connectiontypes.ConnectionEnd{
		ClientId: current.Counterparty.ClientID,
		Versions: next.ToIBC().Versions,
		State:    connectiontypes.TRYOPEN,
		Counterparty: connectiontypes.NewCounterparty(
			current.ClientID, conn.ID, commitmentPrefix(),
		),
		DelayPeriod: current.DelayPeriod,
	}
	expectedBz, err := expected.Marshal()
	if err != nil {
		return UnsignedTx{}, errorsmod.Wrap(types.ErrInternal, err.Error())
	}
	prefix := string(current.Counterparty.Prefix)
	verify := datum.BatchVerifyMembership{
		{
			Root:        consensus.Root,
			ProofHeight: proofHeight,
			Proof:       msg.ProofTry,
			Path:        []string{prefix, host.ConnectionPath(msg.CounterpartyConnectionId)},
			Value:       expectedBz,
		},
		{
			Root:        consensus.Root,
			ProofHeight: proofHeight,
			Proof:       msg.ProofClient,
			Path:        []string{prefix, host.FullClientStatePath(current.Counterparty.ClientID)},
			Value:       msg.ClientState.Value,
		},
	}

	return h.advanceConnection(ctx, op, msg.Signer, conn, client, next, datum.SpendConnectionRedeemer{
		Kind:                    datum.SpendConnOpenAck,
		CounterpartyClientState: datum.ClientStateFromIBC(&counterpartyClient),
		ProofTry:                msg.ProofTry,
		ProofClient:             msg.ProofClient,
		ProofHeight:             proofHeight,
	}, verify)
}

// ConnOpenConfirm admits connections in Init only.
func (h *Handler) ConnOpenConfirm(ctx context.Context, msg *connectiontypes.MsgConnectionOpenConfirm) (UnsignedTx, error) {
	const op = "ConnectionOpenConfirm"
	conn, err := h.reader.Connection(ctx, msg.ConnectionId)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := conn.Datum.State
	if current.State != datum.ConnStateInit {
		return UnsignedTx{}, stateError(op, "connection", conn.ID, datum.ConnStateInit.String(), current.State)
	}
	client, err := h.reader.Client(ctx, current.ClientID)
	if err != nil {
		return UnsignedTx{}, err
	}
	next := current
	next.State = datum.ConnStateOpen
	return h.advanceConnection(ctx, op, msg.Signer, conn, client, next, datum.SpendConnectionRedeemer{
		Kind:        datum.SpendConnOpenConfirm,
		ProofAck:    msg.ProofAck,
		ProofHeight: datum.HeightFromIBC(msg.ProofHeight),
	}, nil)
}

func (h *Handler) advanceConnection(
	ctx context.Context,
	op, signer string,
	conn state.Object[datum.ConnectionDatum],
	client state.Object[datum.ClientDatum],
	next datum.ConnectionEnd,
	redeemer datum.SpendConnectionRedeemer,
	verify datum.BatchVerifyMembership,
) (UnsignedTx, error) {
	old, err := projected(state.ConnectionEntries(conn.ID, conn.Datum.State))
	if err != nil {
		return UnsignedTx{}, err
	}
	entries, err := projected(state.ConnectionEntries(conn.ID, next))
	if err != nil {
		return UnsignedTx{}, err
	}
	deploy := h.reader.Deployment()
	token := conn.Datum.Token

	p := newPlan(op, signer)
	p.id = conn.ID
	p.reference(client.UTXO)
	p.spend(conn.UTXO, deploy.Connection, redeemer)
	p.output(deploy.Connection.Address, token, datum.ConnectionDatum{State: next, Token: token})
	if len(verify) > 0 {
		p.mint(datum.AuthToken{PolicyID: deploy.VerifyProofPolicy}, verify)
	}
	p.commit(old, entries)
	return h.submit(ctx, p)
}
