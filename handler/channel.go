package handler

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/types"
)

// boundModule checks portID is bound in the handler and has a module.
func (h *Handler) boundModule(handler datum.HandlerState, portID string) (state.Module, error) {
	port, err := identifier.ParsePortID(portID)
	if err != nil {
		return state.Module{}, err
	}
	if !handler.IsPortBound(port) {
		return state.Module{}, errorsmod.Wrapf(types.ErrInvalidArgument, "port %s is not bound", portID)
	}
	return h.reader.Deployment().Module(portID)
}

func validateChannel(ch channeltypes.Channel) (datum.ChannelOrder, error) {
	if len(ch.ConnectionHops) != 1 {
		return 0, errorsmod.Wrapf(types.ErrInvalidArgument, "expected exactly one connection hop, got %d", len(ch.ConnectionHops))
	}
	order := datum.OrderFromIBC(ch.Ordering)
	if order == datum.OrderNone {
		return 0, errorsmod.Wrapf(types.ErrInvalidArgument, "unsupported channel ordering %s", ch.Ordering)
	}
	return order, nil
}

func (h *Handler) ChanOpenInit(ctx context.Context, msg *channeltypes.MsgChannelOpenInit) (UnsignedTx, error) {
	order, err := validateChannel(msg.Channel)
	if err != nil {
		return UnsignedTx{}, err
	}
	ch := datum.Channel{
		State:          datum.ChanStateInit,
		Ordering:       order,
		Counterparty:   datum.ChannelCounterparty{PortID: msg.Channel.Counterparty.PortId},
		ConnectionHops: msg.Channel.ConnectionHops,
		Version:        msg.Channel.Version,
	}
	return h.openChannel(ctx, "ChannelOpenInit", msg.Signer, msg.PortId, ch, datum.HandlerChanOpenInit, datum.OnChanOpenInit,
		func(handlerToken datum.AuthToken) datum.Redeemer {
			return datum.MintChannelRedeemer{Kind: datum.MintChanOpenInit, HandlerToken: handlerToken}
		})
}

func (h *Handler) ChanOpenTry(ctx context.Context, msg *channeltypes.MsgChannelOpenTry) (UnsignedTx, error) {
	order, err := validateChannel(msg.Channel)
	if err != nil {
		return UnsignedTx{}, err
	}
	if msg.Channel.Counterparty.ChannelId == "" {
		return UnsignedTx{}, errorsmod.Wrap(types.ErrInvalidArgument, "counterparty channel id is required")
	}
	ch := datum.Channel{
		State:    datum.ChanStateTryOpen,
		Ordering: order,
		Counterparty: datum.ChannelCounterparty{
			PortID:    msg.Channel.Counterparty.PortId,
			ChannelID: msg.Channel.Counterparty.ChannelId,
		},
		ConnectionHops: msg.Channel.ConnectionHops,
		Version:        msg.Channel.Version,
	}
	return h.openChannel(ctx, "ChannelOpenTry", msg.Signer, msg.PortId, ch, datum.HandlerChanOpenTry, datum.OnChanOpenTry,
		func(handlerToken datum.AuthToken) datum.Redeemer {
			return datum.MintChannelRedeemer{
				Kind:                datum.MintChanOpenTry,
				HandlerToken:        handlerToken,
				CounterpartyVersion: msg.CounterpartyVersion,
				ProofInit:           msg.ProofInit,
				ProofHeight:         datum.HeightFromIBC(msg.ProofHeight),
			}
		})
}

// openChannel allocates next_channel_sequence, mints the channel token and
// runs the bound module's open callback.
func (h *Handler) openChannel(
	ctx context.Context,
	op, signer, portID string,
	ch datum.Channel,
	handlerOp datum.HandlerOperator,
	callback datum.CallbackKind,
	mintRedeemer func(datum.AuthToken) datum.Redeemer,
) (UnsignedTx, error) {
	deploy := h.reader.Deployment()
	handler, err := h.reader.Handler(ctx)
	if err != nil {
		return UnsignedTx{}, err
	}
	module, err := h.boundModule(handler.Datum.State, portID)
	if err != nil {
		return UnsignedTx{}, err
	}
	conn, err := h.reader.Connection(ctx, ch.ConnectionHops[0])
	if err != nil {
		return UnsignedTx{}, err
	}
	_, moduleState, err := h.reader.Module(ctx, portID)
	if err != nil {
		return UnsignedTx{}, err
	}

	seq, nextHandler := handler.Datum.State.BumpChannel()
	token, err := deploy.ChannelToken(seq)
	if err != nil {
		return UnsignedTx{}, err
	}
	channelID := identifier.ChannelID(seq)
	st := datum.NewChannelDatumState(ch)
	entries, err := projected(state.ChannelEntries(portID, channelID, st))
	if err != nil {
		return UnsignedTx{}, err
	}

	p := newPlan(op, signer)
	p.id = channelID
	p.reference(conn.UTXO)
	p.spend(handler.UTXO, deploy.Handler, handlerOp)
	p.output(deploy.Handler.Address, deploy.HandlerToken, datum.HandlerDatum{State: nextHandler, Token: deploy.HandlerToken})
	p.mint(token, mintRedeemer(deploy.HandlerToken))
	p.output(deploy.Channel.Address, token, datum.ChannelDatum{State: st, Port: portID, Token: token})
	p.spend(moduleState.UTXO, module.Validator, datum.ModuleCallback{Kind: callback, ChannelID: channelID})
	p.output(module.Address, module.Token, moduleState.Datum.WithChannel(channelID, false))
	p.commit(nil, entries)
	return h.submit(ctx, p)
}

// ChanOpenAck admits channels in Init only.
func (h *Handler) ChanOpenAck(ctx context.Context, msg *channeltypes.MsgChannelOpenAck) (UnsignedTx, error) {
	const op = "ChannelOpenAck"
	ch, err := h.reader.Channel(ctx, msg.PortId, msg.ChannelId)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := ch.Datum.State
	if current.Channel.State != datum.ChanStateInit {
		return UnsignedTx{}, stateError(op, "channel", ch.ID, datum.ChanStateInit.String(), current.Channel.State)
	}
	if msg.CounterpartyChannelId == "" {
		return UnsignedTx{}, errorsmod.Wrap(types.ErrInvalidArgument, "counterparty_channel_id is required")
	}
	next := current.Clone()
	next.Channel.State = datum.ChanStateOpen
	next.Channel.Counterparty.ChannelID = msg.CounterpartyChannelId
	next.Channel.Version = msg.CounterpartyVersion
	opened := true
	return h.advanceChannel(ctx, channelStep{
		op:      op,
		signer:  msg.Signer,
		channel: ch,
		next:    next,
		redeemer: datum.SpendChannelRedeemer{
			Kind:                datum.SpendChanOpenAck,
			CounterpartyVersion: msg.CounterpartyVersion,
			Proof:               msg.ProofTry,
			ProofHeight:         datum.HeightFromIBC(msg.ProofHeight),
		},
		callback: &datum.ModuleCallback{Kind: datum.OnChanOpenAck, ChannelID: ch.ID},
		opened:   &opened,
	})
}

// ChanOpenConfirm admits channels in TryOpen only.
func (h *Handler) ChanOpenConfirm(ctx context.Context, msg *channeltypes.MsgChannelOpenConfirm) (UnsignedTx, error) {
	const op = "ChannelOpenConfirm"
	ch, err := h.reader.Channel(ctx, msg.PortId, msg.ChannelId)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := ch.Datum.State
	if current.Channel.State != datum.ChanStateTryOpen {
		return UnsignedTx{}, stateError(op, "channel", ch.ID, datum.ChanStateTryOpen.String(), current.Channel.State)
	}
	next := current.Clone()
	next.Channel.State = datum.ChanStateOpen
	opened := true
	return h.advanceChannel(ctx, channelStep{
		op:      op,
		signer:  msg.Signer,
		channel: ch,
		next:    next,
		redeemer: datum.SpendChannelRedeemer{
			Kind:        datum.SpendChanOpenConfirm,
			Proof:       msg.ProofAck,
			ProofHeight: datum.HeightFromIBC(msg.ProofHeight),
		},
		callback: &datum.ModuleCallback{Kind: datum.OnChanOpenConfirm, ChannelID: ch.ID},
		opened:   &opened,
	})
}

func (h *Handler) ChanCloseInit(ctx context.Context, msg *channeltypes.MsgChannelCloseInit) (UnsignedTx, error) {
	const op = "ChannelCloseInit"
	ch, err := h.reader.Channel(ctx, msg.PortId, msg.ChannelId)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := ch.Datum.State
	if current.Channel.State != datum.ChanStateOpen {
		return UnsignedTx{}, stateError(op, "channel", ch.ID, datum.ChanStateOpen.String(), current.Channel.State)
	}
	next := current.Clone()
	next.Channel.State = datum.ChanStateClose
	opened := false
	return h.advanceChannel(ctx, channelStep{
		op:       op,
		signer:   msg.Signer,
		channel:  ch,
		next:     next,
		redeemer: datum.SpendChannelRedeemer{Kind: datum.SpendChanCloseInit},
		callback: &datum.ModuleCallback{Kind: datum.OnChanCloseInit, ChannelID: ch.ID},
		opened:   &opened,
	})
}

// channelStep is one spend of a channel output, optionally driving the
// bound module.
type channelStep struct {
	op       string
	signer   string
	channel  state.Object[datum.ChannelDatum]
	next     datum.ChannelDatumState
	redeemer datum.SpendChannelRedeemer
	// callback is the module redeemer; nil leaves the module untouched
	callback datum.Redeemer
	// opened, when set, is the channel's new flag in the module datum
	opened *bool
}

func (h *Handler) advanceChannel(ctx context.Context, s channelStep) (UnsignedTx, error) {
	deploy := h.reader.Deployment()
	ch := s.channel
	portID := ch.Datum.Port

	hops := ch.Datum.State.Channel.ConnectionHops
	if len(hops) == 0 {
		return UnsignedTx{}, errorsmod.Wrapf(types.ErrInternal, "%s: channel %s has no connection hop", s.op, ch.ID)
	}
	conn, err := h.reader.Connection(ctx, hops[0])
	if err != nil {
		return UnsignedTx{}, err
	}
	old, err := projected(state.ChannelEntries(portID, ch.ID, ch.Datum.State))
	if err != nil {
		return UnsignedTx{}, err
	}
	entries, err := projected(state.ChannelEntries(portID, ch.ID, s.next))
	if err != nil {
		return UnsignedTx{}, err
	}

	p := newPlan(s.op, s.signer)
	p.id = ch.ID
	p.reference(conn.UTXO)
	p.spend(ch.UTXO, deploy.Channel, s.redeemer)
	p.output(deploy.Channel.Address, ch.Datum.Token, datum.ChannelDatum{State: s.next, Port: portID, Token: ch.Datum.Token})
	if s.callback != nil {
		module, moduleState, err := h.reader.Module(ctx, portID)
		if err != nil {
			return UnsignedTx{}, err
		}
		md := moduleState.Datum
		if s.opened != nil {
			md = md.WithChannel(ch.ID, *s.opened)
		}
		p.spend(moduleState.UTXO, module.Validator, s.callback)
		p.output(module.Address, module.Token, md)
	}
	p.commit(old, entries)
	return h.submit(ctx, p)
}
