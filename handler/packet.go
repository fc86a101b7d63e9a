package handler

import (
	"bytes"
	"context"

	errorsmod "cosmossdk.io/errors"
	transfertypes "github.com/cosmos/ibc-go/v8/modules/apps/transfer/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/types"
)

// MsgTimeoutRefresh re-spends a channel output without changing it, so a
// relayer can observe a fresh block for timeout proofs.
type MsgTimeoutRefresh struct {
	PortId    string
	ChannelId string
	Signer    string
}

// SuccessAcknowledgement is written for every received packet; the bound
// module reports application failures through its own callback.
var SuccessAcknowledgement = channeltypes.NewResultAcknowledgement([]byte{1}).Acknowledgement()

func (h *Handler) openChannelFor(ctx context.Context, op, portID, channelID string) (state.Object[datum.ChannelDatum], error) {
	ch, err := h.reader.Channel(ctx, portID, channelID)
	if err != nil {
		return ch, err
	}
	if st := ch.Datum.State.Channel.State; st != datum.ChanStateOpen {
		return ch, stateError(op, "channel", ch.ID, datum.ChanStateOpen.String(), st)
	}
	return ch, nil
}

// requireCommitment checks the channel still commits to packet.
func requireCommitment(op string, st datum.ChannelDatumState, packet datum.Packet) error {
	stored, ok := st.PacketCommitment.Get(packet.Sequence)
	if !ok {
		return errorsmod.Wrapf(types.ErrInternal, "%s: no commitment for packet %d", op, packet.Sequence)
	}
	if !bytes.Equal(stored, packet.Commitment()) {
		return errorsmod.Wrapf(types.ErrInternal, "%s: commitment for packet %d does not match the packet", op, packet.Sequence)
	}
	return nil
}

func (h *Handler) RecvPacket(ctx context.Context, msg *channeltypes.MsgRecvPacket) (UnsignedTx, error) {
	const op = "RecvPacket"
	packet := datum.PacketFromIBC(msg.Packet)
	ch, err := h.openChannelFor(ctx, op, packet.DestinationPort, packet.DestinationChannel)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := ch.Datum.State
	cp := current.Channel.Counterparty
	if packet.SourcePort != cp.PortID || packet.SourceChannel != cp.ChannelID {
		return UnsignedTx{}, errorsmod.Wrapf(types.ErrInvalidArgument,
			"packet source %s/%s does not match counterparty %s/%s", packet.SourcePort, packet.SourceChannel, cp.PortID, cp.ChannelID)
	}
	if err := h.checkNotTimedOut(ctx, packet); err != nil {
		return UnsignedTx{}, err
	}

	next := current.Clone()
	switch current.Channel.Ordering {
	case datum.OrderOrdered:
		if packet.Sequence != current.NextSequenceRecv {
			return UnsignedTx{}, errorsmod.Wrapf(types.ErrInternal, "%s: packet sequence %d, expected %d on ordered channel %s",
				op, packet.Sequence, current.NextSequenceRecv, ch.ID)
		}
		next.NextSequenceRecv++
	default:
		if current.PacketReceipt.Has(packet.Sequence) {
			return UnsignedTx{}, errorsmod.Wrapf(types.ErrInternal, "%s: packet %d already received on channel %s",
				op, packet.Sequence, ch.ID)
		}
		if err := next.PacketReceipt.Insert(packet.Sequence, datum.ReceiptValue); err != nil {
			return UnsignedTx{}, err
		}
	}
	ack := datum.AckCommitment(SuccessAcknowledgement)
	if stored, ok := current.PacketAcknowledgement.Get(packet.Sequence); ok && bytes.Equal(stored, ack) {
		return UnsignedTx{}, errorsmod.Wrapf(types.ErrInternal, "%s: packet %d already acknowledged on channel %s",
			op, packet.Sequence, ch.ID)
	}
	if err := next.PacketAcknowledgement.Insert(packet.Sequence, ack); err != nil {
		return UnsignedTx{}, err
	}

	return h.advanceChannel(ctx, channelStep{
		op:      op,
		signer:  msg.Signer,
		channel: ch,
		next:    next,
		redeemer: datum.SpendChannelRedeemer{
			Kind:        datum.SpendRecvPacket,
			Packet:      packet,
			Proof:       msg.ProofCommitment,
			ProofHeight: datum.HeightFromIBC(msg.ProofHeight),
		},
		callback: datum.ModuleCallback{
			Kind:            datum.OnRecvPacket,
			ChannelID:       ch.ID,
			Acknowledgement: SuccessAcknowledgement,
			Data:            packet.Data,
		},
	})
}

// checkNotTimedOut rejects packets whose timeout the ledger tip has passed.
func (h *Handler) checkNotTimedOut(ctx context.Context, packet datum.Packet) error {
	tip, err := h.reader.Index().LatestBlock(ctx)
	if err != nil {
		return err
	}
	if !packet.TimeoutHeight.IsZero() && tip.Height >= packet.TimeoutHeight.RevisionHeight {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "packet %d timed out at height %s", packet.Sequence, packet.TimeoutHeight)
	}
	if packet.TimeoutTimestamp != 0 && uint64(tip.Time.UnixNano()) >= packet.TimeoutTimestamp {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "packet %d timed out at timestamp %d", packet.Sequence, packet.TimeoutTimestamp)
	}
	return nil
}

// Transfer sends an ICS-20 packet: it commits the packet at
// next_sequence_send and asks the transfer module to escrow the tokens.
func (h *Handler) Transfer(ctx context.Context, msg *transfertypes.MsgTransfer) (UnsignedTx, error) {
	const op = "Transfer"
	if msg.TimeoutHeight.IsZero() && msg.TimeoutTimestamp == 0 {
		return UnsignedTx{}, errorsmod.Wrap(types.ErrInvalidArgument, "either timeout_height or timeout_timestamp is required")
	}
	if !msg.Token.IsValid() || !msg.Token.IsPositive() {
		return UnsignedTx{}, errorsmod.Wrapf(types.ErrInvalidArgument, "invalid token %s", msg.Token)
	}
	ch, err := h.openChannelFor(ctx, op, msg.SourcePort, msg.SourceChannel)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := ch.Datum.State
	data := transfertypes.NewFungibleTokenPacketData(
		msg.Token.Denom, msg.Token.Amount.String(), msg.Sender, msg.Receiver, msg.Memo,
	).GetBytes()
	packet := datum.Packet{
		Sequence:           current.NextSequenceSend,
		SourcePort:         msg.SourcePort,
		SourceChannel:      msg.SourceChannel,
		DestinationPort:    current.Channel.Counterparty.PortID,
		DestinationChannel: current.Channel.Counterparty.ChannelID,
		Data:               data,
		TimeoutHeight:      datum.HeightFromIBC(msg.TimeoutHeight),
		TimeoutTimestamp:   msg.TimeoutTimestamp,
	}

	next := current.Clone()
	if err := next.PacketCommitment.Insert(packet.Sequence, packet.Commitment()); err != nil {
		return UnsignedTx{}, err
	}
	next.NextSequenceSend++

	return h.advanceChannel(ctx, channelStep{
		op:       op,
		signer:   msg.Sender,
		channel:  ch,
		next:     next,
		redeemer: datum.SpendChannelRedeemer{Kind: datum.SpendSendPacket, Packet: packet},
		callback: datum.ModuleTransfer{ChannelID: ch.ID, Data: data},
	})
}

func (h *Handler) Acknowledgement(ctx context.Context, msg *channeltypes.MsgAcknowledgement) (UnsignedTx, error) {
	const op = "Acknowledgement"
	packet := datum.PacketFromIBC(msg.Packet)
	ch, err := h.openChannelFor(ctx, op, packet.SourcePort, packet.SourceChannel)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := ch.Datum.State
	if err := requireCommitment(op, current, packet); err != nil {
		return UnsignedTx{}, err
	}
	next := current.Clone()
	if current.Channel.Ordering == datum.OrderOrdered {
		if packet.Sequence != current.NextSequenceAck {
			return UnsignedTx{}, errorsmod.Wrapf(types.ErrInternal, "%s: packet sequence %d, expected %d on ordered channel %s",
				op, packet.Sequence, current.NextSequenceAck, ch.ID)
		}
		next.NextSequenceAck++
	}
	next.PacketCommitment.Delete(packet.Sequence)

	return h.advanceChannel(ctx, channelStep{
		op:      op,
		signer:  msg.Signer,
		channel: ch,
		next:    next,
		redeemer: datum.SpendChannelRedeemer{
			Kind:            datum.SpendAcknowledgePacket,
			Packet:          packet,
			Acknowledgement: msg.Acknowledgement,
			Proof:           msg.ProofAcked,
			ProofHeight:     datum.HeightFromIBC(msg.ProofHeight),
		},
		callback: datum.ModuleCallback{
			Kind:            datum.OnAcknowledgementPacket,
			ChannelID:       ch.ID,
			Acknowledgement: msg.Acknowledgement,
			Data:            packet.Data,
		},
	})
}

// Timeout clears the commitment of a packet the counterparty never
// received. A timeout on an ordered channel closes it.
func (h *Handler) Timeout(ctx context.Context, msg *channeltypes.MsgTimeout) (UnsignedTx, error) {
	const op = "Timeout"
	packet := datum.PacketFromIBC(msg.Packet)
	ch, err := h.openChannelFor(ctx, op, packet.SourcePort, packet.SourceChannel)
	if err != nil {
		return UnsignedTx{}, err
	}
	current := ch.Datum.State
	if err := requireCommitment(op, current, packet); err != nil {
		return UnsignedTx{}, err
	}
	next := current.Clone()
	next.PacketCommitment.Delete(packet.Sequence)

	var opened *bool
	if current.Channel.Ordering == datum.OrderOrdered {
		if msg.NextSequenceRecv > packet.Sequence {
			return UnsignedTx{}, errorsmod.Wrapf(types.ErrInternal, "%s: packet %d was already received (next_sequence_recv %d)",
				op, packet.Sequence, msg.NextSequenceRecv)
		}
		next.Channel.State = datum.ChanStateClose
		closed := false
		opened = &closed
	}

	return h.advanceChannel(ctx, channelStep{
		op:      op,
		signer:  msg.Signer,
		channel: ch,
		next:    next,
		redeemer: datum.SpendChannelRedeemer{
			Kind:             datum.SpendTimeoutPacket,
			Packet:           packet,
			Proof:            msg.ProofUnreceived,
			ProofHeight:      datum.HeightFromIBC(msg.ProofHeight),
			NextSequenceRecv: msg.NextSequenceRecv,
		},
		callback: datum.ModuleCallback{Kind: datum.OnTimeoutPacket, ChannelID: ch.ID, Data: packet.Data},
		opened:   opened,
	})
}

// TimeoutRefresh re-spends the channel output with its datum unchanged.
func (h *Handler) TimeoutRefresh(ctx context.Context, msg *MsgTimeoutRefresh) (UnsignedTx, error) {
	ch, err := h.reader.Channel(ctx, msg.PortId, msg.ChannelId)
	if err != nil {
		return UnsignedTx{}, err
	}
	return h.advanceChannel(ctx, channelStep{
		op:       "TimeoutRefresh",
		signer:   msg.Signer,
		channel:  ch,
		next:     ch.Datum.State,
		redeemer: datum.SpendChannelRedeemer{Kind: datum.SpendRefreshUtxo},
	})
}
