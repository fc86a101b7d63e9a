package query

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/types"
)

func requireSequence(seq uint64) error {
	if seq == 0 {
		return errorsmod.Wrap(types.ErrInvalidArgument, "packet sequence cannot be 0")
	}
	return nil
}

// PacketCommitment returns the commitment at a sequence. An absent
// commitment is not an error: the response carries empty bytes and a
// non-existence proof.
func (q *Querier) PacketCommitment(ctx context.Context, req *channeltypes.QueryPacketCommitmentRequest) (*channeltypes.QueryPacketCommitmentResponse, error) {
	if err := requireSequence(req.Sequence); err != nil {
		return nil, err
	}
	ch, err := q.reader.Channel(ctx, req.PortId, req.ChannelId)
	if err != nil {
		return nil, err
	}
	commitment, ok := ch.Datum.State.PacketCommitment.Get(req.Sequence)
	if !ok {
		commitment = []byte{}
	}
	proof, err := q.prove(ctx, host.PacketCommitmentPath(ch.Datum.Port, ch.ID, req.Sequence), true)
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryPacketCommitmentResponse{
		Commitment:  commitment,
		Proof:       proof,
		ProofHeight: proofHeight(ch.UTXO),
	}, nil
}

// packetStates renders the entries of m at seqs.
func packetStates(ch state.Object[datum.ChannelDatum], m *datum.SeqMap, seqs []uint64) []*channeltypes.PacketState {
	out := make([]*channeltypes.PacketState, 0, len(seqs))
	for _, seq := range seqs {
		v, _ := m.Get(seq)
		ps := channeltypes.NewPacketState(ch.Datum.Port, ch.ID, seq, v)
		out = append(out, &ps)
	}
	return out
}

func (q *Querier) PacketCommitments(ctx context.Context, req *channeltypes.QueryPacketCommitmentsRequest) (*channeltypes.QueryPacketCommitmentsResponse, error) {
	ch, err := q.reader.Channel(ctx, req.PortId, req.ChannelId)
	if err != nil {
		return nil, err
	}
	commitments := ch.Datum.State.PacketCommitment
	page, res, err := paginate(commitments.Keys(), req.Pagination)
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryPacketCommitmentsResponse{
		Commitments: packetStates(ch, commitments, page),
		Pagination:  res,
		Height:      proofHeight(ch.UTXO),
	}, nil
}

func (q *Querier) PacketAcknowledgement(ctx context.Context, req *channeltypes.QueryPacketAcknowledgementRequest) (*channeltypes.QueryPacketAcknowledgementResponse, error) {
	if err := requireSequence(req.Sequence); err != nil {
		return nil, err
	}
	ch, err := q.reader.Channel(ctx, req.PortId, req.ChannelId)
	if err != nil {
		return nil, err
	}
	ack, ok := ch.Datum.State.PacketAcknowledgement.Get(req.Sequence)
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrNotFound, "no acknowledgement for %s/%s sequence %d", ch.Datum.Port, ch.ID, req.Sequence)
	}
	proof, err := q.prove(ctx, host.PacketAcknowledgementPath(ch.Datum.Port, ch.ID, req.Sequence), false)
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryPacketAcknowledgementResponse{
		Acknowledgement: ack,
		Proof:           proof,
		ProofHeight:     proofHeight(ch.UTXO),
	}, nil
}

// PacketAcknowledgements pages through the acknowledgements, restricted to
// PacketCommitmentSequences when the request names any.
func (q *Querier) PacketAcknowledgements(ctx context.Context, req *channeltypes.QueryPacketAcknowledgementsRequest) (*channeltypes.QueryPacketAcknowledgementsResponse, error) {
	ch, err := q.reader.Channel(ctx, req.PortId, req.ChannelId)
	if err != nil {
		return nil, err
	}
	acks := ch.Datum.State.PacketAcknowledgement
	seqs := acks.Keys()
	if len(req.PacketCommitmentSequences) > 0 {
		seqs = seqs[:0]
		for _, seq := range req.PacketCommitmentSequences {
			if acks.Has(seq) {
				seqs = append(seqs, seq)
			}
		}
	}
	page, res, err := paginate(seqs, req.Pagination)
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryPacketAcknowledgementsResponse{
		Acknowledgements: packetStates(ch, acks, page),
		Pagination:       res,
		Height:           proofHeight(ch.UTXO),
	}, nil
}

// PacketReceipt proves the receipt, or its absence.
func (q *Querier) PacketReceipt(ctx context.Context, req *channeltypes.QueryPacketReceiptRequest) (*channeltypes.QueryPacketReceiptResponse, error) {
	if err := requireSequence(req.Sequence); err != nil {
		return nil, err
	}
	ch, err := q.reader.Channel(ctx, req.PortId, req.ChannelId)
	if err != nil {
		return nil, err
	}
	proof, err := q.prove(ctx, host.PacketReceiptPath(ch.Datum.Port, ch.ID, req.Sequence), true)
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryPacketReceiptResponse{
		Received:    ch.Datum.State.PacketReceipt.Has(req.Sequence),
		Proof:       proof,
		ProofHeight: proofHeight(ch.UTXO),
	}, nil
}

// UnreceivedPackets returns, in request order, the candidates this chain has
// not received. On ordered channels that is every sequence at or past the
// next receive sequence, since ordered channels write no receipts;
// otherwise every sequence without a receipt.
func (q *Querier) UnreceivedPackets(ctx context.Context, req *channeltypes.QueryUnreceivedPacketsRequest) (*channeltypes.QueryUnreceivedPacketsResponse, error) {
	ch, err := q.reader.Channel(ctx, req.PortId, req.ChannelId)
	if err != nil {
		return nil, err
	}
	st := ch.Datum.State
	received := st.PacketReceipt.Has
	if st.Channel.Ordering == datum.OrderOrdered {
		received = func(seq uint64) bool { return seq < st.NextSequenceRecv }
	}
	seqs, err := difference(req.PacketCommitmentSequences, received)
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryUnreceivedPacketsResponse{Sequences: seqs, Height: proofHeight(ch.UTXO)}, nil
}

// UnreceivedAcks returns, in request order, the acknowledged sequences whose
// commitment is still held here, i.e. whose acknowledgement this chain has
// not processed.
func (q *Querier) UnreceivedAcks(ctx context.Context, req *channeltypes.QueryUnreceivedAcksRequest) (*channeltypes.QueryUnreceivedAcksResponse, error) {
	ch, err := q.reader.Channel(ctx, req.PortId, req.ChannelId)
	if err != nil {
		return nil, err
	}
	commitments := ch.Datum.State.PacketCommitment
	seqs, err := difference(req.PacketAckSequences, func(seq uint64) bool { return !commitments.Has(seq) })
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryUnreceivedAcksResponse{Sequences: seqs, Height: proofHeight(ch.UTXO)}, nil
}

// difference keeps the candidates for which done is false.
func difference(candidates []uint64, done func(uint64) bool) ([]uint64, error) {
	out := make([]uint64, 0, len(candidates))
	for _, seq := range candidates {
		if err := requireSequence(seq); err != nil {
			return nil, err
		}
		if !done(seq) {
			out = append(out, seq)
		}
	}
	return out, nil
}

func (q *Querier) NextSequenceReceive(ctx context.Context, req *channeltypes.QueryNextSequenceReceiveRequest) (*channeltypes.QueryNextSequenceReceiveResponse, error) {
	ch, err := q.reader.Channel(ctx, req.PortId, req.ChannelId)
	if err != nil {
		return nil, err
	}
	proof, err := q.prove(ctx, host.NextSequenceRecvPath(ch.Datum.Port, ch.ID), false)
	if err != nil {
		return nil, err
	}
	return &channeltypes.QueryNextSequenceReceiveResponse{
		NextSequenceReceive: ch.Datum.State.NextSequenceRecv,
		Proof:               proof,
		ProofHeight:         proofHeight(ch.UTXO),
	}, nil
}

func (q *Querier) NextSequenceAck(ctx context.Context, req *NextSequenceAckRequest) (*NextSequenceAckResponse, error) {
	ch, err := q.reader.Channel(ctx, req.PortID, req.ChannelID)
	if err != nil {
		return nil, err
	}
	proof, err := q.prove(ctx, host.NextSequenceAckPath(ch.Datum.Port, ch.ID), false)
	if err != nil {
		return nil, err
	}
	return &NextSequenceAckResponse{
		NextSequenceAck: ch.Datum.State.NextSequenceAck,
		Proof:           proof,
		ProofHeight:     proofHeight(ch.UTXO),
	}, nil
}
