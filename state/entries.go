package state

import (
	"encoding/binary"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/merkle"
)

// ClientEntries projects a client onto its IBC host paths.
func ClientEntries(clientID string, st datum.ClientDatumState) ([]merkle.Entry, error) {
	packed, err := clienttypes.PackClientState(st.ClientState.ToIBC())
	if err != nil {
		return nil, err
	}
	cs, err := packed.Marshal()
	if err != nil {
		return nil, err
	}
	entries := []merkle.Entry{{Path: host.FullClientStatePath(clientID), Value: cs}}
	for _, h := range st.Heights() {
		bz, err := clienttypes.MustPackConsensusState(st.ConsensusStates[h].ToIBC()).Marshal()
		if err != nil {
			return nil, err
		}
		entries = append(entries, merkle.Entry{Path: host.FullConsensusStatePath(clientID, h.ToIBC()), Value: bz})
	}
	return entries, nil
}

func ConnectionEntries(connectionID string, end datum.ConnectionEnd) ([]merkle.Entry, error) {
	ibc := end.ToIBC()
	bz, err := ibc.Marshal()
	if err != nil {
		return nil, err
	}
	return []merkle.Entry{{Path: host.ConnectionPath(connectionID), Value: bz}}, nil
}

// ChannelEntries projects a channel end, its packet maps and its receive
// and ack sequences.
func ChannelEntries(portID, channelID string, st datum.ChannelDatumState) ([]merkle.Entry, error) {
	ch := st.Channel.ToIBC()
	bz, err := ch.Marshal()
	if err != nil {
		return nil, err
	}
	entries := []merkle.Entry{
		{Path: host.ChannelPath(portID, channelID), Value: bz},
		{Path: host.NextSequenceRecvPath(portID, channelID), Value: binary.BigEndian.AppendUint64(nil, st.NextSequenceRecv)},
		{Path: host.NextSequenceAckPath(portID, channelID), Value: binary.BigEndian.AppendUint64(nil, st.NextSequenceAck)},
	}
	for _, seq := range st.PacketCommitment.Keys() {
		v, _ := st.PacketCommitment.Get(seq)
		entries = append(entries, merkle.Entry{Path: host.PacketCommitmentPath(portID, channelID, seq), Value: v})
	}
	for _, seq := range st.PacketReceipt.Keys() {
		v, _ := st.PacketReceipt.Get(seq)
		entries = append(entries, merkle.Entry{Path: host.PacketReceiptPath(portID, channelID, seq), Value: v})
	}
	for _, seq := range st.PacketAcknowledgement.Keys() {
		v, _ := st.PacketAcknowledgement.Get(seq)
		entries = append(entries, merkle.Entry{Path: host.PacketAcknowledgementPath(portID, channelID, seq), Value: v})
	}
	return entries, nil
}

// Paths lists the paths of entries.
func Paths(entries []merkle.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}
