package query

import (
	"encoding/hex"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	connectiontypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	"github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/state"
)

const (
	eventTypePoolRegistration = "pool_registration"
	eventTypePoolRetirement   = "pool_retirement"

	attributeKeyPoolID = "pool_id"
	attributeKeyVRFKey = "vrf_key_hash"
	attributeKeyPledge = "pledge"
)

func attr(key, value string) abci.EventAttribute {
	return abci.EventAttribute{Key: key, Value: value, Index: true}
}

func event(typ string, attrs ...abci.EventAttribute) abci.Event {
	return abci.Event{Type: typ, Attributes: attrs}
}

func minted(tx ledger.Tx, token datum.AuthToken) bool {
	for _, m := range tx.Mints {
		if m.Quantity > 0 && m.Token().Equal(token) {
			return true
		}
	}
	return false
}

// txEvents derives the IBC events of tx from the objects it wrote. Objects
// written by other transactions are ignored.
func (q *Querier) txEvents(tx ledger.Tx, touched state.Touched) ([]abci.Event, error) {
	var events []abci.Event
	for _, c := range touched.Clients {
		if c.UTXO.TxHash == tx.Hash {
			events = append(events, clientEvent(tx, c))
		}
	}
	for _, c := range touched.Connections {
		if c.UTXO.TxHash != tx.Hash {
			continue
		}
		ev, ok, err := q.connectionEvent(tx, c)
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, ev)
		}
	}
	for _, c := range touched.Channels {
		if c.UTXO.TxHash != tx.Hash {
			continue
		}
		evs, err := q.channelEvents(tx, c)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
	}
	return events, nil
}

func clientEvent(tx ledger.Tx, c state.Object[datum.ClientDatum]) abci.Event {
	typ := clienttypes.EventTypeUpdateClient
	if minted(tx, c.Datum.Token) {
		typ = clienttypes.EventTypeCreateClient
	}
	h := c.Datum.State.ClientState.LatestHeight.ToIBC().String()
	return event(typ,
		attr(clienttypes.AttributeKeyClientID, c.ID),
		attr(clienttypes.AttributeKeyClientType, exported.Tendermint),
		attr(clienttypes.AttributeKeyConsensusHeight, h),
		attr(clienttypes.AttributeKeyConsensusHeights, h),
	)
}

func (q *Querier) connectionEvent(tx ledger.Tx, c state.Object[datum.ConnectionDatum]) (abci.Event, bool, error) {
	end := c.Datum.State
	var typ string
	if minted(tx, c.Datum.Token) {
		switch end.State {
		case datum.ConnStateInit:
			typ = connectiontypes.EventTypeConnectionOpenInit
		case datum.ConnStateTryOpen:
			typ = connectiontypes.EventTypeConnectionOpenTry
		}
	} else if bz, ok := tx.Redeemer(ledger.PurposeSpend, q.reader.Deployment().Connection.ScriptHash); ok {
		kind, err := datum.DecodeSpendConnectionKind(bz)
		if err != nil {
			return abci.Event{}, false, err
		}
		switch kind {
		case datum.SpendConnOpenAck:
			typ = connectiontypes.EventTypeConnectionOpenAck
		case datum.SpendConnOpenConfirm:
			typ = connectiontypes.EventTypeConnectionOpenConfirm
		}
	}
	if typ == "" {
		return abci.Event{}, false, nil
	}
	return event(typ,
		attr(connectiontypes.AttributeKeyConnectionID, c.ID),
		attr(connectiontypes.AttributeKeyClientID, end.ClientID),
		attr(connectiontypes.AttributeKeyCounterpartyClientID, end.Counterparty.ClientID),
		attr(connectiontypes.AttributeKeyCounterpartyConnectionID, end.Counterparty.ConnectionID),
	), true, nil
}

func firstHop(ch datum.Channel) string {
	if len(ch.ConnectionHops) == 0 {
		return ""
	}
	return ch.ConnectionHops[0]
}

func channelEvent(typ string, c state.Object[datum.ChannelDatum]) abci.Event {
	ch := c.Datum.State.Channel
	return event(typ,
		attr(channeltypes.AttributeKeyPortID, c.Datum.Port),
		attr(channeltypes.AttributeKeyChannelID, c.ID),
		attr(channeltypes.AttributeCounterpartyPortID, ch.Counterparty.PortID),
		attr(channeltypes.AttributeCounterpartyChannelID, ch.Counterparty.ChannelID),
		attr(channeltypes.AttributeKeyConnectionID, firstHop(ch)),
		attr(channeltypes.AttributeVersion, ch.Version),
	)
}

func packetEvent(typ string, p datum.Packet, ch datum.Channel, extra ...abci.EventAttribute) abci.Event {
	attrs := []abci.EventAttribute{
		attr(channeltypes.AttributeKeyData, string(p.Data)),
		attr(channeltypes.AttributeKeyDataHex, hex.EncodeToString(p.Data)),
		attr(channeltypes.AttributeKeyTimeoutHeight, p.TimeoutHeight.ToIBC().String()),
		attr(channeltypes.AttributeKeyTimeoutTimestamp, strconv.FormatUint(p.TimeoutTimestamp, 10)),
		attr(channeltypes.AttributeKeySequence, strconv.FormatUint(p.Sequence, 10)),
		attr(channeltypes.AttributeKeySrcPort, p.SourcePort),
		attr(channeltypes.AttributeKeySrcChannel, p.SourceChannel),
		attr(channeltypes.AttributeKeyDstPort, p.DestinationPort),
		attr(channeltypes.AttributeKeyDstChannel, p.DestinationChannel),
		attr(channeltypes.AttributeKeyChannelOrdering, ch.ToIBC().Ordering.String()),
		attr(channeltypes.AttributeKeyConnection, firstHop(ch)),
	}
	return event(typ, append(attrs, extra...)...)
}

func (q *Querier) channelEvents(tx ledger.Tx, c state.Object[datum.ChannelDatum]) ([]abci.Event, error) {
	st := c.Datum.State
	if minted(tx, c.Datum.Token) {
		switch st.Channel.State {
		case datum.ChanStateInit:
			return []abci.Event{channelEvent(channeltypes.EventTypeChannelOpenInit, c)}, nil
		case datum.ChanStateTryOpen:
			return []abci.Event{channelEvent(channeltypes.EventTypeChannelOpenTry, c)}, nil
		}
		return nil, nil
	}

	bz, ok := tx.Redeemer(ledger.PurposeSpend, q.reader.Deployment().Channel.ScriptHash)
	if !ok {
		return nil, nil
	}
	r, err := datum.DecodeSpendChannelRedeemer(bz)
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case datum.SpendChanOpenAck:
		return []abci.Event{channelEvent(channeltypes.EventTypeChannelOpenAck, c)}, nil
	case datum.SpendChanOpenConfirm:
		return []abci.Event{channelEvent(channeltypes.EventTypeChannelOpenConfirm, c)}, nil
	case datum.SpendChanCloseInit:
		return []abci.Event{channelEvent(channeltypes.EventTypeChannelCloseInit, c)}, nil
	case datum.SpendChanCloseConfirm:
		return []abci.Event{channelEvent(channeltypes.EventTypeChannelCloseConfirm, c)}, nil
	case datum.SpendSendPacket:
		return []abci.Event{packetEvent(channeltypes.EventTypeSendPacket, r.Packet, st.Channel)}, nil
	case datum.SpendAcknowledgePacket:
		return []abci.Event{packetEvent(channeltypes.EventTypeAcknowledgePacket, r.Packet, st.Channel)}, nil
	case datum.SpendTimeoutPacket:
		events := []abci.Event{packetEvent(channeltypes.EventTypeTimeoutPacket, r.Packet, st.Channel)}
		if st.Channel.State == datum.ChanStateClose {
			events = append(events, channelEvent(channeltypes.EventTypeChannelClosed, c))
		}
		return events, nil
	case datum.SpendRecvPacket:
		events := []abci.Event{packetEvent(channeltypes.EventTypeRecvPacket, r.Packet, st.Channel)}
		if ack, ok := q.writtenAck(tx, c); ok {
			events = append(events, packetEvent(channeltypes.EventTypeWriteAck, r.Packet, st.Channel,
				attr(channeltypes.AttributeKeyAck, string(ack)),
				attr(channeltypes.AttributeKeyAckHex, hex.EncodeToString(ack)),
			))
		}
		return events, nil
	}
	return nil, nil
}

// writtenAck recovers the acknowledgement the bound module wrote while
// receiving a packet in tx.
func (q *Querier) writtenAck(tx ledger.Tx, c state.Object[datum.ChannelDatum]) ([]byte, bool) {
	module, err := q.reader.Deployment().Module(c.Datum.Port)
	if err != nil {
		return nil, false
	}
	bz, ok := tx.Redeemer(ledger.PurposeSpend, module.ScriptHash)
	if !ok {
		return nil, false
	}
	cb, err := datum.DecodeModuleCallback(bz)
	if err != nil || cb.Kind != datum.OnRecvPacket {
		q.logger.Debug("no recv callback in tx", "tx", tx.Hash, "channel", c.ID, "err", err)
		return nil, false
	}
	return cb.Acknowledgement, true
}

func poolEvent(u ledger.PoolUpdate) abci.Event {
	if u.Retiring {
		return event(eventTypePoolRetirement, attr(attributeKeyPoolID, u.PoolID))
	}
	return event(eventTypePoolRegistration,
		attr(attributeKeyPoolID, u.PoolID),
		attr(attributeKeyVRFKey, hex.EncodeToString(u.VRFKey)),
		attr(attributeKeyPledge, strconv.FormatUint(u.Pledge, 10)),
	)
}
