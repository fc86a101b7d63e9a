package datum

import (
	"crypto/sha256"
	"encoding/binary"

	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
)

type Packet struct {
	Sequence           uint64
	SourcePort         string
	SourceChannel      string
	DestinationPort    string
	DestinationChannel string
	Data               []byte
	TimeoutHeight      Height
	TimeoutTimestamp   uint64
}

func PacketFromIBC(p channeltypes.Packet) Packet {
	return Packet{
		Sequence:           p.Sequence,
		SourcePort:         p.SourcePort,
		SourceChannel:      p.SourceChannel,
		DestinationPort:    p.DestinationPort,
		DestinationChannel: p.DestinationChannel,
		Data:               p.Data,
		TimeoutHeight:      HeightFromIBC(p.TimeoutHeight),
		TimeoutTimestamp:   p.TimeoutTimestamp,
	}
}

func (p Packet) ToIBC() channeltypes.Packet {
	return channeltypes.NewPacket(p.Data, p.Sequence, p.SourcePort, p.SourceChannel,
		p.DestinationPort, p.DestinationChannel, p.TimeoutHeight.ToIBC(), p.TimeoutTimestamp)
}

// Commitment is the ICS-04 packet commitment:
// sha256(timeout_timestamp || revision_number || revision_height || sha256(data)).
func (p Packet) Commitment() []byte {
	buf := make([]byte, 0, 24+sha256.Size)
	buf = binary.BigEndian.AppendUint64(buf, p.TimeoutTimestamp)
	buf = binary.BigEndian.AppendUint64(buf, p.TimeoutHeight.RevisionNumber)
	buf = binary.BigEndian.AppendUint64(buf, p.TimeoutHeight.RevisionHeight)
	dataHash := sha256.Sum256(p.Data)
	buf = append(buf, dataHash[:]...)
	sum := sha256.Sum256(buf)
	return sum[:]
}

// AckCommitment is sha256 of the raw acknowledgement.
func AckCommitment(ack []byte) []byte {
	sum := sha256.Sum256(ack)
	return sum[:]
}

// ReceiptValue is the value stored for a received packet.
var ReceiptValue = []byte{1}

func (p Packet) plutus() Constr {
	return NewConstr(0,
		Int(p.Sequence),
		[]byte(p.SourcePort),
		[]byte(p.SourceChannel),
		[]byte(p.DestinationPort),
		[]byte(p.DestinationChannel),
		nonNil(p.Data),
		p.TimeoutHeight.plutus(),
		Int(p.TimeoutTimestamp),
	)
}

func decodePacket(d Data) (Packet, error) {
	var p Packet
	fs, err := fields(d, 0, 8, "packet")
	if err != nil {
		return p, err
	}
	if p.Sequence, err = asUint(fs[0], "packet sequence"); err != nil {
		return p, err
	}
	if p.SourcePort, err = asString(fs[1], "source port"); err != nil {
		return p, err
	}
	if p.SourceChannel, err = asString(fs[2], "source channel"); err != nil {
		return p, err
	}
	if p.DestinationPort, err = asString(fs[3], "destination port"); err != nil {
		return p, err
	}
	if p.DestinationChannel, err = asString(fs[4], "destination channel"); err != nil {
		return p, err
	}
	if p.Data, err = asBytes(fs[5], "packet data"); err != nil {
		return p, err
	}
	if p.TimeoutHeight, err = decodeHeight(fs[6]); err != nil {
		return p, err
	}
	p.TimeoutTimestamp, err = asUint(fs[7], "timeout timestamp")
	return p, err
}
