package identifier

import (
	"fmt"
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"

	"github.com/cardano-ibc/gateway/types"
)

// Wire identifier prefixes.
const (
	ClientIDPrefix     = "07-tendermint"
	ConnectionIDPrefix = "connection"
	ChannelIDPrefix    = "channel"
	PortIDPrefix       = "port"
)

// FormatID renders a wire identifier such as "connection-7".
func FormatID(prefix string, sequence uint64) string {
	return fmt.Sprintf("%s-%d", prefix, sequence)
}

// ParseID strips prefix from a wire identifier and returns the sequence.
// Only the canonical decimal form is accepted.
func ParseID(id, prefix string) (uint64, error) {
	head := prefix + "-"
	if !strings.HasPrefix(id, head) {
		return 0, errorsmod.Wrapf(types.ErrInvalidArgument, "%q: expected identifier with prefix %q", id, head)
	}
	seq, err := strconv.ParseUint(id[len(head):], 10, 64)
	if err != nil {
		return 0, errorsmod.Wrapf(types.ErrInvalidArgument, "%q: invalid sequence after prefix %q", id, head)
	}
	if FormatID(prefix, seq) != id {
		return 0, errorsmod.Wrapf(types.ErrInvalidArgument, "%q: non-canonical sequence after prefix %q", id, head)
	}
	return seq, nil
}

func ClientID(sequence uint64) string     { return FormatID(ClientIDPrefix, sequence) }
func ConnectionID(sequence uint64) string { return FormatID(ConnectionIDPrefix, sequence) }
func ChannelID(sequence uint64) string    { return FormatID(ChannelIDPrefix, sequence) }
func PortID(port uint64) string           { return FormatID(PortIDPrefix, port) }

func ParseClientID(id string) (uint64, error)     { return ParseID(id, ClientIDPrefix) }
func ParseConnectionID(id string) (uint64, error) { return ParseID(id, ConnectionIDPrefix) }
func ParseChannelID(id string) (uint64, error)    { return ParseID(id, ChannelIDPrefix) }
func ParsePortID(id string) (uint64, error)       { return ParseID(id, PortIDPrefix) }
