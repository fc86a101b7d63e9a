package query

import (
	abci "github.com/cometbft/cometbft/abci/types"
	sdkquery "github.com/cosmos/cosmos-sdk/types/query"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
)

// Requests and responses of the queries outside the ICS-02/03/04 services.
// They travel as JSON.

type LatestHeightRequest struct{}

type LatestHeightResponse struct {
	Height uint64 `json:"height,string"`
}

type NewClientRequest struct{}

type TokenJSON struct {
	PolicyID string `json:"policy_id"`
	Name     string `json:"name"`
}

// LedgerClientState is what a counterparty light client of this ledger
// starts from.
type LedgerClientState struct {
	ChainID        string             `json:"chain_id"`
	LatestHeight   clienttypes.Height `json:"latest_height"`
	CurrentEpoch   uint64             `json:"current_epoch,string"`
	HostStateToken TokenJSON          `json:"host_state_nft"`
}

type LedgerConsensusState struct {
	Timestamp       uint64 `json:"timestamp,string"`
	BlockHash       string `json:"block_hash"`
	CertificateHash string `json:"certificate_hash"`
	// Root is the committed IBC state root, hex encoded.
	Root string `json:"root"`
}

type NewClientResponse struct {
	ClientState    LedgerClientState    `json:"client_state"`
	ConsensusState LedgerConsensusState `json:"consensus_state"`
}

type NextSequenceAckRequest struct {
	PortID    string `json:"port_id"`
	ChannelID string `json:"channel_id"`
}

type NextSequenceAckResponse struct {
	NextSequenceAck uint64             `json:"next_sequence_ack,string"`
	Proof           []byte             `json:"proof"`
	ProofHeight     clienttypes.Height `json:"proof_height"`
}

type BlockDataRequest struct {
	Height uint64 `json:"height,string"`
}

type BlockInfo struct {
	Height  uint64 `json:"height,string"`
	Hash    string `json:"hash"`
	Slot    uint64 `json:"slot,string"`
	Epoch   uint64 `json:"epoch,string"`
	Time    int64  `json:"time,string"`
	TxCount uint64 `json:"tx_count,string"`
}

type BlockDataResponse struct {
	Block BlockInfo `json:"block"`
}

type BlockResultsRequest struct {
	Height uint64 `json:"height,string"`
}

// TxResult carries the IBC events of one transaction.
type TxResult struct {
	Hash   string            `json:"hash"`
	Height uint64            `json:"height,string"`
	Fee    uint64            `json:"fee,string"`
	Result abci.ExecTxResult `json:"result"`
}

type BlockResultsResponse struct {
	Height    clienttypes.Height `json:"height"`
	TxResults []TxResult         `json:"txs_results"`
	// PoolEvents are stake-pool registrations and retirements, the
	// validator-set changes of the ledger.
	PoolEvents []abci.Event `json:"finalize_block_events"`
}

// BlockSearchRequest looks for the blocks in which a packet was sent from
// PacketSrcChannel or received on PacketDstChannel. Page is one-based.
type BlockSearchRequest struct {
	PacketSrcChannel string `json:"packet_src_channel"`
	PacketDstChannel string `json:"packet_dst_channel"`
	PacketSequence   uint64 `json:"packet_sequence,string"`
	Limit            uint64 `json:"limit,string"`
	Page             uint64 `json:"page,string"`
}

type BlockSearchResponse struct {
	Blocks     []BlockInfo            `json:"blocks"`
	TotalCount uint64                 `json:"total_count,string"`
	Pagination *sdkquery.PageResponse `json:"pagination"`
}

type TransactionByHashRequest struct {
	Hash string `json:"hash"`
}

type TransactionByHashResponse struct {
	Tx TxResult `json:"tx"`
}
