// Package ledger defines the UTXO ledger model and the collaborators the
// gateway reads from and hands transactions to.
package ledger

//go:generate mockgen -destination=mock/ledger.go -package=mock github.com/cardano-ibc/gateway/ledger Index,Builder,Certifier

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cardano-ibc/gateway/identifier"
)

// UTXO is one unspent (or historical) output as seen by the index.
type UTXO struct {
	TxHash      string
	OutputIndex uint32
	Address     string
	Assets      []Asset
	// Datum is the inline datum in CBOR, nil when the output has none.
	Datum   []byte
	BlockNo uint64
}

// Ref is the canonical "<tx_hash>#<index>" output reference.
func (u UTXO) Ref() string {
	return fmt.Sprintf("%s#%d", u.TxHash, u.OutputIndex)
}

// Holds reports whether the output carries token.
func (u UTXO) Holds(token identifier.AuthToken) bool {
	for _, a := range u.Assets {
		if a.Token().Equal(token) && a.Quantity > 0 {
			return true
		}
	}
	return false
}

type Asset struct {
	PolicyID []byte
	Name     []byte
	Quantity int64
}

func (a Asset) Token() identifier.AuthToken {
	return identifier.AuthToken{PolicyID: a.PolicyID, Name: a.Name}
}

func (a Asset) String() string {
	return fmt.Sprintf("%d %s.%s", a.Quantity, hex.EncodeToString(a.PolicyID), hex.EncodeToString(a.Name))
}

type Block struct {
	Height  uint64
	Hash    string
	Slot    uint64
	Epoch   uint64
	Time    time.Time
	TxCount uint64
}

type RedeemerPurpose string

const (
	PurposeSpend RedeemerPurpose = "spend"
	PurposeMint  RedeemerPurpose = "mint"
)

// Redeemer is a script witness of a transaction. ScriptHash is the policy
// id for mint redeemers and the validator hash for spend redeemers.
type Redeemer struct {
	Purpose    RedeemerPurpose
	ScriptHash []byte
	Data       []byte
}

type Tx struct {
	Hash      string
	BlockNo   uint64
	Outputs   []UTXO
	Mints     []Asset
	Redeemers []Redeemer
	Fee       uint64
}

// Redeemer returns the first redeemer of purpose for scriptHash.
func (tx Tx) Redeemer(purpose RedeemerPurpose, scriptHash []byte) ([]byte, bool) {
	for _, r := range tx.Redeemers {
		if r.Purpose == purpose && string(r.ScriptHash) == string(scriptHash) {
			return r.Data, true
		}
	}
	return nil, false
}

// PoolUpdate is a stake-pool registration or retirement observed in a
// block; these become validator-set events for the counterparty.
type PoolUpdate struct {
	PoolID   string
	VRFKey   []byte
	Pledge   uint64
	Retiring bool
	TxHash   string
}

// Index is the read-only view of indexed ledger history. Lookups that find
// nothing return an error of kind types.ErrNotFound.
type Index interface {
	// UTXOByToken returns the unspent output currently holding token.
	UTXOByToken(ctx context.Context, token identifier.AuthToken) (UTXO, error)
	// UTXOsByTokenPrefix returns unspent outputs holding a token of policyID
	// whose name starts with namePrefix.
	UTXOsByTokenPrefix(ctx context.Context, policyID, namePrefix []byte) ([]UTXO, error)
	// UTXOsByPolicyAtBlock returns outputs created in block height that hold
	// a token of policyID, spent or not.
	UTXOsByPolicyAtBlock(ctx context.Context, policyID []byte, height uint64) ([]UTXO, error)
	// TokenHistory returns every output that ever held token, oldest first.
	TokenHistory(ctx context.Context, token identifier.AuthToken) ([]UTXO, error)
	LatestBlock(ctx context.Context) (Block, error)
	BlockByHeight(ctx context.Context, height uint64) (Block, error)
	TxByHash(ctx context.Context, hash string) (Tx, error)
	PoolUpdatesAtBlock(ctx context.Context, height uint64) ([]PoolUpdate, error)
}

// Snapshot is a certified ledger snapshot.
type Snapshot struct {
	Epoch           uint64
	BlockNumber     uint64
	BlockHash       string
	CertificateHash string
	CreatedAt       time.Time
}

// Certifier attests ledger state at intervals.
type Certifier interface {
	LatestSnapshot(ctx context.Context) (Snapshot, error)
	SnapshotByEpoch(ctx context.Context, epoch uint64) (Snapshot, error)
}

// Output is a transaction output the builder must create.
type Output struct {
	Address string
	Tokens  []identifier.AuthToken
	Datum   []byte
}

// Spend consumes an existing output under a redeemer. A nil redeemer spends
// a key-locked output.
type Spend struct {
	UTXO UTXO
	// ScriptHash is the validator locking UTXO.
	ScriptHash []byte
	Redeemer   []byte
}

// Mint creates (Amount > 0) or burns (Amount < 0) a token under a policy
// redeemer.
type Mint struct {
	Token    identifier.AuthToken
	Amount   int64
	Redeemer []byte
}

// TxDescription is everything the builder needs to assemble an unsigned
// transaction for one IBC operation.
type TxDescription struct {
	Operation  string
	Spends     []Spend
	References []UTXO
	Mints      []Mint
	Outputs    []Output
	// Signer is the address paying fees and receiving change.
	Signer string
	// ValidTo bounds the validity interval, zero means unbounded.
	ValidTo time.Time
}

// UnsignedTx is the builder's result: a complete transaction body in CBOR
// that still needs witnesses.
type UnsignedTx struct {
	CBOR []byte
	Hash string
}

// Builder turns a description into an unsigned transaction.
type Builder interface {
	Build(ctx context.Context, desc TxDescription) (UnsignedTx, error)
}
