// Package testutil provides an in-memory ledger for package tests.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/types"
)

var _ ledger.Index = (*Ledger)(nil)

// GenesisTime is the timestamp of block 1; each block adds one second.
var GenesisTime = time.Unix(1_700_000_000, 0).UTC()

type output struct {
	utxo  ledger.UTXO
	spent bool
}

// Ledger is a ledger.Index over outputs and transactions added by the test.
// Every mutation goes into the current block; NextBlock seals it.
type Ledger struct {
	mtx     sync.RWMutex
	blocks  []ledger.Block
	outputs []*output
	txs     map[string]ledger.Tx
	pools   map[uint64][]ledger.PoolUpdate
	nonce   uint64
}

// NewLedger returns a ledger positioned at block 1.
func NewLedger() *Ledger {
	l := &Ledger{
		txs:   make(map[string]ledger.Tx),
		pools: make(map[uint64][]ledger.PoolUpdate),
	}
	l.blocks = append(l.blocks, l.newBlock(1))
	return l
}

func (l *Ledger) newBlock(height uint64) ledger.Block {
	hash := sha256.Sum256(binary.BigEndian.AppendUint64(nil, height))
	return ledger.Block{
		Height: height,
		Hash:   hex.EncodeToString(hash[:]),
		Slot:   height * 20,
		Epoch:  height / 100,
		Time:   GenesisTime.Add(time.Duration(height-1) * time.Second),
	}
}

// Height is the current block.
func (l *Ledger) Height() uint64 {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.blocks[len(l.blocks)-1].Height
}

// NextBlock opens a new block and returns its height.
func (l *Ledger) NextBlock() uint64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	b := l.newBlock(uint64(len(l.blocks)) + 1)
	l.blocks = append(l.blocks, b)
	return b.Height
}

func (l *Ledger) nextTxHash() string {
	l.nonce++
	sum := sha256.Sum256([]byte(fmt.Sprintf("tx-%d", l.nonce)))
	return hex.EncodeToString(sum[:])
}

// Put records u as unspent in the current block. Missing tx hash and block
// number are filled in.
func (l *Ledger) Put(u ledger.UTXO) ledger.UTXO {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.put(u)
}

func (l *Ledger) put(u ledger.UTXO) ledger.UTXO {
	if u.TxHash == "" {
		u.TxHash = l.nextTxHash()
	}
	if u.BlockNo == 0 {
		u.BlockNo = l.blocks[len(l.blocks)-1].Height
	}
	l.outputs = append(l.outputs, &output{utxo: u})
	l.blocks[len(l.blocks)-1].TxCount++
	return u
}

// PutToken records an output at address holding token with datum.
func (l *Ledger) PutToken(address string, token identifier.AuthToken, datum []byte) ledger.UTXO {
	return l.Put(ledger.UTXO{
		Address: address,
		Assets:  []ledger.Asset{{PolicyID: token.PolicyID, Name: token.Name, Quantity: 1}},
		Datum:   datum,
	})
}

// Move spends the current holder of token and puts a new output at the
// same address with datum.
func (l *Ledger) Move(token identifier.AuthToken, datum []byte) (ledger.UTXO, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	o := l.holder(token)
	if o == nil {
		return ledger.UTXO{}, errorsmod.Wrapf(types.ErrNotFound, "no unspent output holds %s", token)
	}
	o.spent = true
	next := o.utxo
	next.TxHash, next.BlockNo, next.Datum = "", 0, datum
	return l.put(next), nil
}

// AddTx records tx in the current block.
func (l *Ledger) AddTx(tx ledger.Tx) ledger.Tx {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if tx.Hash == "" {
		tx.Hash = l.nextTxHash()
	}
	if tx.BlockNo == 0 {
		tx.BlockNo = l.blocks[len(l.blocks)-1].Height
	}
	l.txs[tx.Hash] = tx
	return tx
}

func (l *Ledger) AddPoolUpdate(height uint64, u ledger.PoolUpdate) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.pools[height] = append(l.pools[height], u)
}

func (l *Ledger) output(ref string) *output {
	for _, o := range l.outputs {
		if o.utxo.Ref() == ref {
			return o
		}
	}
	return nil
}

func (l *Ledger) holder(token identifier.AuthToken) *output {
	for i := len(l.outputs) - 1; i >= 0; i-- {
		o := l.outputs[i]
		if !o.spent && o.utxo.Holds(token) {
			return o
		}
	}
	return nil
}

func (l *Ledger) UTXOByToken(_ context.Context, token identifier.AuthToken) (ledger.UTXO, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	o := l.holder(token)
	if o == nil {
		return ledger.UTXO{}, errorsmod.Wrapf(types.ErrNotFound, "no unspent output holds %s", token)
	}
	return o.utxo, nil
}

func (l *Ledger) filter(keep func(*output) bool) []ledger.UTXO {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	var out []ledger.UTXO
	for _, o := range l.outputs {
		if keep(o) {
			out = append(out, o.utxo)
		}
	}
	return out
}

func holdsPolicy(u ledger.UTXO, policyID []byte, namePrefix []byte) bool {
	for _, a := range u.Assets {
		if string(a.PolicyID) == string(policyID) && len(a.Name) >= len(namePrefix) &&
			string(a.Name[:len(namePrefix)]) == string(namePrefix) {
			return true
		}
	}
	return false
}

func (l *Ledger) UTXOsByTokenPrefix(_ context.Context, policyID, namePrefix []byte) ([]ledger.UTXO, error) {
	return l.filter(func(o *output) bool {
		return !o.spent && holdsPolicy(o.utxo, policyID, namePrefix)
	}), nil
}

func (l *Ledger) UTXOsByPolicyAtBlock(_ context.Context, policyID []byte, height uint64) ([]ledger.UTXO, error) {
	return l.filter(func(o *output) bool {
		return o.utxo.BlockNo == height && holdsPolicy(o.utxo, policyID, nil)
	}), nil
}

func (l *Ledger) TokenHistory(_ context.Context, token identifier.AuthToken) ([]ledger.UTXO, error) {
	return l.filter(func(o *output) bool { return o.utxo.Holds(token) }), nil
}

func (l *Ledger) LatestBlock(context.Context) (ledger.Block, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.blocks[len(l.blocks)-1], nil
}

func (l *Ledger) BlockByHeight(_ context.Context, height uint64) (ledger.Block, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	if height == 0 || height > uint64(len(l.blocks)) {
		return ledger.Block{}, errorsmod.Wrapf(types.ErrNotFound, "block %d", height)
	}
	return l.blocks[height-1], nil
}

func (l *Ledger) TxByHash(_ context.Context, hash string) (ledger.Tx, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	tx, ok := l.txs[hash]
	if ok {
		return tx, nil
	}
	// outputs put without an explicit tx still resolve to a tx
	var outs []ledger.UTXO
	for _, o := range l.outputs {
		if o.utxo.TxHash == hash {
			outs = append(outs, o.utxo)
		}
	}
	if len(outs) == 0 {
		return ledger.Tx{}, errorsmod.Wrapf(types.ErrNotFound, "tx %s", hash)
	}
	sort.Slice(outs, func(i, j int) bool { return outs[i].OutputIndex < outs[j].OutputIndex })
	return ledger.Tx{Hash: hash, BlockNo: outs[0].BlockNo, Outputs: outs}, nil
}

func (l *Ledger) PoolUpdatesAtBlock(_ context.Context, height uint64) ([]ledger.PoolUpdate, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return append([]ledger.PoolUpdate(nil), l.pools[height]...), nil
}

// Builder applies every description straight to a Ledger in a fresh block,
// standing in for build, sign and submit.
type Builder struct {
	Ledger *Ledger

	mtx   sync.Mutex
	Built []ledger.TxDescription
}

var _ ledger.Builder = (*Builder)(nil)

func (b *Builder) Build(_ context.Context, desc ledger.TxDescription) (ledger.UnsignedTx, error) {
	b.mtx.Lock()
	b.Built = append(b.Built, desc)
	b.mtx.Unlock()

	l := b.Ledger
	l.NextBlock()
	l.mtx.Lock()
	defer l.mtx.Unlock()

	tx := ledger.Tx{Hash: l.nextTxHash(), BlockNo: l.blocks[len(l.blocks)-1].Height}
	spent := make([]*output, 0, len(desc.Spends))
	for _, s := range desc.Spends {
		o := l.output(s.UTXO.Ref())
		if o == nil || o.spent {
			return ledger.UnsignedTx{}, errorsmod.Wrapf(types.ErrInternal, "%s is not spendable", s.UTXO.Ref())
		}
		spent = append(spent, o)
	}
	for _, o := range spent {
		o.spent = true
	}
	for _, s := range desc.Spends {
		if s.Redeemer != nil {
			tx.Redeemers = append(tx.Redeemers, ledger.Redeemer{Purpose: ledger.PurposeSpend, ScriptHash: s.ScriptHash, Data: s.Redeemer})
		}
	}
	for _, m := range desc.Mints {
		tx.Mints = append(tx.Mints, ledger.Asset{PolicyID: m.Token.PolicyID, Name: m.Token.Name, Quantity: m.Amount})
		tx.Redeemers = append(tx.Redeemers, ledger.Redeemer{Purpose: ledger.PurposeMint, ScriptHash: m.Token.PolicyID, Data: m.Redeemer})
	}
	for i, o := range desc.Outputs {
		u := ledger.UTXO{TxHash: tx.Hash, OutputIndex: uint32(i), Address: o.Address, Datum: o.Datum}
		for _, t := range o.Tokens {
			u.Assets = append(u.Assets, ledger.Asset{PolicyID: t.PolicyID, Name: t.Name, Quantity: 1})
		}
		tx.Outputs = append(tx.Outputs, l.put(u))
	}
	l.txs[tx.Hash] = tx

	raw, _ := hex.DecodeString(tx.Hash)
	return ledger.UnsignedTx{CBOR: raw, Hash: tx.Hash}, nil
}
