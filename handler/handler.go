// Package handler turns IBC transaction messages into unsigned ledger
// transactions. Handlers never sign or submit: they locate the tokens an
// operation touches, check the current state admits the transition, and
// describe the next datums and redeemers to the builder.
package handler

import (
	"bytes"
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/gogoproto/proto"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/merkle"
	"github.com/cardano-ibc/gateway/state"
	"github.com/cardano-ibc/gateway/types"
)

// DefaultValidity bounds how long a built transaction stays submittable.
const DefaultValidity = 10 * time.Minute

// UnsignedTx is the result of every transaction handler.
type UnsignedTx struct {
	CBOR []byte
	Hash string
	// ID is the identifier allocated by Init/Try and CreateClient calls.
	ID string
}

type Handler struct {
	reader   *state.Reader
	store    *merkle.Store
	builder  ledger.Builder
	logger   log.Logger
	validity time.Duration
	now      func() time.Time
}

type Option func(*Handler)

func WithValidity(d time.Duration) Option {
	return func(h *Handler) { h.validity = d }
}

// WithClock overrides the time source used for validity bounds and the
// host-state update time.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func New(reader *state.Reader, store *merkle.Store, builder ledger.Builder, logger log.Logger, opts ...Option) *Handler {
	h := &Handler{
		reader:   reader,
		store:    store,
		builder:  builder,
		logger:   logger.With("module", "handler"),
		validity: DefaultValidity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// plan accumulates one transaction. The first error sticks and is reported
// by submit.
type plan struct {
	op      string
	id      string
	signer  string
	spends  []ledger.Spend
	refs    []ledger.UTXO
	mints   []ledger.Mint
	outputs []ledger.Output
	remove  []string
	upsert  []merkle.Entry
	err     error
}

func newPlan(op, signer string) *plan {
	return &plan{op: op, signer: signer}
}

func (p *plan) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *plan) spend(u ledger.UTXO, v state.Validator, r datum.Redeemer) {
	bz, err := datum.EncodeRedeemer(r)
	if err != nil {
		p.fail(errorsmod.Wrapf(types.ErrInternal, "encoding %s spend redeemer: %s", p.op, err))
		return
	}
	p.spends = append(p.spends, ledger.Spend{UTXO: u, ScriptHash: v.ScriptHash, Redeemer: bz})
}

func (p *plan) reference(u ledger.UTXO) {
	p.refs = append(p.refs, u)
}

func (p *plan) mint(token identifier.AuthToken, r datum.Redeemer) {
	bz, err := datum.EncodeRedeemer(r)
	if err != nil {
		p.fail(errorsmod.Wrapf(types.ErrInternal, "encoding %s mint redeemer: %s", p.op, err))
		return
	}
	p.mints = append(p.mints, ledger.Mint{Token: token, Amount: 1, Redeemer: bz})
}

type encoder interface {
	Encode() ([]byte, error)
}

func (p *plan) output(address string, token identifier.AuthToken, d encoder) {
	bz, err := d.Encode()
	if err != nil {
		p.fail(errorsmod.Wrapf(types.ErrInternal, "encoding %s datum: %s", p.op, err))
		return
	}
	p.outputs = append(p.outputs, ledger.Output{Address: address, Tokens: []identifier.AuthToken{token}, Datum: bz})
}

// commit replaces the entries of one object in the state tree.
func (p *plan) commit(old, next []merkle.Entry) {
	p.remove = append(p.remove, state.Paths(old)...)
	p.upsert = append(p.upsert, next...)
}

// projected wraps a failed state projection.
func projected(entries []merkle.Entry, err error) ([]merkle.Entry, error) {
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInternal, "projecting state: %s", err)
	}
	return entries, nil
}

// submit spends the host state with the updated root and hands the
// description to the builder.
func (h *Handler) submit(ctx context.Context, p *plan) (UnsignedTx, error) {
	if p.err != nil {
		return UnsignedTx{}, p.err
	}
	if len(p.remove) > 0 || len(p.upsert) > 0 {
		tree, err := h.store.EnsureAligned(ctx)
		if err != nil {
			return UnsignedTx{}, err
		}
		next, err := tree.Update(p.remove, p.upsert)
		if err != nil {
			return UnsignedTx{}, err
		}
		if err := h.updateHostState(ctx, p, next.Root()); err != nil {
			return UnsignedTx{}, err
		}
	}
	if p.err != nil {
		return UnsignedTx{}, p.err
	}

	tx, err := h.builder.Build(ctx, ledger.TxDescription{
		Operation:  p.op,
		Spends:     p.spends,
		References: p.refs,
		Mints:      p.mints,
		Outputs:    p.outputs,
		Signer:     p.signer,
		ValidTo:    h.now().Add(h.validity),
	})
	if err != nil {
		return UnsignedTx{}, err
	}
	h.logger.Info("built transaction", "operation", p.op, "id", p.id, "hash", tx.Hash)
	return UnsignedTx{CBOR: tx.CBOR, Hash: tx.Hash, ID: p.id}, nil
}

// updateHostState spends the host-state output with root as the new
// committed root. An unchanged root leaves the host state alone.
func (h *Handler) updateHostState(ctx context.Context, p *plan, root []byte) error {
	host, err := h.reader.HostState(ctx)
	if err != nil {
		return err
	}
	if bytes.Equal(host.Datum.IBCStateRoot, root) {
		return nil
	}
	deploy := h.reader.Deployment()
	hd := host.Datum
	hd.Version++
	hd.IBCStateRoot = root
	hd.LastUpdateTime = uint64(h.now().UnixMilli())
	p.spend(host.UTXO, deploy.HostState, datum.UpdateHostState{})
	p.output(deploy.HostState.Address, deploy.HostStateToken, hd)
	return nil
}

// unpackAny decodes any into msg after checking its type URL.
func unpackAny(a *codectypes.Any, msg proto.Message, field string) error {
	if a == nil {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "%s is required", field)
	}
	want := "/" + proto.MessageName(msg)
	if a.TypeUrl != want {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "%s: expected %s, got %s", field, want, a.TypeUrl)
	}
	if err := proto.Unmarshal(a.Value, msg); err != nil {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "%s: %s", field, err)
	}
	return nil
}

// stateError reports an object found in a state that does not admit op.
func stateError(op, kind, id, want string, got fmt.Stringer) error {
	return errorsmod.Wrapf(types.ErrInternal, "%s: %s %s is in state %s, expected %s", op, kind, id, got, want)
}
