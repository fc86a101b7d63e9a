// Package state locates IBC objects on the ledger by their auth tokens and
// decodes their datums.
package state

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"golang.org/x/sync/errgroup"

	"github.com/cardano-ibc/gateway/datum"
	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/merkle"
	"github.com/cardano-ibc/gateway/types"
)

// Object is an IBC object together with the output currently holding it.
type Object[T any] struct {
	ID    string
	UTXO  ledger.UTXO
	Datum T
}

// Reader answers "which output holds token X" questions and decodes what
// it finds. It is safe for concurrent use.
type Reader struct {
	index  ledger.Index
	cache  *ledger.DatumCache
	deploy Deployment
	logger log.Logger
}

var _ merkle.Source = (*Reader)(nil)

// NewReader returns a reader; cache may be nil.
func NewReader(index ledger.Index, cache *ledger.DatumCache, deploy Deployment, logger log.Logger) *Reader {
	return &Reader{index: index, cache: cache, deploy: deploy, logger: logger.With("module", "state")}
}

func (r *Reader) Deployment() Deployment { return r.deploy }

func (r *Reader) Index() ledger.Index { return r.index }

func lookup[T any](ctx context.Context, r *Reader, id string, token identifier.AuthToken, schema string, decode func([]byte) (T, error)) (Object[T], error) {
	u, err := r.index.UTXOByToken(ctx, token)
	if err != nil {
		if errorsmod.IsOf(err, types.ErrNotFound) {
			return Object[T]{}, errorsmod.Wrapf(types.ErrNotFound, "%s %s", schema, id)
		}
		return Object[T]{}, err
	}
	d, err := ledger.Decode(r.cache, u, schema, decode)
	if err != nil {
		return Object[T]{}, errorsmod.Wrapf(err, "%s %s at %s", schema, id, u.Ref())
	}
	return Object[T]{ID: id, UTXO: u, Datum: d}, nil
}

func (r *Reader) Handler(ctx context.Context) (Object[datum.HandlerDatum], error) {
	return lookup(ctx, r, "handler", r.deploy.HandlerToken, "handler", datum.DecodeHandlerDatum)
}

func (r *Reader) HostState(ctx context.Context) (Object[datum.HostStateDatum], error) {
	return lookup(ctx, r, "host", r.deploy.HostStateToken, "host state", datum.DecodeHostStateDatum)
}

func (r *Reader) Client(ctx context.Context, clientID string) (Object[datum.ClientDatum], error) {
	seq, err := identifier.ParseClientID(clientID)
	if err != nil {
		return Object[datum.ClientDatum]{}, err
	}
	token, err := r.deploy.ClientToken(seq)
	if err != nil {
		return Object[datum.ClientDatum]{}, err
	}
	return lookup(ctx, r, clientID, token, "client", datum.DecodeClientDatum)
}

func (r *Reader) Connection(ctx context.Context, connectionID string) (Object[datum.ConnectionDatum], error) {
	seq, err := identifier.ParseConnectionID(connectionID)
	if err != nil {
		return Object[datum.ConnectionDatum]{}, err
	}
	token, err := r.deploy.ConnectionToken(seq)
	if err != nil {
		return Object[datum.ConnectionDatum]{}, err
	}
	return lookup(ctx, r, connectionID, token, "connection", datum.DecodeConnectionDatum)
}

// Channel returns the channel channelID, which must be bound to portID.
func (r *Reader) Channel(ctx context.Context, portID, channelID string) (Object[datum.ChannelDatum], error) {
	seq, err := identifier.ParseChannelID(channelID)
	if err != nil {
		return Object[datum.ChannelDatum]{}, err
	}
	if _, err := identifier.ParsePortID(portID); err != nil {
		return Object[datum.ChannelDatum]{}, err
	}
	token, err := r.deploy.ChannelToken(seq)
	if err != nil {
		return Object[datum.ChannelDatum]{}, err
	}
	obj, err := lookup(ctx, r, channelID, token, "channel", datum.DecodeChannelDatum)
	if err != nil {
		return obj, err
	}
	if obj.Datum.Port != portID {
		return Object[datum.ChannelDatum]{}, errorsmod.Wrapf(types.ErrNotFound, "channel %s is not bound to port %s", channelID, portID)
	}
	return obj, nil
}

// Module returns the module bound to portID and its datum.
func (r *Reader) Module(ctx context.Context, portID string) (Module, Object[datum.ModuleDatum], error) {
	m, err := r.deploy.Module(portID)
	if err != nil {
		return m, Object[datum.ModuleDatum]{}, err
	}
	obj, err := lookup(ctx, r, portID, m.Token, "module", datum.DecodeModuleDatum)
	return m, obj, err
}

func list[T any](ctx context.Context, r *Reader, policy []byte, prefix, schema string, id func(uint64) string, decode func([]byte) (T, error)) ([]Object[T], error) {
	utxos, err := r.index.UTXOsByTokenPrefix(ctx, policy, identifier.NamePrefix(r.deploy.HandlerToken, prefix))
	if err != nil {
		return nil, err
	}
	return decodeObjects(r, utxos, policy, prefix, schema, id, decode)
}

// decodeObjects keeps the outputs carrying an object token of policy and
// decodes their datums.
func decodeObjects[T any](r *Reader, utxos []ledger.UTXO, policy []byte, prefix, schema string, id func(uint64) string, decode func([]byte) (T, error)) ([]Object[T], error) {
	out := make([]Object[T], 0, len(utxos))
	for _, u := range utxos {
		seq, ok := objectSequence(u, policy, r.deploy.HandlerToken, prefix)
		if !ok {
			continue
		}
		d, err := ledger.Decode(r.cache, u, schema, decode)
		if err != nil {
			return nil, errorsmod.Wrapf(err, "%s at %s", schema, u.Ref())
		}
		out = append(out, Object[T]{ID: id(seq), UTXO: u, Datum: d})
	}
	return out, nil
}

func objectSequence(u ledger.UTXO, policy []byte, base identifier.AuthToken, prefix string) (uint64, bool) {
	for _, a := range u.Assets {
		if string(a.PolicyID) != string(policy) {
			continue
		}
		if seq, ok := identifier.ParseSequence(a.Name, base, prefix); ok {
			return seq, true
		}
	}
	return 0, false
}

func (r *Reader) Clients(ctx context.Context) ([]Object[datum.ClientDatum], error) {
	return list(ctx, r, r.deploy.ClientPolicy, identifier.ClientTokenPrefix, "client", identifier.ClientID, datum.DecodeClientDatum)
}

func (r *Reader) Connections(ctx context.Context) ([]Object[datum.ConnectionDatum], error) {
	return list(ctx, r, r.deploy.ConnectionPolicy, identifier.ConnectionTokenPrefix, "connection", identifier.ConnectionID, datum.DecodeConnectionDatum)
}

func (r *Reader) Channels(ctx context.Context) ([]Object[datum.ChannelDatum], error) {
	return list(ctx, r, r.deploy.ChannelPolicy, identifier.ChannelTokenPrefix, "channel", identifier.ChannelID, datum.DecodeChannelDatum)
}

// ClientsAtBlock returns the client outputs created in block height,
// including ones spent since.
func (r *Reader) ClientsAtBlock(ctx context.Context, height uint64) ([]Object[datum.ClientDatum], error) {
	utxos, err := r.index.UTXOsByPolicyAtBlock(ctx, r.deploy.ClientPolicy, height)
	if err != nil {
		return nil, err
	}
	return decodeObjects(r, utxos, r.deploy.ClientPolicy, identifier.ClientTokenPrefix, "client", identifier.ClientID, datum.DecodeClientDatum)
}

func (r *Reader) ConnectionsAtBlock(ctx context.Context, height uint64) ([]Object[datum.ConnectionDatum], error) {
	utxos, err := r.index.UTXOsByPolicyAtBlock(ctx, r.deploy.ConnectionPolicy, height)
	if err != nil {
		return nil, err
	}
	return decodeObjects(r, utxos, r.deploy.ConnectionPolicy, identifier.ConnectionTokenPrefix, "connection", identifier.ConnectionID, datum.DecodeConnectionDatum)
}

func (r *Reader) ChannelsAtBlock(ctx context.Context, height uint64) ([]Object[datum.ChannelDatum], error) {
	utxos, err := r.index.UTXOsByPolicyAtBlock(ctx, r.deploy.ChannelPolicy, height)
	if err != nil {
		return nil, err
	}
	return decodeObjects(r, utxos, r.deploy.ChannelPolicy, identifier.ChannelTokenPrefix, "channel", identifier.ChannelID, datum.DecodeChannelDatum)
}

// ChannelHistory returns every output that ever held the token of
// channelID, oldest first.
func (r *Reader) ChannelHistory(ctx context.Context, channelID string) ([]Object[datum.ChannelDatum], error) {
	seq, err := identifier.ParseChannelID(channelID)
	if err != nil {
		return nil, err
	}
	token, err := r.deploy.ChannelToken(seq)
	if err != nil {
		return nil, err
	}
	utxos, err := r.index.TokenHistory(ctx, token)
	if err != nil {
		return nil, err
	}
	return decodeObjects(r, utxos, r.deploy.ChannelPolicy, identifier.ChannelTokenPrefix, "channel", identifier.ChannelID, datum.DecodeChannelDatum)
}

// Touched groups the IBC objects held by a set of outputs.
type Touched struct {
	Clients     []Object[datum.ClientDatum]
	Connections []Object[datum.ConnectionDatum]
	Channels    []Object[datum.ChannelDatum]
}

// Empty reports whether no object was found.
func (t Touched) Empty() bool {
	return len(t.Clients) == 0 && len(t.Connections) == 0 && len(t.Channels) == 0
}

// Touched picks the client, connection and channel outputs out of utxos,
// typically the outputs of one transaction.
func (r *Reader) Touched(utxos []ledger.UTXO) (Touched, error) {
	var (
		t   Touched
		err error
	)
	if t.Clients, err = decodeObjects(r, utxos, r.deploy.ClientPolicy, identifier.ClientTokenPrefix, "client", identifier.ClientID, datum.DecodeClientDatum); err != nil {
		return t, err
	}
	if t.Connections, err = decodeObjects(r, utxos, r.deploy.ConnectionPolicy, identifier.ConnectionTokenPrefix, "connection", identifier.ConnectionID, datum.DecodeConnectionDatum); err != nil {
		return t, err
	}
	t.Channels, err = decodeObjects(r, utxos, r.deploy.ChannelPolicy, identifier.ChannelTokenPrefix, "channel", identifier.ChannelID, datum.DecodeChannelDatum)
	return t, err
}

// CommittedRoot is the IBC state root held by the host-state datum.
func (r *Reader) CommittedRoot(ctx context.Context) ([]byte, error) {
	hs, err := r.HostState(ctx)
	if err != nil {
		return nil, err
	}
	return hs.Datum.IBCStateRoot, nil
}

// CommittedRootAt is the IBC state root the host-state datum held at the
// end of block height.
func (r *Reader) CommittedRootAt(ctx context.Context, height uint64) ([]byte, error) {
	history, err := r.index.TokenHistory(ctx, r.deploy.HostStateToken)
	if err != nil {
		return nil, err
	}
	found := -1
	for i, u := range history {
		if u.BlockNo <= height {
			found = i
		}
	}
	if found < 0 {
		return nil, errorsmod.Wrapf(types.ErrNotFound, "host state at or before block %d", height)
	}
	u := history[found]
	hs, err := ledger.Decode(r.cache, u, "host state", datum.DecodeHostStateDatum)
	if err != nil {
		return nil, errorsmod.Wrapf(err, "host state at %s", u.Ref())
	}
	return hs.IBCStateRoot, nil
}

// Entries projects every live client, connection and channel onto its
// host paths. The three object kinds are fetched concurrently.
func (r *Reader) Entries(ctx context.Context) ([]merkle.Entry, error) {
	var (
		mtx     sync.Mutex
		entries []merkle.Entry
	)
	collect := func(es []merkle.Entry) {
		mtx.Lock()
		entries = append(entries, es...)
		mtx.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		clients, err := r.Clients(ctx)
		if err != nil {
			return err
		}
		for _, c := range clients {
			es, err := ClientEntries(c.ID, c.Datum.State)
			if err != nil {
				return err
			}
			collect(es)
		}
		return nil
	})
	g.Go(func() error {
		conns, err := r.Connections(ctx)
		if err != nil {
			return err
		}
		for _, c := range conns {
			es, err := ConnectionEntries(c.ID, c.Datum.State)
			if err != nil {
				return err
			}
			collect(es)
		}
		return nil
	})
	g.Go(func() error {
		chans, err := r.Channels(ctx)
		if err != nil {
			return err
		}
		for _, c := range chans {
			es, err := ChannelEntries(c.Datum.Port, c.ID, c.Datum.State)
			if err != nil {
				return err
			}
			collect(es)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.logger.Debug("projected ledger state", "entries", len(entries))
	return entries, nil
}
