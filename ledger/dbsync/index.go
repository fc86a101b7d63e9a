// Package dbsync implements ledger.Index on top of a cardano-db-sync
// Postgres database.
package dbsync

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/types"
)

var _ ledger.Index = (*Index)(nil)

type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// Index answers ledger queries with SQL against the db-sync schema.
type Index struct {
	db     *sql.DB
	logger log.Logger
}

// Open connects to Postgres and checks the connection.
func Open(ctx context.Context, cfg Config, logger log.Logger) (*Index, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening db-sync database")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connecting to db-sync database")
	}
	return New(db, logger), nil
}

// New wraps an existing handle.
func New(db *sql.DB, logger log.Logger) *Index {
	return &Index{db: db, logger: logger.With("module", "dbsync")}
}

func (x *Index) Close() error {
	return x.db.Close()
}

const selectOutputs = `
SELECT o.id, encode(t.hash, 'hex'), o.index, o.address, d.bytes, b.block_no
FROM tx_out o
JOIN tx t ON t.id = o.tx_id
JOIN block b ON b.id = t.block_id
LEFT JOIN datum d ON d.id = o.inline_datum_id
`

const unspent = `
NOT EXISTS (SELECT 1 FROM tx_in i WHERE i.tx_out_id = o.tx_id AND i.tx_out_index = o.index)
`

const holdsAsset = `
EXISTS (SELECT 1 FROM ma_tx_out mo JOIN multi_asset ma ON ma.id = mo.ident
        WHERE mo.tx_out_id = o.id AND ma.policy = $1 %s)
`

func holding(nameClause string) string {
	return fmt.Sprintf(holdsAsset, nameClause)
}

func (x *Index) UTXOByToken(ctx context.Context, token identifier.AuthToken) (ledger.UTXO, error) {
	query := selectOutputs + "WHERE " + holding("AND ma.name = $2") + " AND " + unspent + " ORDER BY o.id DESC LIMIT 1"
	utxos, err := x.outputs(ctx, query, token.PolicyID, token.Name)
	if err != nil {
		return ledger.UTXO{}, err
	}
	if len(utxos) == 0 {
		return ledger.UTXO{}, errorsmod.Wrapf(types.ErrNotFound, "no unspent output holds %s", token)
	}
	return utxos[0], nil
}

func (x *Index) UTXOsByTokenPrefix(ctx context.Context, policyID, namePrefix []byte) ([]ledger.UTXO, error) {
	query := selectOutputs + "WHERE " + holding("AND substring(ma.name from 1 for $3) = $2") + " AND " + unspent + " ORDER BY o.id"
	return x.outputs(ctx, query, policyID, namePrefix, len(namePrefix))
}

func (x *Index) UTXOsByPolicyAtBlock(ctx context.Context, policyID []byte, height uint64) ([]ledger.UTXO, error) {
	query := selectOutputs + "WHERE " + holding("") + " AND b.block_no = $2 ORDER BY o.id"
	return x.outputs(ctx, query, policyID, int64(height))
}

func (x *Index) TokenHistory(ctx context.Context, token identifier.AuthToken) ([]ledger.UTXO, error) {
	query := selectOutputs + "WHERE " + holding("AND ma.name = $2") + " ORDER BY o.id"
	return x.outputs(ctx, query, token.PolicyID, token.Name)
}

const selectBlock = `
SELECT block_no, encode(hash, 'hex'), slot_no, epoch_no, time, tx_count FROM block
`

func (x *Index) LatestBlock(ctx context.Context) (ledger.Block, error) {
	return x.block(ctx, "latest block", selectBlock+"WHERE block_no IS NOT NULL ORDER BY block_no DESC LIMIT 1")
}

func (x *Index) BlockByHeight(ctx context.Context, height uint64) (ledger.Block, error) {
	return x.block(ctx, fmt.Sprintf("block %d", height), selectBlock+"WHERE block_no = $1", int64(height))
}

func (x *Index) block(ctx context.Context, what, query string, args ...any) (ledger.Block, error) {
	var (
		b                   ledger.Block
		height, slot, epoch sql.NullInt64
		txCount             int64
	)
	err := x.db.QueryRowContext(ctx, query, args...).Scan(&height, &b.Hash, &slot, &epoch, &b.Time, &txCount)
	if errors.Is(err, sql.ErrNoRows) {
		return b, errorsmod.Wrap(types.ErrNotFound, what)
	}
	if err != nil {
		return b, errors.Wrap(err, "querying block")
	}
	b.Height = uint64(height.Int64)
	b.Slot = uint64(slot.Int64)
	b.Epoch = uint64(epoch.Int64)
	b.TxCount = uint64(txCount)
	return b, nil
}

func (x *Index) TxByHash(ctx context.Context, hash string) (ledger.Tx, error) {
	raw, err := hex.DecodeString(hash)
	if err != nil {
		return ledger.Tx{}, errorsmod.Wrapf(types.ErrInvalidArgument, "tx hash %q is not hex", hash)
	}
	var (
		tx    = ledger.Tx{Hash: hash}
		txID  int64
		block int64
		fee   int64
	)
	err = x.db.QueryRowContext(ctx,
		`SELECT t.id, b.block_no, t.fee FROM tx t JOIN block b ON b.id = t.block_id WHERE t.hash = $1`, raw,
	).Scan(&txID, &block, &fee)
	if errors.Is(err, sql.ErrNoRows) {
		return tx, errorsmod.Wrapf(types.ErrNotFound, "tx %s", hash)
	}
	if err != nil {
		return tx, errors.Wrap(err, "querying tx")
	}
	tx.BlockNo = uint64(block)
	tx.Fee = uint64(fee)

	if tx.Outputs, err = x.outputs(ctx, selectOutputs+"WHERE o.tx_id = $1 ORDER BY o.index", txID); err != nil {
		return tx, err
	}
	if tx.Mints, err = x.mints(ctx, txID); err != nil {
		return tx, err
	}
	if tx.Redeemers, err = x.redeemers(ctx, txID); err != nil {
		return tx, err
	}
	return tx, nil
}

func (x *Index) mints(ctx context.Context, txID int64) ([]ledger.Asset, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT ma.policy, ma.name, m.quantity FROM ma_tx_mint m JOIN multi_asset ma ON ma.id = m.ident WHERE m.tx_id = $1 ORDER BY m.id`, txID)
	if err != nil {
		return nil, errors.Wrap(err, "querying mints")
	}
	defer rows.Close()
	var assets []ledger.Asset
	for rows.Next() {
		var a ledger.Asset
		if err := rows.Scan(&a.PolicyID, &a.Name, &a.Quantity); err != nil {
			return nil, errors.Wrap(err, "scanning mint")
		}
		assets = append(assets, a)
	}
	return assets, errors.Wrap(rows.Err(), "iterating mints")
}

func (x *Index) redeemers(ctx context.Context, txID int64) ([]ledger.Redeemer, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT r.purpose, r.script_hash, rd.bytes FROM redeemer r JOIN redeemer_data rd ON rd.id = r.redeemer_data_id WHERE r.tx_id = $1 ORDER BY r.id`, txID)
	if err != nil {
		return nil, errors.Wrap(err, "querying redeemers")
	}
	defer rows.Close()
	var out []ledger.Redeemer
	for rows.Next() {
		var (
			r       ledger.Redeemer
			purpose string
		)
		if err := rows.Scan(&purpose, &r.ScriptHash, &r.Data); err != nil {
			return nil, errors.Wrap(err, "scanning redeemer")
		}
		r.Purpose = ledger.RedeemerPurpose(purpose)
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterating redeemers")
}

const selectPoolUpdates = `
SELECT ph.view, pu.vrf_key_hash, pu.pledge, false, encode(t.hash, 'hex')
FROM pool_update pu
JOIN pool_hash ph ON ph.id = pu.hash_id
JOIN tx t ON t.id = pu.registered_tx_id
JOIN block b ON b.id = t.block_id
WHERE b.block_no = $1
UNION ALL
SELECT ph.view, NULL, 0, true, encode(t.hash, 'hex')
FROM pool_retire pr
JOIN pool_hash ph ON ph.id = pr.hash_id
JOIN tx t ON t.id = pr.announced_tx_id
JOIN block b ON b.id = t.block_id
WHERE b.block_no = $1
`

func (x *Index) PoolUpdatesAtBlock(ctx context.Context, height uint64) ([]ledger.PoolUpdate, error) {
	rows, err := x.db.QueryContext(ctx, selectPoolUpdates, int64(height))
	if err != nil {
		return nil, errors.Wrap(err, "querying pool updates")
	}
	defer rows.Close()
	var out []ledger.PoolUpdate
	for rows.Next() {
		var (
			u      ledger.PoolUpdate
			pledge sql.NullInt64
		)
		if err := rows.Scan(&u.PoolID, &u.VRFKey, &pledge, &u.Retiring, &u.TxHash); err != nil {
			return nil, errors.Wrap(err, "scanning pool update")
		}
		u.Pledge = uint64(pledge.Int64)
		out = append(out, u)
	}
	return out, errors.Wrap(rows.Err(), "iterating pool updates")
}

// outputs runs an output query and attaches the assets of every row.
func (x *Index) outputs(ctx context.Context, query string, args ...any) ([]ledger.UTXO, error) {
	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying outputs")
	}
	defer rows.Close()

	var (
		utxos []ledger.UTXO
		ids   []int64
	)
	for rows.Next() {
		var (
			u     ledger.UTXO
			id    int64
			index int64
			block int64
		)
		if err := rows.Scan(&id, &u.TxHash, &index, &u.Address, &u.Datum, &block); err != nil {
			return nil, errors.Wrap(err, "scanning output")
		}
		u.OutputIndex = uint32(index)
		u.BlockNo = uint64(block)
		utxos = append(utxos, u)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating outputs")
	}
	if len(ids) == 0 {
		return utxos, nil
	}
	assets, err := x.assets(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		utxos[i].Assets = assets[id]
	}
	return utxos, nil
}

func (x *Index) assets(ctx context.Context, outputIDs []int64) (map[int64][]ledger.Asset, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT mo.tx_out_id, ma.policy, ma.name, mo.quantity FROM ma_tx_out mo JOIN multi_asset ma ON ma.id = mo.ident WHERE mo.tx_out_id = ANY($1) ORDER BY mo.id`,
		pq.Array(outputIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying assets")
	}
	defer rows.Close()
	out := make(map[int64][]ledger.Asset, len(outputIDs))
	for rows.Next() {
		var (
			id int64
			a  ledger.Asset
		)
		if err := rows.Scan(&id, &a.PolicyID, &a.Name, &a.Quantity); err != nil {
			return nil, errors.Wrap(err, "scanning asset")
		}
		out[id] = append(out[id], a)
	}
	return out, errors.Wrap(rows.Err(), "iterating assets")
}
