// Package txbuilder hands transaction descriptions to an external builder
// service that balances them and returns an unsigned transaction.
package txbuilder

import (
	"context"
	"encoding/hex"
	"net/http"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/pkg/errors"

	"github.com/cardano-ibc/gateway/internal/rpc"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/types"
)

const buildPath = "/build"

var _ ledger.Builder = (*Client)(nil)

type Config struct {
	Endpoint   string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

type Client struct {
	rpc    *rpc.Client
	logger log.Logger
}

func NewClient(cfg Config, logger log.Logger) *Client {
	logger = logger.With("module", "txbuilder")
	return &Client{
		rpc:    rpc.NewClient(cfg.Endpoint, cfg.Timeout, cfg.Attempts, cfg.RetryDelay, logger),
		logger: logger,
	}
}

type outRef struct {
	TxHash      string `json:"tx_hash"`
	OutputIndex uint32 `json:"output_index"`
}

type asset struct {
	PolicyID  string `json:"policy_id"`
	AssetName string `json:"asset_name"`
	Quantity  int64  `json:"quantity"`
}

type spend struct {
	outRef
	ScriptHash string `json:"script_hash,omitempty"`
	Redeemer   string `json:"redeemer,omitempty"`
}

type mint struct {
	asset
	Redeemer string `json:"redeemer"`
}

type output struct {
	Address string  `json:"address"`
	Assets  []asset `json:"assets"`
	Datum   string  `json:"datum,omitempty"`
}

type buildRequest struct {
	Operation  string   `json:"operation"`
	Signer     string   `json:"signer,omitempty"`
	ValidTo    int64    `json:"valid_to,omitempty"`
	Spends     []spend  `json:"spends"`
	References []outRef `json:"references"`
	Mints      []mint   `json:"mints"`
	Outputs    []output `json:"outputs"`
}

type buildResponse struct {
	CBORHex string `json:"cbor_hex"`
	TxHash  string `json:"tx_hash"`
}

func newBuildRequest(desc ledger.TxDescription) buildRequest {
	req := buildRequest{
		Operation:  desc.Operation,
		Signer:     desc.Signer,
		Spends:     make([]spend, 0, len(desc.Spends)),
		References: make([]outRef, 0, len(desc.References)),
		Mints:      make([]mint, 0, len(desc.Mints)),
		Outputs:    make([]output, 0, len(desc.Outputs)),
	}
	if !desc.ValidTo.IsZero() {
		req.ValidTo = desc.ValidTo.UnixMilli()
	}
	for _, s := range desc.Spends {
		req.Spends = append(req.Spends, spend{
			outRef:     outRef{TxHash: s.UTXO.TxHash, OutputIndex: s.UTXO.OutputIndex},
			ScriptHash: hex.EncodeToString(s.ScriptHash),
			Redeemer:   hex.EncodeToString(s.Redeemer),
		})
	}
	for _, r := range desc.References {
		req.References = append(req.References, outRef{TxHash: r.TxHash, OutputIndex: r.OutputIndex})
	}
	for _, m := range desc.Mints {
		req.Mints = append(req.Mints, mint{
			asset: asset{
				PolicyID:  hex.EncodeToString(m.Token.PolicyID),
				AssetName: hex.EncodeToString(m.Token.Name),
				Quantity:  m.Amount,
			},
			Redeemer: hex.EncodeToString(m.Redeemer),
		})
	}
	for _, o := range desc.Outputs {
		out := output{Address: o.Address, Datum: hex.EncodeToString(o.Datum), Assets: make([]asset, 0, len(o.Tokens))}
		for _, t := range o.Tokens {
			out.Assets = append(out.Assets, asset{
				PolicyID:  hex.EncodeToString(t.PolicyID),
				AssetName: hex.EncodeToString(t.Name),
				Quantity:  1,
			})
		}
		req.Outputs = append(req.Outputs, out)
	}
	return req
}

// Build submits desc to the builder. A rejection by the builder is an
// internal error carrying the builder's message.
func (c *Client) Build(ctx context.Context, desc ledger.TxDescription) (ledger.UnsignedTx, error) {
	var resp buildResponse
	if err := c.rpc.Do(ctx, http.MethodPost, buildPath, newBuildRequest(desc), &resp); err != nil {
		var serr *rpc.StatusError
		if errors.As(err, &serr) && serr.Status < 500 {
			return ledger.UnsignedTx{}, errorsmod.Wrapf(types.ErrInternal, "builder rejected %s: %s", desc.Operation, serr.Body)
		}
		return ledger.UnsignedTx{}, errors.Wrapf(err, "building %s", desc.Operation)
	}
	bz, err := hex.DecodeString(resp.CBORHex)
	if err != nil {
		return ledger.UnsignedTx{}, errors.Wrap(err, "decoding builder response")
	}
	c.logger.Debug("built unsigned tx", "operation", desc.Operation, "hash", resp.TxHash, "size", len(bz))
	return ledger.UnsignedTx{CBOR: bz, Hash: resp.TxHash}, nil
}
