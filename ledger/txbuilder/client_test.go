package txbuilder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"

	"github.com/cardano-ibc/gateway/identifier"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/types"
)

func TestBuild(t *testing.T) {
	var got buildRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, buildPath, r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(buildResponse{CBORHex: "84a400", TxHash: "ff"})
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Timeout: time.Second, Attempts: 1}, log.NewNopLogger())
	token := identifier.AuthToken{PolicyID: []byte{0xab}, Name: []byte{0xcd}}
	tx, err := c.Build(context.Background(), ledger.TxDescription{
		Operation: "ConnectionOpenInit",
		Spends:    []ledger.Spend{{UTXO: ledger.UTXO{TxHash: "01", OutputIndex: 2}, Redeemer: []byte{0xd8}}},
		Mints:     []ledger.Mint{{Token: token, Amount: 1, Redeemer: []byte{0x80}}},
		Outputs:   []ledger.Output{{Address: "addr_test1", Tokens: []identifier.AuthToken{token}, Datum: []byte{0x01}}},
		ValidTo:   time.UnixMilli(1000),
	})
	require.NoError(t, err)
	require.Equal(t, []byte{0x84, 0xa4, 0x00}, tx.CBOR)
	require.Equal(t, "ff", tx.Hash)

	require.Equal(t, "ConnectionOpenInit", got.Operation)
	require.Equal(t, "d8", got.Spends[0].Redeemer)
	require.EqualValues(t, 2, got.Spends[0].OutputIndex)
	require.Equal(t, "ab", got.Mints[0].PolicyID)
	require.Equal(t, "cd", got.Outputs[0].Assets[0].AssetName)
	require.Equal(t, "01", got.Outputs[0].Datum)
	require.EqualValues(t, 1000, got.ValidTo)
	require.Empty(t, got.References)
}

func TestBuildRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient collateral", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Timeout: time.Second, Attempts: 3}, log.NewNopLogger())
	_, err := c.Build(context.Background(), ledger.TxDescription{Operation: "RecvPacket"})
	require.Error(t, err)
	require.True(t, errorsmod.IsOf(err, types.ErrInternal))
	require.Contains(t, err.Error(), "insufficient collateral")
}
