package server

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/grpc-ecosystem/grpc-gateway/runtime"

	"github.com/cardano-ibc/gateway/handler"
	"github.com/cardano-ibc/gateway/metrics"
	"github.com/cardano-ibc/gateway/types"
)

// RoutePrefix roots the JSON routes of the queries and messages that have
// no ibc-go service.
const RoutePrefix = "/gateway/v1/"

type errorBody struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// TimeoutRefreshRequest is the JSON form of handler.MsgTimeoutRefresh.
type TimeoutRefreshRequest struct {
	PortID    string `json:"port_id"`
	ChannelID string `json:"channel_id"`
	Signer    string `json:"signer"`
}

// UnsignedTxResponse mirrors the Any returned by the Msg service.
type UnsignedTxResponse struct {
	TypeURL string `json:"type_url"`
	Value   string `json:"value"`
	Hash    string `json:"hash"`
	ID      string `json:"id,omitempty"`
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	q := s.querier
	mux.Handle(RoutePrefix+"latest_height", route(s, "LatestHeight", q.LatestHeight))
	mux.Handle(RoutePrefix+"new_client", route(s, "NewClient", q.NewClient))
	mux.Handle(RoutePrefix+"next_sequence_ack", route(s, "NextSequenceAck", q.NextSequenceAck))
	mux.Handle(RoutePrefix+"block_data", route(s, "BlockData", q.BlockData))
	mux.Handle(RoutePrefix+"block_results", route(s, "BlockResults", q.BlockResults))
	mux.Handle(RoutePrefix+"block_search", route(s, "BlockSearch", q.BlockSearch))
	mux.Handle(RoutePrefix+"transaction_by_hash", route(s, "TransactionByHash", q.TransactionByHash))
	mux.Handle(RoutePrefix+"timeout_refresh", route(s, "TimeoutRefresh", s.timeoutRefresh))
}

func (s *Server) timeoutRefresh(ctx context.Context, req *TimeoutRefreshRequest) (*UnsignedTxResponse, error) {
	tx, err := s.handler.TimeoutRefresh(ctx, &handler.MsgTimeoutRefresh{
		PortId:    req.PortID,
		ChannelId: req.ChannelID,
		Signer:    req.Signer,
	})
	if err != nil {
		return nil, err
	}
	return &UnsignedTxResponse{
		TypeURL: UnsignedTxTypeURL,
		Value:   hex.EncodeToString(tx.CBOR),
		Hash:    tx.Hash,
		ID:      tx.ID,
	}, nil
}

// route serves call as a JSON endpoint. The request is read from the body;
// an empty body is the zero request.
func route[Req, Res any](s *Server, name string, call func(context.Context, *Req) (*Res, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			w.Header().Set("Allow", "GET, POST")
			s.writeError(w, http.StatusMethodNotAllowed, errorsmod.Wrapf(types.ErrInvalidArgument, "method %s", r.Method))
			return
		}
		start := time.Now()
		res, err := decodeAndCall(s, r, call)
		s.metrics.IncrCounter(1, metrics.KeyRequest, name, metrics.Outcome(err))
		s.metrics.MeasureSince(start, metrics.KeyRequest, name)
		if err != nil {
			st := toStatus(err)
			s.logger.Debug("request failed", "route", name, "code", st.Code(), "err", err)
			s.writeError(w, runtime.HTTPStatusFromCode(st.Code()), err)
			return
		}
		s.writeJSON(w, http.StatusOK, res)
	})
}

func decodeAndCall[Req, Res any](s *Server, r *http.Request, call func(context.Context, *Req) (*Res, error)) (*Res, error) {
	var req Req
	if err := s.jsonPb.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return nil, errorsmod.Wrapf(types.ErrInvalidArgument, "decoding request: %s", err)
	}
	return call(r.Context(), &req)
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	st := toStatus(err)
	s.writeJSON(w, code, errorBody{Code: int32(st.Code()), Message: st.Message()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	bz, err := s.jsonPb.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal response", "err", err)
		code, bz = http.StatusInternalServerError, []byte(`{"code":13,"message":"marshal failure"}`)
	}
	w.Header().Set("Content-Type", s.jsonPb.ContentType())
	w.WriteHeader(code)
	if _, err := w.Write(bz); err != nil {
		s.logger.Debug("failed to write response", "err", err)
	}
}
