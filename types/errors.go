package types

import (
	errorsmod "cosmossdk.io/errors"
	"google.golang.org/grpc/codes"
)

// Codespace is the error namespace of the gateway.
const Codespace = "gateway"

// Error kinds crossing the transport boundary. Each kind maps to a fixed gRPC
// code; call sites add detail with Wrap/Wrapf so the message names the key or
// state that caused the failure.
var (
	// ErrInvalidArgument is returned for malformed or missing fields, wrong
	// identifier prefixes and pagination without a limit.
	ErrInvalidArgument = errorsmod.RegisterWithGRPCCode(Codespace, 2, codes.InvalidArgument, "invalid argument")

	// ErrNotFound is returned when no UTXO, block or consensus state exists
	// for the requested key.
	ErrNotFound = errorsmod.RegisterWithGRPCCode(Codespace, 3, codes.NotFound, "not found")

	// ErrInternal is returned when a state-machine precondition is violated.
	ErrInternal = errorsmod.RegisterWithGRPCCode(Codespace, 4, codes.Internal, "internal")

	// ErrProofGeneration is returned when a Merkle proof cannot be produced.
	ErrProofGeneration = errorsmod.RegisterWithGRPCCode(Codespace, 5, codes.Internal, "proof generation failed")

	// ErrTreeAlignment is returned when the in-memory tree cannot be brought
	// in line with the committed root.
	ErrTreeAlignment = errorsmod.RegisterWithGRPCCode(Codespace, 6, codes.Internal, "merkle tree not aligned with committed root")

	// ErrConflictingWrite is returned when a receipt, acknowledgement or
	// consensus state would be overwritten with different bytes.
	ErrConflictingWrite = errorsmod.RegisterWithGRPCCode(Codespace, 7, codes.Internal, "conflicting write")

	// ErrDecode is returned when a datum or redeemer cannot be decoded.
	ErrDecode = errorsmod.RegisterWithGRPCCode(Codespace, 8, codes.Internal, "datum decode failed")
)
