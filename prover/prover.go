package prover

import (
	"context"
	"encoding/hex"
	"errors"
)

var (
	// ErrProofGenerationFailed is returned when the prover could not produce a proof
	ErrProofGenerationFailed = errors.New("proof generation failed")
	// ErrVerification is returned when a proof could not be checked at all.
	// A proof that was checked and rejected is not an error.
	ErrVerification = errors.New("proof verification error")
	// ErrInvalidOutput is returned when the prover's answer is missing or malformed
	ErrInvalidOutput = errors.New("invalid prover output")
)

// Keypair is the oracle's VRF identity
type Keypair struct {
	SecretKey []byte
	PublicKey []byte
}

func (k Keypair) PublicKeyHex() string {
	return hex.EncodeToString(k.PublicKey)
}

// Proof is the artifact produced for a (secret key, seed) pair
type Proof struct {
	Proof     []byte
	Output    []byte
	PublicKey []byte
}

// Prover is the VRF capability the daemon depends on.
// Implementations may run in-process, as a subprocess or behind a network service.
type Prover interface {
	Keypair(ctx context.Context) (Keypair, error)
	Prove(ctx context.Context, secretKey, seed []byte) (Proof, error)
	Verify(ctx context.Context, proof Proof, seed []byte) (bool, error)
}
