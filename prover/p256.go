package prover

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/keytransparency/core/crypto/vrf/p256"
	log "github.com/sirupsen/logrus"
)

const (
	p256SecretKeyLen = 32
	p256PublicKeyLen = 65 // uncompressed point
)

// P256Prover computes ECVRF proofs over P-256 in-process.
// Secret keys are 32-byte big-endian scalars, public keys uncompressed points.
type P256Prover struct{}

func NewP256Prover() *P256Prover {
	return &P256Prover{}
}

// Keypair generates a fresh VRF keypair
func (p *P256Prover) Keypair(_ context.Context) (Keypair, error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("%w: generating key: %v", ErrProofGenerationFailed, err)
	}
	log.Debugf("generated VRF keypair, public key: %x", key.PublicKey().Bytes())
	return Keypair{SecretKey: key.Bytes(), PublicKey: key.PublicKey().Bytes()}, nil
}

// DerivePublicKey returns the public key belonging to secretKey. The derivation is deterministic.
func DerivePublicKey(secretKey []byte) ([]byte, error) {
	key, err := ecdh.P256().NewPrivateKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: bad secret key: %v", ErrInvalidOutput, err)
	}
	return key.PublicKey().Bytes(), nil
}

// KeypairFromSecret rebuilds a Keypair from a stored secret key
func KeypairFromSecret(secretKey []byte) (Keypair, error) {
	pub, err := DerivePublicKey(secretKey)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{SecretKey: append([]byte(nil), secretKey...), PublicKey: pub}, nil
}

func (p *P256Prover) Prove(_ context.Context, secretKey, seed []byte) (Proof, error) {
	if len(secretKey) != p256SecretKeyLen {
		return Proof{}, fmt.Errorf("%w: secret key must be %d bytes, got %d",
			ErrProofGenerationFailed, p256SecretKeyLen, len(secretKey))
	}
	key, err := ecdh.P256().NewPrivateKey(secretKey)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: %v", ErrProofGenerationFailed, err)
	}
	pub := key.PublicKey().Bytes()

	x, y := splitPoint(pub)
	signer, err := p256.NewVRFSigner(&ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y},
		D:         new(big.Int).SetBytes(secretKey),
	})
	if err != nil {
		return Proof{}, fmt.Errorf("%w: %v", ErrProofGenerationFailed, err)
	}

	output, proof := signer.Evaluate(seed)
	return Proof{Proof: proof, Output: output[:], PublicKey: pub}, nil
}

// Verify checks proof against seed. A rejected proof returns (false, nil).
func (p *P256Prover) Verify(_ context.Context, proof Proof, seed []byte) (bool, error) {
	if len(proof.PublicKey) != p256PublicKeyLen {
		return false, fmt.Errorf("%w: public key must be %d bytes, got %d",
			ErrInvalidOutput, p256PublicKeyLen, len(proof.PublicKey))
	}
	if _, err := ecdh.P256().NewPublicKey(proof.PublicKey); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	x, y := splitPoint(proof.PublicKey)
	verifier, err := p256.NewVRFVerifier(&ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	output, err := verifier.ProofToHash(seed, proof.Proof)
	if err != nil {
		log.Debugf("vrf proof rejected: %v", err)
		return false, nil
	}
	return bytes.Equal(output[:], proof.Output), nil
}

// splitPoint takes the affine coordinates out of an uncompressed point
func splitPoint(point []byte) (*big.Int, *big.Int) {
	size := (len(point) - 1) / 2
	return new(big.Int).SetBytes(point[1 : 1+size]), new(big.Int).SetBytes(point[1+size:])
}
