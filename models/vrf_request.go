package models

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// RequestDiscriminator is the 8-byte tag at offset 0 of every randomness request account
var RequestDiscriminator = [8]byte{'R', 'E', 'Q', 'U', 'E', 'S', 'T', 0}

// minimum size of the borsh payload following the discriminator (empty callback data)
const minRequestPayloadLen = 32 + 32 + 32 + 4 + 8 + 1 + 4 + 8 + 1 + 4 + 32

type RequestStatus uint8

const (
	RequestPending RequestStatus = iota
	RequestFulfilled
	RequestCancelled
	RequestExpired
)

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestFulfilled:
		return "fulfilled"
	case RequestCancelled:
		return "cancelled"
	case RequestExpired:
		return "expired"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// RawAccount is an account returned by a program accounts scan
type RawAccount struct {
	Address solana.PublicKey
	Data    []byte
}

// RandomnessRequest is a decoded request account
type RandomnessRequest struct {
	Address          solana.PublicKey
	Subscription     solana.PublicKey
	Seed             []byte
	Requester        solana.PublicKey
	CallbackData     []byte
	RequestSlot      uint64
	Status           RequestStatus
	NumWords         uint32
	CallbackGasLimit uint64
	PoolID           uint8
	RequestIndex     uint32
	RequestID        [32]byte
}

func (r RandomnessRequest) IsPending() bool {
	return r.Status == RequestPending
}

// requestLayout mirrors the borsh layout written by the coordinator program
type requestLayout struct {
	Subscription     solana.PublicKey
	Seed             [32]byte
	Requester        solana.PublicKey
	CallbackData     []byte
	RequestSlot      uint64
	Status           uint8
	NumWords         uint32
	CallbackGasLimit uint64
	PoolID           uint8
	RequestIndex     uint32
	RequestID        [32]byte
}

// DecodeError is returned for accounts carrying the request discriminator whose payload can't be decoded
type DecodeError struct {
	Address solana.PublicKey
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed decoding request %s: %v", e.Address, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HasRequestDiscriminator reports whether data starts with the request tag
func HasRequestDiscriminator(data []byte) bool {
	return len(data) >= len(RequestDiscriminator) && bytes.Equal(data[:len(RequestDiscriminator)], RequestDiscriminator[:])
}

// DecodeRequest decodes a raw account into a RandomnessRequest.
// ok is false (with a nil error) when the account is not a request account at all.
func DecodeRequest(raw RawAccount) (req RandomnessRequest, ok bool, err error) {
	if !HasRequestDiscriminator(raw.Data) {
		return req, false, nil
	}

	payload := raw.Data[len(RequestDiscriminator):]
	if len(payload) < minRequestPayloadLen {
		return req, false, &DecodeError{
			Address: raw.Address,
			Err:     fmt.Errorf("payload too short: %d bytes, need at least %d", len(payload), minRequestPayloadLen),
		}
	}

	var layout requestLayout
	if err := bin.NewBorshDecoder(payload).Decode(&layout); err != nil {
		return req, false, &DecodeError{Address: raw.Address, Err: err}
	}

	status := RequestStatus(layout.Status)
	if status > RequestExpired {
		return req, false, &DecodeError{Address: raw.Address, Err: fmt.Errorf("invalid status %d", layout.Status)}
	}

	return RandomnessRequest{
		Address:          raw.Address,
		Subscription:     layout.Subscription,
		Seed:             append([]byte(nil), layout.Seed[:]...),
		Requester:        layout.Requester,
		CallbackData:     layout.CallbackData,
		RequestSlot:      layout.RequestSlot,
		Status:           status,
		NumWords:         layout.NumWords,
		CallbackGasLimit: layout.CallbackGasLimit,
		PoolID:           layout.PoolID,
		RequestIndex:     layout.RequestIndex,
		RequestID:        layout.RequestID,
	}, true, nil
}

// EncodeRequest produces the account data for req, discriminator included.
// The daemon never writes requests; this is used by tooling and tests.
func EncodeRequest(req RandomnessRequest) ([]byte, error) {
	if len(req.Seed) != 32 {
		return nil, fmt.Errorf("seed must be 32 bytes, got %d", len(req.Seed))
	}
	layout := requestLayout{
		Subscription:     req.Subscription,
		Requester:        req.Requester,
		CallbackData:     req.CallbackData,
		RequestSlot:      req.RequestSlot,
		Status:           uint8(req.Status),
		NumWords:         req.NumWords,
		CallbackGasLimit: req.CallbackGasLimit,
		PoolID:           req.PoolID,
		RequestIndex:     req.RequestIndex,
		RequestID:        req.RequestID,
	}
	if layout.CallbackData == nil {
		layout.CallbackData = []byte{}
	}
	copy(layout.Seed[:], req.Seed)

	buf := new(bytes.Buffer)
	buf.Write(RequestDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(&layout); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
