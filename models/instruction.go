package models

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// FulfillRandomnessVariant is the index of FulfillRandomness in the coordinator's instruction enum
const FulfillRandomnessVariant uint8 = 3

// FulfillRandomness is the instruction payload that answers a request with a VRF proof
type FulfillRandomness struct {
	Proof     []byte
	PublicKey []byte
}

type fulfillRandomnessLayout struct {
	Variant   uint8
	Proof     []byte
	PublicKey []byte
}

// MarshalBorsh serializes the instruction as the program expects it: variant byte followed by the borsh fields
func (f FulfillRandomness) MarshalBorsh() ([]byte, error) {
	layout := fulfillRandomnessLayout{
		Variant:   FulfillRandomnessVariant,
		Proof:     f.Proof,
		PublicKey: f.PublicKey,
	}
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(&layout); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalFulfillRandomness is the inverse of MarshalBorsh
func UnmarshalFulfillRandomness(data []byte) (FulfillRandomness, error) {
	var layout fulfillRandomnessLayout
	if err := bin.NewBorshDecoder(data).Decode(&layout); err != nil {
		return FulfillRandomness{}, err
	}
	if layout.Variant != FulfillRandomnessVariant {
		return FulfillRandomness{}, fmt.Errorf("unexpected instruction variant %d", layout.Variant)
	}
	return FulfillRandomness{Proof: layout.Proof, PublicKey: layout.PublicKey}, nil
}
