package daemon

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ori-shem-tov/solana-vrf-oracle/models"
	"github.com/ori-shem-tov/solana-vrf-oracle/prover"
)

// VRFResultSeed prefixes the request address when deriving the result account
var VRFResultSeed = []byte("vrf_result")

// DeriveResultAddress returns the program derived address holding the result of request
func DeriveResultAddress(programID, request solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{VRFResultSeed, request[:]}, programID)
}

// BuildFulfillInstruction assembles the FulfillRandomness instruction.
// The account order is part of the coordinator program's interface.
func BuildFulfillInstruction(programID, oracle solana.PublicKey, req models.RandomnessRequest,
	proof prover.Proof) (*solana.GenericInstruction, error) {

	resultAddr, _, err := DeriveResultAddress(programID, req.Address)
	if err != nil {
		return nil, fmt.Errorf("failed deriving result address for %s: %w", req.Address, err)
	}

	data, err := models.FulfillRandomness{Proof: proof.Proof, PublicKey: proof.PublicKey}.MarshalBorsh()
	if err != nil {
		return nil, fmt.Errorf("failed serializing instruction: %w", err)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(oracle).WRITE().SIGNER(),
		solana.Meta(req.Address).WRITE(),
		solana.Meta(resultAddr).WRITE(),
		solana.Meta(req.Requester),
		solana.Meta(req.Subscription).WRITE(),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// BuildFulfillmentTx wraps the fulfillment instruction in an unsigned transaction paid by the oracle
func BuildFulfillmentTx(programID, oracle solana.PublicKey, req models.RandomnessRequest, proof prover.Proof,
	recentBlockhash solana.Hash) (*solana.Transaction, error) {

	ix, err := BuildFulfillInstruction(programID, oracle, req, proof)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recentBlockhash,
		solana.TransactionPayer(oracle),
	)
	if err != nil {
		return nil, fmt.Errorf("failed building transaction for %s: %w", req.Address, err)
	}
	return tx, nil
}
