package daemon

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	"github.com/ori-shem-tov/solana-vrf-oracle/metrics"
	"github.com/ori-shem-tov/solana-vrf-oracle/models"
	"github.com/ori-shem-tov/solana-vrf-oracle/prover"
)

// PipelineTestSeed is the seed proven and verified by TestProofPipeline
var PipelineTestSeed = []byte("test_seed_for_pipeline_verification")

// Ledger is what the daemon needs from the chain
type Ledger interface {
	TransactionSender
	GetRequestAccounts(ctx context.Context) ([]models.RawAccount, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
}

type VRFDaemon struct {
	Ledger    Ledger        // Source of request accounts and blockhashes
	Prover    prover.Prover // Computes and checks VRF proofs
	Submitter *Submitter    // Signs and sends fulfillment transactions
	Metrics   *metrics.OracleMetrics

	ProgramID    solana.PublicKey // VRF coordinator program
	Oracle       solana.PublicKey // Signs and pays for fulfillments
	VRFKeys      prover.Keypair   // The oracle's VRF identity
	PollInterval time.Duration

	Processed *ProcessedRequests
}

// New returns a VRFDaemon. The VRF keypair is taken from the prover, which makes any prover failure here fatal.
func New(ctx context.Context, ledger Ledger, p prover.Prover, oracleKey solana.PrivateKey, programID solana.PublicKey,
	conf *Config, m *metrics.OracleMetrics) (*VRFDaemon, error) {

	vrfKeys, err := p.Keypair(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed establishing VRF keypair: %w", err)
	}
	return NewWithKeypair(ledger, p, vrfKeys, oracleKey, programID, conf, m), nil
}

// NewWithKeypair returns a VRFDaemon using an already established VRF keypair
func NewWithKeypair(ledger Ledger, p prover.Prover, vrfKeys prover.Keypair, oracleKey solana.PrivateKey,
	programID solana.PublicKey, conf *Config, m *metrics.OracleMetrics) *VRFDaemon {

	if m == nil {
		m = metrics.NewOracleMetrics()
	}
	submitter := NewSubmitter(ledger, oracleKey, conf.SubmitAttempts, time.Duration(conf.SubmitDelay))
	submitter.onAttempt = m.RecordSubmissionAttempt

	log.Infof("oracle pubkey: %s", oracleKey.PublicKey())
	log.Infof("VRF public key: %s", vrfKeys.PublicKeyHex())
	log.Infof("program id: %s", programID)

	return &VRFDaemon{
		Ledger:       ledger,
		Prover:       p,
		Submitter:    submitter,
		Metrics:      m,
		ProgramID:    programID,
		Oracle:       oracleKey.PublicKey(),
		VRFKeys:      vrfKeys,
		PollInterval: time.Duration(conf.PollInterval),
		Processed:    NewProcessedRequests(),
	}
}

// Start runs scan cycles every PollInterval until ctx is cancelled.
// Cancellation is only observed between cycles; a running cycle finishes first.
func (v *VRFDaemon) Start(ctx context.Context) error {
	log.Infof("monitoring for pending VRF requests every %v", v.PollInterval)
	for {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		fulfilled, err := v.ScanCycle(context.WithoutCancel(ctx))
		v.Metrics.RecordCycle(start, err)
		switch {
		case err != nil:
			log.Errorf("error processing requests: %v", err)
		case fulfilled > 0:
			log.Infof("processed %d VRF requests", fulfilled)
		default:
			log.Debug("no pending requests found")
		}

		log.Debugf("sleeping %v", v.PollInterval)
		select {
		case <-ctx.Done():
		case <-time.After(v.PollInterval):
		}
	}

	log.Info("VRF daemon stopped")
	return nil
}

// ScanCycle fulfills every pending request not yet handled by this process and returns how many were fulfilled.
// Only a failure to list the request accounts is returned; per-request failures are logged.
func (v *VRFDaemon) ScanCycle(ctx context.Context) (int, error) {
	log.Debug("scanning for pending VRF requests...")

	accounts, err := v.Ledger.GetRequestAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed fetching request accounts: %w", err)
	}

	fulfilled := 0
	for _, account := range accounts {
		if v.Processed.IsProcessed(account.Address) {
			continue
		}

		req, ok, err := models.DecodeRequest(account)
		if err != nil {
			v.Metrics.RecordDecodeError()
			log.WithFields(log.Fields{"request": account.Address, "kind": ErrorKind(err)}).
				Warnf("skipping undecodable request: %v", err)
			continue
		}
		if !ok {
			log.Debugf("skipping account %s with foreign discriminator", account.Address)
			continue
		}
		if !req.IsPending() {
			log.Debugf("request %s not pending, status: %s", req.Address, req.Status)
			continue
		}

		log.Infof("found new pending VRF request: %s", req.Address)
		sig, err := v.FulfillRequest(ctx, req)
		if err != nil {
			kind := ErrorKind(err)
			v.Metrics.RecordFailure(kind)
			log.WithFields(log.Fields{"request": req.Address, "kind": kind}).
				Errorf("failed to fulfill VRF request: %v", err)
			continue
		}

		v.Processed.MarkProcessed(req.Address)
		v.Metrics.RecordFulfilled(v.Processed.Len())
		fulfilled++
		log.WithFields(log.Fields{"request": req.Address, "signature": sig}).Info("fulfilled VRF request")
	}

	return fulfilled, nil
}

// FulfillRequest proves, verifies and submits the answer to a single request
func (v *VRFDaemon) FulfillRequest(ctx context.Context, req models.RandomnessRequest) (solana.Signature, error) {
	log.Debugf("generating VRF proof for %s, seed %x", req.Address, req.Seed)

	proof, err := v.proveAndVerify(ctx, req.Seed)
	if err != nil {
		return solana.Signature{}, err
	}
	log.Debugf("VRF output for %s: %x", req.Address, proof.Output)

	blockhash, err := v.Ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed getting blockhash: %w", err)
	}

	tx, err := BuildFulfillmentTx(v.ProgramID, v.Oracle, req, proof, blockhash)
	if err != nil {
		return solana.Signature{}, err
	}

	log.Infof("submitting VRF fulfillment transaction for %s", req.Address)
	return v.Submitter.Submit(ctx, tx)
}

// proveAndVerify never hands back a proof that the prover itself did not accept
func (v *VRFDaemon) proveAndVerify(ctx context.Context, seed []byte) (prover.Proof, error) {
	proof, err := v.Prover.Prove(ctx, v.VRFKeys.SecretKey, seed)
	if err != nil {
		return prover.Proof{}, fmt.Errorf("failed computing vrf proof: %w", err)
	}

	valid, err := v.Prover.Verify(ctx, proof, seed)
	if err != nil {
		return prover.Proof{}, fmt.Errorf("failed verifying vrf proof: %w", err)
	}
	if !valid {
		log.WithField("seed", hex.EncodeToString(seed)).Error("ANOMALY: freshly generated VRF proof failed verification")
		return prover.Proof{}, ErrProofInvalid
	}
	return proof, nil
}

// TestProofPipeline proves and verifies a fixed seed with the daemon's VRF keys
func (v *VRFDaemon) TestProofPipeline(ctx context.Context) error {
	log.Info("testing VRF proof generation pipeline...")

	proof, err := v.proveAndVerify(ctx, PipelineTestSeed)
	if err != nil {
		return err
	}
	if !bytes.Equal(proof.PublicKey, v.VRFKeys.PublicKey) {
		return errors.New("proof public key does not match the daemon's VRF public key")
	}

	log.Info("VRF proof pipeline is working")
	return nil
}
