package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	"github.com/ori-shem-tov/solana-vrf-oracle/tools"
)

// TransactionSender submits a signed transaction and waits for its confirmation
type TransactionSender interface {
	SendAndConfirmTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Submitter signs fulfillment transactions with the oracle key and submits them with a bounded number of attempts
type Submitter struct {
	sender   TransactionSender
	signer   solana.PrivateKey
	attempts uint
	delay    time.Duration

	onAttempt func()
}

func NewSubmitter(sender TransactionSender, signer solana.PrivateKey, attempts uint, delay time.Duration) *Submitter {
	if attempts == 0 {
		attempts = DefaultSubmitAttempts
	}
	return &Submitter{
		sender:   sender,
		signer:   signer,
		attempts: attempts,
		delay:    delay,
	}
}

func (s *Submitter) sign(tx *solana.Transaction) error {
	oracle := s.signer.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(oracle) {
			return &s.signer
		}
		return nil
	})
	return err
}

// Submit signs tx and sends it until it is confirmed or the attempts run out.
// The caller marks the request processed only when Submit returns a nil error.
func (s *Submitter) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := s.sign(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("failed signing transaction: %w", err)
	}

	var sig solana.Signature
	attempts, err := tools.RetryFixed(ctx, s.delay, s.attempts,
		func() error {
			if s.onAttempt != nil {
				s.onAttempt()
			}
			var err error
			sig, err = s.sender.SendAndConfirmTransaction(ctx, tx)
			return err
		},
		func(n uint, err error) {
			log.Warnf("transaction attempt %d/%d failed: %v", n+1, s.attempts, err)
		},
	)
	if err != nil {
		return solana.Signature{}, &SubmissionError{Attempts: attempts, LastErr: err}
	}

	log.Infof("fulfillment transaction confirmed: %s", sig)
	return sig, nil
}
