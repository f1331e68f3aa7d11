package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/ori-shem-tov/solana-vrf-oracle/ledger"
	"github.com/ori-shem-tov/solana-vrf-oracle/models"
	"github.com/ori-shem-tov/solana-vrf-oracle/prover"
)

// ErrProofInvalid is returned when a freshly generated proof fails verification.
// A correct prover never produces one, so it points at a wiring problem.
var ErrProofInvalid = errors.New("generated proof failed verification")

// SubmissionError is returned once every submission attempt failed
type SubmissionError struct {
	Attempts uint
	LastErr  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transaction failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *SubmissionError) Unwrap() error {
	return e.LastErr
}

// ErrorKind returns a short label for err, used in log fields and metrics
func ErrorKind(err error) string {
	var (
		submissionErr *SubmissionError
		decodeErr     *models.DecodeError
		transportErr  *ledger.TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &submissionErr):
		return "submission_failed"
	case errors.Is(err, ErrProofInvalid):
		return "proof_invalid"
	case errors.Is(err, prover.ErrProofGenerationFailed):
		return "proof_generation_failed"
	case errors.Is(err, prover.ErrVerification):
		return "verification_error"
	case errors.Is(err, prover.ErrInvalidOutput):
		return "invalid_output"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "unknown"
}
