package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"github.com/ori-shem-tov/solana-vrf-oracle/models"
	"github.com/ori-shem-tov/solana-vrf-oracle/tools"
)

const (
	readInitWait = 500 * time.Millisecond
	readRetries  = 3

	DefaultConfirmTimeout      = 30 * time.Second
	defaultConfirmPollInterval = 500 * time.Millisecond
)

// TransportError wraps a failed RPC call
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrTransactionFailed is returned when a transaction landed but the program rejected it
var ErrTransactionFailed = errors.New("transaction failed on chain")

// Client reads request accounts of the coordinator program and submits transactions to it
type Client struct {
	rpc       *rpc.Client
	programID solana.PublicKey

	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
}

func NewClient(rpcClient *rpc.Client, programID solana.PublicKey) *Client {
	return &Client{
		rpc:                 rpcClient,
		programID:           programID,
		ConfirmTimeout:      DefaultConfirmTimeout,
		ConfirmPollInterval: defaultConfirmPollInterval,
	}
}

func (c *Client) ProgramID() solana.PublicKey {
	return c.programID
}

// GetRequestAccounts returns the program accounts starting with the request discriminator, in RPC order
func (c *Client) GetRequestAccounts(ctx context.Context) ([]models.RawAccount, error) {
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  solana.Base58(models.RequestDiscriminator[:]),
				},
			},
		},
	}

	var out rpc.GetProgramAccountsResult
	err := tools.Retry(ctx, readInitWait, readRetries,
		func() error {
			var err error
			out, err = c.rpc.GetProgramAccountsWithOpts(ctx, c.programID, opts)
			return err
		},
		func(n uint, err error) {
			log.Warnf("failed getting program accounts (attempt %d), trying again...: %v", n+1, err)
		},
	)
	if err != nil {
		return nil, &TransportError{Op: "getProgramAccounts", Err: err}
	}

	accounts := make([]models.RawAccount, 0, len(out))
	for _, keyed := range out {
		if keyed == nil || keyed.Account == nil || keyed.Account.Data == nil {
			continue
		}
		accounts = append(accounts, models.RawAccount{
			Address: keyed.Pubkey,
			Data:    keyed.Account.Data.GetBinary(),
		})
	}
	log.Debugf("found %d request accounts", len(accounts))
	return accounts, nil
}

// GetLatestBlockhash returns the most recent finalized blockhash
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var out *rpc.GetLatestBlockhashResult
	err := tools.Retry(ctx, readInitWait, readRetries,
		func() error {
			var err error
			out, err = c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
			if err == nil && (out == nil || out.Value == nil) {
				return errors.New("empty blockhash response")
			}
			return err
		},
		func(n uint, err error) {
			log.Warnf("failed getting latest blockhash (attempt %d), trying again...: %v", n+1, err)
		},
	)
	if err != nil {
		return solana.Hash{}, &TransportError{Op: "getLatestBlockhash", Err: err}
	}
	return out.Value.Blockhash, nil
}

// SendAndConfirmTransaction submits a signed transaction and blocks until it is confirmed,
// rejected on chain, or the confirmation timeout passes
func (c *Client) SendAndConfirmTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, &TransportError{Op: "sendTransaction", Err: err}
	}
	log.Debugf("sent transaction %s, waiting for confirmation", sig)

	if err := c.waitForConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

func (c *Client) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	interval := c.ConfirmPollInterval
	if interval <= 0 {
		interval = defaultConfirmPollInterval
	}
	polls := uint(c.ConfirmTimeout / interval)
	if polls == 0 {
		polls = 1
	}

	err := retry.Do(
		func() error {
			out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				return &TransportError{Op: "getSignatureStatuses", Err: err}
			}
			if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
				return fmt.Errorf("transaction %s not found yet", sig)
			}
			status := out.Value[0]
			if status.Err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, status.Err))
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
			return fmt.Errorf("transaction %s still %s", sig, status.ConfirmationStatus)
		},
		retry.Context(ctx),
		retry.Attempts(polls),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debugf("%v, polling again...", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("confirming %s: %w", sig, err)
	}
	return nil
}
