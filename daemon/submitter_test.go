package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func unsignedTx(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	ix := solana.NewInstruction(solana.NewWallet().PublicKey(),
		solana.AccountMetaSlice{solana.Meta(payer).WRITE().SIGNER()}, []byte{1})
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{4}, solana.TransactionPayer(payer))
	require.NoError(t, err)
	return tx
}

func TestSubmitterGivesUpAfterAttempts(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	rejected := errors.New("blockhash not found")
	l := &fakeLedger{send: func(*solana.Transaction) error { return rejected }}
	s := NewSubmitter(l, signer, 3, 20*time.Millisecond)

	attempts := 0
	s.onAttempt = func() { attempts++ }

	start := time.Now()
	_, err := s.Submit(context.Background(), unsignedTx(t, signer.PublicKey()))
	elapsed := time.Since(start)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.EqualValues(t, 3, subErr.Attempts)
	require.ErrorIs(t, err, rejected)
	require.Equal(t, "submission_failed", ErrorKind(err))
	require.Equal(t, 3, attempts)
	require.Equal(t, 3, l.sentCount())
	// two waits between three attempts
	require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestSubmitterSucceedsOnLaterAttempt(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	calls := 0
	l := &fakeLedger{send: func(*solana.Transaction) error {
		calls++
		if calls < 2 {
			return errors.New("node is behind")
		}
		return nil
	}}
	s := NewSubmitter(l, signer, 3, time.Millisecond)

	tx := unsignedTx(t, signer.PublicKey())
	sig, err := s.Submit(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, tx.Signatures[0], sig)
	require.Equal(t, 2, l.sentCount())
}

func TestSubmitterDefaultsAttempts(t *testing.T) {
	s := NewSubmitter(&fakeLedger{}, solana.NewWallet().PrivateKey, 0, 0)
	require.EqualValues(t, DefaultSubmitAttempts, s.attempts)
}
