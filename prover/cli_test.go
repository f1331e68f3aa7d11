package prover

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFakeCLI installs a shell script standing in for ecvrf-cli
func writeFakeCLI(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake cli needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ecvrf-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

const fakeCLIScript = `
case "$1" in
  keygen)
    echo "Secret key: 0102"
    echo "Public key: aabbcc"
    ;;
  prove)
    echo "Proof:  dead"
    echo "Output: beef"
    ;;
  verify)
    [ "$3" = "dead" ] || { echo "bad proof" >&2; exit 1; }
    ;;
esac
`

func TestCLIProverPipeline(t *testing.T) {
	ctx := context.Background()
	cli := NewCLIProver(writeFakeCLI(t, fakeCLIScript))

	kp, err := cli.Keypair(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, kp.SecretKey)
	require.Equal(t, []byte{0xaa, 0xbb, 0xcc}, kp.PublicKey)

	proof, err := cli.Prove(ctx, kp.SecretKey, []byte("seed"))
	require.NoError(t, err)
	require.Equal(t, Proof{Proof: []byte{0xde, 0xad}, Output: []byte{0xbe, 0xef}, PublicKey: kp.PublicKey}, proof)

	ok, err := cli.Verify(ctx, proof, []byte("seed"))
	require.NoError(t, err)
	require.True(t, ok)

	proof.Proof = []byte{0x00}
	ok, err = cli.Verify(ctx, proof, []byte("seed"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCLIProverUnknownSecret(t *testing.T) {
	cli := NewCLIProver(writeFakeCLI(t, fakeCLIScript))
	_, err := cli.Prove(context.Background(), []byte{0x09}, []byte("seed"))
	require.ErrorIs(t, err, ErrInvalidOutput)

	cli.AddKeypair(Keypair{SecretKey: []byte{0x09}, PublicKey: []byte{0x10}})
	proof, err := cli.Prove(context.Background(), []byte{0x09}, []byte("seed"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x10}, proof.PublicKey)
}

func TestCLIProverFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("prove exits non-zero", func(t *testing.T) {
		cli := NewCLIProver(writeFakeCLI(t, `echo "boom" >&2; exit 3`))
		cli.AddKeypair(Keypair{SecretKey: []byte{1}, PublicKey: []byte{2}})
		_, err := cli.Prove(ctx, []byte{1}, []byte("seed"))
		require.ErrorIs(t, err, ErrProofGenerationFailed)
		require.Contains(t, err.Error(), "boom")
	})

	t.Run("malformed keygen output", func(t *testing.T) {
		cli := NewCLIProver(writeFakeCLI(t, `echo "Secret key: 01"`))
		_, err := cli.Keypair(ctx)
		require.ErrorIs(t, err, ErrInvalidOutput)
	})

	t.Run("missing binary", func(t *testing.T) {
		cli := NewCLIProver(filepath.Join(t.TempDir(), "does-not-exist"))
		_, err := cli.Keypair(ctx)
		require.ErrorIs(t, err, ErrProofGenerationFailed)

		_, err = cli.Verify(ctx, Proof{}, []byte("seed"))
		require.ErrorIs(t, err, ErrVerification)
	})
}

func TestParseCLIOutput(t *testing.T) {
	values, err := parseCLIOutput("Proof:  0a0b\nOutput: 0c\n", "Proof:", "Output:")
	require.NoError(t, err)
	require.Equal(t, [][]byte{{0x0a, 0x0b}, {0x0c}}, values)

	for _, bad := range []string{
		"",
		"Proof: 0a",
		"Proof: 0a\nOutput: zz",
		"Output: 0a\nProof: 0b",
		"Proof: \nOutput: 0c",
	} {
		_, err := parseCLIOutput(bad, "Proof:", "Output:")
		require.ErrorIs(t, err, ErrInvalidOutput, "input %q", bad)
	}
	require.Equal(t, "0a0b", hex.EncodeToString(values[0]))
}
