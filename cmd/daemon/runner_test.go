package daemon

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/ori-shem-tov/solana-vrf-oracle/daemon"
	"github.com/ori-shem-tov/solana-vrf-oracle/metrics"
	"github.com/ori-shem-tov/solana-vrf-oracle/prover"
)

func testConfig(t *testing.T) *daemon.Config {
	t.Helper()
	conf := &daemon.Config{
		RPCURL:    "http://localhost:8899",
		ProgramID: solana.NewWallet().PublicKey().String(),
		Keypair:   solana.NewWallet().PrivateKey.String(),
	}
	require.NoError(t, conf.Validate())
	return conf
}

func TestNewDaemonWithStoredP256Secret(t *testing.T) {
	kp, err := prover.NewP256Prover().Keypair(context.Background())
	require.NoError(t, err)

	conf := testConfig(t)
	conf.VRFSecretKey = hex.EncodeToString(kp.SecretKey)

	d, err := newDaemon(context.Background(), conf, nil, solana.NewWallet().PrivateKey,
		solana.MustPublicKeyFromBase58(conf.ProgramID), metrics.NewOracleMetrics())
	require.NoError(t, err)
	require.Equal(t, kp.PublicKey, d.VRFKeys.PublicKey)
	require.NoError(t, d.TestProofPipeline(context.Background()))
}

func TestNewDaemonGeneratesP256Keys(t *testing.T) {
	conf := testConfig(t)
	d, err := newDaemon(context.Background(), conf, nil, solana.NewWallet().PrivateKey,
		solana.MustPublicKeyFromBase58(conf.ProgramID), nil)
	require.NoError(t, err)
	require.Len(t, d.VRFKeys.PublicKey, 65)
}

func TestNewDaemonBadSecret(t *testing.T) {
	conf := testConfig(t)
	conf.VRFSecretKey = "zz"
	_, err := newDaemon(context.Background(), conf, nil, solana.NewWallet().PrivateKey,
		solana.MustPublicKeyFromBase58(conf.ProgramID), nil)
	require.ErrorContains(t, err, "not hex")
}

func TestNewDaemonCLIWithStoredKeys(t *testing.T) {
	conf := testConfig(t)
	conf.Prover = daemon.ProverCLI
	conf.CLIPath = "/nonexistent/ecvrf-cli"
	conf.VRFSecretKey = "0a0b"
	conf.VRFPublicKey = "0c0d"

	// no keygen call is made, so the missing binary does not matter yet
	d, err := newDaemon(context.Background(), conf, nil, solana.NewWallet().PrivateKey,
		solana.MustPublicKeyFromBase58(conf.ProgramID), nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0x0c, 0x0d}, d.VRFKeys.PublicKey)
	require.IsType(t, &prover.CLIProver{}, d.Prover)
}

func TestMetricsHandlerRoute(t *testing.T) {
	m := metrics.NewOracleMetrics()
	m.RecordDecodeError()

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(b), "decode_errors_total")
}
