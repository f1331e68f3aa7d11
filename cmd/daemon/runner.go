package daemon

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	"github.com/ori-shem-tov/solana-vrf-oracle/daemon"
	"github.com/ori-shem-tov/solana-vrf-oracle/ledger"
	"github.com/ori-shem-tov/solana-vrf-oracle/metrics"
	"github.com/ori-shem-tov/solana-vrf-oracle/prover"
	"github.com/ori-shem-tov/solana-vrf-oracle/tools"
)

func runDaemon(parent context.Context, conf *daemon.Config) {
	if parent == nil {
		parent = context.Background()
	}
	if conf.LogLevel != "" {
		tools.SetLogger(conf.LogLevel)
	}

	if err := tools.TestEnvironmentVariables(conf.RPCURL); err != nil {
		log.Fatalf("error testing environment variables: %+v", err)
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	rpcClient, err := tools.InitClients(conf.RPCURL)
	if err != nil {
		log.Fatalf("failed to initialize clients: %+v", err)
	}

	programID := solana.MustPublicKeyFromBase58(conf.ProgramID)
	ledgerClient := ledger.NewClient(rpcClient, programID)
	ledgerClient.ConfirmTimeout = time.Duration(conf.ConfirmTimeout)

	oracleKey, err := daemon.KeyFromString(conf.Keypair)
	if err != nil {
		log.Fatalf("invalid oracle keypair: %v", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewOracleMetrics()
	vrfDaemon, err := newDaemon(ctx, conf, ledgerClient, oracleKey, programID, m)
	if err != nil {
		log.Fatalf("failed initializing the VRF daemon: %v", err)
	}

	if showStats {
		b, err := json.MarshalIndent(vrfDaemon.Stats(), "", "  ")
		if err != nil {
			log.Fatalf("failed marshalling stats: %v", err)
		}
		fmt.Println(string(b))
		return
	}

	if testPipeline {
		if err := vrfDaemon.TestProofPipeline(ctx); err != nil {
			log.Fatalf("VRF proof pipeline test failed: %v", err)
		}
	}

	if conf.MetricsAddr != "" {
		srv := serveMetrics(conf.MetricsAddr, m)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warnf("failed stopping metrics server: %v", err)
			}
		}()
	}

	if err := vrfDaemon.Start(ctx); err != nil {
		log.Errorf("VRF daemon stopped with error: %v", err)
	}
	vrfDaemon.LogShutdownStats(conf.ShutdownLog)
}

// newDaemon sets up the configured prover and the VRF identity it proves with
func newDaemon(ctx context.Context, conf *daemon.Config, l daemon.Ledger, oracleKey solana.PrivateKey,
	programID solana.PublicKey, m *metrics.OracleMetrics) (*daemon.VRFDaemon, error) {

	var p prover.Prover
	var vrfKeys *prover.Keypair

	switch conf.Prover {
	case daemon.ProverCLI:
		cli := prover.NewCLIProver(conf.CLIPath)
		if conf.BuildProver {
			if err := cli.EnsureBuilt(ctx); err != nil {
				return nil, err
			}
		}
		if conf.VRFSecretKey != "" {
			kp, err := keypairFromHex(conf.VRFSecretKey, conf.VRFPublicKey)
			if err != nil {
				return nil, err
			}
			cli.AddKeypair(kp)
			vrfKeys = &kp
		}
		p = cli
	default:
		if conf.VRFSecretKey != "" {
			secret, err := hex.DecodeString(conf.VRFSecretKey)
			if err != nil {
				return nil, fmt.Errorf("vrf-secret is not hex: %w", err)
			}
			kp, err := prover.KeypairFromSecret(secret)
			if err != nil {
				return nil, err
			}
			vrfKeys = &kp
		}
		p = prover.NewP256Prover()
	}

	if vrfKeys == nil {
		return daemon.New(ctx, l, p, oracleKey, programID, conf, m)
	}
	return daemon.NewWithKeypair(l, p, *vrfKeys, oracleKey, programID, conf, m), nil
}

func keypairFromHex(secretHex, publicHex string) (prover.Keypair, error) {
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return prover.Keypair{}, fmt.Errorf("vrf-secret is not hex: %w", err)
	}
	public, err := hex.DecodeString(publicHex)
	if err != nil {
		return prover.Keypair{}, fmt.Errorf("vrf-public is not hex: %w", err)
	}
	return prover.Keypair{SecretKey: secret, PublicKey: public}, nil
}

func serveMetrics(addr string, m *metrics.OracleMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Infof("serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server failed: %v", err)
		}
	}()
	return srv
}
