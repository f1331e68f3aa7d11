package daemon

import (
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ori-shem-tov/solana-vrf-oracle/daemon"
	"github.com/ori-shem-tov/solana-vrf-oracle/prover"
	"github.com/ori-shem-tov/solana-vrf-oracle/tools"
)

var (
	flagConf daemon.Config

	pollInterval   time.Duration
	submitDelay    time.Duration
	confirmTimeout time.Duration

	testPipeline bool // prove and verify a fixed seed before starting
	showStats    bool // print the statistics and exit

	configFile string // The config file to read settings from

	RPCURLEnv   = os.Getenv("VRF_RPC_URL")
	logLevelEnv = strings.ToLower(os.Getenv("VRF_LOG_LEVEL"))
)

func init() {
	tools.SetLogger(logLevelEnv)

	flags := RunDaemonCmd.Flags()

	flags.StringVar(&flagConf.Keypair, "keypair", "",
		"oracle signing key: solana-keygen JSON file, base58 secret key or 25-word mnemonic (required)")
	tools.MarkFlagRequired(flags, "keypair")

	flags.StringVar(&flagConf.ProgramID, "program-id", "", "base58 address of the VRF coordinator program (required)")
	tools.MarkFlagRequired(flags, "program-id")

	flags.StringVar(&flagConf.RPCURL, "rpc-url", RPCURLEnv, "Solana JSON-RPC endpoint (default: $VRF_RPC_URL)")

	flags.StringVar(&flagConf.Prover, "prover", daemon.ProverP256, "VRF prover to use: p256 or cli")
	flags.StringVar(&flagConf.CLIPath, "cli-path", prover.DefaultCLIPath, "path of the ecvrf-cli binary")
	flags.BoolVar(&flagConf.BuildProver, "build-prover", false, "build the ecvrf-cli binary with cargo before starting")
	flags.StringVar(&flagConf.VRFSecretKey, "vrf-secret", "",
		"hex VRF secret key (optional. default: generate a new keypair)")
	flags.StringVar(&flagConf.VRFPublicKey, "vrf-public", "", "hex VRF public key matching --vrf-secret (cli prover only)")

	flags.DurationVar(&pollInterval, "poll-interval", daemon.DefaultPollInterval, "time between scan cycles")
	flags.UintVar(&flagConf.SubmitAttempts, "submit-attempts", daemon.DefaultSubmitAttempts,
		"number of attempts to submit a fulfillment transaction")
	flags.DurationVar(&submitDelay, "submit-delay", daemon.DefaultSubmitDelay, "wait between submission attempts")
	flags.DurationVar(&confirmTimeout, "confirm-timeout", 0, "how long to wait for a transaction to be confirmed")

	flags.StringVar(&flagConf.MetricsAddr, "metrics-addr", "", "address to serve prometheus metrics on (optional)")
	flags.StringVar(&flagConf.ShutdownLog, "shutdown-log", daemon.DefaultShutdownLogFile,
		"file the final statistics are appended to")
	flags.StringVar(&flagConf.LogLevel, "log-level", "", "debug, info, warn or error (default: $VRF_LOG_LEVEL)")

	flags.BoolVar(&testPipeline, "test-pipeline", false, "test the proof pipeline before starting, abort on failure")
	flags.BoolVar(&showStats, "show-stats", false, "print the daemon statistics and exit")

	RunFromConfig.Flags().StringVar(&configFile, "config", "", "JSON Config file to use")
	tools.MarkFlagRequired(RunFromConfig.Flags(), "config")
	RunFromConfig.Flags().BoolVar(&testPipeline, "test-pipeline", false,
		"test the proof pipeline before starting, abort on failure")
	RunFromConfig.Flags().BoolVar(&showStats, "show-stats", false, "print the daemon statistics and exit")
}

var RunDaemonCmd = &cobra.Command{
	Use:   "run-daemon",
	Short: "runs the daemon",
	Run: func(cmd *cobra.Command, args []string) {
		conf := flagConf
		conf.PollInterval = daemon.Duration(pollInterval)
		conf.SubmitDelay = daemon.Duration(submitDelay)
		conf.ConfirmTimeout = daemon.Duration(confirmTimeout)
		runDaemon(cmd.Context(), &conf)
	},
}

var RunFromConfig = &cobra.Command{
	Use:   "run",
	Short: "runs the daemon with settings read from a JSON config file",
	Run: func(cmd *cobra.Command, args []string) {
		conf, err := daemon.LoadConfig(configFile)
		if err != nil {
			log.Fatalf("failed loading config: %v", err)
		}
		if conf.RPCURL == "" {
			conf.RPCURL = RPCURLEnv
		}
		runDaemon(cmd.Context(), conf)
	},
}
