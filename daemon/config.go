package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/algorand/go-algorand-sdk/mnemonic"
	"github.com/gagliardetto/solana-go"
)

const (
	ProverP256 = "p256"
	ProverCLI  = "cli"

	DefaultPollInterval     = 3 * time.Second
	DefaultSubmitAttempts   = 3
	DefaultSubmitDelay      = 2 * time.Second
	DefaultShutdownLogFile  = "vrf-server-shutdown.log"
	defaultConfirmTimeout   = 30 * time.Second
	ed25519PrivateKeyLength = 64
)

// Duration reads either a Go duration string ("3s") or a number of seconds from JSON
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(b, &seconds); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %s", b)
	}
	*d = Duration(seconds * float64(time.Second))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

type Config struct {
	RPCURL    string `json:"rpc-url"`
	ProgramID string `json:"program-id"`
	Keypair   string `json:"keypair"`

	Prover       string `json:"prover"`
	CLIPath      string `json:"cli-path"`
	BuildProver  bool   `json:"build-prover"`
	VRFSecretKey string `json:"vrf-secret"`
	VRFPublicKey string `json:"vrf-public"`

	PollInterval   Duration `json:"poll-interval"`
	SubmitAttempts uint     `json:"submit-attempts"`
	SubmitDelay    Duration `json:"submit-delay"`
	ConfirmTimeout Duration `json:"confirm-timeout"`

	MetricsAddr string `json:"metrics-addr"`
	ShutdownLog string `json:"shutdown-log"`
	LogLevel    string `json:"log-level"`
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	conf := &Config{}
	if err := json.Unmarshal(b, conf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return conf, nil
}

// Validate fills in defaults and checks the values that can be checked without touching the network
func (c *Config) Validate() error {
	var missing []string
	if c.RPCURL == "" {
		missing = append(missing, "rpc-url")
	}
	if c.ProgramID == "" {
		missing = append(missing, "program-id")
	}
	if c.Keypair == "" {
		missing = append(missing, "keypair")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required setting(s): %s", strings.Join(missing, ","))
	}

	if c.Prover == "" {
		c.Prover = ProverP256
	}
	if c.Prover != ProverP256 && c.Prover != ProverCLI {
		return fmt.Errorf("unknown prover %q, expected %q or %q", c.Prover, ProverP256, ProverCLI)
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.SubmitAttempts == 0 {
		c.SubmitAttempts = DefaultSubmitAttempts
	}
	if c.SubmitDelay == 0 {
		c.SubmitDelay = Duration(DefaultSubmitDelay)
	}
	if c.ConfirmTimeout == 0 {
		c.ConfirmTimeout = Duration(defaultConfirmTimeout)
	}
	if c.ShutdownLog == "" {
		c.ShutdownLog = DefaultShutdownLogFile
	}
	if c.PollInterval < 0 || c.SubmitDelay < 0 || c.ConfirmTimeout < 0 {
		return fmt.Errorf("durations must be positive")
	}

	if c.Prover == ProverCLI && c.VRFSecretKey != "" && c.VRFPublicKey == "" {
		return fmt.Errorf("vrf-public is required with vrf-secret when using the %q prover", ProverCLI)
	}

	if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
		return fmt.Errorf("invalid program id %q: %w", c.ProgramID, err)
	}
	return nil
}

// KeyFromString parses the oracle signing key. secret may be the path of a
// solana-keygen JSON file, a base58 encoded 64-byte secret key or a 25-word mnemonic.
func KeyFromString(secret string) (solana.PrivateKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("empty key")
	}

	if strings.Contains(secret, " ") {
		sk, err := mnemonic.ToPrivateKey(secret)
		if err != nil {
			return nil, fmt.Errorf("invalid mnemonic: %w", err)
		}
		return solana.PrivateKey(sk), nil
	}

	if _, err := os.Stat(secret); err == nil {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(secret)
		if err != nil {
			return nil, fmt.Errorf("failed reading keypair file %s: %w", secret, err)
		}
		return key, nil
	}

	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("key is neither a keypair file, a mnemonic nor base58: %w", err)
	}
	if len(key) != ed25519PrivateKeyLength {
		return nil, fmt.Errorf("base58 key must decode to %d bytes, got %d", ed25519PrivateKeyLength, len(key))
	}
	return key, nil
}
