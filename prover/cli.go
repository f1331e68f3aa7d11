package prover

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

const DefaultCLIPath = "../mangekyou-cli/target/debug/ecvrf-cli"

// CLIProver drives an ecvrf-cli binary as a subprocess.
//
// The CLI has no command to derive a public key from a secret key, so public
// keys are remembered from keygen (or registered with AddKeypair) and Prove
// fails with ErrInvalidOutput for a secret it has never seen.
type CLIProver struct {
	path string

	mu         sync.Mutex
	publicKeys map[string][]byte // hex secret -> public key
}

func NewCLIProver(path string) *CLIProver {
	if path == "" {
		path = DefaultCLIPath
	}
	return &CLIProver{
		path:       path,
		publicKeys: make(map[string][]byte),
	}
}

// AddKeypair registers an existing keypair so that Prove can attach its public key
func (c *CLIProver) AddKeypair(kp Keypair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publicKeys[hex.EncodeToString(kp.SecretKey)] = append([]byte(nil), kp.PublicKey...)
}

// EnsureBuilt builds the CLI from its crate root (the binary lives in <crate>/target/<profile>/)
func (c *CLIProver) EnsureBuilt(ctx context.Context) error {
	crateDir := filepath.Dir(filepath.Dir(filepath.Dir(c.path)))
	log.Infof("building ecvrf-cli in %s", crateDir)

	cmd := exec.CommandContext(ctx, "cargo", "build", "--bin", "ecvrf-cli")
	cmd.Dir = crateDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: cli build failed: %v: %s", ErrProofGenerationFailed, err, strings.TrimSpace(stderr.String()))
	}
	log.Info("built ecvrf-cli")
	return nil
}

func (c *CLIProver) Keypair(ctx context.Context) (Keypair, error) {
	stdout, err := c.run(ctx, "keygen")
	if err != nil {
		return Keypair{}, fmt.Errorf("%w: keygen: %v", ErrProofGenerationFailed, err)
	}

	fields, err := parseCLIOutput(stdout, "Secret key:", "Public key:")
	if err != nil {
		return Keypair{}, err
	}

	kp := Keypair{SecretKey: fields[0], PublicKey: fields[1]}
	c.AddKeypair(kp)
	log.Infof("generated VRF keypair, public key: %s", kp.PublicKeyHex())
	return kp, nil
}

func (c *CLIProver) Prove(ctx context.Context, secretKey, seed []byte) (Proof, error) {
	c.mu.Lock()
	pub, ok := c.publicKeys[hex.EncodeToString(secretKey)]
	c.mu.Unlock()
	if !ok {
		return Proof{}, fmt.Errorf("%w: no public key known for the given secret key", ErrInvalidOutput)
	}

	stdout, err := c.run(ctx, "prove",
		"--input", hex.EncodeToString(seed),
		"--secret-key", hex.EncodeToString(secretKey),
	)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: %v", ErrProofGenerationFailed, err)
	}

	fields, err := parseCLIOutput(stdout, "Proof:", "Output:")
	if err != nil {
		return Proof{}, err
	}
	return Proof{Proof: fields[0], Output: fields[1], PublicKey: append([]byte(nil), pub...)}, nil
}

// Verify runs the CLI's verify command. A non-zero exit is a rejection, not an error.
func (c *CLIProver) Verify(ctx context.Context, proof Proof, seed []byte) (bool, error) {
	_, err := c.run(ctx, "verify",
		"--proof", hex.EncodeToString(proof.Proof),
		"--output", hex.EncodeToString(proof.Output),
		"--public-key", hex.EncodeToString(proof.PublicKey),
		"--input", hex.EncodeToString(seed),
	)
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		log.Warnf("vrf proof rejected by cli: %v", err)
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrVerification, err)
}

// run executes the CLI; a non-zero exit is returned as an error carrying stderr
func (c *CLIProver) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	log.Debugf("ecvrf-cli %s output: %s", args[0], stdout.String())
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &cliExitError{ExitError: exitErr, stderr: strings.TrimSpace(stderr.String())}
		}
		return "", err
	}
	return stdout.String(), nil
}

type cliExitError struct {
	*exec.ExitError
	stderr string
}

func (e *cliExitError) Error() string {
	return fmt.Sprintf("%v: %s", e.ExitError, e.stderr)
}

func (e *cliExitError) Unwrap() error {
	return e.ExitError
}

// parseCLIOutput expects exactly one line per prefix, in order, each holding a hex value
func parseCLIOutput(stdout string, prefixes ...string) ([][]byte, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != len(prefixes) {
		return nil, fmt.Errorf("%w: expected %d lines, got %d: %q", ErrInvalidOutput, len(prefixes), len(lines), stdout)
	}

	values := make([][]byte, len(prefixes))
	for i, prefix := range prefixes {
		rest, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), prefix)
		if !ok {
			return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidOutput, prefix)
		}
		value, err := hex.DecodeString(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not hex: %v", ErrInvalidOutput, prefix, err)
		}
		if len(value) == 0 {
			return nil, fmt.Errorf("%w: empty %s", ErrInvalidOutput, prefix)
		}
		values[i] = value
	}
	return values, nil
}
