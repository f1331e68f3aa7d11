package tools

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func MarkFlagRequired(flag *pflag.FlagSet, name string) {
	err := cobra.MarkFlagRequired(flag, name)
	if err != nil {
		panic(err)
	}
}

func SetLogger(logLevelEnv string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logLevel := log.WarnLevel
	switch strings.ToLower(logLevelEnv) {
	case "debug":
		logLevel = log.DebugLevel
	case "info":
		logLevel = log.InfoLevel
	case "error":
		logLevel = log.ErrorLevel
	}
	log.SetLevel(logLevel)
}

func TestEnvironmentVariables(rpcURL string) error {
	var missing []string
	if rpcURL == "" {
		missing = append(missing, "VRF_RPC_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s environment variable(s) or flag(s)", strings.Join(missing, ","))
	}
	return nil
}

func InitClients(rpcURL string) (*rpc.Client, error) {
	var failedClients []string
	if !strings.HasPrefix(rpcURL, "http://") && !strings.HasPrefix(rpcURL, "https://") {
		failedClients = append(failedClients, "rpc")
		log.Errorf("rpc url must be http(s), got %q", rpcURL)
	}
	if len(failedClients) > 0 {
		return nil, fmt.Errorf("failed creating the following client(s): %s", strings.Join(failedClients, ","))
	}
	return rpc.New(rpcURL), nil
}
