package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

type Stats struct {
	ProcessedRequests int    `json:"processed_requests"`
	VRFPublicKey      string `json:"vrf_public_key"`
	OraclePubkey      string `json:"oracle_pubkey"`
	ProgramID         string `json:"program_id"`
}

func (v *VRFDaemon) Stats() Stats {
	return Stats{
		ProcessedRequests: v.Processed.Len(),
		VRFPublicKey:      v.VRFKeys.PublicKeyHex(),
		OraclePubkey:      v.Oracle.String(),
		ProgramID:         v.ProgramID.String(),
	}
}

// WriteShutdownLog appends the final statistics to path
func WriteShutdownLog(path string, stats Stats, now time.Time) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed opening shutdown log: %w", err)
	}
	defer f.Close()

	b, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f, "[%s] VRF daemon shutdown\nStats: %s\n", now.UTC().Format("2006-01-02 15:04:05 UTC"), b)
	return err
}

// LogShutdownStats reports the final statistics to the log and the shutdown log file
func (v *VRFDaemon) LogShutdownStats(path string) {
	stats := v.Stats()
	log.Warnf("final statistics: processed requests: %d", stats.ProcessedRequests)
	if path == "" {
		return
	}
	if err := WriteShutdownLog(path, stats, time.Now()); err != nil {
		log.Errorf("failed writing shutdown stats: %v", err)
	}
}
