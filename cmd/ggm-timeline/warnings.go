package main

import (
	"log"

	"github.com/garimto81/ggm-timeline/internal/config"
)

// logConfigWarnings flags configurations that are valid but risky for a
// live broadcast. Warnings are advisory; startup continues.
func logConfigWarnings(cfg *config.Config) {
	if cfg.ReplayAddr == "" {
		log.Println("WARNING [P0]: REPLAY_ADDR not set; events fire on the local wall clock, which drifts from the broadcast timecode")
	}
	if cfg.SequenceURL == "" {
		log.Println("WARNING [P1]: SEQUENCE_URL not set; draw reveal orders will fail to send")
	}
	if cfg.CircuitBreakerThreshold == 0 {
		log.Println("WARNING [P1]: CIRCUIT_BREAKER_THRESHOLD=0; a dead switcher will be retried at full rate")
	}
	if !cfg.MetricsEnabled {
		log.Println("WARNING [P2]: METRICS_ENABLED=false; no visibility into tick latency or fire outcomes")
	}
	if cfg.LedgerResetCron == "" {
		log.Println("INFO: LEDGER_RESET_CRON not set; restart the process between show days to clear the execution ledger")
	}
	if cfg.FireTolerance >= cfg.TickInterval*10 {
		log.Printf("INFO: FIRE_TOLERANCE (%s) is much larger than TICK_INTERVAL (%s); events may fire well off their scheduled time",
			cfg.FireTolerance, cfg.TickInterval)
	}
}
