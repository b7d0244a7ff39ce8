package config

import (
	"encoding/json"
	"log"
	"net/url"
	"os"
	"time"
)

// Config holds all configuration for the timeline engine.
// Values are loaded from environment variables; see printUsage() for the full list.
type Config struct {
	FeedURL     string `json:"feed_url"`
	SequenceURL string `json:"sequence_url,omitempty"`
	ReplayAddr  string `json:"replay_addr,omitempty"`
	DeviceAddr  string `json:"device_addr"`
	HTTPAddr    string `json:"http_addr"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
	CSVDir      string `json:"csv_dir"`

	// DailyOffsetSeconds shifts feed timestamps that roll past midnight.
	DailyOffsetSeconds    int `json:"daily_offset_seconds"`
	FeedTimeOffsetSeconds int `json:"feed_time_offset_seconds"`

	TickInterval    time.Duration `json:"-"`
	TickIntervalStr string        `json:"tick_interval"`

	FeedPollInterval    time.Duration `json:"-"`
	FeedPollIntervalStr string        `json:"feed_poll_interval"`

	ClockPollInterval    time.Duration `json:"-"`
	ClockPollIntervalStr string        `json:"clock_poll_interval"`

	FireTolerance    time.Duration `json:"-"`
	FireToleranceStr string        `json:"fire_tolerance"`

	CatchupWindow    time.Duration `json:"-"`
	CatchupWindowStr string        `json:"catchup_window"`

	SendingStaleAfter    time.Duration `json:"-"`
	SendingStaleAfterStr string        `json:"sending_stale_after"`

	ArtifactDelay    time.Duration `json:"-"`
	ArtifactDelayStr string        `json:"artifact_delay"`

	DeviceTimeout    time.Duration `json:"-"`
	DeviceTimeoutStr string        `json:"device_timeout"`

	HTTPShutdownTimeout       time.Duration `json:"-"`
	HTTPShutdownTimeoutStr    string        `json:"http_shutdown_timeout"`
	DispatcherDrainTimeout    time.Duration `json:"-"`
	DispatcherDrainTimeoutStr string        `json:"dispatcher_drain_timeout"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`

	JobBufferSize int `json:"job_buffer_size"`

	// CircuitBreakerThreshold: 0 disables the circuit breaker.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`

	// LedgerResetCron: empty disables the daily ledger reset.
	LedgerResetCron string `json:"ledger_reset_cron,omitempty"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		FeedURL:                   os.Getenv("FEED_URL"),
		SequenceURL:               os.Getenv("SEQUENCE_URL"),
		ReplayAddr:                os.Getenv("REPLAY_ADDR"),
		DeviceAddr:                os.Getenv("DEVICE_ADDR"),
		HTTPAddr:                  os.Getenv("HTTP_ADDR"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		CSVDir:                    os.Getenv("CSV_DIR"),
		TickIntervalStr:           os.Getenv("TICK_INTERVAL"),
		FeedPollIntervalStr:       os.Getenv("FEED_POLL_INTERVAL"),
		ClockPollIntervalStr:      os.Getenv("CLOCK_POLL_INTERVAL"),
		FireToleranceStr:          os.Getenv("FIRE_TOLERANCE"),
		CatchupWindowStr:          os.Getenv("CATCHUP_WINDOW"),
		SendingStaleAfterStr:      os.Getenv("SENDING_STALE_AFTER"),
		ArtifactDelayStr:          os.Getenv("ARTIFACT_DELAY"),
		DeviceTimeoutStr:          os.Getenv("DEVICE_TIMEOUT"),
		HTTPShutdownTimeoutStr:    os.Getenv("HTTP_SHUTDOWN_TIMEOUT"),
		DispatcherDrainTimeoutStr: os.Getenv("DISPATCHER_DRAIN_TIMEOUT"),
		MetricsEnabled:            os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:               os.Getenv("METRICS_PATH"),
		CircuitBreakerCooldownStr: os.Getenv("CIRCUIT_BREAKER_COOLDOWN"),
		LedgerResetCron:           os.Getenv("LEDGER_RESET_CRON"),
	}

	if offStr := os.Getenv("DAILY_OFFSET_SECONDS"); offStr != "" {
		if n, err := parseInt(offStr); err == nil {
			cfg.DailyOffsetSeconds = n
		} else {
			log.Printf("config: invalid DAILY_OFFSET_SECONDS %q (must be an integer), using 0", offStr)
		}
	}
	if offStr := os.Getenv("FEED_TIME_OFFSET_SECONDS"); offStr != "" {
		if n, err := parseInt(offStr); err == nil {
			cfg.FeedTimeOffsetSeconds = n
		} else {
			log.Printf("config: invalid FEED_TIME_OFFSET_SECONDS %q (must be an integer), using 0", offStr)
		}
	}

	if bufStr := os.Getenv("JOB_BUFFER_SIZE"); bufStr != "" {
		if n, err := parseInt(bufStr); err == nil && n > 0 {
			cfg.JobBufferSize = n
		} else {
			log.Printf("config: invalid JOB_BUFFER_SIZE %q (must be a positive integer), using default 64", bufStr)
		}
	}
	if cfg.JobBufferSize == 0 {
		cfg.JobBufferSize = 64
	}

	if cbThreshStr := os.Getenv("CIRCUIT_BREAKER_THRESHOLD"); cbThreshStr != "" {
		if n, err := parseInt(cbThreshStr); err == nil {
			cfg.CircuitBreakerThreshold = n
		} else {
			log.Printf("config: invalid CIRCUIT_BREAKER_THRESHOLD %q, using default 5", cbThreshStr)
		}
	}
	if cfg.CircuitBreakerThreshold == 0 && os.Getenv("CIRCUIT_BREAKER_THRESHOLD") == "" {
		cfg.CircuitBreakerThreshold = 5
	}

	// Support Railway's PORT variable as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}
	if cfg.CSVDir == "" {
		cfg.CSVDir = "./artifacts"
	}
	if cfg.TickIntervalStr == "" {
		cfg.TickIntervalStr = "200ms"
	}
	if cfg.FeedPollIntervalStr == "" {
		cfg.FeedPollIntervalStr = "20s"
	}
	if cfg.ClockPollIntervalStr == "" {
		cfg.ClockPollIntervalStr = "200ms"
	}
	if cfg.FireToleranceStr == "" {
		cfg.FireToleranceStr = "600ms"
	}
	if cfg.CatchupWindowStr == "" {
		cfg.CatchupWindowStr = "5s"
	}
	if cfg.SendingStaleAfterStr == "" {
		cfg.SendingStaleAfterStr = "30s"
	}
	if cfg.ArtifactDelayStr == "" {
		cfg.ArtifactDelayStr = "5s"
	}
	if cfg.DeviceTimeoutStr == "" {
		cfg.DeviceTimeoutStr = "800ms"
	}
	if cfg.HTTPShutdownTimeoutStr == "" {
		cfg.HTTPShutdownTimeoutStr = "10s"
	}
	if cfg.DispatcherDrainTimeoutStr == "" {
		cfg.DispatcherDrainTimeoutStr = "5s"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.CircuitBreakerCooldownStr == "" {
		cfg.CircuitBreakerCooldownStr = "30s"
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.TickIntervalStr); err == nil {
		cfg.TickInterval = d
	}
	if d, err := time.ParseDuration(cfg.FeedPollIntervalStr); err == nil {
		cfg.FeedPollInterval = d
	}
	if d, err := time.ParseDuration(cfg.ClockPollIntervalStr); err == nil {
		cfg.ClockPollInterval = d
	}
	if d, err := time.ParseDuration(cfg.FireToleranceStr); err == nil {
		cfg.FireTolerance = d
	}
	if d, err := time.ParseDuration(cfg.CatchupWindowStr); err == nil {
		cfg.CatchupWindow = d
	}
	if d, err := time.ParseDuration(cfg.SendingStaleAfterStr); err == nil {
		cfg.SendingStaleAfter = d
	}
	if d, err := time.ParseDuration(cfg.ArtifactDelayStr); err == nil {
		cfg.ArtifactDelay = d
	}
	if d, err := time.ParseDuration(cfg.DeviceTimeoutStr); err == nil {
		cfg.DeviceTimeout = d
	}
	if d, err := time.ParseDuration(cfg.HTTPShutdownTimeoutStr); err == nil {
		cfg.HTTPShutdownTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DispatcherDrainTimeoutStr); err == nil {
		cfg.DispatcherDrainTimeout = d
	}
	if d, err := time.ParseDuration(cfg.CircuitBreakerCooldownStr); err == nil {
		cfg.CircuitBreakerCooldown = d
	}

	return cfg
}

// parseInt parses a string as an integer, allowing a leading minus sign.
func parseInt(s string) (int, error) {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, os.ErrInvalid
	}
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, os.ErrInvalid
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		FeedURL                 string `json:"feed_url"`
		SequenceURL             string `json:"sequence_url,omitempty"`
		ReplayAddr              string `json:"replay_addr,omitempty"`
		DeviceAddr              string `json:"device_addr"`
		HTTPAddr                string `json:"http_addr"`
		RedisAddr               string `json:"redis_addr,omitempty"`
		DatabaseURL             string `json:"database_url,omitempty"`
		CSVDir                  string `json:"csv_dir"`
		DailyOffsetSeconds      int    `json:"daily_offset_seconds"`
		FeedTimeOffsetSeconds   int    `json:"feed_time_offset_seconds"`
		TickInterval            string `json:"tick_interval"`
		FeedPollInterval        string `json:"feed_poll_interval"`
		ClockPollInterval       string `json:"clock_poll_interval"`
		FireTolerance           string `json:"fire_tolerance"`
		CatchupWindow           string `json:"catchup_window"`
		SendingStaleAfter       string `json:"sending_stale_after"`
		ArtifactDelay           string `json:"artifact_delay"`
		DeviceTimeout           string `json:"device_timeout"`
		HTTPShutdownTimeout     string `json:"http_shutdown_timeout"`
		DispatcherDrainTimeout  string `json:"dispatcher_drain_timeout"`
		MetricsEnabled          bool   `json:"metrics_enabled"`
		MetricsPath             string `json:"metrics_path"`
		JobBufferSize           int    `json:"job_buffer_size"`
		CircuitBreakerThreshold int    `json:"circuit_breaker_threshold"`
		CircuitBreakerCooldown  string `json:"circuit_breaker_cooldown"`
		LedgerResetCron         string `json:"ledger_reset_cron,omitempty"`
	}{
		FeedURL:                 maskSecret(c.FeedURL),
		SequenceURL:             maskSecret(c.SequenceURL),
		ReplayAddr:              c.ReplayAddr,
		DeviceAddr:              c.DeviceAddr,
		HTTPAddr:                c.HTTPAddr,
		RedisAddr:               c.RedisAddr,
		DatabaseURL:             maskSecret(c.DatabaseURL),
		CSVDir:                  c.CSVDir,
		DailyOffsetSeconds:      c.DailyOffsetSeconds,
		FeedTimeOffsetSeconds:   c.FeedTimeOffsetSeconds,
		TickInterval:            c.TickIntervalStr,
		FeedPollInterval:        c.FeedPollIntervalStr,
		ClockPollInterval:       c.ClockPollIntervalStr,
		FireTolerance:           c.FireToleranceStr,
		CatchupWindow:           c.CatchupWindowStr,
		SendingStaleAfter:       c.SendingStaleAfterStr,
		ArtifactDelay:           c.ArtifactDelayStr,
		DeviceTimeout:           c.DeviceTimeoutStr,
		HTTPShutdownTimeout:     c.HTTPShutdownTimeoutStr,
		DispatcherDrainTimeout:  c.DispatcherDrainTimeoutStr,
		MetricsEnabled:          c.MetricsEnabled,
		MetricsPath:             c.MetricsPath,
		JobBufferSize:           c.JobBufferSize,
		CircuitBreakerThreshold: c.CircuitBreakerThreshold,
		CircuitBreakerCooldown:  c.CircuitBreakerCooldownStr,
		LedgerResetCron:         c.LedgerResetCron,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret hides credentials and query strings embedded in a URL. Feed
// URLs routinely carry access tokens in the query.
func maskSecret(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	if u.RawQuery != "" {
		u.RawQuery = "***"
	}
	return u.String()
}
