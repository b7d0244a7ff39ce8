package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/garimto81/ggm-timeline/internal/analytics"
	"github.com/garimto81/ggm-timeline/internal/api"
	"github.com/garimto81/ggm-timeline/internal/artifacts"
	"github.com/garimto81/ggm-timeline/internal/circuitbreaker"
	"github.com/garimto81/ggm-timeline/internal/clock"
	"github.com/garimto81/ggm-timeline/internal/config"
	"github.com/garimto81/ggm-timeline/internal/dispatcher"
	"github.com/garimto81/ggm-timeline/internal/domain"
	"github.com/garimto81/ggm-timeline/internal/feed"
	"github.com/garimto81/ggm-timeline/internal/journal"
	"github.com/garimto81/ggm-timeline/internal/metrics"
	"github.com/garimto81/ggm-timeline/internal/rollover"
	"github.com/garimto81/ggm-timeline/internal/scheduler"
	"github.com/garimto81/ggm-timeline/internal/timeline"
	"github.com/garimto81/ggm-timeline/internal/transport/channel"
)

// rebuildSink feeds fresh feed rows into the derivation pipeline: it keeps
// the artifact row snapshot current and hands the derived event list to
// the scheduler.
type rebuildSink struct {
	store  *artifacts.RowStore
	sched  *scheduler.Scheduler
	offset int
}

func (s *rebuildSink) HandleRecords(records []feed.Record) error {
	var rows []domain.Row
	for _, rec := range records {
		row := feed.Normalize(rec)
		if row.IsEmpty() || row.Deleted {
			continue
		}
		rows = append(rows, row)
	}
	s.store.SetRows(rows)

	events, deletedKeys := timeline.Assemble(records, s.offset)
	s.sched.SubmitRebuild(events, deletedKeys)
	return nil
}

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`ggm-timeline - live show cue scheduler

Usage:
  ggm-timeline <command>

Commands:
  serve      Start the timeline engine
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  FEED_URL                  Hand logger feed URL (required)
  DEVICE_ADDR               Switcher press API host:port (required)
  SEQUENCE_URL              Overlay reveal-order endpoint (optional)
  REPLAY_ADDR               Replay system host:port for the day clock (optional)
  HTTP_ADDR                 HTTP server address (default: ":8080")
  CSV_DIR                   Overlay CSV output directory (default: "./artifacts")

  DAILY_OFFSET_SECONDS      Offset added to feed timestamps (default: "0")
  FEED_TIME_OFFSET_SECONDS  Extra feed timestamp offset (default: "0")
  TICK_INTERVAL             Scheduler tick interval (default: "200ms")
  FEED_POLL_INTERVAL        Feed re-fetch interval (default: "20s")
  CLOCK_POLL_INTERVAL       Replay timecode poll interval (default: "200ms")
  FIRE_TOLERANCE            Fire window around event time (default: "600ms")
  CATCHUP_WINDOW            Late-fire catch-up window (default: "5s")
  SENDING_STALE_AFTER       In-flight job stale timeout (default: "30s")
  ARTIFACT_DELAY            End-of-hand artifact refresh delay (default: "5s")
  DEVICE_TIMEOUT            Switcher press timeout (default: "800ms")
  JOB_BUFFER_SIZE           Dispatch queue capacity (default: "64")

  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")
  DISPATCHER_DRAIN_TIMEOUT  Dispatch queue drain timeout (default: "5s")

  CIRCUIT_BREAKER_THRESHOLD Consecutive failures before opening (default: "5", "0" disables)
  CIRCUIT_BREAKER_COOLDOWN  Open interval before a probe (default: "30s")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")

  REDIS_ADDR                Redis address for trigger analytics (optional)
  DATABASE_URL              PostgreSQL DSN for the dispatch journal (optional)
  LEDGER_RESET_CRON         Cron spec for the daily ledger reset (optional, e.g. "30 4 * * *")`)
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	logConfigWarnings(&cfg)

	// Metrics sink (optional)
	var sink metrics.Sink = metrics.NoopSink{}
	if cfg.MetricsEnabled {
		promSink, err := metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to register metrics: %v\n", err)
			return exitRuntimeError
		}
		sink = promSink
		log.Printf("ggm-timeline: metrics enabled (path=%s)", cfg.MetricsPath)
	} else {
		log.Println("ggm-timeline: METRICS_ENABLED not set; metrics disabled")
	}

	// Day clock from the replay system, wall-clock fallback when absent.
	clockSrc := clock.NewSource(cfg.ReplayAddr, cfg.ClockPollInterval)

	bus := channel.NewJobBus(cfg.JobBufferSize)

	sched := scheduler.New(scheduler.Config{
		TickInterval:      cfg.TickInterval,
		FireTolerance:     cfg.FireTolerance,
		CatchupWindow:     cfg.CatchupWindow,
		ArtifactDelay:     cfg.ArtifactDelay,
		SendingStaleAfter: cfg.SendingStaleAfter,
	}, clockSrc, bus, sink)

	// Dispatch targets.
	var breaker *circuitbreaker.Breaker
	if cfg.CircuitBreakerThreshold > 0 {
		breaker = circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown)
	}
	device := dispatcher.NewDeviceSender(cfg.DeviceAddr, cfg.DeviceTimeout, breaker)
	sequences := dispatcher.NewSequenceSender(cfg.SequenceURL, 0)

	rowStore := artifacts.NewRowStore()
	refresher := artifacts.NewRefresher(rowStore, cfg.CSVDir)

	workerOpts := []dispatcher.WorkerOption{
		dispatcher.WithMetrics(sink),
		dispatcher.WithDrainTimeout(cfg.DispatcherDrainTimeout),
	}

	// Trigger analytics if Redis is configured.
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		workerOpts = append(workerOpts, dispatcher.WithAnalytics(analytics.NewRedisSink(redisClient)))
		log.Printf("ggm-timeline: analytics enabled (redis=%s)", cfg.RedisAddr)
	} else {
		log.Println("ggm-timeline: REDIS_ADDR not set; analytics disabled")
	}

	// Dispatch journal if Postgres is configured.
	var journalDB api.HealthChecker
	if cfg.DatabaseURL != "" {
		openCtx, cancel := context.WithTimeout(context.Background(), 10*cfg.TickInterval)
		db, err := journal.Open(openCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect journal database: %v\n", err)
			return exitRuntimeError
		}
		defer db.Close()
		store := journal.NewStore(db)
		if err := store.EnsureSchema(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to prepare journal schema: %v\n", err)
			return exitRuntimeError
		}
		workerOpts = append(workerOpts, dispatcher.WithJournal(store))
		journalDB = db
		log.Println("ggm-timeline: dispatch journal enabled")
	} else {
		log.Println("ggm-timeline: DATABASE_URL not set; dispatch journal disabled")
	}

	worker := dispatcher.NewWorker(device, sequences, refresher, sched.Results(), workerOpts...)

	// Feed pipeline.
	offset := cfg.DailyOffsetSeconds + cfg.FeedTimeOffsetSeconds
	fetcher := feed.NewClient(cfg.FeedURL, cfg.FeedPollInterval/2)
	poller := feed.NewPoller(fetcher, &rebuildSink{store: rowStore, sched: sched, offset: offset}, cfg.FeedPollInterval).
		WithMetrics(sink)

	// HTTP server: control API plus optional metrics endpoint.
	apiHandler := api.NewHandler(sched).WithFeedHealth(poller)
	if journalDB != nil {
		apiHandler = apiHandler.WithHealthChecker(journalDB)
	}
	mux := http.NewServeMux()
	if cfg.MetricsEnabled {
		mux.Handle(cfg.MetricsPath, promhttp.Handler())
	}
	mux.Handle("/", apiHandler)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	go func() {
		log.Printf("ggm-timeline: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("ggm-timeline: http server error: %v", err)
		}
	}()

	// Separate contexts per component for ordered shutdown.
	feedCtx, cancelFeed := context.WithCancel(context.Background())
	clockCtx, cancelClock := context.WithCancel(context.Background())
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())

	var feedWg, clockWg, schedulerWg, dispatcherWg, rolloverWg sync.WaitGroup
	var cancelRollover context.CancelFunc

	clockWg.Add(1)
	go func() {
		defer clockWg.Done()
		clockSrc.Run(clockCtx)
	}()

	schedulerWg.Add(1)
	go func() {
		defer schedulerWg.Done()
		sched.Run(schedulerCtx)
	}()

	dispatcherWg.Add(1)
	go func() {
		defer dispatcherWg.Done()
		worker.Run(dispatcherCtx, bus.Channel())
	}()

	feedWg.Add(1)
	go func() {
		defer feedWg.Done()
		poller.Run(feedCtx)
	}()

	if cfg.LedgerResetCron != "" {
		runner, err := rollover.New(cfg.LedgerResetCron, sched)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid LEDGER_RESET_CRON: %v\n", err)
			cancelFeed()
			cancelScheduler()
			cancelDispatcher()
			cancelClock()
			return exitInvalidConfig
		}
		var rolloverCtx context.Context
		rolloverCtx, cancelRollover = context.WithCancel(context.Background())
		rolloverWg.Add(1)
		go func() {
			defer rolloverWg.Done()
			runner.Run(rolloverCtx)
		}()
	} else {
		log.Println("ggm-timeline: LEDGER_RESET_CRON not set; daily ledger reset disabled")
	}

	log.Printf("ggm-timeline: started (tick=%s, feed=%s, http=%s)",
		cfg.TickInterval, cfg.FeedPollIntervalStr, cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("ggm-timeline: received signal %v, shutting down", received)

	// Phase 1: stop the feed poller (no new rebuilds).
	log.Println("ggm-timeline: stopping feed poller...")
	cancelFeed()
	feedWg.Wait()

	// Phase 2: stop the rollover timer.
	if cancelRollover != nil {
		cancelRollover()
		rolloverWg.Wait()
	}

	// Phase 3: stop the scheduler (no new jobs enqueued).
	log.Println("ggm-timeline: stopping scheduler...")
	cancelScheduler()
	schedulerWg.Wait()

	// Phase 4: stop the dispatcher (drains queued jobs before returning).
	log.Println("ggm-timeline: stopping dispatcher (draining jobs)...")
	cancelDispatcher()
	dispatcherWg.Wait()

	// Phase 5: stop the clock poller.
	cancelClock()
	clockWg.Wait()

	// Phase 6: stop the HTTP server gracefully.
	log.Println("ggm-timeline: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("ggm-timeline: http server shutdown error: %v", err)
	}

	log.Println("ggm-timeline: stopped")
	return exitSuccess
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("ggm-timeline version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
