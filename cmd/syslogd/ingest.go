package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/syslogpipe/syslogd/internal/config"
	"github.com/syslogpipe/syslogd/internal/database"
	"github.com/syslogpipe/syslogd/internal/ingestion"
	"github.com/syslogpipe/syslogd/internal/monitoring"
	"github.com/syslogpipe/syslogd/internal/normalize"
	"github.com/syslogpipe/syslogd/internal/websocket"
)

func newIngestCmd() *cobra.Command {
	var liveTailAddr string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Start the UDP syslog receiver and batch writer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(liveTailAddr)
		},
	}

	cmd.Flags().StringVar(&liveTailAddr, "live-tail-addr", ":8081", "address the live-tail WebSocket endpoint binds to")
	return cmd
}

func runIngest(liveTailAddr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("ingest: load config: %w", err)
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	normalize.Debug = cfg.Debug

	log.Info().Str("version", version).Msg("syslogd: starting ingest")

	// The writer reuses one handle for its whole lifetime; every month's
	// table lives in the same store file (spec.md §9 design rationale).
	db, err := database.OpenWriter(cfg.Database.LogsPath)
	if err != nil {
		return fmt.Errorf("ingest: open store: %w", err)
	}
	closeDB := db.Close

	queueCapacity := cfg.BatchSize * 10
	queue := ingestion.NewQueue(queueCapacity)

	addr := fmt.Sprintf("%s:%d", cfg.BindingIP, cfg.BindingPort)
	receiver, err := ingestion.NewReceiver(addr, queue)
	if err != nil {
		closeDB()
		return fmt.Errorf("ingest: bind udp %s: %w", addr, err)
	}

	writer := ingestion.NewWriter(db, queue, cfg.BatchSize, cfg.BatchTimeout)

	hub := websocket.NewHub()
	go hub.Run()
	writer.AddListener(websocket.NewFlushNotifier(hub))

	metrics := monitoring.NewMetricsCollector()
	metrics.SetDescription("total_logs_ingested", "Total number of syslog records committed to a partition")
	metrics.SetDescription("datagrams_dropped", "Total number of datagrams dropped because the ingest queue was full")
	metrics.SetDescription("queue_depth", "Current depth of the ingest queue")
	metrics.SetDescription("queue_capacity", "Configured capacity of the ingest queue")
	writer.AddListener(monitoring.NewIngestMetricsListener(metrics))

	stopSampling := make(chan struct{})
	go sampleQueueMetrics(queue, receiver, metrics, stopSampling)

	go receiver.Run()
	go writer.Run()

	healthMonitor := monitoring.NewHealthMonitor(version)
	// A saturating queue means datagrams are actively dropping, but the
	// receiver and writer goroutines themselves keep running — degraded,
	// not down.
	healthMonitor.RegisterChecker(monitoring.NewQueueHealthChecker(queue.Len, queue.Cap()))
	healthMonitor.RegisterChecker(monitoring.NewIngestionHealthChecker(metrics))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", websocket.HandleWebSocket(hub))
	mux.HandleFunc("/healthz", healthMonitor.HTTPHandler())
	mux.HandleFunc("/livez", healthMonitor.LivenessHandler())
	mux.HandleFunc("/readyz", healthMonitor.ReadinessHandler())
	httpServer := &http.Server{Addr: liveTailAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", liveTailAddr).Msg("ingest: live-tail endpoint listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ingest: live-tail endpoint failed")
		}
	}()

	log.Info().Str("addr", addr).Int("batch_size", cfg.BatchSize).Dur("batch_timeout", cfg.BatchTimeout).
		Msg("ingest: receiver and writer started")

	coordinator := ingestion.NewCoordinator(receiver, writer, closeDB)
	coordinator.WaitForSignal()

	close(stopSampling)
	_ = httpServer.Close()

	log.Info().Msg("ingest: shutdown complete")
	return nil
}

func sampleQueueMetrics(queue *ingestion.Queue, receiver *ingestion.Receiver, metrics *monitoring.MetricsCollector, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	metrics.SetGauge("queue_capacity", float64(queue.Cap()))

	var lastDrops int64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			metrics.RecordQueueDepth(queue.Len())
			drops := receiver.DropCount()
			if delta := drops - lastDrops; delta > 0 {
				metrics.RecordDrops(delta)
				lastDrops = drops
			}
		}
	}
}
