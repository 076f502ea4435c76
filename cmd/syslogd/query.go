package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/syslogpipe/syslogd/internal/api"
	"github.com/syslogpipe/syslogd/internal/config"
	"github.com/syslogpipe/syslogd/internal/database"
	"github.com/syslogpipe/syslogd/internal/monitoring"
	"github.com/syslogpipe/syslogd/internal/query"
)

func newQueryCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Serve the read-side HTTP API fronting the log query runner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address the search API binds to")
	return cmd
}

func runQuery(addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("query: load config: %w", err)
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("version", version).Msg("syslogd: starting query")

	tpl := database.ParseTemplate(cfg.Database.LogsPath)
	runner := query.NewRunner()

	metrics := monitoring.NewMetricsCollector()
	metrics.SetDescription("total_queries_executed", "Total number of search requests executed")
	metrics.SetDescription("query_duration_ms", "Search request duration in milliseconds")
	metrics.SetDescription("failed_queries", "Total number of search requests that returned an error")

	healthMonitor := monitoring.NewHealthMonitor(version)
	// The store directory is load-bearing: if it's gone or unwritable,
	// search cannot run at all. A slow query engine only makes search
	// unpleasant, so it stays advisory.
	healthMonitor.RegisterCriticalChecker(monitoring.NewPartitionHealthChecker(tpl.Dir))
	healthMonitor.RegisterChecker(monitoring.NewQueryEngineHealthChecker(metrics))

	alertManager := monitoring.NewAlertManager(metrics)
	alertManager.AddListener(monitoring.NewLogAlertListener(log.Logger))

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				alertManager.CheckAlerts()
			case <-stop:
				return
			}
		}
	}()
	defer close(stop)

	exporter := monitoring.NewPrometheusExporter(metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", api.SearchLogs(cfg.Database.LogsPath, runner, metrics))
		r.Get("/partitions", api.ListPartitions(cfg.Database.LogsPath))

		r.Route("/monitoring", func(r chi.Router) {
			r.Get("/health", healthMonitor.HTTPHandler())
			r.Get("/health/live", healthMonitor.LivenessHandler())
			r.Get("/health/ready", healthMonitor.ReadinessHandler())
			r.Get("/metrics", api.GetMetrics(metrics))
			r.Get("/metrics/prometheus", api.PrometheusMetrics(exporter))
			r.Get("/alerts", api.GetAlerts(alertManager))
			r.Get("/alerts/active", api.GetActiveAlerts(alertManager))
		})
	})

	srv := &http.Server{Addr: addr, Handler: r}

	log.Info().Str("addr", addr).Msg("query: search API listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("query: serve: %w", err)
	}
	return nil
}
