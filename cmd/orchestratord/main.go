package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/haribo256/process-orchestrator/internal/control"
	"github.com/haribo256/process-orchestrator/internal/engine"
	"github.com/haribo256/process-orchestrator/internal/history"
	"github.com/haribo256/process-orchestrator/internal/hostservice"
	"github.com/haribo256/process-orchestrator/internal/httpapi"
	applog "github.com/haribo256/process-orchestrator/internal/logger"
	"github.com/haribo256/process-orchestrator/internal/metrics"
	"github.com/haribo256/process-orchestrator/internal/osadapter"
	"github.com/haribo256/process-orchestrator/internal/specload"
)

func main() {
	var (
		specsDir     string
		logPath      string
		logFormat    string
		historyDB    string
		metricsAddr  string
		tickInterval string
	)

	root := &cobra.Command{
		Use:   "orchestratord",
		Short: "Supervise a fixed set of long-running processes against their desired state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(specsDir, logPath, logFormat, historyDB, metricsAddr, tickInterval)
		},
	}
	root.Flags().StringVar(&specsDir, "specs-dir", "specs", "directory of *.toml process spec files")
	root.Flags().StringVar(&logPath, "log-file", "", "path to the supervisor's own log file (default: stderr)")
	root.Flags().StringVar(&logFormat, "log-format", "text", "one of text, color, json")
	root.Flags().StringVar(&historyDB, "history-db", "", "path to a SQLite lifecycle history database (default: history disabled)")
	root.Flags().StringVar(&metricsAddr, "metrics-listen", "", "address to serve /healthz and /metrics (default: disabled)")
	root.Flags().StringVar(&tickInterval, "tick-interval", "1s", "polling cadence for live process metrics")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(specsDir, logPath, logFormat, historyDB, metricsAddr, tickIntervalStr string) error {
	tickInterval, err := time.ParseDuration(tickIntervalStr)
	if err != nil {
		return fmt.Errorf("invalid --tick-interval: %w", err)
	}

	log := applog.New(applog.Config{Path: logPath, Format: applog.Format(logFormat)})

	var historySink engine.HistorySink = history.NopSink{}
	if historyDB != "" {
		sink, err := history.NewSQLiteSink(historyDB)
		if err != nil {
			return fmt.Errorf("open history db: %w", err)
		}
		if err := sink.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("ensure history schema: %w", err)
		}
		defer sink.Close()
		historySink = sink
	}

	var recorder engine.Recorder
	if metricsAddr != "" {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		recorder = metrics.Recorder{}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.New(
		osadapter.New(),
		specload.NewDirLoader(specsDir),
		engine.WithLogger(log),
		engine.WithHistory(historySink),
		engine.WithMetrics(recorder),
		engine.WithTickInterval(tickInterval),
		engine.WithControlSource(control.NotifyOnInterrupt),
	)

	if metricsAddr != "" {
		go func() {
			srv := &http.Server{Addr: metricsAddr, Handler: httpapi.NewHandler(eng)}
			log.Info("serving /healthz and /metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server failed", "err", err)
			}
		}()
	}

	host := hostservice.NewStandalone(log)
	return host.Run(ctx, eng)
}
