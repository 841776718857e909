package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ozone/repmgr/pkg/config"
	"github.com/ozone/repmgr/pkg/containermanager"
	"github.com/ozone/repmgr/pkg/dispatch"
	"github.com/ozone/repmgr/pkg/events"
	"github.com/ozone/repmgr/pkg/log"
	"github.com/ozone/repmgr/pkg/metrics"
	"github.com/ozone/repmgr/pkg/nodemanager"
	"github.com/ozone/repmgr/pkg/reconciler"
	"github.com/ozone/repmgr/pkg/repmanager"
	"github.com/ozone/repmgr/pkg/types"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "replicationd",
	Short: "Container replication control plane",
	Long: `replicationd keeps container replication within its configured
bounds: it classifies replica sets, plans moves and deletes to reach
target replication, and reconciles datanode container reports back into
the container ledger.`,
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (optional; defaults apply if omitted)")
	rootCmd.PersistentFlags().String("metrics-addr", "127.0.0.1:9090", "Address to serve /metrics, /health, /ready, /live on")
}

func run(cmd *cobra.Command, _ []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	configPath, _ := cmd.Flags().GetString("config")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
	logger := log.WithComponent("main")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	containers := containermanager.NewStore()
	nodes := nodemanager.NewRegistry(cfg.NodeHealth.StaleInterval, cfg.NodeHealth.DeadInterval)
	dispatcher := dispatch.NewFanOut() // TODO: replace with a transport-backed Dispatcher once one is wired (see DESIGN.md)

	recon := reconciler.New(containers, nodes, cfg.NodeHealth.StaleInterval)
	mgr := repmanager.New(cfg.Replication, containers, nodes, dispatcher)

	bus := wireEventBus(recon, mgr, nodes, logger)
	collector := metrics.NewCollector(bus, "container-report", "node-state-change", "notify")

	metrics.SetVersion(Version)
	metrics.RegisterComponent("events", true, "running")
	metrics.RegisterComponent("repmanager", false, "starting")
	metrics.RegisterComponent("reconciler", false, "starting")

	recon.Start()
	metrics.RegisterComponent("reconciler", true, "running")
	mgr.Start()
	metrics.RegisterComponent("repmanager", true, "running")
	collector.Start(cfg.Replication.Interval)

	go serveMetrics(metricsAddr, logger)

	logger.Info().Str("metrics_addr", metricsAddr).Msg("replicationd started")

	waitForSignal()

	logger.Info().Msg("shutting down")
	collector.Stop()
	mgr.Stop()
	recon.Stop()
	bus.Close()
	return nil
}

// wireEventBus registers the §6 inbound event topics. Each topic is its own
// single-threaded worker (§4.1, pkg/events): CONTAINER_REPORT and
// INCREMENTAL_CONTAINER_REPORT both feed the reconciler; NODE_STATE_CHANGE
// updates the node registry; NOTIFY coalesces into the replication manager's
// Notify() signal.
func wireEventBus(recon *reconciler.Reconciler, mgr *repmanager.Manager, nodes *nodemanager.Registry, logger zerolog.Logger) *events.Bus {
	bus := events.NewBus()

	bus.RegisterTopic("container-report", 256, func(payload any, _ string) error {
		report, ok := payload.(containerReportPayload)
		if !ok {
			return fmt.Errorf("container-report: unexpected payload type %T", payload)
		}
		if err := recon.ProcessReport(report.DatanodeID, report.Reports); err != nil {
			logger.Debug().Err(err).Str("datanode_id", string(report.DatanodeID)).Msg("container report included dropped entries")
		}
		mgr.Notify()
		return nil
	})

	bus.RegisterTopic("node-state-change", 64, func(payload any, _ string) error {
		change, ok := payload.(nodeStateChangePayload)
		if !ok {
			return fmt.Errorf("node-state-change: unexpected payload type %T", payload)
		}
		nodes.SetOpState(change.DatanodeID, change.New)
		logger.Info().
			Str("datanode_id", string(change.DatanodeID)).
			Str("old", string(change.Old)).
			Str("new", string(change.New)).
			Msg("node state change")
		return nil
	})

	bus.RegisterTopic("notify", 64, func(payload any, _ string) error {
		mgr.Notify()
		return nil
	})

	return bus
}

// containerReportPayload is the CONTAINER_REPORT / INCREMENTAL_CONTAINER_REPORT
// event payload (§6).
type containerReportPayload struct {
	DatanodeID types.DatanodeID
	Reports    []reconciler.ReplicaReport
}

// nodeStateChangePayload is the NODE_STATE_CHANGE event payload (§6).
type nodeStateChangePayload struct {
	DatanodeID types.DatanodeID
	Old        types.OpState
	New        types.OpState
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
