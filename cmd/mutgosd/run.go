package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mutgos/mutgos/pkg/channel"
	"github.com/mutgos/mutgos/pkg/config"
	"github.com/mutgos/mutgos/pkg/dbaccess"
	"github.com/mutgos/mutgos/pkg/entity"
	"github.com/mutgos/mutgos/pkg/events"
	"github.com/mutgos/mutgos/pkg/log"
	"github.com/mutgos/mutgos/pkg/metrics"
	"github.com/mutgos/mutgos/pkg/permission"
	"github.com/mutgos/mutgos/pkg/storage"
	"github.com/mutgos/mutgos/pkg/updatemgr"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mutgosd server core",
	RunE:  runServer,
}

func init() {
	runCmd.Flags().String("config", "", "Path to mutgosd.yaml config file (falls back to defaults if absent)")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path, _ = cmd.Root().PersistentFlags().GetString("config")
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel, _ := cmd.Root().PersistentFlags().GetString("log-level")
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	logJSON, _ := cmd.Root().PersistentFlags().GetBool("log-json")
	initLogging(logLevel, logJSON || cfg.Log.JSON)

	entity.SetLimits(cfg.DB.Limits.EntityName, cfg.DB.Limits.PlayerPuppetName, cfg.DB.Limits.StringSize)

	metrics.SetVersion(Version)

	fmt.Println("Starting mutgosd...")
	fmt.Printf("  DB file: %s\n", cfg.DB.DbFile)
	fmt.Printf("  Metrics: http://%s/metrics\n", cfg.Metrics.BindAddr)

	store, err := storage.NewBoltStore(cfg.DB.DbFile)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	metrics.RegisterComponent("storage", true, "ready")

	// facade.Startup starts the broker and facade.Shutdown stops it.
	broker := events.NewBroker()

	facadeLogger := log.WithComponent("dbaccess")
	facade := dbaccess.New(store, broker, facadeLogger)
	if err := facade.Startup(); err != nil {
		return fmt.Errorf("start dbaccess: %w", err)
	}
	metrics.RegisterComponent("dbaccess", true, "ready")

	manager := updatemgr.NewManagerWithInterval(facade, cfg.UpdateManager.FlushInterval)
	manager.Start()
	metrics.RegisterComponent("updatemgr", true, "ready")

	// facade satisfies permission.Resolver directly; wiring it here
	// gives the (not-yet-built, out-of-scope) session layer a ready
	// evaluator context instead of one assembled ad hoc per connection.
	var resolver permission.Resolver = facade
	metrics.RegisterComponent("permission", true, "ready")
	fmt.Printf("  Permission resolver: wired (%T)\n", resolver)

	channels := channel.NewRegistry()
	metrics.RegisterComponent("channel", true, "ready")
	fmt.Printf("  Channel registry: ready (%d open)\n", len(channels.Names()))

	httpSrv := startMetricsServer(cfg.Metrics.BindAddr)

	fmt.Println("mutgosd is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	manager.Stop()
	_ = httpSrv.Close()
	if err := facade.Shutdown(); err != nil {
		return fmt.Errorf("shutdown dbaccess: %w", err)
	}

	fmt.Println("Shutdown complete")
	return nil
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Metrics server error: %v\n", err)
		}
	}()
	return srv
}
