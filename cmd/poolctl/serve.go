package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/clusterpool/pkg/log"
	"github.com/cuemby/clusterpool/pkg/metrics"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string
	var monitorInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the metrics/health HTTP endpoint and host monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go eng.MonitorHosts(ctx, monitorInterval)

			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.Handle("/health", metrics.HealthHandler())
			mux.Handle("/ready", metrics.ReadyHandler())
			mux.Handle("/live", metrics.LivenessHandler())

			srv := &http.Server{Addr: addr, Handler: mux}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Info("shutting down")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			serveLog := log.WithComponent("serve")
			serveLog.Info().Str("addr", addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9090", "address to serve /metrics, /health, /ready, /live on")
	cmd.Flags().DurationVar(&monitorInterval, "monitor-interval", 30*time.Second, "interval between host daemon health checks")

	return cmd
}
