package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sumerian-dev/sumerian/internal/watch"
	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

func newWatchCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Print coalesced file change events",
		Long: `Watch dir (default: project root) and print one line per change until
interrupted. Noise directories are skipped and write bursts are coalesced
into a single modify event.

With --metrics-addr, Prometheus metrics are served on /metrics while
watching.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			dir := svc.ProjectRoot()
			if len(args) > 0 {
				if dir, err = absArg(args[0]); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			out := cmd.OutOrStdout()
			cancel, err := svc.Watch(ctx, dir, model.ActorUser, func(ev watch.Event) {
				if jsonOutput {
					line, _ := json.Marshal(ev)
					fmt.Fprintln(out, string(line))
					return
				}
				fmt.Fprintf(out, "%-6s %s\n", ev.Type, ev.Path)
			})
			if err != nil {
				return err
			}
			defer cancel()

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :2112)")
	return cmd
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Default().Gatherer(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorErr("metrics server failed", err, logging.Fields{"addr": addr})
		}
	}()
	return srv
}
