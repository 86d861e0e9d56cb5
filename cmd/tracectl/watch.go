package main

import (
	"context"
	"errors"
	"expvar"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the workspace whenever its storage changes",
		Long: `Keeps the workspace open and reloads it when another process writes to
the storage. Only drivers that can observe changes (file) reload; others
simply stay open. With --metrics-addr the process also serves /metrics and
/debug/vars until interrupted.`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			unsubscribe := s.engine.Subscribe(func() {
				s.logger.Info("workspace changed", "records", s.engine.Count(), "suspect_links", len(s.engine.SuspectLinks()))
			})
			defer unsubscribe()

			errc := make(chan error, 1)
			if metricsAddr != "" {
				srv, ln, err := s.metricsServer(metricsAddr)
				if err != nil {
					return err
				}
				s.logger.Info("serving metrics", "addr", ln.Addr().String())
				go func() {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errc <- err
						cancel()
					}
				}()
				defer func() {
					shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
					defer stop()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			if err := s.engine.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			<-ctx.Done()
			select {
			case err := <-errc:
				return err
			default:
				return nil
			}
		}),
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /debug/vars on this address")
	return cmd
}

func (s *session) metricsServer(addr string) (*http.Server, net.Listener, error) {
	mux := http.NewServeMux()
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	mux.Handle("/debug/vars", expvar.Handler())
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	return &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}, ln, nil
}
