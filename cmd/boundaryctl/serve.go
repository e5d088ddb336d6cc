// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/boundarynet/core/internal/monitor"
)

func serveCmd() *cobra.Command {
	var (
		addr          string
		gatewaysPath  string
		probeInterval time.Duration
		probeTimeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway availability monitor and expose health/metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gateways, err := loadGateways(gatewaysPath)
			if err != nil {
				return withExitCode(exitConfigError, err)
			}

			mon := monitor.New(monitor.Config{
				ProbeInterval: probeInterval,
				ProbeTimeout:  probeTimeout,
			}, httpProber{client: &http.Client{}})
			for _, gw := range gateways {
				mon.Register(gw)
			}
			go runProbeLoop(ctx, mon, gateways, probeInterval)

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)
			r.Get("/healthz", healthzHandler(mon))
			r.Handle("/metrics", promhttp.Handler())

			srv := &http.Server{Addr: addr, Handler: r}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return withExitCode(exitNetworkError, err)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8090", "listen address for the debug HTTP surface")
	cmd.Flags().StringVar(&gatewaysPath, "gateways", "", "path to a JSON array of {id,region,test_url} gateways to probe")
	cmd.Flags().DurationVar(&probeInterval, "probe-interval", 5*time.Minute, "gateway probe interval")
	cmd.Flags().DurationVar(&probeTimeout, "probe-timeout", 10*time.Second, "per-probe timeout")

	return cmd
}

type jsonGateway struct {
	ID      string `json:"id"`
	Region  string `json:"region"`
	TestURL string `json:"test_url"`
}

func loadGateways(path string) ([]monitor.Gateway, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []jsonGateway
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	out := make([]monitor.Gateway, len(entries))
	for i, e := range entries {
		out[i] = monitor.Gateway{ID: e.ID, Region: e.Region, TestURL: e.TestURL}
	}
	return out, nil
}

// runProbeLoop re-probes every registered gateway once per interval
// until ctx is cancelled.
func runProbeLoop(ctx context.Context, mon *monitor.Monitor, gateways []monitor.Gateway, interval time.Duration) {
	if len(gateways) == 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, gw := range gateways {
				_ = mon.Probe(ctx, gw.ID)
			}
		}
	}
}

func healthzHandler(mon *monitor.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := mon.Global()
		w.Header().Set("Content-Type", "application/json")
		if !mon.SLACheck(0.99) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(metrics)
	}
}

// httpProber issues a HEAD request against a gateway's test URL and
// reports round-trip latency, per spec §4.10's "availability probe."
type httpProber struct {
	client *http.Client
}

func (p httpProber) Probe(ctx context.Context, testURL string) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, testURL, nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return time.Since(start), errors.New("gateway returned a server error")
	}
	return time.Since(start), nil
}
