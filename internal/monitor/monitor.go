// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package monitor implements the Availability Monitor: periodic gateway
// health probes, rolling latency percentiles, a circuit breaker at 3
// consecutive failures, and SLA checks, per spec §4.10.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// rollingWindow bounds the simple-average success rate and latency
// percentile samples, per spec §4.10's "rolling success rate
// (simple-average over 100 samples)".
const rollingWindow = 100

// Prober issues the bounded HEAD-equivalent request to a gateway's test URL.
type Prober interface {
	Probe(ctx context.Context, testURL string) (time.Duration, error)
}

// Config tunes probe cadence and timeout.
type Config struct {
	ProbeInterval time.Duration // default 5 minutes
	ProbeTimeout  time.Duration // default 10 seconds
}

func (c Config) withDefaults() Config {
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 5 * time.Minute
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
	return c
}

// Gateway identifies one monitored endpoint.
type Gateway struct {
	ID      string
	Region  string
	TestURL string
}

// Health is the per-gateway snapshot spec §4.10 requires.
type Health struct {
	GatewayID           string
	Available           bool
	LastLatency         time.Duration
	ConsecutiveFailures int
	RollingSuccessRate  float64 // [0,1], simple average over up to 100 samples
	CircuitOpen         bool
}

type gatewayState struct {
	gw      Gateway
	breaker *gobreaker.CircuitBreaker

	mu          sync.Mutex
	successes   []bool
	latencies   []time.Duration
	consecutive int
	lastLatency time.Duration
	lastOK      bool
}

// Monitor tracks health across a fleet of gateways.
type Monitor struct {
	cfg     Config
	prober  Prober
	mu      sync.RWMutex
	states  map[string]*gatewayState
}

// New builds a Monitor.
func New(cfg Config, prober Prober) *Monitor {
	return &Monitor{cfg: cfg.withDefaults(), prober: prober, states: map[string]*gatewayState{}}
}

// Register adds a gateway to the monitored fleet, wiring a circuit
// breaker that trips at 3 consecutive failures, per spec §4.10.
func (m *Monitor) Register(gw Gateway) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &gatewayState{gw: gw}
	st.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        gw.ID,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	m.states[gw.ID] = st
}

// Probe issues one health probe against gw through its circuit breaker.
func (m *Monitor) Probe(ctx context.Context, gatewayID string) error {
	m.mu.RLock()
	st, ok := m.states[gatewayID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("monitor: unknown gateway %q", gatewayID)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	_, err := st.breaker.Execute(func() (interface{}, error) {
		latency, perr := m.prober.Probe(ctx, st.gw.TestURL)
		st.record(perr == nil, latency)
		return nil, perr
	})
	return err
}

// RecordRequest ingests an externally observed request outcome (e.g.
// from the Fallback Resolver's own traffic), per spec §4.10's
// record_request(success, latency).
func (m *Monitor) RecordRequest(gatewayID string, success bool, latency time.Duration) {
	m.mu.RLock()
	st, ok := m.states[gatewayID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	st.record(success, latency)
}

func (st *gatewayState) record(success bool, latency time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.successes = appendBounded(st.successes, success, rollingWindow)
	st.latencies = appendBoundedDuration(st.latencies, latency, rollingWindow)
	st.lastLatency = latency
	st.lastOK = success
	if success {
		st.consecutive = 0
	} else {
		st.consecutive++
	}
}

func appendBounded(s []bool, v bool, max int) []bool {
	s = append(s, v)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

func appendBoundedDuration(s []time.Duration, v time.Duration, max int) []time.Duration {
	s = append(s, v)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

// Health returns gatewayID's current health snapshot.
func (m *Monitor) Health(gatewayID string) (Health, bool) {
	m.mu.RLock()
	st, ok := m.states[gatewayID]
	m.mu.RUnlock()
	if !ok {
		return Health{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return Health{
		GatewayID:           gatewayID,
		Available:           st.lastOK,
		LastLatency:         st.lastLatency,
		ConsecutiveFailures: st.consecutive,
		RollingSuccessRate:  successRate(st.successes),
		CircuitOpen:         st.breaker.State() == gobreaker.StateOpen,
	}, true
}

func successRate(samples []bool) float64 {
	if len(samples) == 0 {
		return 1
	}
	ok := 0
	for _, s := range samples {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(samples))
}

// RegionAvailability returns "healthy/total" for every gateway registered
// in region, per spec §4.10.
func (m *Monitor) RegionAvailability(region string) (healthy, total int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, st := range m.states {
		if st.gw.Region != region {
			continue
		}
		total++
		st.mu.Lock()
		ok := st.lastOK
		st.mu.Unlock()
		if ok {
			healthy++
		}
	}
	return healthy, total
}

// GlobalMetrics aggregates overall availability and latency percentiles
// across every registered gateway's rolling samples, per spec §4.10.
type GlobalMetrics struct {
	OverallAvailability float64
	P50, P95, P99       time.Duration
	TotalSamples        int
}

// Global computes the fleet-wide rolling metrics.
func (m *Monitor) Global() GlobalMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var allLatencies []time.Duration
	totalOK, total := 0, 0
	for _, st := range m.states {
		st.mu.Lock()
		for _, s := range st.successes {
			total++
			if s {
				totalOK++
			}
		}
		allLatencies = append(allLatencies, st.latencies...)
		st.mu.Unlock()
	}

	metrics := GlobalMetrics{TotalSamples: total}
	if total > 0 {
		metrics.OverallAvailability = float64(totalOK) / float64(total)
	} else {
		metrics.OverallAvailability = 1
	}
	metrics.P50 = percentile(allLatencies, 0.50)
	metrics.P95 = percentile(allLatencies, 0.95)
	metrics.P99 = percentile(allLatencies, 0.99)
	return metrics
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(p * float64(len(sorted)-1))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// SLACheck reports whether global availability over the window meets target.
func (m *Monitor) SLACheck(target float64) bool {
	return m.Global().OverallAvailability >= target
}
