// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package fallback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedResponse struct {
	status int
	err    error
}

type fakeFetcher struct {
	responses map[string][]scriptedResponse // gateway URL -> queued responses
	calls     map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: map[string][]scriptedResponse{}, calls: map[string]int{}}
}

func (f *fakeFetcher) script(url string, responses ...scriptedResponse) {
	f.responses[url] = responses
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, int, error) {
	f.calls[url]++
	queue := f.responses[url]
	if len(queue) == 0 {
		return nil, 503, nil
	}
	next := queue[0]
	if len(queue) > 1 {
		f.responses[url] = queue[1:]
	}
	if next.status >= 200 && next.status < 300 {
		return []byte("data"), next.status, nil
	}
	return nil, next.status, next.err
}

type fakeHealth struct {
	m map[string]Health
}

func (f *fakeHealth) GatewayHealth(id string) (Health, bool) {
	h, ok := f.m[id]
	return h, ok
}

func fastConfig() Config {
	return Config{RetryBaseDelay: time.Millisecond}
}

func TestResolve_PrimarySucceeds(t *testing.T) {
	gws := []Gateway{{ID: "gw1", Region: "us-east", URLFmt: "https://gw1.example/%s"}}
	health := &fakeHealth{m: map[string]Health{"gw1": {Available: true, Latency: 10 * time.Millisecond, SuccessRate: 0.99}}}
	fetcher := newFakeFetcher()
	fetcher.script("https://gw1.example/bafyABC", scriptedResponse{status: 200})

	r, err := New(fastConfig(), gws, health, fetcher)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "bafyABC", Criteria{UserRegion: "us-east"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "gw1", res.Gateway)
	require.Equal(t, 1, res.Attempts)
}

func TestResolve_FallsBackAfterPrimaryFails(t *testing.T) {
	gws := []Gateway{
		{ID: "gw1", Region: "us-east", URLFmt: "https://gw1.example/%s"},
		{ID: "gw2", Region: "us-east", URLFmt: "https://gw2.example/%s"},
	}
	health := &fakeHealth{m: map[string]Health{
		"gw1": {Available: true, Latency: 5 * time.Millisecond, SuccessRate: 0.99},
		"gw2": {Available: true, Latency: 50 * time.Millisecond, SuccessRate: 0.99},
	}}
	fetcher := newFakeFetcher()
	fetcher.script("https://gw1.example/bafyABC", scriptedResponse{status: 503})
	fetcher.script("https://gw2.example/bafyABC", scriptedResponse{status: 200})

	r, err := New(fastConfig(), gws, health, fetcher)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "bafyABC", Criteria{UserRegion: "us-east"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "gw2", res.Gateway)
	require.Equal(t, 2, res.Attempts)
	require.Len(t, res.Errors, 1)
	require.Equal(t, ErrGatewayUnavailable, res.Errors[0].Kind)
}

func TestResolve_InvalidCIDIsNonRetryable(t *testing.T) {
	gws := []Gateway{
		{ID: "gw1", Region: "us-east", URLFmt: "https://gw1.example/%s"},
		{ID: "gw2", Region: "us-east", URLFmt: "https://gw2.example/%s"},
	}
	health := &fakeHealth{m: map[string]Health{
		"gw1": {Available: true, Latency: 5 * time.Millisecond, SuccessRate: 0.99},
		"gw2": {Available: true, Latency: 10 * time.Millisecond, SuccessRate: 0.99},
	}}
	fetcher := newFakeFetcher()
	fetcher.script("https://gw1.example/bafyABC", scriptedResponse{status: 404})
	fetcher.script("https://gw2.example/bafyABC", scriptedResponse{status: 200})

	r, err := New(fastConfig(), gws, health, fetcher)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "bafyABC", Criteria{UserRegion: "us-east"})
	require.Error(t, err, "invalid_cid must abort the chain rather than fall through to gw2")
	require.False(t, res.Success)
	require.Equal(t, 1, res.Attempts)
	require.Equal(t, ErrInvalidCID, res.Errors[0].Kind)
	require.Equal(t, 0, fetcher.calls["https://gw2.example/bafyABC"])
}

func TestResolve_CachesSuccessfulResponse(t *testing.T) {
	gws := []Gateway{{ID: "gw1", Region: "us-east", URLFmt: "https://gw1.example/%s"}}
	health := &fakeHealth{m: map[string]Health{"gw1": {Available: true, SuccessRate: 0.99}}}
	fetcher := newFakeFetcher()
	fetcher.script("https://gw1.example/bafyABC", scriptedResponse{status: 200})

	r, err := New(fastConfig(), gws, health, fetcher)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "bafyABC", Criteria{UserRegion: "us-east"})
	require.NoError(t, err)

	res2, err := r.Resolve(context.Background(), "bafyABC", Criteria{UserRegion: "us-east"})
	require.NoError(t, err)
	require.True(t, res2.Cached)
	require.Equal(t, 1, fetcher.calls["https://gw1.example/bafyABC"], "second resolve must be served from cache")
}

func TestResolve_FailureCacheSkipsKnownBadGateway(t *testing.T) {
	gws := []Gateway{
		{ID: "gw1", Region: "us-east", URLFmt: "https://gw1.example/%s"},
		{ID: "gw2", Region: "us-east", URLFmt: "https://gw2.example/%s"},
	}
	health := &fakeHealth{m: map[string]Health{
		"gw1": {Available: true, Latency: 5 * time.Millisecond, SuccessRate: 0.99},
		"gw2": {Available: true, Latency: 10 * time.Millisecond, SuccessRate: 0.99},
	}}
	fetcher := newFakeFetcher()
	fetcher.script("https://gw1.example/bafyABC", scriptedResponse{status: 503}, scriptedResponse{status: 503})
	fetcher.script("https://gw2.example/bafyABC", scriptedResponse{status: 200})

	r, err := New(fastConfig(), gws, health, fetcher)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "bafyABC", Criteria{UserRegion: "us-east"})
	require.NoError(t, err)

	r.responseCache.Purge() // force a second real resolve; gw1 should now be skipped via the failure cache
	res2, err := r.Resolve(context.Background(), "bafyABC", Criteria{UserRegion: "us-east"})
	require.NoError(t, err)
	require.Equal(t, "gw2", res2.Gateway)
	require.Equal(t, 1, fetcher.calls["https://gw1.example/bafyABC"], "gw1 must not be retried while its failure cache entry is live")
}

func TestSelectChain_PublicTailDeduplicated(t *testing.T) {
	gws := []Gateway{
		{ID: "gw1", Region: "us-east", URLFmt: "https://gw1.example/%s"},
		{ID: "pub1", Region: "", URLFmt: "https://pub1.example/%s", Public: true},
	}
	health := &fakeHealth{m: map[string]Health{"gw1": {Available: true, Latency: time.Millisecond, SuccessRate: 0.99}}}
	r, err := New(fastConfig(), gws, health, newFakeFetcher())
	require.NoError(t, err)

	chain := r.selectChain(Criteria{UserRegion: "us-east"})
	require.Len(t, chain, 2)
	require.Equal(t, "gw1", chain[0].ID)
	require.Equal(t, "pub1", chain[1].ID)
}

func TestSelectChain_NoHealthyPrimaryStillFallsBackToChain(t *testing.T) {
	gws := []Gateway{
		{ID: "gw1", Region: "us-east", URLFmt: "https://gw1.example/%s"},
		{ID: "pub1", Region: "", URLFmt: "https://pub1.example/%s", Public: true},
	}
	health := &fakeHealth{m: map[string]Health{"gw1": {Available: false}}}
	r, err := New(fastConfig(), gws, health, newFakeFetcher())
	require.NoError(t, err)

	chain := r.selectChain(Criteria{UserRegion: "us-east"})
	require.Len(t, chain, 2, "an unhealthy region gateway still belongs in the fallback chain")
}

func TestResolve_NoGatewayInRegionErrors(t *testing.T) {
	r, err := New(fastConfig(), nil, &fakeHealth{m: map[string]Health{}}, newFakeFetcher())
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "bafyABC", Criteria{UserRegion: "us-east"})
	require.Error(t, err)
}
