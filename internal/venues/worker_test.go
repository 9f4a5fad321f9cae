package venues

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oddsaxiom/pipeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAdapter struct {
	mu      sync.Mutex
	batches [][]types.RawQuote
	errs    []error
	calls   int
	stopped bool
}

func (f *fakeAdapter) Slug() string                  { return "fake" }
func (f *fakeAdapter) PollInterval() time.Duration   { return 5 * time.Millisecond }
func (f *fakeAdapter) Connect(context.Context) error { return nil }
func (f *fakeAdapter) Stop()                         { f.stopped = true }

func (f *fakeAdapter) FetchBatch(context.Context) ([]types.RawQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.batches) {
		return f.batches[i], nil
	}
	return nil, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]types.NormalizedQuote
}

func (f *fakePublisher) Publish(_ context.Context, quotes []types.NormalizedQuote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, quotes)
	return nil
}

func (f *fakePublisher) published() [][]types.NormalizedQuote {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]types.NormalizedQuote(nil), f.batches...)
}

func rawQuote(price float64) types.RawQuote {
	return types.RawQuote{
		VenueSlug:        "fake",
		ExternalMarketID: "m1",
		MarketTitle:      "Will it rain tomorrow?",
		Category:         types.CategoryScience,
		OutcomeName:      "Yes",
		Price:            price,
		PriceFormat:      types.FormatProbability,
		Outcomes:         []types.OutcomeRef{{Name: "Yes", Index: 0}, {Name: "No", Index: 1}},
		CapturedAt:       time.Now().UTC(),
	}
}

func TestWorkerPublishesNormalizedBatch(t *testing.T) {
	adapter := &fakeAdapter{batches: [][]types.RawQuote{{rawQuote(0.42)}}}
	pub := &fakePublisher{}
	worker := NewWorker(adapter, pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, worker.Start(ctx))

	require.Eventually(t, func() bool {
		return len(pub.published()) >= 1
	}, time.Second, 2*time.Millisecond)

	cancel()
	require.NoError(t, worker.Close())

	batch := pub.published()[0]
	require.Len(t, batch, 1)
	assert.Equal(t, "fake", batch[0].VenueSlug)
	assert.InDelta(t, 0.42, batch[0].ImpliedProb, 1e-9)
	assert.True(t, adapter.stopped)
}

func TestWorkerSwallowsFetchErrors(t *testing.T) {
	adapter := &fakeAdapter{
		errs:    []error{errors.New("upstream down"), nil},
		batches: [][]types.RawQuote{nil, {rawQuote(0.61)}},
	}
	pub := &fakePublisher{}
	worker := NewWorker(adapter, pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, worker.Start(ctx))

	// The first poll fails; the loop must still reach the second batch.
	require.Eventually(t, func() bool {
		return len(pub.published()) >= 1
	}, time.Second, 2*time.Millisecond)

	cancel()
	require.NoError(t, worker.Close())

	batch := pub.published()[0]
	require.Len(t, batch, 1)
	assert.InDelta(t, 0.61, batch[0].ImpliedProb, 1e-9)
}

func TestWorkerSkipsEmptyBatches(t *testing.T) {
	adapter := &fakeAdapter{}
	pub := &fakePublisher{}
	worker := NewWorker(adapter, pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, worker.Start(ctx))

	require.Eventually(t, func() bool {
		adapter.mu.Lock()
		defer adapter.mu.Unlock()
		return adapter.calls >= 2
	}, time.Second, 2*time.Millisecond)

	cancel()
	require.NoError(t, worker.Close())
	assert.Empty(t, pub.published())
}
