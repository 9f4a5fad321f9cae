package venues

import (
	"context"
	"time"

	"github.com/oddsaxiom/pipeline/pkg/types"
	"go.uber.org/zap"
)

// Coinbase is a placeholder adapter. Coinbase routes its prediction markets
// through Kalshi, so its quotes already arrive via the kalshi worker; this
// adapter exists to reserve the slug and surface a distinct endpoint if
// Coinbase ever ships one.
type Coinbase struct {
	logger *zap.Logger
	warned bool
}

// NewCoinbase creates the placeholder Coinbase adapter.
func NewCoinbase(logger *zap.Logger) *Coinbase {
	return &Coinbase{logger: logger.With(zap.String("venue", types.VenueCoinbase.Slug))}
}

func (c *Coinbase) Slug() string                { return types.VenueCoinbase.Slug }
func (c *Coinbase) PollInterval() time.Duration { return 300 * time.Second }

func (c *Coinbase) Connect(_ context.Context) error {
	c.logger.Info("venue-connected")
	return nil
}

func (c *Coinbase) Stop() {}

// FetchBatch always returns an empty batch.
func (c *Coinbase) FetchBatch(_ context.Context) ([]types.RawQuote, error) {
	if !c.warned {
		c.logger.Info("coinbase-markets-served-via-kalshi")
		c.warned = true
	}
	return nil, nil
}
