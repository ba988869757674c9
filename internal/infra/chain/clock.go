// Package chain supplies the block-height clock the era gate runs on.
package chain

import (
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/pobal-network/pobal/internal/domain"
)

// DefaultBlockTime matches a six second block cadence.
const DefaultBlockTime = 6 * time.Second

// WallClock derives block height from elapsed time since genesis.
type WallClock struct {
	genesis   time.Time
	blockTime time.Duration

	// now is injectable for testing.
	now func() time.Time
}

// NewWallClock creates a clock that ticks one block per blockTime.
func NewWallClock(genesis time.Time, blockTime time.Duration) *WallClock {
	if blockTime <= 0 {
		blockTime = DefaultBlockTime
	}
	return &WallClock{genesis: genesis, blockTime: blockTime, now: time.Now}
}

// Height implements domain.Clock. Heights before genesis are zero.
func (c *WallClock) Height() domain.BlockHeight {
	elapsed := c.now().Sub(c.genesis)
	if elapsed <= 0 {
		return 0
	}
	return domain.BlockHeight(elapsed / c.blockTime)
}

// Genesis returns the time of block zero.
func (c *WallClock) Genesis() time.Time { return c.genesis }

// BlockTime returns the block interval.
func (c *WallClock) BlockTime() time.Duration { return c.blockTime }

// ManualClock is advanced explicitly. Safe for concurrent use.
type ManualClock struct {
	mu     deadlock.Mutex
	height domain.BlockHeight
}

// NewManualClock starts at height.
func NewManualClock(height domain.BlockHeight) *ManualClock {
	return &ManualClock{height: height}
}

// Height implements domain.Clock.
func (c *ManualClock) Height() domain.BlockHeight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Advance moves the clock forward n blocks.
func (c *ManualClock) Advance(n domain.BlockHeight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height += n
}

// Set jumps to an absolute height.
func (c *ManualClock) Set(h domain.BlockHeight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = h
}
