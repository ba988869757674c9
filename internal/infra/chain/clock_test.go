package chain

import (
	"testing"
	"time"
)

func TestWallClock_Height(t *testing.T) {
	genesis := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	c := NewWallClock(genesis, 6*time.Second)

	tests := []struct {
		at   time.Time
		want uint64
	}{
		{genesis.Add(-time.Minute), 0},
		{genesis, 0},
		{genesis.Add(5 * time.Second), 0},
		{genesis.Add(6 * time.Second), 1},
		{genesis.Add(time.Minute), 10},
	}
	for _, tt := range tests {
		c.now = func() time.Time { return tt.at }
		if got := c.Height(); uint64(got) != tt.want {
			t.Errorf("Height() at %v = %d, want %d", tt.at.Sub(genesis), got, tt.want)
		}
	}
}

func TestWallClock_DefaultBlockTime(t *testing.T) {
	c := NewWallClock(time.Now(), 0)
	if c.BlockTime() != DefaultBlockTime {
		t.Errorf("BlockTime() = %v, want %v", c.BlockTime(), DefaultBlockTime)
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(5)
	c.Advance(10)
	if c.Height() != 15 {
		t.Errorf("Height() = %d, want 15", c.Height())
	}
	c.Set(3)
	if c.Height() != 3 {
		t.Errorf("Height() = %d, want 3", c.Height())
	}
}
