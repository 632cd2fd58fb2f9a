package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeSavings(t *testing.T) {
	savings := ComputeSavings(decimal.NewFromInt(100), decimal.NewFromInt(80))
	assert.Equal(t, 20.0, savings)

	savings = ComputeSavings(decimal.NewFromInt(1200), decimal.NewFromInt(850))
	assert.Equal(t, 29.17, savings)

	// Equal prices mean zero savings, never negative.
	savings = ComputeSavings(decimal.NewFromInt(50), decimal.NewFromInt(50))
	assert.Equal(t, 0.0, savings)

	assert.Equal(t, 0.0, ComputeSavings(decimal.Zero, decimal.Zero))
}

func TestProgressPercentage(t *testing.T) {
	deal := &Deal{CommittedQuantity: 25, TargetQuantity: 100}
	assert.Equal(t, 25.0, deal.ProgressPercentage())

	// Overshoot past the target is reported as-is, not clamped.
	deal = &Deal{CommittedQuantity: 110, TargetQuantity: 100}
	assert.Equal(t, 110.0, deal.ProgressPercentage())

	deal = &Deal{CommittedQuantity: 1, TargetQuantity: 3}
	assert.Equal(t, 33.3, deal.ProgressPercentage())

	deal = &Deal{CommittedQuantity: 5, TargetQuantity: 0}
	assert.Equal(t, 0.0, deal.ProgressPercentage())
}

func TestPastDeadline(t *testing.T) {
	now := time.Now()

	deal := &Deal{}
	assert.False(t, deal.PastDeadline(now), "no deadline never expires")

	past := now.Add(-time.Minute)
	deal = &Deal{Deadline: &past}
	assert.True(t, deal.PastDeadline(now))

	future := now.Add(time.Minute)
	deal = &Deal{Deadline: &future}
	assert.False(t, deal.PastDeadline(now))
}
