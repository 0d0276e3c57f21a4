package domain

import (
	"fmt"
	"time"
)

// PriceBar is a single OHLCV observation. Bars are immutable once
// produced; ordering and deduplication are the data provider's
// responsibility, and ValidateBars rejects violations at the boundary.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Tick is a single trade-price observation used by the strategy engine
// for stop/target checks between full bar evaluations.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidateBars checks structural validity of a series: non-empty,
// strictly increasing timestamps, positive prices, high >= low and
// non-negative volume. Violations return ErrInvalidInput.
func ValidateBars(bars []PriceBar) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: empty price series", ErrInvalidInput)
	}

	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("%w: non-positive price at index %d", ErrInvalidInput, i)
		}
		if b.High < b.Low {
			return fmt.Errorf("%w: high below low at index %d", ErrInvalidInput, i)
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: negative volume at index %d", ErrInvalidInput, i)
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: timestamps not strictly increasing at index %d", ErrInvalidInput, i)
		}
	}

	return nil
}

// Closes extracts the close column from a bar series.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume column from a bar series.
func Volumes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
