package features

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/domain"
	"github.com/meridianlabs/meridian/pkg/formulas"
)

// Builder turns validated bar history into feature vectors. It is
// stateless between builds and safe for concurrent use.
type Builder struct {
	cfg    Config
	names  []string
	logger zerolog.Logger
}

// NewBuilder validates the configuration and returns a Builder.
func NewBuilder(cfg Config, logger zerolog.Logger) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		cfg:    cfg,
		names:  cfg.FeatureNames(),
		logger: logger.With().Str("service", "features").Logger(),
	}, nil
}

// Names returns the ordered feature names shared by all vectors this
// builder produces.
func (b *Builder) Names() []string { return b.names }

// Warmup returns the number of leading bars consumed before the first
// vector appears.
func (b *Builder) Warmup() int { return b.cfg.Warmup() }

// Build produces one vector per bar from the warm-up point onward.
// It returns ErrInsufficientHistory when the bars cannot cover the
// warm-up, and ErrInvalidInput when the bars fail validation.
func (b *Builder) Build(bars []domain.PriceBar) ([]Vector, error) {
	if err := domain.ValidateBars(bars); err != nil {
		return nil, err
	}
	warmup := b.cfg.Warmup()
	if len(bars) <= warmup {
		return nil, fmt.Errorf("%w: need more than %d bars, got %d",
			domain.ErrInsufficientHistory, warmup, len(bars))
	}

	n := len(bars)
	closes := domain.Closes(bars)
	volumes := domain.Volumes(bars)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, bar := range bars {
		highs[i] = bar.High
		lows[i] = bar.Low
	}

	columns := make([][]float64, 0, len(b.names))
	for _, w := range b.cfg.ReturnWindows {
		columns = append(columns, windowedReturns(closes, w))
	}
	for _, p := range b.cfg.SMAPeriods {
		columns = append(columns, ratioTo(closes, formulas.SMA(closes, p)))
	}
	columns = append(columns, ratioTo(closes, formulas.EMA(closes, b.cfg.EMAPeriod)))
	columns = append(columns, formulas.RSI(closes, b.cfg.RSIPeriod))

	macd := formulas.MACD(closes, b.cfg.MACDFast, b.cfg.MACDSlow, b.cfg.MACDSignal)
	columns = append(columns, macd.Histogram)

	stoch := formulas.Stochastic(highs, lows, closes, b.cfg.StochFastK, b.cfg.StochSlowK, b.cfg.StochSlowD)
	columns = append(columns, stoch.K)

	boll := formulas.Bollinger(closes, b.cfg.BollingerPeriod, b.cfg.BollingerStdDev)
	columns = append(columns, bollPosition(closes, boll), bollWidth(boll))

	columns = append(columns,
		rangeCompression(bars),
		volumeRatio(volumes, b.cfg.VolumeWindow),
		rollingVolColumn(closes, b.cfg.VolatilityWind),
	)

	vectors := make([]Vector, 0, n-warmup)
	for i := warmup; i < n; i++ {
		values := make([]float64, len(columns))
		defined := true
		for j, col := range columns {
			values[j] = col[i]
			if !formulas.Defined(col[i]) {
				defined = false
			}
		}
		if !defined {
			// Should not happen past the declared warm-up.
			b.logger.Warn().Int("index", i).Msg("undefined feature past warm-up, skipping bar")
			continue
		}
		vectors = append(vectors, Vector{
			Timestamp: bars[i].Timestamp,
			names:     b.names,
			values:    values,
		})
	}
	return vectors, nil
}

// Latest builds the single most recent vector.
func (b *Builder) Latest(bars []domain.PriceBar) (Vector, error) {
	vectors, err := b.Build(bars)
	if err != nil {
		return Vector{}, err
	}
	return vectors[len(vectors)-1], nil
}

// windowedReturns is the fractional change over the trailing window,
// undefined for the first window indices.
func windowedReturns(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if i < window || closes[i-window] == 0 {
			out[i] = formulas.Undefined
			continue
		}
		out[i] = closes[i]/closes[i-window] - 1
	}
	return out
}

// ratioTo divides price by a reference series, propagating undefined.
func ratioTo(closes, reference []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if !formulas.Defined(reference[i]) || reference[i] == 0 {
			out[i] = formulas.Undefined
			continue
		}
		out[i] = closes[i] / reference[i]
	}
	return out
}

// bollPosition maps price into the band range, 0 at the lower band
// and 1 at the upper, clamped. A collapsed band reads as 0.5.
func bollPosition(closes []float64, boll formulas.BollingerResult) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if !formulas.Defined(boll.Upper[i]) {
			out[i] = formulas.Undefined
			continue
		}
		width := boll.Upper[i] - boll.Lower[i]
		if width == 0 {
			out[i] = 0.5
			continue
		}
		out[i] = math.Max(0, math.Min(1, (closes[i]-boll.Lower[i])/width))
	}
	return out
}

// bollWidth is the band width relative to the middle band.
func bollWidth(boll formulas.BollingerResult) []float64 {
	out := make([]float64, len(boll.Middle))
	for i := range boll.Middle {
		if !formulas.Defined(boll.Middle[i]) || boll.Middle[i] == 0 {
			out[i] = formulas.Undefined
			continue
		}
		out[i] = (boll.Upper[i] - boll.Lower[i]) / boll.Middle[i]
	}
	return out
}

// rangeCompression is the bar's high-low span relative to its close.
func rangeCompression(bars []domain.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = (bar.High - bar.Low) / bar.Close
	}
	return out
}

// volumeRatio compares current volume to its trailing average. Zero
// average volume (a halted book) reads as 1.
func volumeRatio(volumes []float64, window int) []float64 {
	avg := formulas.SMA(volumes, window)
	out := make([]float64, len(volumes))
	for i := range volumes {
		if !formulas.Defined(avg[i]) {
			out[i] = formulas.Undefined
			continue
		}
		if avg[i] == 0 {
			out[i] = 1
			continue
		}
		out[i] = volumes[i] / avg[i]
	}
	return out
}

// rollingVolColumn is the trailing standard deviation of returns.
func rollingVolColumn(closes []float64, window int) []float64 {
	returns := formulas.Returns(closes)
	out := make([]float64, len(closes))
	for i := range closes {
		// returns[k] covers the move into bar k+1; bar i needs
		// returns ending at index i-1 of the returns slice.
		if i < window {
			out[i] = formulas.Undefined
			continue
		}
		segment := returns[i-window : i]
		out[i] = formulas.StdDev(segment)
	}
	return out
}
