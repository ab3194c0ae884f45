package ddsketch

import (
	"math"

	"github.com/pkg/errors"
)

const (
	defaultAlpha    = 0.01
	defaultMaxBins  = 2048
	defaultMinValue = 1e-9

	// Parameters the open-source Datadog agent runs with. Subtly different
	// from the white-paper defaults above; sketches built with them assign
	// the same keys the agent does, so the two can be merged on the wire.
	agentAlpha    = 1.0 / 128.0
	agentMaxBins  = 4096
	agentMinValue = 1e-9
)

// Config fixes the value-to-bucket mapping of a sketch: the target relative
// accuracy alpha, the smallest magnitude distinguished from zero and the cap
// on materialized buckets. A Config is immutable once built; two sketches can
// only be merged when their Configs are equal.
type Config struct {
	alpha      float64
	gamma      float64
	gammaLn    float64
	minValue   float64
	maxNumBins int32
	offset     int32
}

// NewConfig builds a Config with specific parameters. Callers unsure of how
// to tune these should use DefaultConfig.
func NewConfig(alpha float64, maxNumBins int32, minValue float64) (Config, error) {
	if alpha <= 0 || alpha >= 1 {
		return Config{}, errors.Errorf("alpha must be in (0, 1), got %v", alpha)
	}
	if maxNumBins <= 0 {
		return Config{}, errors.Errorf("maxNumBins must be positive, got %d", maxNumBins)
	}
	if minValue <= 0 {
		return Config{}, errors.Errorf("minValue must be positive, got %v", minValue)
	}
	return newConfig(alpha, maxNumBins, minValue), nil
}

func newConfig(alpha float64, maxNumBins int32, minValue float64) Config {
	// log1p keeps gammaLn accurate for small alpha, where computing
	// ln(1 + 2a/(1-a)) directly would lose low bits.
	gammaLn := math.Log1p(2 * alpha / (1 - alpha))
	return Config{
		alpha:      alpha,
		gamma:      1 + 2*alpha/(1-alpha),
		gammaLn:    gammaLn,
		minValue:   minValue,
		maxNumBins: maxNumBins,
		offset:     1 - int32(math.Log(minValue)/gammaLn),
	}
}

// DefaultConfig returns the general-purpose parameters: alpha 0.01,
// 2048 buckets, minimum magnitude 1e-9.
func DefaultConfig() Config {
	return newConfig(defaultAlpha, defaultMaxBins, defaultMinValue)
}

// AgentConfig returns the parameters the Datadog agent uses, for
// interoperability with sketches produced by it.
func AgentConfig() Config {
	return newConfig(agentAlpha, agentMaxBins, agentMinValue)
}

// Key maps a sample to its bucket key. Values within [-minValue, minValue]
// share key 0; key magnitude grows monotonically with value magnitude and the
// sign of the key mirrors the sign of the value.
func (c Config) Key(v float64) int32 {
	switch {
	case v > c.minValue:
		return c.magnitudeKey(v)
	case v < -c.minValue:
		return -c.magnitudeKey(-v)
	default:
		return 0
	}
}

// magnitudeKey maps a magnitude strictly above minValue. ceil (rather than
// round) keeps every value in a bucket within a factor gamma of the bucket's
// upper bound, which is what the relative-error guarantee rests on.
func (c Config) magnitudeKey(v float64) int32 {
	return int32(math.Ceil(c.logGamma(v))) + c.offset
}

// LowerBound is the inverse boundary function: the smallest magnitude a key
// can hold. LowerBound(0) is 0 and the maximum representable key is an
// unbounded top bucket.
func (c Config) LowerBound(key int32) float64 {
	if key < 0 {
		return -c.LowerBound(-key)
	}
	if key == math.MaxInt32 {
		return math.Inf(1)
	}
	if key == 0 {
		return 0
	}
	return c.powGamma(key - c.offset)
}

// Representative is the point estimate reported for a bucket: the midpoint of
// the bucket under the log mapping, which halves the worst-case relative
// error compared to answering with a bucket boundary.
func (c Config) Representative(key int32) float64 {
	switch {
	case key > 0:
		return 2 * c.powGamma(key-c.offset) / (1 + c.gamma)
	case key < 0:
		return -2 * c.powGamma(-key-c.offset) / (1 + c.gamma)
	default:
		return 0
	}
}

// Alpha returns the target relative accuracy.
func (c Config) Alpha() float64 { return c.alpha }

// Gamma returns the per-bucket growth factor (1+alpha)/(1-alpha).
func (c Config) Gamma() float64 { return c.gamma }

// MinValue returns the smallest magnitude distinguished from zero.
func (c Config) MinValue() float64 { return c.minValue }

// MaxNumBins returns the cap on simultaneously materialized buckets.
func (c Config) MaxNumBins() int32 { return c.maxNumBins }

func (c Config) logGamma(v float64) float64 {
	return math.Log(v) / c.gammaLn
}

func (c Config) powGamma(k int32) float64 {
	return math.Exp(float64(k) * c.gammaLn)
}
