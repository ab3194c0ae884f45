package ddsketch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigValidation(t *testing.T) {
	assert := assert.New(t)

	_, err := NewConfig(0, 2048, 1e-9)
	assert.Error(err)
	_, err = NewConfig(1, 2048, 1e-9)
	assert.Error(err)
	_, err = NewConfig(-0.5, 2048, 1e-9)
	assert.Error(err)
	_, err = NewConfig(0.01, 0, 1e-9)
	assert.Error(err)
	_, err = NewConfig(0.01, -10, 1e-9)
	assert.Error(err)
	_, err = NewConfig(0.01, 2048, 0)
	assert.Error(err)

	c, err := NewConfig(0.01, 2048, 1e-9)
	assert.NoError(err)
	assert.Equal(DefaultConfig(), c)
}

func TestConfigPresets(t *testing.T) {
	assert := assert.New(t)

	def := DefaultConfig()
	assert.Equal(0.01, def.Alpha())
	assert.Equal(int32(2048), def.MaxNumBins())
	assert.Equal(1e-9, def.MinValue())
	assert.InDelta(1.0202020202, def.Gamma(), 1e-9)

	agent := AgentConfig()
	assert.Equal(1.0/128.0, agent.Alpha())
	assert.Equal(int32(4096), agent.MaxNumBins())
	assert.Equal(1e-9, agent.MinValue())

	assert.False(def == agent)
}

// Key assignment for the presets is pinned so that sketches stay
// merge-compatible with other implementations using the same parameters.
func TestKeyAssignmentIsStable(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(int32(1037), DefaultConfig().Key(1.0))
	assert.Equal(int32(1327), AgentConfig().Key(1.0))
}

func TestKeyZeroBucket(t *testing.T) {
	assert := assert.New(t)
	c := DefaultConfig()

	assert.Equal(int32(0), c.Key(0))
	assert.Equal(int32(0), c.Key(1e-9))
	assert.Equal(int32(0), c.Key(-1e-9))
	assert.Equal(int32(0), c.Key(1e-12))
	assert.Equal(int32(0), c.Key(-1e-12))
}

func TestKeySignMirrored(t *testing.T) {
	assert := assert.New(t)
	c := DefaultConfig()

	for _, v := range []float64{1e-8, 0.5, 1, 42, 1e6, 1e12} {
		assert.Equal(c.Key(v), -c.Key(-v))
		assert.True(c.Key(v) > 0)
	}
}

func TestKeyMonotonic(t *testing.T) {
	assert := assert.New(t)
	c := DefaultConfig()
	rnd := rand.New(rand.NewSource(1))

	prev := c.Key(1e-8)
	for v := 2e-8; v < 1e9; v *= 1 + rnd.Float64() {
		key := c.Key(v)
		assert.True(key >= prev, "key must not decrease: v=%v", v)
		prev = key
	}
}

func TestLowerBound(t *testing.T) {
	assert := assert.New(t)
	c := DefaultConfig()

	assert.Equal(0.0, c.LowerBound(0))
	assert.True(math.IsInf(c.LowerBound(math.MaxInt32), 1))
	assert.True(math.IsInf(c.LowerBound(math.MinInt32+1), -1))

	for _, v := range []float64{1e-6, 0.25, 1, 95, 3e7} {
		key := c.Key(v)
		lb := c.LowerBound(key)
		assert.True(lb >= v*(1-1e-12), "lower bound below value: v=%v lb=%v", v, lb)
		assert.True(lb <= v*c.Gamma()*(1+1e-12), "lower bound too far above value: v=%v lb=%v", v, lb)
		assert.Equal(lb, -c.LowerBound(-key))
	}
}

func TestRepresentativeWithinAlpha(t *testing.T) {
	assert := assert.New(t)
	c := DefaultConfig()
	rnd := rand.New(rand.NewSource(2))

	assert.Equal(0.0, c.Representative(0))

	for i := 0; i < 10000; i++ {
		v := math.Exp(rnd.Float64()*40 - 20) // magnitudes 2e-9 .. 5e8
		if i%2 == 1 {
			v = -v
		}
		rep := c.Representative(c.Key(v))
		relErr := math.Abs(rep-v) / math.Abs(v)
		assert.True(relErr <= c.Alpha()*(1+1e-9), "v=%v rep=%v relErr=%v", v, rep, relErr)
	}
}
