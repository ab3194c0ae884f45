package ddsketch

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrMerge is returned when merging sketches whose Configs differ;
	// their bucket keys are not comparable.
	ErrMerge = errors.New("cannot merge sketches with different configs")

	// ErrQuantile is reserved for stricter quantile validation. Today an
	// out-of-range q degrades to Min or Max instead of failing.
	ErrQuantile = errors.New("quantile must lie in [0, 1]")
)

// Sketch is a mergeable quantile sketch in the DDSketch family: it summarizes
// a stream of float64 samples in at most Config.MaxNumBins buckets and
// answers quantile queries with relative error at most Config.Alpha, while
// tracking min, max, sum and count exactly.
//
// A Sketch is not safe for concurrent use; callers either serialize access or
// keep per-shard sketches and Merge them.
type Sketch struct {
	config Config
	store  *store
	min    float64
	max    float64
	sum    float64
}

// New builds an empty Sketch with the given Config, which must come from
// NewConfig, DefaultConfig or AgentConfig.
func New(config Config) *Sketch {
	return &Sketch{
		config: config,
		store:  newStore(config.maxNumBins),
		min:    math.Inf(1),
		max:    math.Inf(-1),
	}
}

// NewDefault builds an empty Sketch with DefaultConfig parameters.
func NewDefault() *Sketch {
	return New(DefaultConfig())
}

// Add records one sample.
func (s *Sketch) Add(v float64) {
	s.AddN(v, 1)
}

// AddN records the sample v n times.
func (s *Sketch) AddN(v float64, n uint64) {
	if n == 0 {
		return
	}
	s.store.add(s.config.Key(v), n)
	s.observe(v, n)
}

// AddKeyN records n samples directly against a bucket key, bypassing the
// mapping. Useful when rebuilding a sketch from pre-aggregated bucket data;
// the bucket's lower bound stands in for the unknown original values when
// updating min, max and sum. Most callers want Add or AddN.
func (s *Sketch) AddKeyN(key int32, n uint64) {
	if n == 0 {
		return
	}
	s.store.add(key, n)
	s.observe(s.config.LowerBound(key), n)
}

func (s *Sketch) observe(v float64, n uint64) {
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
	s.sum += v * float64(n)
}

// Quantile returns the estimated q-quantile of the samples seen so far. The
// second return is false only when the sketch is empty. q at or below 0
// returns the exact minimum and q at or above 1 the exact maximum; in
// between, the estimate is within a factor alpha of the true order statistic
// (unless its bucket was collapsed) and is clamped into [Min, Max].
func (s *Sketch) Quantile(q float64) (float64, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	if q <= 0 {
		return s.min, true
	}
	if q >= 1 {
		return s.max, true
	}

	rank := uint64(q*float64(s.store.count-1)) + 1
	v := s.config.Representative(s.store.keyAtRank(rank))

	// approximation error can push the estimate past the observed range
	if v < s.min {
		v = s.min
	} else if v > s.max {
		v = s.max
	}
	return v, true
}

// Min returns the exact minimum sample, or false when the sketch is empty.
// Exact regardless of bucket collapsing.
func (s *Sketch) Min() (float64, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.min, true
}

// Max returns the exact maximum sample, or false when the sketch is empty.
func (s *Sketch) Max() (float64, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.max, true
}

// Sum returns the exact sum of all samples, or false when the sketch is
// empty.
func (s *Sketch) Sum() (float64, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.sum, true
}

// Count returns the exact number of samples added. After a Merge it is the
// sum of both operands' counts.
func (s *Sketch) Count() uint64 {
	return s.store.count
}

// Len returns the number of materialized buckets, mainly useful for
// observing how far the sketch has grown toward its capacity.
func (s *Sketch) Len() int {
	return int(s.store.length())
}

// IsEmpty reports whether no samples have been added.
func (s *Sketch) IsEmpty() bool {
	return s.store.count == 0
}

// Config returns the sketch's mapping configuration.
func (s *Sketch) Config() Config {
	return s.config
}

// Bins returns the materialized (key, count) pairs in ascending key order.
// Together with Config, Min, Max and Sum this is everything an external
// serializer needs to transport the sketch; see FromBins.
func (s *Sketch) Bins() []Bin {
	bins := make([]Bin, 0, s.store.length())
	s.store.eachBin(func(b Bin) {
		bins = append(bins, b)
	})
	return bins
}

// FromBins rebuilds a sketch from transported bucket data plus the exact
// min, max and sum the producer tracked. The counts are replayed through the
// usual collapsing policy, so a consumer with the same Config reconstructs an
// equivalent sketch.
func FromBins(config Config, bins []Bin, min, max, sum float64) *Sketch {
	s := New(config)
	for _, b := range bins {
		s.store.add(b.Key, b.Count)
	}
	if !s.IsEmpty() {
		s.min = min
		s.max = max
		s.sum = sum
	}
	return s
}

// Merge folds the contents of o into s; o is left unchanged. It fails with
// ErrMerge when the two Configs differ, in which case s is also unchanged.
// Counts and sums combine exactly; collapsing may still reduce resolution.
func (s *Sketch) Merge(o *Sketch) error {
	if s.config != o.config {
		return ErrMerge
	}

	wasEmpty := s.IsEmpty()
	s.store.merge(o.store)

	// an empty operand must not leak its ±Inf sentinels into the result
	if wasEmpty {
		s.min = o.min
		s.max = o.max
	} else if !o.IsEmpty() {
		if o.min < s.min {
			s.min = o.min
		}
		if o.max > s.max {
			s.max = o.max
		}
	}
	s.sum += o.sum

	return nil
}
