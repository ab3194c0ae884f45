package ddsketch

// binChunkSize is the granularity the bin slice grows by at the low end.
// Growing in chunks amortizes the copy the same way appending amortizes
// growth at the high end.
const binChunkSize = 128

// Bin is one materialized bucket of a sketch: a key and the number of
// samples counted against it. External serializers transport sketches as a
// Config plus a list of Bins plus the exact min/max/sum.
type Bin struct {
	Key   int32
	Count uint64
}

// store holds per-key counts over the contiguous key interval
// [minKey, maxKey], indexed as key-minKey. The interval never grows wider
// than maxBins; once growth would exceed that, the low end is pinned and
// everything below it is folded into the lowest bin (see add).
type store struct {
	bins    []uint64
	count   uint64
	minKey  int32
	maxKey  int32
	maxBins int32
}

func newStore(maxBins int32) *store {
	return &store{maxBins: maxBins}
}

func (s *store) length() int32 {
	return int32(len(s.bins))
}

// add increments the count at key by n, growing the materialized interval as
// needed. When growth would exceed maxBins the store collapses instead: the
// lower bound is pinned at maxKey-maxBins+1 and all lower bins fold into the
// lowest remaining one. Collapsing loses resolution, never samples; count
// stays exact.
func (s *store) add(key int32, n uint64) {
	if n == 0 {
		return
	}
	if s.count == 0 {
		s.maxKey = key
		s.minKey = key - s.length() + 1
	}
	if key < s.minKey {
		s.growLeft(key)
	} else if key > s.maxKey {
		s.growRight(key)
	}
	idx := key - s.minKey
	if idx < 0 {
		// below a pinned lower bound: counts against the collapsed lowest bin
		idx = 0
	}
	s.bins[idx] += n
	s.count += n
}

func (s *store) growLeft(key int32) {
	if key >= s.minKey || s.length() >= s.maxBins {
		return
	}
	if s.maxKey-key+1 > s.maxBins {
		// key is below what capacity can ever reach; pin the bound and let
		// the caller fold the sample into the lowest bin
		s.setBounds(s.maxKey-s.maxBins+1, s.maxKey)
		return
	}
	newMin := s.minKey
	for newMin > key {
		newMin -= binChunkSize
	}
	if s.maxKey-newMin+1 > s.maxBins {
		newMin = s.maxKey - s.maxBins + 1
	}
	s.setBounds(newMin, s.maxKey)
}

func (s *store) growRight(key int32) {
	if key <= s.maxKey {
		return
	}
	if key-s.minKey+1 > s.maxBins {
		s.setBounds(key-s.maxBins+1, key)
		return
	}
	s.bins = append(s.bins, make([]uint64, key-s.maxKey)...)
	s.maxKey = key
}

// setBounds is the one bounds-adjustment routine: it reallocates the bin
// slice to cover [newMin, newMax], copying existing counts across and folding
// any count below newMin into the lowest slot. Growth and collapse are the
// same operation with different bounds.
func (s *store) setBounds(newMin, newMax int32) {
	bins := make([]uint64, newMax-newMin+1)
	for i, c := range s.bins {
		if c == 0 {
			continue
		}
		idx := s.minKey + int32(i) - newMin
		if idx < 0 {
			idx = 0
		}
		bins[idx] += c
	}
	s.bins = bins
	s.minKey = newMin
	s.maxKey = newMax
}

// keyAtRank returns the smallest key whose cumulative count, scanning keys in
// ascending order, reaches the 1-indexed rank. Total for any rank in
// [1, count].
func (s *store) keyAtRank(rank uint64) int32 {
	var cum uint64
	for i, c := range s.bins {
		cum += c
		if cum >= rank {
			return s.minKey + int32(i)
		}
	}
	return s.maxKey
}

// merge folds every bin of o into s under the usual collapsing policy. The
// merged count is the exact sum of both counts.
func (s *store) merge(o *store) {
	if o.count == 0 {
		return
	}
	for i, c := range o.bins {
		if c != 0 {
			s.add(o.minKey+int32(i), c)
		}
	}
}

// eachBin visits the nonzero bins in ascending key order.
func (s *store) eachBin(f func(Bin)) {
	for i, c := range s.bins {
		if c != 0 {
			f(Bin{Key: s.minKey + int32(i), Count: c})
		}
	}
}
