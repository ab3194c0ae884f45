package main

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/beorn7/perks/quantile"
	"github.com/stripe/veneur/tdigest"

	"github.com/axiomhq/ddsketch"
)

const numSamples = 200000

func main() {
	rnd := rand.New(rand.NewSource(1))

	values := make([]float64, numSamples)
	for i := range values {
		// lognormal latencies around 10ms with a heavy tail
		values[i] = math.Exp(rnd.NormFloat64()) * 10
	}

	sketch := ddsketch.NewDefault()
	ckms := quantile.NewTargeted(map[float64]float64{0.5: 0.005, 0.95: 0.001, 0.99: 0.001})
	td := tdigest.NewMerging(100, false)

	// sharded ingestion, merged at the end: the intended way to combine
	// concurrently accumulated sketches
	shards := make([]*ddsketch.Sketch, 4)
	for i := range shards {
		shards[i] = ddsketch.NewDefault()
	}
	for i, v := range values {
		shards[i%len(shards)].Add(v)
		ckms.Insert(v)
		td.Add(v, 1)
	}
	for _, shard := range shards {
		if err := sketch.Merge(shard); err != nil {
			panic(err)
		}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	fmt.Printf("samples: %d, sketch buckets: %d (cap %d)\n",
		sketch.Count(), sketch.Len(), sketch.Config().MaxNumBins())
	min, _ := sketch.Min()
	max, _ := sketch.Max()
	fmt.Printf("min: %.4f  max: %.4f\n\n", min, max)

	fmt.Println("q      exact      ddsketch   ckms       tdigest")
	for _, q := range []float64{0.5, 0.95, 0.99} {
		exact := sorted[int(q*float64(len(sorted)-1))]
		dd, _ := sketch.Quantile(q)
		fmt.Printf("%.2f   %-10.4f %-10.4f %-10.4f %-10.4f\n",
			q, exact, dd, ckms.Query(q), td.Quantile(q))
	}
}
