package vecindex

import (
	"math/bits"
	"math/rand"
	"sort"

	"github.com/hrygo/exemplar/embedding"
)

const (
	// DefaultPlanes is the default random-hyperplane count. 12 planes
	// give 4096 buckets, enough spread for corpora in the thousands.
	DefaultPlanes = 12

	// maxPlanes keeps signatures inside a uint32 with headroom.
	maxPlanes = 30
)

// LSHConfig configures the random-hyperplane index.
type LSHConfig struct {
	// Planes is the number of hyperplanes, so the signature width in
	// bits. More planes mean smaller buckets.
	Planes int
	// Seed fixes hyperplane generation. Equal seeds give equal indexes.
	Seed int64
}

// LSH is a random-hyperplane locality-sensitive-hashing index. Each
// vector hashes to a signature whose bits record which side of each
// hyperplane the vector falls on; nearby vectors tend to share buckets.
// Search walks buckets in increasing Hamming distance from the query
// signature, then orders the collected rows by exact cosine similarity.
type LSH struct {
	planes  [][]float32
	vectors [][]float32
	buckets map[uint32][]int
	keys    []uint32
}

// NewLSH indexes vectors under cfg. All vectors must share one
// dimension; zero vectors are legal and hash like any other.
func NewLSH(vectors [][]float32, cfg LSHConfig) *LSH {
	if cfg.Planes <= 0 {
		cfg.Planes = DefaultPlanes
	}
	if cfg.Planes > maxPlanes {
		cfg.Planes = maxPlanes
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}

	dims := 0
	for _, vec := range vectors {
		if len(vec) > 0 {
			dims = len(vec)
			break
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	planes := make([][]float32, cfg.Planes)
	for i := range planes {
		plane := make([]float32, dims)
		for j := range plane {
			plane[j] = float32(rng.NormFloat64())
		}
		planes[i] = plane
	}

	l := &LSH{
		planes:  planes,
		vectors: vectors,
		buckets: make(map[uint32][]int),
	}
	for row, vec := range vectors {
		sig := l.signature(vec)
		l.buckets[sig] = append(l.buckets[sig], row)
	}

	l.keys = make([]uint32, 0, len(l.buckets))
	for key := range l.buckets {
		l.keys = append(l.keys, key)
	}
	sort.Slice(l.keys, func(i, j int) bool { return l.keys[i] < l.keys[j] })

	return l
}

func (l *LSH) Search(query []float32, limit int) []Candidate {
	if limit <= 0 || len(l.vectors) == 0 {
		return nil
	}

	sig := l.signature(query)

	// Visit populated buckets nearest-first by signature distance.
	keys := make([]uint32, len(l.keys))
	copy(keys, l.keys)
	sort.Slice(keys, func(i, j int) bool {
		di := bits.OnesCount32(keys[i] ^ sig)
		dj := bits.OnesCount32(keys[j] ^ sig)
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})

	rows := make([]int, 0, limit)
	for _, key := range keys {
		rows = append(rows, l.buckets[key]...)
		if len(rows) >= limit {
			break
		}
	}

	// The last bucket can overshoot limit; score everything collected
	// and keep the best.
	candidates := make([]Candidate, len(rows))
	for i, row := range rows {
		candidates[i] = Candidate{Row: row, Similarity: embedding.CosineSimilarity(query, l.vectors[row])}
	}
	sortCandidates(candidates)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (l *LSH) Len() int {
	return len(l.vectors)
}

func (l *LSH) signature(vec []float32) uint32 {
	var sig uint32
	for i, plane := range l.planes {
		var dot float64
		n := len(plane)
		if len(vec) < n {
			n = len(vec)
		}
		for j := 0; j < n; j++ {
			dot += float64(plane[j]) * float64(vec[j])
		}
		if dot >= 0 {
			sig |= 1 << i
		}
	}
	return sig
}
