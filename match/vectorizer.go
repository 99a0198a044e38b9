package match

import (
	"math"
	"slices"

	"github.com/poiesic/lostfound/core"
)

// Vector is a sparse TF-IDF vector. Terms are sorted ascending and Weights
// holds the weight of each term at the same index.
type Vector struct {
	Terms   []core.ID
	Weights []float64
}

// Len returns the number of non-zero terms.
func (v Vector) Len() int {
	return len(v.Terms)
}

// Norm returns the Euclidean length of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// bag holds raw term counts for one document, sorted by term ID.
type bag struct {
	terms  []core.ID
	counts []float64
}

func newBag(tokens []string) bag {
	if len(tokens) == 0 {
		return bag{}
	}
	counts := make(map[core.ID]float64, len(tokens))
	for _, tok := range tokens {
		counts[core.IDFromContent(tok)]++
	}
	terms := make([]core.ID, 0, len(counts))
	for id := range counts {
		terms = append(terms, id)
	}
	slices.Sort(terms)

	b := bag{terms: terms, counts: make([]float64, len(terms))}
	for i, id := range terms {
		b.counts[i] = counts[id]
	}
	return b
}

func (b bag) empty() bool {
	return len(b.terms) == 0
}

// Vectorize weights tokenized documents by TF-IDF over exactly the given
// corpus. Term frequency is the raw count, IDF is ln((1+n)/(1+df))+1 and
// each vector is L2-normalized. Documents with no terms get an empty
// vector. Returns ErrDegenerateVocabulary when no document has any term.
func Vectorize(docs [][]string) ([]Vector, error) {
	bags := make([]bag, len(docs))
	for i, doc := range docs {
		bags[i] = newBag(doc)
	}
	return weigh(bags)
}

func weigh(bags []bag) ([]Vector, error) {
	df := make(map[core.ID]int)
	for _, b := range bags {
		for _, id := range b.terms {
			df[id]++
		}
	}
	if len(df) == 0 {
		return nil, ErrDegenerateVocabulary
	}

	n := float64(len(bags))
	idf := func(id core.ID) float64 {
		return math.Log((1+n)/(1+float64(df[id]))) + 1
	}

	vectors := make([]Vector, len(bags))
	for i, b := range bags {
		if b.empty() {
			continue
		}
		v := Vector{
			Terms:   b.terms,
			Weights: make([]float64, len(b.terms)),
		}
		for j, id := range b.terms {
			v.Weights[j] = b.counts[j] * idf(id)
		}
		if norm := v.Norm(); norm > 0 {
			for j := range v.Weights {
				v.Weights[j] /= norm
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}
