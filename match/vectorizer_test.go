package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorize(t *testing.T) {
	t.Run("vectors are unit length", func(t *testing.T) {
		vectors, err := Vectorize([][]string{
			{"black", "wallet", "black"},
			{"red", "umbrella"},
		})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		for _, v := range vectors {
			assert.InDelta(t, 1.0, v.Norm(), 1e-12)
		}
	})

	t.Run("terms are sorted", func(t *testing.T) {
		vectors, err := Vectorize([][]string{{"zebra", "apple", "mango", "kiwi"}})
		require.NoError(t, err)
		terms := vectors[0].Terms
		for i := 1; i < len(terms); i++ {
			assert.Less(t, terms[i-1], terms[i])
		}
	})

	t.Run("smoothed idf", func(t *testing.T) {
		// "shared" appears in both documents (idf 1), "rare" in one (idf ln(3/2)+1)
		vectors, err := Vectorize([][]string{{"shared", "rare"}, {"shared"}})
		require.NoError(t, err)

		rare := math.Log(3.0/2.0) + 1
		norm := math.Sqrt(1 + rare*rare)
		weights := append([]float64(nil), vectors[0].Weights...)
		assert.ElementsMatch(t, roundAll([]float64{1 / norm, rare / norm}), roundAll(weights))
		assert.Equal(t, []float64{1}, vectors[1].Weights)
	})

	t.Run("empty document gets empty vector", func(t *testing.T) {
		vectors, err := Vectorize([][]string{{}, {"keys"}})
		require.NoError(t, err)
		assert.Zero(t, vectors[0].Len())
		assert.Equal(t, 1, vectors[1].Len())
	})

	t.Run("degenerate vocabulary", func(t *testing.T) {
		_, err := Vectorize([][]string{{}, {}})
		assert.ErrorIs(t, err, ErrDegenerateVocabulary)

		_, err = Vectorize(nil)
		assert.ErrorIs(t, err, ErrDegenerateVocabulary)
	})
}

func roundAll(values []float64) []float64 {
	for i, v := range values {
		values[i] = math.Round(v*1e12) / 1e12
	}
	return values
}

func TestCosine(t *testing.T) {
	vectors, err := Vectorize([][]string{
		{"black", "wallet"},
		{"black", "wallet"},
		{"car", "keys"},
		{"black", "keys"},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, Cosine(vectors[0], vectors[1]), 1e-12)
	assert.Zero(t, Cosine(vectors[0], vectors[2]))
	partial := Cosine(vectors[0], vectors[3])
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)
	assert.Equal(t, partial, Cosine(vectors[3], vectors[0]))
	assert.Zero(t, Cosine(vectors[0], Vector{}))
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 71.69, roundScore(0.716874, 2))
	assert.Equal(t, 100.0, roundScore(0.9999999999999999, 2))
	assert.Equal(t, 25.0, roundScore(0.25, 2))
	assert.Equal(t, 33.3, roundScore(1.0/3.0, 1))
}
