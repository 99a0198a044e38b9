package match

import "math"

// Cosine returns the cosine similarity of two sparse vectors, clamped to
// [0, 1]. Either vector being empty yields 0.
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot(a, b) / (na * nb)
	return math.Max(0, math.Min(1, sim))
}

// dot merges the two sorted term lists.
func dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Terms) && j < len(b.Terms) {
		switch {
		case a.Terms[i] < b.Terms[j]:
			i++
		case a.Terms[i] > b.Terms[j]:
			j++
		default:
			sum += a.Weights[i] * b.Weights[j]
			i++
			j++
		}
	}
	return sum
}

// roundScore converts a similarity to a percentage rounded to precision
// decimal places.
func roundScore(sim float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(sim*100*scale) / scale
}
