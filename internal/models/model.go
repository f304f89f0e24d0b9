// Package models implements the classifiers behind the trainer and the
// serving API. Every model is trained with minibatch SGD plus momentum
// and persists with encoding/gob through its exported fields.
package models

import (
	"fmt"
	"math"
)

// Model is the contract shared by all classifiers. PredictProba returns
// one probability row per example; rows are finite and sum to 1.
type Model interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
	PredictProba(X [][]float64) [][]float64
	Name() string
}

// softmaxInPlace rewrites logits as probabilities, subtracting the max
// logit first so large scores do not overflow.
func softmaxInPlace(v []float64) {
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	sum := 0.0
	for i := range v {
		v[i] = math.Exp(v[i] - max)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// checkTrainingSet rejects inputs no model can learn from: empty sets,
// ragged rows, labels outside [0,classes) or fewer than two distinct
// labels.
func checkTrainingSet(X [][]float64, y []int, classes int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("training set: %d examples, %d labels", len(X), len(y))
	}
	dim := len(X[0])
	if dim == 0 {
		return fmt.Errorf("training set: empty feature vectors")
	}
	seen := make(map[int]bool)
	for i := range X {
		if len(X[i]) != dim {
			return fmt.Errorf("training set: row %d has %d features, want %d", i, len(X[i]), dim)
		}
		if y[i] < 0 || y[i] >= classes {
			return fmt.Errorf("training set: label %d out of range at row %d", y[i], i)
		}
		seen[y[i]] = true
	}
	if len(seen) < 2 {
		return fmt.Errorf("training set: need at least 2 distinct labels, got %d", len(seen))
	}
	return nil
}

func meanBatchLoss(lossSum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return lossSum / float64(n)
}
