package models

import (
	"math"
	"math/rand"
)

// Softmax is multinomial logistic regression: a single dense layer with a
// softmax output, the simplest baseline in the lab.
type Softmax struct {
	Classes      int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Momentum     float64
	Seed         int64

	InputDim  int
	W         [][]float64 // Classes x InputDim
	B         []float64
	TrainLoss []float64 // mean cross-entropy per epoch
}

func NewSoftmax() *Softmax {
	return &Softmax{Classes: 10, Epochs: 10, BatchSize: 64, LearningRate: 0.1, Momentum: 0.9, Seed: 42}
}

func (s *Softmax) Name() string { return "Softmax" }

func (s *Softmax) Fit(X [][]float64, y []int) error {
	if err := checkTrainingSet(X, y, s.Classes); err != nil {
		return err
	}
	n := len(X)
	s.InputDim = len(X[0])
	if s.BatchSize <= 0 {
		s.BatchSize = 64
	}

	s.W = make([][]float64, s.Classes)
	vW := make([][]float64, s.Classes)
	for c := range s.W {
		s.W[c] = make([]float64, s.InputDim)
		vW[c] = make([]float64, s.InputDim)
	}
	s.B = make([]float64, s.Classes)
	vB := make([]float64, s.Classes)
	s.TrainLoss = make([]float64, 0, s.Epochs)

	rng := rand.New(rand.NewSource(s.Seed))
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	gW := make([][]float64, s.Classes)
	for c := range gW {
		gW[c] = make([]float64, s.InputDim)
	}
	gB := make([]float64, s.Classes)

	for epoch := 0; epoch < s.Epochs; epoch++ {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		lossSum := 0.0
		for start := 0; start < n; start += s.BatchSize {
			end := start + s.BatchSize
			if end > n {
				end = n
			}
			batch := order[start:end]
			for c := range gW {
				for j := range gW[c] {
					gW[c][j] = 0
				}
				gB[c] = 0
			}
			for _, i := range batch {
				p := s.scores(X[i])
				softmaxInPlace(p)
				if p[y[i]] > 1e-12 {
					lossSum += -math.Log(p[y[i]])
				} else {
					lossSum += -math.Log(1e-12)
				}
				for c := 0; c < s.Classes; c++ {
					d := p[c]
					if c == y[i] {
						d -= 1
					}
					gB[c] += d
					row := gW[c]
					for j, xv := range X[i] {
						row[j] += d * xv
					}
				}
			}
			scale := 1.0 / float64(len(batch))
			for c := 0; c < s.Classes; c++ {
				vB[c] = s.Momentum*vB[c] - s.LearningRate*gB[c]*scale
				s.B[c] += vB[c]
				for j := range s.W[c] {
					vW[c][j] = s.Momentum*vW[c][j] - s.LearningRate*gW[c][j]*scale
					s.W[c][j] += vW[c][j]
				}
			}
		}
		s.TrainLoss = append(s.TrainLoss, meanBatchLoss(lossSum, n))
	}
	return nil
}

func (s *Softmax) scores(x []float64) []float64 {
	out := make([]float64, s.Classes)
	for c := 0; c < s.Classes; c++ {
		sum := s.B[c]
		row := s.W[c]
		for j, xv := range x {
			sum += row[j] * xv
		}
		out[c] = sum
	}
	return out
}

func (s *Softmax) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		p := s.scores(X[i])
		softmaxInPlace(p)
		out[i] = p
	}
	return out
}

func (s *Softmax) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, p := range s.PredictProba(X) {
		out[i] = argmax(p)
	}
	return out
}
