package models

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// MLP is the dense half of the conv stack on its own: input -> Hidden relu ->
// dropout -> softmax. Batch math goes through gonum/mat.
type MLP struct {
	Classes      int
	Hidden       int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Momentum     float64
	Dropout      float64
	Seed         int64

	InputDim  int
	W1        []float64 // Hidden x InputDim, row-major
	B1        []float64
	W2        []float64 // Classes x Hidden, row-major
	B2        []float64
	TrainLoss []float64
}

func NewMLP() *MLP {
	return &MLP{Classes: 10, Hidden: 128, Epochs: 10, BatchSize: 32,
		LearningRate: 0.1, Momentum: 0.9, Dropout: 0.2, Seed: 42}
}

func (m *MLP) Name() string { return "MLP" }

func (m *MLP) Fit(X [][]float64, y []int) error {
	if err := checkTrainingSet(X, y, m.Classes); err != nil {
		return err
	}
	n := len(X)
	m.InputDim = len(X[0])
	if m.BatchSize <= 0 {
		m.BatchSize = 32
	}
	rng := rand.New(rand.NewSource(m.Seed))

	m.W1 = heInit(rng, m.Hidden*m.InputDim, m.InputDim)
	m.B1 = make([]float64, m.Hidden)
	m.W2 = heInit(rng, m.Classes*m.Hidden, m.Hidden)
	m.B2 = make([]float64, m.Classes)
	vW1 := make([]float64, len(m.W1))
	vB1 := make([]float64, len(m.B1))
	vW2 := make([]float64, len(m.W2))
	vB2 := make([]float64, len(m.B2))
	m.TrainLoss = make([]float64, 0, m.Epochs)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < m.Epochs; epoch++ {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		lossSum := 0.0
		for start := 0; start < n; start += m.BatchSize {
			end := start + m.BatchSize
			if end > n {
				end = n
			}
			batch := order[start:end]
			b := len(batch)

			xb := mat.NewDense(b, m.InputDim, nil)
			for i, idx := range batch {
				xb.SetRow(i, X[idx])
			}
			w1 := mat.NewDense(m.Hidden, m.InputDim, m.W1)
			w2 := mat.NewDense(m.Classes, m.Hidden, m.W2)

			// hidden = relu(xb W1^T + b1), then inverted dropout
			var h mat.Dense
			h.Mul(xb, w1.T())
			hd := h.RawMatrix().Data
			mask := make([]float64, len(hd))
			keep := 1.0 - m.Dropout
			for i := 0; i < b; i++ {
				for k := 0; k < m.Hidden; k++ {
					p := i*m.Hidden + k
					hd[p] += m.B1[k]
					if hd[p] <= 0 {
						hd[p] = 0
						continue
					}
					if m.Dropout > 0 && rng.Float64() < m.Dropout {
						hd[p] = 0
						continue
					}
					mask[p] = 1.0
					if m.Dropout > 0 {
						mask[p] = 1.0 / keep
						hd[p] /= keep
					}
				}
			}

			// logits = hidden W2^T + b2, softmax per row
			var z mat.Dense
			z.Mul(&h, w2.T())
			zd := z.RawMatrix().Data
			for i := 0; i < b; i++ {
				row := zd[i*m.Classes : (i+1)*m.Classes]
				for c := range row {
					row[c] += m.B2[c]
				}
				softmaxInPlace(row)
				p := row[y[batch[i]]]
				if p < 1e-12 {
					p = 1e-12
				}
				lossSum += -math.Log(p)
				row[y[batch[i]]] -= 1 // now holds dlogits
			}

			var dW2 mat.Dense
			dW2.Mul(z.T(), &h) // Classes x Hidden
			var dH mat.Dense
			dH.Mul(&z, w2) // b x Hidden
			dhd := dH.RawMatrix().Data
			for p := range dhd {
				dhd[p] *= mask[p]
			}
			var dW1 mat.Dense
			dW1.Mul(dH.T(), xb) // Hidden x InputDim

			scale := 1.0 / float64(b)
			applyMomentum(m.W2, vW2, dW2.RawMatrix().Data, m.LearningRate, m.Momentum, scale)
			applyMomentum(m.W1, vW1, dW1.RawMatrix().Data, m.LearningRate, m.Momentum, scale)
			applyMomentum(m.B2, vB2, colSums(zd, b, m.Classes), m.LearningRate, m.Momentum, scale)
			applyMomentum(m.B1, vB1, colSums(dhd, b, m.Hidden), m.LearningRate, m.Momentum, scale)
		}
		m.TrainLoss = append(m.TrainLoss, meanBatchLoss(lossSum, n))
	}
	return nil
}

func (m *MLP) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	if len(X) == 0 {
		return out
	}
	b := len(X)
	xb := mat.NewDense(b, m.InputDim, nil)
	for i := range X {
		xb.SetRow(i, X[i])
	}
	w1 := mat.NewDense(m.Hidden, m.InputDim, m.W1)
	w2 := mat.NewDense(m.Classes, m.Hidden, m.W2)

	var h mat.Dense
	h.Mul(xb, w1.T())
	hd := h.RawMatrix().Data
	for i := 0; i < b; i++ {
		for k := 0; k < m.Hidden; k++ {
			p := i*m.Hidden + k
			hd[p] += m.B1[k]
			if hd[p] < 0 {
				hd[p] = 0
			}
		}
	}
	var z mat.Dense
	z.Mul(&h, w2.T())
	zd := z.RawMatrix().Data
	for i := 0; i < b; i++ {
		row := make([]float64, m.Classes)
		copy(row, zd[i*m.Classes:(i+1)*m.Classes])
		for c := range row {
			row[c] += m.B2[c]
		}
		softmaxInPlace(row)
		out[i] = row
	}
	return out
}

func (m *MLP) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, p := range m.PredictProba(X) {
		out[i] = argmax(p)
	}
	return out
}

func heInit(rng *rand.Rand, size, fanIn int) []float64 {
	w := make([]float64, size)
	std := math.Sqrt(2.0 / float64(fanIn))
	for i := range w {
		w[i] = rng.NormFloat64() * std
	}
	return w
}

func applyMomentum(w, v, grad []float64, lr, momentum, scale float64) {
	for i := range w {
		v[i] = momentum*v[i] - lr*grad[i]*scale
		w[i] += v[i]
	}
}

func colSums(data []float64, rows, cols int) []float64 {
	out := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for c := 0; c < cols; c++ {
			out[c] += data[i*cols+c]
		}
	}
	return out
}
