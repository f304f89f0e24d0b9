package models

import (
	"fmt"
	"math"
	"math/rand"
)

// ConvNet is the classic digit stack: conv KxK with Filters maps,
// relu, max-pool PxP, flatten, dense Hidden with relu and dropout, dense
// softmax. Images arrive flattened; the side length is derived from the
// input width and must be square.
type ConvNet struct {
	Classes      int
	Filters      int
	Kernel       int
	Pool         int
	Hidden       int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Momentum     float64
	Dropout      float64
	Seed         int64

	InputDim int
	Side     int
	ConvDim  int // side length after the valid convolution
	PoolDim  int // side length after max-pooling
	FlatDim  int

	ConvW     [][]float64 // Filters x Kernel*Kernel
	ConvB     []float64
	W1        []float64 // Hidden x FlatDim
	B1        []float64
	W2        []float64 // Classes x Hidden
	B2        []float64
	TrainLoss []float64
}

func NewConvNet() *ConvNet {
	return &ConvNet{Classes: 10, Filters: 32, Kernel: 3, Pool: 2, Hidden: 128,
		Epochs: 5, BatchSize: 32, LearningRate: 0.05, Momentum: 0.9, Dropout: 0.2, Seed: 42}
}

func (cn *ConvNet) Name() string { return "ConvNet" }

func (cn *ConvNet) shape(inputDim int) error {
	side := int(math.Sqrt(float64(inputDim)))
	if side*side != inputDim {
		return fmt.Errorf("convnet: input width %d is not a square image", inputDim)
	}
	convDim := side - cn.Kernel + 1
	if convDim <= 0 {
		return fmt.Errorf("convnet: kernel %d too large for %dx%d input", cn.Kernel, side, side)
	}
	if convDim%cn.Pool != 0 {
		return fmt.Errorf("convnet: conv output %d not divisible by pool %d", convDim, cn.Pool)
	}
	cn.InputDim = inputDim
	cn.Side = side
	cn.ConvDim = convDim
	cn.PoolDim = convDim / cn.Pool
	cn.FlatDim = cn.Filters * cn.PoolDim * cn.PoolDim
	return nil
}

// convCache holds one sample's forward pass for backprop.
type convCache struct {
	convZ   [][]float64 // pre-relu conv maps, Filters x ConvDim*ConvDim
	poolArg [][]int     // winning conv index per pooled cell
	flat    []float64
	hidden  []float64 // post-relu, post-dropout
	hMask   []float64 // combined relu+dropout gradient mask
	proba   []float64
}

func (cn *ConvNet) Fit(X [][]float64, y []int) error {
	if err := checkTrainingSet(X, y, cn.Classes); err != nil {
		return err
	}
	if err := cn.shape(len(X[0])); err != nil {
		return err
	}
	n := len(X)
	if cn.BatchSize <= 0 {
		cn.BatchSize = 32
	}
	rng := rand.New(rand.NewSource(cn.Seed))

	kk := cn.Kernel * cn.Kernel
	cn.ConvW = make([][]float64, cn.Filters)
	for f := range cn.ConvW {
		cn.ConvW[f] = heInit(rng, kk, kk)
	}
	cn.ConvB = make([]float64, cn.Filters)
	cn.W1 = heInit(rng, cn.Hidden*cn.FlatDim, cn.FlatDim)
	cn.B1 = make([]float64, cn.Hidden)
	cn.W2 = heInit(rng, cn.Classes*cn.Hidden, cn.Hidden)
	cn.B2 = make([]float64, cn.Classes)

	vConvW := make([][]float64, cn.Filters)
	for f := range vConvW {
		vConvW[f] = make([]float64, kk)
	}
	vConvB := make([]float64, cn.Filters)
	vW1 := make([]float64, len(cn.W1))
	vB1 := make([]float64, len(cn.B1))
	vW2 := make([]float64, len(cn.W2))
	vB2 := make([]float64, len(cn.B2))
	cn.TrainLoss = make([]float64, 0, cn.Epochs)

	gConvW := make([][]float64, cn.Filters)
	for f := range gConvW {
		gConvW[f] = make([]float64, kk)
	}
	gConvB := make([]float64, cn.Filters)
	gW1 := make([]float64, len(cn.W1))
	gB1 := make([]float64, len(cn.B1))
	gW2 := make([]float64, len(cn.W2))
	gB2 := make([]float64, len(cn.B2))

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < cn.Epochs; epoch++ {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		lossSum := 0.0
		for start := 0; start < n; start += cn.BatchSize {
			end := start + cn.BatchSize
			if end > n {
				end = n
			}
			batch := order[start:end]
			zeroAll(gConvW, gConvB, gW1, gB1, gW2, gB2)
			for _, i := range batch {
				cache := cn.forward(X[i], rng)
				p := cache.proba[y[i]]
				if p < 1e-12 {
					p = 1e-12
				}
				lossSum += -math.Log(p)
				cn.backward(X[i], y[i], cache, gConvW, gConvB, gW1, gB1, gW2, gB2)
			}
			scale := 1.0 / float64(len(batch))
			for f := 0; f < cn.Filters; f++ {
				applyMomentum(cn.ConvW[f], vConvW[f], gConvW[f], cn.LearningRate, cn.Momentum, scale)
			}
			applyMomentum(cn.ConvB, vConvB, gConvB, cn.LearningRate, cn.Momentum, scale)
			applyMomentum(cn.W1, vW1, gW1, cn.LearningRate, cn.Momentum, scale)
			applyMomentum(cn.B1, vB1, gB1, cn.LearningRate, cn.Momentum, scale)
			applyMomentum(cn.W2, vW2, gW2, cn.LearningRate, cn.Momentum, scale)
			applyMomentum(cn.B2, vB2, gB2, cn.LearningRate, cn.Momentum, scale)
		}
		cn.TrainLoss = append(cn.TrainLoss, meanBatchLoss(lossSum, n))
	}
	return nil
}

// forward runs one sample through the stack. A nil rng disables dropout,
// which keeps inference deterministic.
func (cn *ConvNet) forward(x []float64, rng *rand.Rand) *convCache {
	cache := &convCache{
		convZ:   make([][]float64, cn.Filters),
		poolArg: make([][]int, cn.Filters),
		flat:    make([]float64, cn.FlatDim),
		hidden:  make([]float64, cn.Hidden),
		hMask:   make([]float64, cn.Hidden),
		proba:   make([]float64, cn.Classes),
	}
	cd, pd := cn.ConvDim, cn.PoolDim

	for f := 0; f < cn.Filters; f++ {
		z := make([]float64, cd*cd)
		w := cn.ConvW[f]
		for i := 0; i < cd; i++ {
			for j := 0; j < cd; j++ {
				sum := cn.ConvB[f]
				for a := 0; a < cn.Kernel; a++ {
					base := (i+a)*cn.Side + j
					wrow := a * cn.Kernel
					for b := 0; b < cn.Kernel; b++ {
						sum += w[wrow+b] * x[base+b]
					}
				}
				z[i*cd+j] = sum
			}
		}
		cache.convZ[f] = z

		arg := make([]int, pd*pd)
		for pi := 0; pi < pd; pi++ {
			for pj := 0; pj < pd; pj++ {
				best, bestIdx := math.Inf(-1), -1
				for a := 0; a < cn.Pool; a++ {
					for b := 0; b < cn.Pool; b++ {
						idx := (pi*cn.Pool+a)*cd + pj*cn.Pool + b
						v := z[idx]
						if v < 0 {
							v = 0 // relu before pooling
						}
						if v > best {
							best, bestIdx = v, idx
						}
					}
				}
				arg[pi*pd+pj] = bestIdx
				cache.flat[f*pd*pd+pi*pd+pj] = best
			}
		}
		cache.poolArg[f] = arg
	}

	keep := 1.0 - cn.Dropout
	for k := 0; k < cn.Hidden; k++ {
		sum := cn.B1[k]
		row := cn.W1[k*cn.FlatDim : (k+1)*cn.FlatDim]
		for m, fv := range cache.flat {
			sum += row[m] * fv
		}
		if sum <= 0 {
			continue
		}
		if rng != nil && cn.Dropout > 0 {
			if rng.Float64() < cn.Dropout {
				continue
			}
			cache.hidden[k] = sum / keep
			cache.hMask[k] = 1.0 / keep
		} else {
			cache.hidden[k] = sum
			cache.hMask[k] = 1.0
		}
	}

	for c := 0; c < cn.Classes; c++ {
		sum := cn.B2[c]
		row := cn.W2[c*cn.Hidden : (c+1)*cn.Hidden]
		for k, hv := range cache.hidden {
			sum += row[k] * hv
		}
		cache.proba[c] = sum
	}
	softmaxInPlace(cache.proba)
	return cache
}

func (cn *ConvNet) backward(x []float64, label int, cache *convCache, gConvW [][]float64, gConvB, gW1, gB1, gW2, gB2 []float64) {
	cd, pd := cn.ConvDim, cn.PoolDim

	dlogits := make([]float64, cn.Classes)
	copy(dlogits, cache.proba)
	dlogits[label] -= 1

	dh := make([]float64, cn.Hidden)
	for c := 0; c < cn.Classes; c++ {
		d := dlogits[c]
		gB2[c] += d
		row := cn.W2[c*cn.Hidden : (c+1)*cn.Hidden]
		grow := gW2[c*cn.Hidden : (c+1)*cn.Hidden]
		for k, hv := range cache.hidden {
			grow[k] += d * hv
			dh[k] += d * row[k]
		}
	}
	for k := range dh {
		dh[k] *= cache.hMask[k]
	}

	dflat := make([]float64, cn.FlatDim)
	for k := 0; k < cn.Hidden; k++ {
		d := dh[k]
		if d == 0 {
			continue
		}
		gB1[k] += d
		row := cn.W1[k*cn.FlatDim : (k+1)*cn.FlatDim]
		grow := gW1[k*cn.FlatDim : (k+1)*cn.FlatDim]
		for m, fv := range cache.flat {
			grow[m] += d * fv
			dflat[m] += d * row[m]
		}
	}

	for f := 0; f < cn.Filters; f++ {
		z := cache.convZ[f]
		arg := cache.poolArg[f]
		gw := gConvW[f]
		for p := 0; p < pd*pd; p++ {
			d := dflat[f*pd*pd+p]
			if d == 0 {
				continue
			}
			idx := arg[p]
			if z[idx] <= 0 {
				continue // relu gate
			}
			gConvB[f] += d
			i, j := idx/cd, idx%cd
			for a := 0; a < cn.Kernel; a++ {
				base := (i+a)*cn.Side + j
				wrow := a * cn.Kernel
				for b := 0; b < cn.Kernel; b++ {
					gw[wrow+b] += d * x[base+b]
				}
			}
		}
	}
}

func (cn *ConvNet) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = cn.forward(X[i], nil).proba
	}
	return out
}

func (cn *ConvNet) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, p := range cn.PredictProba(X) {
		out[i] = argmax(p)
	}
	return out
}

func zeroAll(gConvW [][]float64, rest ...[]float64) {
	for _, g := range gConvW {
		for i := range g {
			g[i] = 0
		}
	}
	for _, g := range rest {
		for i := range g {
			g[i] = 0
		}
	}
}
