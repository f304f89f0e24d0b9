package models

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitlab/internal/metrics"
)

func smallConvNet() *ConvNet {
	cn := NewConvNet()
	cn.Filters = 2
	cn.Hidden = 16
	cn.Epochs = 5
	cn.BatchSize = 16
	cn.Dropout = 0
	return cn
}

func TestConvNetShapeErrors(t *testing.T) {
	y := []int{0, 1}

	cn := smallConvNet()
	X := [][]float64{make([]float64, 10), make([]float64, 10)}
	assert.Error(t, cn.Fit(X, y), "non-square input")

	cn = smallConvNet()
	cn.Kernel = 30
	X = [][]float64{make([]float64, 784), make([]float64, 784)}
	assert.Error(t, cn.Fit(X, y), "kernel larger than image")

	cn = smallConvNet()
	cn.Pool = 4 // 26 % 4 != 0
	assert.Error(t, cn.Fit(X, y), "pool does not divide conv output")
}

func TestConvNetLearnsSyntheticDigits(t *testing.T) {
	if testing.Short() {
		t.Skip("training loop")
	}
	Xtr, ytr, Xte, yte := syntheticSplit(t, 500, 25)

	cn := smallConvNet()
	require.NoError(t, cn.Fit(Xtr, ytr))
	assert.Equal(t, 13, cn.PoolDim)
	assert.Equal(t, 2*13*13, cn.FlatDim)

	acc := metrics.Accuracy(yte, cn.Predict(Xte))
	assert.Greater(t, acc, 0.5, "holdout accuracy")
}

func TestConvNetInferenceDeterministic(t *testing.T) {
	Xtr, ytr, Xte, _ := syntheticSplit(t, 100, 26)
	cn := smallConvNet()
	cn.Epochs = 1
	cn.Dropout = 0.3
	require.NoError(t, cn.Fit(Xtr, ytr))

	first := cn.PredictProba(Xte)
	second := cn.PredictProba(Xte)
	assert.Equal(t, first, second)
	for _, p := range first {
		sum := 0.0
		for _, v := range p {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestConvNetGobRoundTrip(t *testing.T) {
	Xtr, ytr, Xte, _ := syntheticSplit(t, 100, 27)
	cn := smallConvNet()
	cn.Epochs = 1
	require.NoError(t, cn.Fit(Xtr, ytr))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(cn))
	var got ConvNet
	require.NoError(t, gob.NewDecoder(&buf).Decode(&got))

	assert.Equal(t, cn.Predict(Xte), got.Predict(Xte))
	assert.Equal(t, cn.FlatDim, got.FlatDim)
}
