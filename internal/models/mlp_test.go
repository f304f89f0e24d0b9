package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitlab/internal/metrics"
)

func TestMLPLearnsSyntheticDigits(t *testing.T) {
	Xtr, ytr, Xte, yte := syntheticSplit(t, 1000, 15)

	m := NewMLP()
	m.Hidden = 32
	m.Epochs = 6
	m.Dropout = 0
	require.NoError(t, m.Fit(Xtr, ytr))

	acc := metrics.Accuracy(yte, m.Predict(Xte))
	assert.Greater(t, acc, 0.7, "holdout accuracy")
	assert.Less(t, m.TrainLoss[len(m.TrainLoss)-1], m.TrainLoss[0])
}

func TestMLPDropoutTrainsAndInfersDeterministically(t *testing.T) {
	Xtr, ytr, Xte, _ := syntheticSplit(t, 400, 16)

	m := NewMLP()
	m.Hidden = 16
	m.Epochs = 2
	m.Dropout = 0.5
	require.NoError(t, m.Fit(Xtr, ytr))

	// dropout is a training-only concern
	first := m.PredictProba(Xte)
	second := m.PredictProba(Xte)
	assert.Equal(t, first, second)
}

func TestMLPProbaRowsSumToOne(t *testing.T) {
	Xtr, ytr, Xte, _ := syntheticSplit(t, 300, 17)
	m := NewMLP()
	m.Hidden = 16
	m.Epochs = 1
	require.NoError(t, m.Fit(Xtr, ytr))

	for _, p := range m.PredictProba(Xte) {
		sum := 0.0
		for _, v := range p {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestMLPRejectsDegenerateSets(t *testing.T) {
	m := NewMLP()
	assert.Error(t, m.Fit(nil, nil))
	assert.Error(t, m.Fit([][]float64{{1, 2}}, []int{1}))
}
