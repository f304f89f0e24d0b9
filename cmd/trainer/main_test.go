package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitlab/internal/models"
)

func TestComputeCurveSizes(t *testing.T) {
	for _, useLog := range []bool{true, false} {
		sizes := computeCurveSizes(10000, 8, 500, useLog)
		require.NotEmpty(t, sizes)
		assert.Equal(t, 10000, sizes[len(sizes)-1])
		for i := 1; i < len(sizes); i++ {
			assert.Greater(t, sizes[i], sizes[i-1], "sizes must be strictly increasing")
		}
	}
}

func TestComputeCurveSizesSmallSet(t *testing.T) {
	sizes := computeCurveSizes(120, 10, 500, true)
	assert.Equal(t, 120, sizes[len(sizes)-1])
	for _, s := range sizes {
		assert.LessOrEqual(t, s, 120)
	}
}

func TestConstructModel(t *testing.T) {
	m := constructModel("softmax", 3, 16, 0.1, 0.9, 64, 8, 3, 2, 0.1, 1)
	_, ok := m.(*models.Softmax)
	assert.True(t, ok)

	m = constructModel("mlp", 3, 16, 0.1, 0.9, 64, 8, 3, 2, 0.1, 1)
	mlp, ok := m.(*models.MLP)
	require.True(t, ok)
	assert.Equal(t, 64, mlp.Hidden)

	m = constructModel("conv", 3, 16, 0.1, 0.9, 64, 8, 3, 2, 0.1, 1)
	cn, ok := m.(*models.ConvNet)
	require.True(t, ok)
	assert.Equal(t, 8, cn.Filters)

	// unknown algo falls back to the conv stack
	_, ok = constructModel("nope", 3, 16, 0.1, 0.9, 64, 8, 3, 2, 0.1, 1).(*models.ConvNet)
	assert.True(t, ok)
}
