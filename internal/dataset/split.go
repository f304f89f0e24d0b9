package dataset

import "math/rand"

// StratifiedSplit partitions X,y into train and holdout sets, keeping the
// per-label proportions of the input within rounding. Order within each
// half is shuffled with rng.
func StratifiedSplit(X [][]float64, y []int, trainFrac float64, rng *rand.Rand) (Xtrain [][]float64, ytrain []int, Xtest [][]float64, ytest []int) {
	byLabel := make([][]int, NumClasses)
	for i, label := range y {
		byLabel[label] = append(byLabel[label], i)
	}

	var trainIdx, testIdx []int
	for _, idx := range byLabel {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		cut := int(trainFrac * float64(len(idx)))
		trainIdx = append(trainIdx, idx[:cut]...)
		testIdx = append(testIdx, idx[cut:]...)
	}
	rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })

	Xtrain = make([][]float64, len(trainIdx))
	ytrain = make([]int, len(trainIdx))
	for i, j := range trainIdx {
		Xtrain[i] = X[j]
		ytrain[i] = y[j]
	}
	Xtest = make([][]float64, len(testIdx))
	ytest = make([]int, len(testIdx))
	for i, j := range testIdx {
		Xtest[i] = X[j]
		ytest[i] = y[j]
	}
	return
}
