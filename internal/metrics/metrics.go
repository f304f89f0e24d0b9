// Package metrics has the multiclass evaluation helpers shared by the
// trainer and explorer.
package metrics

import "math"

// ArgMax returns the index of the largest value, -1 for an empty slice.
func ArgMax(v []float64) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Accuracy is the fraction of matching predictions.
func Accuracy(y, pred []int) float64 {
	if len(y) == 0 {
		return 0
	}
	c := 0
	for i := range y {
		if y[i] == pred[i] {
			c++
		}
	}
	return float64(c) / float64(len(y))
}

// Confusion builds a k x k matrix where entry [actual][predicted] counts
// examples. Labels outside [0,k) are ignored.
func Confusion(y, pred []int, k int) [][]int {
	m := make([][]int, k)
	for i := range m {
		m[i] = make([]int, k)
	}
	for i := range y {
		if y[i] >= 0 && y[i] < k && pred[i] >= 0 && pred[i] < k {
			m[y[i]][pred[i]]++
		}
	}
	return m
}

// PrecisionRecallF1 computes per-class scores from a confusion matrix and
// the macro-averaged F1. Classes with no support contribute zero.
func PrecisionRecallF1(conf [][]int) (precision, recall, f1 []float64, macroF1 float64) {
	k := len(conf)
	precision = make([]float64, k)
	recall = make([]float64, k)
	f1 = make([]float64, k)
	for c := 0; c < k; c++ {
		tp := conf[c][c]
		fp, fn := 0, 0
		for o := 0; o < k; o++ {
			if o != c {
				fp += conf[o][c]
				fn += conf[c][o]
			}
		}
		if tp+fp > 0 {
			precision[c] = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			recall[c] = float64(tp) / float64(tp+fn)
		}
		if precision[c]+recall[c] > 0 {
			f1[c] = 2 * precision[c] * recall[c] / (precision[c] + recall[c])
		}
		macroF1 += f1[c]
	}
	if k > 0 {
		macroF1 /= float64(k)
	}
	return
}

// CrossEntropy is the mean negative log-likelihood of the true labels
// under the predicted distributions. Probabilities are clamped away from
// zero so a confident miss stays finite.
func CrossEntropy(y []int, proba [][]float64) float64 {
	if len(y) == 0 {
		return 0
	}
	const eps = 1e-12
	sum := 0.0
	for i := range y {
		p := proba[i][y[i]]
		if p < eps {
			p = eps
		}
		sum += -math.Log(p)
	}
	return sum / float64(len(y))
}
