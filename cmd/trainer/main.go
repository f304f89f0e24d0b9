package main

import (
	"encoding/csv"
	"encoding/gob"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"digitlab/internal/dataset"
	"digitlab/internal/metrics"
	"digitlab/internal/models"
	"digitlab/internal/render"
	"digitlab/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	regen := flag.Bool("regen", false, "Regenerate the synthetic digit dataset even if the CSV exists")
	n := flag.Int("n", 20000, "Number of synthetic examples when generating")
	data := flag.String("data", "data/digits.csv", "Input digit CSV (label + 784 pixels)")
	limit := flag.Int("limit", 0, "Cap on loaded rows, 0 for all")
	algo := flag.String("algo", "conv", "Model: softmax|mlp|conv")
	epochs := flag.Int("epochs", 5, "Training epochs")
	batch := flag.Int("batch", 32, "Minibatch size")
	lr := flag.Float64("lr", 0.05, "Learning rate")
	momentum := flag.Float64("momentum", 0.9, "SGD momentum")
	hidden := flag.Int("hidden", 128, "Hidden layer width (mlp/conv)")
	filters := flag.Int("filters", 32, "Convolution filters (conv)")
	kernel := flag.Int("kernel", 3, "Convolution kernel size (conv)")
	pool := flag.Int("pool", 2, "Max-pool window (conv)")
	dropout := flag.Float64("dropout", 0.2, "Dropout rate (mlp/conv)")
	seed := flag.Int64("seed", 42, "RNG seed for split and weights")
	curve := flag.Bool("curve", true, "Generate a learning curve (PNG and CSV)")
	curvePoints := flag.Int("curve_points", 8, "Points on the learning curve")
	curveMin := flag.Int("curve_min", 500, "Smallest training size on the curve")
	curveLog := flag.Bool("curve_log", true, "Space curve sizes logarithmically")
	curveImg := flag.String("curve_out_img", "cmd/api/static/learning_curve.png", "Learning curve PNG")
	curveCsv := flag.String("curve_out_csv", "data/learning_curve.csv", "Learning curve CSV")
	sampleImg := flag.String("sample_out_img", "cmd/api/static/sample_prediction.png", "Heatmap of the random holdout prediction")
	flag.Parse()

	if _, err := os.Stat(*data); *regen || os.IsNotExist(err) {
		logger.Info("Generating synthetic digit dataset", zap.Int("n", *n), zap.String("out", *data))
		if err := dataset.Generate(*n, *data, *seed); err != nil {
			logger.Fatal("Failed to generate dataset", zap.Error(err))
		}
	}

	X, y, err := dataset.Load(*data)
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err))
	}
	if *limit > 0 && *limit < len(X) {
		X, y = X[:*limit], y[:*limit]
	}
	counts := dataset.Counts(y)
	logger.Info("Dataset loaded", zap.Int("examples", len(X)), zap.Ints("per_label", counts))

	rng := rand.New(rand.NewSource(*seed))
	Xtrain, ytrain, Xtest, ytest := dataset.StratifiedSplit(X, y, 0.8, rng)
	logger.Info("Split", zap.Int("train", len(Xtrain)), zap.Int("test", len(Xtest)))

	mdl := constructModel(*algo, *epochs, *batch, *lr, *momentum, *hidden, *filters, *kernel, *pool, *dropout, *seed)
	if err := mdl.Fit(Xtrain, ytrain); err != nil {
		logger.Fatal("Training failed", zap.String("model", mdl.Name()), zap.Error(err))
	}
	for epoch, loss := range trainLoss(mdl) {
		logger.Info("Epoch", zap.Int("epoch", epoch+1), zap.Float64("train_loss", loss))
	}

	proba := mdl.PredictProba(Xtest)
	preds := make([]int, len(proba))
	for i, p := range proba {
		preds[i] = metrics.ArgMax(p)
	}
	acc := metrics.Accuracy(ytest, preds)
	conf := metrics.Confusion(ytest, preds, dataset.NumClasses)
	_, _, f1, macroF1 := metrics.PrecisionRecallF1(conf)
	ce := metrics.CrossEntropy(ytest, proba)
	logger.Info("Holdout metrics",
		zap.String("model", mdl.Name()),
		zap.Float64("accuracy", acc),
		zap.Float64("macro_f1", macroF1),
		zap.Float64("cross_entropy", ce),
		zap.Float64s("per_class_f1", f1),
	)
	for label, row := range conf {
		logger.Debug("Confusion row", zap.Int("actual", label), zap.Ints("predicted", row))
	}

	path := filepath.Join("models", *algo+"_model.gob")
	if err := os.MkdirAll("models", 0o755); err != nil {
		logger.Fatal("mkdir models", zap.Error(err))
	}
	mf, err := os.Create(path)
	if err != nil {
		logger.Fatal("create model file", zap.Error(err))
	}
	defer mf.Close()
	if err := gob.NewEncoder(mf).Encode(mdl); err != nil {
		logger.Fatal("serialize model", zap.Error(err))
	}
	logger.Info("Model saved", zap.String("path", path))
	fmt.Println("Model:", mdl.Name())

	// Closing sanity check: predict one random holdout digit.
	if len(Xtest) > 0 {
		i := rng.Intn(len(Xtest))
		p := mdl.PredictProba([][]float64{Xtest[i]})[0]
		pred := metrics.ArgMax(p)
		logger.Info("Random holdout prediction",
			zap.Int("predicted", pred),
			zap.Int("actual", ytest[i]),
			zap.Float64("confidence", p[pred]),
		)
		title := fmt.Sprintf("predicted %d, actual %d", pred, ytest[i])
		if err := render.SaveDigitPNG(Xtest[i], title, *sampleImg); err != nil {
			logger.Warn("Failed to render sample prediction", zap.Error(err))
		}
	}

	if *curve {
		sizes := computeCurveSizes(len(Xtrain), *curvePoints, *curveMin, *curveLog)
		trainAcc := make([]float64, len(sizes))
		testAcc := make([]float64, len(sizes))
		trainF1 := make([]float64, len(sizes))
		testF1 := make([]float64, len(sizes))
		for k, s := range sizes {
			subX := Xtrain[:s]
			subY := ytrain[:s]
			cm := constructModel(*algo, *epochs, *batch, *lr, *momentum, *hidden, *filters, *kernel, *pool, *dropout, *seed)
			if err := cm.Fit(subX, subY); err != nil {
				logger.Fatal("Training failed at curve point", zap.Int("size", s), zap.Error(err))
			}
			trainAcc[k], trainF1[k] = evaluate(cm, subX, subY)
			testAcc[k], testF1[k] = evaluate(cm, Xtest, ytest)
			logger.Info("Curve point",
				zap.Int("size", s),
				zap.Float64("train_acc", trainAcc[k]),
				zap.Float64("test_acc", testAcc[k]),
			)
		}
		if err := writeCurveCSV(*curveCsv, sizes, trainAcc, testAcc, trainF1, testF1); err != nil {
			logger.Warn("Failed to save curve CSV", zap.Error(err))
		}
		if err := plotCurvePNG(*curveImg, sizes, trainAcc, testAcc, trainF1, testF1); err != nil {
			logger.Warn("Failed to save curve PNG", zap.Error(err))
		} else {
			logger.Info("Learning curve written", zap.String("png", *curveImg), zap.String("csv", *curveCsv))
		}
	}
}

func constructModel(algo string, epochs, batch int, lr, momentum float64, hidden, filters, kernel, pool int, dropout float64, seed int64) models.Model {
	switch algo {
	case "softmax":
		s := models.NewSoftmax()
		s.Epochs = epochs
		s.BatchSize = batch
		s.LearningRate = lr
		s.Momentum = momentum
		s.Seed = seed
		return s
	case "mlp":
		m := models.NewMLP()
		m.Epochs = epochs
		m.BatchSize = batch
		m.LearningRate = lr
		m.Momentum = momentum
		m.Hidden = hidden
		m.Dropout = dropout
		m.Seed = seed
		return m
	default:
		cn := models.NewConvNet()
		cn.Epochs = epochs
		cn.BatchSize = batch
		cn.LearningRate = lr
		cn.Momentum = momentum
		cn.Hidden = hidden
		cn.Filters = filters
		cn.Kernel = kernel
		cn.Pool = pool
		cn.Dropout = dropout
		cn.Seed = seed
		return cn
	}
}

func trainLoss(mdl models.Model) []float64 {
	switch m := mdl.(type) {
	case *models.Softmax:
		return m.TrainLoss
	case *models.MLP:
		return m.TrainLoss
	case *models.ConvNet:
		return m.TrainLoss
	}
	return nil
}

func evaluate(mdl models.Model, X [][]float64, y []int) (acc, macroF1 float64) {
	preds := mdl.Predict(X)
	acc = metrics.Accuracy(y, preds)
	conf := metrics.Confusion(y, preds, dataset.NumClasses)
	_, _, _, macroF1 = metrics.PrecisionRecallF1(conf)
	return
}

func writeCurveCSV(path string, sizes []int, trainAcc, testAcc, trainF1, testF1 []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"size", "train_acc", "test_acc", "train_f1", "test_f1"}); err != nil {
		return err
	}
	for i := range sizes {
		rec := []string{
			strconv.Itoa(sizes[i]),
			fmt.Sprintf("%.6f", trainAcc[i]), fmt.Sprintf("%.6f", testAcc[i]),
			fmt.Sprintf("%.6f", trainF1[i]), fmt.Sprintf("%.6f", testF1[i]),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func plotCurvePNG(path string, sizes []int, trainAcc, testAcc, trainF1, testF1 []float64) error {
	p := plot.New()
	p.Title.Text = "Learning curve"
	p.X.Label.Text = "Training examples"
	p.Y.Label.Text = "Metric"
	p.Y.Min = 0
	p.Y.Max = 1

	toXY := func(xs []int, ys []float64) plotter.XYs {
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i].X = float64(xs[i])
			pts[i].Y = ys[i]
		}
		return pts
	}
	if err := plotutil.AddLinePoints(p,
		"Train (acc)", toXY(sizes, trainAcc),
		"Test (acc)", toXY(sizes, testAcc),
		"Train (F1)", toXY(sizes, trainF1),
		"Test (F1)", toXY(sizes, testF1),
	); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

func computeCurveSizes(totalTrain, points, min int, useLog bool) []int {
	if points <= 1 {
		points = 2
	}
	if min < 10 {
		min = 10
	}
	if min > totalTrain {
		min = int(math.Max(10, float64(totalTrain)/2))
	}
	sizes := make([]int, 0, points)
	if useLog {
		ratio := math.Pow(float64(totalTrain)/float64(min), 1.0/float64(points-1))
		for i := 0; i < points; i++ {
			s := int(math.Round(float64(min) * math.Pow(ratio, float64(i))))
			if s > totalTrain {
				s = totalTrain
			}
			sizes = append(sizes, s)
		}
	} else {
		step := float64(totalTrain-min) / float64(points-1)
		for i := 0; i < points; i++ {
			s := int(math.Round(float64(min) + float64(i)*step))
			if s > totalTrain {
				s = totalTrain
			}
			sizes = append(sizes, s)
		}
	}
	cleaned := make([]int, 0, len(sizes))
	last := -1
	for _, s := range sizes {
		if s <= last {
			s = last + 1
		}
		if s > totalTrain {
			s = totalTrain
		}
		if s != last {
			cleaned = append(cleaned, s)
			last = s
		}
	}
	if cleaned[len(cleaned)-1] != totalTrain {
		cleaned[len(cleaned)-1] = totalTrain
	}
	return cleaned
}
