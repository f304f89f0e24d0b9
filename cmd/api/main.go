package main

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"digitlab/internal/dataset"
	"digitlab/internal/models"
	"digitlab/internal/store"
	"digitlab/pkg/utils"
)

var (
	logger    *zap.Logger
	model     models.Model
	predStore *store.Store
	dataPath  string
	curvePath string
)

// inkModel is the fallback when no trained artifact is on disk: it maps
// the total ink of an image to the digit that typically carries that much
// stroke mass. Good enough to keep the API answering.
type inkModel struct{}

// digits ordered by typical ink coverage, lightest first
var inkOrder = [dataset.NumClasses]int{1, 7, 4, 2, 3, 5, 9, 6, 0, 8}

func (inkModel) Fit(X [][]float64, y []int) error { return nil }
func (inkModel) Name() string                     { return "InkHeuristic" }

func (m inkModel) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, v := range X {
		ink := 0.0
		for _, px := range v {
			ink += px
		}
		coverage := ink / float64(len(v))
		band := int(coverage / 0.02)
		if band >= dataset.NumClasses {
			band = dataset.NumClasses - 1
		}
		p := make([]float64, dataset.NumClasses)
		for c := range p {
			p[c] = 0.07
		}
		p[inkOrder[band]] = 1.0 - 0.07*float64(dataset.NumClasses-1)
		out[i] = p
	}
	return out
}

func (m inkModel) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, p := range m.PredictProba(X) {
		out[i] = argmax(p)
	}
	return out
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

func loadModel(algo, path string) models.Model {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	dec := gob.NewDecoder(f)
	switch algo {
	case "softmax":
		var s models.Softmax
		if err := dec.Decode(&s); err == nil && len(s.W) > 0 {
			return &s
		}
	case "mlp":
		var m models.MLP
		if err := dec.Decode(&m); err == nil && len(m.W1) > 0 {
			return &m
		}
	default:
		var cn models.ConvNet
		if err := dec.Decode(&cn); err == nil && len(cn.ConvW) > 0 {
			return &cn
		}
	}
	return nil
}

func main() {
	logger = utils.Logger()
	defer logger.Sync()

	algo := strings.ToLower(os.Getenv("MODEL_ALGO"))
	if algo == "" {
		algo = "conv"
	}
	modelPath := os.Getenv("MODEL_PATH")
	if modelPath == "" {
		modelPath = filepath.Join("models", algo+"_model.gob")
	}
	dataPath = os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = "data/digits.csv"
	}
	curvePath = os.Getenv("CURVE_PATH")
	if curvePath == "" {
		curvePath = "data/learning_curve.csv"
	}
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/predictions.db"
	}

	model = loadModel(algo, modelPath)
	if model == nil {
		logger.Warn("No trained model artifact, serving with the ink heuristic",
			zap.String("algo", algo), zap.String("path", modelPath))
		model = inkModel{}
	} else {
		logger.Info("Model loaded", zap.String("model", model.Name()), zap.String("path", modelPath))
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logger.Fatal("mkdir db dir", zap.Error(err))
	}
	var err error
	predStore, err = store.Open(dbPath)
	if err != nil {
		logger.Fatal("open prediction store", zap.Error(err))
	}
	defer predStore.Close()

	r := newRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}

func newRouter() *gin.Engine {
	r := gin.Default()

	r.Static("/static", "cmd/api/static")
	r.GET("/dashboard", func(c *gin.Context) {
		c.File("cmd/api/static/index.html")
	})
	r.GET("/dashboard/data", dashboardData)
	r.GET("/dashboard/metrics", dashboardMetrics)
	r.GET("/healthz", handleHealth)

	api := r.Group("/")
	api.Use(apiKeyMiddleware)
	api.POST("/predict", handlePredict)
	api.POST("/batch", handleBatch)
	api.GET("/random", handleRandom)

	return r
}

func apiKeyMiddleware(c *gin.Context) {
	key := os.Getenv("API_KEY")
	if key == "" {
		c.Next()
		return
	}
	if c.GetHeader("X-API-Key") != key {
		c.AbortWithStatusJSON(401, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}
