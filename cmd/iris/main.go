// Command iris trains a classifier on a CSV file with one integer label
// column, or on synthetic iris-like measurements when no file is given.
package main

import (
	"flag"
	"log"
	"math/rand/v2"
	"os"

	"github.com/FlavioCFOliveira/chainnet/internal/activations"
	"github.com/FlavioCFOliveira/chainnet/internal/dataset"
	"github.com/FlavioCFOliveira/chainnet/internal/layer"
	"github.com/FlavioCFOliveira/chainnet/internal/train"
)

func main() {
	data := flag.String("data", "", "CSV file (empty = synthetic iris data)")
	labelCol := flag.Int("label", 4, "Index of the label column")
	header := flag.Bool("header", true, "CSV file has a header row")
	iterations := flag.Int("iterations", 2000, "Training iterations (one example per class each)")
	csvLog := flag.String("csv", "", "Write evaluations to this CSV file")
	seed := flag.Uint64("seed", 42, "Random seed")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	r := rand.New(rand.NewPCG(*seed, 1))

	var corpus *dataset.Corpus
	var err error
	if *data != "" {
		if corpus, err = dataset.LoadCSV(*data, *labelCol, *header); err != nil {
			log.Fatalf("Failed to load data: %v", err)
		}
	} else {
		corpus = generateIrisData(r)
	}
	corpus.Normalize()
	trainSet, testSet := corpus.Split(0.8)
	logger.Printf("%d classes, %d features, %d train / %d test samples",
		corpus.Classes(), corpus.Dim(), trainSet.Len(), testSet.Len())

	chain, err := layer.NewBuilder(layer.WithSource(rand.NewPCG(*seed, 2))).
		Input(corpus.Dim()).
		FullyConnected(8, activations.ReLU{}, "hidden1").
		FullyConnected(6, activations.ReLU{}, "hidden2").
		Softmax(corpus.Classes(), "out").
		Build()
	if err != nil {
		log.Fatalf("Failed to build network: %v", err)
	}

	callbacks := []train.Callback{train.Logger{Out: logger}}
	if *csvLog != "" {
		callbacks = append(callbacks, train.NewCSVLogger(*csvLog, false))
	}
	trainer := train.New(chain, train.Classify,
		train.WithRate(0.05),
		train.WithMomentum(0.5),
		train.WithRand(r),
		train.WithCallbacks(callbacks...),
	)
	if _, err := trainer.Run(trainSet, testSet, *iterations, 200); err != nil {
		log.Fatalf("Training failed: %v", err)
	}
}

// generateIrisData draws 50 noisy samples around each class mean
// (Setosa, Versicolor, Virginica).
func generateIrisData(r *rand.Rand) *dataset.Corpus {
	means := [][]float64{
		{5.0, 3.4, 1.5, 0.2},
		{5.9, 2.8, 4.3, 1.3},
		{6.6, 3.0, 5.6, 2.0},
	}
	noise := []float64{0.2, 0.25, 0.25}

	c := dataset.NewCorpus(len(means))
	for label, mean := range means {
		for i := 0; i < 50; i++ {
			x := make([]float64, len(mean))
			for j, v := range mean {
				x[j] = v + (r.Float64()*2-1)*noise[label]
			}
			if err := c.Add(label, x); err != nil {
				log.Fatal(err)
			}
		}
	}
	return c
}
