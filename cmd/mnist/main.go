// Command mnist trains a classifier described by a YAML file on a
// class-directory PNG corpus, or on synthetic digits with -synthetic.
package main

import (
	"flag"
	"log"
	"math/rand/v2"
	"os"

	"github.com/FlavioCFOliveira/chainnet/internal/config"
	"github.com/FlavioCFOliveira/chainnet/internal/dataset"
	"github.com/FlavioCFOliveira/chainnet/internal/layer"
	"github.com/FlavioCFOliveira/chainnet/internal/train"
)

func main() {
	configPath := flag.String("config", "configs/mnist_cnn.yaml", "Network and training configuration")
	trainDir := flag.String("train", "MNIST_dataset/mnist_png/training", "Training corpus: one directory per digit")
	testDir := flag.String("test", "MNIST_dataset/mnist_png/testing", "Testing corpus: one directory per digit")
	limit := flag.Int("limit", 0, "Max images per class (0 = all)")
	synthetic := flag.Int("synthetic", 0, "Use N synthetic digits per class instead of PNG files")
	steps := flag.Int("steps", -1, "Override training.steps")
	csvLog := flag.String("csv", "", "Write evaluations to this CSV file")
	patience := flag.Int("patience", 0, "Stop after N evaluations without improvement (0 = never)")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *steps >= 0 {
		cfg.Training.Steps = *steps
	}

	seed := cfg.Training.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var trainSet, testSet *dataset.Corpus
	if *synthetic > 0 {
		r := rand.New(rand.NewPCG(seed, 1))
		trainSet = dataset.Digits(r, *synthetic, 0.3)
		testSet = dataset.Digits(r, max(*synthetic/5, 1), 0.3)
	} else {
		if trainSet, err = dataset.LoadImageDir(*trainDir, 10, *limit); err != nil {
			log.Fatalf("Failed to load training set: %v", err)
		}
		if testSet, err = dataset.LoadImageDir(*testDir, 10, *limit); err != nil {
			log.Fatalf("Failed to load testing set: %v", err)
		}
	}
	logger.Printf("loaded %d training and %d testing images", trainSet.Len(), testSet.Len())

	chain, err := cfg.Build(layer.WithSource(rand.NewPCG(seed, 2)))
	if err != nil {
		log.Fatalf("Failed to build network: %v", err)
	}

	callbacks := []train.Callback{train.Logger{Out: logger, Interval: cfg.Training.EvalEvery}}
	var csvLogger *train.CSVLogger
	if *csvLog != "" {
		csvLogger = train.NewCSVLogger(*csvLog, false)
		callbacks = append(callbacks, csvLogger)
	}
	if *patience > 0 {
		es := train.NewEarlyStopping(*patience, 1e-4)
		es.Out = logger
		callbacks = append(callbacks, es)
	}

	trainer := train.New(chain, train.Classify,
		train.WithScheduler(cfg.Training.Scheduler()),
		train.WithMomentum(cfg.Training.Momentum),
		train.WithRand(rand.New(rand.NewPCG(seed, 3))),
		train.WithCallbacks(callbacks...),
	)
	if _, err := trainer.Run(trainSet, testSet, cfg.Training.Steps, cfg.Training.EvalEvery); err != nil {
		log.Fatalf("Training failed: %v", err)
	}
	if csvLogger != nil && csvLogger.Err() != nil {
		log.Fatalf("Failed to write log: %v", csvLogger.Err())
	}
}
