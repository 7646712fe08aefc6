// Command autoencoder trains an autoencoder on digit images and writes the
// reconstruction of one test image per digit as PNG after every evaluation.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/FlavioCFOliveira/chainnet/internal/config"
	"github.com/FlavioCFOliveira/chainnet/internal/dataset"
	"github.com/FlavioCFOliveira/chainnet/internal/layer"
	"github.com/FlavioCFOliveira/chainnet/internal/train"
)

func main() {
	configPath := flag.String("config", "configs/autoencoder.yaml", "Network and training configuration")
	trainDir := flag.String("train", "MNIST_dataset/mnist_png/training", "Training corpus: one directory per digit")
	testDir := flag.String("test", "MNIST_dataset/mnist_png/testing", "Testing corpus: one directory per digit")
	limit := flag.Int("limit", 1000, "Max training images per class (0 = all)")
	synthetic := flag.Int("synthetic", 0, "Use N synthetic digits per class instead of PNG files")
	outDir := flag.String("out", "output", "Directory for reconstructed images")
	steps := flag.Int("steps", -1, "Override training.steps")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *steps >= 0 {
		cfg.Training.Steps = *steps
	}
	h, w := cfg.Input.Height, cfg.Input.Width
	if cfg.Input.Channels != 1 {
		log.Fatalf("Autoencoder input must have one channel, got %d", cfg.Input.Channels)
	}

	seed := cfg.Training.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var trainSet, testSet *dataset.Corpus
	if *synthetic > 0 {
		r := rand.New(rand.NewPCG(seed, 1))
		trainSet = dataset.Digits(r, *synthetic, 0.3)
		testSet = dataset.Digits(r, 1, 0.3)
	} else {
		if trainSet, err = dataset.LoadImageDir(*trainDir, 10, *limit); err != nil {
			log.Fatalf("Failed to load training set: %v", err)
		}
		if testSet, err = dataset.LoadImageDir(*testDir, 10, 1); err != nil {
			log.Fatalf("Failed to load testing set: %v", err)
		}
	}
	logger.Printf("loaded %d training and %d testing images", trainSet.Len(), testSet.Len())

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}
	var samples [][]float64
	for label := 0; label < testSet.Classes(); label++ {
		for _, x := range testSet.Class(label) {
			path := filepath.Join(*outDir, fmt.Sprintf("train%d.png", label))
			if err := dataset.SaveImage(path, x, h, w); err != nil {
				log.Fatalf("Failed to save image: %v", err)
			}
			samples = append(samples, x)
			break
		}
	}

	chain, err := cfg.Build(layer.WithSource(rand.NewPCG(seed, 2)))
	if err != nil {
		log.Fatalf("Failed to build network: %v", err)
	}

	trainer := train.New(chain, train.Autoencode,
		train.WithScheduler(cfg.Training.Scheduler()),
		train.WithMomentum(cfg.Training.Momentum),
		train.WithRand(rand.New(rand.NewPCG(seed, 3))),
		train.WithCallbacks(
			train.Logger{Out: logger},
			train.ImageSaver{Dir: *outDir, Samples: samples, Height: h, Width: w, Out: logger},
		),
	)
	if _, err := trainer.Run(trainSet, testSet, cfg.Training.Steps, cfg.Training.EvalEvery); err != nil {
		log.Fatalf("Training failed: %v", err)
	}
}
