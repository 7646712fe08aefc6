// Command xor trains a 2-3-2 chain on XOR one example at a time, driving
// the propagate / back-propagate / gradient-descent phases directly.
package main

import (
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/FlavioCFOliveira/chainnet/internal/activations"
	"github.com/FlavioCFOliveira/chainnet/internal/layer"
	"github.com/FlavioCFOliveira/chainnet/internal/loss"
)

func main() {
	fmt.Println("=== XOR Training Example ===")

	chain, err := layer.NewBuilder(layer.WithSource(rand.NewPCG(42, 42)), layer.WithStdDev(0.5)).
		Input(2).
		FullyConnected(3, activations.Tanh{}, "hidden").
		Softmax(2, "out").
		Build()
	if err != nil {
		log.Fatalf("Failed to build network: %v", err)
	}
	fmt.Print(chain.Describe())

	trainX := [][]float64{
		{0, 0},
		{0, 1},
		{1, 0},
		{1, 1},
	}
	trainY := [][]float64{
		{1, 0},
		{0, 1},
		{0, 1},
		{1, 0},
	}

	for epoch := 0; epoch < 5000; epoch++ {
		totalLoss := 0.0
		for i := range trainX {
			if err := chain.Propagate(trainX[i]); err != nil {
				log.Fatal(err)
			}
			totalLoss += loss.CrossEntropy{}.Forward(chain.Output(), trainY[i])
			if err := chain.SetTarget(trainY[i]); err != nil {
				log.Fatal(err)
			}
			if err := chain.BackPropagate(); err != nil {
				log.Fatal(err)
			}
			if err := chain.GradientDescent(0.1, 0.5); err != nil {
				log.Fatal(err)
			}
		}
		if epoch%500 == 0 {
			fmt.Printf("Epoch %d, Loss: %.6f\n", epoch, totalLoss/float64(len(trainX)))
		}
	}

	fmt.Println("\nTesting trained network:")
	for i := range trainX {
		if err := chain.Propagate(trainX[i]); err != nil {
			log.Fatal(err)
		}
		class, err := chain.Class()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Input: %v, Predicted: %d (p=%.4f), Target: %v\n",
			trainX[i], class, chain.Output()[class], trainY[i])
	}
}
