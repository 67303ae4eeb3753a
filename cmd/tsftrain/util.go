package main

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

func argMax(logits [][]float64) []int {
	res := make([]int, len(logits))
	for i, row := range logits {
		res[i] = floats.MaxIdx(row)
	}
	return res
}

func errVocabMismatch(saved, current int) error {
	return fmt.Errorf("saved vocab size %d does not match corpus vocab size %d",
		saved, current)
}
