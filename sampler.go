package tsf

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"gonum.org/v1/gonum/floats"
)

const gumbelEpsilon = 1e-20

// A Sampler turns a batch of n logit vectors into a batch
// of distributions over the vocabulary.
type Sampler interface {
	Sample(logits anydiff.Res, temperature float64, n int) anydiff.Res
}

// GumbelSoftmax is the differentiable relaxation of
// categorical sampling.
// It computes softmax((logits + g) / temperature), where
// g is Gumbel noise.
//
// If Rand is nil, no noise is added and the result is a
// tempered softmax.
type GumbelSoftmax struct {
	Rand *rand.Rand
}

// Sample computes the relaxed sample.
// As the temperature approaches zero, the result
// approaches the one-hot arg-max of the perturbed logits.
func (g *GumbelSoftmax) Sample(logits anydiff.Res, temperature float64,
	n int) anydiff.Res {
	if temperature <= 0 {
		panic("temperature must be positive")
	}
	c := logits.Output().Creator()
	in := logits
	if g.Rand != nil {
		noise := make([]float64, logits.Output().Len())
		for i := range noise {
			u := g.Rand.Float64()
			noise[i] = -math.Log(-math.Log(u+gumbelEpsilon) + gumbelEpsilon)
		}
		in = anydiff.Add(in, constVec(c, noise))
	}
	scaled := anydiff.Scale(in, c.MakeNumeric(1/temperature))
	return anydiff.Exp(anynet.LogSoftmax.Apply(scaled, n))
}

// Greedy selects the arg-max of every logit vector.
// Its result is a constant, so nothing is back-propagated
// through it.
type Greedy struct{}

// Sample returns one-hot vectors for the largest logits.
// The temperature is ignored.
func (Greedy) Sample(logits anydiff.Res, temperature float64, n int) anydiff.Res {
	c := logits.Output().Creator()
	vocab := logits.Output().Len() / n
	return oneHot(c, argMaxRows(logits, n), vocab, nil)
}

func argMaxRows(logits anydiff.Res, n int) []int {
	rows := rowsOf(logits.Output(), logits.Output().Len()/n)
	res := make([]int, n)
	for i, row := range rows {
		res[i] = floats.MaxIdx(row)
	}
	return res
}
