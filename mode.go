package tsf

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
)

// Mode determines whether stochastic regularization is
// active.
// It is passed explicitly to everything that applies
// dropout so that one forward pass never mixes modes.
type Mode int

const (
	Eval Mode = iota
	Train
)

// String returns "train" or "eval".
func (m Mode) String() string {
	if m == Train {
		return "train"
	}
	return "eval"
}

// Dropout applies dropout with the given keep
// probability to a batch of n vectors.
// Kept components are scaled by 1/keepProb, so the
// expected output in Train mode equals the input.
// Outside of Train mode, it returns in unchanged.
func (m Mode) Dropout(in anydiff.Res, keepProb float64, n int) anydiff.Res {
	if m != Train || keepProb >= 1 {
		return in
	}
	d := &anynet.Dropout{Enabled: true, KeepProb: keepProb}
	c := in.Output().Creator()
	return anydiff.Scale(d.Apply(in, n), c.MakeNumeric(1/keepProb))
}
