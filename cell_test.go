package tsf

import (
	"math/rand"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec64"
	"gonum.org/v1/gonum/floats"
)

func TestNewCellUnknown(t *testing.T) {
	hp := testHParams().RNN
	hp.Type = "LSTMCell"
	if _, err := NewCell(anyvec64.DefaultCreator{}, hp, 3); err == nil {
		t.Error("expected error")
	}
}

func TestCellGradients(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	for _, cellType := range []string{CellGRU, CellVanilla} {
		t.Run(cellType, func(t *testing.T) {
			hp := testHParams().RNN
			hp.Type = cellType
			cell, err := NewCell(c, hp, 3)
			if err != nil {
				t.Fatal(err)
			}
			r := rand.New(rand.NewSource(0))
			in := testVar(r, 2*3)
			state := testVar(r, 2*hp.Size)
			vars := append([]*anydiff.Var{in, state}, cell.Parameters()...)
			checkGradient(t, vars, 10, func() anydiff.Res {
				_, next := cell.Step(Eval, in, state, 2)
				return anydiff.Pool(next, func(next anydiff.Res) anydiff.Res {
					_, next2 := cell.Step(Eval, in, next, 2)
					return next2
				})
			})
		})
	}
}

func TestDropoutCellEval(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	hp := testHParams().RNN
	hp.InputKeepProb = 0.5
	hp.OutputKeepProb = 0.5
	cell, err := NewCell(c, hp, 3)
	if err != nil {
		t.Fatal(err)
	}
	r := rand.New(rand.NewSource(0))
	in := testVar(r, 2*3)
	state := testVar(r, 2*hp.Size)

	out1, next1 := cell.Step(Eval, in, state, 2)
	out2, next2 := cell.Step(Eval, in, state, 2)
	if !floats.Equal(vecFloats(out1.Output()), vecFloats(out2.Output())) ||
		!floats.Equal(vecFloats(next1.Output()), vecFloats(next2.Output())) {
		t.Error("eval mode should be deterministic")
	}
	if !floats.Equal(vecFloats(out1.Output()), vecFloats(next1.Output())) {
		t.Error("eval output should equal the next state")
	}
}
