package tsf

import (
	"math"
	"math/rand"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec64"
)

func testSequence(r *rand.Rand, length, n, size int) []*anydiff.Var {
	res := make([]*anydiff.Var, length)
	for i := range res {
		res[i] = testVar(r, n*size)
	}
	return res
}

func varsToRes(vars []*anydiff.Var) []anydiff.Res {
	res := make([]anydiff.Res, len(vars))
	for i, v := range vars {
		res[i] = v
	}
	return res
}

func TestDiscriminatorShapes(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	hp := testHParams().CNN
	hp.KernelSizes = []int{2, 3}
	d := NewDiscriminator(c, 4, hp)
	r := rand.New(rand.NewSource(0))
	for _, length := range []int{1, 2, 5} {
		seq := varsToRes(testSequence(r, length, 3, 4))
		if n := d.Apply(Eval, seq, 3).Output().Len(); n != 3 {
			t.Errorf("length %d: expected 3 logits but got %d", length, n)
		}
	}
}

func TestDiscriminatorGradient(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	hp := testHParams().CNN
	hp.KernelSizes = []int{1, 3}
	d := NewDiscriminator(c, 4, hp)
	r := rand.New(rand.NewSource(1))
	inputs := testSequence(r, 4, 2, 4)
	vars := append(append([]*anydiff.Var{}, inputs...), d.Parameters()...)
	checkGradient(t, vars, 6, func() anydiff.Res {
		return d.Apply(Eval, varsToRes(inputs), 2)
	})
}

func TestMeanSigmoidCE(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	logits := constVec(c, []float64{0, 0, 0})
	actual := vecFloats(meanSigmoidCE(logits, 1, 3).Output())[0]
	if math.Abs(actual-math.Log(2)) > 1e-8 {
		t.Errorf("expected %f but got %f", math.Log(2), actual)
	}

	logits = constVec(c, []float64{2, -1})
	actual = vecFloats(meanSigmoidCE(logits, 0, 2).Output())[0]
	expected := (math.Log(1+math.Exp(2)) + math.Log(1+math.Exp(-1))) / 2
	if math.Abs(actual-expected) > 1e-8 {
		t.Errorf("expected %f but got %f", expected, actual)
	}
}
