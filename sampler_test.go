package tsf

import (
	"math/rand"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec64"
	"gonum.org/v1/gonum/floats"
)

func TestGumbelSoftmaxDistribution(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	logits := constVec(c, []float64{1, 2, -1, 0, 0.5, 3})
	g := &GumbelSoftmax{Rand: rand.New(rand.NewSource(0))}
	for _, temp := range []float64{0.1, 1, 10} {
		rows := rowsOf(g.Sample(logits, temp, 2).Output(), 3)
		for i, row := range rows {
			if sum := floats.Sum(row); sum < 1-1e-8 || sum > 1+1e-8 {
				t.Errorf("temperature %f row %d: sum is %f", temp, i, sum)
			}
			if floats.Min(row) < 0 {
				t.Errorf("temperature %f row %d: negative entry", temp, i)
			}
		}
	}
}

func TestGumbelSoftmaxLowTemperature(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	logits := constVec(c, []float64{1, 2, -1, 0, 0.5, 3})
	actual := vecFloats((&GumbelSoftmax{}).Sample(logits, 1e-4, 2).Output())
	expected := vecFloats(Greedy{}.Sample(logits, 1, 2).Output())
	if !floats.EqualApprox(actual, expected, 1e-6) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}

func TestGumbelSoftmaxGradient(t *testing.T) {
	logits := testVar(rand.New(rand.NewSource(0)), 2*4)
	g := &GumbelSoftmax{}
	checkGradient(t, []*anydiff.Var{logits}, 100, func() anydiff.Res {
		return g.Sample(logits, 0.7, 2)
	})
}

func TestGumbelSoftmaxBadTemperature(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	c := anyvec64.DefaultCreator{}
	(&GumbelSoftmax{}).Sample(constVec(c, []float64{1, 2}), 0, 1)
}

func TestGreedy(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	logits := constVec(c, []float64{1, 2, -1, 4, 0.5, 3})
	actual := vecFloats(Greedy{}.Sample(logits, 1, 2).Output())
	if expected := []float64{0, 1, 0, 1, 0, 0}; !floats.Equal(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}
