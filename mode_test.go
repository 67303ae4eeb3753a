package tsf

import (
	"math"
	"testing"

	"github.com/unixpickle/anyvec/anyvec64"
	"gonum.org/v1/gonum/floats"
)

func TestDropoutTrainMasks(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	data := make([]float64, 200)
	for i := range data {
		data[i] = 1
	}
	in := constVec(c, data)
	out := vecFloats(Train.Dropout(in, 0.5, 2).Output())
	var dropped, kept int
	for _, x := range out {
		switch {
		case x == 0:
			dropped++
		case math.Abs(x-2) < 1e-12:
			kept++
		default:
			t.Fatalf("unexpected output %f", x)
		}
	}
	if dropped == 0 || kept == 0 {
		t.Errorf("expected a mix of dropped and kept entries: %d dropped, %d kept",
			dropped, kept)
	}

	if !floats.Equal(vecFloats(Eval.Dropout(in, 0.5, 2).Output()), data) {
		t.Error("eval mode should not drop anything")
	}
	if !floats.Equal(vecFloats(Train.Dropout(in, 1, 2).Output()), data) {
		t.Error("keep probability 1 should not drop anything")
	}
}

func TestDropoutTrainMean(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	data := []float64{1, -2, 0.5, 3}
	in := constVec(c, data)
	const samples = 20000
	sum := make([]float64, len(data))
	for i := 0; i < samples; i++ {
		floats.Add(sum, vecFloats(Train.Dropout(in, 0.3, 1).Output()))
	}
	floats.Scale(1.0/samples, sum)
	expected := vecFloats(Eval.Dropout(in, 0.3, 1).Output())
	for i, x := range sum {
		if math.Abs(x-expected[i]) > 0.1*math.Max(1, math.Abs(expected[i])) {
			t.Errorf("entry %d: train mean %f but eval output %f", i, x, expected[i])
		}
	}
}

func TestCellTrainMean(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	hp := testHParams().RNN
	hp.Type = CellVanilla
	hp.OutputKeepProb = 0.5
	cell, err := NewCell(c, hp, 3)
	if err != nil {
		t.Fatal(err)
	}
	in := constVec(c, []float64{0.3, -0.2, 0.1})
	state := constVec(c, []float64{0.1, 0.2, -0.1, 0})

	evalOut, _ := cell.Step(Eval, in, state, 1)
	const samples = 20000
	sum := make([]float64, hp.Size)
	for i := 0; i < samples; i++ {
		out, next := cell.Step(Train, in, state, 1)
		if !floats.Equal(vecFloats(next.Output()), vecFloats(evalOut.Output())) {
			t.Fatal("output dropout should not reach the state")
		}
		floats.Add(sum, vecFloats(out.Output()))
	}
	floats.Scale(1.0/samples, sum)
	rowsClose(t, "train mean", [][]float64{sum},
		[][]float64{vecFloats(evalOut.Output())}, 0.02)
}
