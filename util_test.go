package tsf

import (
	"math"
	"math/rand"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec64"
	"gonum.org/v1/gonum/floats"
)

func testHParams() HParams {
	return HParams{
		BatchSize:     2,
		VocabSize:     10,
		EmbeddingSize: 3,
		MaxLen:        3,
		RNN: RNNHParams{
			Type:           CellGRU,
			Size:           4,
			InputKeepProb:  1,
			OutputKeepProb: 1,
		},
		OutputKeepProb: 1,
		DimY:           2,
		DimZ:           2,
		CNN: CNNHParams{
			KernelSizes:    []int{1, 2},
			NumFilter:      3,
			InputKeepProb:  1,
			OutputKeepProb: 1,
		},
		Adam: AdamHParams{
			LearningRate: 1e-2,
			Beta1:        0.9,
			Beta2:        0.999,
			Epsilon:      1e-8,
		},
		Seed: 1,
	}
}

func testBatch() *Batch {
	return &Batch{
		EncInputs: [][]int{{5, 4, 3}, {0, 7, 6}},
		DecInputs: [][]int{{1, 3, 4}, {1, 6, 7}},
		Targets:   [][]int{{3, 4, 5}, {6, 7, 2}},
		Weights:   [][]float64{{1, 1, 1}, {1, 1, 1}},
		Labels:    []float64{0, 1},
		Len:       3,
	}
}

func newTestModel(t *testing.T, hp HParams) *Model {
	m, err := NewModel(anyvec64.DefaultCreator{}, hp)
	if err != nil {
		t.Fatal(err)
	}
	m.Sampler = &GumbelSoftmax{Rand: rand.New(rand.NewSource(1337))}
	return m
}

func testVar(r *rand.Rand, size int) *anydiff.Var {
	data := make([]float64, size)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return anydiff.NewVar(makeVec(anyvec64.DefaultCreator{}, data))
}

func snapshot(vars []*anydiff.Var) [][]float64 {
	res := make([][]float64, len(vars))
	for i, v := range vars {
		res[i] = append([]float64{}, vecFloats(v.Vector)...)
	}
	return res
}

func sameSnapshot(a, b [][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !floats.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// checkGradient compares the gradient of a random linear
// function of f() with finite differences.
// At most maxCoords coordinates are checked per variable.
func checkGradient(t *testing.T, vars []*anydiff.Var, maxCoords int,
	f func() anydiff.Res) {
	const (
		epsilon   = 1e-5
		tolerance = 1e-4
	)
	c := vars[0].Vector.Creator()
	out := f()
	r := rand.New(rand.NewSource(42))
	upstream := make([]float64, out.Output().Len())
	for i := range upstream {
		upstream[i] = r.NormFloat64()
	}
	grad := anydiff.NewGrad(vars...)
	out.Propagate(makeVec(c, upstream), grad)

	objective := func() float64 {
		return floats.Dot(vecFloats(f().Output()), upstream)
	}
	for vi, v := range vars {
		analytic := vecFloats(grad[v])
		data := append([]float64{}, vecFloats(v.Vector)...)
		for i := 0; i < len(data) && i < maxCoords; i++ {
			old := data[i]
			data[i] = old + epsilon
			v.Vector.SetData(c.MakeNumericList(data))
			plus := objective()
			data[i] = old - epsilon
			v.Vector.SetData(c.MakeNumericList(data))
			minus := objective()
			data[i] = old
			v.Vector.SetData(c.MakeNumericList(data))

			numeric := (plus - minus) / (2 * epsilon)
			diff := math.Abs(numeric - analytic[i])
			if diff > tolerance*math.Max(1, math.Abs(numeric)) {
				t.Errorf("var %d coord %d: expected %f but got %f", vi, i,
					numeric, analytic[i])
			}
		}
	}
}

func rowsClose(t *testing.T, name string, actual, expected [][]float64, tol float64) {
	if len(actual) != len(expected) {
		t.Fatalf("%s: expected %d rows but got %d", name, len(expected), len(actual))
	}
	for i, row := range actual {
		if !floats.EqualApprox(row, expected[i], tol) {
			t.Errorf("%s row %d: expected %v but got %v", name, i, expected[i], row)
		}
	}
}
