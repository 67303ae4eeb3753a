package tsf

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// A Gate computes Activation(W*in + U*state + b) for a
// batch of cell inputs and states.
//
// The input and the state are transformed separately and
// summed, so they never have to be joined column-wise.
// Only the input transformation has biases.
type Gate struct {
	Input *anynet.FC

	// State is the U matrix, with one row per output.
	State *anydiff.Var

	Activation anynet.Layer
}

// NewGate creates a randomly initialized Gate.
func NewGate(c anyvec.Creator, inSize, stateSize, outSize int,
	activation anynet.Layer) *Gate {
	// Reuse FC initialization for the state weights.
	stateInit := anynet.NewFC(c, stateSize, outSize)
	return &Gate{
		Input:      anynet.NewFC(c, inSize, outSize),
		State:      stateInit.Weights,
		Activation: activation,
	}
}

// Apply applies the Gate to n inputs and n states.
func (g *Gate) Apply(in, state anydiff.Res, n int) anydiff.Res {
	outSize := g.Input.OutCount
	stateSize := g.State.Vector.Len() / outSize
	stateTrans := anydiff.MatMul(false, true,
		&anydiff.Matrix{Data: state, Rows: n, Cols: stateSize},
		&anydiff.Matrix{Data: g.State, Rows: outSize, Cols: stateSize},
	).Data
	return g.Activation.Apply(anydiff.Add(g.Input.Apply(in, n), stateTrans), n)
}

// Parameters returns the input weights and biases
// followed by the state weights.
func (g *Gate) Parameters() []*anydiff.Var {
	return append(g.Input.Parameters(), g.State)
}
