package tsf

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// Supported cell types.
const (
	CellGRU     = "GRUCell"
	CellVanilla = "BasicRNNCell"
)

func knownCellType(name string) bool {
	return name == CellGRU || name == CellVanilla
}

// A Cell is a recurrent unit operating on batches.
//
// Inputs and states are row-major matrices with one row
// per batch element.
// For every Cell in this package, the output is the new
// state (before output dropout).
type Cell interface {
	StateSize() int
	Step(m Mode, in, state anydiff.Res, n int) (out, next anydiff.Res)
	Parameters() []*anydiff.Var
}

// NewCell creates a Cell of the configured type, wrapped
// with input and output dropout.
func NewCell(c anyvec.Creator, hp RNNHParams, inSize int) (Cell, error) {
	var inner Cell
	switch hp.Type {
	case CellGRU:
		inner = NewGRU(c, inSize, hp.Size)
	case CellVanilla:
		inner = NewVanilla(c, inSize, hp.Size)
	default:
		return nil, fmt.Errorf("unknown rnn type: %s", hp.Type)
	}
	return &DropoutCell{
		Cell:           inner,
		InputKeepProb:  hp.InputKeepProb,
		OutputKeepProb: hp.OutputKeepProb,
	}, nil
}

// DropoutCell applies dropout to the inputs and outputs
// of a Cell.
// The state passed to the next step is never dropped.
type DropoutCell struct {
	Cell
	InputKeepProb  float64
	OutputKeepProb float64
}

// Step applies the wrapped cell.
func (d *DropoutCell) Step(m Mode, in, state anydiff.Res, n int) (out, next anydiff.Res) {
	in = m.Dropout(in, d.InputKeepProb, n)
	out, next = d.Cell.Step(m, in, state, n)
	return m.Dropout(out, d.OutputKeepProb, n), next
}

// GRU is a gated recurrent unit.
type GRU struct {
	Size      int
	Update    *Gate
	Reset     *Gate
	Candidate *Gate
}

// NewGRU creates a randomly initialized GRU.
func NewGRU(c anyvec.Creator, inSize, size int) *GRU {
	return &GRU{
		Size:      size,
		Update:    NewGate(c, inSize, size, size, anynet.Sigmoid),
		Reset:     NewGate(c, inSize, size, size, anynet.Sigmoid),
		Candidate: NewGate(c, inSize, size, size, anynet.Tanh),
	}
}

// StateSize returns the hidden size.
func (g *GRU) StateSize() int {
	return g.Size
}

// Step computes u*h + (1-u)*c, where c is the candidate
// state computed from the reset-gated state.
func (g *GRU) Step(m Mode, in, state anydiff.Res, n int) (out, next anydiff.Res) {
	update := g.Update.Apply(in, state, n)
	reset := g.Reset.Apply(in, state, n)
	cand := g.Candidate.Apply(in, anydiff.Mul(reset, state), n)
	next = anydiff.Pool(cand, func(cand anydiff.Res) anydiff.Res {
		return anydiff.Add(cand, anydiff.Mul(update, anydiff.Sub(state, cand)))
	})
	return next, next
}

// Parameters returns the gate parameters.
func (g *GRU) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, gate := range []*Gate{g.Update, g.Reset, g.Candidate} {
		res = append(res, gate.Parameters()...)
	}
	return res
}

// Vanilla is a basic tanh RNN cell.
type Vanilla struct {
	Size  int
	Trans *Gate
}

// NewVanilla creates a randomly initialized Vanilla.
func NewVanilla(c anyvec.Creator, inSize, size int) *Vanilla {
	return &Vanilla{
		Size:  size,
		Trans: NewGate(c, inSize, size, size, anynet.Tanh),
	}
}

// StateSize returns the hidden size.
func (v *Vanilla) StateSize() int {
	return v.Size
}

// Step computes tanh(W*in + U*state + b).
func (v *Vanilla) Step(m Mode, in, state anydiff.Res, n int) (out, next anydiff.Res) {
	next = v.Trans.Apply(in, state, n)
	return next, next
}

// Parameters returns the cell's parameters.
func (v *Vanilla) Parameters() []*anydiff.Var {
	return v.Trans.Parameters()
}
