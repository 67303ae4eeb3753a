package tsf

import (
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"gonum.org/v1/gonum/floats"
)

// An Embedding maps token IDs to vectors.
type Embedding struct {
	VocabSize int
	Dim       int

	// Table is a VocabSize x Dim matrix.
	Table *anydiff.Var
}

// NewEmbedding creates an embedding whose rows are drawn
// uniformly from [-0.5, 0.5) and scaled to unit norm.
func NewEmbedding(c anyvec.Creator, vocabSize, dim int, r *rand.Rand) *Embedding {
	data := make([]float64, vocabSize*dim)
	for i := 0; i < vocabSize; i++ {
		row := data[i*dim : (i+1)*dim]
		for j := range row {
			row[j] = r.Float64() - 0.5
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return &Embedding{
		VocabSize: vocabSize,
		Dim:       dim,
		Table:     anydiff.NewVar(makeVec(c, data)),
	}
}

// Lookup embeds a batch of token IDs, producing a
// len(ids) x Dim matrix.
func (e *Embedding) Lookup(ids []int) anydiff.Res {
	c := e.Table.Vector.Creator()
	return e.Mix(oneHot(c, ids, e.VocabSize, nil), len(ids))
}

// LookupSeq embeds a batch of equal-length sequences,
// producing one matrix per timestep.
func (e *Embedding) LookupSeq(seqs [][]int) []anydiff.Res {
	if len(seqs) == 0 {
		return nil
	}
	res := make([]anydiff.Res, len(seqs[0]))
	ids := make([]int, len(seqs))
	for t := range res {
		for i, seq := range seqs {
			ids[i] = seq[t]
		}
		res[t] = e.Lookup(ids)
	}
	return res
}

// Mix multiplies an n x VocabSize matrix of token
// weights by the table.
// For a probability distribution, the result is a convex
// combination of rows.
func (e *Embedding) Mix(dist anydiff.Res, n int) anydiff.Res {
	return matMul(dist, n, e.VocabSize, e.Table, e.Dim)
}

// Rows returns a copy of the table as rows.
func (e *Embedding) Rows() [][]float64 {
	return rowsOf(e.Table.Vector, e.Dim)
}
