package tsf

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Matrices are stored row-major with one row per batch
// element, which is the layout anynet layers expect.

func matMul(a anydiff.Res, rows, inner int, b anydiff.Res, cols int) anydiff.Res {
	if a.Output().Len() != rows*inner || b.Output().Len() != inner*cols {
		panic("matrix size mismatch")
	}
	return anydiff.MatMul(false, false,
		&anydiff.Matrix{Data: a, Rows: rows, Cols: inner},
		&anydiff.Matrix{Data: b, Rows: inner, Cols: cols}).Data
}

// sliceCols selects the columns [start, end) of a
// rows x cols matrix.
func sliceCols(x anydiff.Res, rows, cols, start, end int) anydiff.Res {
	if start < 0 || end > cols || start >= end {
		panic(fmt.Sprintf("column range [%d, %d) out of bounds for %d columns",
			start, end, cols))
	}
	c := x.Output().Creator()
	width := end - start
	sel := make([]float64, cols*width)
	for j := 0; j < width; j++ {
		sel[(start+j)*width+j] = 1
	}
	return matMul(x, rows, cols, constVec(c, sel), width)
}

// joinCols concatenates matrices with the same number
// of rows along the column axis.
func joinCols(parts []anydiff.Res, widths []int, rows int) anydiff.Res {
	if len(parts) != len(widths) || len(parts) == 0 {
		panic("invalid column join")
	}
	if len(parts) == 1 {
		return parts[0]
	}
	c := parts[0].Output().Creator()
	var total int
	for _, w := range widths {
		total += w
	}
	var res anydiff.Res
	var offset int
	for i, part := range parts {
		w := widths[i]
		place := make([]float64, w*total)
		for j := 0; j < w; j++ {
			place[j*total+offset+j] = 1
		}
		placed := matMul(part, rows, w, constVec(c, place), total)
		if res == nil {
			res = placed
		} else {
			res = anydiff.Add(res, placed)
		}
		offset += w
	}
	return res
}

// sliceRows selects the rows [start, end) of a matrix
// with the given number of columns.
func sliceRows(x anydiff.Res, cols, start, end int) anydiff.Res {
	return anydiff.Slice(x, start*cols, end*cols)
}

// oneHot creates a constant len(ids) x size matrix with
// scales[i] at (i, ids[i]).
// If scales is nil, every entry is 1.
func oneHot(c anyvec.Creator, ids []int, size int, scales []float64) anydiff.Res {
	data := make([]float64, len(ids)*size)
	for i, id := range ids {
		if scales == nil {
			data[i*size+id] = 1
		} else {
			data[i*size+id] = scales[i]
		}
	}
	return constVec(c, data)
}

func constVec(c anyvec.Creator, data []float64) anydiff.Res {
	return anydiff.NewConst(makeVec(c, data))
}

func makeVec(c anyvec.Creator, data []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(data))
}

func vecFloats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}

// rowsOf splits a rows x cols vector into rows.
func rowsOf(v anyvec.Vector, cols int) [][]float64 {
	data := vecFloats(v)
	res := make([][]float64, len(data)/cols)
	for i := range res {
		res[i] = data[i*cols : (i+1)*cols]
	}
	return res
}

// maxPool computes the component-wise maximum of equally
// sized results.
func maxPool(ins []anydiff.Res) anydiff.Res {
	if len(ins) == 0 {
		panic("cannot pool zero inputs")
	}
	c := ins[0].Output().Creator()
	best := append([]float64{}, vecFloats(ins[0].Output())...)
	winners := make([]int, len(best))
	vars := ins[0].Vars()
	for i, in := range ins[1:] {
		if in.Output().Len() != len(best) {
			panic("pooled sizes do not match")
		}
		for j, x := range vecFloats(in.Output()) {
			if x > best[j] {
				best[j] = x
				winners[j] = i + 1
			}
		}
		vars = anydiff.MergeVarSets(vars, in.Vars())
	}
	return &maxPoolRes{
		In:      ins,
		Winners: winners,
		OutVec:  makeVec(c, best),
		V:       vars,
	}
}

type maxPoolRes struct {
	In      []anydiff.Res
	Winners []int
	OutVec  anyvec.Vector
	V       anydiff.VarSet
}

func (m *maxPoolRes) Output() anyvec.Vector {
	return m.OutVec
}

func (m *maxPoolRes) Vars() anydiff.VarSet {
	return m.V
}

func (m *maxPoolRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	up := vecFloats(u)
	downs := make([][]float64, len(m.In))
	for j, w := range m.Winners {
		if downs[w] == nil {
			downs[w] = make([]float64, len(up))
		}
		downs[w][j] = up[j]
	}
	c := m.OutVec.Creator()
	for i, down := range downs {
		if down != nil {
			m.In[i].Propagate(makeVec(c, down), g)
		}
	}
}
