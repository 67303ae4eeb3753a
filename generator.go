package tsf

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
)

// A Generator decodes sentences from conditioned states.
//
// Teacher forcing, soft decoding and hard decoding all
// share the same Cell and Proj.
type Generator struct {
	Cell      Cell
	Embedding *Embedding

	// LabelProj maps a style label to the style part of
	// the initial state.
	LabelProj *anynet.FC

	// Proj maps cell outputs to vocabulary logits.
	Proj *anynet.FC

	OutputKeepProb float64
}

// Decoded is an unpacked decoder result.
type Decoded struct {
	// Outputs stores one n x StateSize cell output per
	// step.
	Outputs []anydiff.Res

	// Logits stores one n x VocabSize matrix per step.
	Logits []anydiff.Res

	// Final is the state after the last step.
	Final anydiff.Res
}

// Condition builds the initial states for a batch of
// labels by joining the projected labels with z.
// If flip is set, every label l is replaced by 1-l.
func (g *Generator) Condition(labels []float64, z anydiff.Res, flip bool) anydiff.Res {
	c := z.Output().Creator()
	n := len(labels)
	vals := make([]float64, n)
	for i, l := range labels {
		if flip {
			vals[i] = 1 - l
		} else {
			vals[i] = l
		}
	}
	style := g.LabelProj.Apply(constVec(c, vals), n)
	dimY := g.LabelProj.OutCount
	dimZ := z.Output().Len() / n
	return joinCols([]anydiff.Res{style, z}, []int{dimY, dimZ}, n)
}

// TeacherForce runs the generator over the embedded
// ground-truth inputs, starting from h.
// The result must be unpacked with Unpack using
// len(inputs) steps.
func (g *Generator) TeacherForce(m Mode, h anydiff.Res, inputs []anydiff.Res,
	n int) anydiff.Res {
	return unroll(h, 0, len(inputs), func(t int, state anydiff.Res) (emit, next anydiff.Res) {
		out, next := g.Cell.Step(m, inputs[t], state, n)
		return anydiff.Concat(out, g.logits(m, out, n)), next
	})
}

// Decode runs the generator for a fixed number of steps,
// feeding it the embedding of its own samples.
// The first input is goInput.
// The result must be unpacked with Unpack.
func (g *Generator) Decode(m Mode, h, goInput anydiff.Res, steps, n int,
	s Sampler, temperature float64) anydiff.Res {
	stateLen := n * g.Cell.StateSize()
	inLen := n * g.Embedding.Dim
	start := anydiff.Concat(h, goInput)
	return unroll(start, 0, steps, func(t int, carry anydiff.Res) (emit, next anydiff.Res) {
		state := anydiff.Slice(carry, 0, stateLen)
		in := anydiff.Slice(carry, stateLen, stateLen+inLen)
		out, newState := g.Cell.Step(m, in, state, n)
		logits := g.logits(m, out, n)
		sample := s.Sample(logits, temperature, n)
		newIn := g.Embedding.Mix(sample, n)
		return anydiff.Concat(out, logits), anydiff.Concat(newState, newIn)
	})
}

// Unpack splits the result of TeacherForce or Decode.
//
// The packed result may be used many times by the
// unpacked pieces, so callers computing gradients should
// unpack inside an anydiff.Pool.
func (g *Generator) Unpack(packed anydiff.Res, steps, n int) *Decoded {
	outLen := n * g.Cell.StateSize()
	logitLen := n * g.Proj.OutCount
	res := &Decoded{}
	var offset int
	for t := 0; t < steps; t++ {
		res.Outputs = append(res.Outputs, anydiff.Slice(packed, offset, offset+outLen))
		offset += outLen
		res.Logits = append(res.Logits, anydiff.Slice(packed, offset, offset+logitLen))
		offset += logitLen
	}
	res.Final = anydiff.Slice(packed, offset, offset+outLen)
	return res
}

// Parameters returns the cell, label projection and
// vocabulary projection parameters.
// The embedding is owned by the Model.
func (g *Generator) Parameters() []*anydiff.Var {
	res := append([]*anydiff.Var{}, g.Cell.Parameters()...)
	res = append(res, g.LabelProj.Parameters()...)
	return append(res, g.Proj.Parameters()...)
}

func (g *Generator) logits(m Mode, out anydiff.Res, n int) anydiff.Res {
	return g.Proj.Apply(m.Dropout(out, g.OutputKeepProb, n), n)
}

// A stepFunc computes one recurrent step from a carried
// value.
// The emitted result may be nil.
type stepFunc func(t int, carry anydiff.Res) (emit, next anydiff.Res)

// unroll applies f for steps-t timesteps and packs the
// emitted results followed by the final carry.
//
// The carry is pooled at every step, so back-propagation
// visits each step a constant number of times no matter
// how often f reuses its carry.
func unroll(carry anydiff.Res, t, steps int, f stepFunc) anydiff.Res {
	if t == steps {
		return carry
	}
	return anydiff.Pool(carry, func(carry anydiff.Res) anydiff.Res {
		emit, next := f(t, carry)
		rest := unroll(next, t+1, steps, f)
		if emit == nil {
			return rest
		}
		return anydiff.Concat(emit, rest)
	})
}

// Logits are the decoder logits for a batch, indexed by
// batch element, step and vocabulary entry.
type Logits [][][]float64

func collectLogits(steps []anydiff.Res, n int) Logits {
	res := make(Logits, n)
	for _, step := range steps {
		rows := rowsOf(step.Output(), step.Output().Len()/n)
		for i, row := range rows {
			res[i] = append(res[i], row)
		}
	}
	return res
}

func constOf(r anydiff.Res) anydiff.Res {
	return anydiff.NewConst(r.Output().Copy())
}
