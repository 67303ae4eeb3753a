package tsf

import (
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Indices into the loss vector produced by a forward
// pass.
const (
	lossGIndex = iota
	pplGIndex
	lossD0Index
	lossD1Index
)

// A Partition identifies a set of parameters which is
// updated by its own optimizers.
// No parameter belongs to more than one Partition.
type Partition int

const (
	// PartitionGenerator contains the embedding, the
	// encoder, the generator cell, the label projection
	// and the vocabulary projection.
	PartitionGenerator Partition = iota
	PartitionD0
	PartitionD1
)

// Model is a text style transfer model: an encoder, a
// style-conditioned generator and two discriminators
// trained adversarially.
//
// A Model is not safe for concurrent use.
type Model struct {
	HParams HParams
	Creator anyvec.Creator

	Embedding *Embedding
	Encoder   Cell
	Generator *Generator
	D0        *Discriminator
	D1        *Discriminator

	// Sampler performs relaxed sampling during soft
	// decoding.
	Sampler Sampler

	optimizers map[string]*Optimizer
}

// NewModel builds a randomly initialized Model.
func NewModel(c anyvec.Creator, hp HParams) (*Model, error) {
	if err := hp.Validate(); err != nil {
		return nil, essentials.AddCtx("new model", err)
	}
	hp = hp.copy()
	r := rand.New(rand.NewSource(hp.Seed))

	encoder, err := NewCell(c, hp.RNN, hp.EmbeddingSize)
	if err != nil {
		return nil, essentials.AddCtx("new model: encoder", err)
	}
	genCell, err := NewCell(c, hp.RNN, hp.EmbeddingSize)
	if err != nil {
		return nil, essentials.AddCtx("new model: generator", err)
	}
	m := &Model{
		HParams:   hp,
		Creator:   c,
		Embedding: NewEmbedding(c, hp.VocabSize, hp.EmbeddingSize, r),
		Encoder:   encoder,
		D0:        NewDiscriminator(c, hp.RNN.Size, hp.CNN),
		D1:        NewDiscriminator(c, hp.RNN.Size, hp.CNN),
		Sampler:   &GumbelSoftmax{Rand: rand.New(rand.NewSource(hp.Seed + 1))},
	}
	m.Generator = &Generator{
		Cell:           genCell,
		Embedding:      m.Embedding,
		LabelProj:      anynet.NewFC(c, 1, hp.DimY),
		Proj:           anynet.NewFC(c, hp.RNN.Size, hp.VocabSize),
		OutputKeepProb: hp.OutputKeepProb,
	}
	m.optimizers = m.newOptimizers()
	return m, nil
}

// Parameters returns the parameters in a partition.
func (m *Model) Parameters(p Partition) []*anydiff.Var {
	switch p {
	case PartitionGenerator:
		res := []*anydiff.Var{m.Embedding.Table}
		res = append(res, m.Encoder.Parameters()...)
		return append(res, m.Generator.Parameters()...)
	case PartitionD0:
		return m.D0.Parameters()
	case PartitionD1:
		return m.D1.Parameters()
	default:
		panic("unknown partition")
	}
}

// Optimizer returns the optimizer with the given name
// (OptGenerator, OptAutoencoder, OptD0 or OptD1), or nil.
func (m *Model) Optimizer(name string) *Optimizer {
	return m.optimizers[name]
}

func (m *Model) allParameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, p := range []Partition{PartitionGenerator, PartitionD0, PartitionD1} {
		res = append(res, m.Parameters(p)...)
	}
	return res
}

// encode runs the encoder from a zero state and returns
// the content part of its final state.
//
// Token IDs enter the block as constant one-hot vectors
// and are embedded inside it.
func (m *Model) encode(mode Mode, inputs [][]int) anydiff.Res {
	c := m.Creator
	n := len(inputs)
	size := m.HParams.RNN.Size
	seqs := make([][]anyvec.Vector, n)
	for i, seq := range inputs {
		for _, id := range seq {
			seqs[i] = append(seqs[i], oneHot(c, []int{id}, m.Embedding.VocabSize, nil).Output())
		}
	}
	block := &anyrnn.FuncBlock{
		Func: func(in, state anydiff.Res, n int) (out, newState anydiff.Res) {
			_, newState = m.Encoder.Step(mode, m.Embedding.Mix(in, n), state, n)
			return newState, newState
		},
		MakeStart: func(n int) anydiff.Res {
			return anydiff.NewConst(c.MakeVector(n * size))
		},
	}
	final := anyseq.Tail(anyrnn.Map(anyseq.ConstSeqList(c, seqs), block))
	return sliceCols(final, n, size, m.HParams.DimY, size)
}

// conditioned computes constant original and
// transferred initial states for decoding.
func (m *Model) conditioned(b *Batch) (hOri, hTsf anydiff.Res) {
	z := constOf(m.encode(Eval, b.EncInputs))
	hOri = constOf(m.Generator.Condition(b.Labels, z, false))
	hTsf = constOf(m.Generator.Condition(b.Labels, z, true))
	return
}

// forward builds the training graph for a batch and
// returns the vector [loss_g, ppl_g, loss_d0, loss_d1].
func (m *Model) forward(mode Mode, b *Batch, gamma float64) anydiff.Res {
	hp := &m.HParams
	g := m.Generator
	n := b.Size()
	size := hp.RNN.Size
	half := n / 2
	fakeSteps := b.Len
	if fakeSteps > hp.MaxLen {
		fakeSteps = hp.MaxLen
	}

	decIn := m.Embedding.LookupSeq(b.DecInputs)
	z := m.encode(mode, b.EncInputs)
	return anydiff.Pool(z, func(z anydiff.Res) anydiff.Res {
		hOri := g.Condition(b.Labels, z, false)
		hTsf := g.Condition(b.Labels, z, true)
		return anydiff.Pool(hOri, func(hOri anydiff.Res) anydiff.Res {
			return anydiff.Pool(hTsf, func(hTsf anydiff.Res) anydiff.Res {
				teach := g.TeacherForce(mode, hOri, decIn, n)
				soft := g.Decode(mode, hTsf, decIn[0], hp.MaxLen, n, m.Sampler, gamma)
				return anydiff.Pool(teach, func(teach anydiff.Res) anydiff.Res {
					return anydiff.Pool(soft, func(soft anydiff.Res) anydiff.Res {
						teachDec := g.Unpack(teach, b.Len, n)
						softDec := g.Unpack(soft, hp.MaxLen, n)
						recon := m.reconstruction(teachDec.Logits, b)

						real := append([]anydiff.Res{hOri}, teachDec.Outputs...)
						fake := append([]anydiff.Res{hTsf}, softDec.Outputs[:fakeSteps]...)
						lossD0 := advLoss(m.D0, mode,
							splitRows(real, size, 0, half), half,
							splitRows(fake, size, half, n), n-half)
						lossD1 := advLoss(m.D1, mode,
							splitRows(real, size, half, n), n-half,
							splitRows(fake, size, 0, half), half)
						return anydiff.Concat(recon, lossD0, lossD1)
					})
				})
			})
		})
	})
}

// reconstruction computes [loss_g, ppl_g] from the
// teacher-forced logits.
// Both are the weighted cross entropy summed over the
// batch; loss_g is divided by the batch size and ppl_g by
// the total weight.
func (m *Model) reconstruction(logits []anydiff.Res, b *Batch) anydiff.Res {
	c := m.Creator
	n := b.Size()
	cost := &anynet.DotCost{}
	var total anydiff.Res
	var weightSum float64
	for t, stepLogits := range logits {
		weights := make([]float64, n)
		for i := range weights {
			weights[i] = b.Weights[i][t]
			weightSum += weights[i]
		}
		desired := oneHot(c, column(b.Targets, t), m.HParams.VocabSize, weights)
		logProbs := anynet.LogSoftmax.Apply(stepLogits, n)
		stepCost := anydiff.Sum(cost.Cost(desired, logProbs, n))
		if total == nil {
			total = stepCost
		} else {
			total = anydiff.Add(total, stepCost)
		}
	}
	return anydiff.Pool(total, func(total anydiff.Res) anydiff.Res {
		return anydiff.Concat(
			anydiff.Scale(total, c.MakeNumeric(1/float64(n))),
			anydiff.Scale(total, c.MakeNumeric(1/(weightSum+1e-8))),
		)
	})
}

// Encoding stores the encoder results for a batch.
type Encoding struct {
	// Content is the style-independent part of the final
	// encoder state.
	Content [][]float64

	// Original and Transferred are the initial generator
	// states for the true and flipped labels.
	Original    [][]float64
	Transferred [][]float64
}

// Encode computes the content vectors and conditioned
// states for a batch in Eval mode.
// Only EncInputs, DecInputs, Labels and Len are used.
func (m *Model) Encode(b *Batch) (*Encoding, error) {
	if err := b.validateDecode(&m.HParams); err != nil {
		return nil, essentials.AddCtx("encode", err)
	}
	hp := &m.HParams
	z := constOf(m.encode(Eval, b.EncInputs))
	hOri := m.Generator.Condition(b.Labels, z, false)
	hTsf := m.Generator.Condition(b.Labels, z, true)
	return &Encoding{
		Content:     rowsOf(z.Output(), hp.DimZ),
		Original:    rowsOf(hOri.Output(), hp.RNN.Size),
		Transferred: rowsOf(hTsf.Output(), hp.RNN.Size),
	}, nil
}
