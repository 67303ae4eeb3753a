package tsf

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// AdversarialThreshold is the discriminator loss below
// which TrainBatch trains the generator adversarially.
const AdversarialThreshold = 1.2

var errNonPositiveGamma = errors.New("temperature must be positive")

// Losses stores the scalar losses of one forward pass.
type Losses struct {
	// Loss is LossG - rho*LossD.
	Loss float64

	// LossG is the reconstruction cross entropy divided
	// by the batch size.
	LossG float64

	// PPLG is the reconstruction cross entropy divided by
	// the total target weight.
	PPLG float64

	LossD  float64
	LossD0 float64
	LossD1 float64
}

func newLosses(v anyvec.Vector, rho float64) *Losses {
	vals := vecFloats(v)
	res := &Losses{
		LossG:  vals[lossGIndex],
		PPLG:   vals[pplGIndex],
		LossD0: vals[lossD0Index],
		LossD1: vals[lossD1Index],
	}
	res.LossD = res.LossD0 + res.LossD1
	res.Loss = res.LossG - rho*res.LossD
	return res
}

// TrainD0 takes one step on the first discriminator.
// The reported losses are from before the update.
func (m *Model) TrainD0(b *Batch, rho, gamma float64) (*Losses, error) {
	return m.train(OptD0, b, rho, gamma)
}

// TrainD1 takes one step on the second discriminator.
func (m *Model) TrainD1(b *Batch, rho, gamma float64) (*Losses, error) {
	return m.train(OptD1, b, rho, gamma)
}

// TrainGenerator takes one step on the embedding, encoder
// and generator to minimize LossG - rho*LossD.
func (m *Model) TrainGenerator(b *Batch, rho, gamma float64) (*Losses, error) {
	return m.train(OptGenerator, b, rho, gamma)
}

// TrainAutoencoder takes one step on the embedding,
// encoder and generator to minimize LossG alone.
func (m *Model) TrainAutoencoder(b *Batch, rho, gamma float64) (*Losses, error) {
	return m.train(OptAutoencoder, b, rho, gamma)
}

// Evaluate computes the losses in Eval mode without
// changing any parameters.
func (m *Model) Evaluate(b *Batch, rho, gamma float64) (*Losses, error) {
	if err := m.checkStep(b, gamma); err != nil {
		return nil, essentials.AddCtx("evaluate", err)
	}
	return newLosses(m.forward(Eval, b, gamma).Output(), rho), nil
}

func (m *Model) train(name string, b *Batch, rho, gamma float64) (*Losses, error) {
	if err := m.checkStep(b, gamma); err != nil {
		return nil, essentials.AddCtx("train "+name, err)
	}
	losses := m.forward(Train, b, gamma)
	res := newLosses(losses.Output(), rho)
	m.optimizers[name].Minimize(losses, rho)
	return res, nil
}

func (m *Model) checkStep(b *Batch, gamma float64) error {
	if gamma <= 0 {
		return errNonPositiveGamma
	}
	return b.validate(&m.HParams)
}

// A StepReport summarizes one TrainBatch call.
type StepReport struct {
	D0 *Losses
	D1 *Losses

	// Adversarial is set if the generator was trained
	// against the discriminators rather than as a plain
	// autoencoder.
	Adversarial bool

	Generator *Losses
}

// TrainBatch trains both discriminators and then the
// generator on a batch.
//
// The generator is trained adversarially only when both
// discriminator losses are below AdversarialThreshold;
// otherwise the autoencoder objective is used.
func (m *Model) TrainBatch(b *Batch, rho, gamma float64) (*StepReport, error) {
	res := &StepReport{}
	var err error
	if res.D0, err = m.TrainD0(b, rho, gamma); err != nil {
		return nil, err
	}
	if res.D1, err = m.TrainD1(b, rho, gamma); err != nil {
		return nil, err
	}
	res.Adversarial = res.D0.LossD0 < AdversarialThreshold &&
		res.D1.LossD1 < AdversarialThreshold
	if res.Adversarial {
		res.Generator, err = m.TrainGenerator(b, rho, gamma)
	} else {
		res.Generator, err = m.TrainAutoencoder(b, rho, gamma)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DecodeHard decodes MaxLen greedy steps from the
// original and transferred states.
// The result is indexed by batch element, step and
// vocabulary entry.
func (m *Model) DecodeHard(b *Batch) (ori, tsf Logits, err error) {
	if err = b.validateDecode(&m.HParams); err != nil {
		return nil, nil, essentials.AddCtx("decode hard", err)
	}
	hOri, hTsf := m.conditioned(b)
	goIn := m.goInput(b)
	ori = m.freeRun(hOri, goIn, Greedy{}, 1, b.Size())
	tsf = m.freeRun(hTsf, goIn, Greedy{}, 1, b.Size())
	return ori, tsf, nil
}

// SoftDecoding stores the results of DecodeSoft.
type SoftDecoding struct {
	// Ori and Tsf are soft decodings with MaxLen steps
	// from the original and transferred states.
	Ori Logits
	Tsf Logits

	// GLogits are the teacher-forced logits, with Len
	// steps.
	GLogits Logits

	// TestOutput and TestLogits are the cell output and
	// logits for one step from the original state with
	// the start token as input.
	TestOutput [][]float64
	TestLogits [][]float64
}

// DecodeSoft runs relaxed decoding with m.Sampler at the
// given temperature, together with teacher forcing.
func (m *Model) DecodeSoft(b *Batch, gamma float64) (*SoftDecoding, error) {
	if gamma <= 0 {
		return nil, essentials.AddCtx("decode soft", errNonPositiveGamma)
	}
	if err := b.validateDecode(&m.HParams); err != nil {
		return nil, essentials.AddCtx("decode soft", err)
	}
	n := b.Size()
	g := m.Generator
	hOri, hTsf := m.conditioned(b)
	goIn := m.goInput(b)

	decIn := m.Embedding.LookupSeq(b.DecInputs)
	for i, x := range decIn {
		decIn[i] = constOf(x)
	}
	teach := g.Unpack(g.TeacherForce(Eval, hOri, decIn, n), b.Len, n)

	testOut, _ := g.Cell.Step(Eval, goIn, hOri, n)
	testLogits := g.logits(Eval, testOut, n)

	return &SoftDecoding{
		Ori:        m.freeRun(hOri, goIn, m.Sampler, gamma, n),
		Tsf:        m.freeRun(hTsf, goIn, m.Sampler, gamma, n),
		GLogits:    collectLogits(teach.Logits, n),
		TestOutput: rowsOf(testOut.Output(), g.Cell.StateSize()),
		TestLogits: rowsOf(testLogits.Output(), m.HParams.VocabSize),
	}, nil
}

func (m *Model) goInput(b *Batch) anydiff.Res {
	return constOf(m.Embedding.Lookup(column(b.DecInputs, 0)))
}

func (m *Model) freeRun(h, goIn anydiff.Res, s Sampler, temperature float64,
	n int) Logits {
	g := m.Generator
	steps := m.HParams.MaxLen
	packed := g.Decode(Eval, h, goIn, steps, n, s, temperature)
	return collectLogits(g.Unpack(packed, steps, n).Logits, n)
}
