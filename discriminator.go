package tsf

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// A Discriminator is a convolutional classifier which
// scores sequences of vectors as real or fake.
type Discriminator struct {
	InSize int

	// Filters stores one convolution per kernel width.
	Filters []*ConvFilter

	// Out maps pooled features to one logit.
	Out *anynet.FC

	InputKeepProb  float64
	OutputKeepProb float64
}

// A ConvFilter is a 1-D convolution over time.
// Taps[j] is applied to the j-th vector of every window;
// only the first tap's biases are used.
type ConvFilter struct {
	Taps []*anynet.FC
}

// NewDiscriminator creates a randomly initialized
// Discriminator.
func NewDiscriminator(c anyvec.Creator, inSize int, hp CNNHParams) *Discriminator {
	res := &Discriminator{
		InSize:         inSize,
		InputKeepProb:  hp.InputKeepProb,
		OutputKeepProb: hp.OutputKeepProb,
	}
	for _, width := range hp.KernelSizes {
		f := &ConvFilter{}
		for j := 0; j < width; j++ {
			f.Taps = append(f.Taps, anynet.NewFC(c, inSize, hp.NumFilter))
		}
		res.Filters = append(res.Filters, f)
	}
	res.Out = anynet.NewFC(c, len(hp.KernelSizes)*hp.NumFilter, 1)
	return res
}

// Apply produces one logit per batch element.
// Every entry of seq is an n x InSize matrix.
// Sequences shorter than the widest filter are padded
// with zero vectors.
func (d *Discriminator) Apply(m Mode, seq []anydiff.Res, n int) anydiff.Res {
	if len(seq) == 0 {
		panic("cannot discriminate an empty sequence")
	}
	c := seq[0].Output().Creator()
	inputs := make([]anydiff.Res, len(seq))
	for i, x := range seq {
		inputs[i] = m.Dropout(x, d.InputKeepProb, n)
	}
	for len(inputs) < d.maxWidth() {
		inputs = append(inputs, anydiff.NewConst(c.MakeVector(n*d.InSize)))
	}

	var features []anydiff.Res
	var widths []int
	for _, f := range d.Filters {
		features = append(features, f.apply(inputs, n))
		widths = append(widths, f.Taps[0].OutCount)
	}
	joined := joinCols(features, widths, n)
	return d.Out.Apply(m.Dropout(joined, d.OutputKeepProb, n), n)
}

// Parameters returns the filter and output parameters.
func (d *Discriminator) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, f := range d.Filters {
		res = append(res, f.Taps[0].Biases)
		for _, tap := range f.Taps {
			res = append(res, tap.Weights)
		}
	}
	return append(res, d.Out.Parameters()...)
}

func (d *Discriminator) maxWidth() int {
	var res int
	for _, f := range d.Filters {
		if len(f.Taps) > res {
			res = len(f.Taps)
		}
	}
	return res
}

// apply convolves, rectifies and max-pools over time.
func (f *ConvFilter) apply(seq []anydiff.Res, n int) anydiff.Res {
	width := len(f.Taps)
	var windows []anydiff.Res
	for start := 0; start+width <= len(seq); start++ {
		sum := f.Taps[0].Apply(seq[start], n)
		for j, tap := range f.Taps[1:] {
			weights := &anydiff.Matrix{
				Data: tap.Weights,
				Rows: tap.OutCount,
				Cols: tap.InCount,
			}
			in := &anydiff.Matrix{Data: seq[start+j+1], Rows: n, Cols: tap.InCount}
			sum = anydiff.Add(sum, anydiff.MatMul(false, true, in, weights).Data)
		}
		windows = append(windows, anynet.ReLU.Apply(sum, n))
	}
	return maxPool(windows)
}

// advLoss computes the classification loss of d on real
// and fake sequences, which may have different batch
// sizes.
// It is the mean sigmoid cross entropy of the real logits
// against 1 plus that of the fake logits against 0.
func advLoss(d *Discriminator, m Mode, real []anydiff.Res, realN int,
	fake []anydiff.Res, fakeN int) anydiff.Res {
	return anydiff.Add(
		meanSigmoidCE(d.Apply(m, real, realN), 1, realN),
		meanSigmoidCE(d.Apply(m, fake, fakeN), 0, fakeN),
	)
}

func meanSigmoidCE(logits anydiff.Res, label float64, n int) anydiff.Res {
	c := logits.Output().Creator()
	targets := c.MakeVector(n)
	targets.AddScalar(c.MakeNumeric(label))
	ce := &anynet.SigmoidCE{}
	cost := ce.Cost(anydiff.NewConst(targets), logits, n)
	return anydiff.Scale(anydiff.Sum(cost), c.MakeNumeric(1/float64(n)))
}

func splitRows(seq []anydiff.Res, cols, start, end int) []anydiff.Res {
	res := make([]anydiff.Res, len(seq))
	for i, x := range seq {
		res[i] = sliceRows(x, cols, start, end)
	}
	return res
}
