package tsf

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
)

// Optimizer names.
const (
	OptGenerator   = "generator"
	OptAutoencoder = "autoencoder"
	OptD0          = "d0"
	OptD1          = "d1"
)

// An Optimizer minimizes one objective with respect to
// one Partition using Adam.
type Optimizer struct {
	Name      string
	Partition Partition
	Params    []*anydiff.Var

	// Objective returns the weights of the objective in
	// terms of [loss_g, ppl_g, loss_d0, loss_d1].
	Objective func(rho float64) []float64

	Adam         *anysgd.Adam
	LearningRate float64
}

func (m *Model) newOptimizers() map[string]*Optimizer {
	res := map[string]*Optimizer{}
	add := func(name string, p Partition, obj func(rho float64) []float64) {
		res[name] = &Optimizer{
			Name:      name,
			Partition: p,
			Params:    m.Parameters(p),
			Objective: obj,
			Adam: &anysgd.Adam{
				DecayRate1: m.HParams.Adam.Beta1,
				DecayRate2: m.HParams.Adam.Beta2,
				Damping:    m.HParams.Adam.Epsilon,
			},
			LearningRate: m.HParams.Adam.LearningRate,
		}
	}
	add(OptGenerator, PartitionGenerator, func(rho float64) []float64 {
		return []float64{1, 0, -rho, -rho}
	})
	add(OptAutoencoder, PartitionGenerator, func(rho float64) []float64 {
		return []float64{1, 0, 0, 0}
	})
	add(OptD0, PartitionD0, func(rho float64) []float64 {
		return []float64{0, 0, 1, 0}
	})
	add(OptD1, PartitionD1, func(rho float64) []float64 {
		return []float64{0, 0, 0, 1}
	})
	return res
}

// Minimize takes one Adam step on the objective, given
// the loss vector from a forward pass.
// Only o.Params are modified.
func (o *Optimizer) Minimize(losses anydiff.Res, rho float64) {
	c := losses.Output().Creator()
	grad := anydiff.NewGrad(o.Params...)
	losses.Propagate(makeVec(c, o.Objective(rho)), grad)
	step := o.Adam.Transform(grad)
	scale := c.MakeNumeric(-o.LearningRate)
	for v, g := range step {
		delta := g.Copy()
		delta.Scale(scale)
		v.Vector.Add(delta)
	}
}
