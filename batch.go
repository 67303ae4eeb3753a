package tsf

import (
	"errors"
	"fmt"
)

// A Batch is one mini-batch of training or evaluation
// data.
//
// All sequence fields have one row per batch element.
// Within a field, every row has the same length.
type Batch struct {
	// EncInputs are the encoder token IDs.
	EncInputs [][]int

	// DecInputs are the generator inputs for teacher
	// forcing; DecInputs[i][0] is the start token.
	DecInputs [][]int

	// Targets are the tokens the generator should produce.
	Targets [][]int

	// Weights mask out padding in the targets.
	Weights [][]float64

	// Labels are the 0/1 style labels.
	Labels []float64

	// Len is the length of the decoder rows.
	Len int
}

// Size returns the number of batch elements.
func (b *Batch) Size() int {
	return len(b.Labels)
}

// validate checks every field against the model.
func (b *Batch) validate(hp *HParams) error {
	if err := b.validateDecode(hp); err != nil {
		return err
	}
	if err := checkRows("targets", b.Targets, b.Len, hp); err != nil {
		return err
	}
	if len(b.Weights) != hp.BatchSize {
		return fmt.Errorf("weights: expected %d rows but got %d", hp.BatchSize,
			len(b.Weights))
	}
	for i, row := range b.Weights {
		if len(row) != b.Len {
			return fmt.Errorf("weights row %d: expected length %d but got %d", i,
				b.Len, len(row))
		}
	}
	return nil
}

// validateDecode checks the fields which decoding reads.
func (b *Batch) validateDecode(hp *HParams) error {
	if len(b.Labels) != hp.BatchSize {
		return fmt.Errorf("expected batch size %d but got %d", hp.BatchSize,
			len(b.Labels))
	}
	for i, l := range b.Labels {
		if l != 0 && l != 1 {
			return fmt.Errorf("label %d is %f (expected 0 or 1)", i, l)
		}
	}
	if len(b.EncInputs) == 0 || len(b.EncInputs[0]) == 0 {
		return errors.New("encoder inputs must be non-empty")
	}
	if err := checkRows("encoder inputs", b.EncInputs, len(b.EncInputs[0]), hp); err != nil {
		return err
	}
	if b.Len < 1 {
		return errors.New("batch length must be positive")
	}
	return checkRows("decoder inputs", b.DecInputs, b.Len, hp)
}

func checkRows(name string, rows [][]int, length int, hp *HParams) error {
	if len(rows) != hp.BatchSize {
		return fmt.Errorf("%s: expected %d rows but got %d", name, hp.BatchSize, len(rows))
	}
	for i, row := range rows {
		if len(row) != length {
			return fmt.Errorf("%s row %d: expected length %d but got %d", name, i,
				length, len(row))
		}
		for _, id := range row {
			if id < 0 || id >= hp.VocabSize {
				return fmt.Errorf("%s row %d: token %d out of range", name, i, id)
			}
		}
	}
	return nil
}

func column(rows [][]int, t int) []int {
	res := make([]int, len(rows))
	for i, row := range rows {
		res[i] = row[t]
	}
	return res
}
