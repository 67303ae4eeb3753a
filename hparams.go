package tsf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/unixpickle/essentials"
)

// HParams stores the hyperparameters of a Model.
//
// A Model copies its HParams when it is created, so
// changing an HParams after the fact has no effect.
type HParams struct {
	BatchSize     int `json:"batch_size"`
	VocabSize     int `json:"vocab_size"`
	EmbeddingSize int `json:"embedding_size"`

	// MaxLen is the number of steps taken by free-running
	// (soft and hard) decoding.
	MaxLen int `json:"max_len"`

	RNN RNNHParams `json:"rnn"`

	// OutputKeepProb is the dropout keep probability for
	// generator outputs before the vocabulary projection.
	OutputKeepProb float64 `json:"output_keep_prob"`

	// DimY and DimZ partition the recurrent state into a
	// style part and a content part.
	DimY int `json:"dim_y"`
	DimZ int `json:"dim_z"`

	CNN  CNNHParams  `json:"cnn"`
	Adam AdamHParams `json:"adam"`

	// Seed seeds the embedding initialization.
	Seed int64 `json:"seed"`
}

// RNNHParams configures the encoder and generator cells.
type RNNHParams struct {
	Type           string  `json:"type"`
	Size           int     `json:"size"`
	InputKeepProb  float64 `json:"input_keep_prob"`
	OutputKeepProb float64 `json:"output_keep_prob"`
}

// CNNHParams configures each discriminator.
type CNNHParams struct {
	KernelSizes    []int   `json:"kernel_sizes"`
	NumFilter      int     `json:"num_filter"`
	InputKeepProb  float64 `json:"input_keep_prob"`
	OutputKeepProb float64 `json:"output_keep_prob"`
}

// AdamHParams configures the four optimizers.
type AdamHParams struct {
	LearningRate float64 `json:"learning_rate"`
	Beta1        float64 `json:"beta1"`
	Beta2        float64 `json:"beta2"`
	Epsilon      float64 `json:"epsilon"`
}

// DefaultHParams returns the default hyperparameters.
// VocabSize is left at zero and must be set by the
// caller.
func DefaultHParams() HParams {
	return HParams{
		BatchSize:     128,
		EmbeddingSize: 100,
		MaxLen:        20,
		RNN: RNNHParams{
			Type:           CellGRU,
			Size:           700,
			InputKeepProb:  0.5,
			OutputKeepProb: 1,
		},
		OutputKeepProb: 0.5,
		DimY:           200,
		DimZ:           500,
		CNN: CNNHParams{
			KernelSizes:    []int{3, 4, 5},
			NumFilter:      128,
			InputKeepProb:  1,
			OutputKeepProb: 0.5,
		},
		Adam: AdamHParams{
			LearningRate: 1e-4,
			Beta1:        0.9,
			Beta2:        0.999,
			Epsilon:      1e-8,
		},
	}
}

// DecodeHParams decodes JSON hyperparameters on top of
// DefaultHParams without validating them.
// Callers which fill in fields afterwards (such as
// VocabSize) should validate the result themselves;
// NewModel always does.
func DecodeHParams(r io.Reader) (*HParams, error) {
	hp := DefaultHParams()
	if err := json.NewDecoder(r).Decode(&hp); err != nil {
		return nil, essentials.AddCtx("decode hparams", err)
	}
	return &hp, nil
}

// ReadHParams is like DecodeHParams, but it also
// validates the result.
func ReadHParams(r io.Reader) (*HParams, error) {
	hp, err := DecodeHParams(r)
	if err != nil {
		return nil, err
	}
	if err := hp.Validate(); err != nil {
		return nil, essentials.AddCtx("read hparams", err)
	}
	return hp, nil
}

// Validate checks that the hyperparameters describe a
// model which can be built.
func (h *HParams) Validate() error {
	switch {
	case h.BatchSize < 2:
		return errors.New("batch size must be at least 2")
	case h.VocabSize <= 0:
		return errors.New("vocab size must be positive")
	case h.EmbeddingSize <= 0:
		return errors.New("embedding size must be positive")
	case h.MaxLen <= 0:
		return errors.New("max length must be positive")
	case h.RNN.Size <= 0:
		return errors.New("rnn size must be positive")
	case h.DimY <= 0 || h.DimZ <= 0:
		return errors.New("dim_y and dim_z must be positive")
	case h.DimY+h.DimZ != h.RNN.Size:
		return fmt.Errorf("dim_y (%d) + dim_z (%d) must equal rnn size (%d)",
			h.DimY, h.DimZ, h.RNN.Size)
	case h.CNN.NumFilter <= 0:
		return errors.New("cnn filter count must be positive")
	case len(h.CNN.KernelSizes) == 0:
		return errors.New("cnn needs at least one kernel size")
	case h.Adam.LearningRate <= 0:
		return errors.New("learning rate must be positive")
	}
	if !knownCellType(h.RNN.Type) {
		return fmt.Errorf("unknown rnn type: %s", h.RNN.Type)
	}
	for _, k := range h.CNN.KernelSizes {
		if k <= 0 {
			return fmt.Errorf("invalid kernel size: %d", k)
		}
	}
	probs := []struct {
		name string
		p    float64
	}{
		{"rnn input keep prob", h.RNN.InputKeepProb},
		{"rnn output keep prob", h.RNN.OutputKeepProb},
		{"output keep prob", h.OutputKeepProb},
		{"cnn input keep prob", h.CNN.InputKeepProb},
		{"cnn output keep prob", h.CNN.OutputKeepProb},
	}
	for _, x := range probs {
		if x.p <= 0 || x.p > 1 {
			return fmt.Errorf("%s out of range: %f", x.name, x.p)
		}
	}
	return nil
}

func (h *HParams) copy() HParams {
	res := *h
	res.CNN.KernelSizes = append([]int{}, h.CNN.KernelSizes...)
	return res
}
