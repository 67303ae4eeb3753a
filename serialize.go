package tsf

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
}

var errInvalidModelData = errors.New("invalid model data")

// DeserializeModel deserializes a Model.
//
// The optimizer state is not saved, so every optimizer
// starts over after deserialization.
func DeserializeModel(d []byte) (*Model, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	if len(slice) < 2 {
		return nil, essentials.AddCtx("deserialize Model", errInvalidModelData)
	}
	hpData, ok := slice[0].(serializer.Bytes)
	if !ok {
		return nil, essentials.AddCtx("deserialize Model", errInvalidModelData)
	}
	var hp HParams
	if err := json.Unmarshal(hpData, &hp); err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}

	var vecs []*anyvecsave.S
	for _, obj := range slice[1:] {
		vec, ok := obj.(*anyvecsave.S)
		if !ok {
			return nil, essentials.AddCtx("deserialize Model", errInvalidModelData)
		}
		vecs = append(vecs, vec)
	}

	m, err := NewModel(vecs[0].Vector.Creator(), hp)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	params := m.allParameters()
	if len(params) != len(vecs) {
		return nil, essentials.AddCtx("deserialize Model",
			fmt.Errorf("expected %d parameters but got %d", len(params), len(vecs)))
	}
	for i, p := range params {
		if p.Vector.Len() != vecs[i].Vector.Len() {
			return nil, essentials.AddCtx("deserialize Model",
				fmt.Errorf("parameter %d: expected length %d but got %d", i,
					p.Vector.Len(), vecs[i].Vector.Len()))
		}
		p.Vector.Set(vecs[i].Vector)
	}
	return m, nil
}

// LoadModel reads a Model from a file created by Save.
func LoadModel(path string) (*Model, error) {
	var m *Model
	if err := serializer.LoadAny(path, &m); err != nil {
		return nil, essentials.AddCtx("load model", err)
	}
	return m, nil
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/unixpickle/tsf.Model"
}

// Serialize serializes the hyperparameters and the
// parameters of every partition.
func (m *Model) Serialize() ([]byte, error) {
	hpData, err := json.Marshal(m.HParams)
	if err != nil {
		return nil, err
	}
	list := []serializer.Serializer{serializer.Bytes(hpData)}
	for _, p := range m.allParameters() {
		list = append(list, &anyvecsave.S{Vector: p.Vector})
	}
	return serializer.SerializeSlice(list)
}

// Save writes the Model to a file.
func (m *Model) Save(path string) error {
	if err := serializer.SaveAny(path, m); err != nil {
		return essentials.AddCtx("save model", err)
	}
	return nil
}
