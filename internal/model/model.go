// Package model deserializes and evaluates the small feed-forward
// regression models embedded in this repository. A model is a canonical
// ordered list of feature names, per-feature normalization constants, an
// ordered stack of (weight, bias, activation) layers and the output
// denormalization constants. Models are immutable after Load and safe
// for concurrent use.
package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Norm holds the linear rescaling constants for one value:
// normalized = (x - Mean) / Std.
type Norm struct {
	Mean float32 `cbor:"mean"`
	Std  float32 `cbor:"std"`
}

// Layer is one dense layer: a Rows x Cols weight matrix in row-major
// order, a bias vector of length Rows and an activation tag.
type Layer struct {
	Rows       int        `cbor:"rows"`
	Cols       int        `cbor:"cols"`
	Weights    []float32  `cbor:"weights"`
	Bias       []float32  `cbor:"bias"`
	Activation Activation `cbor:"activation"`
}

// Model is a loaded artifact. Do not mutate after Load.
type Model struct {
	Features []string        `cbor:"features"`
	Norm     map[string]Norm `cbor:"norm"`
	Layers   []Layer         `cbor:"layers"`
	Output   Norm            `cbor:"output"`
}

// forward computes weights*in + bias without applying the activation.
func (l *Layer) forward(in []float32) ([]float32, error) {
	if len(in) != l.Cols {
		return nil, fmt.Errorf("%w: layer expects %d inputs, got %d", ErrDimension, l.Cols, len(in))
	}
	out := make([]float32, l.Rows)
	copy(out, l.Bias)
	a := blas32.General{Rows: l.Rows, Cols: l.Cols, Stride: l.Cols, Data: l.Weights}
	x := blas32.Vector{N: l.Cols, Inc: 1, Data: in}
	y := blas32.Vector{N: l.Rows, Inc: 1, Data: out}
	blas32.Gemv(blas.NoTrans, 1, a, x, 1, y)
	return out, nil
}

// Predict evaluates the model against a named feature vector. Every
// feature the model declares must be present; the lookup order is the
// model's canonical order, not the map order. The final layer's raw
// scalar goes through the output denormalization, and a non-finite
// result is rejected.
func (m *Model) Predict(features map[string]float32) (float32, error) {
	vec := make([]float32, len(m.Features))
	for i, name := range m.Features {
		v, ok := features[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingFeature, name)
		}
		n := m.Norm[name]
		vec[i] = (v - n.Mean) / n.Std
	}

	last := len(m.Layers) - 1
	for i := range m.Layers {
		out, err := m.Layers[i].forward(vec)
		if err != nil {
			return 0, err
		}
		if i != last {
			m.Layers[i].Activation.apply(out)
		}
		vec = out
	}

	y := vec[0]*m.Output.Std + m.Output.Mean
	if f := float64(y); math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotFinite, y)
	}
	return y, nil
}
