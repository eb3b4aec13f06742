package model

import (
	"errors"
	"math"
	"testing"
)

func TestPredictSingleLayer(t *testing.T) {
	t.Parallel()
	m := &Model{
		Features: []string{"a", "b"},
		Norm:     map[string]Norm{"a": {0, 1}, "b": {0, 1}},
		Layers: []Layer{
			{Rows: 1, Cols: 2, Weights: []float32{2, 3}, Bias: []float32{1}, Activation: Identity},
		},
		Output: Norm{Mean: 10, Std: 2},
	}

	got, err := m.Predict(map[string]float32{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	// (2*1 + 3*2 + 1) * 2 + 10
	if got != 28 {
		t.Errorf("Predict = %v, want 28", got)
	}
}

func TestPredictAppliesNormalization(t *testing.T) {
	t.Parallel()
	m := &Model{
		Features: []string{"a"},
		Norm:     map[string]Norm{"a": {Mean: 5, Std: 2}},
		Layers: []Layer{
			{Rows: 1, Cols: 1, Weights: []float32{1}, Bias: []float32{0}, Activation: Identity},
		},
		Output: Norm{Mean: 0, Std: 1},
	}

	got, err := m.Predict(map[string]float32{"a": 9})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if got != 2 { // (9-5)/2
		t.Errorf("Predict = %v, want 2", got)
	}
}

func TestPredictHiddenReLU(t *testing.T) {
	t.Parallel()
	m := &Model{
		Features: []string{"a"},
		Norm:     map[string]Norm{"a": {0, 1}},
		Layers: []Layer{
			{Rows: 2, Cols: 1, Weights: []float32{1, -1}, Bias: []float32{0, 0}, Activation: ReLU},
			{Rows: 1, Cols: 2, Weights: []float32{1, 1}, Bias: []float32{0.5}, Activation: Identity},
		},
		Output: Norm{Mean: 0, Std: 1},
	}

	got, err := m.Predict(map[string]float32{"a": 2})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	// hidden = relu([2, -2]) = [2, 0]; out = 2 + 0 + 0.5
	if got != 2.5 {
		t.Errorf("Predict = %v, want 2.5", got)
	}
}

func TestPredictMissingFeature(t *testing.T) {
	t.Parallel()
	m := &Model{
		Features: []string{"a", "b"},
		Norm:     map[string]Norm{"a": {0, 1}, "b": {0, 1}},
		Layers: []Layer{
			{Rows: 1, Cols: 2, Weights: []float32{1, 1}, Bias: []float32{0}, Activation: Identity},
		},
		Output: Norm{Mean: 0, Std: 1},
	}

	_, err := m.Predict(map[string]float32{"a": 1})
	if !errors.Is(err, ErrMissingFeature) {
		t.Fatalf("err = %v, want ErrMissingFeature", err)
	}
}

func TestPredictDimensionMismatch(t *testing.T) {
	t.Parallel()
	// Deliberately inconsistent model built around Load's validation:
	// the second layer declares more inputs than the first produces.
	m := &Model{
		Features: []string{"a"},
		Norm:     map[string]Norm{"a": {0, 1}},
		Layers: []Layer{
			{Rows: 1, Cols: 1, Weights: []float32{1}, Bias: []float32{0}, Activation: Identity},
			{Rows: 1, Cols: 3, Weights: []float32{1, 1, 1}, Bias: []float32{0}, Activation: Identity},
		},
		Output: Norm{Mean: 0, Std: 1},
	}

	_, err := m.Predict(map[string]float32{"a": 1})
	if !errors.Is(err, ErrDimension) {
		t.Fatalf("err = %v, want ErrDimension", err)
	}
}

func TestPredictRejectsNonFinite(t *testing.T) {
	t.Parallel()
	m := &Model{
		Features: []string{"a"},
		Norm:     map[string]Norm{"a": {0, 1}},
		Layers: []Layer{
			{Rows: 1, Cols: 1, Weights: []float32{math.MaxFloat32}, Bias: []float32{0}, Activation: Identity},
		},
		Output: Norm{Mean: 0, Std: math.MaxFloat32},
	}

	_, err := m.Predict(map[string]float32{"a": math.MaxFloat32})
	if !errors.Is(err, ErrNotFinite) {
		t.Fatalf("err = %v, want ErrNotFinite", err)
	}
}

func TestActivations(t *testing.T) {
	t.Parallel()
	v := []float32{-1, 0, 1}

	relu := append([]float32(nil), v...)
	ReLU.apply(relu)
	if relu[0] != 0 || relu[1] != 0 || relu[2] != 1 {
		t.Errorf("relu = %v", relu)
	}

	th := append([]float32(nil), v...)
	Tanh.apply(th)
	if math.Abs(float64(th[2])-math.Tanh(1)) > 1e-6 {
		t.Errorf("tanh(1) = %v", th[2])
	}

	sg := append([]float32(nil), v...)
	Sigmoid.apply(sg)
	if sg[1] != 0.5 {
		t.Errorf("sigmoid(0) = %v, want 0.5", sg[1])
	}

	id := append([]float32(nil), v...)
	Identity.apply(id)
	for i := range id {
		if id[i] != v[i] {
			t.Errorf("identity changed %v to %v", v, id)
			break
		}
	}

	if Activation("softmax").valid() {
		t.Error("softmax should not be a valid activation")
	}
}
