package model

import "math"

// Activation identifies one of the closed set of element-wise
// activation functions a layer may carry.
type Activation string

const (
	Identity Activation = "identity"
	ReLU     Activation = "relu"
	Tanh     Activation = "tanh"
	Sigmoid  Activation = "sigmoid"
)

func (a Activation) valid() bool {
	switch a {
	case Identity, ReLU, Tanh, Sigmoid:
		return true
	}
	return false
}

// apply transforms v in place.
func (a Activation) apply(v []float32) {
	switch a {
	case ReLU:
		for i, x := range v {
			if x < 0 {
				v[i] = 0
			}
		}
	case Tanh:
		for i, x := range v {
			v[i] = float32(math.Tanh(float64(x)))
		}
	case Sigmoid:
		for i, x := range v {
			v[i] = float32(1 / (1 + math.Exp(-float64(x))))
		}
	case Identity:
	}
}
