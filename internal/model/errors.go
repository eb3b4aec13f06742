package model

import "errors"

// Error classes for the four failure modes of loading and evaluating a
// model. Callers match with errors.Is; all errors produced by this
// package wrap one of these.
var (
	// ErrDecode marks a malformed, truncated or internally inconsistent
	// model artifact. Artifacts are fixed at build time, so hitting this
	// outside the test suite means a corrupt binary.
	ErrDecode = errors.New("model: malformed artifact")

	// ErrDimension marks a layer shape that disagrees with the declared
	// feature count or with the neighboring layers.
	ErrDimension = errors.New("model: dimension mismatch")

	// ErrMissingFeature is returned by Predict when the supplied feature
	// map lacks a name the model declares. It signals drift between the
	// feature assembly code and the model schema.
	ErrMissingFeature = errors.New("model: missing feature")

	// ErrNotFinite is returned when the denormalized prediction is NaN
	// or infinite. An unusable fee figure is worse than a failure.
	ErrNotFinite = errors.New("model: non-finite prediction")
)
