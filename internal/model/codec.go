package model

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog/log"
)

// Load parses a CBOR model artifact and validates its internal
// consistency. The returned model owns all its numeric state.
func Load(raw []byte) (*Model, error) {
	var m Model
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	log.Debug().
		Int("features", len(m.Features)).
		Int("layers", len(m.Layers)).
		Msg("model loaded")
	return &m, nil
}

// encMode encodes deterministically so that re-encoding a model always
// yields the same bytes regardless of map iteration order.
var encMode, _ = cbor.CoreDetEncOptions().EncMode()

// Encode serializes the model back to its CBOR artifact form. A model
// that is encoded and loaded again produces bit-identical predictions.
func (m *Model) Encode() ([]byte, error) {
	return encMode.Marshal(m)
}

func (m *Model) validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("%w: no features", ErrDecode)
	}
	seen := make(map[string]bool, len(m.Features))
	for _, name := range m.Features {
		if seen[name] {
			return fmt.Errorf("%w: duplicate feature %q", ErrDecode, name)
		}
		seen[name] = true
		n, ok := m.Norm[name]
		if !ok {
			return fmt.Errorf("%w: no normalization for feature %q", ErrDecode, name)
		}
		if n.Std == 0 {
			return fmt.Errorf("%w: zero std for feature %q", ErrDecode, name)
		}
	}
	if len(m.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrDecode)
	}

	width := len(m.Features)
	for i := range m.Layers {
		l := &m.Layers[i]
		if l.Rows <= 0 || l.Cols <= 0 {
			return fmt.Errorf("%w: layer %d has shape %dx%d", ErrDimension, i, l.Rows, l.Cols)
		}
		if l.Cols != width {
			return fmt.Errorf("%w: layer %d expects %d inputs, previous width is %d", ErrDimension, i, l.Cols, width)
		}
		if len(l.Weights) != l.Rows*l.Cols {
			return fmt.Errorf("%w: layer %d has %d weights for shape %dx%d", ErrDimension, i, len(l.Weights), l.Rows, l.Cols)
		}
		if len(l.Bias) != l.Rows {
			return fmt.Errorf("%w: layer %d has %d biases for %d rows", ErrDimension, i, len(l.Bias), l.Rows)
		}
		if !l.Activation.valid() {
			return fmt.Errorf("%w: layer %d has unknown activation %q", ErrDecode, i, l.Activation)
		}
		width = l.Rows
	}
	if width != 1 {
		return fmt.Errorf("%w: final layer produces %d outputs, want scalar", ErrDimension, width)
	}
	if m.Output.Std == 0 {
		return fmt.Errorf("%w: zero output std", ErrDecode)
	}
	return nil
}
