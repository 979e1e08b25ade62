package features

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TrainedModel is the capability the fit pipeline needs from a classifier:
// per-feature importance scores. Scores are opaque non-negative values;
// features missing from the mapping are treated as unimportant.
type TrainedModel interface {
	Importance() map[string]float64
}

// ImportanceMap is a TrainedModel backed by a plain mapping.
type ImportanceMap map[string]float64

// Importance implements TrainedModel.
func (m ImportanceMap) Importance() map[string]float64 { return m }

// Weights is a non-negative multiplier per feature, aligned with a feature order.
type Weights struct {
	names  []string
	values []float64
}

// NewWeights builds Weights for names from a mapping, unchanged. Names missing
// from values get weight 0; entries not in names are ignored.
func NewWeights(names []string, values map[string]float64) (*Weights, error) {
	w := &Weights{
		names:  append([]string(nil), names...),
		values: make([]float64, len(names)),
	}
	for j, name := range names {
		v, ok := values[name]
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, eris.Wrapf(ErrInvalidWeights, "features: weight %v for feature %q", v, name)
		}
		w.values[j] = v
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// UniformWeights gives every feature weight 1.
func UniformWeights(names []string) *Weights {
	w := &Weights{
		names:  append([]string(nil), names...),
		values: make([]float64, len(names)),
	}
	for j := range w.values {
		w.values[j] = 1
	}
	return w
}

// WeightsFromModel converts a model's importance scores into weights scaled
// so that the largest weight is 1.
//
// A nil model, or one that reports no importance at all, falls back to
// UniformWeights; the fallback is logged at warn level.
func WeightsFromModel(names []string, model TrainedModel) (*Weights, error) {
	var scores map[string]float64
	if model != nil {
		scores = model.Importance()
	}
	if len(scores) == 0 {
		zap.L().Warn("model exposes no feature importance, using uniform weights",
			zap.String("component", "features.weights"),
			zap.Int("features", len(names)),
		)
		return UniformWeights(names), nil
	}

	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}
	for name := range scores {
		if _, ok := known[name]; !ok {
			zap.L().Debug("ignoring importance for unknown feature",
				zap.String("component", "features.weights"),
				zap.String("feature", name),
			)
		}
	}

	w, err := NewWeights(names, scores)
	if err != nil {
		return nil, err
	}
	return w.Scale(1 / w.Max()), nil
}

func (w *Weights) validate() error {
	if len(w.values) == 0 {
		return eris.Wrap(ErrInvalidWeights, "features: no weights")
	}
	for _, v := range w.values {
		if v > 0 {
			return nil
		}
	}
	return eris.Wrap(ErrInvalidWeights, "features: all weights are zero")
}

// Names returns a copy of the feature names in order.
func (w *Weights) Names() []string { return append([]string(nil), w.names...) }

// Values returns a copy of the weights in feature order.
func (w *Weights) Values() []float64 { return append([]float64(nil), w.values...) }

// At returns the weight of feature j.
func (w *Weights) At(j int) float64 { return w.values[j] }

// Get returns the weight for a feature name, or 0 if unknown.
func (w *Weights) Get(name string) float64 {
	for j, n := range w.names {
		if n == name {
			return w.values[j]
		}
	}
	return 0
}

// Map returns the weights keyed by feature name.
func (w *Weights) Map() map[string]float64 {
	out := make(map[string]float64, len(w.names))
	for j, n := range w.names {
		out[n] = w.values[j]
	}
	return out
}

// Max returns the largest weight.
func (w *Weights) Max() float64 {
	var m float64
	for _, v := range w.values {
		m = math.Max(m, v)
	}
	return m
}

// Scale returns a copy with every weight multiplied by c.
func (w *Weights) Scale(c float64) *Weights {
	out := &Weights{
		names:  append([]string(nil), w.names...),
		values: make([]float64, len(w.values)),
	}
	for j, v := range w.values {
		out.values[j] = v * c
	}
	return out
}

// CheckFeatures returns ErrFeatureMismatch unless names equals the weights'
// feature order.
func (w *Weights) CheckFeatures(names []string) error {
	if len(names) != len(w.names) {
		return eris.Wrapf(ErrFeatureMismatch, "features: %d weights for %d features", len(w.names), len(names))
	}
	for j, name := range names {
		if w.names[j] != name {
			return eris.Wrapf(ErrFeatureMismatch, "features: weight %d is for %q, want %q", j, w.names[j], name)
		}
	}
	return nil
}
