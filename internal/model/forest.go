package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads and validates a classifier artifact from path. Missing or
// corrupt files return an error wrapping ErrArtifactUnavailable.
func Load(path string) (*Forest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrArtifactUnavailable, path, err)
	}
	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrArtifactUnavailable, path, err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactUnavailable, path, err)
	}

	var sum float64
	for _, t := range a.Trees {
		sum += t.Nodes[0].Value
	}
	return &Forest{
		featureNames: a.FeatureNames,
		trees:        a.Trees,
		baseline:     sum / float64(len(a.Trees)),
		trainedAt:    a.TrainedAt,
	}, nil
}

// PredictProbability runs the feature vector through every tree and returns
// the mean leaf positive-class probability. The vector must already be
// aligned to FeatureNames order.
func (f *Forest) PredictProbability(features []float64) (float64, error) {
	if len(features) != len(f.featureNames) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), len(f.featureNames))
	}
	var sum float64
	for i := range f.trees {
		sum += f.trees[i].leaf(features)
	}
	return sum / float64(len(f.trees)), nil
}

// Attribute decomposes a single prediction into per-feature contributions
// using path attribution: walking each tree, the change in node value across
// a split is credited to the split feature, and the per-tree credits are
// averaged over the forest. The contributions sum to
// PredictProbability(features) - Baseline() up to floating-point error,
// and are returned in FeatureNames order.
func (f *Forest) Attribute(features []float64) ([]float64, error) {
	if len(features) != len(f.featureNames) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), len(f.featureNames))
	}
	contrib := make([]float64, len(f.featureNames))
	for ti := range f.trees {
		nodes := f.trees[ti].Nodes
		idx := 0
		for nodes[idx].Feature != leafMarker {
			n := nodes[idx]
			next := n.Right
			if features[n.Feature] <= n.Threshold {
				next = n.Left
			}
			contrib[n.Feature] += nodes[next].Value - n.Value
			idx = next
		}
	}
	inv := 1 / float64(len(f.trees))
	for i := range contrib {
		contrib[i] *= inv
	}
	return contrib, nil
}

// leaf walks one tree to its leaf for the given vector.
func (t *Tree) leaf(features []float64) float64 {
	idx := 0
	for t.Nodes[idx].Feature != leafMarker {
		n := t.Nodes[idx]
		if features[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return t.Nodes[idx].Value
}
