// Package model loads and serves the trained credit-risk classifier.
//
// The offline training pipeline exports a random-forest binary classifier as
// a JSON artifact: the ordered feature-name list plus every tree's node
// table, where each node carries the positive-class probability of the
// training samples that reached it. The artifact is loaded once at startup
// and is read-only afterwards, so concurrent predictions need no locking.
// Replacing the file requires a process restart.
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactUnavailable means the classifier file is missing or corrupt.
	// This is fatal for the scoring capability, not per-request recoverable.
	ErrArtifactUnavailable = errors.New("classifier artifact unavailable")

	// ErrFeatureCount means an input vector's length does not match the
	// artifact's declared feature list.
	ErrFeatureCount = errors.New("feature vector length mismatch")
)

// leafMarker is the feature index the trainer writes for leaf nodes.
const leafMarker = -1

// Node is one decision node in an exported tree. Internal nodes route
// feature[Feature] <= Threshold to Left, otherwise Right. Value is the
// positive-class probability of training samples at this node; for leaves
// it is the tree's output.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is one estimator of the forest.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// artifact is the on-disk JSON layout.
type artifact struct {
	ModelType    string   `json:"model_type"`
	TrainedAt    string   `json:"trained_at"`
	FeatureNames []string `json:"feature_names"`
	Trees        []Tree   `json:"trees"`
}

// Forest is the loaded classifier. All fields are immutable after Load.
type Forest struct {
	featureNames []string
	trees        []Tree
	baseline     float64 // mean root value across trees (expected output)
	trainedAt    string
}

// FeatureNames returns the artifact's declared feature order.
// The caller must align inputs to this order before predicting.
func (f *Forest) FeatureNames() []string {
	out := make([]string, len(f.featureNames))
	copy(out, f.featureNames)
	return out
}

// TrainedAt returns the training timestamp recorded in the artifact.
func (f *Forest) TrainedAt() string {
	return f.trainedAt
}

// Baseline returns the forest's average output: the mean positive-class
// probability at the root across all trees. Path attributions are deltas
// from this value.
func (f *Forest) Baseline() float64 {
	return f.baseline
}

// NumTrees returns the number of estimators in the forest.
func (f *Forest) NumTrees() int {
	return len(f.trees)
}

// validate checks structural integrity of a decoded artifact: node indices
// in range with children strictly after their parent, feature indices within
// the declared list, probabilities in [0,1].
func (a *artifact) validate() error {
	if len(a.FeatureNames) == 0 {
		return fmt.Errorf("no feature names declared")
	}
	if len(a.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	for ti, tree := range a.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range tree.Nodes {
			if n.Value < 0 || n.Value > 1 {
				return fmt.Errorf("tree %d node %d value %.4f outside [0,1]", ti, ni, n.Value)
			}
			if n.Feature == leafMarker {
				continue
			}
			if n.Feature < 0 || n.Feature >= len(a.FeatureNames) {
				return fmt.Errorf("tree %d node %d references unknown feature %d", ti, ni, n.Feature)
			}
			if n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d has out-of-range children", ti, ni)
			}
			// The exporter writes nodes in preorder, so children always
			// follow their parent. Enforcing that rules out cycles, which
			// would otherwise hang traversal at prediction time.
			if n.Left <= ni || n.Right <= ni {
				return fmt.Errorf("tree %d node %d child precedes it", ti, ni)
			}
		}
	}
	return nil
}
